// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agents

import (
	"context"
	"fmt"

	"github.com/riverrun-ai/agentcore/modelsettings"
	"github.com/riverrun-ai/agentcore/usage"
)

// ToolDefinition is the function-tool schema sent in a ModelRequest's Tools
// field. Both user-declared tools and synthetic handoff shims (§4.H) are
// serialised this way.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-Schema object
}

// TextFormat asks the model to constrain its output to a JSON-Schema shape.
// The engine forwards Schema verbatim; it never parses or validates it (the
// spec explicitly puts structured-output parsing out of scope).
type TextFormat struct {
	Name   string
	Schema map[string]any
}

// ModelRequest is the normalised request the engine builds once per turn and
// hands to a Model. A concrete Model is responsible for serialising it to
// the wire shape in §6.
type ModelRequest struct {
	Model        string
	Instructions string
	Input        Conversation
	Tools        []ToolDefinition

	ModelSettings modelsettings.ModelSettings

	Stream bool

	TextFormat *TextFormat

	PreviousResponseID string
}

// ModelResponse is the adapter's normalised view of a single completion: the
// output items the Runner will classify, the usage it consumed, and
// identifying metadata.
type ModelResponse struct {
	Output     []Item
	Usage      usage.Usage
	ResponseID string
	CreatedAt  int64
	Model      string
}

// WireEventCallback receives one normalised SSE frame (already decoded JSON,
// keyed exactly as the wire names it) as a stream progresses. Returning an
// error stops the stream early.
type WireEventCallback func(ctx context.Context, raw map[string]any) error

// Model is the wire-level contract component D must satisfy: one call per
// non-streaming turn, or a push-driven stream of raw wire events per
// streaming turn.
type Model interface {
	// CreateCompletion performs a single non-streaming POST and returns the
	// normalised response.
	CreateCompletion(ctx context.Context, req ModelRequest) (*ModelResponse, error)

	// CreateStream performs a POST with stream=true, invoking yield once per
	// SSE frame (already parsed from "data: <json>") in wire order, and
	// returns once the stream ends (the [DONE] sentinel, EOF, or an error).
	CreateStream(ctx context.Context, req ModelRequest, yield WireEventCallback) error
}

// ModelProvider resolves a string model name to a concrete Model
// implementation, e.g. by looking up an OpenAI client.
type ModelProvider interface {
	GetModel(name string) (Model, error)
}

// ModelProviderFunc adapts a plain function to ModelProvider.
type ModelProviderFunc func(name string) (Model, error)

func (f ModelProviderFunc) GetModel(name string) (Model, error) { return f(name) }

// SingleModelProvider always returns the same Model regardless of the
// requested name; handy for tests and for pinning a run to one client.
type SingleModelProvider struct {
	Model Model
}

func (p SingleModelProvider) GetModel(name string) (Model, error) {
	if p.Model == nil {
		return nil, fmt.Errorf("no model configured for %q", name)
	}
	return p.Model, nil
}
