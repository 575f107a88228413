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

// Package modelsettings holds the per-agent knobs forwarded verbatim to the
// model adapter's request body.
package modelsettings

// ToolChoice selects how the model is steered towards tool use. The zero
// value behaves like "auto".
type ToolChoice struct {
	// Mode is one of "", "auto", "none", or "required". Empty and "auto" are
	// equivalent.
	Mode string
	// Function, when set, pins the call to a single named function tool and
	// takes precedence over Mode.
	Function string
}

// ModelSettings carries optional, per-request model configuration. Nil
// pointer fields are omitted from the outgoing request rather than sent as
// JSON null or zero values.
type ModelSettings struct {
	Temperature *float64
	TopP        *float64

	ToolChoice        ToolChoice
	ParallelToolCalls *bool

	// Extra carries provider-specific fields (e.g. reasoning effort, max
	// output tokens) forwarded to the request body unchanged. The engine
	// itself never inspects Extra's contents.
	Extra map[string]any
}

// Merge replaces fields of base with the non-zero fields of override,
// mirroring how RunConfig.ModelSettings takes precedence over an
// individual agent's settings without clobbering fields the override left
// unset.
func Merge(base, override ModelSettings) ModelSettings {
	merged := base
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.TopP != nil {
		merged.TopP = override.TopP
	}
	if override.ToolChoice.Mode != "" || override.ToolChoice.Function != "" {
		merged.ToolChoice = override.ToolChoice
	}
	if override.ParallelToolCalls != nil {
		merged.ParallelToolCalls = override.ParallelToolCalls
	}
	if len(override.Extra) > 0 {
		merged.Extra = make(map[string]any, len(base.Extra)+len(override.Extra))
		for k, v := range base.Extra {
			merged.Extra[k] = v
		}
		for k, v := range override.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}
