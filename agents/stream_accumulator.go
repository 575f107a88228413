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
	"strings"

	"github.com/riverrun-ai/agentcore/usage"
)

// streamAccumulator folds the StreamEvent sequence a streaming turn produces
// back into the same shape callModel would have received from a
// non-streaming CreateCompletion, so the turn loop's Classify state never
// needs to know which path produced its ModelResponse.
type streamAccumulator struct {
	text strings.Builder

	callOrder []string
	calls     map[string]*FunctionCallItem

	responseID string
	model      string
	createdAt  int64
	usage      usage.Usage
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{calls: make(map[string]*FunctionCallItem)}
}

func (a *streamAccumulator) apply(event StreamEvent) {
	switch v := event.(type) {
	case ResponseCreatedEvent:
		a.responseID = v.ResponseID
		a.model = v.Model
		a.createdAt = v.CreatedAt
	case TextDeltaEvent:
		a.text.WriteString(v.Text)
	case ToolCallEvent:
		call := a.callFor(v.CallID)
		call.Name = v.Name
		call.Arguments += v.Arguments
	case FunctionCallArgumentsDeltaEvent:
		call := a.callFor(v.CallID)
		call.Arguments += v.Arguments
	case ResponseCompletedEvent:
		a.usage = a.usage.Add(v.Usage)
	case UsageUpdateEvent:
		a.usage = a.usage.Add(v.Usage)
	}
}

func (a *streamAccumulator) callFor(callID string) *FunctionCallItem {
	if call, ok := a.calls[callID]; ok {
		return call
	}
	call := &FunctionCallItem{CallID: callID}
	a.calls[callID] = call
	a.callOrder = append(a.callOrder, callID)
	return call
}

// response materialises the accumulated frames into a ModelResponse, text
// first (if any), then function calls in the order their first frame
// arrived.
func (a *streamAccumulator) response() *ModelResponse {
	var output []Item
	if text := a.text.String(); text != "" {
		output = append(output, TextItem{Text: text})
	}
	for _, id := range a.callOrder {
		output = append(output, *a.calls[id])
	}
	return &ModelResponse{
		Output:     output,
		Usage:      a.usage,
		ResponseID: a.responseID,
		CreatedAt:  a.createdAt,
		Model:      a.model,
	}
}
