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

import "github.com/riverrun-ai/agentcore/usage"

// NormalizeWireEvent is the pure function component E describes: it maps one
// raw wire event (as decoded from an SSE "data: " line) to the Component C
// variant it represents. An event type with no emitted variant (e.g.
// "response.in_progress") returns (nil, false); the caller must not forward
// anything for it. Any unrecognised type becomes UnknownEvent.
func NormalizeWireEvent(raw map[string]any) (StreamEvent, bool) {
	wireType, _ := raw["type"].(string)

	switch wireType {
	case "response.created":
		resp, _ := raw["response"].(map[string]any)
		return ResponseCreatedEvent{
			ResponseID: stringField(resp, "id"),
			Model:      stringField(resp, "model"),
			CreatedAt:  int64Field(resp, "created_at"),
		}, true

	case "response.in_progress":
		return nil, false

	case "response.output_text.delta":
		return TextDeltaEvent{
			Text:  stringField(raw, "delta"),
			Index: int(int64Field(raw, "content_index")),
		}, true

	case "response.function_call_arguments.delta":
		return FunctionCallArgumentsDeltaEvent{
			CallID:    stringField(raw, "item_id"),
			Arguments: stringField(raw, "delta"),
			Index:     int(int64Field(raw, "output_index")),
		}, true

	case "response.function_call_arguments.done":
		return nil, false

	case "response.output_item.added":
		item, _ := raw["item"].(map[string]any)
		if item == nil || stringField(item, "type") != "function_call" {
			return nil, false
		}
		return ToolCallEvent{
			Name:      stringField(item, "name"),
			CallID:    stringField(item, "id"),
			Arguments: stringField(item, "arguments"),
		}, true

	case "response.output_item.done":
		return nil, false

	case "response.completed", "response.done":
		resp, _ := raw["response"].(map[string]any)
		return ResponseCompletedEvent{Usage: normalizeUsage(resp)}, true

	case "done":
		return StreamCompleteEvent{}, true

	default:
		return UnknownEvent{Raw: raw}, true
	}
}

func normalizeUsage(resp map[string]any) usage.Usage {
	if resp == nil {
		return usage.Usage{}
	}
	u, _ := resp["usage"].(map[string]any)
	if u == nil {
		return usage.Usage{}
	}
	return usage.Usage{
		PromptTokens:     firstPresentInt64(u, "input_tokens", "prompt_tokens"),
		CompletionTokens: firstPresentInt64(u, "output_tokens", "completion_tokens"),
		TotalTokens:      firstPresentInt64(u, "total_tokens"),
	}
}

func firstPresentInt64(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return int64Field(m, k)
		}
	}
	return 0
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func int64Field(m map[string]any, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
