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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWireEventTable(t *testing.T) {
	t.Run("response.created", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{
			"type":     "response.created",
			"response": map[string]any{"id": "resp_1", "model": "gpt-4.1", "created_at": float64(123)},
		})
		require.True(t, ok)
		assert.Equal(t, ResponseCreatedEvent{ResponseID: "resp_1", Model: "gpt-4.1", CreatedAt: 123}, event)
	})

	t.Run("response.in_progress is suppressed", func(t *testing.T) {
		_, ok := NormalizeWireEvent(map[string]any{"type": "response.in_progress"})
		assert.False(t, ok)
	})

	t.Run("response.output_text.delta", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{
			"type": "response.output_text.delta", "delta": "hi", "content_index": float64(0),
		})
		require.True(t, ok)
		assert.Equal(t, TextDeltaEvent{Text: "hi", Index: 0}, event)
	})

	t.Run("response.function_call_arguments.delta", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{
			"type": "response.function_call_arguments.delta", "delta": "{\"a\":", "item_id": "c1", "output_index": float64(2),
		})
		require.True(t, ok)
		assert.Equal(t, FunctionCallArgumentsDeltaEvent{CallID: "c1", Arguments: "{\"a\":", Index: 2}, event)
	})

	t.Run("response.function_call_arguments.done is suppressed", func(t *testing.T) {
		_, ok := NormalizeWireEvent(map[string]any{"type": "response.function_call_arguments.done"})
		assert.False(t, ok)
	})

	t.Run("response.output_item.added function_call", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{
			"type": "response.output_item.added",
			"item": map[string]any{"type": "function_call", "id": "c1", "name": "add", "arguments": "{}"},
		})
		require.True(t, ok)
		assert.Equal(t, ToolCallEvent{Name: "add", CallID: "c1", Arguments: "{}"}, event)
	})

	t.Run("response.output_item.added non function_call is suppressed", func(t *testing.T) {
		_, ok := NormalizeWireEvent(map[string]any{
			"type": "response.output_item.added",
			"item": map[string]any{"type": "message"},
		})
		assert.False(t, ok)
	})

	t.Run("response.output_item.done is suppressed", func(t *testing.T) {
		_, ok := NormalizeWireEvent(map[string]any{"type": "response.output_item.done"})
		assert.False(t, ok)
	})

	t.Run("response.completed maps input/output token usage", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{
			"type": "response.completed",
			"response": map[string]any{
				"usage": map[string]any{"input_tokens": float64(3), "output_tokens": float64(1), "total_tokens": float64(4)},
			},
		})
		require.True(t, ok)
		completed := event.(ResponseCompletedEvent)
		assert.Equal(t, int64(3), completed.Usage.PromptTokens)
		assert.Equal(t, int64(1), completed.Usage.CompletionTokens)
		assert.Equal(t, int64(4), completed.Usage.TotalTokens)
	})

	t.Run("response.done behaves like response.completed", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{"type": "response.done", "response": map[string]any{}})
		require.True(t, ok)
		assert.Equal(t, StreamEventResponseCompleted, event.Kind())
	})

	t.Run("done sentinel", func(t *testing.T) {
		event, ok := NormalizeWireEvent(map[string]any{"type": "done"})
		require.True(t, ok)
		assert.Equal(t, StreamCompleteEvent{}, event)
	})

	t.Run("unrecognised type becomes Unknown", func(t *testing.T) {
		raw := map[string]any{"type": "response.something_new", "x": 1}
		event, ok := NormalizeWireEvent(raw)
		require.True(t, ok)
		assert.Equal(t, UnknownEvent{Raw: raw}, event)
	})
}
