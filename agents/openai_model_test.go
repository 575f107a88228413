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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompletionParsesOutputItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["stream"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "resp_abc",
			"model":      "gpt-4.1",
			"created_at": 42,
			"usage":      map[string]any{"input_tokens": 5, "output_tokens": 2, "total_tokens": 7},
			"output": []map[string]any{
				{"type": "function_call", "call_id": "call_1", "name": "add", "arguments": `{"a":1}`},
			},
		})
	}))
	defer server.Close()

	model := NewResponsesModel("test-key", server.URL)
	resp, err := model.CreateCompletion(context.Background(), ModelRequest{
		Model: "gpt-4.1",
		Input: Conversation{UserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "resp_abc", resp.ResponseID)
	assert.Equal(t, int64(7), resp.Usage.TotalTokens)
	require.Len(t, resp.Output, 1)
	call, ok := resp.Output[0].(FunctionCallItem)
	require.True(t, ok)
	assert.Equal(t, "add", call.Name)
}

func TestCreateCompletionNonOKBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	model := NewResponsesModel("test-key", server.URL)
	_, err := model.CreateCompletion(context.Background(), ModelRequest{Model: "gpt-4.1"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestCreateStreamYieldsFramesAndStopsAtDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		frames := []string{
			`{"type":"response.created","response":{"id":"resp_1"}}`,
			`{"type":"response.output_text.delta","delta":"hi"}`,
			`not json`,
			`{"type":"response.completed","response":{}}`,
		}
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}))
	defer server.Close()

	model := NewResponsesModel("test-key", server.URL)
	var types []string
	err := model.CreateStream(context.Background(), ModelRequest{Model: "gpt-4.1"}, func(ctx context.Context, raw map[string]any) error {
		types = append(types, raw["type"].(string))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"response.created", "response.output_text.delta", "response.completed", "done"}, types)
}
