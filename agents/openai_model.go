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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultStreamTimeout  = 60 * time.Second
	responsesPathFragment = "/responses"
)

// ResponsesModel is the component D adapter: it serialises a ModelRequest to
// the wire shape §6 documents, POSTs it to <base_url>/responses, and
// normalises the reply. It talks to the endpoint with plain net/http and
// encoding/json rather than a versioned client SDK, since the wire contract
// the spec commits to is small and self-contained.
type ResponsesModel struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	// StreamTimeout bounds the whole of one CreateStream call, from the POST
	// to the last SSE frame, before giving up. Zero uses the default (60s).
	StreamTimeout time.Duration
}

// NewResponsesModel builds a ResponsesModel reading OPENAI_API_KEY and
// OPENAI_BASE_URL from the environment when apiKey/baseURL are empty.
func NewResponsesModel(apiKey, baseURL string) *ResponsesModel {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ResponsesModel{
		APIKey:     apiKey,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

type wireToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireTextFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

type wireText struct {
	Format *wireTextFormat `json:"format,omitempty"`
}

type wireRequest struct {
	Model              string           `json:"model"`
	Instructions       string           `json:"instructions,omitempty"`
	Input              []json.RawMessage `json:"input"`
	Tools              []wireTool       `json:"tools,omitempty"`
	Stream             bool             `json:"stream"`
	Temperature        *float64         `json:"temperature,omitempty"`
	TopP               *float64         `json:"top_p,omitempty"`
	ToolChoice         any              `json:"tool_choice,omitempty"`
	ParallelToolCalls  *bool            `json:"parallel_tool_calls,omitempty"`
	Text               *wireText        `json:"text,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
}

func buildWireRequest(req ModelRequest) (*wireRequest, error) {
	input := make([]json.RawMessage, 0, len(req.Input))
	for _, item := range req.Input {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode input item: %w", err)
		}
		input = append(input, raw)
	}

	tools := make([]wireTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	w := &wireRequest{
		Model:              req.Model,
		Instructions:       req.Instructions,
		Input:              input,
		Tools:              tools,
		Stream:             req.Stream,
		Temperature:        req.ModelSettings.Temperature,
		TopP:               req.ModelSettings.TopP,
		ParallelToolCalls:  req.ModelSettings.ParallelToolCalls,
		PreviousResponseID: req.PreviousResponseID,
	}
	if req.ModelSettings.ToolChoice.Function != "" {
		w.ToolChoice = map[string]any{"type": "function", "name": req.ModelSettings.ToolChoice.Function}
	} else if req.ModelSettings.ToolChoice.Mode != "" {
		w.ToolChoice = req.ModelSettings.ToolChoice.Mode
	}
	if req.TextFormat != nil {
		w.Text = &wireText{Format: &wireTextFormat{
			Type:   "json_schema",
			Name:   req.TextFormat.Name,
			Schema: req.TextFormat.Schema,
		}}
	}
	return w, nil
}

// encodeWireRequest marshals wire and, when ModelSettings carries any Extra
// fields, merges them into the resulting object (Extra wins on key
// collisions) so provider-specific parameters the typed wireRequest doesn't
// model still reach the request body verbatim.
func encodeWireRequest(wire *wireRequest, extra map[string]any) ([]byte, error) {
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return body, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(body, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (m *ResponsesModel) endpoint() string {
	return m.BaseURL + responsesPathFragment
}

func (m *ResponsesModel) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.APIKey)
	}
	return httpReq, nil
}

// CreateCompletion performs a single non-streaming POST to <base_url>/responses.
func (m *ResponsesModel) CreateCompletion(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	req.Stream = false
	wire, err := buildWireRequest(req)
	if err != nil {
		return nil, &DecodeError{Underlying: err}
	}
	body, err := encodeWireRequest(wire, req.ModelSettings.Extra)
	if err != nil {
		return nil, &DecodeError{Underlying: err}
	}

	httpReq, err := m.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, &NetworkError{Underlying: err}
	}

	client := m.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Underlying: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Underlying: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var raw map[string]any
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, &DecodeError{Underlying: err}
	}
	return parseResponsesBody(raw)
}

func parseResponsesBody(raw map[string]any) (*ModelResponse, error) {
	out := &ModelResponse{
		ResponseID: stringField(raw, "id"),
		Model:      stringField(raw, "model"),
		CreatedAt:  int64Field(raw, "created_at"),
		Usage:      normalizeUsage(raw),
	}

	outputs, _ := raw["output"].([]any)
	for _, o := range outputs {
		item, ok := o.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(item, "type") {
		case "message":
			out.Output = append(out.Output, MessageItem{
				Role:    stringField(item, "role"),
				Content: extractMessageText(item),
			})
		case "function_call":
			out.Output = append(out.Output, FunctionCallItem{
				CallID:    stringField(item, "call_id"),
				Name:      stringField(item, "name"),
				Arguments: stringField(item, "arguments"),
			})
		case "text":
			out.Output = append(out.Output, TextItem{Text: stringField(item, "text")})
		case "handoff":
			out.Output = append(out.Output, HandoffItem{Target: stringField(item, "target")})
		}
	}
	return out, nil
}

func extractMessageText(item map[string]any) string {
	content, _ := item["content"].([]any)
	var sb strings.Builder
	for _, c := range content {
		part, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if text := stringField(part, "text"); text != "" {
			sb.WriteString(text)
		}
	}
	return sb.String()
}

// CreateStream performs a POST with stream=true and feeds each decoded SSE
// frame to yield as it arrives, in wire order. It returns when the stream
// closes (EOF, the "[DONE]" sentinel, a ctx cancellation, or an error).
func (m *ResponsesModel) CreateStream(ctx context.Context, req ModelRequest, yield WireEventCallback) error {
	req.Stream = true
	wire, err := buildWireRequest(req)
	if err != nil {
		return &DecodeError{Underlying: err}
	}
	body, err := encodeWireRequest(wire, req.ModelSettings.Extra)
	if err != nil {
		return &DecodeError{Underlying: err}
	}

	timeout := m.StreamTimeout
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}
	streamCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := m.newHTTPRequest(streamCtx, body)
	if err != nil {
		return &NetworkError{Underlying: err}
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	client := m.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return &NetworkError{Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return yield(streamCtx, map[string]any{"type": "done"})
		}

		var raw map[string]any
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			// Malformed frames are skipped rather than aborting the whole
			// stream: a single bad frame shouldn't sink an otherwise-good turn.
			continue
		}
		if err := yield(streamCtx, raw); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &NetworkError{Underlying: err}
	}
	return nil
}

var _ Model = (*ResponsesModel)(nil)
