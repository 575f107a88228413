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

// Package agentstesting provides test doubles for driving the turn loop
// without a real model backend.
package agentstesting

import (
	"context"
	"sync"

	"github.com/riverrun-ai/agentcore/agents"
	"github.com/riverrun-ai/agentcore/usage"
)

// FakeModelTurnOutput is one scripted reply a FakeModel hands back for a
// single CreateCompletion/CreateStream call.
type FakeModelTurnOutput struct {
	Output []agents.Item
	Err    error
}

// FakeModelLastTurnArgs captures the ModelRequest a FakeModel received, so
// tests can assert on what the Runner actually sent without a real HTTP
// round-trip.
type FakeModelLastTurnArgs struct {
	Request agents.ModelRequest
}

// FakeModel is a scripted agents.Model: each call to CreateCompletion or
// CreateStream consumes the next queued FakeModelTurnOutput, in order. It
// never talks to a network; tests arrange its queue with SetNextOutput /
// AddMultipleTurnOutputs ahead of a run.
type FakeModel struct {
	mu sync.Mutex

	turnOutputs []FakeModelTurnOutput

	HardcodedUsage *usage.Usage
	ResponseID     string

	LastTurnArgs  FakeModelLastTurnArgs
	FirstTurnArgs *FakeModelLastTurnArgs
}

// NewFakeModel builds a FakeModel, optionally pre-loaded with a single
// scripted reply.
func NewFakeModel(initialOutput *FakeModelTurnOutput) *FakeModel {
	m := &FakeModel{}
	if initialOutput != nil {
		m.turnOutputs = append(m.turnOutputs, *initialOutput)
	}
	return m
}

// SetHardcodedUsage fixes the usage every subsequent reply reports.
func (m *FakeModel) SetHardcodedUsage(u usage.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HardcodedUsage = &u
}

// SetNextOutput appends one scripted reply to the end of the queue.
func (m *FakeModel) SetNextOutput(output FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnOutputs = append(m.turnOutputs, output)
}

// AddMultipleTurnOutputs appends several scripted replies at once.
func (m *FakeModel) AddMultipleTurnOutputs(outputs []FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnOutputs = append(m.turnOutputs, outputs...)
}

func (m *FakeModel) nextOutput() FakeModelTurnOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.turnOutputs) == 0 {
		return FakeModelTurnOutput{}
	}
	out := m.turnOutputs[0]
	m.turnOutputs = m.turnOutputs[1:]
	return out
}

func (m *FakeModel) recordArgs(req agents.ModelRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := FakeModelLastTurnArgs{Request: req}
	m.LastTurnArgs = args
	if m.FirstTurnArgs == nil {
		first := args
		m.FirstTurnArgs = &first
	}
}

// CreateCompletion consumes and returns the next scripted turn output.
func (m *FakeModel) CreateCompletion(ctx context.Context, req agents.ModelRequest) (*agents.ModelResponse, error) {
	m.recordArgs(req)

	output := m.nextOutput()
	if output.Err != nil {
		return nil, output.Err
	}

	u := m.HardcodedUsage
	if u == nil {
		u = &usage.Usage{}
	}
	responseID := m.ResponseID
	if responseID == "" {
		responseID = "fake_response_1"
	}
	return &agents.ModelResponse{
		Output:     output.Output,
		Usage:      *u,
		ResponseID: responseID,
		Model:      "fake-model",
	}, nil
}

// CreateStream replays the next scripted turn output as a sequence of SSE
// frames (response.created, one text delta or output_item.added per item,
// response.completed, then the "done" sentinel), so tests exercising the
// streaming path see the same items a non-streaming call would have produced.
func (m *FakeModel) CreateStream(ctx context.Context, req agents.ModelRequest, yield agents.WireEventCallback) error {
	m.recordArgs(req)

	output := m.nextOutput()
	if output.Err != nil {
		return output.Err
	}

	responseID := m.ResponseID
	if responseID == "" {
		responseID = "fake_response_1"
	}
	if err := yield(ctx, map[string]any{
		"type":     "response.created",
		"response": map[string]any{"id": responseID, "model": "fake-model"},
	}); err != nil {
		return err
	}

	for _, item := range output.Output {
		switch v := item.(type) {
		case agents.TextItem:
			if err := yield(ctx, map[string]any{
				"type":  "response.output_text.delta",
				"delta": v.Text,
			}); err != nil {
				return err
			}
		case agents.FunctionCallItem:
			if err := yield(ctx, map[string]any{
				"type": "response.output_item.added",
				"item": map[string]any{
					"type":      "function_call",
					"id":        v.CallID,
					"name":      v.Name,
					"arguments": v.Arguments,
				},
			}); err != nil {
				return err
			}
		}
	}

	u := m.HardcodedUsage
	if u == nil {
		u = &usage.Usage{}
	}
	snapshot := *u
	if err := yield(ctx, map[string]any{
		"type": "response.completed",
		"response": map[string]any{
			"id":    responseID,
			"model": "fake-model",
			"usage": map[string]any{
				"input_tokens":  snapshot.PromptTokens,
				"output_tokens": snapshot.CompletionTokens,
				"total_tokens":  snapshot.TotalTokens,
			},
		},
	}); err != nil {
		return err
	}

	return yield(ctx, map[string]any{"type": "done"})
}

var _ agents.Model = (*FakeModel)(nil)
