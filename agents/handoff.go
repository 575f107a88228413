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
	"strings"
)

// defaultHandoffParameters is the JSON-Schema shown to the model for a
// handoff's synthetic function tool when the handoff doesn't supply its own.
var defaultHandoffParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"input": map[string]any{"type": "string"},
	},
	"required": []any{"input"},
}

// InputFilter reduces or transforms the conversation the next agent will
// see, e.g. to summarize history rather than forward it verbatim.
type InputFilter func(conversation Conversation, rc RunContext) Conversation

// Handoff registers a target Agent the model may transfer the run to.
// AgentName must be unique among an Agent's Handoffs; the Runner exposes it
// to the model as a synthetic function tool named "handoff_to_<AgentName>"
// (§4.H).
type Handoff struct {
	AgentName   string
	Agent       *Agent
	Description string

	// Parameters overrides the default {input: string} schema shown to the
	// model for this handoff's synthetic tool.
	Parameters map[string]any

	// InputFilter, if set, runs before the target agent sees the
	// conversation, letting a handoff summarize or prune history.
	InputFilter InputFilter
}

func (h Handoff) toolName() string {
	return handoffToolNamePrefix + h.AgentName
}

func (h Handoff) schema() ToolSchema {
	params := h.Parameters
	if params == nil {
		params = defaultHandoffParameters
	}
	desc := h.Description
	if desc == "" {
		desc = fmt.Sprintf("Transfer the conversation to the %s agent.", h.AgentName)
	}
	return ToolSchema{Name: h.toolName(), Description: desc, Parameters: params}
}

// handoffToolDefinitions turns an agent's declared Handoffs into the
// synthetic ToolDefinitions §4.H says must be shown to the model alongside
// its real tools.
func handoffToolDefinitions(handoffs []Handoff) []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(handoffs))
	for _, h := range handoffs {
		s := h.schema()
		defs = append(defs, ToolDefinition{Name: s.Name, Description: s.Description, Parameters: s.Parameters})
	}
	return defs
}

// resolveHandoff implements §4.H's invocation algorithm: locate the target
// by exact name match, run its InputFilter if any, and return the next
// agent plus the conversation it should see. Both the function-call path
// (a "handoff_to_<name>" tool call) and the bare-HandoffItem path route
// through here so a handoff never skips its target's InputFilter regardless
// of which wire shape it arrived in.
func resolveHandoff(
	ctx context.Context,
	rc RunContext,
	current *Agent,
	targetName string,
	conversation Conversation,
) (*Agent, Conversation, error) {
	h, ok := current.handoffByTargetName()[targetName]
	if !ok {
		return nil, nil, &HandoffError{Reason: fmt.Sprintf("no handoff registered for target %q", targetName)}
	}
	if h.Agent == nil {
		return nil, nil, &HandoffError{Reason: fmt.Sprintf("handoff %q has no target agent configured", targetName)}
	}

	filtered := conversation
	if h.InputFilter != nil {
		filtered = h.InputFilter(conversation, rc)
	}
	_ = ctx
	return h.Agent, filtered, nil
}

// firstHandoffCall returns the first function call in calls whose name
// targets a handoff, honouring §4.H's "only the first is honoured" rule
// when a response contains more than one.
func firstHandoffCall(calls []FunctionCallItem) (FunctionCallItem, bool) {
	for _, c := range calls {
		if c.IsHandoffCall() {
			return c, true
		}
	}
	return FunctionCallItem{}, false
}

// SummarizeHandoffHistory is a ready-made InputFilter that collapses the
// conversation into a single user message summarizing each item, instead of
// forwarding the raw transcript to the next agent.
func SummarizeHandoffHistory(conversation Conversation, _ RunContext) Conversation {
	if len(conversation) == 0 {
		return conversation
	}
	var lines []string
	for i, item := range conversation {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, summarizeItem(item)))
	}
	summary := "Conversation so far:\n" + strings.Join(lines, "\n")
	return Conversation{MessageItem{Role: "user", Content: summary}}
}

func summarizeItem(item Item) string {
	switch v := item.(type) {
	case MessageItem:
		return fmt.Sprintf("%s: %s", v.Role, v.Content)
	case TextItem:
		return fmt.Sprintf("assistant: %s", v.Text)
	case FunctionCallItem:
		return fmt.Sprintf("called %s(%s)", v.Name, v.Arguments)
	case FunctionCallOutputItem:
		return fmt.Sprintf("tool result: %s", v.Output)
	default:
		raw, _ := json.Marshal(item)
		return string(raw)
	}
}
