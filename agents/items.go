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
	"encoding/json"
	"fmt"
	"strings"
)

// ItemType tags the variants of a conversation Item the engine recognises.
type ItemType string

const (
	ItemTypeMessage            ItemType = "message"
	ItemTypeText               ItemType = "text"
	ItemTypeFunctionCall       ItemType = "function_call"
	ItemTypeFunctionCallOutput ItemType = "function_call_output"
	ItemTypeHandoff            ItemType = "handoff"
)

// Item is one element of a Conversation. Items are appended only; the engine
// never mutates one in place.
type Item interface {
	ItemType() ItemType
}

// MessageItem is user or assistant text input fed to the model.
type MessageItem struct {
	Role    string // "user", "assistant", or "system"
	Content string
}

func (MessageItem) ItemType() ItemType { return ItemTypeMessage }

func (m MessageItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Type: string(ItemTypeMessage), Role: m.Role, Content: m.Content})
}

// TextItem is normalised assistant text output.
type TextItem struct {
	Text string
}

func (TextItem) ItemType() ItemType { return ItemTypeText }

func (t TextItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: string(ItemTypeText), Text: t.Text})
}

// FunctionCallItem is a model request to invoke a local tool (or, when Name
// has the "handoff_to_" prefix, to hand the run off to another agent).
type FunctionCallItem struct {
	CallID    string
	Name      string
	Arguments string // JSON-encoded
}

func (FunctionCallItem) ItemType() ItemType { return ItemTypeFunctionCall }

const handoffToolNamePrefix = "handoff_to_"

// IsHandoffCall reports whether this call targets a synthetic handoff tool.
func (f FunctionCallItem) IsHandoffCall() bool {
	return strings.HasPrefix(f.Name, handoffToolNamePrefix)
}

// HandoffTargetName strips the synthetic prefix from a handoff call's name.
func (f FunctionCallItem) HandoffTargetName() string {
	return strings.TrimPrefix(f.Name, handoffToolNamePrefix)
}

func (f FunctionCallItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		CallID    string `json:"call_id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}{Type: string(ItemTypeFunctionCall), CallID: f.CallID, Name: f.Name, Arguments: f.Arguments})
}

// FunctionCallOutputItem is the engine's reply to a FunctionCallItem. It must
// reference a call_id that appears earlier in the same Conversation.
type FunctionCallOutputItem struct {
	CallID string
	Output string // JSON-encoded
}

func (FunctionCallOutputItem) ItemType() ItemType { return ItemTypeFunctionCallOutput }

func (f FunctionCallOutputItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Output string `json:"output"`
	}{Type: string(ItemTypeFunctionCallOutput), CallID: f.CallID, Output: f.Output})
}

// HandoffItem names a handoff target directly, bypassing the synthetic
// function-call-tool mechanism. Rare: handoffs usually arrive from the model
// as a FunctionCallItem with the "handoff_to_" prefix.
type HandoffItem struct {
	Target string
}

func (HandoffItem) ItemType() ItemType { return ItemTypeHandoff }

func (h HandoffItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Target string `json:"target"`
	}{Type: string(ItemTypeHandoff), Target: h.Target})
}

// Conversation is the ordered sequence of items sent to, and produced by, the model.
type Conversation []Item

// Clone returns a shallow copy whose backing array is independent of c, so
// appends by one turn never alias another's slice.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// UserMessage wraps free text as a single user message item.
func UserMessage(text string) Item {
	return MessageItem{Role: "user", Content: text}
}

// Input is the value accepted by Run/RunStreamed: either a plain string
// (wrapped as a single user message) or an already-built Conversation.
type Input interface {
	toConversation() Conversation
}

// InputString wraps a plain-text user turn.
type InputString string

func (s InputString) toConversation() Conversation {
	return Conversation{UserMessage(string(s))}
}

// InputItems passes a pre-built conversation through verbatim.
type InputItems Conversation

func (items InputItems) toConversation() Conversation {
	return Conversation(items).Clone()
}

// ValidateFunctionCallOutputOrdering checks the invariant from §8: every
// FunctionCallOutputItem must be preceded by exactly one FunctionCallItem
// sharing its CallID.
func ValidateFunctionCallOutputOrdering(conversation Conversation) error {
	seenCalls := make(map[string]int)
	for _, item := range conversation {
		switch v := item.(type) {
		case FunctionCallItem:
			seenCalls[v.CallID]++
		case FunctionCallOutputItem:
			if seenCalls[v.CallID] != 1 {
				return fmt.Errorf("function_call_output for call_id %q is not preceded by exactly one function_call", v.CallID)
			}
		}
	}
	return nil
}
