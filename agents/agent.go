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
)

// RunContext is the context holder (component B) threaded through every
// callback a run invokes: instructions resolution, tool execution,
// guardrails, handoff input filters, and lifecycle hooks. The engine treats
// Value as opaque, read-only data; it only ever writes through Usage and the
// metadata accessors.
type RunContext = *ContextWrapper[any]

// RunContextReadOnly is the projection of RunContext handed to tools: it
// carries the same Value and a point-in-time Usage snapshot, but exposes no
// way to mutate usage or metadata directly (§4.B, "tools receive a read-only
// view").
type RunContextReadOnly = ReadOnlyView[any]

// OutputSchema describes a user-declared JSON-Schema shape the final text
// output must conform to. The engine forwards Schema verbatim in the
// request's text.format block; it never parses or validates the model's
// reply against it (structured-output parsing is explicitly out of scope).
type OutputSchema interface {
	// SchemaName returns a stable identifier; the wire request uses its last
	// dotted component as the text.format "name" field.
	SchemaName() string
	// JSONSchema returns the JSON-Schema object describing the output shape.
	JSONSchema() map[string]any
}

// OnStartHook runs once per agent activation, before the first model call of
// that agent's portion of a run (including after a handoff re-targets the
// loop). A returned error terminates the run.
type OnStartHook func(ctx context.Context, rc RunContext, a *Agent) error

// Agent is a named, configured personality the Runner drives through model
// calls. It is read-only from the Runner's perspective once a run starts:
// Clone gives callers an independent copy to adjust between runs.
type Agent struct {
	Name string

	// Instructions is either a plain string, an InstructionsGetter, or a
	// function convertible via InstructionsFromAny. Nil means no system
	// instructions are sent.
	Instructions any

	// Model, if empty, is passed to the Runner's ModelProvider as the empty
	// name, and the request is sent with the model name "gpt-4o".
	Model         string
	ModelSettings modelsettings.ModelSettings

	Tools    []Tool
	Handoffs []Handoff

	InputGuardrails  []InputGuardrail
	OutputGuardrails []OutputGuardrail

	OutputSchema OutputSchema

	OnStart OnStartHook
}

// Validate checks the invariants §3 places on an agent configuration before
// a run may begin.
func (a *Agent) Validate() error {
	if a == nil {
		return &InvalidConfigError{Field: "agent", Reason: "nil"}
	}
	if a.Name == "" {
		return &InvalidConfigError{Field: "name", Reason: "must be a non-empty string"}
	}
	if _, err := InstructionsFromAny(a.Instructions); err != nil {
		return &InvalidConfigError{Field: "instructions", Reason: err.Error()}
	}
	seen := make(map[string]struct{}, len(a.Tools))
	for _, t := range a.Tools {
		name := t.Schema().Name
		if _, dup := seen[name]; dup {
			return &InvalidConfigError{Field: "tools", Reason: fmt.Sprintf("duplicate tool name %q", name)}
		}
		seen[name] = struct{}{}
	}
	seenHandoffs := make(map[string]struct{}, len(a.Handoffs))
	for _, h := range a.Handoffs {
		if h.AgentName == "" {
			return &InvalidConfigError{Field: "handoffs", Reason: "handoff target name must be non-empty"}
		}
		if _, dup := seenHandoffs[h.AgentName]; dup {
			return &InvalidConfigError{Field: "handoffs", Reason: fmt.Sprintf("duplicate handoff target %q", h.AgentName)}
		}
		seenHandoffs[h.AgentName] = struct{}{}
	}
	return nil
}

// Clone returns a shallow copy of a. Slice fields are copied so appending to
// one agent's Tools/Handoffs/guardrails never mutates another's.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Tools = append([]Tool(nil), a.Tools...)
	clone.Handoffs = append([]Handoff(nil), a.Handoffs...)
	clone.InputGuardrails = append([]InputGuardrail(nil), a.InputGuardrails...)
	clone.OutputGuardrails = append([]OutputGuardrail(nil), a.OutputGuardrails...)
	return &clone
}

// ResolveInstructions evaluates a.Instructions against rc, per the
// ResolveInstructions state in §4.K. A nil Instructions value resolves to "".
func (a *Agent) ResolveInstructions(ctx context.Context, rc RunContext) (string, error) {
	getter, err := InstructionsFromAny(a.Instructions)
	if err != nil {
		return "", &InvalidConfigError{Field: "instructions", Reason: err.Error()}
	}
	if getter == nil {
		return "", nil
	}
	return getter.GetInstructions(ctx, rc, a)
}

// toolByName builds the {name -> tool} map the dispatcher (component G)
// consults once per turn.
func (a *Agent) toolByName() map[string]Tool {
	m := make(map[string]Tool, len(a.Tools))
	for _, t := range a.Tools {
		m[t.Schema().Name] = t
	}
	return m
}

// handoffByTargetName builds the lookup the handoff resolver (component H)
// uses to match a synthetic "handoff_to_<name>" call back to its Handoff.
func (a *Agent) handoffByTargetName() map[string]Handoff {
	m := make(map[string]Handoff, len(a.Handoffs))
	for _, h := range a.Handoffs {
		m[h.AgentName] = h
	}
	return m
}
