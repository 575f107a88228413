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
)

// InstructionsGetter is satisfied by anything that can resolve an Agent's
// system instructions against a run's context. rc is the Context holder
// (component B); a is the agent instructions are being resolved for.
type InstructionsGetter interface {
	GetInstructions(ctx context.Context, rc RunContext, a *Agent) (string, error)
}

// InstructionsStr satisfies InstructionsGetter with a constant string.
type InstructionsStr string

func (s InstructionsStr) GetInstructions(context.Context, RunContext, *Agent) (string, error) {
	return string(s), nil
}

// InstructionsFunc lets an agent generate instructions dynamically. The 1-
// and 2-argument forms accepted by InstructionsFromAny are adapted to this
// shape before the Runner ever sees them.
type InstructionsFunc func(ctx context.Context, rc RunContext, a *Agent) (string, error)

func (fn InstructionsFunc) GetInstructions(ctx context.Context, rc RunContext, a *Agent) (string, error) {
	return fn(ctx, rc, a)
}

// InstructionsFromAny converts a supported Agent.Instructions value into an
// InstructionsGetter. Supported inputs: nil, string, InstructionsGetter, or
// a function matching one of:
//
//	func(context.Context, RunContext, *Agent) (string, error)
//	func(context.Context, RunContext) (string, error)
//	func(RunContext) string
//
// The first also receives the agent (the "(context, agent)" shape from
// §4.K); the last two receive only the run context (the "instructions is a
// function context -> string" shape).
func InstructionsFromAny(value any) (InstructionsGetter, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case InstructionsGetter:
		return v, nil
	case string:
		return InstructionsStr(v), nil
	case InstructionsFunc:
		return v, nil
	case func(context.Context, RunContext, *Agent) (string, error):
		return InstructionsFunc(v), nil
	case func(context.Context, RunContext) (string, error):
		return InstructionsFunc(func(ctx context.Context, rc RunContext, _ *Agent) (string, error) {
			return v(ctx, rc)
		}), nil
	case func(RunContext) string:
		return InstructionsFunc(func(_ context.Context, rc RunContext, _ *Agent) (string, error) {
			return v(rc), nil
		}), nil
	}
	return nil, fmt.Errorf("agent instructions must be a string, callable, or nil; got %T", value)
}
