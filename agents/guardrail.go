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

// GuardrailResult is the {:ok, ...} | {:error, reason, meta} union a
// validator returns. A zero value (Err == nil) means the input/output was
// allowed through unchanged.
type GuardrailResult struct {
	// Err, when non-nil, aborts the run with GuardrailTriggeredError or
	// OutputGuardrailTriggeredError (the caller wraps it with the
	// guardrail's name).
	Err error
	// Meta carries diagnostic detail about the check that was performed,
	// whether it passed or failed.
	Meta map[string]any
	// TransformedOutput, set only by an output guardrail, replaces the
	// current output for every guardrail later in the pipeline.
	TransformedOutput string
}

// Allow is shorthand for a guardrail result with no objection.
func Allow(meta map[string]any) GuardrailResult { return GuardrailResult{Meta: meta} }

// Reject is shorthand for a guardrail result that aborts the run.
func Reject(reason string, meta map[string]any) GuardrailResult {
	return GuardrailResult{Err: fmt.Errorf("%s", reason), Meta: meta}
}

// InputGuardrailFunc validates a turn's input before the model is called.
type InputGuardrailFunc func(ctx context.Context, rc RunContext, input Conversation) (GuardrailResult, error)

// InputGuardrail pairs a validator with the name the engine reports it
// under when it trips.
type InputGuardrail struct {
	Name     string
	Validate InputGuardrailFunc
}

// OutputGuardrailFunc validates the run's would-be final text output. It may
// return a transformed replacement via GuardrailResult.TransformedOutput,
// which subsequent guardrails in the pipeline see instead of the original.
type OutputGuardrailFunc func(ctx context.Context, rc RunContext, output string) (GuardrailResult, error)

// OutputGuardrail pairs a validator with its reporting name.
type OutputGuardrail struct {
	Name     string
	Validate OutputGuardrailFunc
}

// runInputGuardrails executes each guardrail in order and returns the first
// failure, turning an uncaught panic inside a guardrail into a failure of
// that guardrail (per §4.I's last paragraph) rather than crashing the run.
func runInputGuardrails(ctx context.Context, rc RunContext, guardrails []InputGuardrail, input Conversation) error {
	for _, g := range guardrails {
		result, err := invokeInputGuardrail(ctx, rc, g, input)
		if err != nil {
			return &GuardrailTriggeredError{GuardrailName: guardrailName(g.Name), Reason: err.Error(), Meta: result.Meta}
		}
		if result.Err != nil {
			return &GuardrailTriggeredError{GuardrailName: guardrailName(g.Name), Reason: result.Err.Error(), Meta: result.Meta}
		}
	}
	return nil
}

func invokeInputGuardrail(ctx context.Context, rc RunContext, g InputGuardrail, input Conversation) (result GuardrailResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("guardrail %q panicked: %v", guardrailName(g.Name), r)
		}
	}()
	return g.Validate(ctx, rc, input)
}

// runOutputGuardrails threads output through each guardrail's possible
// transformation and returns the first failure, or the (possibly
// transformed) final output.
func runOutputGuardrails(ctx context.Context, rc RunContext, guardrails []OutputGuardrail, output string) (string, error) {
	current := output
	for _, g := range guardrails {
		result, err := invokeOutputGuardrail(ctx, rc, g, current)
		if err != nil {
			return "", &OutputGuardrailTriggeredError{GuardrailName: guardrailName(g.Name), Reason: err.Error(), Meta: result.Meta, Output: current}
		}
		if result.Err != nil {
			return "", &OutputGuardrailTriggeredError{GuardrailName: guardrailName(g.Name), Reason: result.Err.Error(), Meta: result.Meta, Output: current}
		}
		if result.TransformedOutput != "" {
			current = result.TransformedOutput
		}
	}
	return current, nil
}

func invokeOutputGuardrail(ctx context.Context, rc RunContext, g OutputGuardrail, output string) (result GuardrailResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("guardrail %q panicked: %v", guardrailName(g.Name), r)
		}
	}()
	return g.Validate(ctx, rc, output)
}

func guardrailName(name string) string {
	if name == "" {
		return "guardrail"
	}
	return name
}
