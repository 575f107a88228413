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
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultToolTimeout is the per-call timeout §4.G and §5 specify for tool
// dispatch when an agent/run doesn't override it.
const DefaultToolTimeout = 30 * time.Second

// toolCallResult pairs one function call's outcome with its CallID so the
// dispatcher can reassemble output in the original input order regardless
// of which goroutine finishes first.
type toolCallResult struct {
	callID string
	output string
	err    error
}

// dispatchToolCalls implements component G: it resolves each call's name
// against the agent's tool map, decodes its arguments, and runs every call
// in the batch concurrently, each under its own timeout. It returns one
// FunctionCallOutputItem per input call, in the same order the calls
// appeared, never in completion order (§5's ordering guarantee).
func dispatchToolCalls(
	ctx context.Context,
	rc RunContext,
	tools map[string]Tool,
	calls []FunctionCallItem,
	timeout time.Duration,
) []FunctionCallOutputItem {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	results := make([]toolCallResult, len(calls))

	// A plain (non-WithContext) errgroup: Wait reports the first error, but
	// since each call's deadline is derived from the parent ctx rather than
	// a group-owned one, no call is cancelled because a sibling failed —
	// that isolation is what §4.G's "per-call timeout" guarantee requires.
	var g errgroup.Group
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			output, err := runOneTool(ctx, rc, tools, call, timeout)
			results[i] = toolCallResult{callID: call.CallID, output: output, err: err}
			return nil
		})
	}
	_ = g.Wait()

	outputs := make([]FunctionCallOutputItem, len(results))
	for i, r := range results {
		if r.err != nil {
			outputs[i] = FunctionCallOutputItem{CallID: r.callID, Output: toolErrorOutputJSON(r.err)}
			continue
		}
		outputs[i] = FunctionCallOutputItem{CallID: r.callID, Output: r.output}
	}
	return outputs
}

func runOneTool(
	ctx context.Context,
	rc RunContext,
	tools map[string]Tool,
	call FunctionCallItem,
	timeout time.Duration,
) (output string, err error) {
	tool, ok := tools[call.Name]
	if !ok {
		return "", &ToolExecutionError{ToolName: call.Name, CallID: call.CallID, Reason: fmt.Sprintf("no tool registered for %q", call.Name)}
	}

	args := json.RawMessage(call.Arguments)
	if len(args) == 0 || !json.Valid(args) {
		args = json.RawMessage("{}")
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	readOnly := rc.ReadOnly()

	type outcome struct {
		output string
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr := fmt.Errorf("panic: %v", r)
				if h, ok := tool.(toolErrorHandler); ok {
					out, handledErr := h.HandleError(callCtx, readOnly, panicErr)
					resultCh <- outcome{output: out, err: handledErr}
					return
				}
				resultCh <- outcome{err: panicErr}
			}
		}()
		out, execErr := tool.Execute(callCtx, readOnly, args)
		resultCh <- outcome{output: out, err: execErr}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", &ToolExecutionError{ToolName: call.Name, CallID: call.CallID, Reason: res.err.Error()}
		}
		return res.output, nil
	case <-callCtx.Done():
		return "", &ToolExecutionError{ToolName: call.Name, CallID: call.CallID, Reason: "timeout"}
	}
}

// toolErrorOutputJSON is the function_call_output body the Runner feeds back
// to the model when a tool fails: the error is captured as structured data
// so the model may recover rather than aborting the run (§7's propagation
// policy for ToolExecutionError).
func toolErrorOutputJSON(err error) string {
	encoded, marshalErr := json.Marshal(map[string]any{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"tool execution failed"}`
	}
	return string(encoded)
}
