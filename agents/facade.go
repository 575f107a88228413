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

import "context"

// Run is the package's synchronous entrypoint: it drives startingAgent
// against input to completion (a final text output, a guardrail trip, or an
// error) using config, and blocks until one of those happens.
//
// rc may be nil, in which case a context carrying no caller value is
// created for the run.
func Run(ctx context.Context, startingAgent *Agent, input Input, rc RunContext, config RunConfig) (*RunResult, error) {
	return NewRunner(config).Run(ctx, startingAgent, input, rc)
}

// RunStreamed starts startingAgent against input on a background goroutine
// and returns a StreamBuffer the caller drains for StreamEvents as they
// arrive, plus a channel that receives exactly one RunResult (or error)
// once the run terminates.
//
// The returned StreamBuffer enforces a single reader: callers should drain
// it via its Seq iterator or repeated Next calls from one goroutine.
func RunStreamed(ctx context.Context, startingAgent *Agent, input Input, rc RunContext, config RunConfig) (*StreamBuffer, <-chan RunOutcome) {
	runner := NewRunner(config)
	buf, outcome := runner.RunStreamed(ctx, startingAgent, input, rc)
	wrapped := make(chan RunOutcome, 1)
	go func() {
		o := <-outcome
		wrapped <- RunOutcome{Result: o.result, Err: o.err}
	}()
	return buf, wrapped
}

// RunOutcome is the terminal value RunStreamed delivers once its StreamBuffer
// completes.
type RunOutcome struct {
	Result *RunResult
	Err    error
}
