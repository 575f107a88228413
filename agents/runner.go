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
	"log/slog"
	"time"

	"github.com/riverrun-ai/agentcore/modelsettings"
	"github.com/riverrun-ai/agentcore/tracing"
	"github.com/riverrun-ai/agentcore/usage"
)

// DefaultMaxTurns is the loop bound §4.K assigns when RunConfig.MaxTurns is
// left at zero.
const DefaultMaxTurns uint64 = 10

// DefaultRunTimeout bounds a synchronous Run call end to end; it has no
// equivalent for streaming runs, which are only bounded per-HTTP-request
// (§4.K's numeric & edge semantics).
const DefaultRunTimeout = 60 * time.Second

// RunConfig collects the knobs a Run/RunStreamed call needs beyond the
// starting agent and input: where to resolve models, how many turns to
// allow, and the tracing side-channel.
type RunConfig struct {
	ModelProvider ModelProvider
	// ModelSettings, when non-zero, is merged over each agent's own
	// ModelSettings (RunConfig settings win on a field-by-field basis,
	// mirroring modelsettings.Merge's base/override contract).
	ModelSettings modelsettings.ModelSettings

	// MaxTurns bounds the turn loop (§4.K). Zero is treated as "unset" and
	// filled in with DefaultMaxTurns by withDefaults, following Go's
	// zero-value idiom rather than rejecting the value outright.
	MaxTurns    uint64
	RunTimeout  time.Duration
	ToolTimeout time.Duration

	TracingHooks tracing.Hooks
	TraceGroupID string

	Logger *slog.Logger
}

func (c RunConfig) withDefaults() RunConfig {
	if c.MaxTurns == 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.TracingHooks == nil {
		c.TracingHooks = tracing.DefaultHooks{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// RunResult is what a successful Run/RunStreamed call produces (§3's Run
// state, collapsed to the caller-visible fields once the Runner terminates).
type RunResult struct {
	Output       string
	Conversation Conversation
	Usage        usage.Usage
	TraceID      string
	ResponseID   string
	Duration     time.Duration
	LastAgent    *Agent

	// Metadata is a deep copy of whatever the run's Context accumulated via
	// SetMetadata, safe to read and mutate without racing a tool or hook that
	// still holds the live ContextWrapper.
	Metadata map[string]any
}

// runState is owned exclusively by the Runner for the lifetime of one
// Run/RunStreamed call (§3's "Run state").
type runState struct {
	agent        *Agent
	rc           RunContext
	conversation Conversation
	turn         uint64
	traceID      string
	responseID   string
	stream       *StreamBuffer
	usage        *usage.Accumulator
	startedAt    time.Time
}

// Runner drives the turn loop described by §4.K. One Runner instance
// services exactly one run, start to finish; config is shared, read-only
// state the Runner never mutates.
type Runner struct {
	config RunConfig
}

// NewRunner builds a Runner with defaults filled in for any zero-valued
// RunConfig field.
func NewRunner(config RunConfig) *Runner {
	return &Runner{config: config.withDefaults()}
}

// Run executes startingAgent against input synchronously, blocking the
// caller up to config.RunTimeout.
func (r *Runner) Run(ctx context.Context, startingAgent *Agent, input Input, rc RunContext) (*RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.RunTimeout)
	defer cancel()
	return r.runLoop(ctx, startingAgent, input, rc, nil)
}

// RunStreamed starts the turn loop on a background goroutine and returns a
// StreamBuffer the caller drains for StreamEvents; the final RunResult (or
// error) arrives on the returned channel once the buffer completes.
func (r *Runner) RunStreamed(ctx context.Context, startingAgent *Agent, input Input, rc RunContext) (*StreamBuffer, <-chan runOutcome) {
	buf := NewStreamBuffer()
	outcome := make(chan runOutcome, 1)
	go func() {
		result, err := r.runLoop(ctx, startingAgent, input, rc, buf)
		outcome <- runOutcome{result: result, err: err}
	}()
	return buf, outcome
}

type runOutcome struct {
	result *RunResult
	err    error
}

func (r *Runner) runLoop(
	ctx context.Context,
	startingAgent *Agent,
	input Input,
	rc RunContext,
	stream *StreamBuffer,
) (*RunResult, error) {
	if err := startingAgent.Validate(); err != nil {
		if stream != nil {
			stream.Complete()
		}
		return nil, err
	}
	if rc == nil {
		rc = NewContext[any](nil)
	}

	st := &runState{
		agent:        startingAgent,
		rc:           rc,
		conversation: input.toConversation(),
		traceID:      tracing.NewTraceID(),
		stream:       stream,
		usage:        usage.NewAccumulator(),
		startedAt:    time.Now(),
	}

	trace := r.config.TracingHooks.StartTrace(ctx, startingAgent.Name, st.conversation, r.config.TraceGroupID, nil)
	st.traceID = trace.ID()
	defer r.config.TracingHooks.EndTrace(ctx, trace, nil)

	result, err := r.drive(ctx, st, trace)

	if stream != nil {
		stream.Complete()
	}
	if err != nil {
		r.config.TracingHooks.EndTrace(ctx, trace, err)
		return nil, err
	}
	return result, nil
}

// drive runs the CheckTurnLimit -> OnStart -> ResolveInstructions ->
// InputGuardrails -> ModelCall -> Classify state machine of §4.K until it
// terminates.
func (r *Runner) drive(ctx context.Context, st *runState, trace tracing.Trace) (*RunResult, error) {
	activatedAgent := (*Agent)(nil)

	for {
		if st.turn >= r.config.MaxTurns {
			return nil, &MaxTurnsExceededError{Turns: st.turn}
		}

		if activatedAgent != st.agent {
			if st.agent.OnStart != nil {
				if err := st.agent.OnStart(ctx, st.rc, st.agent); err != nil {
					return nil, fmt.Errorf("agent %q on_start: %w", st.agent.Name, err)
				}
			}
			activatedAgent = st.agent
		}

		instructions, err := st.agent.ResolveInstructions(ctx, st.rc)
		if err != nil {
			return nil, err
		}

		if err := runInputGuardrails(ctx, st.rc, st.agent.InputGuardrails, st.conversation); err != nil {
			return nil, err
		}

		response, err := r.callModel(ctx, st, instructions, trace)
		if err != nil {
			return nil, err
		}
		st.usage.Add(&response.Usage)
		st.rc.UpdateUsage(&response.Usage)
		if response.ResponseID != "" {
			st.responseID = response.ResponseID
		}

		text, calls, handoffItems := classifyOutput(response.Output)

		switch {
		case len(calls) == 0 && len(handoffItems) == 0:
			if text == "" {
				return nil, &UnexpectedResponseError{Message: "model returned no text, function calls, or handoff"}
			}
			finalOutput, err := runOutputGuardrails(ctx, st.rc, st.agent.OutputGuardrails, text)
			if err != nil {
				return nil, err
			}
			return &RunResult{
				Output:       finalOutput,
				Conversation: st.conversation,
				Usage:        st.usage.Snapshot(),
				TraceID:      st.traceID,
				ResponseID:   st.responseID,
				Duration:     time.Since(st.startedAt),
				LastAgent:    st.agent,
				Metadata:     st.rc.MetadataSnapshot(),
			}, nil

		case len(calls) > 0:
			handoffCall, isHandoff := firstHandoffCall(calls)
			if isHandoff {
				if err := r.performHandoff(ctx, st, handoffCall, trace); err != nil {
					return nil, err
				}
				continue // turn resets to 0 inside performHandoff; don't increment below.
			}
			r.performToolDispatch(ctx, st, calls, trace)
			st.turn++
			continue

		default: // handoff items with no function calls
			nextAgent, filteredConversation, err := resolveHandoff(ctx, st.rc, st.agent, handoffItems[0].Target, st.conversation)
			if err != nil {
				return nil, err
			}
			st.agent = nextAgent
			st.conversation = filteredConversation
			st.turn = 0
			continue
		}
	}
}

// classifyOutput partitions a response's output items the way §4.K's
// Classify state requires: concatenated text, all function calls (regular
// and "handoff_to_" ones alike), and bare handoff items, in the order they
// appeared.
func classifyOutput(output []Item) (text string, calls []FunctionCallItem, handoffs []HandoffItem) {
	for _, item := range output {
		switch v := item.(type) {
		case TextItem:
			text += v.Text
		case MessageItem:
			if v.Role == "assistant" {
				text += v.Content
			}
		case FunctionCallItem:
			calls = append(calls, v)
		case HandoffItem:
			handoffs = append(handoffs, v)
		}
	}
	return text, calls, handoffs
}

func (r *Runner) performToolDispatch(ctx context.Context, st *runState, calls []FunctionCallItem, trace tracing.Trace) {
	span := r.config.TracingHooks.RecordSpan(ctx, trace, tracing.SpanTypeTool, map[string]any{"calls": len(calls)})
	defer r.config.TracingHooks.EndSpan(ctx, span, nil)

	for _, c := range calls {
		st.conversation = append(st.conversation, c)
	}
	outputs := dispatchToolCalls(ctx, st.rc, st.agent.toolByName(), calls, r.config.ToolTimeout)
	for _, o := range outputs {
		st.conversation = append(st.conversation, o)
	}
}

func (r *Runner) performHandoff(ctx context.Context, st *runState, call FunctionCallItem, trace tracing.Trace) error {
	span := r.config.TracingHooks.RecordSpan(ctx, trace, tracing.SpanTypeHandoff, map[string]any{"target": call.HandoffTargetName()})
	defer r.config.TracingHooks.EndSpan(ctx, span, nil)

	st.conversation = append(st.conversation, call)
	st.conversation = append(st.conversation, FunctionCallOutputItem{
		CallID: call.CallID,
		Output: fmt.Sprintf(`{"assistant":"transferred to %s"}`, call.HandoffTargetName()),
	})

	nextAgent, filteredConversation, err := resolveHandoff(ctx, st.rc, st.agent, call.HandoffTargetName(), st.conversation)
	if err != nil {
		return err
	}
	st.agent = nextAgent
	st.conversation = filteredConversation
	st.turn = 0
	return nil
}

// callModel builds the turn's ModelRequest and either calls the model
// synchronously or, when st.stream is set, drives CreateStream and folds
// every frame into both the stream buffer (via the Component E normaliser)
// and an accumulated ModelResponse.
func (r *Runner) callModel(ctx context.Context, st *runState, instructions string, trace tracing.Trace) (*ModelResponse, error) {
	model, err := r.resolveModel(st.agent)
	if err != nil {
		return nil, err
	}

	tools := make([]ToolDefinition, 0, len(st.agent.Tools))
	for _, t := range st.agent.Tools {
		s := t.Schema()
		tools = append(tools, ToolDefinition{Name: s.Name, Description: s.Description, Parameters: s.Parameters})
	}
	tools = append(tools, handoffToolDefinitions(st.agent.Handoffs)...)

	req := ModelRequest{
		Model:         resolveModelName(st.agent.Model),
		Instructions:  instructions,
		Input:         st.conversation,
		Tools:         tools,
		ModelSettings: modelsettings.Merge(st.agent.ModelSettings, r.config.ModelSettings),
	}
	if st.agent.OutputSchema != nil {
		req.TextFormat = &TextFormat{Name: schemaShortName(st.agent.OutputSchema.SchemaName()), Schema: st.agent.OutputSchema.JSONSchema()}
	}

	genSpan := r.config.TracingHooks.RecordSpan(ctx, trace, tracing.SpanTypeGeneration, map[string]any{"model": req.Model})
	defer r.config.TracingHooks.EndSpan(ctx, genSpan, nil)

	if st.stream == nil {
		return model.CreateCompletion(ctx, req)
	}
	return r.callModelStreaming(ctx, st, model, req)
}

func resolveModelName(name string) string {
	if name == "" {
		return "gpt-4o"
	}
	return name
}

func schemaShortName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

func (r *Runner) resolveModel(agent *Agent) (Model, error) {
	if r.config.ModelProvider == nil {
		return nil, &InvalidConfigError{Field: "model_provider", Reason: "no ModelProvider configured"}
	}
	return r.config.ModelProvider.GetModel(agent.Model)
}

// callModelStreaming implements the streaming half of ModelCall (§4.K): it
// forwards every SSE frame to the stream buffer via the Component E
// normaliser while folding output_item/function_call_arguments deltas into
// an accumulated ModelResponse, which it returns as the turn's result. It
// executes no tools itself: function calls in the accumulated response are
// dispatched locally by drive, as for a non-streaming turn.
func (r *Runner) callModelStreaming(ctx context.Context, st *runState, model Model, req ModelRequest) (*ModelResponse, error) {
	req.Stream = true
	acc := newStreamAccumulator()

	err := model.CreateStream(ctx, req, func(ctx context.Context, raw map[string]any) error {
		event, ok := NormalizeWireEvent(raw)
		if !ok {
			return nil
		}
		if err := st.stream.Emit(event); err != nil {
			return err
		}
		acc.apply(event)
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := acc.response()
	return response, nil
}
