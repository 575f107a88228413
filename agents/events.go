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

import "github.com/riverrun-ai/agentcore/usage"

// StreamEventKind tags the closed set of variants a consumer may observe.
// Any wire event type this package doesn't recognise normalises to Unknown
// rather than being dropped.
type StreamEventKind string

const (
	StreamEventResponseCreated   StreamEventKind = "response_created"
	StreamEventTextDelta         StreamEventKind = "text_delta"
	StreamEventFunctionArgsDelta StreamEventKind = "function_call_arguments_delta"
	StreamEventToolCall          StreamEventKind = "tool_call"
	StreamEventResponseCompleted StreamEventKind = "response_completed"
	StreamEventUsageUpdate       StreamEventKind = "usage_update"
	StreamEventStreamComplete    StreamEventKind = "stream_complete"
	StreamEventUnknown           StreamEventKind = "unknown"
)

// StreamEvent is the type every value pulled off the stream buffer satisfies.
type StreamEvent interface {
	Kind() StreamEventKind
}

// ResponseCreatedEvent announces the start of a new model turn.
type ResponseCreatedEvent struct {
	ResponseID string
	Model      string
	CreatedAt  int64
}

func (ResponseCreatedEvent) Kind() StreamEventKind { return StreamEventResponseCreated }

// TextDeltaEvent carries one fragment of assistant text output.
type TextDeltaEvent struct {
	Text  string
	Index int
}

func (TextDeltaEvent) Kind() StreamEventKind { return StreamEventTextDelta }

// FunctionCallArgumentsDeltaEvent carries one fragment of a function call's
// JSON arguments as they stream in.
type FunctionCallArgumentsDeltaEvent struct {
	CallID    string
	Arguments string
	Index     int
}

func (FunctionCallArgumentsDeltaEvent) Kind() StreamEventKind { return StreamEventFunctionArgsDelta }

// ToolCallEvent announces a fully-identified function call has started.
type ToolCallEvent struct {
	Name      string
	CallID    string
	Arguments string
}

func (ToolCallEvent) Kind() StreamEventKind { return StreamEventToolCall }

// ResponseCompletedEvent marks the end of one model turn.
type ResponseCompletedEvent struct {
	Usage   usage.Usage
	TraceID string
}

func (ResponseCompletedEvent) Kind() StreamEventKind { return StreamEventResponseCompleted }

// UsageUpdateEvent reports an incremental usage delta mid-stream.
type UsageUpdateEvent struct {
	Usage usage.Usage
}

func (UsageUpdateEvent) Kind() StreamEventKind { return StreamEventUsageUpdate }

// StreamCompleteEvent marks the end of one model call's wire stream (the
// "[DONE]" sentinel). It is emitted before the stream buffer is completed,
// once per streamed model call.
type StreamCompleteEvent struct{}

func (StreamCompleteEvent) Kind() StreamEventKind { return StreamEventStreamComplete }

// UnknownEvent wraps any wire event this package doesn't recognise.
type UnknownEvent struct {
	Raw map[string]any
}

func (UnknownEvent) Kind() StreamEventKind { return StreamEventUnknown }
