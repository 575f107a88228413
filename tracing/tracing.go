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

// Package tracing is an optional side-channel for run/span lifecycle
// notifications. It never influences control flow: every call here is
// fire-and-forget from the turn loop's perspective, and a disabled provider
// hands back no-op traces and spans that silently swallow every call.
package tracing

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SpanType enumerates the kinds of spans the core engine records.
type SpanType string

const (
	SpanTypeAgent      SpanType = "agent"
	SpanTypeFunction   SpanType = "function"
	SpanTypeGeneration SpanType = "generation"
	SpanTypeResponse   SpanType = "response"
	SpanTypeHandoff    SpanType = "handoff"
	SpanTypeGuardrail  SpanType = "guardrail"
	SpanTypeTool       SpanType = "tool"
	SpanTypeAPIRequest SpanType = "api_request"
)

func newHexID(prefix string) string {
	id := uuid.New()
	return prefix + "_" + hex.EncodeToString(id[:])
}

// NewTraceID returns a fresh trace_<hex> identifier.
func NewTraceID() string { return newHexID("trace") }

// NewSpanID returns a fresh span_<hex> identifier.
func NewSpanID() string { return newHexID("span") }

// NewGroupID returns a fresh group_<hex> identifier.
func NewGroupID() string { return newHexID("group") }

// SpanError captures a failure recorded against a span.
type SpanError struct {
	Message string
	Data    map[string]any
}

// Span describes one operation nested inside a Trace. Spans never outlive
// their trace: a span created from a NoOpTrace is always a NoOpSpan.
type Span interface {
	ID() string
	TraceID() string
	Type() SpanType
	SetError(SpanError)
	Error() *SpanError
	Start(ctx context.Context) context.Context
	Finish(ctx context.Context, result any) error
	Export() map[string]any
}

// Trace describes one top-level run, owning zero or more spans.
type Trace interface {
	ID() string
	Name() string
	GroupID() string
	Start(ctx context.Context) context.Context
	Finish(ctx context.Context, result any) error
	NewSpan(ctx context.Context, typ SpanType, data map[string]any) Span
	Export() map[string]any
}

// Hooks is the contract the turn loop drives. Every method must be
// fire-and-forget: it must never block the run and a returned error must
// never abort it.
type Hooks interface {
	StartTrace(ctx context.Context, agentName string, input any, groupID string, metadata map[string]any) Trace
	RecordSpan(ctx context.Context, trace Trace, typ SpanType, data map[string]any) Span
	EndSpan(ctx context.Context, span Span, result any)
	EndTrace(ctx context.Context, trace Trace, result any)
}

// Exporter ships finished traces/spans somewhere durable.
type Exporter interface {
	Export(ctx context.Context, items []any) error
}

type exportableItem interface {
	Export() map[string]any
}

// ---- no-op implementation, used when tracing is disabled ----

// NoOpSpan discards everything written to it.
type NoOpSpan struct {
	id, traceID string
	typ         SpanType
}

func (s *NoOpSpan) ID() string                          { return s.id }
func (s *NoOpSpan) TraceID() string                     { return s.traceID }
func (s *NoOpSpan) Type() SpanType                      { return s.typ }
func (s *NoOpSpan) SetError(SpanError)                  {}
func (s *NoOpSpan) Error() *SpanError                   { return nil }
func (s *NoOpSpan) Start(ctx context.Context) context.Context { return ctx }
func (s *NoOpSpan) Finish(context.Context, any) error   { return nil }
func (s *NoOpSpan) Export() map[string]any              { return nil }

// NoOpTrace discards everything written to it and hands out NoOpSpans.
type NoOpTrace struct {
	name, groupID string
}

func (t *NoOpTrace) ID() string      { return "" }
func (t *NoOpTrace) Name() string    { return t.name }
func (t *NoOpTrace) GroupID() string { return t.groupID }
func (t *NoOpTrace) Start(ctx context.Context) context.Context { return ctx }
func (t *NoOpTrace) Finish(context.Context, any) error         { return nil }
func (t *NoOpTrace) NewSpan(_ context.Context, typ SpanType, _ map[string]any) Span {
	return &NoOpSpan{typ: typ}
}
func (t *NoOpTrace) Export() map[string]any { return nil }

// ---- real implementation ----

// SpanImpl is the default Span, reported to the process's BatchTraceProcessor on Finish.
type SpanImpl struct {
	id, traceID, parentID string
	typ                   SpanType
	data                  map[string]any
	startedAt             time.Time
	endedAt               time.Time
	result                any
	err                   *SpanError
	includeSensitiveData  bool
	processor             *BatchTraceProcessor

	mu sync.Mutex
}

func (s *SpanImpl) ID() string      { return s.id }
func (s *SpanImpl) TraceID() string { return s.traceID }
func (s *SpanImpl) Type() SpanType  { return s.typ }

func (s *SpanImpl) SetError(e SpanError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = &e
}

func (s *SpanImpl) Error() *SpanError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *SpanImpl) Start(ctx context.Context) context.Context {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()
	if s.processor != nil {
		_ = s.processor.OnSpanStart(ctx, s)
	}
	return ctx
}

func (s *SpanImpl) Finish(ctx context.Context, result any) error {
	s.mu.Lock()
	s.endedAt = time.Now()
	s.result = result
	s.mu.Unlock()
	if s.processor != nil {
		return s.processor.OnSpanEnd(ctx, s)
	}
	return nil
}

func (s *SpanImpl) Export() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	spanData := map[string]any{"type": string(s.typ)}
	if s.includeSensitiveData {
		for k, v := range s.data {
			spanData[k] = v
		}
	}
	out := map[string]any{
		"object":     "trace.span",
		"id":         s.id,
		"trace_id":   s.traceID,
		"parent_id":  s.parentID,
		"started_at": s.startedAt.UTC().Format(time.RFC3339Nano),
		"span_data":  spanData,
	}
	if !s.endedAt.IsZero() {
		out["ended_at"] = s.endedAt.UTC().Format(time.RFC3339Nano)
	}
	if s.err != nil {
		out["error"] = map[string]any{"message": s.err.Message, "data": s.err.Data}
	}
	return out
}

// TraceImpl is the default Trace. It is queued on its provider's
// BatchTraceProcessor when started; Finish records the end time and result
// but does not queue it again.
type TraceImpl struct {
	id, name, groupID string
	metadata          map[string]any
	startedAt         time.Time
	endedAt           time.Time
	result            any
	processor         *BatchTraceProcessor

	mu sync.Mutex
}

func (t *TraceImpl) ID() string      { return t.id }
func (t *TraceImpl) Name() string    { return t.name }
func (t *TraceImpl) GroupID() string { return t.groupID }

func (t *TraceImpl) Start(ctx context.Context) context.Context {
	t.mu.Lock()
	t.startedAt = time.Now()
	t.mu.Unlock()
	if t.processor != nil {
		_ = t.processor.OnTraceStart(ctx, t)
	}
	return ctx
}

func (t *TraceImpl) Finish(ctx context.Context, result any) error {
	t.mu.Lock()
	t.endedAt = time.Now()
	t.result = result
	t.mu.Unlock()
	if t.processor != nil {
		return t.processor.OnTraceEnd(ctx, t)
	}
	return nil
}

func (t *TraceImpl) NewSpan(_ context.Context, typ SpanType, data map[string]any) Span {
	return &SpanImpl{
		id:                   NewSpanID(),
		traceID:              t.id,
		typ:                  typ,
		data:                 data,
		includeSensitiveData: true,
		processor:            t.processor,
	}
}

func (t *TraceImpl) Export() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := map[string]any{
		"object":    "trace",
		"id":        t.id,
		"workflow_name": t.name,
		"group_id":  t.groupID,
		"metadata":  t.metadata,
	}
	if !t.startedAt.IsZero() {
		out["started_at"] = t.startedAt.UTC().Format(time.RFC3339Nano)
	}
	if !t.endedAt.IsZero() {
		out["ended_at"] = t.endedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// ---- provider ----

// TraceProvider constructs Trace values, consulting OPENAI_AGENTS_DISABLE_TRACING
// on first use and caching the result; SetDisabled lets callers override that
// cached decision at any time.
type TraceProvider struct {
	processor *BatchTraceProcessor

	envChecked atomic.Bool
	envDisable atomic.Bool
	disabled   atomic.Bool
	overridden atomic.Bool
}

// NewDefaultTraceProvider returns a TraceProvider backed by the process-wide
// batch processor and exporter.
func NewDefaultTraceProvider() *TraceProvider {
	return &TraceProvider{processor: DefaultProcessor()}
}

// NewTraceProvider returns a TraceProvider backed by a caller-supplied processor.
func NewTraceProvider(processor *BatchTraceProcessor) *TraceProvider {
	return &TraceProvider{processor: processor}
}

// SetDisabled overrides any environment-derived decision.
func (p *TraceProvider) SetDisabled(disabled bool) {
	p.overridden.Store(true)
	p.disabled.Store(disabled)
}

func (p *TraceProvider) isDisabled() bool {
	if p.overridden.Load() {
		return p.disabled.Load()
	}
	if !p.envChecked.Load() {
		v := os.Getenv("OPENAI_AGENTS_DISABLE_TRACING")
		p.envDisable.Store(v == "true" || v == "1")
		p.envChecked.Store(true)
	}
	return p.envDisable.Load()
}

// CreateTrace builds a new Trace, honoring the disabled flag resolved above.
func (p *TraceProvider) CreateTrace(name, traceID, groupID string, metadata map[string]any, disabled bool) Trace {
	if disabled || p.isDisabled() {
		return &NoOpTrace{name: name, groupID: groupID}
	}
	if traceID == "" {
		traceID = NewTraceID()
	}
	return &TraceImpl{
		id:        traceID,
		name:      name,
		groupID:   groupID,
		metadata:  metadata,
		processor: p.processor,
	}
}

var (
	globalTraceProvider      atomic.Pointer[TraceProvider]
	defaultProviderOnce      sync.Once
	shutdownHandlerRegistered atomic.Bool
	shutdownOnce             sync.Once
)

// GetTraceProvider lazily initializes and returns the process-wide provider.
func GetTraceProvider() *TraceProvider {
	if p := globalTraceProvider.Load(); p != nil {
		return p
	}
	defaultProviderOnce.Do(func() {
		if globalTraceProvider.Load() != nil {
			return
		}
		globalTraceProvider.Store(NewDefaultTraceProvider())
	})
	registerShutdownHandler()
	return globalTraceProvider.Load()
}

// SetTraceProvider installs a custom process-wide provider, skipping the
// default exporter/processor bootstrap.
func SetTraceProvider(p *TraceProvider) {
	globalTraceProvider.Store(p)
	registerShutdownHandler()
}

func registerShutdownHandler() {
	if shutdownHandlerRegistered.CompareAndSwap(false, true) {
		shutdownOnce.Do(func() {})
	}
}

// Shutdown flushes the default batch processor, if one was ever started.
func Shutdown(ctx context.Context) error {
	if processor := globalProcessor.Load(); processor != nil {
		return processor.Shutdown(ctx)
	}
	return nil
}

// DefaultHooks adapts a TraceProvider to the Hooks contract consumed by the
// turn loop.
type DefaultHooks struct {
	Provider *TraceProvider
}

func (h DefaultHooks) provider() *TraceProvider {
	if h.Provider != nil {
		return h.Provider
	}
	return GetTraceProvider()
}

func (h DefaultHooks) StartTrace(ctx context.Context, agentName string, _ any, groupID string, metadata map[string]any) Trace {
	trace := h.provider().CreateTrace(agentName, "", groupID, metadata, false)
	trace.Start(ctx)
	return trace
}

func (h DefaultHooks) RecordSpan(ctx context.Context, trace Trace, typ SpanType, data map[string]any) Span {
	if trace == nil {
		return &NoOpSpan{typ: typ}
	}
	span := trace.NewSpan(ctx, typ, data)
	span.Start(ctx)
	return span
}

func (h DefaultHooks) EndSpan(ctx context.Context, span Span, result any) {
	if span == nil {
		return
	}
	if err := span.Finish(ctx, result); err != nil {
		Logger().Warn("[non-fatal] tracing: failed to finish span", slog.String("error", err.Error()))
	}
}

func (h DefaultHooks) EndTrace(ctx context.Context, trace Trace, result any) {
	if trace == nil {
		return
	}
	if err := trace.Finish(ctx, result); err != nil {
		Logger().Warn("[non-fatal] tracing: failed to finish trace", slog.String("error", err.Error()))
	}
}

var loggerOnce sync.Once
var logger *slog.Logger

// Logger returns the package-wide slog.Logger, defaulting to slog's handler
// unless a caller installed one with SetLogger.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = slog.Default().With(slog.String("component", "tracing"))
		}
	})
	return logger
}

// SetLogger overrides the package-wide logger; must be called before any
// tracing activity if the default is unwanted.
func SetLogger(l *slog.Logger) {
	logger = l
	loggerOnce.Do(func() {})
}

var _ fmt.Stringer = SpanType("")

func (t SpanType) String() string { return string(t) }
