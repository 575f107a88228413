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

package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelSpanExporter adapts the engine's trace/span records onto an
// OpenTelemetry Tracer, for deployments that already ship an OTel collector
// pipeline instead of (or alongside) the OpenAI traces ingest endpoint.
// It satisfies the same Exporter contract as BackendSpanExporter and
// ConsoleSpanExporter, so a Runner can be pointed at either without any
// change to how traces/spans are produced.
type OTelSpanExporter struct {
	Tracer oteltrace.Tracer
}

func NewOTelSpanExporter(tracer oteltrace.Tracer) *OTelSpanExporter {
	return &OTelSpanExporter{Tracer: tracer}
}

// Export converts each Trace/Span into an OTel span. Since the engine's
// traces/spans have already finished by the time they reach an Exporter,
// each one is recorded as an already-ended span using its captured
// started_at/ended_at timestamps rather than the ambient clock.
func (e *OTelSpanExporter) Export(ctx context.Context, items []any) error {
	for _, item := range items {
		switch v := item.(type) {
		case Trace:
			e.exportTrace(ctx, v)
		case Span:
			e.exportSpan(ctx, v)
		default:
			return fmt.Errorf("OTelSpanExporter: unexpected item type %T", item)
		}
	}
	return nil
}

func (e *OTelSpanExporter) exportTrace(ctx context.Context, t Trace) {
	exported := t.Export()
	start := parseExportTime(exported["started_at"])
	_, span := e.Tracer.Start(ctx, "agent_run:"+t.Name(), oteltrace.WithTimestamp(start))
	span.SetAttributes(
		attribute.String("agentcore.trace_id", t.ID()),
		attribute.String("agentcore.group_id", t.GroupID()),
	)
	end := parseExportTime(exported["ended_at"])
	if end.IsZero() {
		end = time.Now()
	}
	span.End(oteltrace.WithTimestamp(end))
}

func (e *OTelSpanExporter) exportSpan(ctx context.Context, s Span) {
	exported := s.Export()
	start := parseExportTime(exported["started_at"])
	_, span := e.Tracer.Start(ctx, "span:"+string(s.Type()), oteltrace.WithTimestamp(start))
	span.SetAttributes(
		attribute.String("agentcore.span_id", s.ID()),
		attribute.String("agentcore.trace_id", s.TraceID()),
		attribute.String("agentcore.span_type", string(s.Type())),
	)
	if spanData, ok := exported["span_data"].(map[string]any); ok {
		for k, v := range spanData {
			span.SetAttributes(attribute.String("agentcore."+k, fmt.Sprint(v)))
		}
	}
	if s.Error() != nil {
		span.SetStatus(codes.Error, s.Error().Message)
	}
	end := parseExportTime(exported["ended_at"])
	if end.IsZero() {
		end = time.Now()
	}
	span.End(oteltrace.WithTimestamp(end))
}

func parseExportTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
