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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTelSpanExporterRecordsTraceAndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	exporter := NewOTelSpanExporter(provider.Tracer("agentcore-test"))

	traceProvider := NewTraceProvider(nil)
	trace := traceProvider.CreateTrace("wf", "", "", nil, true)
	ctx := trace.Start(context.Background())
	span := trace.NewSpan(ctx, SpanTypeTool, map[string]any{"tool": "get_weather"})
	span.Start(ctx)
	require.NoError(t, span.Finish(ctx, "ok"))
	require.NoError(t, trace.Finish(ctx, "ok"))

	require.NoError(t, exporter.Export(context.Background(), []any{trace, span}))

	recorded := recorder.Ended()
	require.Len(t, recorded, 2)

	names := []string{recorded[0].Name(), recorded[1].Name()}
	assert.Contains(t, names, "agent_run:wf")
	assert.Contains(t, names, "span:tool")
}

func TestOTelSpanExporterRejectsUnknownItemType(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	exporter := NewOTelSpanExporter(provider.Tracer("agentcore-test"))

	err := exporter.Export(context.Background(), []any{"not a trace or span"})
	require.Error(t, err)
}
