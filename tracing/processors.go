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
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// ConsoleSpanExporter prints traces and spans to stdout; useful for local
// development without a configured OPENAI_API_KEY.
type ConsoleSpanExporter struct{}

func (ConsoleSpanExporter) Export(_ context.Context, items []any) error {
	for _, item := range items {
		switch v := item.(type) {
		case Trace:
			fmt.Printf("[Exporter] trace_id=%s name=%s\n", v.ID(), v.Name())
		case Span:
			fmt.Printf("[Exporter] span: %+v\n", v.Export())
		default:
			return fmt.Errorf("ConsoleSpanExporter: unexpected item type %T", item)
		}
	}
	return nil
}

// DefaultBackendSpanExporterEndpoint is the ingest endpoint described in §6.
const DefaultBackendSpanExporterEndpoint = "https://api.openai.com/v1/traces/ingest"

// BackendSpanExporterParams configures NewBackendSpanExporter. Zero values
// fall back to the documented defaults.
type BackendSpanExporterParams struct {
	APIKey       string
	Organization string
	Project      string
	Endpoint     string
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	HTTPClient   *http.Client
}

// BackendSpanExporter posts batches of traces/spans to the tracing ingest
// endpoint, retrying 5xx and network errors with exponential backoff.
type BackendSpanExporter struct {
	apiKey       atomic.Pointer[string]
	organization string
	project      string
	Endpoint     string
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	client       *http.Client
}

func NewBackendSpanExporter(params BackendSpanExporterParams) *BackendSpanExporter {
	b := &BackendSpanExporter{
		organization: params.Organization,
		project:      params.Project,
		Endpoint:     cmp.Or(params.Endpoint, DefaultBackendSpanExporterEndpoint),
		MaxRetries:   cmp.Or(params.MaxRetries, 3),
		BaseDelay:    cmp.Or(params.BaseDelay, time.Second),
		MaxDelay:     cmp.Or(params.MaxDelay, 30*time.Second),
		client:       cmp.Or(params.HTTPClient, &http.Client{Timeout: 60 * time.Second}),
	}
	if params.APIKey != "" {
		b.apiKey.Store(&params.APIKey)
	}
	return b
}

func (b *BackendSpanExporter) SetAPIKey(apiKey string) { b.apiKey.Store(&apiKey) }

func (b *BackendSpanExporter) APIKey() string {
	if v := b.apiKey.Load(); v != nil && *v != "" {
		return *v
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Export ships items to the backend, retrying on 5xx or network errors for
// at most MaxRetries attempts in total. 4xx responses are logged and not
// retried.
func (b *BackendSpanExporter) Export(ctx context.Context, items []any) error {
	if len(items) == 0 {
		return nil
	}

	var payloadData []map[string]any
	for _, item := range items {
		exportable, ok := item.(exportableItem)
		if !ok {
			return fmt.Errorf("BackendSpanExporter: unexpected item type %T", item)
		}
		if exported := exportable.Export(); exported != nil {
			payloadData = append(payloadData, exported)
		}
	}
	if len(payloadData) == 0 {
		return nil
	}

	apiKey := b.APIKey()
	if apiKey == "" {
		Logger().Warn("BackendSpanExporter: OpenAI API key is not set, skipping trace export")
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"traces":      payloadData,
		"exported_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to JSON-marshal tracing payload: %w", err)
	}

	delay := b.BaseDelay
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build tracing request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("OpenAI-Beta", "traces=v1")
		if b.organization != "" {
			req.Header.Set("OpenAI-Organization", b.organization)
		}
		if b.project != "" {
			req.Header.Set("OpenAI-Project", b.project)
		}

		resp, err := b.client.Do(req)
		if err != nil {
			Logger().Warn("[non-fatal] tracing: request failed", slog.String("error", err.Error()))
		} else {
			func() {
				defer resp.Body.Close()
				switch {
				case resp.StatusCode < 300:
					Logger().Debug("exported items", slog.Int("count", len(payloadData)))
				case resp.StatusCode < 500:
					body, _ := io.ReadAll(resp.Body)
					Logger().Warn("[non-fatal] tracing: client error",
						slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
				default:
					Logger().Warn("[non-fatal] tracing: server error, retrying", slog.Int("status", resp.StatusCode))
				}
			}()
			if resp.StatusCode < 500 {
				return nil
			}
		}

		if attempt >= b.MaxRetries {
			Logger().Error("[non-fatal] tracing: max retries reached, dropping batch")
			return nil
		}
		sleep := delay + time.Duration(rand.Int64N(int64(delay/10+1)))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
		delay = min(delay*2, b.MaxDelay)
	}
}

func (b *BackendSpanExporter) Close() { b.client.CloseIdleConnections() }

// BatchTraceProcessorParams configures NewBatchTraceProcessor.
type BatchTraceProcessorParams struct {
	Exporter          Exporter
	MaxQueueSize      int
	MaxBatchSize      int
	ScheduleDelay     time.Duration
	ExportTriggerSize int
}

// BatchTraceProcessor is the single dedicated worker that owns the
// pending-export queue described in §9: traces/spans enqueue instantly and a
// background goroutine flushes on a timer or once the queue crosses a
// size threshold, whichever comes first.
type BatchTraceProcessor struct {
	exporter          Exporter
	maxQueueSize      int
	maxBatchSize      int
	scheduleDelay     time.Duration
	exportTriggerSize int

	nextExportTime time.Time
	shutdownCalled atomic.Bool
	workerRunning  atomic.Bool
	workerDoneChan chan struct{}
	workerMu       sync.RWMutex

	queueMu   sync.Mutex
	queueChan chan any
	queueSize int
}

func NewBatchTraceProcessor(params BatchTraceProcessorParams) *BatchTraceProcessor {
	maxQueueSize := cmp.Or(params.MaxQueueSize, 8192)
	scheduleDelay := cmp.Or(params.ScheduleDelay, 5*time.Second)
	exportTriggerSize := cmp.Or(params.ExportTriggerSize, 100)

	return &BatchTraceProcessor{
		exporter:          params.Exporter,
		maxQueueSize:      maxQueueSize,
		maxBatchSize:      cmp.Or(params.MaxBatchSize, 100),
		scheduleDelay:     scheduleDelay,
		exportTriggerSize: exportTriggerSize,
		nextExportTime:    time.Now().Add(scheduleDelay),
		queueChan:         make(chan any, maxQueueSize),
	}
}

func (b *BatchTraceProcessor) OnTraceStart(ctx context.Context, trace Trace) error {
	b.ensureWorkerStarted(ctx)
	b.enqueue(trace)
	return nil
}

func (b *BatchTraceProcessor) OnTraceEnd(context.Context, Trace) error { return nil }

func (b *BatchTraceProcessor) OnSpanStart(context.Context, Span) error { return nil }

func (b *BatchTraceProcessor) OnSpanEnd(ctx context.Context, span Span) error {
	b.ensureWorkerStarted(ctx)
	b.enqueue(span)
	return nil
}

func (b *BatchTraceProcessor) enqueue(item any) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	select {
	case b.queueChan <- item:
		b.queueSize++
	default:
		Logger().Warn("tracing queue is full, dropping item")
	}
}

// Shutdown stops the background worker and flushes any remaining items.
func (b *BatchTraceProcessor) Shutdown(ctx context.Context) error {
	b.shutdownCalled.Store(true)
	if b.workerRunning.Load() {
		<-b.workerDoneChan
		return nil
	}
	return b.exportBatches(ctx, true)
}

// ForceFlush exports everything currently queued, ignoring batching limits.
func (b *BatchTraceProcessor) ForceFlush(ctx context.Context) error {
	return b.exportBatches(ctx, true)
}

func (b *BatchTraceProcessor) ensureWorkerStarted(ctx context.Context) {
	if b.workerRunning.Load() {
		return
	}
	b.workerMu.Lock()
	defer b.workerMu.Unlock()
	if b.workerRunning.Load() {
		return
	}
	b.workerDoneChan = make(chan struct{})
	b.workerRunning.Store(true)

	go func() {
		defer func() {
			b.workerMu.Lock()
			defer b.workerMu.Unlock()
			b.workerRunning.Store(false)
			close(b.workerDoneChan)
		}()
		if err := b.run(ctx); err != nil {
			Logger().Error("batch trace processor worker error", slog.String("error", err.Error()))
		}
	}()
}

func (b *BatchTraceProcessor) run(ctx context.Context) error {
	for !b.shutdownCalled.Load() {
		b.queueMu.Lock()
		size := b.queueSize
		b.queueMu.Unlock()

		if time.Now().After(b.nextExportTime) || size >= b.exportTriggerSize {
			if err := b.exportBatches(ctx, false); err != nil {
				return err
			}
			b.nextExportTime = time.Now().Add(b.scheduleDelay)
		} else {
			time.Sleep(200 * time.Millisecond)
		}
	}
	return b.exportBatches(ctx, true)
}

func (b *BatchTraceProcessor) exportBatches(ctx context.Context, force bool) error {
	for {
		var batch []any
	drain:
		for {
			b.queueMu.Lock()
			canTake := b.queueSize > 0 && (force || len(batch) < b.maxBatchSize)
			if !canTake {
				b.queueMu.Unlock()
				break drain
			}
			select {
			case item := <-b.queueChan:
				b.queueSize--
				b.queueMu.Unlock()
				batch = append(batch, item)
			default:
				b.queueMu.Unlock()
				break drain
			}
		}
		if len(batch) == 0 {
			return nil
		}
		if err := b.exporter.Export(ctx, batch); err != nil {
			return err
		}
	}
}

var (
	globalExporter      atomic.Pointer[BackendSpanExporter]
	globalProcessor     atomic.Pointer[BatchTraceProcessor]
	defaultExporterOnce sync.Once
	defaultProcessorOnce sync.Once
)

// DefaultExporter returns the process-wide exporter, creating it on first use.
func DefaultExporter() *BackendSpanExporter {
	if e := globalExporter.Load(); e != nil {
		return e
	}
	defaultExporterOnce.Do(func() {
		if globalExporter.Load() != nil {
			return
		}
		globalExporter.Store(NewBackendSpanExporter(BackendSpanExporterParams{}))
	})
	return globalExporter.Load()
}

// DefaultProcessor returns the process-wide batch processor, creating it on first use.
func DefaultProcessor() *BatchTraceProcessor {
	if p := globalProcessor.Load(); p != nil {
		return p
	}
	defaultProcessorOnce.Do(func() {
		if globalProcessor.Load() != nil {
			return
		}
		globalProcessor.Store(NewBatchTraceProcessor(BatchTraceProcessorParams{Exporter: DefaultExporter()}))
	})
	return globalProcessor.Load()
}
