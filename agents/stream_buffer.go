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
	"errors"
	"iter"
	"sync"
	"time"
)

// ErrStreamTimeout is returned by StreamBuffer.Next when no event arrives
// before the deadline.
var ErrStreamTimeout = errors.New("stream buffer: next timed out")

// ErrStreamReaderBusy is returned by StreamBuffer.Next if a second reader
// tries to wait concurrently with one already suspended: the contract
// supports exactly one suspended reader at a time.
var ErrStreamReaderBusy = errors.New("stream buffer: a reader is already waiting")

// ErrStreamCompleted is returned by Emit once Complete has been called; no
// further events are accepted after that point.
var ErrStreamCompleted = errors.New("stream buffer: already completed")

// StreamBuffer is a single-consumer FIFO that decouples wire-event
// production (the model adapter, on its own goroutine) from the speed at
// which the consumer pulls events. Its queue has no capacity limit: Emit
// never blocks and never refuses an event for lack of room, so a slow
// consumer lets the queue grow without bound. It never drops an event that was
// successfully queued: Complete still lets every already-emitted event drain
// before subsequent reads see Done.
type StreamBuffer struct {
	mu        sync.Mutex
	queue     []StreamEvent
	completed bool
	waiting   chan struct{}
}

// NewStreamBuffer returns an empty, open StreamBuffer.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{}
}

// Emit enqueues an event for the single consumer. It returns
// ErrStreamCompleted if Complete was already called.
func (b *StreamBuffer) Emit(e StreamEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completed {
		return ErrStreamCompleted
	}
	b.queue = append(b.queue, e)
	b.wake()
	return nil
}

// Complete marks the buffer closed. Events already queued are still
// delivered in order; once the queue drains, Next returns (nil, true, nil).
func (b *StreamBuffer) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = true
	b.wake()
}

func (b *StreamBuffer) wake() {
	if b.waiting != nil {
		close(b.waiting)
		b.waiting = nil
	}
}

// Next returns the next queued event immediately if one is available.
// Otherwise, if the buffer isn't yet completed, it suspends the calling
// goroutine until an event arrives, the buffer completes, the timeout
// elapses, or ctx is cancelled. The returned bool is true exactly when the
// buffer is drained and completed (the "Done" case from §4.F).
func (b *StreamBuffer) Next(ctx context.Context, timeout time.Duration) (StreamEvent, bool, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			e := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return e, false, nil
		}
		if b.completed {
			b.mu.Unlock()
			return nil, true, nil
		}
		if b.waiting != nil {
			b.mu.Unlock()
			return nil, false, ErrStreamReaderBusy
		}
		ch := make(chan struct{})
		b.waiting = ch
		b.mu.Unlock()

		timer := time.NewTimer(timeout)
		select {
		case <-ch:
			timer.Stop()
			continue // an emit or Complete woke us; re-check the queue.
		case <-timer.C:
			b.clearWaiter(ch)
			return nil, false, ErrStreamTimeout
		case <-ctx.Done():
			timer.Stop()
			b.clearWaiter(ch)
			return nil, false, ctx.Err()
		}
	}
}

func (b *StreamBuffer) clearWaiter(ch chan struct{}) {
	b.mu.Lock()
	if b.waiting == ch {
		b.waiting = nil
	}
	b.mu.Unlock()
}

// Seq drains the buffer as an iter.Seq, stopping once Next reports Done or
// an error. A consumer that stops iterating early (the sequence's yield
// returns false) simply abandons the buffer; it is the caller's
// responsibility to cancel ctx so the producer side notices.
func (b *StreamBuffer) Seq(ctx context.Context, perEventTimeout time.Duration) iter.Seq[StreamEvent] {
	return func(yield func(StreamEvent) bool) {
		for {
			event, done, err := b.Next(ctx, perEventTimeout)
			if err != nil || done {
				return
			}
			if !yield(event) {
				return
			}
		}
	}
}
