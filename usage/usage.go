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

// Package usage tracks token accounting across the turns of a single run.
package usage

import "sync"

// Usage is a plain snapshot of prompt/completion token counters: it carries
// no lock and is safe to copy, embed by value, and pass across goroutines
// freely (as ModelResponse.Usage, RunResult.Usage, and ReadOnlyView.Usage
// all do).
//
// The wire response may name these fields input_tokens/output_tokens; callers
// constructing a Usage from a raw response should map both spellings onto the
// canonical PromptTokens/CompletionTokens fields here.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64

	// Requests counts the number of model calls that contributed to this Usage.
	Requests int64
}

// Add returns the field-by-field sum of u and incoming. It is a pure value
// operation on a lock-free type: it never mutates u and is safe to chain
// when folding a sequence of Usage values from a single goroutine (e.g. the
// stream accumulator folding SSE frames as they arrive).
func (u Usage) Add(incoming Usage) Usage {
	u.Requests += incoming.Requests
	u.PromptTokens += incoming.PromptTokens
	u.CompletionTokens += incoming.CompletionTokens
	u.TotalTokens += incoming.TotalTokens
	return u
}

// Accumulator is the running, mutable total for one run: several turns (and,
// for a streaming follow-up call racing the tool dispatcher, several
// goroutines) may report usage into the same run, so updates are serialised
// through a lock that never leaves this type — every value handed back by
// Snapshot is a lock-free Usage, never this type itself.
type Accumulator struct {
	mu    sync.Mutex
	total Usage
}

// NewAccumulator returns a zeroed Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add merges incoming into the running total. Safe for concurrent use.
func (a *Accumulator) Add(incoming *Usage) {
	if a == nil || incoming == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = a.total.Add(*incoming)
}

// Snapshot returns a lock-free copy of the running total, safe to read,
// copy, or store without holding a's lock.
func (a *Accumulator) Snapshot() Usage {
	if a == nil {
		return Usage{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
