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
	"sync"

	"github.com/riverrun-ai/agentcore/usage"
)

// ContextWrapper carries the caller's opaque state through every callback
// the engine invokes (instructions functions, tools, guardrails, hooks)
// alongside the mutable usage/metadata the engine itself writes.
//
// Value is never overwritten by the engine: it is read-only data from the
// core's perspective. Only Usage and the metadata map are mutated here:
// metadata mutations are serialised through mu, and usage updates through
// the Accumulator's own lock.
type ContextWrapper[T any] struct {
	Value T
	Usage *usage.Accumulator

	mu       sync.Mutex
	metadata map[string]any
}

// NewContext wraps value in a fresh ContextWrapper with zeroed usage.
func NewContext[T any](value T) *ContextWrapper[T] {
	return &ContextWrapper[T]{
		Value:    value,
		Usage:    usage.NewAccumulator(),
		metadata: make(map[string]any),
	}
}

// UpdateUsage merges incoming into the context's running usage total.
func (c *ContextWrapper[T]) UpdateUsage(incoming *usage.Usage) {
	c.Usage.Add(incoming)
}

// SetMetadata records an engine- or tool-observable fact against the run.
func (c *ContextWrapper[T]) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metadata == nil {
		c.metadata = make(map[string]any)
	}
	c.metadata[key] = value
}

// GetMetadata reads back a previously set metadata value.
func (c *ContextWrapper[T]) GetMetadata(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.metadata[key]
	return v, ok
}

// MetadataSnapshot returns a deep copy of the metadata map, safe to read and
// mutate without holding c's lock or risking a data race with a later
// SetMetadata call that replaces a nested map/slice value in place.
func (c *ContextWrapper[T]) MetadataSnapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return materializeJSONMap(c.metadata)
}

// ReadOnlyView is what tool implementations receive: they can read the
// caller's Value and the accumulated usage/metadata, but cannot reach the
// mutators above, so a tool cannot directly rewrite another tool's metadata
// outside SetMetadata's serialisation point.
type ReadOnlyView[T any] struct {
	Value T
	Usage usage.Usage
	ctx   *ContextWrapper[T]
}

// ReadOnly projects a ContextWrapper down to the view tools are handed.
func (c *ContextWrapper[T]) ReadOnly() ReadOnlyView[T] {
	return ReadOnlyView[T]{Value: c.Value, Usage: c.Usage.Snapshot(), ctx: c}
}

// GetMetadata reads metadata through the read-only view.
func (v ReadOnlyView[T]) GetMetadata(key string) (any, bool) {
	return v.ctx.GetMetadata(key)
}
