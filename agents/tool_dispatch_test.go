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
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slowEchoTool(name string, delay time.Duration) *FunctionTool {
	return &FunctionTool{
		Name: name,
		Func: func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return map[string]any{"tool": name}, nil
		},
	}
}

func TestDispatchToolCallsPreservesInputOrder(t *testing.T) {
	tools := map[string]Tool{
		"slow": slowEchoTool("slow", 30*time.Millisecond),
		"fast": slowEchoTool("fast", time.Millisecond),
	}
	calls := []FunctionCallItem{
		{CallID: "c1", Name: "slow", Arguments: "{}"},
		{CallID: "c2", Name: "fast", Arguments: "{}"},
	}
	rc := NewContext[any](nil)
	outputs := dispatchToolCalls(context.Background(), rc, tools, calls, time.Second)

	require.Len(t, outputs, 2)
	assert.Equal(t, "c1", outputs[0].CallID)
	assert.Equal(t, "c2", outputs[1].CallID)
	assert.Contains(t, outputs[0].Output, "slow")
	assert.Contains(t, outputs[1].Output, "fast")
}

func TestDispatchToolCallsRunsConcurrently(t *testing.T) {
	var inFlight atomic.Int32
	var maxInFlight atomic.Int32
	makeTool := func(name string) *FunctionTool {
		return &FunctionTool{
			Name: name,
			Func: func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error) {
				n := inFlight.Add(1)
				for {
					cur := maxInFlight.Load()
					if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				inFlight.Add(-1)
				return "ok", nil
			},
		}
	}
	tools := map[string]Tool{"a": makeTool("a"), "b": makeTool("b"), "c": makeTool("c")}
	calls := []FunctionCallItem{
		{CallID: "1", Name: "a", Arguments: "{}"},
		{CallID: "2", Name: "b", Arguments: "{}"},
		{CallID: "3", Name: "c", Arguments: "{}"},
	}
	rc := NewContext[any](nil)
	dispatchToolCalls(context.Background(), rc, tools, calls, time.Second)
	assert.Greater(t, maxInFlight.Load(), int32(1))
}

func TestDispatchToolCallsUnknownToolBecomesErrorOutput(t *testing.T) {
	calls := []FunctionCallItem{{CallID: "c1", Name: "missing", Arguments: "{}"}}
	rc := NewContext[any](nil)
	outputs := dispatchToolCalls(context.Background(), rc, map[string]Tool{}, calls, time.Second)
	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].Output, "error")
}

func TestDispatchToolCallsTimeout(t *testing.T) {
	tools := map[string]Tool{"slow": slowEchoTool("slow", 200*time.Millisecond)}
	calls := []FunctionCallItem{{CallID: "c1", Name: "slow", Arguments: "{}"}}
	rc := NewContext[any](nil)
	outputs := dispatchToolCalls(context.Background(), rc, tools, calls, 10*time.Millisecond)
	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].Output, "timeout")
}

func TestDispatchToolCallsRecoversFromPanic(t *testing.T) {
	tools := map[string]Tool{
		"boom": &FunctionTool{
			Name: "boom",
			Func: func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error) {
				panic("kaboom")
			},
		},
	}
	calls := []FunctionCallItem{{CallID: "c1", Name: "boom", Arguments: "{}"}}
	rc := NewContext[any](nil)
	outputs := dispatchToolCalls(context.Background(), rc, tools, calls, time.Second)
	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].Output, "kaboom")
}

func TestDispatchToolCallsMalformedArgumentsDecodeToEmptyObject(t *testing.T) {
	var seenArgs json.RawMessage
	tools := map[string]Tool{
		"echoArgs": &FunctionTool{
			Name: "echoArgs",
			Func: func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error) {
				seenArgs = args
				return "ok", nil
			},
		},
	}
	calls := []FunctionCallItem{{CallID: "c1", Name: "echoArgs", Arguments: "not-json"}}
	rc := NewContext[any](nil)
	dispatchToolCalls(context.Background(), rc, tools, calls, time.Second)
	assert.Equal(t, "{}", string(seenArgs))
}

func TestFunctionToolOnErrorOverridesFailure(t *testing.T) {
	tool := &FunctionTool{
		Name: "risky",
		Func: func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		},
		OnError: func(ctx context.Context, rc RunContextReadOnly, err error) (string, error) {
			return fmt.Sprintf(`{"recovered":"%s"}`, err.Error()), nil
		},
	}
	out, err := tool.Execute(context.Background(), NewContext[any](nil).ReadOnly(), json.RawMessage("{}"))
	require.NoError(t, err)
	assert.Contains(t, out, "recovered")
}
