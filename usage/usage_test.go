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

package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageAddSumsFields(t *testing.T) {
	got := Usage{}.
		Add(Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4, Requests: 1}).
		Add(Usage{PromptTokens: 2, CompletionTokens: 5, TotalTokens: 7, Requests: 1})

	assert.Equal(t, int64(5), got.PromptTokens)
	assert.Equal(t, int64(6), got.CompletionTokens)
	assert.Equal(t, int64(11), got.TotalTokens)
	assert.Equal(t, int64(2), got.Requests)
}

func TestUsageAddNeverMutatesReceiver(t *testing.T) {
	base := Usage{PromptTokens: 1}
	_ = base.Add(Usage{PromptTokens: 1})
	assert.Equal(t, int64(1), base.PromptTokens)
}

func TestAccumulatorAddSumsFields(t *testing.T) {
	a := NewAccumulator()
	a.Add(&Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4, Requests: 1})
	a.Add(&Usage{PromptTokens: 2, CompletionTokens: 5, TotalTokens: 7, Requests: 1})

	got := a.Snapshot()
	assert.Equal(t, int64(5), got.PromptTokens)
	assert.Equal(t, int64(6), got.CompletionTokens)
	assert.Equal(t, int64(11), got.TotalTokens)
	assert.Equal(t, int64(2), got.Requests)
}

func TestAccumulatorAddIgnoresNil(t *testing.T) {
	a := NewAccumulator()
	a.Add(nil)
	assert.Equal(t, Usage{}, a.Snapshot())

	var nilAccumulator *Accumulator
	nilAccumulator.Add(&Usage{PromptTokens: 1}) // must not panic
	assert.Equal(t, Usage{}, nilAccumulator.Snapshot())
}

func TestAccumulatorAddIsConcurrencySafe(t *testing.T) {
	a := NewAccumulator()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Add(&Usage{PromptTokens: 1, TotalTokens: 1})
		}()
	}
	wg.Wait()
	got := a.Snapshot()
	assert.Equal(t, int64(100), got.PromptTokens)
	assert.Equal(t, int64(100), got.TotalTokens)
}

func TestAccumulatorTotalGreaterOrEqualSumOfParts(t *testing.T) {
	a := NewAccumulator()
	for i := 0; i < 5; i++ {
		a.Add(&Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})
	}
	got := a.Snapshot()
	assert.GreaterOrEqual(t, got.TotalTokens, got.PromptTokens+got.CompletionTokens)
	assert.Equal(t, got.PromptTokens+got.CompletionTokens, got.TotalTokens)
}
