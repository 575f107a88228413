// Copyright 2026 The NLP Odyssey Authors
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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeJSONMapDeepCopiesNestedStructures(t *testing.T) {
	tags := []any{"billing", "refund"}
	nested := map[string]any{"tags": tags, "priority": 2}
	original := map[string]any{"ticket": nested}

	copied := materializeJSONMap(original)

	nested["priority"] = 99
	tags[0] = "mutated"
	assert.Equal(t, 2, copied["ticket"].(map[string]any)["priority"])
	assert.Equal(t, "billing", copied["ticket"].(map[string]any)["tags"].([]any)[0])
}

func TestMaterializeJSONMapCopyIsIndependentOfOriginal(t *testing.T) {
	original := map[string]any{"count": 1}
	copied := materializeJSONMap(original)
	copied["count"] = 2
	assert.Equal(t, 1, original["count"])
}

func TestMaterializeJSONValueNilStaysNil(t *testing.T) {
	assert.Nil(t, materializeJSONValue(nil))
	assert.Nil(t, materializeJSONMap(nil))
}

func TestMaterializeJSONValueDereferencesPointers(t *testing.T) {
	n := 42
	materialized := materializeJSONValue(&n)
	assert.Equal(t, 42, materialized)

	var nilPtr *int
	assert.Nil(t, materializeJSONValue(nilPtr))
}

func TestMaterializeJSONValueCopiesTypedSlice(t *testing.T) {
	original := []int{1, 2, 3}
	materialized := materializeJSONValue(original)
	copied, ok := materialized.([]int)
	require.True(t, ok)
	assert.Equal(t, original, copied)

	copied[0] = 99
	assert.Equal(t, 1, original[0])
}
