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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentValidateRejectsEmptyName(t *testing.T) {
	a := &Agent{}
	err := a.Validate()
	require.Error(t, err)
	var cfgErr *InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "name", cfgErr.Field)
}

func TestAgentValidateRejectsDuplicateToolNames(t *testing.T) {
	tool := func(name string) *FunctionTool {
		return &FunctionTool{Name: name, Func: func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error) { return nil, nil }}
	}
	a := &Agent{Name: "A", Tools: []Tool{tool("dup"), tool("dup")}}
	err := a.Validate()
	require.Error(t, err)
}

func TestAgentValidateRejectsDuplicateHandoffTargets(t *testing.T) {
	target := &Agent{Name: "B"}
	a := &Agent{Name: "A", Handoffs: []Handoff{{AgentName: "B", Agent: target}, {AgentName: "B", Agent: target}}}
	err := a.Validate()
	require.Error(t, err)
}

func TestAgentCloneIsIndependent(t *testing.T) {
	target := &Agent{Name: "B"}
	a := &Agent{Name: "A", Handoffs: []Handoff{{AgentName: "B", Agent: target}}}
	clone := a.Clone()
	clone.Handoffs = append(clone.Handoffs, Handoff{AgentName: "C", Agent: &Agent{Name: "C"}})
	assert.Len(t, a.Handoffs, 1)
	assert.Len(t, clone.Handoffs, 2)
}

func TestAgentResolveInstructionsPlainString(t *testing.T) {
	a := &Agent{Name: "A", Instructions: "be concise"}
	got, err := a.ResolveInstructions(context.Background(), NewContext[any](nil))
	require.NoError(t, err)
	assert.Equal(t, "be concise", got)
}

func TestAgentResolveInstructionsNilIsEmpty(t *testing.T) {
	a := &Agent{Name: "A"}
	got, err := a.ResolveInstructions(context.Background(), NewContext[any](nil))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestAgentResolveInstructionsFunc(t *testing.T) {
	a := &Agent{
		Name: "A",
		Instructions: InstructionsFunc(func(ctx context.Context, rc RunContext, agent *Agent) (string, error) {
			return "dynamic for " + agent.Name, nil
		}),
	}
	got, err := a.ResolveInstructions(context.Background(), NewContext[any](nil))
	require.NoError(t, err)
	assert.Equal(t, "dynamic for A", got)
}
