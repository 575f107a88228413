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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInputGuardrailsAllowsWhenNoneTrip(t *testing.T) {
	rc := NewContext[any](nil)
	guardrails := []InputGuardrail{
		{Name: "always-allow", Validate: func(ctx context.Context, rc RunContext, input Conversation) (GuardrailResult, error) {
			return Allow(nil), nil
		}},
	}
	err := runInputGuardrails(context.Background(), rc, guardrails, Conversation{UserMessage("hi")})
	require.NoError(t, err)
}

func TestRunInputGuardrailsStopsAtFirstRejection(t *testing.T) {
	var secondCalled bool
	rc := NewContext[any](nil)
	guardrails := []InputGuardrail{
		{Name: "blocklist", Validate: func(ctx context.Context, rc RunContext, input Conversation) (GuardrailResult, error) {
			return Reject("contains banned word", map[string]any{"word": "x"}), nil
		}},
		{Name: "never-reached", Validate: func(ctx context.Context, rc RunContext, input Conversation) (GuardrailResult, error) {
			secondCalled = true
			return Allow(nil), nil
		}},
	}
	err := runInputGuardrails(context.Background(), rc, guardrails, Conversation{UserMessage("hi")})
	require.Error(t, err)
	var triggered *GuardrailTriggeredError
	require.ErrorAs(t, err, &triggered)
	assert.Equal(t, "blocklist", triggered.GuardrailName)
	assert.False(t, secondCalled)
}

func TestRunInputGuardrailsConvertsPanicToFailure(t *testing.T) {
	rc := NewContext[any](nil)
	guardrails := []InputGuardrail{
		{Name: "flaky", Validate: func(ctx context.Context, rc RunContext, input Conversation) (GuardrailResult, error) {
			panic("unexpected nil pointer")
		}},
	}
	err := runInputGuardrails(context.Background(), rc, guardrails, Conversation{UserMessage("hi")})
	require.Error(t, err)
	var triggered *GuardrailTriggeredError
	require.ErrorAs(t, err, &triggered)
	assert.Equal(t, "flaky", triggered.GuardrailName)
}

func TestRunOutputGuardrailsTransformsThenNextSeesTransformed(t *testing.T) {
	var secondSaw string
	rc := NewContext[any](nil)
	guardrails := []OutputGuardrail{
		{Name: "redact", Validate: func(ctx context.Context, rc RunContext, output string) (GuardrailResult, error) {
			return GuardrailResult{TransformedOutput: "[redacted]"}, nil
		}},
		{Name: "observe", Validate: func(ctx context.Context, rc RunContext, output string) (GuardrailResult, error) {
			secondSaw = output
			return Allow(nil), nil
		}},
	}
	final, err := runOutputGuardrails(context.Background(), rc, guardrails, "secret: 12345")
	require.NoError(t, err)
	assert.Equal(t, "[redacted]", final)
	assert.Equal(t, "[redacted]", secondSaw)
}

func TestRunOutputGuardrailsRejectionCarriesRejectedOutput(t *testing.T) {
	rc := NewContext[any](nil)
	guardrails := []OutputGuardrail{
		{Name: "no-profanity", Validate: func(ctx context.Context, rc RunContext, output string) (GuardrailResult, error) {
			return Reject("contains profanity", nil), nil
		}},
	}
	_, err := runOutputGuardrails(context.Background(), rc, guardrails, "darn it")
	require.Error(t, err)
	var triggered *OutputGuardrailTriggeredError
	require.ErrorAs(t, err, &triggered)
	assert.Equal(t, "darn it", triggered.Output)
}
