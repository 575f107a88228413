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
	"fmt"

	"github.com/invopop/jsonschema"
)

// ToolSchema is the JSON-Schema-shaped description of a tool the model sees,
// and the half of component D's ToolDefinition the dispatcher (component G)
// reads back to decide which Go value to invoke.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Tool is the capability set component G dispatches against: a name and
// JSON-Schema the model is shown, an Execute entrypoint the dispatcher calls
// with decoded arguments, and an optional OnError hook that lets the tool
// turn a panic/error into the message fed back to the model instead of the
// raw Go error text.
type Tool interface {
	Schema() ToolSchema
	Execute(ctx context.Context, rc RunContextReadOnly, arguments json.RawMessage) (string, error)
}

// ToolErrorHandler lets a tool override how its failures are reported back
// to the model. Returning ("", err) propagates err as a ToolExecutionError;
// returning (msg, nil) sends msg as the function_call_output instead. It is
// consulted for both a returned error and a recovered panic (§4.G).
type ToolErrorHandler func(ctx context.Context, rc RunContextReadOnly, err error) (string, error)

// toolErrorHandler lets the dispatcher route a recovered panic through a
// tool's own error-handling, the same way a returned error already is.
// FunctionTool implements it; tools that don't still get converted to a
// plain ToolExecutionError.
type toolErrorHandler interface {
	HandleError(ctx context.Context, rc RunContextReadOnly, err error) (string, error)
}

// FunctionTool wraps a typed Go function as a Tool. Func decodes Arguments
// from the model-supplied JSON and returns a value JSON-encoded as the
// function_call_output.
type FunctionTool struct {
	Name        string
	Description string

	// Parameters is the JSON-Schema object describing the function's
	// arguments, either hand-written or produced by ReflectParameters.
	Parameters map[string]any

	// Func performs the call. args is the raw JSON arguments object the
	// model supplied (already isolated from the enclosing function_call
	// item); a malformed or missing arguments string decodes to "{}" before
	// Func ever sees it (per §4.G step 2).
	Func func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error)

	// OnError, if set, is consulted before a failure becomes a
	// ToolExecutionError.
	OnError ToolErrorHandler
}

func (t *FunctionTool) Schema() ToolSchema {
	return ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

func (t *FunctionTool) Execute(ctx context.Context, rc RunContextReadOnly, arguments json.RawMessage) (string, error) {
	result, err := t.Func(ctx, rc, arguments)
	if err != nil {
		return t.HandleError(ctx, rc, err)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(encoded), nil
}

// HandleError runs err (a returned error or a recovered panic, converted to
// an error by the caller) through OnError, if set. With no OnError, err
// propagates unchanged and becomes a ToolExecutionError at the dispatcher.
func (t *FunctionTool) HandleError(ctx context.Context, rc RunContextReadOnly, err error) (string, error) {
	if t.OnError == nil {
		return "", err
	}
	msg, handledErr := t.OnError(ctx, rc, err)
	if handledErr != nil {
		return "", handledErr
	}
	return msg, nil
}

var _ Tool = (*FunctionTool)(nil)
var _ toolErrorHandler = (*FunctionTool)(nil)

// ReflectParameters derives a JSON-Schema parameters object from the shape
// of argsExample (typically a pointer to the zero value of a tool's
// argument struct), using struct tags the way encoding/json does.
func ReflectParameters(argsExample any) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(argsExample)
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var parameters map[string]any
	if err := json.Unmarshal(raw, &parameters); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(parameters, "$schema")
	delete(parameters, "$id")
	return parameters
}

// NewFunctionTool builds a FunctionTool whose Parameters schema is derived
// from argsExample's Go struct shape via ReflectParameters, for callers that
// would rather hand ReflectParameters a struct than hand-write the
// JSON-Schema object themselves.
func NewFunctionTool(
	name string,
	description string,
	argsExample any,
	run func(ctx context.Context, rc RunContextReadOnly, args json.RawMessage) (any, error),
) *FunctionTool {
	return &FunctionTool{
		Name:        name,
		Description: description,
		Parameters:  ReflectParameters(argsExample),
		Func:        run,
	}
}
