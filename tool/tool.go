// Package tool defines the callable tool contract exposed to language models,
// including argument validation and the execution context handed to
// implementations.
package tool

import "fmt"

// Tool is a named, schema-described function a model may invoke during a turn.
type Tool interface {
	// Name returns the unique tool name used in function call declarations.
	Name() string
	// Description returns the natural language description shown to models.
	Description() string
	// Parameters returns a minimal JSON-Schema-like map of accepted arguments.
	Parameters() map[string]any
	// Call validates args and executes the tool.
	Call(tc *Context, args map[string]any) (any, error)
}

// ToolError is the uniform failure type returned by tool execution.
//
// Codes:
//
//	VALIDATION_ERROR - arguments did not match the declared schema
//	EXECUTION_ERROR  - the implementation returned a plain error
//
// Implementations may return *ToolError directly to preserve custom codes.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed [%s]: %s", e.Tool, e.Code, e.Message)
}
