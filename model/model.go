package model

import (
	"context"
	"sync"

	"github.com/zentist/clinicdesk/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual tool exposed to the model.
// Parameters is a minimal JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the engine.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model backend.
type Response struct {
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason,omitempty"` // "stop", "tool_calls", ...
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the engine to drive generation.
// Generate returns a response channel and an error channel; both are closed
// when the call completes. Implementations must honor ctx cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// ScriptedModel is an in-memory Model that replays queued response sequences,
// one sequence per Generate call, in FIFO order. Used by tests to drive the
// engine through multi-step turns (tool calls, handoffs) deterministically.
type ScriptedModel struct {
	mu       sync.Mutex
	script   [][]Response
	requests []Request
}

// NewScriptedModel constructs an empty scripted model.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// Enqueue appends one Generate call's worth of responses to the script.
func (m *ScriptedModel) Enqueue(responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses)
}

// EnqueueText is a convenience for a streamed text answer: one partial delta
// per fragment followed by the aggregated final response.
func (m *ScriptedModel) EnqueueText(fragments ...string) {
	var full string
	responses := make([]Response, 0, len(fragments)+1)
	for _, f := range fragments {
		full += f
		responses = append(responses, Response{
			Partial: true,
			Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: f}}},
		})
	}
	responses = append(responses, Response{
		Content:      core.NewAssistantContent(full),
		FinishReason: "stop",
	})
	m.Enqueue(responses...)
}

// EnqueueFunctionCall queues a final response requesting the given tool calls.
func (m *ScriptedModel) EnqueueFunctionCall(calls ...core.FunctionCall) {
	parts := make([]core.Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	m.Enqueue(Response{
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: "tool_calls",
	})
}

// Requests returns a copy of every Request seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model by replaying the next scripted sequence.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var responses []Response
	if len(m.script) > 0 {
		responses = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if responses == nil {
			// Out of script: answer with a fixed final message so runaway
			// loops terminate instead of deadlocking the test.
			responses = []Response{{
				Content:      core.NewAssistantContent("(script exhausted)"),
				FinishReason: "stop",
			}}
		}
		for _, r := range responses {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- r:
			}
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "test", SupportsTools: true}
}
