package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the engine-native streaming unit emitted while a turn executes.
// After emission it should be treated as immutable. Exactly one of the
// semantic shapes applies:
//
//   - text delta: Content with a text part and Partial = true
//   - full message: Content with a text part and Partial = false
//   - function call: Content carrying FunctionCallParts
//   - function response: Content carrying FunctionResponseParts
//   - handoff: Handoff set to the name of the new active agent
//
// The server-side translator maps these onto the external wire protocol;
// shapes it does not recognize are dropped there, not here.
type Event struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"` // agent name, "user" or "system"
	Timestamp time.Time `json:"timestamp"`
	Content   *Content  `json:"content,omitempty"`
	Partial   bool      `json:"partial,omitempty"`
	Handoff   string    `json:"handoff,omitempty"` // new active agent name, when set
}

// NewID generates a unique identifier for events and function calls.
func NewID() string { return uuid.NewString() }

// NewEvent creates a bare event authored by author.
func NewEvent(author string) Event {
	return Event{ID: NewID(), Author: author, Timestamp: time.Now().UTC()}
}

// NewTextDeltaEvent creates a partial assistant text fragment.
func NewTextDeltaEvent(author, delta string) Event {
	e := NewEvent(author)
	e.Partial = true
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: delta}}}
	return e
}

// NewMessageEvent creates a complete assistant message event.
func NewMessageEvent(author string, content Content) Event {
	e := NewEvent(author)
	e.Content = &content
	return e
}

// NewFunctionCallEvent wraps an assistant content carrying function calls.
func NewFunctionCallEvent(author string, calls ...FunctionCall) Event {
	e := NewEvent(author)
	parts := make([]Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, FunctionCallPart{FunctionCall: fc})
	}
	e.Content = &Content{Role: "assistant", Parts: parts}
	return e
}

// NewFunctionResponseEvent records the completion result (or error) of a tool
// invocation. If err is non-nil its message is copied into the response.
func NewFunctionResponseEvent(author, id, name string, result any, err error) Event {
	e := NewEvent(author)
	fr := FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewHandoffEvent signals that control transferred to the named agent.
func NewHandoffEvent(author, newAgent string) Event {
	e := NewEvent(author)
	e.Handoff = newAgent
	return e
}

// FunctionCalls returns function call parts contained in the event content.
func (e Event) FunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	return e.Content.FunctionCalls()
}

// FunctionResponses returns function response parts contained in the event content.
func (e Event) FunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	return e.Content.FunctionResponses()
}

// IsFinalResponse reports whether this event completes an assistant turn:
// a non-partial message with no pending function calls or responses and no
// handoff in flight.
func (e Event) IsFinalResponse() bool {
	return !e.Partial &&
		e.Handoff == "" &&
		len(e.FunctionCalls()) == 0 &&
		len(e.FunctionResponses()) == 0
}
