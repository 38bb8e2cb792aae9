package tool

import (
	"context"

	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/logging"
)

// Context is the constrained surface handed to tool implementations. It
// carries request-scoped identity plus a transfer signal the engine inspects
// after each call.
type Context struct {
	ctx            context.Context
	conversationID string
	callID         string
	agentName      string
	user           auth.User
	logger         logging.Logger

	transferTarget string
}

// NewContext binds a tool invocation to its conversation, function call ID
// and authenticated user.
func NewContext(
	ctx context.Context,
	conversationID, callID, agentName string,
	user auth.User,
	logger logging.Logger,
) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{
		ctx:            ctx,
		conversationID: conversationID,
		callID:         callID,
		agentName:      agentName,
		user:           user,
		logger:         logger,
	}
}

// Context returns the context governing the invocation.
func (tc *Context) Context() context.Context { return tc.ctx }

// ConversationID returns the owning conversation's ID.
func (tc *Context) ConversationID() string { return tc.conversationID }

// CallID returns the function call ID correlating model request and execution.
func (tc *Context) CallID() string { return tc.callID }

// AgentName returns the name of the agent that requested the call.
func (tc *Context) AgentName() string { return tc.agentName }

// User returns the authenticated principal on whose behalf the tool runs.
func (tc *Context) User() auth.User { return tc.user }

// Logger returns the request-scoped logger.
func (tc *Context) Logger() logging.Logger { return tc.logger }

// RequestTransfer signals that control should move to the named agent once
// the current batch of tool calls completes.
func (tc *Context) RequestTransfer(agentName string) {
	tc.transferTarget = agentName
	tc.logger.Info("tool.transfer.request",
		"from_agent", tc.agentName, "to_agent", agentName, "call_id", tc.callID)
}

// TransferTarget reports the requested transfer target, if any.
func (tc *Context) TransferTarget() (string, bool) {
	return tc.transferTarget, tc.transferTarget != ""
}
