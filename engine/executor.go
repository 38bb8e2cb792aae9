package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zentist/clinicdesk/agent"
	"github.com/zentist/clinicdesk/core"
	"github.com/zentist/clinicdesk/logging"
	"github.com/zentist/clinicdesk/tool"
)

func newToolContext(
	ctx context.Context,
	req TurnRequest,
	callID, agentName string,
	logger logging.Logger,
) *tool.Context {
	return tool.NewContext(ctx, req.ConversationID, callID, agentName, req.User, logger)
}

// executeTool resolves and invokes the named tool. Panics are converted to
// execution errors so a misbehaving tool fails its call, not the turn.
func (e *Engine) executeTool(
	tc *tool.Context,
	active *agent.Agent,
	fc core.FunctionCall,
) (result any, err error) {
	t, ok := active.FindTool(fc.Name)
	if !ok {
		return nil, &tool.ToolError{
			Tool:    fc.Name,
			Message: fmt.Sprintf("agent %s has no tool named %s", active.Name, fc.Name),
			Code:    "UNKNOWN_TOOL",
		}
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if jsonErr := json.Unmarshal([]byte(fc.Arguments), &args); jsonErr != nil {
			return nil, &tool.ToolError{
				Tool:    fc.Name,
				Message: fmt.Sprintf("arguments are not valid JSON: %v", jsonErr),
				Code:    "VALIDATION_ERROR",
			}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine.tool.panic", "tool", fc.Name, "panic", fmt.Sprintf("%v", r))
			result = nil
			err = &tool.ToolError{
				Tool:    fc.Name,
				Message: fmt.Sprintf("panic during execution: %v", r),
				Code:    "EXECUTION_ERROR",
			}
		}
	}()

	return t.Call(tc, args)
}
