package tool

import "fmt"

// TransferToolName is the reserved name of the agent handoff tool.
const TransferToolName = "transfer_to_agent"

// transferTool requests a handoff to one of a fixed set of target agents.
// Each agent gets its own instance, restricted to its declared handoffs.
type transferTool struct {
	targets []string
}

// NewTransferTool constructs the handoff tool for the given allowed targets.
func NewTransferTool(targets []string) Tool {
	return &transferTool{targets: targets}
}

func (t *transferTool) Name() string { return TransferToolName }

func (t *transferTool) Description() string {
	return "Transfer the conversation to another agent better suited to help. " +
		"Use when the request falls outside your responsibilities."
}

func (t *transferTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_name": map[string]any{
				"type":        "string",
				"description": "Name of the agent to transfer to",
				"enum":        t.targets,
			},
		},
		"required": []string{"agent_name"},
	}
}

func (t *transferTool) Call(tc *Context, args map[string]any) (any, error) {
	raw, ok := args["agent_name"]
	if !ok {
		return nil, &ToolError{
			Tool:    t.Name(),
			Message: "missing required field 'agent_name'",
			Code:    "VALIDATION_ERROR",
		}
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return nil, &ToolError{
			Tool:    t.Name(),
			Message: "field 'agent_name' must be a non-empty string",
			Code:    "VALIDATION_ERROR",
		}
	}
	for _, allowed := range t.targets {
		if name == allowed {
			tc.RequestTransfer(name)
			return map[string]any{"transferred": true, "agent": name}, nil
		}
	}
	return nil, &ToolError{
		Tool:    t.Name(),
		Message: fmt.Sprintf("agent %q is not a permitted transfer target", name),
		Code:    "VALIDATION_ERROR",
	}
}
