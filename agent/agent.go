// Package agent defines the conversational agents the assistant routes
// between, and the registry that validates their handoff topology.
package agent

import (
	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/model"
	"github.com/zentist/clinicdesk/tool"
)

// Instructions resolves an agent's system prompt for a given user. Prompts
// embed the patient's identity and the current date, so they are built per
// turn rather than fixed at registration.
type Instructions interface {
	Resolve(user auth.User) string
}

// InstructionsFunc adapts a function to the Instructions interface.
type InstructionsFunc func(user auth.User) string

// Resolve implements Instructions.
func (f InstructionsFunc) Resolve(user auth.User) string { return f(user) }

// StaticInstructions is a fixed prompt independent of the user.
type StaticInstructions string

// Resolve implements Instructions.
func (s StaticInstructions) Resolve(auth.User) string { return string(s) }

// Agent bundles a named persona: its prompt, its tools, the agents it may
// hand off to, and the model that drives it.
type Agent struct {
	Name         string
	Description  string
	Instructions Instructions
	Tools        []tool.Tool
	Handoffs     []string
	Model        model.Model
}

// EffectiveTools returns the agent's declared tools plus, when the agent has
// handoff targets, the transfer tool restricted to those targets.
func (a *Agent) EffectiveTools() []tool.Tool {
	if len(a.Handoffs) == 0 {
		return a.Tools
	}
	tools := make([]tool.Tool, 0, len(a.Tools)+1)
	tools = append(tools, a.Tools...)
	tools = append(tools, tool.NewTransferTool(a.Handoffs))
	return tools
}

// ToolDefinitions renders the effective tool set in the declarative form
// models consume.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	tools := a.EffectiveTools()
	if len(tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}
	return defs
}

// FindTool returns the effective tool with the given name.
func (a *Agent) FindTool(name string) (tool.Tool, bool) {
	for _, t := range a.EffectiveTools() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
