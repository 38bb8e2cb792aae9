package core

// ConversationState is the unit of durable session memory for one
// (user, conversation) pair. History is ordered chronologically and replaced
// wholesale at the end of each completed turn; ActiveAgent names the agent
// that should handle the next user message.
//
// The JSON field names are part of the stored format: changing them orphans
// every live session.
type ConversationState struct {
	History     []Content `json:"chat_history"`
	ActiveAgent string    `json:"last_agent_name"`
}

// Clone returns a deep enough copy for independent mutation: the history
// slice is copied, part values are immutable by convention.
func (s ConversationState) Clone() ConversationState {
	history := make([]Content, len(s.History))
	copy(history, s.History)
	return ConversationState{History: history, ActiveAgent: s.ActiveAgent}
}

// WithoutToolItems returns history stripped of tool traffic: tool-role
// contents are dropped entirely and function call parts are removed from
// assistant messages. Assistant messages left without parts are dropped too.
// Applied when control hands off between agents so the next agent sees a
// clean conversational transcript.
func WithoutToolItems(history []Content) []Content {
	out := make([]Content, 0, len(history))
	for _, c := range history {
		if c.Role == "tool" {
			continue
		}
		kept := make([]Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			switch p.(type) {
			case FunctionCallPart, FunctionResponsePart:
				continue
			default:
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, Content{Role: c.Role, Parts: kept})
	}
	return out
}
