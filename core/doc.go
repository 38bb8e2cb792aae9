// Package core defines the shared data model of the assistant: role-based
// conversation content built from a closed set of part types, the engine's
// streaming Event union, and the durable ConversationState that carries a
// conversation across turns.
package core
