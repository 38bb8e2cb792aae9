// Package session persists per-conversation state between turns. Entries are
// keyed by user and conversation, expire after a fixed TTL and are replaced
// wholesale at the end of each completed turn (last writer wins).
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/zentist/clinicdesk/core"
)

// DefaultTTL is how long an idle conversation stays resumable.
const DefaultTTL = time.Hour

// Key builds the storage key for a (user, conversation) pair. The format is
// part of the stored contract.
func Key(userID, conversationID string) string {
	return fmt.Sprintf("user_session:%s:%s", userID, conversationID)
}

// Store loads and saves conversation state.
//
// Load returns found=false for absent or expired entries; that is not an
// error. Save overwrites unconditionally and resets the TTL.
type Store interface {
	Load(ctx context.Context, userID, conversationID string) (state core.ConversationState, found bool, err error)
	Save(ctx context.Context, userID, conversationID string, state core.ConversationState) error
}
