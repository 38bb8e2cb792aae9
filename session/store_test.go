package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentist/clinicdesk/core"
)

func sampleState() core.ConversationState {
	return core.ConversationState{
		History: []core.Content{
			core.NewUserContent("I need an appointment"),
			core.NewAssistantContent("Of course, when suits you?"),
		},
		ActiveAgent: "Scheduler Agent",
	}
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "user_session:u-1:c-1", Key("u-1", "c-1"))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	_, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))

	state, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Scheduler Agent", state.ActiveAgent)
	require.Len(t, state.History, 2)
	assert.Equal(t, "I need an appointment", state.History[0].Text())
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))

	_, found, err := s.Load(ctx, "u-2", "c-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))

	clock = clock.Add(59 * time.Minute)
	_, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.True(t, found)

	clock = clock.Add(2 * time.Minute)
	_, found, err = s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, s.Len())
}

func TestMemoryStoreSaveResetsTTL(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))
	clock = clock.Add(50 * time.Minute)
	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))
	clock = clock.Add(50 * time.Minute)

	_, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), time.Hour)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))

	state, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Scheduler Agent", state.ActiveAgent)
	require.Len(t, state.History, 2)
}

func TestSQLiteStoreExpiryAndPurge(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), time.Hour)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))
	require.NoError(t, s.Save(ctx, "u-1", "c-2", sampleState()))

	clock = clock.Add(2 * time.Hour)
	_, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.False(t, found)

	// c-1 was deleted on read; the purge removes c-2.
	removed, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSQLiteStoreOverwriteWins(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), time.Hour)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "u-1", "c-1", sampleState()))

	updated := sampleState()
	updated.ActiveAgent = "Canceling Agent"
	require.NoError(t, s.Save(ctx, "u-1", "c-1", updated))

	state, found, err := s.Load(ctx, "u-1", "c-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Canceling Agent", state.ActiveAgent)
}
