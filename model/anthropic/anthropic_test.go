package anthropic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentist/clinicdesk/core"
	"github.com/zentist/clinicdesk/model"
)

func TestSendDelivers(t *testing.T) {
	out := make(chan model.Response, 1)

	ok := send(context.Background(), out, model.Response{
		Content: core.NewAssistantContent("hi"),
	})
	require.True(t, ok)

	resp := <-out
	assert.Equal(t, "hi", resp.Content.Text())
}

func TestSendUnblocksOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered and never read: only cancellation can release the send.
	out := make(chan model.Response)

	done := make(chan bool, 1)
	go func() {
		done <- send(ctx, out, model.Response{Content: core.NewAssistantContent("hi")})
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send did not return after cancellation")
	}
}
