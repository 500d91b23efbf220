package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAfterCloseDoesNotPanic(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, 7)

	client.Close()
	client.Close() // idempotent

	// The read pump may still be inside a frame handler when the hub drops
	// the connection; queuing a reply must be a silent no-op, not a panic
	require.NotPanics(t, func() {
		client.sendError("invalid frame")
	})
	assert.False(t, client.enqueue([]byte("frame")))
}

func TestEnqueueReportsFullBuffer(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, 7)

	for i := 0; i < cap(client.send); i++ {
		require.True(t, client.enqueue([]byte("frame")))
	}
	assert.False(t, client.enqueue([]byte("overflow")))
}

func TestReplacedConnectionCanStillQueueReplies(t *testing.T) {
	hub := NewHub(nil)
	old := NewClient(hub, nil, 7)
	replacement := NewClient(hub, nil, 7)

	hub.registerClient(old)
	hub.registerClient(replacement)

	require.NotPanics(t, func() {
		old.sendError("unknown frame type")
	})
	assert.False(t, old.enqueue([]byte("frame")))
	assert.True(t, replacement.enqueue([]byte("frame")))
}
