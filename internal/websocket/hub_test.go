package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clipcast/api/internal/model"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func receiveOrFail(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHubBroadcastsToClipSubscribers(t *testing.T) {
	h := testHub()
	go h.Run()

	sub := &Client{ClipID: "clip-1", Send: make(chan []byte, 4)}
	other := &Client{ClipID: "clip-2", Send: make(chan []byte, 4)}
	h.Register(sub)
	h.Register(other)

	h.ClipCompleted("clip-1", "https://cdn.example/clips/clip-1.mp3")

	msg := receiveOrFail(t, sub.Send)
	assert.Contains(t, string(msg), model.WSMessageTypeStatus)
	assert.Contains(t, string(msg), "clip-1.mp3")
	assert.Empty(t, other.Send)
}

func TestHubDropsSlowConsumer(t *testing.T) {
	h := testHub()
	go h.Run()

	fast := &Client{ClipID: "clip-1", Send: make(chan []byte, 4)}
	slow := &Client{ClipID: "clip-1", Send: make(chan []byte)}
	h.Register(fast)
	h.Register(slow)

	h.ClipCompleted("clip-1", "https://cdn.example/clips/clip-1.mp3")
	receiveOrFail(t, fast.Send)

	h.ClipFailed("clip-1", "audio synthesis failed: voice unavailable")
	msg := receiveOrFail(t, fast.Send)
	assert.Contains(t, string(msg), model.WSMessageTypeError)

	// Both broadcasts processed; the unbuffered subscriber was dropped
	// on the first one and its channel closed.
	select {
	case _, ok := <-slow.Send:
		assert.False(t, ok, "slow subscriber channel should be closed")
	default:
		t.Fatal("slow subscriber was not dropped")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := testHub()
	go h.Run()

	sub := &Client{ClipID: "clip-1", Send: make(chan []byte, 4)}
	h.Register(sub)
	h.Unregister(sub)

	_, ok := <-sub.Send
	assert.False(t, ok)

	// Unregistering twice is a no-op, not a double close.
	h.Unregister(sub)
	h.ClipFailed("clip-1", "finalize failed: gone")
}
