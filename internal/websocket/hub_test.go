package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, nopLogger{})
	go hub.Run()
	return hub
}

func registerClient(t *testing.T, hub *Hub, sessionKey string, buffer int) *Client {
	t.Helper()
	client := &Client{Hub: hub, SessionKey: sessionKey, Send: make(chan []byte, buffer)}
	hub.Register(client)
	require.Eventually(t, func() bool {
		return hub.clientCount(sessionKey) == 1
	}, time.Second, 5*time.Millisecond)
	return client
}

func (h *Hub) clientCount(sessionKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionKey])
}

func assertClosed(t *testing.T, send chan []byte) {
	t.Helper()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-send:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHubDeliversToSession(t *testing.T) {
	hub := newRunningHub(t)
	target := registerClient(t, hub, "s1", 4)
	other := registerClient(t, hub, "s2", 4)

	hub.SendToSession("s1", map[string]string{"type": "event"})

	select {
	case data := <-target.Send:
		assert.Contains(t, string(data), "event")
	case <-time.After(time.Second):
		t.Fatal("expected frame for session s1")
	}
	assert.Empty(t, other.Send)
}

func TestHubDropsStalledClientsOnBroadcast(t *testing.T) {
	hub := newRunningHub(t)

	// Two clients with full buffers in one broadcast pass. Each must be
	// dropped once, without wedging the hub or closing a channel twice.
	stalled1 := registerClient(t, hub, "s1", 1)
	stalled2 := registerClient(t, hub, "s2", 1)
	stalled1.Send <- []byte("backlog")
	stalled2.Send <- []byte("backlog")

	hub.Broadcast(map[string]string{"type": "event"})

	require.Eventually(t, func() bool {
		return hub.clientCount("s1") == 0 && hub.clientCount("s2") == 0
	}, time.Second, 5*time.Millisecond)
	assertClosed(t, stalled1.Send)
	assertClosed(t, stalled2.Send)

	// The hub is still serviceable after the drops.
	healthy := registerClient(t, hub, "s3", 4)
	hub.Broadcast(map[string]string{"type": "event"})
	select {
	case <-healthy.Send:
	case <-time.After(time.Second):
		t.Fatal("expected frame after stalled clients were dropped")
	}
}

func TestSendJSONFullBufferDropsClientOnce(t *testing.T) {
	hub := newRunningHub(t)
	client := registerClient(t, hub, "s1", 1)
	client.Send <- []byte("backlog")

	client.SendJSON(map[string]string{"type": "delta"})

	require.Eventually(t, func() bool {
		return hub.clientCount("s1") == 0
	}, time.Second, 5*time.Millisecond)
	assertClosed(t, client.Send)

	// A late write after the drop is a no-op, not a panic.
	client.SendJSON(map[string]string{"type": "delta"})
}
