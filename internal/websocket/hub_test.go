package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"archelon-assistant-be/internal/model"
	"archelon-assistant-be/internal/pkg/logger"

	"github.com/google/uuid"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, logger.Noop{})
	go h.Run()
	return h
}

func registerClient(t *testing.T, h *Hub, userID uuid.UUID, buffer int) *Client {
	t.Helper()
	client := &Client{Hub: h, UserID: userID, Send: make(chan []byte, buffer)}
	h.register <- client

	deadline := time.After(2 * time.Second)
	for {
		h.mu.RLock()
		registered := len(h.clients[userID]) > 0
		h.mu.RUnlock()
		if registered {
			return client
		}
		select {
		case <-deadline:
			t.Fatal("client was not registered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func localClientCount(h *Hub, userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func TestSlowClientIsDroppedWithoutPanic(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	client := registerClient(t, h, userID, 1)

	// The first send fills the 1-slot buffer; the second overflows it and must
	// drop the client through the unregister loop, not by closing its channel
	// in place. A double close here kills the Run goroutine.
	h.Send(userID, model.Notification{Title: "first"})
	h.Send(userID, model.Notification{Title: "second"})

	select {
	case msg, ok := <-client.Send:
		if !ok {
			t.Fatal("buffered message lost before close")
		}
		if len(msg) == 0 {
			t.Error("empty message delivered")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("buffered message never delivered")
	}

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("unexpected extra message on a dropped client")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send channel was not closed after drop")
	}

	if n := localClientCount(h, userID); n != 0 {
		t.Errorf("client count after drop = %d, want 0", n)
	}

	// The Run goroutine must still be alive to serve registrations.
	registerClient(t, h, uuid.New(), 1)
}

func TestRepeatedUnregisterClosesOnce(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	client := registerClient(t, h, userID, 1)

	// readPump and a full-buffer drop can both hand the same client to the
	// unregister loop; the second pass must find nothing to close.
	h.unregister <- client
	h.unregister <- client

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("unexpected message on unregistered client")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send channel was not closed")
	}

	// Still alive.
	registerClient(t, h, uuid.New(), 1)
}

func clusterPayload(t *testing.T, origin string, userID uuid.UUID, title string) []byte {
	t.Helper()
	message, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": model.Notification{Title: title},
	})
	raw, err := json.Marshal(map[string]interface{}{
		"origin":         origin,
		"target_user_id": userID.String(),
		"message":        json.RawMessage(message),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestOwnClusterPublicationsAreNotRedelivered(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	client := registerClient(t, h, userID, 4)

	// A message this instance published has already been delivered locally by
	// Send; the relay must skip it or every local client sees it twice.
	h.relayClusterMessage(clusterPayload(t, h.instanceId, userID, "own"))

	select {
	case <-client.Send:
		t.Fatal("own publication was redelivered locally")
	case <-time.After(100 * time.Millisecond):
	}

	h.relayClusterMessage(clusterPayload(t, uuid.NewString(), userID, "remote"))

	select {
	case msg := <-client.Send:
		var decoded struct {
			Data model.Notification `json:"data"`
		}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("relayed message is not the notification JSON: %v", err)
		}
		if decoded.Data.Title != "remote" {
			t.Errorf("relayed title = %q", decoded.Data.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("foreign publication was not relayed")
	}
}

func TestRelayIgnoresMalformedPayloads(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	client := registerClient(t, h, userID, 4)

	h.relayClusterMessage([]byte("not json"))
	h.relayClusterMessage(clusterPayload(t, uuid.NewString(), userID, "")[:10])

	raw, _ := json.Marshal(map[string]interface{}{
		"origin":         uuid.NewString(),
		"target_user_id": "not-a-uuid",
		"message":        json.RawMessage(`{}`),
	})
	h.relayClusterMessage(raw)

	select {
	case <-client.Send:
		t.Fatal("malformed payload reached a client")
	case <-time.After(100 * time.Millisecond):
	}
}
