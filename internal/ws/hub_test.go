package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/events"
	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, topics ...string) *Client {
	return &Client{
		hub:    hub,
		topics: topics,
		send:   make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func publish(t *testing.T, hub *Hub, typ string, payload string, topics ...string) {
	t.Helper()
	e := events.Event{Type: typ, Topics: topics, Payload: json.RawMessage(payload)}
	if err := hub.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)

	topic := events.OutletTopic(uuid.NewString())
	client := mockClient(hub, topic)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[topic] == nil {
		t.Fatal("room not created")
	}
	if !hub.rooms[topic][client] {
		t.Fatal("client not registered in room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)

	topic := events.OutletTopic(uuid.NewString())
	client := mockClient(hub, topic)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.Subscribers(topic) != 0 {
		t.Fatal("room not cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestBroadcastToSingleTopic(t *testing.T) {
	hub := startHub(t)

	topic1 := events.OutletTopic(uuid.NewString())
	topic2 := events.OutletTopic(uuid.NewString())

	client1 := mockClient(hub, topic1)
	client2 := mockClient(hub, topic2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	testPayload := `{"id":"test-123"}`
	publish(t, hub, events.TypeOrderCreated, testPayload, topic1)

	select {
	case msg := <-client1.send:
		var received Message
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != events.TypeOrderCreated {
			t.Errorf("expected type %q, got %q", events.TypeOrderCreated, received.Type)
		}
		if received.Topic != topic1 {
			t.Errorf("expected topic %q, got %q", topic1, received.Topic)
		}
		if string(received.Payload) != testPayload {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToMultipleClientsInSameRoom(t *testing.T) {
	hub := startHub(t)

	topic := events.CollectionTopic("menu")
	clients := []*Client{mockClient(hub, topic), mockClient(hub, topic), mockClient(hub, topic)}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	publish(t, hub, events.TypeCollectionChanged, `{"collection":"menu"}`, topic)

	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Message
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != events.TypeCollectionChanged {
				t.Errorf("client%d: got type %q", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestClientInSeveralRoomsGetsOneCopy(t *testing.T) {
	hub := startHub(t)

	orderTopic := events.OrderTopic("o1")
	outletTopic := events.OutletTopic("x")
	client := mockClient(hub, orderTopic, outletTopic)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	publish(t, hub, events.TypeOrderStatusChanged, `{"status":"ACCEPTED"}`, orderTopic, outletTopic)

	select {
	case <-client.send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
	select {
	case <-client.send:
		t.Fatal("client received the same event twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)

	topic := events.OutletTopic(uuid.NewString())
	client1 := mockClient(hub, topic)
	client2 := mockClient(hub, topic)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	if n := hub.Subscribers(topic); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)
	if n := hub.Subscribers(topic); n != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", n)
	}

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[topic] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	hub := startHub(t)

	client1 := mockClient(hub, events.OutletTopic("a"))
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	publish(t, hub, events.TypeOrderCreated, `{"test":"data"}`, events.OutletTopic("b"))

	select {
	case <-client1.send:
		t.Fatal("client should not receive message for different topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, events.OrderTopic("o1"))
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("client channel should be closed on shutdown")
	}
}

func TestHubStopped_DoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	topic := events.OrderTopic(uuid.NewString())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if hub.Register(mockClient(hub, topic)) {
			t.Error("register after shutdown should report false")
		}
		hub.Unregister(mockClient(hub, topic))
		for i := 0; i < 300; i++ {
			if err := hub.Publish(context.Background(), events.Event{Type: "t", Topics: []string{topic}}); err != nil {
				if !errors.Is(err, ErrHubClosed) {
					t.Errorf("publish: got %v, want ErrHubClosed", err)
				}
				return
			}
		}
		t.Error("publish never reported the closed hub")
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("calls on a stopped hub blocked")
	}
}

func TestCanSubscribe(t *testing.T) {
	manager := &auth.Claims{UserID: "m1", Role: enum.RoleManager, OutletID: "o1"}
	admin := &auth.Claims{UserID: "sa", Role: enum.RoleSuperAdmin}
	customer := &auth.Claims{UserID: "c1", Role: enum.RoleCustomer}

	tests := []struct {
		name   string
		claims *auth.Claims
		topic  string
		want   bool
	}{
		{"guest tracks order", nil, "order:abc", true},
		{"guest outlet feed", nil, "outlet:o1", false},
		{"manager own outlet", manager, "outlet:o1", true},
		{"manager other outlet", manager, "outlet:o2", false},
		{"admin any outlet", admin, "outlet:o2", true},
		{"customer outlet feed", customer, "outlet:o1", false},
		{"guest menu changes", nil, "collection:menu", true},
		{"guest inventory changes", nil, "collection:inventory", false},
		{"manager inventory changes", manager, "collection:inventory", true},
		{"malformed", admin, "outlet", false},
		{"unknown kind", admin, "user:u1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanSubscribe(tt.claims, tt.topic); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
