package realtime

import (
	"encoding/json"
	"testing"
)

func TestHubPresenceFollowsRegistration(t *testing.T) {
	hub := NewHub()
	if hub.IsOnline("u1") {
		t.Fatal("user must start offline")
	}

	first := NewClient(hub, nil, "u1")
	second := NewClient(hub, nil, "u1")
	hub.Register(first)
	hub.Register(second)
	if !hub.IsOnline("u1") {
		t.Fatal("registered user must be online")
	}

	hub.Unregister(first)
	if !hub.IsOnline("u1") {
		t.Fatal("user stays online while one socket remains")
	}
	hub.Unregister(second)
	if hub.IsOnline("u1") {
		t.Fatal("user must be offline after last socket closes")
	}
}

func TestHubBroadcastTargetsListedUsersOnly(t *testing.T) {
	hub := NewHub()
	member := NewClient(hub, nil, "u1")
	bystander := NewClient(hub, nil, "u2")
	hub.Register(member)
	hub.Register(bystander)

	hub.Broadcast([]string{"u1", "u3"}, map[string]string{"type": "message:new"})

	select {
	case payload := <-member.send:
		var event map[string]string
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if event["type"] != "message:new" {
			t.Fatalf("unexpected event %v", event)
		}
	default:
		t.Fatal("member did not receive the event")
	}

	select {
	case <-bystander.send:
		t.Fatal("bystander must not receive the event")
	default:
	}
}

func TestHubBroadcastDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "u1")
	client.send = make(chan []byte) // unbuffered, nobody reading
	hub.Register(client)

	hub.Broadcast([]string{"u1"}, "ping")

	if hub.IsOnline("u1") {
		t.Fatal("blocked client must be evicted")
	}
}

func TestHubUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "u1")
	hub.Unregister(client)

	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // double unregister must not close twice
}
