package live

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "session1",
	}

	hub.register <- client

	hub.Notify("session1", "entry", 2)

	select {
	case got := <-client.Send:
		var ev Event
		if err := json.Unmarshal(got, &ev); err != nil {
			t.Fatalf("bad event payload: %v", err)
		}
		if ev.Action != "entry" || ev.Index != 2 {
			t.Fatalf("expected entry/2, got %s/%d", ev.Action, ev.Index)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	hub.unregister <- client
}

func TestHubRoomIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := &Client{Send: make(chan []byte, 10), Room: "a"}
	b := &Client{Send: make(chan []byte, 10), Room: "b"}
	hub.register <- a
	hub.register <- b

	hub.Notify("a", "title", -1)

	select {
	case <-a.Send:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for event in room a")
	}

	select {
	case got := <-b.Send:
		t.Fatalf("room b should not receive room a events, got %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}
