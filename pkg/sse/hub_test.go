package sse

import (
	"testing"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case data := <-c.Events():
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestBroadcastIsScopedToSessionRoom(t *testing.T) {
	h := NewHub()
	a := NewClient("c1", "s1", "u1")
	b := NewClient("c2", "s1", "u2")
	other := NewClient("c3", "s2", "u3")
	h.Register(a)
	h.Register(b)
	h.Register(other)

	if sent := h.BroadcastToSession("s1", []byte("hello")); sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	if got := drain(a); len(got) != 1 || string(got[0]) != "hello" {
		t.Errorf("client a got %q", got)
	}
	if got := drain(b); len(got) != 1 {
		t.Errorf("client b got %d events, want 1", len(got))
	}
	if got := drain(other); len(got) != 0 {
		t.Errorf("client in another room got %d events, want 0", len(got))
	}
}

func TestSendToConnection(t *testing.T) {
	h := NewHub()
	a := NewClient("c1", "s1", "u1")
	b := NewClient("c2", "s1", "u2")
	h.Register(a)
	h.Register(b)

	if !h.SendToConnection("c1", []byte("private")) {
		t.Fatal("send to live connection failed")
	}
	if got := drain(a); len(got) != 1 || string(got[0]) != "private" {
		t.Errorf("client a got %q", got)
	}
	if got := drain(b); len(got) != 0 {
		t.Errorf("unicast leaked to another connection: %q", got)
	}
	if h.SendToConnection("gone", []byte("x")) {
		t.Error("send to unknown connection reported success")
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	a := NewClient("c1", "s1", "u1")
	h.Register(a)

	for i := 0; i < cap(a.events); i++ {
		if !h.SendToConnection("c1", []byte("fill")) {
			t.Fatalf("send %d failed before the channel was full", i)
		}
	}
	// channel is full now; the hub must not block
	if h.SendToConnection("c1", []byte("overflow")) {
		t.Error("send to full channel reported success")
	}
	if sent := h.BroadcastToSession("s1", []byte("overflow")); sent != 0 {
		t.Errorf("broadcast to full channel sent = %d, want 0", sent)
	}
}

func TestUnregister(t *testing.T) {
	h := NewHub()
	a := NewClient("c1", "s1", "u1")
	h.Register(a)
	h.Unregister(a)
	h.Unregister(a) // idempotent

	if h.SendToConnection("c1", []byte("x")) {
		t.Error("send to unregistered connection reported success")
	}
	if ids := h.SessionConnections("s1"); len(ids) != 0 {
		t.Errorf("room not emptied: %v", ids)
	}
	// the events channel is closed so the serving loop exits
	if _, open := <-a.Events(); open {
		t.Error("events channel still open after unregister")
	}
}

// A worshipper can disconnect while a cycle is unicasting to them. The send
// must observe either a live channel or an absent client, never a closed
// channel (which would panic the process).
func TestSendToConnectionDuringDisconnect(t *testing.T) {
	h := NewHub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			h.SendToConnection("c1", []byte("event"))
		}
	}()

	for i := 0; i < 10000; i++ {
		c := NewClient("c1", "s1", "u1")
		h.Register(c)
		h.Unregister(c)
	}
	<-done
}

func TestCloseRejectsNewRegistrations(t *testing.T) {
	h := NewHub()
	a := NewClient("c1", "s1", "u1")
	h.Register(a)
	h.Close()
	h.Close() // idempotent

	if _, open := <-a.Events(); open {
		t.Error("events channel still open after hub close")
	}

	late := NewClient("c2", "s1", "u2")
	h.Register(late)
	if _, open := <-late.Events(); open {
		t.Error("late registration was accepted by a closed hub")
	}
}
