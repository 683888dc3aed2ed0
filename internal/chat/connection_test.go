package chat

import (
	"context"
	"testing"
	"time"

	"ordertalk/internal/bus"
	"ordertalk/internal/store"
)

func waitFor(t *testing.T, ch <-chan *Message) *Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery")
		return nil
	}
}

func expectQuiet(t *testing.T, ch <-chan *Message) {
	t.Helper()
	select {
	case m := <-ch:
		t.Errorf("unexpected delivery: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func openConversation(t *testing.T, f *fixture) *Conversation {
	t.Helper()
	f.seedOrder(t, "ORD-1", "u1", "m1")
	conv, err := f.svc.GetOrCreateConversation(context.Background(), "ORD-1")
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func TestConnectionDeliversNormalizedMessages(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got := make(chan *Message, 1)
	unsub := c.OnMessage(func(m *Message) { got <- m })
	defer unsub()

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "hello", store.KindText, nil); err != nil {
		t.Fatal(err)
	}

	m := waitFor(t, got)
	if m.ConversationID != conv.ID || m.Body != "hello" {
		t.Errorf("delivered = %+v", m)
	}
	if m.SenderName != "Ada" || m.SenderRole != "consumer" {
		t.Errorf("sender = %q/%q, want resolved identity", m.SenderName, m.SenderRole)
	}
}

func TestConnectionListenerOrder(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	done := make(chan struct{}, 1)
	var order []int
	c.OnMessage(func(*Message) { order = append(order, 1) })
	c.OnMessage(func(*Message) { order = append(order, 2) })
	c.OnMessage(func(*Message) {
		order = append(order, 3)
		done <- struct{}{}
	})

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "hi", store.KindText, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for dispatch")
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("dispatch order = %v, want [1 2 3]", order)
	}
}

func TestConnectionUnsubscribeRemovesExactlyOne(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	first := make(chan *Message, 1)
	second := make(chan *Message, 1)
	unsubFirst := c.OnMessage(func(m *Message) { first <- m })
	c.OnMessage(func(m *Message) { second <- m })

	unsubFirst()
	unsubFirst() // calling the same unsubscribe twice is harmless

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "hi", store.KindText, nil); err != nil {
		t.Fatal(err)
	}

	waitFor(t, second)
	expectQuiet(t, first)
}

func TestConnectionCachesSenderResolution(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got := make(chan *Message, 4)
	c.OnMessage(func(m *Message) { got <- m })

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "one", store.KindText, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, got)
	baseline := f.dir.lookups

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "two", store.KindText, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, got)

	if f.dir.lookups != baseline {
		t.Errorf("directory lookups grew from %d to %d on a cached sender", baseline, f.dir.lookups)
	}
}

func TestConnectionDropsUnknownSender(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got := make(chan *Message, 1)
	c.OnMessage(func(m *Message) { got <- m })

	// Simulate a push event whose sender the directory cannot resolve.
	row := &store.Message{ID: "x1", ConversationID: conv.ID, SenderID: "ghost", Body: "boo", Kind: store.KindText}
	if err := f.db.InsertMessage(row); err != nil {
		t.Fatal(err)
	}
	f.bus.Publish(bus.Event{Kind: bus.KindMessageInserted, Timestamp: time.Now(), Payload: row})

	expectQuiet(t, got)
}

func TestConnectionCloseIdempotent(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan *Message, 1)
	c.OnMessage(func(m *Message) { got <- m })

	c.Close()
	c.Close()

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "after close", store.KindText, nil); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, got)
}

func TestTwoConnectionsDeliverIndependently(t *testing.T) {
	f := newFixture(t, "u1")
	conv := openConversation(t, f)

	c1, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()
	c2, err := f.svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	first := make(chan *Message, 1)
	second := make(chan *Message, 1)
	c1.OnMessage(func(m *Message) { first <- m })
	c2.OnMessage(func(m *Message) { second <- m })

	c2.Close()

	if _, err := f.svc.SendMessage(context.Background(), conv.ID, "", "hi", store.KindText, nil); err != nil {
		t.Fatal(err)
	}

	waitFor(t, first)
	expectQuiet(t, second)
}
