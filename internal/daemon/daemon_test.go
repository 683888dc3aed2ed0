package daemon

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"ordertalk/internal/attach"
	"ordertalk/internal/bus"
	"ordertalk/internal/chat"
	"ordertalk/internal/identity"
	"ordertalk/internal/lock"
	"ordertalk/internal/store"
)

type discardBlobStore struct{}

func (discardBlobStore) Put(_ context.Context, _ string, r io.Reader, _ int64, _ string) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (discardBlobStore) PublicURL(key string) string { return "https://blobs.example/" + key }

// TestComponentsEndToEnd wires the subsystem the way the fx module does,
// minus the real object store, and drives one send through the live
// connection.
func TestComponentsEndToEnd(t *testing.T) {
	dataDir := t.TempDir()

	lk, err := lock.Acquire(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	db, err := store.Open(filepath.Join(dataDir, "ordertalk.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if err := db.UpsertUser(&store.User{ID: "u1", FullName: "Ada", Role: "consumer"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertUser(&store.User{ID: "m1", FullName: "Grace", Role: "merchant"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertOrder(&store.Order{ID: "ORD-1", ConsumerID: "u1", MerchantID: "m1"}); err != nil {
		t.Fatal(err)
	}

	logger := zap.NewNop()
	b := bus.New()
	svc := chat.NewService(db, b,
		attach.NewEncoder(discardBlobStore{}, "chat", logger),
		identity.NewStaticProvider("u1"),
		identity.NewCache(db, time.Minute),
		logger)

	conn, err := svc.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	got := make(chan *chat.Message, 1)
	conn.OnMessage(func(m *chat.Message) { got <- m })

	conv, err := svc.GetOrCreateConversation(context.Background(), "ORD-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendMessage(context.Background(), conv.ID, "", "it works", store.KindText, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-got:
		if m.Body != "it works" || m.SenderName != "Ada" {
			t.Errorf("delivered = %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery")
	}
}
