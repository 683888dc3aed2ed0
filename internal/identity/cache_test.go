package identity

import (
	"testing"
	"time"

	"ordertalk/internal/store"
)

// countingDirectory records how many lookups hit the directory.
type countingDirectory struct {
	users   map[string]store.User
	lookups int
}

func (d *countingDirectory) GetUser(id string) (*store.User, error) {
	d.lookups++
	if u, ok := d.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func TestResolveCachesLookups(t *testing.T) {
	dir := &countingDirectory{users: map[string]store.User{
		"u1": {ID: "u1", FullName: "Ada", Role: "consumer"},
	}}
	c := NewCache(dir, time.Minute)

	for i := 0; i < 3; i++ {
		s, ok, err := c.Resolve("u1")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("Resolve() ok = false, want true")
		}
		if s.Name != "Ada" || s.Role != "consumer" {
			t.Errorf("sender = %+v", s)
		}
	}

	if dir.lookups != 1 {
		t.Errorf("directory lookups = %d, want 1", dir.lookups)
	}
}

func TestResolveUnknownUser(t *testing.T) {
	dir := &countingDirectory{users: map[string]store.User{}}
	c := NewCache(dir, time.Minute)

	_, ok, err := c.Resolve("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Resolve() ok = true for unknown user")
	}

	// Not-found results are not cached: each attempt retries the directory.
	if _, _, err := c.Resolve("ghost"); err != nil {
		t.Fatal(err)
	}
	if dir.lookups != 2 {
		t.Errorf("directory lookups = %d, want 2", dir.lookups)
	}
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	dir := &countingDirectory{users: map[string]store.User{
		"u1": {ID: "u1", FullName: "Ada", Role: "consumer"},
	}}
	c := NewCache(dir, time.Minute)

	clock := time.Now()
	c.now = func() time.Time { return clock }

	if _, _, err := c.Resolve("u1"); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(2 * time.Minute)
	dir.users["u1"] = store.User{ID: "u1", FullName: "Ada Lovelace", Role: "consumer"}

	s, ok, err := c.Resolve("u1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || s.Name != "Ada Lovelace" {
		t.Errorf("sender after expiry = %+v, want refreshed name", s)
	}
	if dir.lookups != 2 {
		t.Errorf("directory lookups = %d, want 2", dir.lookups)
	}
}

func TestInvalidate(t *testing.T) {
	dir := &countingDirectory{users: map[string]store.User{
		"u1": {ID: "u1", FullName: "Ada", Role: "consumer"},
	}}
	c := NewCache(dir, time.Hour)

	if _, _, err := c.Resolve("u1"); err != nil {
		t.Fatal(err)
	}
	c.Invalidate("u1")
	if _, _, err := c.Resolve("u1"); err != nil {
		t.Fatal(err)
	}

	if dir.lookups != 2 {
		t.Errorf("directory lookups = %d, want 2", dir.lookups)
	}
}
