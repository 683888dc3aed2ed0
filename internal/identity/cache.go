package identity

import (
	"sync"
	"time"

	"ordertalk/internal/store"
)

// Directory looks up users by id. *store.DB satisfies it.
type Directory interface {
	GetUser(id string) (*store.User, error)
}

// Sender is a resolved sender identity.
type Sender struct {
	Name string
	Role string
}

// Cache is a read-through sender identity cache. It exists so a live
// delivery does not cost a directory lookup for senders already seen
// this session. Entries expire after a TTL to bound staleness, and can
// be invalidated explicitly when a profile is edited.
type Cache struct {
	dir Directory
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	sender    Sender
	fetchedAt time.Time
}

// NewCache creates a cache over dir with the given TTL.
func NewCache(dir Directory, ttl time.Duration) *Cache {
	return &Cache{
		dir:     dir,
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Resolve returns the sender identity for userID. A fresh cache entry is
// returned without touching the directory; otherwise exactly one lookup
// runs and its result is cached. ok is false when the directory has no
// such user.
func (c *Cache) Resolve(userID string) (Sender, bool, error) {
	c.mu.Lock()
	if e, hit := c.entries[userID]; hit && c.now().Sub(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return e.sender, true, nil
	}
	c.mu.Unlock()

	u, err := c.dir.GetUser(userID)
	if err != nil {
		return Sender{}, false, err
	}
	if u == nil {
		return Sender{}, false, nil
	}

	s := Sender{Name: u.FullName, Role: u.Role}
	c.mu.Lock()
	c.entries[userID] = entry{sender: s, fetchedAt: c.now()}
	c.mu.Unlock()
	return s, true, nil
}

// Invalidate drops the cached entry for userID, forcing the next
// Resolve to hit the directory. Called when a profile is edited.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
