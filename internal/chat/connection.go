package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ordertalk/internal/bus"
	"ordertalk/internal/identity"
	"ordertalk/internal/store"
)

// Listener receives normalized messages from the live stream.
type Listener func(*Message)

// Connection is an owned subscription to the message-insert event
// stream. Its lifetime belongs to the caller: open via Service.Connect,
// close on every exit path. Events arrive for the whole message table;
// scoping to "conversations that concern me" is the consumer's job,
// since it only renders conversations it already holds.
type Connection struct {
	cache  *identity.Cache
	logger *zap.Logger
	cancel context.CancelFunc
	unsub  func()

	mu        sync.Mutex
	listeners []registeredListener
	nextID    int
	closed    bool
}

type registeredListener struct {
	id int
	fn Listener
}

func newConnection(b *bus.Bus, cache *identity.Cache, logger *zap.Logger) *Connection {
	ch, unsub := b.Subscribe("message.", 256)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		cache:  cache,
		logger: logger,
		cancel: cancel,
		unsub:  unsub,
	}

	go func() {
		for {
			select {
			case evt := <-ch:
				c.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()

	return c
}

// OnMessage registers a listener and returns an unsubscribe function
// that removes exactly that listener. Listeners are invoked in
// registration order for every delivery.
func (c *Connection) OnMessage(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, registeredListener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close tears down the subscription and clears all listeners. Safe to
// call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.listeners = nil
	c.mu.Unlock()

	c.unsub()
	c.cancel()
}

func (c *Connection) handleEvent(evt bus.Event) {
	if evt.Kind != bus.KindMessageInserted {
		return
	}
	row, ok := evt.Payload.(*store.Message)
	if !ok {
		return
	}

	sender, found, err := c.cache.Resolve(row.SenderID)
	if err != nil {
		c.logger.Warn("sender resolution failed, dropping event",
			zap.String("msg_id", row.ID), zap.Error(err))
		return
	}
	if !found {
		// Undeliverable: sender unknown to the directory.
		c.logger.Debug("unknown sender, dropping event",
			zap.String("msg_id", row.ID), zap.String("sender_id", row.SenderID))
		return
	}

	msg := normalize(row, sender.Name, sender.Role)

	c.mu.Lock()
	active := make([]registeredListener, len(c.listeners))
	copy(active, c.listeners)
	c.mu.Unlock()

	for _, l := range active {
		l.fn(msg)
	}
}
