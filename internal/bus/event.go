package bus

import "time"

// Event kinds published within the subsystem. Subscribers filter by
// namespace prefix, e.g. "message." matches every message event.
const (
	KindMessageInserted     = "message.inserted"
	KindConversationUpdated = "conversation.updated"
	KindConversationDeleted = "conversation.deleted"
	KindProfileChanged      = "profile.changed"
)

// Event is a domain event published on the bus. For KindMessageInserted the
// payload is the raw inserted message row, exactly as the store wrote it.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
