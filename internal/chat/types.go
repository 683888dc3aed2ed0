package chat

import "ordertalk/internal/store"

// Participant is the per-conversation view of one role slot, resolved
// against the user directory. Name is "You" for the caller's own slot.
// Online is reserved for a future presence channel and is always false.
type Participant struct {
	UserID string
	Name   string
	Role   string
	Phone  string
	Online bool
}

// MessagePreview is the synthetic last-message view assembled from the
// conversation's denormalized columns, not from a message fetch.
type MessagePreview struct {
	Body   string
	SentAt int64
}

// Conversation is the hydrated conversation view returned by the facade.
type Conversation struct {
	ID           string
	OrderID      string
	Participants []Participant
	LastMessage  *MessagePreview
	UnreadCount  int
	CreatedAt    int64
	UpdatedAt    int64
}

// Message is the normalized message delivered to listeners and returned
// by reads. ClientMsgID is the compose-time idempotency key a UI uses
// to reconcile an optimistic entry with its authoritative echo.
type Message struct {
	ID             string
	ClientMsgID    string
	ConversationID string
	SenderID       string
	SenderName     string
	SenderRole     string
	Body           string
	Kind           store.MessageKind
	Read           bool
	Attachments    []store.Attachment
	CreatedAt      int64
}

// SendReceipt reports the outcome of a send. Dropped lists attachments
// whose upload failed and were omitted from the stored message.
type SendReceipt struct {
	Message *Message
	Dropped []store.Attachment
}

func normalize(m *store.Message, senderName, senderRole string) *Message {
	return &Message{
		ID:             m.ID,
		ClientMsgID:    m.ClientMsgID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     senderName,
		SenderRole:     senderRole,
		Body:           m.Body,
		Kind:           m.Kind,
		Read:           m.Read,
		Attachments:    m.Attachments,
		CreatedAt:      m.CreatedAt,
	}
}
