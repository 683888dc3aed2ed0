package store

// MessageKind is the closed set of message types.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindLocation MessageKind = "location"
	KindSystem   MessageKind = "system"
)

// Valid reports whether k is one of the known message kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindLocation, KindSystem:
		return true
	}
	return false
}

// AttachmentKind is the closed set of attachment types.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// Valid reports whether k is one of the known attachment kinds.
func (k AttachmentKind) Valid() bool {
	return k == AttachmentImage || k == AttachmentDocument
}

// Attachment describes one message attachment. Before upload URI is a
// data: payload or a remote reference; after upload it is the durable
// public URL. The list is stored JSON-encoded on the message row.
type Attachment struct {
	ID   string         `json:"id"`
	URI  string         `json:"uri"`
	Name string         `json:"name,omitempty"`
	Kind AttachmentKind `json:"type"`
}

// Conversation is a conversation row. DriverID is empty until a driver
// is assigned to the order. LastMessage/LastMessageAt are denormalized
// from the newest message so listing never fetches message rows.
type Conversation struct {
	ID            string
	OrderID       string
	ConsumerID    string
	MerchantID    string
	DriverID      string
	LastMessage   string
	LastMessageAt int64
	CreatedAt     int64
	UpdatedAt     int64
}

// ParticipantIDs returns the occupied participant slots.
func (c *Conversation) ParticipantIDs() []string {
	ids := []string{c.ConsumerID, c.MerchantID}
	if c.DriverID != "" {
		ids = append(ids, c.DriverID)
	}
	return ids
}

// Message is a message row. SenderName/SenderRole are populated only on
// reads that join the users table; they are not stored on the row.
type Message struct {
	ID             string
	ClientMsgID    string
	ConversationID string
	SenderID       string
	SenderName     string
	SenderRole     string
	Body           string
	Kind           MessageKind
	Read           bool
	Attachments    []Attachment
	CreatedAt      int64
}

// User is a row in the user directory.
type User struct {
	ID          string
	FullName    string
	Role        string
	PhoneNumber string
}

// Order is the slice of the order system the messaging subsystem reads:
// who talks in the order's conversation.
type Order struct {
	ID         string
	ConsumerID string
	MerchantID string
	DriverID   string
	Status     string
}
