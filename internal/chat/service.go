// Package chat is the conversation/messaging facade. It is the only
// component that talks to the external collaborators: the relational
// store, the blob store, the identity provider and the realtime channel.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ordertalk/internal/attach"
	"ordertalk/internal/bus"
	"ordertalk/internal/identity"
	"ordertalk/internal/store"
)

const previewMaxLen = 100

// attachmentPreview marks an attachment-only message in the
// conversation list.
const attachmentPreview = "\U0001F4CE Attachment"

// Service combines the store adapter, conversation directory, identity
// cache and attachment encoder behind one API surface.
type Service struct {
	db       *store.DB
	bus      *bus.Bus
	encoder  *attach.Encoder
	provider identity.Provider
	cache    *identity.Cache
	logger   *zap.Logger
}

// NewService creates the facade.
func NewService(db *store.DB, b *bus.Bus, encoder *attach.Encoder, provider identity.Provider, cache *identity.Cache, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		bus:      b,
		encoder:  encoder,
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// Connect opens a live connection to the message-insert stream and
// returns it as an owned value: the caller closes it on every exit
// path. Requires a resolvable current user.
func (s *Service) Connect(_ context.Context) (*Connection, error) {
	if _, ok := s.provider.CurrentUserID(); !ok {
		s.logger.Warn("connect without authenticated user")
		return nil, ErrUnauthenticated
	}
	return newConnection(s.bus, s.cache, s.logger), nil
}

// Messages returns one page of a conversation's history, oldest first,
// with sender identity joined at query time. An empty conversation
// yields an empty page, not an error.
func (s *Service) Messages(_ context.Context, conversationID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.ListMessages(conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := make([]Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, *normalize(&rows[i], rows[i].SenderName, rows[i].SenderRole))
	}
	return msgs, nil
}

// SendMessage uploads any attachments (best effort), inserts the
// message row, refreshes the conversation's denormalized preview and
// publishes the insert event. clientMsgID is the caller's idempotency
// key for optimistic-echo reconciliation; empty means one is generated.
func (s *Service) SendMessage(ctx context.Context, conversationID, clientMsgID, body string, kind store.MessageKind, attachments []store.Attachment) (*SendReceipt, error) {
	userID, ok := s.provider.CurrentUserID()
	if !ok {
		return nil, ErrUnauthenticated
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: message type %q", ErrInvalidKind, kind)
	}
	for _, att := range attachments {
		if !att.Kind.Valid() {
			return nil, fmt.Errorf("%w: attachment type %q", ErrInvalidKind, att.Kind)
		}
	}

	conv, err := s.db.GetConversation(conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	if !isParticipant(conv, userID) {
		return nil, ErrNotParticipant
	}

	// Uploads happen before the insert; a failed insert can leave
	// successfully uploaded objects orphaned in the blob store.
	resolved, dropped := s.encoder.ResolveAll(ctx, conversationID, attachments)

	if clientMsgID == "" {
		clientMsgID = uuid.New().String()
	}
	m := &store.Message{
		ID:             uuid.New().String(),
		ClientMsgID:    clientMsgID,
		ConversationID: conversationID,
		SenderID:       userID,
		Body:           body,
		Kind:           kind,
		Attachments:    resolved,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.db.InsertMessage(m); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	preview := body
	if preview == "" && len(resolved) > 0 {
		preview = attachmentPreview
	}
	if len(preview) > previewMaxLen {
		preview = preview[:previewMaxLen]
	}
	if err := s.db.SetConversationPreview(conversationID, preview, m.CreatedAt); err != nil {
		return nil, fmt.Errorf("update conversation preview: %w", err)
	}

	s.bus.Publish(bus.Event{Kind: bus.KindMessageInserted, Timestamp: time.Now(), Payload: m})
	s.bus.Publish(bus.Event{Kind: bus.KindConversationUpdated, Timestamp: time.Now(), Payload: conversationID})

	sender, _, err := s.cache.Resolve(userID)
	if err != nil {
		s.logger.Warn("sender self-resolution failed", zap.Error(err))
	}
	return &SendReceipt{
		Message: normalize(m, sender.Name, sender.Role),
		Dropped: dropped,
	}, nil
}

// MarkMessagesAsRead flips read=true on every message in the
// conversation not authored by the caller. Repeating it is a no-op.
func (s *Service) MarkMessagesAsRead(_ context.Context, conversationID string) error {
	userID, ok := s.provider.CurrentUserID()
	if !ok {
		return ErrUnauthenticated
	}
	if err := s.db.MarkConversationRead(conversationID, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation and, transitively, its
// messages.
func (s *Service) DeleteConversation(_ context.Context, conversationID string) error {
	if _, ok := s.provider.CurrentUserID(); !ok {
		return ErrUnauthenticated
	}
	conv, err := s.db.GetConversation(conversationID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	if err := s.db.DeleteConversation(conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.bus.Publish(bus.Event{Kind: bus.KindConversationDeleted, Timestamp: time.Now(), Payload: conversationID})
	return nil
}

// AssignDriver fills the conversation's driver slot once the order has
// a driver assigned.
func (s *Service) AssignDriver(_ context.Context, conversationID, driverID string) error {
	conv, err := s.db.GetConversation(conversationID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	if err := s.db.AssignDriver(conversationID, driverID); err != nil {
		return fmt.Errorf("assign driver: %w", err)
	}
	s.bus.Publish(bus.Event{Kind: bus.KindConversationUpdated, Timestamp: time.Now(), Payload: conversationID})
	return nil
}

// UpdateProfile writes a user directory entry and invalidates its
// cached sender identity so live deliveries pick up the edit.
func (s *Service) UpdateProfile(_ context.Context, u *store.User) error {
	if err := s.db.UpsertUser(u); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	s.cache.Invalidate(u.ID)
	s.bus.Publish(bus.Event{Kind: bus.KindProfileChanged, Timestamp: time.Now(), Payload: u.ID})
	return nil
}

func isParticipant(c *store.Conversation, userID string) bool {
	for _, id := range c.ParticipantIDs() {
		if id == userID {
			return true
		}
	}
	return false
}
