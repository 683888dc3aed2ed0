package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ordertalk/internal/store"
)

// Conversations returns every conversation the current user participates
// in, most recent activity first, fully hydrated in exactly three
// queries regardless of conversation count: one for the conversations,
// one batched user resolution, one batched unread aggregation.
func (s *Service) Conversations(_ context.Context) ([]Conversation, error) {
	userID, ok := s.provider.CurrentUserID()
	if !ok {
		return nil, ErrUnauthenticated
	}

	rows, err := s.db.ListConversationsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return s.hydrate(rows, userID)
}

// GetOrCreateConversation resolves the conversation for an order,
// creating it from the order's consumer and merchant if absent. The
// driver slot starts empty and is filled on assignment. A concurrent
// create racing on the same order loses on the order_id uniqueness
// constraint and re-fetches the winner's row.
func (s *Service) GetOrCreateConversation(_ context.Context, orderID string) (*Conversation, error) {
	userID, ok := s.provider.CurrentUserID()
	if !ok {
		return nil, ErrUnauthenticated
	}

	conv, err := s.db.GetConversationByOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("get conversation by order: %w", err)
	}
	if conv == nil {
		order, err := s.db.GetOrder(orderID)
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}
		if order == nil {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}

		conv = &store.Conversation{
			ID:         uuid.New().String(),
			OrderID:    orderID,
			ConsumerID: order.ConsumerID,
			MerchantID: order.MerchantID,
		}
		if err := s.db.InsertConversation(conv); err != nil {
			if !store.IsUniqueViolation(err) {
				return nil, fmt.Errorf("insert conversation: %w", err)
			}
			// Someone else just created it.
			conv, err = s.db.GetConversationByOrder(orderID)
			if err != nil {
				return nil, fmt.Errorf("re-fetch conversation: %w", err)
			}
			if conv == nil {
				return nil, fmt.Errorf("%w: conversation for order %s", ErrNotFound, orderID)
			}
		}
	}

	hydrated, err := s.hydrate([]store.Conversation{*conv}, userID)
	if err != nil {
		return nil, err
	}
	return &hydrated[0], nil
}

// hydrate assembles conversation views from pre-fetched maps. The naive
// shape of this is O(conversations x participants) queries; batching
// keeps it at two regardless of input size.
func (s *Service) hydrate(rows []store.Conversation, viewerID string) ([]Conversation, error) {
	if len(rows) == 0 {
		return []Conversation{}, nil
	}

	seen := make(map[string]bool)
	var participantIDs []string
	convIDs := make([]string, 0, len(rows))
	for i := range rows {
		convIDs = append(convIDs, rows[i].ID)
		for _, id := range rows[i].ParticipantIDs() {
			if !seen[id] {
				seen[id] = true
				participantIDs = append(participantIDs, id)
			}
		}
	}

	users, err := s.db.GetUsers(participantIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve participants: %w", err)
	}
	unread, err := s.db.UnreadCounts(convIDs, viewerID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	out := make([]Conversation, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		conv := Conversation{
			ID:          row.ID,
			OrderID:     row.OrderID,
			UnreadCount: unread[row.ID],
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
		for _, id := range row.ParticipantIDs() {
			conv.Participants = append(conv.Participants, participantView(id, users[id], viewerID))
		}
		if row.LastMessageAt > 0 {
			conv.LastMessage = &MessagePreview{Body: row.LastMessage, SentAt: row.LastMessageAt}
		}
		out = append(out, conv)
	}
	return out, nil
}

func participantView(id string, u store.User, viewerID string) Participant {
	name := u.FullName
	if id == viewerID {
		name = "You"
	}
	return Participant{
		UserID: id,
		Name:   name,
		Role:   u.Role,
		Phone:  u.PhoneNumber,
	}
}
