package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InsertMessage inserts a message row. The attachment list is stored as
// a JSON column, NULL when empty.
func (db *DB) InsertMessage(m *Message) error {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	attachments, err := encodeAttachments(m.Attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO messages (id, client_msg_id, conversation_id, sender_id, body, message_type, read, attachments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ClientMsgID, m.ConversationID, m.SenderID, m.Body, string(m.Kind), m.Read, attachments, m.CreatedAt)
	return err
}

// ListMessages returns a page of a conversation's messages oldest first,
// with sender name and role joined from the user directory. Pages compose:
// walking offsets reproduces the full ordered sequence.
func (db *DB) ListMessages(conversationID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.Query(`
		SELECT m.id, m.client_msg_id, m.conversation_id, m.sender_id,
			COALESCE(u.full_name, ''), COALESCE(u.role, ''),
			m.body, m.message_type, m.read, m.attachments, m.created_at
		FROM messages m
		LEFT JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT ? OFFSET ?`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		var kind string
		var attachments sql.NullString
		if err := rows.Scan(&m.ID, &m.ClientMsgID, &m.ConversationID, &m.SenderID,
			&m.SenderName, &m.SenderRole, &m.Body, &kind, &m.Read, &attachments, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = MessageKind(kind)
		if m.Attachments, err = decodeAttachments(attachments); err != nil {
			return nil, fmt.Errorf("decode attachments for %s: %w", m.ID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UnreadCounts aggregates, in a single query, the number of unread
// messages not authored by viewerID for each given conversation.
// Conversations with no unread messages are absent from the map.
func (db *DB) UnreadCounts(conversationIDs []string, viewerID string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.Repeat("?,", len(conversationIDs)-1) + "?"
	args := make([]any, 0, len(conversationIDs)+1)
	for _, id := range conversationIDs {
		args = append(args, id)
	}
	args = append(args, viewerID)

	rows, err := db.Query(`
		SELECT conversation_id, COUNT(*)
		FROM messages
		WHERE conversation_id IN (`+placeholders+`) AND sender_id != ? AND read = 0
		GROUP BY conversation_id`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// MarkConversationRead flips read=true on every message in the
// conversation not authored by viewerID. Idempotent by construction.
func (db *DB) MarkConversationRead(conversationID, viewerID string) error {
	_, err := db.Exec(`
		UPDATE messages SET read = 1
		WHERE conversation_id = ? AND sender_id != ? AND read = 0`,
		conversationID, viewerID)
	return err
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func encodeAttachments(atts []Attachment) (any, error) {
	if len(atts) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(atts)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeAttachments(col sql.NullString) ([]Attachment, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var atts []Attachment
	if err := json.Unmarshal([]byte(col.String), &atts); err != nil {
		return nil, err
	}
	return atts, nil
}
