package store

import (
	"database/sql"
	"time"
)

// InsertConversation inserts a new conversation row. Returns a unique
// violation (see IsUniqueViolation) when a conversation for the same
// order id already exists.
func (db *DB) InsertConversation(c *Conversation) error {
	now := time.Now().UnixMilli()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := db.Exec(`
		INSERT INTO conversations (id, order_id, consumer_id, merchant_id, driver_id, last_message, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrderID, c.ConsumerID, c.MerchantID, c.DriverID, c.LastMessage, c.LastMessageAt, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetConversation returns a conversation by id, or nil if absent.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	return db.scanConversation(db.QueryRow(`
		SELECT id, order_id, consumer_id, merchant_id, driver_id, last_message, last_message_at, created_at, updated_at
		FROM conversations WHERE id = ?`, id))
}

// GetConversationByOrder returns the conversation for an order id, or nil.
func (db *DB) GetConversationByOrder(orderID string) (*Conversation, error) {
	return db.scanConversation(db.QueryRow(`
		SELECT id, order_id, consumer_id, merchant_id, driver_id, last_message, last_message_at, created_at, updated_at
		FROM conversations WHERE order_id = ?`, orderID))
}

// ListConversationsForUser returns every conversation where the user
// occupies any participant slot, most recent activity first.
func (db *DB) ListConversationsForUser(userID string) ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, order_id, consumer_id, merchant_id, driver_id, last_message, last_message_at, created_at, updated_at
		FROM conversations
		WHERE consumer_id = ? OR merchant_id = ? OR driver_id = ?
		ORDER BY last_message_at DESC, updated_at DESC`,
		userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OrderID, &c.ConsumerID, &c.MerchantID, &c.DriverID,
			&c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// SetConversationPreview updates the denormalized last-message columns.
func (db *DB) SetConversationPreview(id, preview string, atMs int64) error {
	_, err := db.Exec(`
		UPDATE conversations
		SET last_message = ?, last_message_at = ?, updated_at = ?
		WHERE id = ?`,
		preview, atMs, time.Now().UnixMilli(), id)
	return err
}

// AssignDriver fills the driver slot of a conversation once the order
// has a driver.
func (db *DB) AssignDriver(id, driverID string) error {
	_, err := db.Exec(`
		UPDATE conversations SET driver_id = ?, updated_at = ? WHERE id = ?`,
		driverID, time.Now().UnixMilli(), id)
	return err
}

// DeleteConversation removes a conversation; its messages cascade.
func (db *DB) DeleteConversation(id string) error {
	_, err := db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	return err
}

// ConversationCount returns the total number of conversations.
func (db *DB) ConversationCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}

func (db *DB) scanConversation(row *sql.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.OrderID, &c.ConsumerID, &c.MerchantID, &c.DriverID,
		&c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
