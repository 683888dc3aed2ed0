package store

import (
	"database/sql"
	"strings"
	"time"
)

// UpsertUser inserts or updates a user directory entry.
func (db *DB) UpsertUser(u *User) error {
	_, err := db.Exec(`
		INSERT INTO users (id, full_name, role, phone_number, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			role = excluded.role,
			phone_number = excluded.phone_number,
			updated_at = excluded.updated_at`,
		u.ID, u.FullName, u.Role, u.PhoneNumber, time.Now().UnixMilli())
	return err
}

// GetUser returns a user by id, or nil if absent.
func (db *DB) GetUser(id string) (*User, error) {
	var u User
	err := db.QueryRow(`SELECT id, full_name, role, phone_number FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.FullName, &u.Role, &u.PhoneNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsers resolves a batch of user ids in a single query. Unknown ids
// are simply absent from the map.
func (db *DB) GetUsers(ids []string) (map[string]User, error) {
	users := make(map[string]User)
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := db.Query(`SELECT id, full_name, role, phone_number FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Role, &u.PhoneNumber); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}
