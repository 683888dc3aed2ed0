package store

import (
	"database/sql"
	"time"
)

// UpsertOrder inserts or updates an order row. Orders belong to the
// external order system; this table is the read model the conversation
// directory resolves participants from.
func (db *DB) UpsertOrder(o *Order) error {
	_, err := db.Exec(`
		INSERT INTO orders (id, consumer_id, merchant_id, driver_id, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			consumer_id = excluded.consumer_id,
			merchant_id = excluded.merchant_id,
			driver_id = excluded.driver_id,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		o.ID, o.ConsumerID, o.MerchantID, o.DriverID, o.Status, time.Now().UnixMilli())
	return err
}

// GetOrder returns an order by id, or nil if absent.
func (db *DB) GetOrder(id string) (*Order, error) {
	var o Order
	err := db.QueryRow(`SELECT id, consumer_id, merchant_id, driver_id, status FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.ConsumerID, &o.MerchantID, &o.DriverID, &o.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
