package postgres

import (
	"context"
	"database/sql"

	"rtodocs/internal/repository"
)

// NotificationPostgres appends rows to the shared notifications table.
type NotificationPostgres struct {
	db *sql.DB
}

func NewNotificationPostgres(db *sql.DB) *NotificationPostgres {
	return &NotificationPostgres{db: db}
}

var _ repository.NotificationRepository = (*NotificationPostgres)(nil)

func (r *NotificationPostgres) Create(ctx context.Context, userID, message string) error {
	const q = `INSERT INTO notifications (user_id, message, is_read) VALUES ($1, $2, FALSE)`
	_, err := r.db.ExecContext(ctx, q, userID, message)
	return err
}
