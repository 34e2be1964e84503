package repository

import (
	"context"
	"database/sql"
	"time"
)

// MessagingWindow is how long after a client's last inbound message free-form
// messages are allowed.
const MessagingWindow = 24 * time.Hour

type WindowRepositoryInterface interface {
	CanSendFree(ctx context.Context, coachID, clientID string) (bool, error)
	RecordInbound(ctx context.Context, coachID, clientID, body string, at time.Time) error
}

// WindowRepository answers messaging-window questions from inbound_messages.
type WindowRepository struct {
	DB  *sql.DB
	Now func() time.Time
}

func (r *WindowRepository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *WindowRepository) CanSendFree(ctx context.Context, coachID, clientID string) (bool, error) {
	var last sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
        SELECT MAX(received_at) FROM inbound_messages
        WHERE coach_id=$1 AND client_id=$2
    `, coachID, clientID).Scan(&last)
	if err != nil {
		return false, err
	}
	if !last.Valid {
		return false, nil
	}
	return r.now().Sub(last.Time) < MessagingWindow, nil
}

func (r *WindowRepository) RecordInbound(ctx context.Context, coachID, clientID, body string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO inbound_messages (coach_id, client_id, body, received_at)
        VALUES ($1, $2, $3, $4)
    `, coachID, clientID, body, at)
	return err
}

var _ WindowRepositoryInterface = (*WindowRepository)(nil)
