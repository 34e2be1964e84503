package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/coachline-backend/internal/model"
)

type OutboundMessageRepositoryInterface interface {
	Create(ctx context.Context, msg *model.OutboundMessage) error
	Update(ctx context.Context, msg *model.OutboundMessage) error
	GetByID(ctx context.Context, id int) (*model.OutboundMessage, error)
	ListDue(ctx context.Context, now time.Time) ([]*model.OutboundMessage, error)
	ListRecurring(ctx context.Context) ([]*model.OutboundMessage, error)
	ListByClient(ctx context.Context, coachID, clientID string, limit int) ([]*model.OutboundMessage, error)
	StatsByCoach(ctx context.Context, coachID string) (map[string]int, error)
}

type OutboundMessageRepository struct {
	DB *sql.DB
}

const outboundColumns = `id, request_id, coach_id, client_id, kind, content, rendered_content, status, send_at, cadence, last_error, retry_count, created_at, updated_at`

func scanOutbound(row interface{ Scan(...any) error }) (*model.OutboundMessage, error) {
	var msg model.OutboundMessage
	err := row.Scan(
		&msg.ID,
		&msg.RequestID,
		&msg.CoachID,
		&msg.ClientID,
		&msg.Kind,
		&msg.Content,
		&msg.RenderedContent,
		&msg.Status,
		&msg.SendAt,
		&msg.Cadence,
		&msg.LastError,
		&msg.RetryCount,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *OutboundMessageRepository) list(ctx context.Context, query string, args ...any) ([]*model.OutboundMessage, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*model.OutboundMessage{}
	for rows.Next() {
		msg, err := scanOutbound(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Create inserts a message. A second insert for the same (request, client)
// is a no-op that loads the existing row, so resubmitted requests are not
// recorded twice.
func (r *OutboundMessageRepository) Create(ctx context.Context, msg *model.OutboundMessage) error {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	query := `
        INSERT INTO outbound_messages
        (request_id, coach_id, client_id, kind, content, rendered_content, status, send_at, cadence, last_error, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (request_id, client_id) DO NOTHING
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		msg.RequestID,
		msg.CoachID,
		msg.ClientID,
		string(msg.Kind),
		msg.Content,
		msg.RenderedContent,
		msg.Status,
		msg.SendAt,
		string(msg.Cadence),
		msg.LastError,
		msg.RetryCount,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Scan(&msg.ID)
	if err == sql.ErrNoRows {
		existing, err := scanOutbound(r.DB.QueryRowContext(ctx,
			`SELECT `+outboundColumns+` FROM outbound_messages WHERE request_id=$1 AND client_id=$2`,
			msg.RequestID, msg.ClientID))
		if err != nil {
			return err
		}
		*msg = *existing
		return nil
	}
	return err
}

// Update persists status, content and retry bookkeeping.
func (r *OutboundMessageRepository) Update(ctx context.Context, msg *model.OutboundMessage) error {
	msg.UpdatedAt = time.Now()
	query := `
        UPDATE outbound_messages
        SET status=$1, rendered_content=$2, last_error=$3, retry_count=$4, send_at=$5, updated_at=$6
        WHERE id=$7
    `
	_, err := r.DB.ExecContext(ctx, query, msg.Status, msg.RenderedContent, msg.LastError, msg.RetryCount, msg.SendAt, msg.UpdatedAt, msg.ID)
	return err
}

// GetByID returns nil, nil when the message does not exist.
func (r *OutboundMessageRepository) GetByID(ctx context.Context, id int) (*model.OutboundMessage, error) {
	msg, err := scanOutbound(r.DB.QueryRowContext(ctx,
		`SELECT `+outboundColumns+` FROM outbound_messages WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListDue returns scheduled messages whose send time has passed.
func (r *OutboundMessageRepository) ListDue(ctx context.Context, now time.Time) ([]*model.OutboundMessage, error) {
	return r.list(ctx, `
        SELECT `+outboundColumns+` FROM outbound_messages
        WHERE status=$1 AND send_at <= $2
        ORDER BY send_at, id
    `, model.StatusScheduled, now)
}

func (r *OutboundMessageRepository) ListRecurring(ctx context.Context) ([]*model.OutboundMessage, error) {
	return r.list(ctx, `
        SELECT `+outboundColumns+` FROM outbound_messages
        WHERE status=$1
        ORDER BY id
    `, model.StatusRecurring)
}

// ListByClient is the client's message history, newest first.
func (r *OutboundMessageRepository) ListByClient(ctx context.Context, coachID, clientID string, limit int) ([]*model.OutboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `
        SELECT `+outboundColumns+` FROM outbound_messages
        WHERE coach_id=$1 AND client_id=$2
        ORDER BY created_at DESC, id DESC
        LIMIT $3
    `, coachID, clientID, limit)
}

func (r *OutboundMessageRepository) StatsByCoach(ctx context.Context, coachID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM outbound_messages WHERE coach_id=$1 GROUP BY status`, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.StatusPending:   0,
		model.StatusScheduled: 0,
		model.StatusRecurring: 0,
		model.StatusSent:      0,
		model.StatusFailed:    0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ OutboundMessageRepositoryInterface = (*OutboundMessageRepository)(nil)
