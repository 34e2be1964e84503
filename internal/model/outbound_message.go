// internal/model/outbound_message.go
package model

import "time"

// DispatchRequest is what the workflow hands to the dispatch service.
type DispatchRequest struct {
	ID        string         `json:"id"`
	CoachID   string         `json:"coach_id"`
	ClientIDs []string       `json:"client_ids"`
	Kind      MessageKind    `json:"message_type"`
	Content   string         `json:"content"`
	Timing    DispatchTiming `json:"timing"`
}

// Outbound message statuses.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusRecurring = "recurring"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

type OutboundMessage struct {
	ID              int         `db:"id" json:"id"`
	RequestID       string      `db:"request_id" json:"request_id"`
	CoachID         string      `db:"coach_id" json:"coach_id"`
	ClientID        string      `db:"client_id" json:"client_id"`
	Kind            MessageKind `db:"kind" json:"message_type"`
	Content         string      `db:"content" json:"content"`
	RenderedContent string      `db:"rendered_content" json:"rendered_content,omitempty"`
	Status          string      `db:"status" json:"status"` // pending, scheduled, recurring, sent, failed
	SendAt          *time.Time  `db:"send_at" json:"send_at,omitempty"`
	Cadence         Cadence     `db:"cadence" json:"cadence,omitempty"`
	LastError       string      `db:"last_error,omitempty" json:"last_error,omitempty"`
	RetryCount      int         `db:"retry_count" json:"retry_count"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// StatusForTiming is the status a freshly recorded message starts in.
func StatusForTiming(t DispatchTiming) string {
	switch t.Kind {
	case TimingAt:
		return StatusScheduled
	case TimingRecurring:
		return StatusRecurring
	}
	return StatusPending
}
