// internal/model/campaign.go
package model

import "time"

// CampaignRun records the outcome of one send-all or partial send.
type CampaignRun struct {
	ID          int        `db:"id" json:"id"`
	CoachID     string     `db:"coach_id" json:"coach_id"`
	Kinds       []string   `db:"kinds" json:"kinds"`
	Attempted   int        `db:"attempted" json:"attempted"`
	Succeeded   int        `db:"succeeded" json:"succeeded"`
	Failed      int        `db:"failed" json:"failed"`
	Blocked     int        `db:"blocked" json:"blocked"`
	Invalid     int        `db:"invalid" json:"invalid"`
	Partial     bool       `db:"partial" json:"partial"`
	ExportError string     `db:"export_error" json:"export_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
