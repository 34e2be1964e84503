package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

type CampaignRunRepositoryInterface interface {
	Create(ctx context.Context, run *model.CampaignRun) error
	GetByID(ctx context.Context, coachID string, id int) (*model.CampaignRun, error)
	ListRuns(ctx context.Context, coachID string, offset, limit int) ([]*model.CampaignRun, int, error)
}

type CampaignRunRepository struct {
	DB *sql.DB
}

const runColumns = `id, coach_id, kinds, attempted, succeeded, failed, blocked, invalid, partial, export_error, created_at, updated_at`

func scanRun(row interface{ Scan(...any) error }) (*model.CampaignRun, error) {
	var c model.CampaignRun
	err := row.Scan(&c.ID, &c.CoachID, pq.Array(&c.Kinds), &c.Attempted, &c.Succeeded, &c.Failed,
		&c.Blocked, &c.Invalid, &c.Partial, &c.ExportError, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRunRepository) Create(ctx context.Context, run *model.CampaignRun) error {
	run.CreatedAt = time.Now()
	query := `
        INSERT INTO campaign_runs (coach_id, kinds, attempted, succeeded, failed, blocked, invalid, partial, export_error, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query, run.CoachID, pq.Array(run.Kinds), run.Attempted, run.Succeeded,
		run.Failed, run.Blocked, run.Invalid, run.Partial, run.ExportError, run.CreatedAt).Scan(&run.ID)
}

func (r *CampaignRunRepository) GetByID(ctx context.Context, coachID string, id int) (*model.CampaignRun, error) {
	run, err := scanRun(r.DB.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM campaign_runs WHERE coach_id=$1 AND id=$2`, coachID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignRunNotFound(id)
		}
		return nil, err
	}
	return run, nil
}

// ListRuns pages through a coach's runs, newest first, and returns the total count.
func (r *CampaignRunRepository) ListRuns(ctx context.Context, coachID string, offset, limit int) ([]*model.CampaignRun, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+runColumns+` FROM campaign_runs WHERE coach_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		coachID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := []*model.CampaignRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaign_runs WHERE coach_id=$1`, coachID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

var _ CampaignRunRepositoryInterface = (*CampaignRunRepository)(nil)
