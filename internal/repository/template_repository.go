package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/coachline-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	ListTemplates(ctx context.Context, coachID string, kind model.MessageKind) ([]model.Template, error)
	Create(ctx context.Context, t *model.Template) error
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) ListTemplates(ctx context.Context, coachID string, kind model.MessageKind) ([]model.Template, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, coach_id, kind, content
        FROM message_templates
        WHERE coach_id=$1 AND kind=$2
        ORDER BY position, id
    `, coachID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.CoachID, &t.Kind, &t.Content); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) error {
	query := `
        INSERT INTO message_templates (coach_id, kind, content, position)
        VALUES ($1, $2, $3, (SELECT COUNT(*) FROM message_templates WHERE coach_id=$1 AND kind=$2))
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query, t.CoachID, string(t.Kind), t.Content).Scan(&t.ID)
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
