package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

// ClientRepositoryInterface is the client registry the workflow reads its roster from.
type ClientRepositoryInterface interface {
	ListClients(ctx context.Context, coachID string) ([]model.Client, error)
	GetByID(ctx context.Context, coachID, id string) (*model.Client, error)
	CreateClient(ctx context.Context, c *model.Client) error
	UpdateClient(ctx context.Context, c *model.Client) error
	DeleteClient(ctx context.Context, coachID, id string) error

	ListCategories(ctx context.Context, coachID string) ([]model.Category, error)
	AddCategory(ctx context.Context, coachID, name string) (*model.Category, error)
}

type ClientRepository struct {
	DB *sql.DB
}

const clientColumns = `id, coach_id, name, phone_number, categories, timezone, is_active, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (*model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.CoachID, &c.Name, &c.Phone, pq.Array(&c.Categories), &c.Timezone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Clients ======================

func (r *ClientRepository) ListClients(ctx context.Context, coachID string) ([]model.Client, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE coach_id=$1 ORDER BY created_at, id`, coachID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) GetByID(ctx context.Context, coachID, id string) (*model.Client, error) {
	c, err := scanClient(r.DB.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE coach_id=$1 AND id=$2`, coachID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewClientNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *ClientRepository) CreateClient(ctx context.Context, c *model.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()
	c.Categories = model.NormalizeCategories(c.Categories)
	query := `
        INSERT INTO clients (id, coach_id, name, phone_number, categories, timezone, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.CoachID, c.Name, c.Phone, pq.Array(c.Categories), c.Timezone, c.IsActive, c.CreatedAt)
	return err
}

func (r *ClientRepository) UpdateClient(ctx context.Context, c *model.Client) error {
	now := time.Now()
	c.UpdatedAt = &now
	c.Categories = model.NormalizeCategories(c.Categories)
	query := `
        UPDATE clients
        SET name=$1, phone_number=$2, categories=$3, timezone=$4, is_active=$5, updated_at=$6
        WHERE coach_id=$7 AND id=$8
    `
	res, err := r.DB.ExecContext(ctx, query, c.Name, c.Phone, pq.Array(c.Categories), c.Timezone, c.IsActive, now, c.CoachID, c.ID)
	if err != nil {
		return err
	}
	return requireRow(res, c.ID)
}

func (r *ClientRepository) DeleteClient(ctx context.Context, coachID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE coach_id=$1 AND id=$2`, coachID, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewClientNotFound(id)
	}
	return nil
}

// ====================== Categories ======================

func (r *ClientRepository) ListCategories(ctx context.Context, coachID string) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, coach_id, name FROM categories WHERE coach_id=$1 ORDER BY id`, coachID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.CoachID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AddCategory is idempotent per (coach, name).
func (r *ClientRepository) AddCategory(ctx context.Context, coachID, name string) (*model.Category, error) {
	query := `
        INSERT INTO categories (coach_id, name) VALUES ($1, $2)
        ON CONFLICT (coach_id, name) DO UPDATE SET name=EXCLUDED.name
        RETURNING id
    `
	c := &model.Category{CoachID: coachID, Name: name}
	if err := r.DB.QueryRowContext(ctx, query, coachID, name).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}
	return c, nil
}

var _ ClientRepositoryInterface = (*ClientRepository)(nil)
