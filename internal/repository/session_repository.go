package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unclebandit/coachline-backend/internal/model"
)

type SessionRepositoryInterface interface {
	Save(ctx context.Context, s *model.CoachSession) error
	Load(ctx context.Context, coachID string) (*model.CoachSession, error)
	Delete(ctx context.Context, coachID string) error
}

// SessionRepository keeps coach sessions in a mongo collection keyed by coach id.
type SessionRepository struct {
	Collection *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{Collection: db.Collection("coach_sessions")}
}

func (r *SessionRepository) Save(ctx context.Context, s *model.CoachSession) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": s.CoachID}, s, options.Replace().SetUpsert(true))
	return err
}

// Load returns nil, nil when no session exists.
func (r *SessionRepository) Load(ctx context.Context, coachID string) (*model.CoachSession, error) {
	var s model.CoachSession
	err := r.Collection.FindOne(ctx, bson.M{"_id": coachID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, coachID string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"_id": coachID})
	return err
}

var _ SessionRepositoryInterface = (*SessionRepository)(nil)
