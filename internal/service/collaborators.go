// internal/service/collaborators.go
package service

import (
	"context"
	"time"

	"github.com/unclebandit/coachline-backend/internal/model"
)

// ClientRegistry owns the coach's roster and category list.
type ClientRegistry interface {
	ListClients(ctx context.Context, coachID string) ([]model.Client, error)
	GetByID(ctx context.Context, coachID, id string) (*model.Client, error)
	CreateClient(ctx context.Context, c *model.Client) error
	UpdateClient(ctx context.Context, c *model.Client) error
	DeleteClient(ctx context.Context, coachID, id string) error
	ListCategories(ctx context.Context, coachID string) ([]model.Category, error)
	AddCategory(ctx context.Context, coachID, name string) (*model.Category, error)
}

type TemplateStore interface {
	ListTemplates(ctx context.Context, coachID string, kind model.MessageKind) ([]model.Template, error)
}

// WindowOracle answers whether a client may receive free-form messages.
type WindowOracle interface {
	CanSendFree(ctx context.Context, coachID, clientID string) (bool, error)
}

// DispatchService accepts one dispatch request. Requests are independent.
type DispatchService interface {
	Send(ctx context.Context, req model.DispatchRequest) error
}

// ExportSink receives the summary of a finished send-all.
type ExportSink interface {
	Export(ctx context.Context, run model.CampaignRun) error
}

type RunRecorder interface {
	Create(ctx context.Context, run *model.CampaignRun) error
}

type SessionStore interface {
	Save(ctx context.Context, s *model.CoachSession) error
	Load(ctx context.Context, coachID string) (*model.CoachSession, error)
	Delete(ctx context.Context, coachID string) error
}

type MessageHistory interface {
	ListByClient(ctx context.Context, coachID, clientID string, limit int) ([]*model.OutboundMessage, error)
}

// OutboundRecorder persists outbound messages for the dispatch service.
type OutboundRecorder interface {
	Create(ctx context.Context, msg *model.OutboundMessage) error
}

// refreshTimeout bounds a single messaging-window lookup.
const refreshTimeout = 10 * time.Second
