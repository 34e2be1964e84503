// internal/service/roster_service.go
package service

import (
	"context"
	"log"
	"strings"

	"github.com/unclebandit/coachline-backend/internal/campaign"
	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/fallback"
	"github.com/unclebandit/coachline-backend/internal/model"
)

type RosterService struct {
	Registry ClientRegistry
	History  MessageHistory
}

// ClientInput is the editable part of a client. On update, empty strings,
// nil Categories and nil IsActive leave the stored value unchanged; an empty
// Categories list clears the tags.
type ClientInput struct {
	Name       string   `json:"name"`
	Phone      string   `json:"phone_number"`
	Categories []string `json:"categories"`
	Timezone   string   `json:"timezone"`
	IsActive   *bool    `json:"is_active,omitempty"`
}

func (in ClientInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return appErrors.NewValidation("name", "is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return appErrors.NewValidation("phone_number", "is required")
	}
	return in.validateTimezone()
}

func (in ClientInput) validateTimezone() error {
	if in.Timezone != "" {
		if _, err := campaign.LoadLocation(in.Timezone); err != nil {
			return appErrors.NewValidation("timezone", err.Error())
		}
	}
	return nil
}

// apply copies the provided fields onto c.
func (in ClientInput) apply(c *model.Client) {
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		c.Phone = phone
	}
	if in.Categories != nil {
		c.Categories = in.Categories
	}
	if in.Timezone != "" {
		c.Timezone = in.Timezone
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// Roster lists the coach's clients, falling back to the demo roster when the
// registry fails. The returned error is informational only.
func (s *RosterService) Roster(ctx context.Context, coachID string) ([]model.Client, error) {
	if s.Registry == nil {
		return fallback.Clients(coachID), nil
	}
	clients, err := s.Registry.ListClients(ctx, coachID)
	if err != nil {
		log.Println("⚠️ Client registry unavailable, using demo roster:", err)
		return fallback.Clients(coachID), appErrors.NewRegistryUnavailable("list clients", err)
	}
	return clients, nil
}

func (s *RosterService) Categories(ctx context.Context, coachID string) ([]model.Category, error) {
	if s.Registry == nil {
		return fallback.Categories(coachID), nil
	}
	categories, err := s.Registry.ListCategories(ctx, coachID)
	if err != nil {
		log.Println("⚠️ Client registry unavailable, using built-in categories:", err)
		return fallback.Categories(coachID), appErrors.NewRegistryUnavailable("list categories", err)
	}
	if len(categories) == 0 {
		return fallback.Categories(coachID), nil
	}
	return categories, nil
}

func (s *RosterService) registry(op string) (ClientRegistry, error) {
	if s.Registry == nil {
		return nil, appErrors.NewRegistryUnavailable(op, nil)
	}
	return s.Registry, nil
}

func (s *RosterService) CreateClient(ctx context.Context, coachID string, in ClientInput) (*model.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	reg, err := s.registry("create client")
	if err != nil {
		return nil, err
	}
	c := &model.Client{CoachID: coachID, Timezone: "EST", IsActive: true}
	in.apply(c)
	if err := reg.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateClient applies the provided fields of in to the stored client.
func (s *RosterService) UpdateClient(ctx context.Context, coachID, id string, in ClientInput) (*model.Client, error) {
	if err := in.validateTimezone(); err != nil {
		return nil, err
	}
	reg, err := s.registry("update client")
	if err != nil {
		return nil, err
	}
	c, err := reg.GetByID(ctx, coachID, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if err := reg.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *RosterService) DeleteClient(ctx context.Context, coachID, id string) error {
	reg, err := s.registry("delete client")
	if err != nil {
		return err
	}
	return reg.DeleteClient(ctx, coachID, id)
}

func (s *RosterService) AddCategory(ctx context.Context, coachID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	reg, err := s.registry("add category")
	if err != nil {
		return nil, err
	}
	return reg.AddCategory(ctx, coachID, name)
}

// ClientHistory lists messages recorded for a client, newest first.
func (s *RosterService) ClientHistory(ctx context.Context, coachID, clientID string, limit int) ([]*model.OutboundMessage, error) {
	if s.History == nil {
		return []*model.OutboundMessage{}, nil
	}
	return s.History.ListByClient(ctx, coachID, clientID, limit)
}
