// internal/service/campaign_service.go
package service

import (
	"context"

	"github.com/unclebandit/coachline-backend/internal/model"
)

type CampaignRunReader interface {
	GetByID(ctx context.Context, coachID string, id int) (*model.CampaignRun, error)
	ListRuns(ctx context.Context, coachID string, offset, limit int) ([]*model.CampaignRun, int, error)
}

type MessageStats interface {
	StatsByCoach(ctx context.Context, coachID string) (map[string]int, error)
}

// ClientRoster is satisfied by RosterService.
type ClientRoster interface {
	Roster(ctx context.Context, coachID string) ([]model.Client, error)
}

// CampaignService serves the run history and per-coach stats.
type CampaignService struct {
	RunRepo CampaignRunReader
	Stats   MessageStats
	Clients ClientRoster
}

type CoachStats struct {
	Messages      map[string]int `json:"messages"`
	TotalMessages int            `json:"total_messages"`
	TotalRuns     int            `json:"total_runs"`
	TotalClients  int            `json:"total_clients"`
}

// ListRuns fetches campaign runs with pagination
func (s *CampaignService) ListRuns(ctx context.Context, coachID string, page, pageSize int) ([]model.CampaignRun, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.RunRepo.ListRuns(ctx, coachID, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	runs := make([]model.CampaignRun, len(ptrs))
	for i, r := range ptrs {
		runs[i] = *r
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return runs, pagination, nil
}

func (s *CampaignService) GetRun(ctx context.Context, coachID string, id int) (*model.CampaignRun, error) {
	return s.RunRepo.GetByID(ctx, coachID, id)
}

func (s *CampaignService) CoachStats(ctx context.Context, coachID string) (*CoachStats, error) {
	messages, err := s.Stats.StatsByCoach(ctx, coachID)
	if err != nil {
		return nil, err
	}
	_, runs, err := s.RunRepo.ListRuns(ctx, coachID, 0, 1)
	if err != nil {
		return nil, err
	}

	stats := &CoachStats{Messages: messages, TotalRuns: runs}
	for _, n := range messages {
		stats.TotalMessages += n
	}
	if s.Clients != nil {
		// the demo roster is counted when the registry is down
		clients, _ := s.Clients.Roster(ctx, coachID)
		stats.TotalClients = len(clients)
	}
	return stats, nil
}
