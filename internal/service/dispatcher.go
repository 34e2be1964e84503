// internal/service/dispatcher.go
package service

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/coachline-backend/internal/campaign"
	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

// Outcome describes one draft that was not delivered to the dispatch service,
// or was rejected by it.
type Outcome struct {
	ClientID string            `json:"client_id"`
	Kind     model.MessageKind `json:"message_type"`
	Error    string            `json:"error"`
}

func outcomes(ex []campaign.Exclusion) []Outcome {
	out := make([]Outcome, 0, len(ex))
	for _, e := range ex {
		out = append(out, Outcome{ClientID: e.Key.ClientID, Kind: e.Key.Kind, Error: e.Err.Error()})
	}
	return out
}

// Report is the result of one dispatch.
type Report struct {
	Attempted   int       `json:"attempted"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Blocked     []Outcome `json:"blocked"`
	Invalid     []Outcome `json:"invalid"`
	Failures    []Outcome `json:"failures"`
	ExportError string    `json:"export_error,omitempty"`

	// Submitted lists the drafts the dispatch service accepted.
	Submitted []campaign.DraftKey `json:"-"`
}

// Err is nil unless at least one submission failed.
func (r Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return appErrors.NewDispatchPartialFailure(r.Attempted, r.Failed)
}

// Batcher submits planned requests independently with bounded concurrency.
type Batcher struct {
	Service     DispatchService
	Concurrency int
	NewID       func() string
}

func (b *Batcher) newID() string {
	if b.NewID != nil {
		return b.NewID()
	}
	return uuid.NewString()
}

// Dispatch submits every request in plan and waits for all of them. A failed
// submission is logged and counted; it never stops the others.
func (b *Batcher) Dispatch(ctx context.Context, plan campaign.Plan) Report {
	report := Report{
		Attempted: len(plan.Requests),
		Blocked:   outcomes(plan.Blocked),
		Invalid:   outcomes(plan.Invalid),
		Failures:  []Outcome{},
	}

	limit := b.Concurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)

	var mu sync.Mutex
	for _, pr := range plan.Requests {
		req := pr.Request
		key := pr.Key
		if req.ID == "" {
			req.ID = b.newID()
		}
		g.Go(func() error {
			err := b.Service.Send(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("⚠️ Failed to dispatch %s message to client %s: %v\n", key.Kind, key.ClientID, err)
				report.Failed++
				report.Failures = append(report.Failures, Outcome{ClientID: key.ClientID, Kind: key.Kind, Error: err.Error()})
				return nil
			}
			report.Succeeded++
			report.Submitted = append(report.Submitted, key)
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("✅ Dispatch finished: %d attempted, %d succeeded, %d failed, %d blocked, %d invalid\n",
		report.Attempted, report.Succeeded, report.Failed, len(report.Blocked), len(report.Invalid))
	return report
}
