// Package scheduler releases scheduled and recurring outbound messages onto the send queue.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unclebandit/coachline-backend/internal/campaign"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/queue"
)

// OutboundStore is what the scheduler needs from the outbound message repository.
type OutboundStore interface {
	Create(ctx context.Context, msg *model.OutboundMessage) error
	Update(ctx context.Context, msg *model.OutboundMessage) error
	ListDue(ctx context.Context, now time.Time) ([]*model.OutboundMessage, error)
	ListRecurring(ctx context.Context) ([]*model.OutboundMessage, error)
}

type Scheduler struct {
	cron  *cron.Cron
	store OutboundStore
	queue queue.Queue
	poll  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	recurring map[int]cron.EntryID
}

func NewScheduler(store OutboundStore, q queue.Queue, poll time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		store:     store,
		queue:     q,
		poll:      poll,
		now:       time.Now,
		recurring: make(map[int]cron.EntryID),
	}
}

func (s *Scheduler) Start() error {
	// background poll for due and newly recorded recurring messages
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.poll), s.tick); err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	s.tick()
	s.cron.Start()
	log.Printf("🚀 Scheduler polling every %s\n", s.poll)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	s.ReleaseDue(ctx)
	s.SyncRecurring(ctx)
}

// ReleaseDue moves scheduled messages whose time has come to pending and
// queues them. It returns how many were queued.
func (s *Scheduler) ReleaseDue(ctx context.Context) int {
	due, err := s.store.ListDue(ctx, s.now().UTC())
	if err != nil {
		log.Println("⚠️ Failed to list due messages:", err)
		return 0
	}

	queued := 0
	for _, msg := range due {
		msg.Status = model.StatusPending
		if err := s.store.Update(ctx, msg); err != nil {
			log.Println("⚠️ Failed to release message", msg.ID, err)
			continue
		}
		if err := s.queue.Publish(queue.TopicSends, queue.Job{OutboundMessageID: msg.ID}); err != nil {
			log.Println("⚠️ Failed to queue message", msg.ID, err)
			msg.Status = model.StatusScheduled
			_ = s.store.Update(ctx, msg)
			continue
		}
		queued++
	}
	return queued
}

// SyncRecurring registers a cron entry for every recurring message not yet known.
func (s *Scheduler) SyncRecurring(ctx context.Context) int {
	parents, err := s.store.ListRecurring(ctx)
	if err != nil {
		log.Println("⚠️ Failed to list recurring messages:", err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, parent := range parents {
		if _, ok := s.recurring[parent.ID]; ok {
			continue
		}
		spec, err := campaign.CadenceSpec(parent.Cadence)
		if err != nil {
			log.Println("⚠️ Skipping recurring message", parent.ID, err)
			continue
		}
		p := *parent
		id, err := s.cron.AddFunc(spec, func() { s.Fire(context.Background(), p) })
		if err != nil {
			log.Println("⚠️ Failed to register recurring message", parent.ID, err)
			continue
		}
		s.recurring[parent.ID] = id
		added++
	}
	return added
}

// Fire records one occurrence of a recurring message and queues it.
func (s *Scheduler) Fire(ctx context.Context, parent model.OutboundMessage) error {
	at := s.now().UTC()
	occurrence := &model.OutboundMessage{
		RequestID: fmt.Sprintf("%s@%s", parent.RequestID, at.Format(time.RFC3339)),
		CoachID:   parent.CoachID,
		ClientID:  parent.ClientID,
		Kind:      parent.Kind,
		Content:   parent.Content,
		Status:    model.StatusPending,
		SendAt:    &at,
	}
	if err := s.store.Create(ctx, occurrence); err != nil {
		log.Println("⚠️ Failed to record recurring occurrence for", parent.ID, err)
		return err
	}
	if err := s.queue.Publish(queue.TopicSends, queue.Job{OutboundMessageID: occurrence.ID}); err != nil {
		log.Println("⚠️ Failed to queue recurring occurrence", occurrence.ID, err)
		return err
	}
	return nil
}

// Entries reports how many recurring messages are registered.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recurring)
}
