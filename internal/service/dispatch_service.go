// internal/service/dispatch_service.go
package service

import (
	"context"
	"fmt"
	"log"

	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/queue"
)

// QueueDispatchService records one outbound message per client and queues
// the immediate ones. Scheduled and recurring messages wait for the scheduler.
type QueueDispatchService struct {
	Outbound OutboundRecorder
	Queue    queue.Queue
}

func (s *QueueDispatchService) Send(ctx context.Context, req model.DispatchRequest) error {
	if len(req.ClientIDs) == 0 {
		return fmt.Errorf("dispatch request %s has no clients", req.ID)
	}
	status := model.StatusForTiming(req.Timing)

	for _, clientID := range req.ClientIDs {
		msg := &model.OutboundMessage{
			RequestID: req.ID,
			CoachID:   req.CoachID,
			ClientID:  clientID,
			Kind:      req.Kind,
			Content:   req.Content,
			Status:    status,
			SendAt:    req.Timing.SendAt,
			Cadence:   req.Timing.Cadence,
		}
		// Idempotent create (returns existing if already recorded)
		if err := s.Outbound.Create(ctx, msg); err != nil {
			return fmt.Errorf("record message for client %s: %w", clientID, err)
		}
		if msg.Status != model.StatusPending {
			continue
		}
		if err := s.Queue.Publish(queue.TopicSends, queue.Job{OutboundMessageID: msg.ID}); err != nil {
			return fmt.Errorf("enqueue message %d: %w", msg.ID, err)
		}
		log.Println("📩 Queued outbound message ID:", msg.ID)
	}
	return nil
}

var _ DispatchService = (*QueueDispatchService)(nil)
