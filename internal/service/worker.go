// internal/service/worker.go
package service

import (
	"context"
	"errors"
	"log"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/fallback"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/sender"
)

// OutboundRepository defines the methods the worker needs
type OutboundRepository interface {
	GetByID(ctx context.Context, id int) (*model.OutboundMessage, error)
	Update(ctx context.Context, msg *model.OutboundMessage) error
}

type ClientLookup interface {
	GetByID(ctx context.Context, coachID, id string) (*model.Client, error)
}

// Worker delivers outbound messages. It is driven by a queue subscription.
type Worker struct {
	OutboundRepo OutboundRepository
	Clients      ClientLookup
	Sender       sender.Sender
}

// Constructor
func NewWorker(repo OutboundRepository, clients ClientLookup, s sender.Sender) *Worker {
	return &Worker{
		OutboundRepo: repo,
		Clients:      clients,
		Sender:       s,
	}
}

// client resolves the recipient. Demo roster ids are served from the built-in roster.
func (w *Worker) client(ctx context.Context, msg *model.OutboundMessage) (*model.Client, error) {
	var notFound *appErrors.ClientNotFoundError
	if w.Clients != nil {
		c, err := w.Clients.GetByID(ctx, msg.CoachID, msg.ClientID)
		if err == nil {
			return c, nil
		}
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	for _, c := range fallback.Clients(msg.CoachID) {
		if c.ID == msg.ClientID {
			return &c, nil
		}
	}
	return nil, appErrors.NewClientNotFound(msg.ClientID)
}

// Process sends one message. A returned error asks the queue to retry;
// messages that can never be sent are marked failed and return nil.
func (w *Worker) Process(ctx context.Context, id int) error {
	msg, err := w.OutboundRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if msg == nil {
		log.Println("⚠️ Message not found for ID:", id)
		return nil // no retry
	}
	if msg.Status == model.StatusSent {
		return nil
	}

	client, err := w.client(ctx, msg)
	if err != nil {
		var notFound *appErrors.ClientNotFoundError
		if errors.As(err, &notFound) {
			msg.Status = model.StatusFailed
			msg.LastError = err.Error()
			return w.OutboundRepo.Update(ctx, msg)
		}
		return err
	}

	rendered := Personalize(msg.Content, *client)
	msg.RenderedContent = rendered
	if err := w.Sender.Send(ctx, *client, rendered); err != nil {
		msg.Status = model.StatusFailed
		msg.LastError = err.Error()
		msg.RetryCount++
		if uerr := w.OutboundRepo.Update(ctx, msg); uerr != nil {
			log.Println("⚠️ Failed to update message status:", uerr)
		}
		return err // triggers retry in queue
	}

	msg.Status = model.StatusSent
	msg.LastError = ""
	if err := w.OutboundRepo.Update(ctx, msg); err != nil {
		log.Println("⚠️ Failed to update message status:", err)
		return err
	}
	log.Println("✅ Message processed successfully:", id)
	return nil
}
