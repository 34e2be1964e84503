package queue

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unclebandit/coachline-backend/internal/model"
)

// Topics
const (
	TopicSends   = "campaign_sends"
	TopicExports = "campaign_exports"
)

// Job is the unit of work carried on a topic. Send jobs carry an outbound
// message id; export jobs carry the run summary.
type Job struct {
	OutboundMessageID int                `json:"outbound_message_id,omitempty"`
	Run               *model.CampaignRun `json:"run,omitempty"`
}

type Handler func(job Job) error

// Queue interface
type Queue interface {
	Publish(topic string, job Job) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue is an in-process queue with retry
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	MaxRetries int
	Backoff    time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// envelope wraps a job with retry info
type envelope struct {
	Job        Job
	RetryCount int
	MaxRetries int
}

// Publish sends a job to all subscribers
func (q *InMemoryQueue) Publish(topic string, job Job) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	env := envelope{Job: job, MaxRetries: q.MaxRetries}
	for _, handler := range handlers {
		go q.processJob(topic, handler, env)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler Handler, env envelope) {
	for env.RetryCount <= env.MaxRetries {
		err := handler(env.Job)
		if err == nil {
			return // ACK
		}

		env.RetryCount++
		log.Printf("⚠️ %s job failed (attempt %d/%d): %v\n", topic, env.RetryCount, env.MaxRetries, err)

		if env.RetryCount > env.MaxRetries {
			log.Printf("⚠️ %s job permanently failed after %d attempts: %+v\n", topic, env.MaxRetries, env.Job)
			return // No requeue
		}

		// Linear backoff before retry
		time.Sleep(time.Duration(env.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartSendSubscriber wires send jobs to process, which delivers one outbound message.
func StartSendSubscriber(q Queue, process func(outboundID int) error) error {
	err := q.Subscribe(TopicSends, func(job Job) error {
		if job.OutboundMessageID == 0 {
			log.Println("⚠️ Invalid send job, missing outbound message id")
			return nil // no retry
		}
		log.Println("📩 Processing queued outbound message ID:", job.OutboundMessageID)
		return process(job.OutboundMessageID)
	})
	if err != nil {
		log.Println("⚠️ Failed to start subscriber for", TopicSends, err)
	}
	return err
}

// StartExportSubscriber wires export jobs to export.
func StartExportSubscriber(q Queue, export func(run model.CampaignRun) error) error {
	err := q.Subscribe(TopicExports, func(job Job) error {
		if job.Run == nil {
			log.Println("⚠️ Invalid export job, missing run")
			return nil
		}
		return export(*job.Run)
	})
	if err != nil {
		log.Println("⚠️ Failed to start subscriber for", TopicExports, err)
	}
	return err
}
