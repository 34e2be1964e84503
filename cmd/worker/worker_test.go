package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/queue"
	"github.com/unclebandit/coachline-backend/internal/service"
)

// MockOutboundRepo stores messages in memory
type MockOutboundRepo struct {
	msgs map[int]*model.OutboundMessage
	mu   sync.Mutex
}

func (m *MockOutboundRepo) GetByID(ctx context.Context, id int) (*model.OutboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.msgs[id]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, nil
}

func (m *MockOutboundRepo) Update(ctx context.Context, msg *model.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.msgs[msg.ID] = &cp
	return nil
}

// flakySender fails the first failures sends and signals each successful one
type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
	wg       *sync.WaitGroup
}

func (s *flakySender) Send(ctx context.Context, client model.Client, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("mock send failed")
	}
	s.wg.Done()
	return nil
}

func newQueue() *queue.InMemoryQueue {
	q := queue.NewInMemoryQueue()
	q.Backoff = time.Millisecond
	return q
}

func TestWorker(t *testing.T) {
	// demo roster client, so no client repository is needed
	repo := &MockOutboundRepo{
		msgs: map[int]*model.OutboundMessage{
			1: {ID: 1, Status: model.StatusPending, CoachID: "demo-coach-id", ClientID: "1", Content: "Hi {first_name}"},
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	s := &flakySender{wg: &wg}

	q := newQueue()
	if err := subscribe(context.Background(), q, service.NewWorker(repo, nil, s)); err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(queue.TopicSends, queue.Job{OutboundMessageID: 1}); err != nil {
		t.Fatal(err)
	}

	// Wait until worker processes the job
	wg.Wait()
	waitForStatus(t, repo, 1, model.StatusSent)

	msg, _ := repo.GetByID(context.Background(), 1)
	if msg.RenderedContent != "Hi Mike" {
		t.Errorf("expected personalised content, got %q", msg.RenderedContent)
	}
}

func TestWorkerRetriesFailedSend(t *testing.T) {
	repo := &MockOutboundRepo{
		msgs: map[int]*model.OutboundMessage{
			1: {ID: 1, Status: model.StatusPending, CoachID: "demo-coach-id", ClientID: "2", Content: "Hello"},
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	s := &flakySender{failures: 2, wg: &wg}

	q := newQueue()
	if err := subscribe(context.Background(), q, service.NewWorker(repo, nil, s)); err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(queue.TopicSends, queue.Job{OutboundMessageID: 1}); err != nil {
		t.Fatal(err)
	}

	wg.Wait()
	waitForStatus(t, repo, 1, model.StatusSent)

	msg, _ := repo.GetByID(context.Background(), 1)
	if msg.RetryCount != 2 {
		t.Errorf("expected 2 recorded retries, got %d", msg.RetryCount)
	}
}

func TestSubscribeHandlesExports(t *testing.T) {
	q := newQueue()
	if err := subscribe(context.Background(), q, service.NewWorker(&MockOutboundRepo{msgs: map[int]*model.OutboundMessage{}}, nil, &flakySender{})); err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(queue.TopicExports, queue.Job{Run: &model.CampaignRun{CoachID: "c-1"}}); err != nil {
		t.Errorf("export topic should have a subscriber: %v", err)
	}
}

// waitForStatus polls because the status update lands just after the send.
func waitForStatus(t *testing.T, repo *MockOutboundRepo, id int, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg, _ := repo.GetByID(context.Background(), id)
		if msg != nil && msg.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	msg, _ := repo.GetByID(context.Background(), id)
	t.Fatalf("expected status %s, got %+v", want, msg)
}
