package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
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
	msg, ok := m.msgs[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (m *MockOutboundRepo) Update(ctx context.Context, msg *model.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.msgs[msg.ID] = &cp
	return nil
}

type MockClients struct {
	clients map[string]model.Client
	err     error
}

func (m *MockClients) GetByID(ctx context.Context, coachID, id string) (*model.Client, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.clients[id]
	if !ok {
		return nil, appErrors.NewClientNotFound(id)
	}
	return &c, nil
}

type RecordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *RecordingSender) Send(ctx context.Context, client model.Client, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, client.Phone+": "+text)
	return nil
}

func newWorkerFixture(msg model.OutboundMessage) (*MockOutboundRepo, *RecordingSender, *service.Worker) {
	repo := &MockOutboundRepo{msgs: map[int]*model.OutboundMessage{msg.ID: &msg}}
	s := &RecordingSender{}
	clients := &MockClients{clients: map[string]model.Client{
		"a": {ID: "a", Name: "Ann Lee", Phone: "+100"},
	}}
	return repo, s, service.NewWorker(repo, clients, s)
}

func TestWorkerPersonalizesAndMarksSent(t *testing.T) {
	repo, s, w := newWorkerFixture(model.OutboundMessage{ID: 1, CoachID: "c", ClientID: "a", Content: "Nice job {first_name}!", Status: model.StatusPending})

	if err := w.Process(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	msg, _ := repo.GetByID(context.Background(), 1)
	if msg.Status != model.StatusSent || msg.RenderedContent != "Nice job Ann!" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(s.sent) != 1 || s.sent[0] != "+100: Nice job Ann!" {
		t.Errorf("unexpected sends %v", s.sent)
	}

	// already sent: no second delivery
	w.Process(context.Background(), 1)
	if len(s.sent) != 1 {
		t.Error("sent message must not be delivered twice")
	}
}

func TestWorkerFailureRequestsRetry(t *testing.T) {
	repo, s, w := newWorkerFixture(model.OutboundMessage{ID: 1, CoachID: "c", ClientID: "a", Content: "x", Status: model.StatusPending})
	s.err = errors.New("gateway timeout")

	if err := w.Process(context.Background(), 1); err == nil {
		t.Fatal("expected error so the queue retries")
	}
	msg, _ := repo.GetByID(context.Background(), 1)
	if msg.Status != model.StatusFailed || msg.RetryCount != 1 || msg.LastError == "" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestWorkerUnknownClientFailsWithoutRetry(t *testing.T) {
	repo, _, w := newWorkerFixture(model.OutboundMessage{ID: 1, CoachID: "c", ClientID: "ghost", Content: "x", Status: model.StatusPending})

	if err := w.Process(context.Background(), 1); err != nil {
		t.Fatalf("unknown clients should not be retried: %v", err)
	}
	msg, _ := repo.GetByID(context.Background(), 1)
	if msg.Status != model.StatusFailed {
		t.Errorf("expected failed, got %s", msg.Status)
	}
}

func TestWorkerServesDemoRoster(t *testing.T) {
	repo, s, w := newWorkerFixture(model.OutboundMessage{ID: 1, CoachID: "demo-coach-id", ClientID: "2", Content: "Hey {first_name}", Status: model.StatusPending})

	if err := w.Process(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	msg, _ := repo.GetByID(context.Background(), 1)
	if msg.Status != model.StatusSent || msg.RenderedContent != "Hey Francis" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(s.sent) != 1 {
		t.Errorf("expected one send, got %d", len(s.sent))
	}
}

func TestWorkerMissingMessage(t *testing.T) {
	_, _, w := newWorkerFixture(model.OutboundMessage{ID: 1})
	if err := w.Process(context.Background(), 42); err != nil {
		t.Errorf("missing messages are dropped, got %v", err)
	}
}
