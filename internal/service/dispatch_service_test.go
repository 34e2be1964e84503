package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/queue"
	"github.com/unclebandit/coachline-backend/internal/service"
)

type MockOutbound struct {
	msgs   []*model.OutboundMessage
	err    error
	status string // overrides the stored status, simulating an existing row
}

func (m *MockOutbound) Create(ctx context.Context, msg *model.OutboundMessage) error {
	if m.err != nil {
		return m.err
	}
	msg.ID = len(m.msgs) + 1
	if m.status != "" {
		msg.Status = m.status
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

type MockQueue struct {
	jobs []queue.Job
	err  error
}

func (q *MockQueue) Publish(topic string, job queue.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *MockQueue) Subscribe(topic string, handler queue.Handler) error { return nil }

func TestQueueDispatchImmediateIsQueued(t *testing.T) {
	out := &MockOutbound{}
	q := &MockQueue{}
	svc := &service.QueueDispatchService{Outbound: out, Queue: q}

	err := svc.Send(context.Background(), model.DispatchRequest{
		ID: "req-1", CoachID: "c", ClientIDs: []string{"a"}, Kind: model.KindCelebration,
		Content: "Hi {first_name}", Timing: model.DispatchTiming{Kind: model.TimingImmediate},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.msgs) != 1 || out.msgs[0].Status != model.StatusPending || out.msgs[0].RequestID != "req-1" {
		t.Fatalf("unexpected recorded messages %+v", out.msgs)
	}
	if len(q.jobs) != 1 || q.jobs[0].OutboundMessageID != 1 {
		t.Errorf("expected one queued job, got %+v", q.jobs)
	}
}

func TestQueueDispatchScheduledWaits(t *testing.T) {
	out := &MockOutbound{}
	q := &MockQueue{}
	svc := &service.QueueDispatchService{Outbound: out, Queue: q}
	at := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	svc.Send(context.Background(), model.DispatchRequest{
		ID: "req-2", ClientIDs: []string{"a"}, Kind: model.KindAccountability, Content: "x",
		Timing: model.DispatchTiming{Kind: model.TimingAt, SendAt: &at},
	})
	svc.Send(context.Background(), model.DispatchRequest{
		ID: "req-3", ClientIDs: []string{"a"}, Kind: model.KindAccountability, Content: "x",
		Timing: model.DispatchTiming{Kind: model.TimingRecurring, Cadence: model.CadenceWeekly},
	})

	if len(q.jobs) != 0 {
		t.Errorf("scheduled messages should not be queued yet, got %d", len(q.jobs))
	}
	if out.msgs[0].Status != model.StatusScheduled || !out.msgs[0].SendAt.Equal(at) {
		t.Errorf("unexpected scheduled message %+v", out.msgs[0])
	}
	if out.msgs[1].Status != model.StatusRecurring || out.msgs[1].Cadence != model.CadenceWeekly {
		t.Errorf("unexpected recurring message %+v", out.msgs[1])
	}
}

func TestQueueDispatchSkipsAlreadySent(t *testing.T) {
	out := &MockOutbound{status: model.StatusSent}
	q := &MockQueue{}
	svc := &service.QueueDispatchService{Outbound: out, Queue: q}

	if err := svc.Send(context.Background(), model.DispatchRequest{ID: "r", ClientIDs: []string{"a"}, Content: "x"}); err != nil {
		t.Fatal(err)
	}
	if len(q.jobs) != 0 {
		t.Error("a resubmitted request must not be queued again")
	}
}

func TestQueueDispatchErrors(t *testing.T) {
	svc := &service.QueueDispatchService{Outbound: &MockOutbound{err: errors.New("db down")}, Queue: &MockQueue{}}
	if err := svc.Send(context.Background(), model.DispatchRequest{ID: "r", ClientIDs: []string{"a"}}); err == nil {
		t.Error("expected record error")
	}

	svc = &service.QueueDispatchService{Outbound: &MockOutbound{}, Queue: &MockQueue{err: errors.New("no broker")}}
	if err := svc.Send(context.Background(), model.DispatchRequest{ID: "r", ClientIDs: []string{"a"}}); err == nil {
		t.Error("expected publish error")
	}

	if err := svc.Send(context.Background(), model.DispatchRequest{ID: "r"}); err == nil {
		t.Error("expected error for a request without clients")
	}
}

func TestQueueExportSinkPublishesRun(t *testing.T) {
	q := &MockQueue{}
	sink := &service.QueueExportSink{Queue: q}
	if err := sink.Export(context.Background(), model.CampaignRun{CoachID: "c", Attempted: 3}); err != nil {
		t.Fatal(err)
	}
	if len(q.jobs) != 1 || q.jobs[0].Run == nil || q.jobs[0].Run.Attempted != 3 {
		t.Errorf("unexpected jobs %+v", q.jobs)
	}
	if err := service.WriteExport(*q.jobs[0].Run); err != nil {
		t.Errorf("WriteExport: %v", err)
	}
}
