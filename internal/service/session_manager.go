// internal/service/session_manager.go
package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/fallback"
	"github.com/unclebandit/coachline-backend/internal/model"
)

// Registration is the payload a coach scans to log in.
type Registration struct {
	CoachID  string `json:"coach_id"`
	Token    string `json:"whatsapp_token"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
}

// Registration outcomes
const (
	RegistrationNew      = "registered"
	RegistrationExisting = "existing"
	RegistrationUnsaved  = "unsaved"
	RegistrationDemo     = "demo"
)

// ParseRegistration decodes a scanned payload. Anything unreadable is
// treated as the demo coach.
func ParseRegistration(raw []byte) Registration {
	var reg Registration
	if err := json.Unmarshal(raw, &reg); err != nil || strings.TrimSpace(reg.CoachID) == "" {
		demo := fallback.Coach()
		return Registration{CoachID: "demo", Token: demo.ChannelToken, Name: demo.Name}
	}
	return reg
}

type coachEntry struct {
	coach    model.CoachSession
	workflow *Workflow
}

// SessionManager keeps one workflow per logged-in coach.
type SessionManager struct {
	Store       SessionStore
	NewWorkflow func(coach model.CoachSession) *Workflow

	mu      sync.Mutex
	coaches map[string]*coachEntry
}

func NewSessionManager(store SessionStore, newWorkflow func(coach model.CoachSession) *Workflow) *SessionManager {
	return &SessionManager{
		Store:       store,
		NewWorkflow: newWorkflow,
		coaches:     make(map[string]*coachEntry),
	}
}

// Register logs a coach in. Only the "demo" id gets the shared demo coach;
// when the session cannot be stored the coach keeps an in-memory session of
// their own.
func (m *SessionManager) Register(ctx context.Context, reg Registration) (model.CoachSession, string) {
	if reg.CoachID == "demo" {
		coach := fallback.Coach()
		m.attach(ctx, coach)
		return coach, RegistrationDemo
	}

	coach := model.CoachSession{
		CoachID:      reg.CoachID,
		Name:         reg.Name,
		ChannelToken: reg.Token,
		Timezone:     reg.Timezone,
	}
	if coach.Timezone == "" {
		coach.Timezone = fallback.Coach().Timezone
	}
	if m.Store == nil {
		return m.keepInMemory(ctx, coach)
	}

	status := RegistrationNew
	existing, err := m.Store.Load(ctx, reg.CoachID)
	if err != nil {
		log.Println("⚠️ Session store unavailable:", err)
		return m.keepInMemory(ctx, coach)
	}
	if existing != nil {
		status = RegistrationExisting
		coach.CreatedAt = existing.CreatedAt
		if coach.Name == "" {
			coach.Name = existing.Name
		}
	}
	if err := m.Store.Save(ctx, &coach); err != nil {
		log.Println("⚠️ Failed to save session:", err)
		return m.keepInMemory(ctx, coach)
	}

	coach.Persisted = true
	m.attach(ctx, coach)
	log.Printf("✅ Coach %s %s\n", coach.CoachID, status)
	return coach, status
}

// keepInMemory attaches the coach without a stored session. It is lost on
// restart and logout does not touch the store.
func (m *SessionManager) keepInMemory(ctx context.Context, coach model.CoachSession) (model.CoachSession, string) {
	coach.Persisted = false
	m.attach(ctx, coach)
	log.Printf("⚠️ Coach %s session kept in memory only\n", coach.CoachID)
	return coach, RegistrationUnsaved
}

func (m *SessionManager) attach(ctx context.Context, coach model.CoachSession) *Workflow {
	m.mu.Lock()
	if e, ok := m.coaches[coach.CoachID]; ok {
		e.coach = coach
		m.mu.Unlock()
		return e.workflow
	}
	wf := m.NewWorkflow(coach)
	m.coaches[coach.CoachID] = &coachEntry{coach: coach, workflow: wf}
	m.mu.Unlock()

	if err := wf.Load(ctx); err != nil {
		log.Println("⚠️ Workflow loaded with fallback data:", err)
	}
	return wf
}

func (m *SessionManager) lookup(ctx context.Context, coachID string) (*coachEntry, error) {
	m.mu.Lock()
	e, ok := m.coaches[coachID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}

	if m.Store == nil {
		return nil, appErrors.NewSessionNotFound(coachID)
	}
	coach, err := m.Store.Load(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if coach == nil {
		return nil, appErrors.NewSessionNotFound(coachID)
	}
	coach.Persisted = true
	m.attach(ctx, *coach)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coaches[coachID], nil
}

// Workflow returns the coach's workflow, restoring it from the session store
// after a restart.
func (m *SessionManager) Workflow(ctx context.Context, coachID string) (*Workflow, error) {
	e, err := m.lookup(ctx, coachID)
	if err != nil {
		return nil, err
	}
	return e.workflow, nil
}

func (m *SessionManager) Session(ctx context.Context, coachID string) (model.CoachSession, error) {
	e, err := m.lookup(ctx, coachID)
	if err != nil {
		return model.CoachSession{}, err
	}
	return e.coach, nil
}

// Logout drops the workflow and, for stored sessions, the stored record.
func (m *SessionManager) Logout(ctx context.Context, coachID string) error {
	m.mu.Lock()
	e, ok := m.coaches[coachID]
	delete(m.coaches, coachID)
	m.mu.Unlock()

	if ok && !e.coach.Persisted {
		return nil
	}
	if m.Store == nil {
		return appErrors.NewSessionNotFound(coachID)
	}
	return m.Store.Delete(ctx, coachID)
}
