package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coachline-backend/internal/controller"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/service"
)

// --- Mocks ---

type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.CoachSession
}

func (m *MockSessionStore) Save(ctx context.Context, s *model.CoachSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.CoachID] = *s
	return nil
}

func (m *MockSessionStore) Load(ctx context.Context, coachID string) (*model.CoachSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[coachID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, coachID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, coachID)
	return nil
}

type MockDispatch struct {
	mu       sync.Mutex
	requests []model.DispatchRequest
}

func (m *MockDispatch) Send(ctx context.Context, req model.DispatchRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return nil
}

// --- Helpers ---

func newServer(t *testing.T) (*httptest.Server, *MockDispatch) {
	t.Helper()
	d := &MockDispatch{}
	sessions := service.NewSessionManager(
		&MockSessionStore{sessions: map[string]model.CoachSession{}},
		func(coach model.CoachSession) *service.Workflow {
			// no registry or oracle: demo roster, every window closed
			return service.NewWorkflow(coach.CoachID, service.WorkflowDeps{
				Batcher: &service.Batcher{Service: d, Concurrency: 2},
			})
		},
	)
	r := chi.NewRouter()
	(&controller.WorkflowController{Sessions: sessions}).Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, d
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			json.NewEncoder(&buf).Encode(b)
		}
	}
	req, _ := http.NewRequest(method, srv.URL+path, &buf)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func register(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, out := do(t, srv, "POST", "/register", `{"coach_id":"c-1","whatsapp_token":"tok","name":"Pat"}`)
	if resp.StatusCode != http.StatusOK || out["status"] != service.RegistrationNew {
		t.Fatalf("register failed: %d %v", resp.StatusCode, out)
	}
}

// --- Tests ---

func TestRegisterWithUnreadablePayloadUsesDemoCoach(t *testing.T) {
	srv, _ := newServer(t)
	resp, out := do(t, srv, "POST", "/register", "garbage")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["status"] != service.RegistrationDemo {
		t.Errorf("expected demo registration, got %v", out["status"])
	}
	coach := out["coach"].(map[string]interface{})
	if coach["id"] != "demo-coach-id" {
		t.Errorf("unexpected coach %v", coach)
	}
}

func TestCampaignFlowOverHTTP(t *testing.T) {
	srv, d := newServer(t)
	register(t, srv)
	base := "/coaches/c-1/campaign"

	if resp, _ := do(t, srv, "POST", base+"/clients/1/toggle", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: %d", resp.StatusCode)
	}
	resp, snap := do(t, srv, "POST", base+"/start", nil)
	if resp.StatusCode != http.StatusOK || snap["step"] != "celebration_authoring" {
		t.Fatalf("start: %d %v", resp.StatusCode, snap["step"])
	}

	// free-form text to a client outside the window is refused with the templates
	resp, out := do(t, srv, "PUT", base+"/drafts/1/celebration", map[string]interface{}{"content": "so proud of you"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	templates, _ := out["templates"].([]interface{})
	if len(templates) == 0 {
		t.Fatalf("expected templates in the error body, got %v", out)
	}

	resp, _ = do(t, srv, "PUT", base+"/drafts/1/celebration", map[string]interface{}{"content": templates[0]})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("template draft: %d", resp.StatusCode)
	}

	// typing is recorded without the check
	resp, _ = do(t, srv, "PUT", base+"/drafts/1/accountability", map[string]interface{}{"content": "custom", "typed": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("typed draft: %d", resp.StatusCode)
	}

	do(t, srv, "POST", base+"/continue", nil)
	resp, out = do(t, srv, "POST", base+"/send-all", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send-all: %d %v", resp.StatusCode, out)
	}
	if out["step"] != "confirmation" {
		t.Errorf("expected confirmation, got %v", out["step"])
	}
	report := out["report"].(map[string]interface{})
	if report["attempted"].(float64) != 1 {
		t.Errorf("expected 1 attempted, got %v", report["attempted"])
	}
	if blocked := report["blocked"].([]interface{}); len(blocked) != 1 {
		t.Errorf("typed free-form draft should be blocked, got %v", blocked)
	}
	if len(d.requests) != 1 || d.requests[0].Kind != model.KindCelebration {
		t.Errorf("unexpected dispatched requests %+v", d.requests)
	}

	resp, snap = do(t, srv, "POST", base+"/reset", nil)
	if resp.StatusCode != http.StatusOK || snap["step"] != "client_selection" {
		t.Errorf("reset: %d %v", resp.StatusCode, snap["step"])
	}
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv)
	resp, out := do(t, srv, "POST", "/coaches/c-1/campaign/continue", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if !strings.Contains(out["error"].(string), "client_selection") {
		t.Errorf("error should name the step, got %v", out["error"])
	}
	if resp, _ := do(t, srv, "POST", "/coaches/c-1/campaign/start", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("start without selection: expected 409, got %d", resp.StatusCode)
	}
}

func TestUnknownCoachAndClient(t *testing.T) {
	srv, _ := newServer(t)
	if resp, _ := do(t, srv, "GET", "/coaches/nobody/campaign", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown coach, got %d", resp.StatusCode)
	}
	register(t, srv)
	if resp, _ := do(t, srv, "POST", "/coaches/c-1/campaign/clients/999/toggle", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown client, got %d", resp.StatusCode)
	}
}

func TestInvalidScheduleIsUnprocessable(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv)
	base := "/coaches/c-1/campaign"
	do(t, srv, "POST", base+"/clients/2/toggle", nil)
	do(t, srv, "POST", base+"/start", nil)

	resp, _ := do(t, srv, "PUT", base+"/schedules/2/celebration", model.Specific("not a time"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, "PUT", base+"/schedules/2/celebration", model.Recurring(model.CadenceWeekly))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestUnknownKind(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv)
	if resp, _ := do(t, srv, "GET", "/coaches/c-1/campaign/templates/gratitude", nil); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
	resp, out := do(t, srv, "GET", "/coaches/c-1/campaign/templates/celebration", nil)
	if resp.StatusCode != http.StatusOK || len(out["data"].([]interface{})) != 5 {
		t.Errorf("expected 5 templates, got %d %v", resp.StatusCode, out)
	}
}

func TestSuggestion(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv)
	resp, out := do(t, srv, "GET", "/coaches/c-1/campaign/suggestions/2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["content"] != "How are you progressing with your financial goals this week?" {
		t.Errorf("unexpected suggestion %v", out["content"])
	}
}

func TestLogout(t *testing.T) {
	srv, _ := newServer(t)
	register(t, srv)
	if resp, _ := do(t, srv, "POST", "/coaches/c-1/logout", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, srv, "GET", "/coaches/c-1/session", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after logout, got %d", resp.StatusCode)
	}
}
