package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/service"
)

var errDown = errors.New("connection refused")

// MockRegistry is an in-memory client registry.
type MockRegistry struct {
	mu         sync.Mutex
	clients    []model.Client
	categories []model.Category
	fail       bool
}

func newMockRegistry(clients ...model.Client) *MockRegistry {
	return &MockRegistry{clients: clients, categories: []model.Category{{ID: 1, Name: "Health"}}}
}

func (m *MockRegistry) ListClients(ctx context.Context, coachID string) ([]model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	return append([]model.Client(nil), m.clients...), nil
}

func (m *MockRegistry) GetByID(ctx context.Context, coachID, id string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, appErrors.NewClientNotFound(id)
}

func (m *MockRegistry) CreateClient(ctx context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = "new"
	}
	m.clients = append(m.clients, *c)
	return nil
}

func (m *MockRegistry) UpdateClient(ctx context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.clients {
		if m.clients[i].ID == c.ID {
			m.clients[i] = *c
			return nil
		}
	}
	return appErrors.NewClientNotFound(c.ID)
}

func (m *MockRegistry) DeleteClient(ctx context.Context, coachID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.clients {
		if m.clients[i].ID == id {
			m.clients = append(m.clients[:i], m.clients[i+1:]...)
			return nil
		}
	}
	return appErrors.NewClientNotFound(id)
}

func (m *MockRegistry) ListCategories(ctx context.Context, coachID string) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	return append([]model.Category(nil), m.categories...), nil
}

func (m *MockRegistry) AddCategory(ctx context.Context, coachID, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := model.Category{ID: len(m.categories) + 1, CoachID: coachID, Name: name}
	m.categories = append(m.categories, c)
	return &c, nil
}

// MockTemplates serves fixed templates per kind.
type MockTemplates struct {
	byKind map[model.MessageKind][]string
	fail   bool
}

func (m *MockTemplates) ListTemplates(ctx context.Context, coachID string, kind model.MessageKind) ([]model.Template, error) {
	if m.fail {
		return nil, errDown
	}
	var out []model.Template
	for i, body := range m.byKind[kind] {
		out = append(out, model.Template{ID: i + 1, CoachID: coachID, Kind: kind, Content: body})
	}
	return out, nil
}

// MockOracle answers from a map; missing clients are closed.
type MockOracle struct {
	mu     sync.Mutex
	open   map[string]bool
	fail   map[string]bool
	gate   chan struct{}
	called int
}

func (m *MockOracle) CanSendFree(ctx context.Context, coachID, clientID string) (bool, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	if m.fail[clientID] {
		return false, errDown
	}
	return m.open[clientID], nil
}

// MockDispatch records requests and fails for chosen clients.
type MockDispatch struct {
	mu       sync.Mutex
	requests []model.DispatchRequest
	failFor  map[string]bool
	delay    time.Duration

	inFlight    int
	maxInFlight int
}

func (m *MockDispatch) Send(ctx context.Context, req model.DispatchRequest) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	m.requests = append(m.requests, req)
	if m.failFor[req.ClientIDs[0]] {
		return errors.New("upstream rejected message")
	}
	return nil
}

func (m *MockDispatch) Requests() []model.DispatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DispatchRequest(nil), m.requests...)
}

type MockExport struct {
	runs []model.CampaignRun
	err  error
}

func (m *MockExport) Export(ctx context.Context, run model.CampaignRun) error {
	m.runs = append(m.runs, run)
	return m.err
}

type MockRuns struct {
	mu   sync.Mutex
	runs []model.CampaignRun
}

func (m *MockRuns) Create(ctx context.Context, run *model.CampaignRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = len(m.runs) + 1
	m.runs = append(m.runs, *run)
	return nil
}

// fixture bundles a workflow with its collaborators.
type fixture struct {
	wf       *service.Workflow
	registry *MockRegistry
	oracle   *MockOracle
	dispatch *MockDispatch
	export   *MockExport
	runs     *MockRuns
}

const (
	celebrationTemplate    = "🎉 What are we celebrating today?"
	accountabilityTemplate = "How did today go with your goals?"
)

func testClients() []model.Client {
	return []model.Client{
		{ID: "a", CoachID: "coach-1", Name: "Ann Lee", Phone: "+100", Timezone: "EST", Categories: []string{"Health"}},
		{ID: "b", CoachID: "coach-1", Name: "Ben Cho", Phone: "+101", Timezone: "PST"},
		{ID: "c", CoachID: "coach-1", Name: "Cal Diaz", Phone: "+102", Timezone: "CST"},
	}
}

func newFixture(open map[string]bool) *fixture {
	f := &fixture{
		registry: newMockRegistry(testClients()...),
		oracle:   &MockOracle{open: open, fail: map[string]bool{}},
		dispatch: &MockDispatch{failFor: map[string]bool{}},
		export:   &MockExport{},
		runs:     &MockRuns{},
	}
	templates := &MockTemplates{byKind: map[model.MessageKind][]string{
		model.KindCelebration:    {celebrationTemplate},
		model.KindAccountability: {accountabilityTemplate},
	}}
	f.wf = service.NewWorkflow("coach-1", service.WorkflowDeps{
		Roster:    &service.RosterService{Registry: f.registry},
		Templates: &service.TemplateService{Store: templates},
		Oracle:    f.oracle,
		Batcher:   &service.Batcher{Service: f.dispatch, Concurrency: 4},
		Export:    f.export,
		Runs:      f.runs,
	})
	if err := f.wf.Load(context.Background()); err != nil {
		panic(err)
	}
	return f
}

// selectAndAuthor selects ids, waits for eligibility and enters celebration authoring.
func (f *fixture) selectAndAuthor(ids ...string) {
	for _, id := range ids {
		if err := f.wf.ToggleClient(id); err != nil {
			panic(err)
		}
	}
	f.wf.WaitForRefreshes()
	if err := f.wf.BeginAuthoring(); err != nil {
		panic(err)
	}
}
