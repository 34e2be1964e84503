// internal/service/workflow.go
package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/unclebandit/coachline-backend/internal/campaign"
	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

type WorkflowDeps struct {
	Roster    *RosterService
	Templates *TemplateService
	Oracle    WindowOracle
	Batcher   *Batcher
	Export    ExportSink
	Runs      RunRecorder
	Resolver  campaign.Resolver
}

// Workflow is one coach's campaign session. Calls are serialised; I/O runs
// outside the lock.
type Workflow struct {
	WorkflowDeps
	coachID string

	mu          sync.Mutex
	state       campaign.State
	roster      []model.Client
	categories  []model.Category
	templates   map[model.MessageKind][]model.Template
	notices     []string
	lastReport  *Report
	dispatching bool

	refreshes sync.WaitGroup
}

func NewWorkflow(coachID string, deps WorkflowDeps) *Workflow {
	if deps.Roster == nil {
		deps.Roster = &RosterService{}
	}
	if deps.Templates == nil {
		deps.Templates = &TemplateService{}
	}
	return &Workflow{
		WorkflowDeps: deps,
		coachID:      coachID,
		state:        campaign.NewState(coachID),
		templates:    make(map[model.MessageKind][]model.Template),
	}
}

func (w *Workflow) CoachID() string { return w.coachID }

// Load fetches roster, categories and templates. Fallback data is installed
// for anything that failed; the joined error is informational.
func (w *Workflow) Load(ctx context.Context) error {
	roster, rerr := w.Roster.Roster(ctx, w.coachID)
	categories, cerr := w.Roster.Categories(ctx, w.coachID)

	templates := make(map[model.MessageKind][]model.Template, len(model.AllKinds))
	errs := []error{rerr, cerr}
	for _, kind := range model.AllKinds {
		t, err := w.Templates.Templates(ctx, w.coachID, kind)
		templates[kind] = t
		errs = append(errs, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.roster = roster
	w.categories = categories
	w.templates = templates
	w.notices = nil
	for _, err := range errs {
		if err != nil {
			w.notices = append(w.notices, err.Error())
		}
	}
	return errors.Join(errs...)
}

// ====================== Snapshot ======================

type DraftView struct {
	ClientID   string                 `json:"client_id"`
	Kind       model.MessageKind      `json:"message_type"`
	Content    string                 `json:"content"`
	IsTemplate bool                   `json:"is_template"`
	Schedule   model.SchedulingChoice `json:"schedule"`
}

type Snapshot struct {
	CoachID     string                                 `json:"coach_id"`
	Step        campaign.Step                          `json:"step"`
	ReturnStep  campaign.Step                          `json:"return_step,omitempty"`
	Selected    []string                               `json:"selected"`
	Drafts      []DraftView                            `json:"drafts"`
	Eligibility map[string]bool                        `json:"eligibility"`
	Roster      []model.Client                         `json:"roster"`
	Categories  []model.Category                       `json:"categories"`
	Templates   map[model.MessageKind][]model.Template `json:"templates"`
	LastReport  *Report                                `json:"last_report,omitempty"`
	Notices     []string                               `json:"notices,omitempty"`
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.state
	keys := map[campaign.DraftKey]bool{}
	for _, k := range s.Drafts.Keys() {
		keys[k] = true
	}
	for k := range s.Schedules {
		keys[k] = true
	}
	drafts := make([]DraftView, 0, len(keys))
	for k := range keys {
		d, _ := s.Drafts.Get(k.ClientID, k.Kind)
		drafts = append(drafts, DraftView{
			ClientID:   k.ClientID,
			Kind:       k.Kind,
			Content:    d.Content,
			IsTemplate: d.IsTemplate,
			Schedule:   s.Schedule(k.ClientID, k.Kind),
		})
	}
	sort.Slice(drafts, func(i, j int) bool {
		if drafts[i].ClientID != drafts[j].ClientID {
			return drafts[i].ClientID < drafts[j].ClientID
		}
		return drafts[i].Kind < drafts[j].Kind
	})

	eligibility := make(map[string]bool, len(s.Eligibility))
	for id, ok := range s.Eligibility {
		eligibility[id] = ok
	}
	templates := make(map[model.MessageKind][]model.Template, len(w.templates))
	for k, v := range w.templates {
		templates[k] = append([]model.Template(nil), v...)
	}

	var report *Report
	if w.lastReport != nil {
		r := *w.lastReport
		report = &r
	}

	return Snapshot{
		CoachID:     w.coachID,
		Step:        s.Step,
		ReturnStep:  s.ReturnStep,
		Selected:    append([]string{}, s.Selected...),
		Drafts:      drafts,
		Eligibility: eligibility,
		Roster:      append([]model.Client{}, w.roster...),
		Categories:  append([]model.Category{}, w.categories...),
		Templates:   templates,
		LastReport:  report,
		Notices:     append([]string(nil), w.notices...),
	}
}

// State returns a copy of the engine state.
func (w *Workflow) State() campaign.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

func (w *Workflow) TemplatesFor(kind model.MessageKind) []model.Template {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.Template(nil), w.templates[kind]...)
}

// ====================== Transitions ======================

// apply runs fn against the current state under the lock.
func (w *Workflow) apply(action string, fn func(campaign.State) (campaign.State, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dispatching {
		return appErrors.NewInvalidTransition(string(campaign.StepDispatching), action)
	}
	next, err := fn(w.state)
	if err != nil {
		return err
	}
	w.state = next
	return nil
}

func (w *Workflow) clientLocked(id string) (model.Client, bool) {
	for _, c := range w.roster {
		if c.ID == id {
			return c, true
		}
	}
	return model.Client{}, false
}

func (w *Workflow) rosterIDsLocked() []string {
	ids := make([]string, 0, len(w.roster))
	for _, c := range w.roster {
		ids = append(ids, c.ID)
	}
	return ids
}

// ToggleClient selects or deselects a roster client. Selecting starts an
// eligibility refresh in the background.
func (w *Workflow) ToggleClient(clientID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dispatching {
		return appErrors.NewInvalidTransition(string(campaign.StepDispatching), "change the client selection")
	}
	if _, ok := w.clientLocked(clientID); !ok {
		return appErrors.NewClientNotFound(clientID)
	}
	next, tok, err := campaign.ToggleClient(w.state, clientID)
	if err != nil {
		return err
	}
	w.state = next
	if tok != nil {
		w.startRefreshLocked(*tok)
	}
	return nil
}

func (w *Workflow) SelectAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dispatching {
		return appErrors.NewInvalidTransition(string(campaign.StepDispatching), "change the client selection")
	}
	next, tokens, err := campaign.SelectAll(w.state, w.rosterIDsLocked())
	if err != nil {
		return err
	}
	w.state = next
	for _, tok := range tokens {
		w.startRefreshLocked(tok)
	}
	return nil
}

func (w *Workflow) startRefreshLocked(tok campaign.RefreshToken) {
	w.refreshes.Add(1)
	go func() {
		defer w.refreshes.Done()
		canSendFree := w.checkWindow(tok.ClientID)

		w.mu.Lock()
		defer w.mu.Unlock()
		next, applied := campaign.ApplyEligibility(w.state, tok, canSendFree)
		if !applied {
			log.Println("⚠️ Discarding stale eligibility result for client", tok.ClientID)
			return
		}
		w.state = next
	}()
}

// checkWindow fails closed.
func (w *Workflow) checkWindow(clientID string) bool {
	if w.Oracle == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	ok, err := w.Oracle.CanSendFree(ctx, w.coachID, clientID)
	if err != nil {
		log.Println("⚠️", appErrors.NewEligibilityUnknown(clientID, err))
		return false
	}
	return ok
}

// WaitForRefreshes blocks until every started eligibility refresh has landed.
func (w *Workflow) WaitForRefreshes() {
	w.refreshes.Wait()
}

func (w *Workflow) BeginAuthoring() error {
	return w.apply("start authoring", campaign.BeginAuthoring)
}

func (w *Workflow) Continue() error {
	return w.apply("continue", campaign.Continue)
}

func (w *Workflow) Back() error {
	return w.apply("go back", campaign.Back)
}

// Reset starts a new campaign; roster, categories and eligibility are kept.
func (w *Workflow) Reset() error {
	return w.apply("reset", func(s campaign.State) (campaign.State, error) {
		next, err := campaign.Reset(s)
		if err == nil {
			w.lastReport = nil
		}
		return next, err
	})
}

// ====================== Authoring ======================

// ChooseMessage sets a draft and enforces the messaging window. A blocked
// choice returns a FreeformBlockedError listing the kind's templates.
func (w *Workflow) ChooseMessage(clientID string, kind model.MessageKind, content string) error {
	return w.apply("author a message", func(s campaign.State) (campaign.State, error) {
		templates := model.TemplateContents(w.templates[kind])
		return campaign.SetDraft(s, clientID, kind, content, templates)
	})
}

// TypeMessage records typed content without the window check.
func (w *Workflow) TypeMessage(clientID string, kind model.MessageKind, content string) error {
	return w.apply("author a message", func(s campaign.State) (campaign.State, error) {
		templates := model.TemplateContents(w.templates[kind])
		return campaign.SetDraftRaw(s, clientID, kind, content, templates)
	})
}

// SetSchedule records choice and then reports whether it resolves. An
// unresolvable choice stays recorded and keeps that draft out of dispatch.
func (w *Workflow) SetSchedule(clientID string, kind model.MessageKind, choice model.SchedulingChoice) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dispatching {
		return appErrors.NewInvalidTransition(string(campaign.StepDispatching), "schedule a message")
	}
	next, err := campaign.SetSchedule(w.state, clientID, kind, choice)
	if err != nil {
		return err
	}
	w.state = next

	client, _ := w.clientLocked(clientID)
	if _, err := w.Resolver.Resolve(choice, w.Resolver.LocationFor(client.Timezone)); err != nil {
		return appErrors.WithDraft(err, clientID, string(kind))
	}
	return nil
}

// Suggest returns a category-based accountability message for a roster client.
func (w *Workflow) Suggest(clientID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	client, ok := w.clientLocked(clientID)
	if !ok {
		return "", appErrors.NewClientNotFound(clientID)
	}
	return SuggestAccountability(client), nil
}

// ====================== Dispatch ======================

func (w *Workflow) timezoneOfLocked() func(string) string {
	zones := make(map[string]string, len(w.roster))
	for _, c := range w.roster {
		zones[c.ID] = c.Timezone
	}
	return func(id string) string { return zones[id] }
}

// SendKind drains one kind's drafts without leaving the authoring step.
// Accepted drafts are removed so a later send-all does not repeat them.
func (w *Workflow) SendKind(ctx context.Context, kind model.MessageKind) (Report, error) {
	w.mu.Lock()
	if w.dispatching {
		w.mu.Unlock()
		return Report{}, appErrors.NewInvalidTransition(string(campaign.StepDispatching), "send "+string(kind)+" messages")
	}
	if err := campaign.CheckPartialSend(w.state, kind); err != nil {
		w.mu.Unlock()
		return Report{}, err
	}
	kinds := []model.MessageKind{kind}
	plan := campaign.PlanDispatch(w.state, kinds, w.Resolver, w.timezoneOfLocked())
	w.dispatching = true
	w.mu.Unlock()

	report := w.Batcher.Dispatch(ctx, plan)

	w.mu.Lock()
	w.state = campaign.RemoveDrafts(w.state, report.Submitted)
	w.dispatching = false
	w.lastReport = &report
	w.mu.Unlock()

	run := newRun(w.coachID, kinds, report, true)
	w.recordRun(ctx, &run)
	return report, report.Err()
}

// SendAll dispatches every selected client's drafts of both kinds, exports
// the run, and always ends in Confirmation. Per-request failures are in the
// report and in the returned DispatchPartialFailureError.
func (w *Workflow) SendAll(ctx context.Context) (Report, error) {
	w.mu.Lock()
	if w.dispatching {
		w.mu.Unlock()
		return Report{}, appErrors.NewInvalidTransition(string(campaign.StepDispatching), "send all messages")
	}
	next, err := campaign.BeginDispatch(w.state)
	if err != nil {
		w.mu.Unlock()
		return Report{}, err
	}
	w.state = next
	plan := campaign.PlanDispatch(w.state, model.AllKinds, w.Resolver, w.timezoneOfLocked())
	w.dispatching = true
	w.mu.Unlock()

	report := w.Batcher.Dispatch(ctx, plan)
	run := newRun(w.coachID, model.AllKinds, report, false)

	if w.Export != nil {
		if err := w.Export.Export(ctx, run); err != nil {
			log.Println("⚠️ Export failed:", err)
			report.ExportError = err.Error()
			run.ExportError = report.ExportError
		}
	}
	w.recordRun(ctx, &run)

	w.mu.Lock()
	if next, err := campaign.CompleteDispatch(w.state); err == nil {
		w.state = next
	}
	w.dispatching = false
	w.lastReport = &report
	w.mu.Unlock()

	return report, report.Err()
}

func newRun(coachID string, kinds []model.MessageKind, r Report, partial bool) model.CampaignRun {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return model.CampaignRun{
		CoachID:   coachID,
		Kinds:     names,
		Attempted: r.Attempted,
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Blocked:   len(r.Blocked),
		Invalid:   len(r.Invalid),
		Partial:   partial,
	}
}

// recordRun is best effort.
func (w *Workflow) recordRun(ctx context.Context, run *model.CampaignRun) {
	if w.Runs == nil {
		return
	}
	if err := w.Runs.Create(ctx, run); err != nil {
		log.Println("⚠️ Failed to record campaign run:", err)
	}
}

// ====================== Client management ======================

func (w *Workflow) EnterManagement() error {
	return w.apply("manage clients", campaign.EnterManagement)
}

// ExitManagement reloads the roster and returns to the prior step, dropping
// selected clients that no longer exist.
func (w *Workflow) ExitManagement(ctx context.Context) error {
	if err := w.requireManagement("finish managing clients"); err != nil {
		return err
	}
	roster, rerr := w.Roster.Roster(ctx, w.coachID)
	categories, _ := w.Roster.Categories(ctx, w.coachID)

	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(roster))
	for _, c := range roster {
		ids = append(ids, c.ID)
	}
	next, err := campaign.ExitManagement(w.state, ids)
	if err != nil {
		return err
	}
	w.state = next
	w.roster = roster
	w.categories = categories
	if rerr != nil {
		w.notices = append(w.notices, rerr.Error())
	}
	return nil
}

func (w *Workflow) requireManagement(action string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Step != campaign.StepClientManagement {
		return appErrors.NewInvalidTransition(string(w.state.Step), action)
	}
	return nil
}

func (w *Workflow) reloadRoster(ctx context.Context) {
	roster, err := w.Roster.Roster(ctx, w.coachID)
	if err != nil {
		return
	}
	categories, _ := w.Roster.Categories(ctx, w.coachID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roster = roster
	w.categories = categories
}

func (w *Workflow) CreateClient(ctx context.Context, in ClientInput) (*model.Client, error) {
	if err := w.requireManagement("create a client"); err != nil {
		return nil, err
	}
	c, err := w.Roster.CreateClient(ctx, w.coachID, in)
	if err != nil {
		return nil, err
	}
	w.reloadRoster(ctx)
	return c, nil
}

func (w *Workflow) UpdateClient(ctx context.Context, id string, in ClientInput) (*model.Client, error) {
	if err := w.requireManagement("edit a client"); err != nil {
		return nil, err
	}
	c, err := w.Roster.UpdateClient(ctx, w.coachID, id, in)
	if err != nil {
		return nil, err
	}
	w.reloadRoster(ctx)
	return c, nil
}

func (w *Workflow) DeleteClient(ctx context.Context, id string) error {
	if err := w.requireManagement("delete a client"); err != nil {
		return err
	}
	if err := w.Roster.DeleteClient(ctx, w.coachID, id); err != nil {
		return err
	}
	w.reloadRoster(ctx)
	return nil
}

func (w *Workflow) AddCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := w.requireManagement("add a category"); err != nil {
		return nil, err
	}
	c, err := w.Roster.AddCategory(ctx, w.coachID, name)
	if err != nil {
		return nil, err
	}
	w.reloadRoster(ctx)
	return c, nil
}
