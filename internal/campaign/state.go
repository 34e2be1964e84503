// Package campaign is the coach campaign workflow engine: eligibility rules,
// drafts, scheduling and the step machine. Everything here is free of I/O;
// transitions take a State and return a new one, leaving the input intact.
package campaign

import (
	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

type Step string

const (
	StepClientSelection  Step = "client_selection"
	StepCelebration      Step = "celebration_authoring"
	StepAccountability   Step = "accountability_authoring"
	StepDispatching      Step = "dispatching"
	StepConfirmation     Step = "confirmation"
	StepClientManagement Step = "client_management"
)

// AuthoringKind is the kind a step authors, if any.
func (s Step) AuthoringKind() (model.MessageKind, bool) {
	switch s {
	case StepCelebration:
		return model.KindCelebration, true
	case StepAccountability:
		return model.KindAccountability, true
	}
	return "", false
}

func (s Step) authoring() bool {
	_, ok := s.AuthoringKind()
	return ok
}

// RefreshToken identifies an eligibility refresh. Results are applied only
// while the client's selection generation still matches.
type RefreshToken struct {
	ClientID   string
	Generation uint64
}

// State is the whole in-memory campaign session for one coach.
type State struct {
	CoachID    string
	Step       Step
	ReturnStep Step
	Selected   []string
	Drafts     DraftStore
	Schedules  map[DraftKey]model.SchedulingChoice
	// Eligibility survives resets for the life of the session.
	Eligibility EligibilityCache

	generation   uint64
	selectionGen map[string]uint64
}

func NewState(coachID string) State {
	return State{
		CoachID:      coachID,
		Step:         StepClientSelection,
		Drafts:       NewDraftStore(),
		Schedules:    make(map[DraftKey]model.SchedulingChoice),
		Eligibility:  make(EligibilityCache),
		selectionGen: make(map[string]uint64),
	}
}

// Clone deep-copies s.
func (s State) Clone() State {
	out := s
	out.Selected = append([]string(nil), s.Selected...)
	out.Drafts = s.Drafts.clone()
	out.Schedules = make(map[DraftKey]model.SchedulingChoice, len(s.Schedules))
	for k, v := range s.Schedules {
		out.Schedules[k] = v
	}
	out.Eligibility = s.Eligibility.clone()
	out.selectionGen = make(map[string]uint64, len(s.selectionGen))
	for k, v := range s.selectionGen {
		out.selectionGen[k] = v
	}
	return out
}

func (s State) IsSelected(clientID string) bool {
	for _, id := range s.Selected {
		if id == clientID {
			return true
		}
	}
	return false
}

// Schedule returns the choice for a draft key, Now when none was set.
func (s State) Schedule(clientID string, kind model.MessageKind) model.SchedulingChoice {
	if c, ok := s.Schedules[DraftKey{ClientID: clientID, Kind: kind}]; ok {
		return c
	}
	return model.Now()
}

func (s *State) bump(clientID string) uint64 {
	s.generation++
	if s.selectionGen == nil {
		s.selectionGen = make(map[string]uint64)
	}
	s.selectionGen[clientID] = s.generation
	return s.generation
}

func (s *State) selectClient(clientID string) RefreshToken {
	s.Selected = append(s.Selected, clientID)
	// Unknown until the refresh lands.
	delete(s.Eligibility, clientID)
	return RefreshToken{ClientID: clientID, Generation: s.bump(clientID)}
}

func (s *State) deselectClient(clientID string) {
	kept := s.Selected[:0]
	for _, id := range s.Selected {
		if id != clientID {
			kept = append(kept, id)
		}
	}
	s.Selected = kept
	s.bump(clientID)
}

// ToggleClient selects or deselects a client. Selecting returns a token for
// the eligibility refresh the caller must issue.
func ToggleClient(s State, clientID string) (State, *RefreshToken, error) {
	if s.Step != StepClientSelection {
		return s, nil, appErrors.NewInvalidTransition(string(s.Step), "change the client selection")
	}
	next := s.Clone()
	if next.IsSelected(clientID) {
		next.deselectClient(clientID)
		return next, nil, nil
	}
	tok := next.selectClient(clientID)
	return next, &tok, nil
}

// SelectAll selects every roster client, or clears the selection when all
// of them are already selected.
func SelectAll(s State, roster []string) (State, []RefreshToken, error) {
	if s.Step != StepClientSelection {
		return s, nil, appErrors.NewInvalidTransition(string(s.Step), "change the client selection")
	}
	next := s.Clone()

	all := len(roster) > 0
	for _, id := range roster {
		if !next.IsSelected(id) {
			all = false
			break
		}
	}
	if all {
		for _, id := range append([]string(nil), next.Selected...) {
			next.deselectClient(id)
		}
		return next, nil, nil
	}

	var tokens []RefreshToken
	for _, id := range roster {
		if !next.IsSelected(id) {
			tokens = append(tokens, next.selectClient(id))
		}
	}
	return next, tokens, nil
}

// ApplyEligibility records a refresh result. Stale tokens are discarded and
// reported with applied=false.
func ApplyEligibility(s State, tok RefreshToken, canSendFree bool) (State, bool) {
	if s.selectionGen[tok.ClientID] != tok.Generation || !s.IsSelected(tok.ClientID) {
		return s, false
	}
	next := s.Clone()
	next.Eligibility[tok.ClientID] = canSendFree
	return next, true
}

// BeginAuthoring moves from client selection to celebration authoring.
func BeginAuthoring(s State) (State, error) {
	if s.Step != StepClientSelection {
		return s, appErrors.NewInvalidTransition(string(s.Step), "start authoring")
	}
	if len(s.Selected) == 0 {
		return s, appErrors.ErrNoClientsSelected
	}
	next := s.Clone()
	next.Step = StepCelebration
	return next, nil
}

// Continue moves from celebration to accountability authoring.
func Continue(s State) (State, error) {
	if s.Step != StepCelebration {
		return s, appErrors.NewInvalidTransition(string(s.Step), "continue")
	}
	next := s.Clone()
	next.Step = StepAccountability
	return next, nil
}

// Back steps one authoring stage backwards.
func Back(s State) (State, error) {
	next := s.Clone()
	switch s.Step {
	case StepAccountability:
		next.Step = StepCelebration
	case StepCelebration:
		next.Step = StepClientSelection
	default:
		return s, appErrors.NewInvalidTransition(string(s.Step), "go back")
	}
	return next, nil
}

func checkAuthoring(s State, clientID, action string) error {
	if !s.Step.authoring() {
		return appErrors.NewInvalidTransition(string(s.Step), action)
	}
	if !s.IsSelected(clientID) {
		return appErrors.NewClientNotSelected(clientID)
	}
	return nil
}

// SetDraft is the explicit "choose this message" action; it enforces eligibility.
func SetDraft(s State, clientID string, kind model.MessageKind, content string, templates []string) (State, error) {
	if err := checkAuthoring(s, clientID, "author a message"); err != nil {
		return s, err
	}
	next := s.Clone()
	if err := next.Drafts.Set(clientID, kind, content, templates, next.Eligibility); err != nil {
		return s, err
	}
	return next, nil
}

// SetDraftRaw is the live-typing path; eligibility is enforced at submit.
func SetDraftRaw(s State, clientID string, kind model.MessageKind, content string, templates []string) (State, error) {
	if err := checkAuthoring(s, clientID, "author a message"); err != nil {
		return s, err
	}
	next := s.Clone()
	next.Drafts.SetRaw(clientID, kind, content, templates)
	return next, nil
}

// SetSchedule records a choice as given. Validation is the resolver's job so
// an invalid Specific choice stays visible and blocks that draft at dispatch.
func SetSchedule(s State, clientID string, kind model.MessageKind, choice model.SchedulingChoice) (State, error) {
	if err := checkAuthoring(s, clientID, "schedule a message"); err != nil {
		return s, err
	}
	next := s.Clone()
	next.Schedules[DraftKey{ClientID: clientID, Kind: kind}] = choice
	return next, nil
}

// CheckPartialSend validates that kind can be drained from the current step.
// Each authoring step only sends its own kind.
func CheckPartialSend(s State, kind model.MessageKind) error {
	if own, ok := s.Step.AuthoringKind(); !ok || own != kind {
		return appErrors.NewInvalidTransition(string(s.Step), "send "+string(kind)+" messages")
	}
	return nil
}

// RemoveDrafts drops the given drafts (and their schedules) after they were sent.
func RemoveDrafts(s State, keys []DraftKey) State {
	next := s.Clone()
	for _, k := range keys {
		next.Drafts.Delete(k)
		delete(next.Schedules, k)
	}
	return next
}

// BeginDispatch enters Dispatching from accountability authoring.
func BeginDispatch(s State) (State, error) {
	if s.Step != StepAccountability {
		return s, appErrors.NewInvalidTransition(string(s.Step), "send all messages")
	}
	next := s.Clone()
	next.Step = StepDispatching
	return next, nil
}

// CompleteDispatch always reaches Confirmation; failures live in the report.
func CompleteDispatch(s State) (State, error) {
	if s.Step != StepDispatching {
		return s, appErrors.NewInvalidTransition(string(s.Step), "confirm dispatch")
	}
	next := s.Clone()
	next.Step = StepConfirmation
	return next, nil
}

// EnterManagement opens roster management, remembering where to return.
func EnterManagement(s State) (State, error) {
	switch s.Step {
	case StepClientSelection, StepCelebration, StepAccountability:
	default:
		return s, appErrors.NewInvalidTransition(string(s.Step), "manage clients")
	}
	next := s.Clone()
	next.ReturnStep = s.Step
	next.Step = StepClientManagement
	return next, nil
}

// ExitManagement returns to the prior step and drops selected clients that
// are no longer on the roster.
func ExitManagement(s State, roster []string) (State, error) {
	if s.Step != StepClientManagement {
		return s, appErrors.NewInvalidTransition(string(s.Step), "finish managing clients")
	}
	next := s.Clone()
	present := make(map[string]bool, len(roster))
	for _, id := range roster {
		present[id] = true
	}
	for _, id := range append([]string(nil), next.Selected...) {
		if !present[id] {
			next.deselectClient(id)
		}
	}
	next.Step = next.ReturnStep
	next.ReturnStep = ""
	if next.Step.authoring() && len(next.Selected) == 0 {
		next.Step = StepClientSelection
	}
	return next, nil
}

// Reset starts a new campaign. Roster and eligibility cache are kept.
func Reset(s State) (State, error) {
	if s.Step == StepDispatching {
		return s, appErrors.NewInvalidTransition(string(s.Step), "reset")
	}
	next := s.Clone()
	for _, id := range append([]string(nil), next.Selected...) {
		next.deselectClient(id)
	}
	next.Selected = nil
	next.Drafts.ClearAll()
	next.Schedules = make(map[DraftKey]model.SchedulingChoice)
	next.Step = StepClientSelection
	next.ReturnStep = ""
	return next, nil
}
