// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNoClientsSelected guards the move from client selection to authoring.
var ErrNoClientsSelected = errors.New("select at least one client before authoring messages")

// RegistryUnavailableError means a collaborator failed and built-in data was used instead.
type RegistryUnavailableError struct {
	Operation string
	Err       error
}

func (e *RegistryUnavailableError) Error() string {
	return fmt.Sprintf("registry unavailable during %s: %v", e.Operation, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() error { return e.Err }

func NewRegistryUnavailable(op string, err error) error {
	return &RegistryUnavailableError{Operation: op, Err: err}
}

// EligibilityUnknownError means the messaging-window check failed; the client is treated as closed.
type EligibilityUnknownError struct {
	ClientID string
	Err      error
}

func (e *EligibilityUnknownError) Error() string {
	return fmt.Sprintf("eligibility unknown for client %s: %v", e.ClientID, e.Err)
}

func (e *EligibilityUnknownError) Unwrap() error { return e.Err }

func NewEligibilityUnknown(clientID string, err error) error {
	return &EligibilityUnknownError{ClientID: clientID, Err: err}
}

// InvalidScheduleError blocks a single draft from dispatch.
type InvalidScheduleError struct {
	ClientID string
	Kind     string
	Reason   string
}

func (e *InvalidScheduleError) Error() string {
	if e.ClientID == "" {
		return fmt.Sprintf("invalid schedule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s schedule for client %s: %s", e.Kind, e.ClientID, e.Reason)
}

func NewInvalidSchedule(reason string) error {
	return &InvalidScheduleError{Reason: reason}
}

// WithDraft returns a copy of err bound to a draft key; other errors are returned as-is.
func WithDraft(err error, clientID, kind string) error {
	var ise *InvalidScheduleError
	if errors.As(err, &ise) {
		return &InvalidScheduleError{ClientID: clientID, Kind: kind, Reason: ise.Reason}
	}
	return err
}

// FreeformBlockedError is a user-facing warning: only templates may be sent to this client right now.
type FreeformBlockedError struct {
	ClientID  string
	Kind      string
	Templates []string
}

func (e *FreeformBlockedError) Error() string {
	return fmt.Sprintf("client %s is outside the 24h messaging window: choose a %s template", e.ClientID, e.Kind)
}

func NewFreeformBlocked(clientID, kind string, templates []string) error {
	return &FreeformBlockedError{ClientID: clientID, Kind: kind, Templates: templates}
}

// DispatchPartialFailureError summarises a batch where some submissions failed.
type DispatchPartialFailureError struct {
	Attempted int
	Failed    int
}

func (e *DispatchPartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d messages failed to dispatch", e.Failed, e.Attempted)
}

func NewDispatchPartialFailure(attempted, failed int) error {
	return &DispatchPartialFailureError{Attempted: attempted, Failed: failed}
}

// InvalidTransitionError is returned when an action is not allowed in the current step.
type InvalidTransitionError struct {
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while in step %s", e.Action, e.From)
}

func NewInvalidTransition(from, action string) error {
	return &InvalidTransitionError{From: from, Action: action}
}

type ClientNotSelectedError struct {
	ClientID string
}

func (e *ClientNotSelectedError) Error() string {
	return fmt.Sprintf("client %s is not selected", e.ClientID)
}

func NewClientNotSelected(id string) error {
	return &ClientNotSelectedError{ClientID: id}
}

type ClientNotFoundError struct {
	ClientID string
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client with ID %s not found", e.ClientID)
}

func NewClientNotFound(id string) error {
	return &ClientNotFoundError{ClientID: id}
}

// CampaignRunNotFoundError is returned by run lookups.
type CampaignRunNotFoundError struct {
	RunID int
}

func (e *CampaignRunNotFoundError) Error() string {
	return fmt.Sprintf("campaign run with ID %d not found", e.RunID)
}

func NewCampaignRunNotFound(id int) error {
	return &CampaignRunNotFoundError{RunID: id}
}

// ValidationError reports bad input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidation(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

type SessionNotFoundError struct {
	CoachID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("no session for coach %s", e.CoachID)
}

func NewSessionNotFound(coachID string) error {
	return &SessionNotFoundError{CoachID: coachID}
}
