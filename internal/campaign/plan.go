package campaign

import (
	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

// PlannedRequest is one dispatch request and the draft it came from.
type PlannedRequest struct {
	Key     DraftKey
	Request model.DispatchRequest
}

// Exclusion is a draft left out of a dispatch, with the reason.
type Exclusion struct {
	Key DraftKey
	Err error
}

type Plan struct {
	Requests []PlannedRequest
	// Blocked holds free-form drafts for clients outside the messaging window.
	Blocked []Exclusion
	// Invalid holds drafts whose schedule did not resolve.
	Invalid []Exclusion
}

// Empty reports whether there is nothing to submit.
func (p Plan) Empty() bool { return len(p.Requests) == 0 }

// PlanDispatch builds one request per selected client and kind with a
// non-blank draft. Eligibility comes from the session cache only; the
// messaging window is not re-queried here. timezoneOf may be nil.
func PlanDispatch(s State, kinds []model.MessageKind, r Resolver, timezoneOf func(clientID string) string) Plan {
	var plan Plan
	for _, kind := range kinds {
		for _, clientID := range s.Selected {
			draft, ok := s.Drafts.Get(clientID, kind)
			if !ok || draft.Empty() {
				continue
			}
			key := DraftKey{ClientID: clientID, Kind: kind}

			if !draft.IsTemplate && !s.Eligibility.CanSendFree(clientID) {
				plan.Blocked = append(plan.Blocked, Exclusion{
					Key: key,
					Err: appErrors.NewFreeformBlocked(clientID, string(kind), nil),
				})
				continue
			}

			tz := ""
			if timezoneOf != nil {
				tz = timezoneOf(clientID)
			}
			timing, err := r.Resolve(s.Schedule(clientID, kind), r.LocationFor(tz))
			if err != nil {
				plan.Invalid = append(plan.Invalid, Exclusion{
					Key: key,
					Err: appErrors.WithDraft(err, clientID, string(kind)),
				})
				continue
			}

			plan.Requests = append(plan.Requests, PlannedRequest{
				Key: key,
				Request: model.DispatchRequest{
					CoachID:   s.CoachID,
					ClientIDs: []string{clientID},
					Kind:      kind,
					Content:   draft.Content,
					Timing:    timing,
				},
			})
		}
	}
	return plan
}
