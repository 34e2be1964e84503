package appErrors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an application error to a response status.
func HTTPStatus(err error) int {
	var (
		blocked     *FreeformBlockedError
		schedule    *InvalidScheduleError
		validation  *ValidationError
		transition  *InvalidTransitionError
		notSelected *ClientNotSelectedError
		clientNF    *ClientNotFoundError
		runNF       *CampaignRunNotFoundError
		sessionNF   *SessionNotFoundError
		unavailable *RegistryUnavailableError
		partial     *DispatchPartialFailureError
	)
	switch {
	case errors.As(err, &blocked), errors.As(err, &schedule), errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoClientsSelected), errors.As(err, &transition), errors.As(err, &notSelected):
		return http.StatusConflict
	case errors.As(err, &clientNF), errors.As(err, &runNF), errors.As(err, &sessionNF):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &partial):
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// Body is the JSON error payload. Templates is set for blocked free-form messages.
type Body struct {
	Error     string   `json:"error"`
	Templates []string `json:"templates,omitempty"`
}

func BodyFor(err error) Body {
	b := Body{Error: err.Error()}
	var blocked *FreeformBlockedError
	if errors.As(err, &blocked) {
		b.Templates = blocked.Templates
	}
	return b
}
