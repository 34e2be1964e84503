// internal/controller/workflow_controller.go
package controller

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/service"
)

// WorkflowController exposes a coach's campaign session over HTTP.
type WorkflowController struct {
	Sessions *service.SessionManager
}

// Mount registers the session and campaign routes.
func (c *WorkflowController) Mount(r chi.Router) {
	r.Post("/register", c.Register)
	r.Route("/coaches/{coachID}", func(r chi.Router) {
		r.Post("/logout", c.Logout)
		r.Get("/session", c.Session)

		r.Route("/campaign", func(r chi.Router) {
			r.Get("/", c.Snapshot)
			r.Post("/clients/{clientID}/toggle", c.ToggleClient)
			r.Post("/select-all", c.SelectAll)
			r.Post("/start", c.step((*service.Workflow).BeginAuthoring))
			r.Post("/continue", c.step((*service.Workflow).Continue))
			r.Post("/back", c.step((*service.Workflow).Back))
			r.Post("/reset", c.step((*service.Workflow).Reset))
			r.Post("/manage", c.step((*service.Workflow).EnterManagement))
			r.Post("/manage/done", c.ExitManagement)

			r.Get("/templates/{kind}", c.Templates)
			r.Get("/suggestions/{clientID}", c.Suggest)
			r.Put("/drafts/{clientID}/{kind}", c.SetDraft)
			r.Put("/schedules/{clientID}/{kind}", c.SetSchedule)

			r.Post("/send/{kind}", c.SendKind)
			r.Post("/send-all", c.SendAll)
		})
	})
}

func (c *WorkflowController) workflow(w http.ResponseWriter, r *http.Request) (*service.Workflow, bool) {
	wf, err := c.Sessions.Workflow(r.Context(), chi.URLParam(r, "coachID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return wf, true
}

func kindParam(w http.ResponseWriter, r *http.Request) (model.MessageKind, bool) {
	kind, err := model.ParseMessageKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, appErrors.NewValidation("kind", err.Error()))
		return "", false
	}
	return kind, true
}

// ====================== Session ======================

// Register accepts the scanned registration payload. Unreadable payloads log
// in the demo coach.
func (c *WorkflowController) Register(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	coach, status := c.Sessions.Register(r.Context(), service.ParseRegistration(raw))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"coach":  coach,
	})
}

func (c *WorkflowController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.Sessions.Logout(r.Context(), chi.URLParam(r, "coachID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *WorkflowController) Session(w http.ResponseWriter, r *http.Request) {
	coach, err := c.Sessions.Session(r.Context(), chi.URLParam(r, "coachID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coach)
}

// ====================== Workflow ======================

func (c *WorkflowController) Snapshot(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// step adapts a no-argument transition into a handler returning the new snapshot.
func (c *WorkflowController) step(fn func(*service.Workflow) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, ok := c.workflow(w, r)
		if !ok {
			return
		}
		if err := fn(wf); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wf.Snapshot())
	}
}

func (c *WorkflowController) ToggleClient(w http.ResponseWriter, r *http.Request) {
	c.step(func(wf *service.Workflow) error {
		return wf.ToggleClient(chi.URLParam(r, "clientID"))
	})(w, r)
}

func (c *WorkflowController) SelectAll(w http.ResponseWriter, r *http.Request) {
	c.step((*service.Workflow).SelectAll)(w, r)
}

func (c *WorkflowController) ExitManagement(w http.ResponseWriter, r *http.Request) {
	c.step(func(wf *service.Workflow) error {
		return wf.ExitManagement(r.Context())
	})(w, r)
}

func (c *WorkflowController) Templates(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": wf.TemplatesFor(kind)})
}

func (c *WorkflowController) Suggest(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	clientID := chi.URLParam(r, "clientID")
	msg, err := wf.Suggest(clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"client_id":    clientID,
		"message_type": model.KindAccountability,
		"content":      msg,
	})
}

// SetDraft chooses a message for a client. With "typed": true the content is
// recorded as the coach types and the messaging window is not checked.
func (c *WorkflowController) SetDraft(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Content string `json:"content"`
		Typed   bool   `json:"typed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	clientID := chi.URLParam(r, "clientID")
	var err error
	if body.Typed {
		err = wf.TypeMessage(clientID, kind, body.Content)
	} else {
		err = wf.ChooseMessage(clientID, kind, body.Content)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// SetSchedule records the choice even when it does not resolve; the error
// response tells the coach the draft will be held back.
func (c *WorkflowController) SetSchedule(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	var choice model.SchedulingChoice
	if err := json.NewDecoder(r.Body).Decode(&choice); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := wf.SetSchedule(chi.URLParam(r, "clientID"), kind, choice); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf.Snapshot())
}

type dispatchResponse struct {
	Step   string         `json:"step"`
	Report service.Report `json:"report"`
	Error  string         `json:"error,omitempty"`
}

func (c *WorkflowController) SendKind(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	report, err := wf.SendKind(r.Context(), kind)
	c.respondDispatch(w, wf, report, err)
}

func (c *WorkflowController) SendAll(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	report, err := wf.SendAll(r.Context())
	c.respondDispatch(w, wf, report, err)
}

// respondDispatch answers 200 with the report when the batch ran, even with
// failed requests; the failure summary goes in "error".
func (c *WorkflowController) respondDispatch(w http.ResponseWriter, wf *service.Workflow, report service.Report, err error) {
	if err != nil && appErrors.HTTPStatus(err) != http.StatusOK {
		writeError(w, err)
		return
	}
	resp := dispatchResponse{Step: string(wf.Snapshot().Step), Report: report}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
