// internal/handler/roster_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coachline-backend/internal/service"
)

// RosterHandler serves a coach's clients and categories. Edits go through
// the coach's workflow and are only accepted in client management.
type RosterHandler struct {
	Sessions *service.SessionManager
	Roster   *service.RosterService
}

func (h *RosterHandler) Mount(r chi.Router) {
	r.Route("/coaches/{coachID}", func(r chi.Router) {
		r.Get("/clients", h.ListClientsHandler)
		r.Post("/clients", h.CreateClientHandler)
		r.Put("/clients/{clientID}", h.UpdateClientHandler)
		r.Delete("/clients/{clientID}", h.DeleteClientHandler)
		r.Get("/clients/{clientID}/history", h.HistoryHandler)
		r.Get("/categories", h.ListCategoriesHandler)
		r.Post("/categories", h.AddCategoryHandler)
	})
}

func (h *RosterHandler) workflow(w http.ResponseWriter, r *http.Request) (*service.Workflow, bool) {
	wf, err := h.Sessions.Workflow(r.Context(), chi.URLParam(r, "coachID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return wf, true
}

// ListClientsHandler returns the roster the coach's workflow currently shows.
func (h *RosterHandler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": wf.Snapshot().Roster})
}

func (h *RosterHandler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	var in service.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	c, err := wf.CreateClient(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *RosterHandler) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	var in service.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	c, err := wf.UpdateClient(r.Context(), chi.URLParam(r, "clientID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *RosterHandler) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	if err := wf.DeleteClient(r.Context(), chi.URLParam(r, "clientID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RosterHandler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": wf.Snapshot().Categories})
}

func (h *RosterHandler) AddCategoryHandler(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	c, err := wf.AddCategory(r.Context(), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HistoryHandler lists messages recorded for one client, newest first.
func (h *RosterHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	msgs, err := h.Roster.ClientHistory(r.Context(), chi.URLParam(r, "coachID"), chi.URLParam(r, "clientID"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": msgs})
}
