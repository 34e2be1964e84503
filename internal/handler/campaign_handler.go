// internal/handler/campaign_handler.go
package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coachline-backend/internal/service"
)

// CampaignHandler serves the run history and per-coach stats.
type CampaignHandler struct {
	Service *service.CampaignService
}

func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

func (h *CampaignHandler) Mount(r chi.Router) {
	r.Get("/coaches/{coachID}/runs", h.ListRunsHandler)
	r.Get("/coaches/{coachID}/runs/{id}", h.GetRunHandler)
	r.Get("/coaches/{coachID}/stats", h.StatsHandler)
}

// ListRunsHandler returns a paginated list of campaign runs
func (h *CampaignHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}

	runs, pagination, err := h.Service.ListRuns(r.Context(), chi.URLParam(r, "coachID"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       runs,
		"pagination": pagination,
	})
}

// GetRunHandler returns a single campaign run by ID
func (h *CampaignHandler) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	log.Println("📥 Handler called for campaign run ID:", id)

	run, err := h.Service.GetRun(r.Context(), chi.URLParam(r, "coachID"), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *CampaignHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.CoachStats(r.Context(), chi.URLParam(r, "coachID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
