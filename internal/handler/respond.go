package handler

import (
	"encoding/json"
	"log"
	"net/http"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("⚠️ Failed to encode response:", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Println("❌", err)
	}
	writeJSON(w, status, appErrors.BodyFor(err))
}
