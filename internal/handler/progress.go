package handler

import (
	"net/http"

	"github.com/eambriza/pmp-coach/internal/model"
)

type progressResponse struct {
	Stats   model.Stats           `json:"stats"`
	Recent  []int                 `json:"recentScores"`
	Results []model.SessionResult `json:"results"`
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	results := h.progress.Results()
	if results == nil {
		results = []model.SessionResult{}
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Stats:   h.progress.Stats(),
		Recent:  h.progress.RecentScores(10),
		Results: results,
	})
}

// handleClearProgress wipes the history. The caller must confirm with
// confirm=yes.
func (h *Handler) handleClearProgress(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("confirm") != "yes" {
		http.Error(w, "confirmation required: pass confirm=yes", http.StatusBadRequest)
		return
	}
	h.progress.ClearAll()
	respond(w, r, http.StatusOK, h.progress.Stats(), "ProgressCleared")
}
