package api

import (
	"net/http"
)

// StandingHandler handles single-item lookups.
type StandingHandler struct {
	deps StandingDependencies
}

// NewStandingHandler creates a new standing handler.
func NewStandingHandler(deps StandingDependencies) *StandingHandler {
	return &StandingHandler{deps: deps}
}

// HandleGetStanding handles GET /standing/{id} requests.
func (h *StandingHandler) HandleGetStanding(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standing"
	st, err := h.deps.Standing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeRankingError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
