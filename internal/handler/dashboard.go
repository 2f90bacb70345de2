package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/tripcircle/coordinator/internal/middleware"
)

// viewer returns the authenticated user, writing 401 when there is none.
func viewer(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.ViewerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	return id, ok
}

// tripIDParam binds the {tripID} path segment, writing 400 when it is not a UUID.
func tripIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "tripID", chi.URLParam(r, "tripID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "tripID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// GetDashboard handles GET /dashboard.
func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := viewer(w, r)
	if !ok {
		return
	}
	d, err := s.dashboards.Build(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, "dashboard not found", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardToResponse(d))
}

// GetTripCard handles GET /trips/{tripID}/card.
func (s *Server) GetTripCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := viewer(w, r)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	card, err := s.cards.Card(r.Context(), tripID, userID)
	if err != nil {
		s.writeServiceError(w, r, "trip not found", err)
		return
	}
	writeJSON(w, http.StatusOK, cardToResponse(card))
}

// GetReadiness handles GET /trips/{tripID}/readiness.
func (s *Server) GetReadiness(w http.ResponseWriter, r *http.Request) {
	userID, ok := viewer(w, r)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	res, err := s.cards.Readiness(r.Context(), tripID, userID)
	if err != nil {
		s.writeServiceError(w, r, "trip not found", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
