package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/service"
	"github.com/tripcircle/coordinator/internal/stage"
)

// CheckAction handles GET /trips/{tripID}/actions/{action}.
// It always answers 200 with the validator's verdict; a rejected action is
// a normal answer here, not an error.
func (s *Server) CheckAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := viewer(w, r)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	res, err := s.actions.Check(r.Context(), tripID, userID, stage.Action(chi.URLParam(r, "action")))
	if err != nil {
		s.writeServiceError(w, r, "trip not found", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ApplyAction handles POST /trips/{tripID}/actions/{action}.
// On success it returns the trip as stored after the change.
func (s *Server) ApplyAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := viewer(w, r)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}

	var body ActionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "request body must be a JSON object")
		return
	}

	trip, err := s.actions.Apply(r.Context(), tripID, requestToAction(stage.Action(chi.URLParam(r, "action")), userID, body))
	if err != nil {
		s.writeServiceError(w, r, "trip not found", err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// requestToAction converts the wire body into a service.ActionRequest.
func requestToAction(action stage.Action, actor uuid.UUID, body ActionBody) service.ActionRequest {
	req := service.ActionRequest{
		Action:         action,
		Actor:          actor,
		OptionKey:      body.OptionKey,
		VoterName:      body.VoterName,
		StartDate:      fromDate(body.StartDate),
		EndDate:        fromDate(body.EndDate),
		WindowIDs:      body.WindowIDs,
		LeaderOverride: body.LeaderOverride,
	}
	if body.WindowID != nil {
		req.WindowID = *body.WindowID
	}
	for _, p := range body.DatePicks {
		req.DatePicks = append(req.DatePicks, domain.DatePick{Rank: p.Rank, StartDate: p.StartDate.Time, EndDate: p.EndDate.Time})
	}
	for _, d := range body.Days {
		req.Days = append(req.Days, d.Time)
	}
	return req
}
