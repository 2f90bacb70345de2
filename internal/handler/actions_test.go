package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/service"
	"github.com/tripcircle/coordinator/internal/stage"
)

func actionPath(tripID uuid.UUID, action stage.Action) string {
	return fmt.Sprintf("/trips/%s/actions/%s", tripID, action)
}

// ---- GET (dry run) ---------------------------------------------------------

func TestCheckAction_ReturnsVerdictAs200(t *testing.T) {
	tripID := uuid.New()
	var gotAction stage.Action
	m := &mocks{check: func(_ context.Context, id, actor uuid.UUID, a stage.Action) (stage.Result, error) {
		gotAction = a
		return stage.Result{Status: http.StatusForbidden, Code: stage.CodeForbidden, Message: "only the trip leader can lock dates"}, nil
	}}

	rec := do(newHTTPHandler(m), http.MethodGet, actionPath(tripID, stage.Lock), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stage.Lock, gotAction)
	var body stage.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.OK)
	assert.Equal(t, stage.CodeForbidden, body.Code)
}

// ---- POST ------------------------------------------------------------------

func TestApplyAction_Lock(t *testing.T) {
	tripID := uuid.New()
	var got service.ActionRequest
	m := &mocks{apply: func(_ context.Context, id uuid.UUID, req service.ActionRequest) (domain.Trip, error) {
		got = req
		start, end := *req.StartDate, *req.EndDate
		return domain.Trip{ID: id, Name: "Lake", Status: domain.StatusLocked, LockedStartDate: &start, LockedEndDate: &end}, nil
	}}

	rec := do(newHTTPHandler(m), http.MethodPost, actionPath(tripID, stage.Lock),
		strings.NewReader(`{"start_date":"2025-07-01","end_date":"2025-07-04"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stage.Lock, got.Action)
	assert.Equal(t, testViewer, got.Actor)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), *got.StartDate)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "locked", body["status"])
	assert.Equal(t, "2025-07-04", body["locked_end_date"])
	assert.Equal(t, []any{}, body["proposed_window_ids"])
}

func TestApplyAction_BodyFieldsReachService(t *testing.T) {
	windowID := uuid.New()
	var got service.ActionRequest
	m := &mocks{apply: func(_ context.Context, id uuid.UUID, req service.ActionRequest) (domain.Trip, error) {
		got = req
		return domain.Trip{ID: id}, nil
	}}
	body := fmt.Sprintf(`{
		"window_id": %q,
		"window_ids": [%q],
		"leader_override": true,
		"option_key": "2025-07-01",
		"date_picks": [{"rank": 1, "start_date": "2025-07-01", "end_date": "2025-07-03"}],
		"days": ["2025-07-01", "2025-07-02"]
	}`, windowID, windowID)

	rec := do(newHTTPHandler(m), http.MethodPost, actionPath(uuid.New(), stage.ProposeDates), strings.NewReader(body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, windowID, got.WindowID)
	assert.Equal(t, []uuid.UUID{windowID}, got.WindowIDs)
	assert.True(t, got.LeaderOverride)
	assert.Equal(t, "2025-07-01", got.OptionKey)
	require.Len(t, got.DatePicks, 1)
	assert.Equal(t, 1, got.DatePicks[0].Rank)
	assert.Len(t, got.Days, 2)
}

func TestApplyAction_EmptyBodyIsAllowed(t *testing.T) {
	m := &mocks{apply: func(_ context.Context, id uuid.UUID, _ service.ActionRequest) (domain.Trip, error) {
		return domain.Trip{ID: id}, nil
	}}

	rec := do(newHTTPHandler(m), http.MethodPost, actionPath(uuid.New(), stage.OpenVoting), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyAction_MalformedBody(t *testing.T) {
	rec := do(newHTTPHandler(&mocks{}), http.MethodPost, actionPath(uuid.New(), stage.Vote), strings.NewReader(`{"option_key":`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestApplyAction_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{
			name:   "stage rejection passes through",
			err:    fmt.Errorf("service.TripService.Apply: %w", &domain.RejectionError{Status: http.StatusConflict, Code: stage.CodeProposalActive, Message: "a proposal is active"}),
			status: http.StatusConflict, code: stage.CodeProposalActive, msg: "a proposal is active",
		},
		{
			name:   "validation",
			err:    fmt.Errorf("service.TripService.Apply: vote: %w: option_key is required", domain.ErrValidation),
			status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR", msg: "option_key is required",
		},
		{
			name:   "lost race",
			err:    fmt.Errorf("service.TripService.Apply: open_voting: %w", domain.ErrConflict),
			status: http.StatusConflict, code: "CONFLICT",
		},
		{
			name:   "not found",
			err:    fmt.Errorf("service.TripService.Apply: %w", domain.ErrNotFound),
			status: http.StatusNotFound, code: "NOT_FOUND", msg: "trip not found",
		},
		{
			name:   "forbidden",
			err:    domain.ErrForbidden,
			status: http.StatusForbidden, code: "FORBIDDEN",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &mocks{apply: func(context.Context, uuid.UUID, service.ActionRequest) (domain.Trip, error) {
				return domain.Trip{}, tc.err
			}}

			rec := do(newHTTPHandler(m), http.MethodPost, actionPath(uuid.New(), stage.Vote), strings.NewReader(`{}`))

			require.Equal(t, tc.status, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tc.code, e.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, e.Message)
			}
		})
	}
}
