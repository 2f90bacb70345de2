package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcircle/coordinator/internal/handler"
	"github.com/tripcircle/coordinator/spec"
)

// TestGetHealth_returns200WithOKStatus verifies that GET /healthz returns
// HTTP 200 and a JSON body of {"status":"ok"} without authentication.
func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	h := newHTTPHandler(&mocks{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
}

func getHealth(t *testing.T, checks map[string]handler.HealthCheck, order ...string) (int, handler.HealthResponse) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := handler.NewServer(&mocks{}, &mocks{}, &mocks{}, spec.OpenAPI, log)
	for _, name := range order {
		srv.AddHealthCheck(name, checks[name])
	}
	rec := httptest.NewRecorder()
	srv.Routes(fakeAuth).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body handler.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestGetHealth_reportsEachDependency(t *testing.T) {
	ok := func(context.Context) error { return nil }

	code, body := getHealth(t, map[string]handler.HealthCheck{"postgres": ok, "redis": ok}, "postgres", "redis")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
}

func TestGetHealth_failedDependencyIsDegraded(t *testing.T) {
	var gotDeadline bool
	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error {
			_, gotDeadline = ctx.Deadline()
			return nil
		},
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}

	code, body := getHealth(t, checks, "postgres", "redis")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "down"}, body.Checks)
	assert.True(t, gotDeadline, "checks run under a timeout")
}

func TestGetOpenAPI_servesEmbeddedDocument(t *testing.T) {
	h := newHTTPHandler(&mocks{})

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi:")
}
