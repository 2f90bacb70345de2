package handler

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout caps each dependency check.
const healthTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// AddHealthCheck registers a dependency checked by GET /healthz.
// Call it before serving traffic.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.health = append(s.health, namedCheck{name: name, check: check})
}

// GetHealth handles GET /healthz.
// It returns 200 {"status":"ok"} when every registered check passes, and 503
// with status "degraded" naming the failed dependency otherwise.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	code := http.StatusOK
	if len(s.health) > 0 {
		resp.Checks = make(map[string]string, len(s.health))
	}
	for _, c := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.check(ctx)
		cancel()
		if err != nil {
			s.log.WarnContext(r.Context(), "health check failed", "check", c.name, "error", err)
			resp.Checks[c.name] = "down"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.name] = "ok"
	}
	writeJSON(w, code, resp)
}

// GetOpenAPI handles GET /openapi.yaml and serves the embedded API description.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.openAPI)
}
