// Package handler implements the HTTP handlers for the trip coordination API.
// All handlers are methods on Server. Methods are split into files by
// resource (health.go, dashboard.go, actions.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripcircle/coordinator/internal/consensus"
	"github.com/tripcircle/coordinator/internal/domain"
	"github.com/tripcircle/coordinator/internal/service"
	"github.com/tripcircle/coordinator/internal/stage"
)

// DashboardBuilder builds a user's dashboard.
// Defining the interfaces here, in the consumer package, lets handler tests
// inject a mock without touching the database or service layer.
type DashboardBuilder interface {
	Build(ctx context.Context, userID uuid.UUID) (domain.Dashboard, error)
}

// CardReader serves single-trip reads.
type CardReader interface {
	Card(ctx context.Context, tripID, viewer uuid.UUID) (domain.TripCard, error)
	Readiness(ctx context.Context, tripID, viewer uuid.UUID) (consensus.Readiness, error)
}

// ActionRunner checks and applies stage actions.
type ActionRunner interface {
	Check(ctx context.Context, tripID, actor uuid.UUID, action stage.Action) (stage.Result, error)
	Apply(ctx context.Context, tripID uuid.UUID, req service.ActionRequest) (domain.Trip, error)
}

// Server holds the dependencies of every endpoint.
type Server struct {
	dashboards DashboardBuilder
	cards      CardReader
	actions    ActionRunner
	openAPI    []byte
	health     []namedCheck
	log        *slog.Logger
}

// NewServer constructs the Server with all its dependencies. log may be nil.
func NewServer(dashboards DashboardBuilder, cards CardReader, actions ActionRunner, openAPI []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{dashboards: dashboards, cards: cards, actions: actions, openAPI: openAPI, log: log}
}

// Routes mounts every endpoint. Health and the OpenAPI document are public;
// everything else runs behind authn, which must put the viewer in context
// (see middleware.NewAuthenticator).
func (s *Server) Routes(authn func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/dashboard", s.GetDashboard)
		r.Route("/trips/{tripID}", func(r chi.Router) {
			r.Get("/card", s.GetTripCard)
			r.Get("/readiness", s.GetReadiness)
			r.Get("/actions/{action}", s.CheckAction)
			r.Post("/actions/{action}", s.ApplyAction)
		})
	})
	return r
}
