// Package httpserver provides the HTTP REST API server for the permit review service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civium/permit-review-service/internal/database"
	"github.com/civium/permit-review-service/internal/domain"
)

// WorkflowCoordinator defines the review orchestration operations used by the
// HTTP server.
type WorkflowCoordinator interface {
	InitiateWorkflow(ctx context.Context, procedureID uuid.UUID) ([]*domain.ReviewWorkflowState, error)
	CompleteReview(ctx context.Context, workflowID uuid.UUID, outcome domain.ReviewOutcome, reviewerID int64, comments, issues string) ([]*domain.ReviewWorkflowState, error)
	AssignToUser(ctx context.Context, workflowID uuid.UUID, userID int64) (*domain.ReviewWorkflowState, error)
	ListProcedureWorkflow(ctx context.Context, procedureID uuid.UUID) ([]*domain.ReviewWorkflowState, error)
}

// PendingWorkLister defines the department dashboard query used by the HTTP
// server.
type PendingWorkLister interface {
	DepartmentPendingWork(ctx context.Context, departmentID int64, userID *int64) ([]*domain.WorkItem, error)
}

// HealthChecker reports database connectivity for the health endpoints.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	coordinator WorkflowCoordinator
	pending     PendingWorkLister
	health      HealthChecker
	logger      zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	coordinator WorkflowCoordinator,
	pending PendingWorkLister,
	health HealthChecker,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		coordinator: coordinator,
		pending:     pending,
		health:      health,
		logger:      logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/procedures/{procedureID}/workflow", s.initiateWorkflow)
		r.Get("/procedures/{procedureID}/workflow", s.getProcedureWorkflow)
		r.Post("/workflows/{workflowID}/complete", s.completeReview)
		r.Post("/workflows/{workflowID}/assign", s.assignReview)
		r.Get("/departments/{departmentID}/pending-work", s.departmentPendingWork)
	})

	return r
}

// Handler returns the root HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
