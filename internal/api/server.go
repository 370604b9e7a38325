// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rlibbert/noc-analyst/internal/services"
)

// Server is the HTTP API server for the NOC analyst service.
type Server struct {
	logger  *slog.Logger
	service *services.AnalystService
	server  *http.Server
	addr    string
}

// NewServer constructs the API server listening on addr.
func NewServer(logger *slog.Logger, service *services.AnalystService, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:  logger,
		service: service,
		addr:    addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleAnalyzeEvent)
			r.Get("/{eventID}", s.handleGetAnalysis)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", s.handleListTickets)
			r.Post("/", s.handleCreateTicket)
			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", s.handleGetTicket)
				r.Patch("/", s.handleUpdateTicket)
				r.Post("/worknotes", s.handleAddWorkNote)
				r.Get("/sla", s.handleTicketSLA)
			})
		})

		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/escalations/sweep", s.handleEscalationSweep)

		r.Route("/roster", func(r chi.Router) {
			r.Get("/", s.handleRoster)
			r.Get("/stats", s.handleRosterStats)
			r.Post("/rebalance", s.handleRebalance)
		})

		r.Get("/sla/summary", s.handleSLASummary)
	})

	return r
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.logger.Info("api server listening", slog.String("address", s.addr))
	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address returns the bound listen address.
func (s *Server) Address() string {
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
