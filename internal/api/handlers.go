package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rlibbert/noc-analyst/internal/engine"
	"github.com/rlibbert/noc-analyst/internal/models"
	"github.com/rlibbert/noc-analyst/internal/services"
	"github.com/rlibbert/noc-analyst/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]any{
		"status":  "ok",
		"session": s.service.CurrentSession(),
		"p95":     s.service.AnalysisLatencyP95().String(),
	})
}

func (s *Server) handleAnalyzeEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		JSONError(w, NewBadRequest("invalid event payload"))
		return
	}
	if event.ID == "" {
		event.ID = "EVT-" + uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		JSONError(w, NewBadRequest(err.Error()))
		return
	}

	result, err := s.service.AnalyzeEvent(r.Context(), &event)
	if err != nil {
		if errors.Is(err, engine.ErrAnalysisInProgress) {
			JSONError(w, NewConflict("an analysis is already in progress"))
			return
		}
		s.logger.Error("analysis failed", slog.String("event_id", event.ID), slog.Any("error", err))
		JSONError(w, NewUpstreamError("analysis failed: "+err.Error()))
		return
	}
	OK(w, result)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	analysis, ok := s.service.GetAnalysis(eventID)
	if !ok {
		JSONError(w, NewNotFound("no analysis for event "+eventID))
		return
	}
	OK(w, analysis)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.service.ListTickets(r.Context())
	if err != nil {
		s.logger.Error("list tickets failed", slog.Any("error", err))
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, tickets)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var draft services.TicketDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		JSONError(w, NewBadRequest("invalid ticket payload"))
		return
	}
	if draft.ShortDescription == "" {
		JSONError(w, NewBadRequest("shortDescription is required"))
		return
	}

	ticket, err := s.service.CreateTicket(r.Context(), draft)
	if err != nil {
		s.logger.Error("create ticket failed", slog.Any("error", err))
		JSONError(w, ErrInternalServer)
		return
	}
	Created(w, ticket)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	ticket, err := s.service.GetTicket(r.Context(), number)
	if err != nil {
		s.ticketError(w, number, err)
		return
	}
	OK(w, ticket)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	var update services.TicketUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		JSONError(w, NewBadRequest("invalid update payload"))
		return
	}
	if update.Priority != nil && !update.Priority.Valid() {
		JSONError(w, NewBadRequest("unknown priority "+string(*update.Priority)))
		return
	}

	ticket, err := s.service.UpdateTicket(r.Context(), number, update)
	if err != nil {
		s.ticketError(w, number, err)
		return
	}
	OK(w, ticket)
}

func (s *Server) handleAddWorkNote(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	var payload struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		JSONError(w, NewBadRequest("invalid work note payload"))
		return
	}
	if payload.Text == "" {
		JSONError(w, NewBadRequest("text is required"))
		return
	}

	note, err := s.service.AddWorkNote(r.Context(), number, payload.Author, payload.Text)
	if err != nil {
		s.ticketError(w, number, err)
		return
	}
	Created(w, note)
}

func (s *Server) handleTicketSLA(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	report, err := s.service.CheckSLAStatus(r.Context(), number)
	if err != nil {
		s.ticketError(w, number, err)
		return
	}
	OK(w, report)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var ticket models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		JSONError(w, NewBadRequest("invalid ticket payload"))
		return
	}
	OK(w, s.service.Recommendations(ticket))
}

func (s *Server) handleEscalationSweep(w http.ResponseWriter, r *http.Request) {
	escalated, err := s.service.RunEscalationSweep(r.Context())
	if err != nil {
		s.logger.Error("escalation sweep failed", slog.Any("error", err))
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, map[string]any{"escalated": escalated})
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	OK(w, s.service.Roster())
}

func (s *Server) handleRosterStats(w http.ResponseWriter, r *http.Request) {
	OK(w, s.service.WorkloadStats())
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Rebalance(r.Context())
	if err != nil {
		s.logger.Error("rebalance failed", slog.Any("error", err))
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, result)
}

func (s *Server) handleSLASummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.SummarizeSLA(r.Context())
	if err != nil {
		s.logger.Error("sla summary failed", slog.Any("error", err))
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, summary)
}

func (s *Server) ticketError(w http.ResponseWriter, number string, err error) {
	if errors.Is(err, store.ErrTicketNotFound) {
		JSONError(w, NewNotFound("ticket "+number+" not found"))
		return
	}
	s.logger.Error("ticket operation failed", slog.String("ticket", number), slog.Any("error", err))
	JSONError(w, ErrInternalServer)
}
