package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rlibbert/noc-analyst/internal/dispatch"
	"github.com/rlibbert/noc-analyst/internal/engine"
	"github.com/rlibbert/noc-analyst/internal/metrics"
	"github.com/rlibbert/noc-analyst/internal/models"
	"github.com/rlibbert/noc-analyst/internal/store"
	"github.com/rlibbert/noc-analyst/internal/utils"
)

// DefaultAssignmentGroup receives tickets no responder could be matched to.
const DefaultAssignmentGroup = "L1 Support"

// TicketDraft carries the caller-supplied fields for a manually created
// ticket. Zero values fall back to service defaults.
type TicketDraft struct {
	Category         string          `json:"category"`
	Subcategory      string          `json:"subcategory"`
	Priority         models.Priority `json:"priority"`
	ShortDescription string          `json:"shortDescription"`
	Description      string          `json:"description"`
	AffectedSystems  []string        `json:"affectedSystems"`
	Impact           string          `json:"impact"`
	Urgency          string          `json:"urgency"`
}

// TicketUpdate carries a partial update to an existing ticket. Nil fields
// are left unchanged.
type TicketUpdate struct {
	State            *models.TicketState `json:"state"`
	Priority         *models.Priority    `json:"priority"`
	AssignedTo       *string             `json:"assignedTo"`
	AssignmentGroup  *string             `json:"assignmentGroup"`
	Subcategory      *string             `json:"subcategory"`
	ShortDescription *string             `json:"shortDescription"`
}

// SLAReport is the per-ticket SLA view.
type SLAReport struct {
	Number    string             `json:"number"`
	Priority  models.Priority    `json:"priority"`
	Deadline  time.Time          `json:"deadline"`
	Status    dispatch.SLAStatus `json:"status"`
	Remaining time.Duration      `json:"remaining"`
}

// SLASummary aggregates SLA standing across all tickets.
type SLASummary struct {
	OnTrack   int `json:"onTrack"`
	AtRisk    int `json:"atRisk"`
	Breached  int `json:"breached"`
	Completed int `json:"completed"`
}

// RebalanceResult describes the outcome of a workload rebalancing pass.
type RebalanceResult struct {
	Moved  bool   `json:"moved"`
	Ticket string `json:"ticket,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// AnalysisResult pairs a completed analysis with the ticket auto-created
// for it, if any.
type AnalysisResult struct {
	Analysis models.Analysis `json:"analysis"`
	Ticket   *models.Ticket  `json:"ticket,omitempty"`
}

// AnalystService ties the diagnosis engine, the ticket store, the roster and
// the dispatch policies together behind one API the transport layer calls.
type AnalystService struct {
	logger      *slog.Logger
	coordinator *engine.Coordinator
	scorer      *dispatch.Scorer
	sla         *dispatch.SLATracker
	scheduler   *dispatch.Scheduler
	tickets     *store.TicketStore
	roster      *store.Roster
	clock       dispatch.Clock
	latency     *utils.LatencyTracker
}

// NewAnalystService constructs the service facade.
func NewAnalystService(
	logger *slog.Logger,
	coordinator *engine.Coordinator,
	scorer *dispatch.Scorer,
	sla *dispatch.SLATracker,
	scheduler *dispatch.Scheduler,
	tickets *store.TicketStore,
	roster *store.Roster,
	clock dispatch.Clock,
) *AnalystService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = dispatch.SystemClock{}
	}
	return &AnalystService{
		logger:      logger,
		coordinator: coordinator,
		scorer:      scorer,
		sla:         sla,
		scheduler:   scheduler,
		tickets:     tickets,
		roster:      roster,
		clock:       clock,
		latency:     utils.NewLatencyTracker(512),
	}
}

// AnalyzeEvent runs a full diagnosis of the event. Critical events get a
// ticket created and assigned automatically from the finished analysis.
func (s *AnalystService) AnalyzeEvent(ctx context.Context, event *models.Event) (AnalysisResult, error) {
	started := s.clock.Now()
	analysis, err := s.coordinator.AnalyzeEvent(ctx, event)
	elapsed := s.clock.Now().Sub(started)
	s.latency.Observe(elapsed)
	if err != nil {
		outcome := metrics.OutcomeError
		if err == engine.ErrAnalysisInProgress {
			outcome = metrics.OutcomeRejected
		}
		metrics.ObserveAnalysis(elapsed, outcome)
		return AnalysisResult{}, err
	}
	metrics.ObserveAnalysis(elapsed, metrics.OutcomeSuccess)

	result := AnalysisResult{Analysis: analysis}
	if event.Severity == models.SeverityCritical {
		ticket, err := s.CreateTicketFromAnalysis(ctx, *event, analysis)
		if err != nil {
			// The analysis itself succeeded; surface the ticket failure in
			// logs but return the analysis to the caller.
			s.logger.Error("auto ticket creation failed",
				slog.String("event_id", event.ID), slog.Any("error", err))
		} else {
			result.Ticket = ticket
		}
	}
	return result, nil
}

// CreateTicketFromAnalysis opens a ticket for an analyzed event, assigns the
// best-scoring responder and records the analysis summary as a work note.
func (s *AnalystService) CreateTicketFromAnalysis(ctx context.Context, event models.Event, analysis models.Analysis) (*models.Ticket, error) {
	now := s.clock.Now()
	ticket := &models.Ticket{
		Category:         string(event.Type),
		Subcategory:      "Performance",
		Priority:         analysis.RecommendedPriority,
		State:            models.StateNew,
		AssignmentGroup:  DefaultAssignmentGroup,
		ShortDescription: fmt.Sprintf("%s - %s", event.Severity, event.Message),
		Description:      incidentDescription(event, analysis),
		RootCauses:       analysis.Hypotheses,
		EventID:          event.ID,
		AffectedSystems:  event.AffectedSystems,
		Impact:           models.ImpactForSeverity(event.Severity),
		Urgency:          models.UrgencyForSeverity(event.Severity),
		CreatedAt:        now,
		UpdatedAt:        now,
		SLADeadline:      s.sla.Deadline(analysis.RecommendedPriority, now),
	}

	recs := s.scorer.Score(*ticket, s.roster.List())
	var assignNote string
	if len(recs) > 0 {
		best := recs[0]
		ticket.AssignedTo = best.Responder.Email
		ticket.AssignmentGroup = best.Responder.Group
		assignNote = fmt.Sprintf("Auto-assigned to %s\nReason: %s\nAssignment Score: %.0f",
			best.Responder.Email, best.Justification, best.Score)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	metrics.TicketCreated(string(ticket.Priority))
	if ticket.AssignedTo != "" {
		s.roster.AssignByEmail(ticket.AssignedTo)
	}

	if assignNote != "" {
		if _, err := s.tickets.AddWorkNote(ctx, ticket.Number, store.SystemAuthor, assignNote); err != nil {
			s.logger.Warn("assignment work note failed",
				slog.String("ticket", ticket.Number), slog.Any("error", err))
		}
	}
	if _, err := s.tickets.AddWorkNote(ctx, ticket.Number, store.SystemAuthor, analysisNote(analysis)); err != nil {
		s.logger.Warn("analysis work note failed",
			slog.String("ticket", ticket.Number), slog.Any("error", err))
	}

	s.logger.Info("ticket created",
		slog.String("ticket", ticket.Number),
		slog.String("event_id", event.ID),
		slog.String("priority", string(ticket.Priority)),
		slog.String("assignee", ticket.AssignedTo))
	return s.tickets.Get(ctx, ticket.Number)
}

// CreateTicket opens a manually drafted ticket and auto-assigns it.
func (s *AnalystService) CreateTicket(ctx context.Context, draft TicketDraft) (*models.Ticket, error) {
	now := s.clock.Now()
	ticket := &models.Ticket{
		Category:         defaultString(draft.Category, "Software"),
		Subcategory:      defaultString(draft.Subcategory, "Performance"),
		Priority:         draft.Priority,
		State:            models.StateNew,
		AssignmentGroup:  DefaultAssignmentGroup,
		ShortDescription: draft.ShortDescription,
		Description:      draft.Description,
		AffectedSystems:  draft.AffectedSystems,
		Impact:           defaultString(draft.Impact, "3-Low"),
		Urgency:          defaultString(draft.Urgency, "3-Low"),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !ticket.Priority.Valid() {
		ticket.Priority = models.PriorityMedium
	}
	ticket.SLADeadline = s.sla.Deadline(ticket.Priority, now)

	recs := s.scorer.Score(*ticket, s.roster.List())
	var assignNote string
	if len(recs) > 0 {
		best := recs[0]
		ticket.AssignedTo = best.Responder.Email
		ticket.AssignmentGroup = best.Responder.Group
		assignNote = fmt.Sprintf("Auto-assigned to %s\nReason: %s\nAssignment Score: %.0f",
			best.Responder.Email, best.Justification, best.Score)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	metrics.TicketCreated(string(ticket.Priority))
	if ticket.AssignedTo != "" {
		s.roster.AssignByEmail(ticket.AssignedTo)
	}
	if assignNote != "" {
		if _, err := s.tickets.AddWorkNote(ctx, ticket.Number, store.SystemAuthor, assignNote); err != nil {
			s.logger.Warn("assignment work note failed",
				slog.String("ticket", ticket.Number), slog.Any("error", err))
		}
	}
	return s.tickets.Get(ctx, ticket.Number)
}

// GetTicket returns one ticket with its work notes.
func (s *AnalystService) GetTicket(ctx context.Context, number string) (*models.Ticket, error) {
	return s.tickets.Get(ctx, number)
}

// ListTickets returns all tickets, newest first.
func (s *AnalystService) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	return s.tickets.List(ctx)
}

// UpdateTicket applies a partial update. Resolving a ticket stamps
// ResolvedAt and releases the assignee's workload; reassigning transfers the
// workload between responders.
func (s *AnalystService) UpdateTicket(ctx context.Context, number string, update TicketUpdate) (*models.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	if update.State != nil && *update.State != ticket.State {
		if *update.State == models.StateResolved && ticket.State != models.StateResolved {
			resolved := now
			ticket.ResolvedAt = &resolved
			if ticket.AssignedTo != "" {
				s.roster.ReleaseByEmail(ticket.AssignedTo)
			}
		}
		ticket.State = *update.State
	}
	if update.AssignedTo != nil && *update.AssignedTo != ticket.AssignedTo {
		if ticket.AssignedTo != "" {
			s.roster.ReleaseByEmail(ticket.AssignedTo)
		}
		if *update.AssignedTo != "" {
			s.roster.AssignByEmail(*update.AssignedTo)
		}
		ticket.AssignedTo = *update.AssignedTo
	}
	if update.Priority != nil && update.Priority.Valid() {
		ticket.Priority = *update.Priority
	}
	if update.AssignmentGroup != nil {
		ticket.AssignmentGroup = *update.AssignmentGroup
	}
	if update.Subcategory != nil {
		ticket.Subcategory = *update.Subcategory
	}
	if update.ShortDescription != nil && *update.ShortDescription != "" {
		ticket.ShortDescription = *update.ShortDescription
	}
	ticket.UpdatedAt = now

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return s.tickets.Get(ctx, number)
}

// AddWorkNote appends a note to a ticket's work log.
func (s *AnalystService) AddWorkNote(ctx context.Context, number, author, text string) (*models.WorkNote, error) {
	if author == "" {
		author = store.SystemAuthor
	}
	return s.tickets.AddWorkNote(ctx, number, author, text)
}

// Recommendations scores the roster for the given ticket.
func (s *AnalystService) Recommendations(ticket models.Ticket) []dispatch.Recommendation {
	return s.scorer.Score(ticket, s.roster.List())
}

// RunEscalationSweep triggers one escalation pass and returns the ticket
// numbers that were escalated.
func (s *AnalystService) RunEscalationSweep(ctx context.Context) ([]string, error) {
	escalated, err := s.scheduler.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	for range escalated {
		metrics.EscalationPerformed()
	}
	return escalated, nil
}

// CheckSLAStatus reports a ticket's SLA standing.
func (s *AnalystService) CheckSLAStatus(ctx context.Context, number string) (SLAReport, error) {
	ticket, err := s.tickets.Get(ctx, number)
	if err != nil {
		return SLAReport{}, err
	}
	return SLAReport{
		Number:    ticket.Number,
		Priority:  ticket.Priority,
		Deadline:  ticket.SLADeadline,
		Status:    s.sla.Status(*ticket),
		Remaining: ticket.SLADeadline.Sub(s.clock.Now()),
	}, nil
}

// SummarizeSLA aggregates SLA standing across every ticket.
func (s *AnalystService) SummarizeSLA(ctx context.Context) (SLASummary, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return SLASummary{}, err
	}
	var summary SLASummary
	for _, t := range tickets {
		switch s.sla.Status(t) {
		case dispatch.SLACompleted:
			summary.Completed++
		case dispatch.SLABreached:
			summary.Breached++
		case dispatch.SLAAtRisk:
			summary.AtRisk++
		default:
			summary.OnTrack++
		}
	}
	return summary, nil
}

// WorkloadStats reports roster capacity and utilization.
func (s *AnalystService) WorkloadStats() store.WorkloadStats {
	return s.roster.Stats()
}

// Roster returns the current responder pool.
func (s *AnalystService) Roster() []models.Responder {
	return s.roster.List()
}

// Rebalance moves at most one open ticket from an at-capacity responder to
// an available responder under half load whose skills match the ticket's
// category. Loads are transferred and the move is recorded as a work note.
func (s *AnalystService) Rebalance(ctx context.Context) (RebalanceResult, error) {
	members := s.roster.List()
	overloaded := make(map[string]models.Responder)
	var underloaded []models.Responder
	for _, m := range members {
		if m.CurrentLoad >= m.MaxLoad && m.Availability != models.Offline {
			overloaded[m.Email] = m
		}
		if float64(m.CurrentLoad) < float64(m.MaxLoad)*0.5 && m.Availability == models.Available {
			underloaded = append(underloaded, m)
		}
	}
	if len(overloaded) == 0 || len(underloaded) == 0 {
		return RebalanceResult{}, nil
	}

	open, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return RebalanceResult{}, fmt.Errorf("list open tickets: %w", err)
	}
	for _, ticket := range open {
		from, ok := overloaded[ticket.AssignedTo]
		if !ok {
			continue
		}
		replacement, ok := matchReplacement(underloaded, ticket.Category)
		if !ok {
			continue
		}

		ticket.AssignedTo = replacement.Email
		ticket.AssignmentGroup = replacement.Group
		ticket.UpdatedAt = s.clock.Now()
		if err := s.tickets.Update(ctx, &ticket); err != nil {
			return RebalanceResult{}, err
		}
		note := fmt.Sprintf("Workload rebalancing: Reassigned from %s to %s", from.Name, replacement.Name)
		if _, err := s.tickets.AddWorkNote(ctx, ticket.Number, store.SystemAuthor, note); err != nil {
			s.logger.Warn("rebalance work note failed",
				slog.String("ticket", ticket.Number), slog.Any("error", err))
		}
		s.roster.ReleaseByEmail(from.Email)
		s.roster.AssignByEmail(replacement.Email)

		s.logger.Info("workload rebalanced",
			slog.String("ticket", ticket.Number),
			slog.String("from", from.Email),
			slog.String("to", replacement.Email))
		return RebalanceResult{Moved: true, Ticket: ticket.Number, From: from.Email, To: replacement.Email}, nil
	}
	return RebalanceResult{}, nil
}

// GetAnalysis returns the stored analysis for an event, if one completed.
func (s *AnalystService) GetAnalysis(eventID string) (models.Analysis, bool) {
	return s.coordinator.AnalysisFor(eventID)
}

// CurrentSession exposes the engine's active analysis session.
func (s *AnalystService) CurrentSession() engine.Session {
	return s.coordinator.CurrentSession()
}

// AnalysisLatencyP95 reports the 95th percentile of recent analysis runs.
func (s *AnalystService) AnalysisLatencyP95() time.Duration {
	return s.latency.Percentile(95)
}

func matchReplacement(candidates []models.Responder, category string) (models.Responder, bool) {
	for _, c := range candidates {
		for _, skill := range c.Skills {
			if strings.Contains(category, skill) {
				return c, true
			}
		}
	}
	return models.Responder{}, false
}

func analysisNote(analysis models.Analysis) string {
	topCause := "Unknown"
	if top, ok := analysis.TopHypothesis(); ok {
		topCause = top.Cause
	}
	solution := "No specific solution available"
	if len(analysis.Solutions) > 0 && len(analysis.Solutions[0].Steps) > 0 {
		solution = strings.Join(analysis.Solutions[0].Steps, "\n")
	}
	return fmt.Sprintf("AI Analysis Complete:\n\nConfidence: %.0f%%\n\nTop Root Cause: %s\n\nRecommended Solution:\n%s",
		analysis.OverallConfidence*100, topCause, solution)
}

func incidentDescription(event models.Event, analysis models.Analysis) string {
	var b strings.Builder
	b.WriteString("Automated incident created by AI NOC Analyst\n\n")
	b.WriteString("Event Details:\n")
	fmt.Fprintf(&b, "- Event ID: %s\n", event.ID)
	fmt.Fprintf(&b, "- Source: %s\n", event.Source)
	fmt.Fprintf(&b, "- Type: %s\n", event.Type)
	fmt.Fprintf(&b, "- Severity: %s\n", event.Severity)
	fmt.Fprintf(&b, "- Message: %s\n\n", event.Message)

	b.WriteString("AI Analysis Results:\n")
	fmt.Fprintf(&b, "- Overall Confidence: %.0f%%\n", analysis.OverallConfidence*100)
	fmt.Fprintf(&b, "- Estimated Resolution Time: %d hours\n\n", analysis.EstimatedHours)

	b.WriteString("Root Causes Identified:\n")
	for i, rc := range analysis.Hypotheses {
		fmt.Fprintf(&b, "%d. %s (%.0f%% confidence)\n", i+1, rc.Cause, rc.Confidence*100)
	}

	b.WriteString("\nRecommended Actions:\n")
	if len(analysis.Solutions) > 0 {
		for i, step := range analysis.Solutions[0].Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	return b.String()
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
