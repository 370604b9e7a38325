package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// EscalationRule sets how old a ticket of one priority may get before it is
// escalated, and which support tier takes it over.
type EscalationRule struct {
	MaxAge time.Duration `yaml:"maxAge"`
	Target string        `yaml:"target"`
}

// EscalationRules maps each priority to its rule. Read-only configuration.
type EscalationRules map[models.Priority]EscalationRule

// DefaultEscalationRules mirrors the standard 30/60/120/240-minute ages.
func DefaultEscalationRules() EscalationRules {
	return EscalationRules{
		models.PriorityCritical: {MaxAge: 30 * time.Minute, Target: "L3"},
		models.PriorityHigh:     {MaxAge: 60 * time.Minute, Target: "L2"},
		models.PriorityMedium:   {MaxAge: 120 * time.Minute, Target: "L2"},
		models.PriorityLow:      {MaxAge: 240 * time.Minute, Target: "L1"},
	}
}

// TicketSource is the ticket store surface the sweep needs. Escalate must
// apply the reassignment, priority bump and work note atomically.
type TicketSource interface {
	ListOpen(ctx context.Context) ([]models.Ticket, error)
	Escalate(ctx context.Context, number, assignee, group string, priority models.Priority, note string) error
}

// RosterAccess is the responder surface shared with assignment and ticket
// state transitions.
type RosterAccess interface {
	List() []models.Responder
	AssignByEmail(email string)
	ReleaseByEmail(email string)
	RotateShifts(now time.Time)
}

// Scheduler sweeps open tickets on a fixed period and escalates any whose
// SLA-related age threshold has passed. It runs independently of analysis
// sessions and observes live ticket state each tick, so manual reassignments
// between ticks are respected.
type Scheduler struct {
	logger   *slog.Logger
	tickets  TicketSource
	roster   RosterAccess
	rules    EscalationRules
	clock    Clock
	interval time.Duration
}

// NewScheduler constructs the escalation scheduler.
func NewScheduler(logger *slog.Logger, tickets TicketSource, roster RosterAccess, rules EscalationRules, clock Clock, interval time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultEscalationRules()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		logger:   logger,
		tickets:  tickets,
		roster:   roster,
		rules:    rules,
		clock:    clock,
		interval: interval,
	}
}

// Run drives periodic sweeps until the context is cancelled. Shift rotation
// piggybacks on the same period.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.roster.RotateShifts(s.clock.Now())
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("escalation sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep escalates every open ticket whose age exceeds its priority's
// max-age rule and for which a target-tier responder is on hand. Tickets
// with no eligible responder are left untouched and retried next cycle.
// Returns the escalated ticket numbers.
func (s *Scheduler) Sweep(ctx context.Context) ([]string, error) {
	open, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}

	now := s.clock.Now()
	escalated := make([]string, 0)
	for _, ticket := range open {
		if !ticket.State.Open() {
			continue
		}
		rule, ok := s.rules[ticket.Priority]
		if !ok {
			continue
		}
		if now.Sub(ticket.CreatedAt) <= rule.MaxAge {
			continue
		}
		if s.escalate(ctx, ticket, rule) {
			escalated = append(escalated, ticket.Number)
		}
	}
	return escalated, nil
}

func (s *Scheduler) escalate(ctx context.Context, ticket models.Ticket, rule EscalationRule) bool {
	target, ok := s.targetResponder(rule.Target)
	if !ok {
		// No one in the target tier right now; the next sweep retries.
		return false
	}

	newPriority := ticket.Priority.Escalated()
	note := fmt.Sprintf("ESCALATED: Incident escalated due to SLA risk\nReassigned to: %s\nNew Priority: %s", target.Name, newPriority)
	if err := s.tickets.Escalate(ctx, ticket.Number, target.Email, target.Group, newPriority, note); err != nil {
		s.logger.Error("escalation update failed",
			slog.String("ticket", ticket.Number), slog.Any("error", err))
		return false
	}

	if ticket.AssignedTo != "" {
		s.roster.ReleaseByEmail(ticket.AssignedTo)
	}
	s.roster.AssignByEmail(target.Email)

	s.logger.Info("ticket escalated",
		slog.String("ticket", ticket.Number),
		slog.String("assignee", target.Email),
		slog.String("priority", string(newPriority)))
	return true
}

// targetResponder picks the first non-offline responder in the rule's
// target tier group, in roster order.
func (s *Scheduler) targetResponder(tier string) (models.Responder, bool) {
	for _, r := range s.roster.List() {
		if r.Availability != models.Offline && strings.Contains(r.Group, tier) {
			return r, true
		}
	}
	return models.Responder{}, false
}
