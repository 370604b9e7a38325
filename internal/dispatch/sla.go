package dispatch

import (
	"time"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// SLAStatus reports where a ticket stands against its deadline.
type SLAStatus string

const (
	SLACompleted SLAStatus = "completed"
	SLAOnTrack   SLAStatus = "on-track"
	SLAAtRisk    SLAStatus = "at-risk"
	SLABreached  SLAStatus = "breached"
)

// AtRiskWindow is how close to the deadline a ticket may get before it is
// flagged at-risk.
const AtRiskWindow = 2 * time.Hour

// SLAConfig holds the per-priority resolution windows.
type SLAConfig struct {
	Critical time.Duration `yaml:"critical"`
	High     time.Duration `yaml:"high"`
	Medium   time.Duration `yaml:"medium"`
	Low      time.Duration `yaml:"low"`
}

// DefaultSLAConfig mirrors the standard 1/4/8/24-hour windows.
func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		Critical: 1 * time.Hour,
		High:     4 * time.Hour,
		Medium:   8 * time.Hour,
		Low:      24 * time.Hour,
	}
}

// SLATracker computes deadlines and live status for tickets.
type SLATracker struct {
	cfg   SLAConfig
	clock Clock
}

// NewSLATracker constructs a tracker. A nil clock defaults to the system
// clock; zero windows fall back to the defaults.
func NewSLATracker(cfg SLAConfig, clock Clock) *SLATracker {
	defaults := DefaultSLAConfig()
	if cfg.Critical <= 0 {
		cfg.Critical = defaults.Critical
	}
	if cfg.High <= 0 {
		cfg.High = defaults.High
	}
	if cfg.Medium <= 0 {
		cfg.Medium = defaults.Medium
	}
	if cfg.Low <= 0 {
		cfg.Low = defaults.Low
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &SLATracker{cfg: cfg, clock: clock}
}

// Deadline returns the SLA deadline for a ticket of the given priority
// created at the given time.
func (t *SLATracker) Deadline(priority models.Priority, createdAt time.Time) time.Time {
	return createdAt.Add(t.window(priority))
}

// Status reports the ticket's SLA state: completed for resolved or closed
// tickets, breached past the deadline, at-risk within the final two hours,
// on-track otherwise.
func (t *SLATracker) Status(ticket models.Ticket) SLAStatus {
	if ticket.State == models.StateResolved || ticket.State == models.StateClosed {
		return SLACompleted
	}

	now := t.clock.Now()
	remaining := ticket.SLADeadline.Sub(now)
	switch {
	case remaining < 0:
		return SLABreached
	case remaining < AtRiskWindow:
		return SLAAtRisk
	default:
		return SLAOnTrack
	}
}

func (t *SLATracker) window(priority models.Priority) time.Duration {
	switch priority {
	case models.PriorityCritical:
		return t.cfg.Critical
	case models.PriorityHigh:
		return t.cfg.High
	case models.PriorityMedium:
		return t.cfg.Medium
	default:
		return t.cfg.Low
	}
}
