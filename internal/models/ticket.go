package models

import "time"

// Priority is the four-rung incident priority ladder.
type Priority string

const (
	PriorityCritical Priority = "1-Critical"
	PriorityHigh     Priority = "2-High"
	PriorityMedium   Priority = "3-Medium"
	PriorityLow      Priority = "4-Low"
)

// priorityLadder orders priorities from least to most urgent.
var priorityLadder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Escalated returns the next rung up the ladder. 1-Critical is the ceiling
// and escalates to itself. Priorities only ever move toward higher urgency.
func (p Priority) Escalated() Priority {
	for i, rung := range priorityLadder {
		if rung == p && i < len(priorityLadder)-1 {
			return priorityLadder[i+1]
		}
	}
	return p
}

// Valid reports whether p is one of the four ladder rungs.
func (p Priority) Valid() bool {
	for _, rung := range priorityLadder {
		if rung == p {
			return true
		}
	}
	return false
}

// TicketState is the incident lifecycle state.
type TicketState string

const (
	StateNew        TicketState = "New"
	StateInProgress TicketState = "In Progress"
	StateResolved   TicketState = "Resolved"
	StateClosed     TicketState = "Closed"
)

// Open reports whether a ticket in this state still counts against SLA and
// escalation.
func (s TicketState) Open() bool {
	return s == StateNew || s == StateInProgress
}

// WorkNote is an append-only entry in a ticket's work log.
type WorkNote struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Ticket is a trackable incident, created from an analysis or manually.
// Tickets are never deleted; closed tickets are retained for history.
type Ticket struct {
	Number           string                `json:"number"`
	Category         string                `json:"category"`
	Subcategory      string                `json:"subcategory,omitempty"`
	Priority         Priority              `json:"priority"`
	State            TicketState           `json:"state"`
	AssignedTo       string                `json:"assignedTo,omitempty"`
	AssignmentGroup  string                `json:"assignmentGroup"`
	ShortDescription string                `json:"shortDescription"`
	Description      string                `json:"description,omitempty"`
	RootCauses       []RootCauseHypothesis `json:"rootCauses,omitempty"`
	EventID          string                `json:"eventId,omitempty"`
	AffectedSystems  []string              `json:"affectedSystems,omitempty"`
	Impact           string                `json:"impact"`
	Urgency          string                `json:"urgency"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	ResolvedAt       *time.Time            `json:"resolvedAt,omitempty"`
	SLADeadline      time.Time             `json:"slaDeadline"`
	WorkNotes        []WorkNote            `json:"workNotes,omitempty"`
}

// ImpactForSeverity maps event severity onto the ticket impact scale.
func ImpactForSeverity(sev Severity) string {
	switch sev {
	case SeverityCritical:
		return "1-High"
	case SeverityHigh:
		return "2-Medium"
	default:
		return "3-Low"
	}
}

// UrgencyForSeverity maps event severity onto the ticket urgency scale.
func UrgencyForSeverity(sev Severity) string {
	switch sev {
	case SeverityCritical:
		return "1-High"
	case SeverityHigh:
		return "2-Medium"
	default:
		return "3-Low"
	}
}
