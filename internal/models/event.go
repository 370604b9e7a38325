package models

import (
	"fmt"
	"time"
)

// Severity captures event impact levels.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// EventType enumerates the monitored domains an event can originate from.
type EventType string

const (
	EventTypeNetwork     EventType = "Network"
	EventTypeServer      EventType = "Server"
	EventTypeDatabase    EventType = "Database"
	EventTypeApplication EventType = "Application"
	EventTypeSecurity    EventType = "Security"
)

// Event is a raw operational signal describing a system anomaly. Events are
// produced outside the engine and are immutable once created, except for the
// Analyzed flag and Status which the engine may flip.
type Event struct {
	ID              string             `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	Severity        Severity           `json:"severity"`
	Type            EventType          `json:"type"`
	Source          string             `json:"source"`
	Message         string             `json:"message"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	AffectedSystems []string           `json:"affectedSystems,omitempty"`
	Status          string             `json:"status,omitempty"`
	Analyzed        bool               `json:"analyzed"`
}

// Validate checks the enum fields and required identifiers of an event.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	switch e.Severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
	default:
		return fmt.Errorf("unknown severity %q", e.Severity)
	}
	switch e.Type {
	case EventTypeNetwork, EventTypeServer, EventTypeDatabase, EventTypeApplication, EventTypeSecurity:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Metric returns the named metric value and whether it was recorded.
func (e Event) Metric(name string) (float64, bool) {
	if e.Metrics == nil {
		return 0, false
	}
	v, ok := e.Metrics[name]
	return v, ok
}
