package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// WorkloadStats is an aggregate view of the roster's capacity and load.
type WorkloadStats struct {
	TotalCapacity      int     `json:"totalCapacity"`
	CurrentLoad        int     `json:"currentLoad"`
	UtilizationPercent float64 `json:"utilizationPercent"`
	AvailableMembers   int     `json:"availableMembers"`
	BusyMembers        int     `json:"busyMembers"`
	OfflineMembers     int     `json:"offlineMembers"`
}

// Roster holds the responder pool in memory. All reads hand out copies so
// callers never observe concurrent mutation. Ordering is stable and follows
// the seed order, which assignment scoring relies on for tie-breaking.
type Roster struct {
	mu      sync.Mutex
	members []models.Responder
}

// NewRoster seeds a roster from the given responders.
func NewRoster(members []models.Responder) *Roster {
	copied := make([]models.Responder, len(members))
	copy(copied, members)
	return &Roster{members: copied}
}

// List returns a snapshot of every responder in seed order.
func (r *Roster) List() []models.Responder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Responder, len(r.members))
	copy(out, r.members)
	return out
}

// FindByEmail returns the responder with the given email, if present.
func (r *Roster) FindByEmail(email string) (models.Responder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Email == email {
			return m, true
		}
	}
	return models.Responder{}, false
}

// Adjust changes a responder's current load by delta, clamping at zero, and
// re-derives availability from the new load. Explicitly offline responders
// keep their offline state until shift rotation brings them back.
func (r *Roster) Adjust(email string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		m := &r.members[i]
		if m.Email != email {
			continue
		}
		m.CurrentLoad += delta
		if m.CurrentLoad < 0 {
			m.CurrentLoad = 0
		}
		if m.Availability != models.Offline {
			if m.CurrentLoad >= m.MaxLoad {
				m.Availability = models.Busy
			} else {
				m.Availability = models.Available
			}
		}
		return
	}
}

// AssignByEmail records one more open ticket against the responder.
func (r *Roster) AssignByEmail(email string) {
	r.Adjust(email, 1)
}

// ReleaseByEmail records one fewer open ticket against the responder.
func (r *Roster) ReleaseByEmail(email string) {
	r.Adjust(email, -1)
}

// SetAvailability forces a responder's availability state.
func (r *Roster) SetAvailability(email string, a models.Availability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].Email == email {
			r.members[i].Availability = a
			return
		}
	}
}

// RotateShifts marks responders whose shift does not cover the given time as
// offline and brings returning responders back online with availability
// derived from their load. Night shift covers 20:00 through 07:59 local.
func (r *Roster) RotateShifts(now time.Time) {
	hour := now.Hour()
	night := hour >= 20 || hour < 8
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		m := &r.members[i]
		switch {
		case m.Shift == models.ShiftDay && night:
			m.Availability = models.Offline
		case m.Shift == models.ShiftNight && !night:
			m.Availability = models.Offline
		case m.Availability == models.Offline:
			if m.CurrentLoad >= m.MaxLoad {
				m.Availability = models.Busy
			} else {
				m.Availability = models.Available
			}
		}
	}
}

// Stats aggregates capacity, load and availability counts across the roster.
func (r *Roster) Stats() WorkloadStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats WorkloadStats
	for _, m := range r.members {
		stats.TotalCapacity += m.MaxLoad
		stats.CurrentLoad += m.CurrentLoad
		switch m.Availability {
		case models.Available:
			stats.AvailableMembers++
		case models.Busy:
			stats.BusyMembers++
		default:
			stats.OfflineMembers++
		}
	}
	if stats.TotalCapacity > 0 {
		stats.UtilizationPercent = float64(stats.CurrentLoad) / float64(stats.TotalCapacity) * 100
	}
	return stats
}

// LoadRoster reads a responder pool from a YAML file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var file struct {
		Responders []models.Responder `yaml:"responders"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(file.Responders) == 0 {
		return nil, fmt.Errorf("roster file %s has no responders", path)
	}
	return NewRoster(file.Responders), nil
}

// DefaultRoster is the built-in responder pool used when no roster file is
// configured.
func DefaultRoster() *Roster {
	return NewRoster([]models.Responder{
		{
			ID: "tm-001", Name: "John Smith", Email: "john.smith@company.com",
			Role: "L2 Network Engineer", Skills: []string{"Network", "Firewall", "Routing"},
			Group: "L2 Network", Availability: models.Available,
			CurrentLoad: 2, MaxLoad: 5, Shift: models.ShiftDay, Timezone: "EST",
		},
		{
			ID: "tm-002", Name: "Sarah Johnson", Email: "sarah.johnson@company.com",
			Role: "L3 Database Admin", Skills: []string{"Database", "PostgreSQL", "Performance"},
			Group: "L3 Database", Availability: models.Available,
			CurrentLoad: 3, MaxLoad: 5, Shift: models.ShiftDay, Timezone: "EST",
		},
		{
			ID: "tm-003", Name: "Mike Chen", Email: "mike.chen@company.com",
			Role: "L2 Application Support", Skills: []string{"Application", "Linux", "Troubleshooting"},
			Group: "L2 Application", Availability: models.Busy,
			CurrentLoad: 4, MaxLoad: 5, Shift: models.ShiftDay, Timezone: "PST",
		},
		{
			ID: "tm-004", Name: "Emily Davis", Email: "emily.davis@company.com",
			Role: "L1 Support Analyst", Skills: []string{"Monitoring", "Incident Management", "Triage"},
			Group: "L1 Support", Availability: models.Available,
			CurrentLoad: 1, MaxLoad: 8, Shift: models.ShiftNight, Timezone: "EST",
		},
		{
			ID: "tm-005", Name: "Robert Wilson", Email: "robert.wilson@company.com",
			Role: "Security Analyst", Skills: []string{"Security", "Firewall", "Incident Response"},
			Group: "Security Team", Availability: models.Available,
			CurrentLoad: 2, MaxLoad: 4, Shift: models.ShiftDay, Timezone: "CST",
		},
		{
			ID: "tm-006", Name: "Lisa Anderson", Email: "lisa.anderson@company.com",
			Role: "Infrastructure Engineer", Skills: []string{"Server", "VMware", "Storage"},
			Group: "Infrastructure", Availability: models.Offline,
			CurrentLoad: 0, MaxLoad: 5, Shift: models.ShiftDay, Timezone: "EST",
		},
		{
			ID: "tm-007", Name: "David Martinez", Email: "david.martinez@company.com",
			Role: "L2 Network Engineer", Skills: []string{"Network", "Load Balancing", "DNS"},
			Group: "L2 Network", Availability: models.Available,
			CurrentLoad: 1, MaxLoad: 5, Shift: models.ShiftNight, Timezone: "PST",
		},
		{
			ID: "tm-008", Name: "Jessica Thompson", Email: "jessica.thompson@company.com",
			Role: "L1 Support Analyst", Skills: []string{"Monitoring", "Documentation", "Communication"},
			Group: "L1 Support", Availability: models.Available,
			CurrentLoad: 3, MaxLoad: 8, Shift: models.ShiftDay, Timezone: "EST",
		},
	})
}
