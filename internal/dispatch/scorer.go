package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// Day shift covers hours 8 through 17 inclusive.
const (
	dayShiftStart = 8
	dayShiftEnd   = 17
)

// Recommendation pairs a candidate responder with a computed score and a
// human-readable justification. Recommendations are transient; nothing
// persists them.
type Recommendation struct {
	Responder     models.Responder `json:"responder"`
	Score         float64          `json:"score"`
	Justification string           `json:"justification"`
}

// Scorer ranks eligible responders for a ticket using skill, shift and
// workload signals.
type Scorer struct {
	clock Clock
}

// NewScorer constructs a Scorer. A nil clock defaults to the system clock.
func NewScorer(clock Clock) *Scorer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scorer{clock: clock}
}

// RequiredSkills derives the skill set a ticket category demands.
func RequiredSkills(category string) []string {
	switch category {
	case "Network":
		return []string{"Network"}
	case "Database":
		return []string{"Database"}
	case "Server", "Hardware":
		return []string{"Server", "Infrastructure"}
	case "Application", "Software":
		return []string{"Application"}
	case "Security":
		return []string{"Security"}
	default:
		return []string{"Monitoring", "Incident Management"}
	}
}

// Score ranks the roster for the ticket, best candidate first. Ties keep
// roster order. An empty result means no eligible assignee; the caller must
// fall back to a default group without a named assignee.
func (s *Scorer) Score(ticket models.Ticket, roster []models.Responder) []Recommendation {
	required := RequiredSkills(ticket.Category)
	candidates := eligible(roster, required)
	if len(candidates) == 0 {
		candidates = fallback(roster, required)
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, responder := range candidates {
		score := s.score(ticket, responder)
		if score <= 0 {
			continue
		}
		recs = append(recs, Recommendation{
			Responder:     responder,
			Score:         score,
			Justification: justify(responder),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	return recs
}

// eligible keeps responders who are available, under capacity and hold at
// least one required skill.
func eligible(roster []models.Responder, required []string) []models.Responder {
	out := make([]models.Responder, 0)
	for _, r := range roster {
		if r.Availability == models.Available && r.UnderCapacity() && r.HasAnySkill(required) {
			out = append(out, r)
		}
	}
	return out
}

// fallback relaxes the load constraint: any non-offline responder with a
// matching skill qualifies.
func fallback(roster []models.Responder, required []string) []models.Responder {
	out := make([]models.Responder, 0)
	for _, r := range roster {
		if r.Availability != models.Offline && r.HasAnySkill(required) {
			out = append(out, r)
		}
	}
	return out
}

// score starts at 100 and applies the monotonic adjustments: busy penalty,
// workload penalty, tier boosts for priority extremes, and a shift-alignment
// bonus. The result is clamped to [0,100]; offline responders score zero.
func (s *Scorer) score(ticket models.Ticket, r models.Responder) float64 {
	if r.Availability == models.Offline {
		return 0
	}

	score := 100.0
	if r.Availability == models.Busy {
		score -= 30
	}

	if r.MaxLoad > 0 {
		score -= (float64(r.CurrentLoad) / float64(r.MaxLoad)) * 100 * 0.5
	}

	if ticket.Priority == models.PriorityCritical && strings.Contains(r.Group, "L3") {
		score += 20
	} else if ticket.Priority == models.PriorityLow && strings.Contains(r.Group, "L1") {
		score += 10
	}

	if s.shiftAligned(r.Shift) {
		score += 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (s *Scorer) shiftAligned(shift models.Shift) bool {
	hour := s.clock.Now().Hour()
	day := hour >= dayShiftStart && hour <= dayShiftEnd
	return (day && shift == models.ShiftDay) || (!day && shift == models.ShiftNight)
}

func justify(r models.Responder) string {
	return fmt.Sprintf("%s (%s) - %s, load %d/%d", r.Name, r.Role, r.Availability, r.CurrentLoad, r.MaxLoad)
}
