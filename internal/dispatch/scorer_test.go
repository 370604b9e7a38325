package dispatch

import (
	"testing"
	"time"

	"github.com/rlibbert/noc-analyst/internal/models"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func dayClock() fixedClock {
	return fixedClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func nightClock() fixedClock {
	return fixedClock{now: time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)}
}

func TestScoreSkillFiltering(t *testing.T) {
	scorer := NewScorer(dayClock())
	roster := []models.Responder{
		{Email: "net@example.com", Skills: []string{"Network"}, Group: "L2 Network", Availability: models.Available, CurrentLoad: 1, MaxLoad: 5, Shift: models.ShiftDay},
		{Email: "db@example.com", Skills: []string{"Database"}, Group: "L3 Database", Availability: models.Available, CurrentLoad: 0, MaxLoad: 5, Shift: models.ShiftDay},
		{Email: "off@example.com", Skills: []string{"Network"}, Group: "L2 Network", Availability: models.Offline, CurrentLoad: 0, MaxLoad: 5, Shift: models.ShiftDay},
	}

	recs := scorer.Score(models.Ticket{Category: "Network", Priority: models.PriorityMedium}, roster)
	if len(recs) != 1 {
		t.Fatalf("expected only the network responder, got %d", len(recs))
	}
	if recs[0].Responder.Email != "net@example.com" {
		t.Fatalf("unexpected candidate %q", recs[0].Responder.Email)
	}
}

func TestScoreWorkloadAndShift(t *testing.T) {
	scorer := NewScorer(dayClock())
	ticket := models.Ticket{Category: "Server", Priority: models.PriorityMedium}

	light := models.Responder{Email: "light@example.com", Skills: []string{"Server"}, Availability: models.Available, CurrentLoad: 1, MaxLoad: 5, Shift: models.ShiftDay}
	heavy := models.Responder{Email: "heavy@example.com", Skills: []string{"Server"}, Availability: models.Available, CurrentLoad: 4, MaxLoad: 5, Shift: models.ShiftDay}
	night := models.Responder{Email: "night@example.com", Skills: []string{"Server"}, Availability: models.Available, CurrentLoad: 1, MaxLoad: 5, Shift: models.ShiftNight}

	recs := scorer.Score(ticket, []models.Responder{heavy, light, night})
	if recs[0].Responder.Email != "light@example.com" {
		t.Fatalf("lightest aligned responder should rank first, got %q", recs[0].Responder.Email)
	}

	// 100 - 20% load penalty (10) + 10 shift bonus.
	if recs[0].Score != 100 {
		t.Fatalf("expected clamped score 100, got %v", recs[0].Score)
	}
	// Same load as light but no shift bonus.
	for _, rec := range recs {
		if rec.Responder.Email == "night@example.com" && rec.Score != 90 {
			t.Fatalf("expected 90 for off-shift responder, got %v", rec.Score)
		}
		if rec.Responder.Email == "heavy@example.com" && rec.Score != 70 {
			t.Fatalf("expected 70 for loaded responder, got %v", rec.Score)
		}
	}
}

func TestScoreTierBoosts(t *testing.T) {
	scorer := NewScorer(nightClock())
	roster := []models.Responder{
		{Email: "l3@example.com", Skills: []string{"Database"}, Group: "L3 Database", Availability: models.Available, CurrentLoad: 2, MaxLoad: 5, Shift: models.ShiftDay},
		{Email: "l1@example.com", Skills: []string{"Database"}, Group: "L1 Support", Availability: models.Available, CurrentLoad: 2, MaxLoad: 5, Shift: models.ShiftDay},
	}

	critical := scorer.Score(models.Ticket{Category: "Database", Priority: models.PriorityCritical}, roster)
	if critical[0].Responder.Email != "l3@example.com" {
		t.Fatalf("critical tickets should favour L3, got %q", critical[0].Responder.Email)
	}
	if critical[0].Score != 100 {
		t.Fatalf("expected 100 for boosted L3, got %v", critical[0].Score)
	}

	low := scorer.Score(models.Ticket{Category: "Database", Priority: models.PriorityLow}, roster)
	if low[0].Responder.Email != "l1@example.com" {
		t.Fatalf("low tickets should favour L1, got %q", low[0].Responder.Email)
	}
	if low[0].Score != 90 {
		t.Fatalf("expected 90 for boosted L1, got %v", low[0].Score)
	}
}

func TestScoreBusyPenalty(t *testing.T) {
	scorer := NewScorer(nightClock())
	roster := []models.Responder{
		{Email: "busy@example.com", Skills: []string{"Application"}, Group: "L2 Application", Availability: models.Busy, CurrentLoad: 2, MaxLoad: 5, Shift: models.ShiftDay},
	}

	// Busy responders fail the eligibility filter but survive the fallback.
	recs := scorer.Score(models.Ticket{Category: "Application", Priority: models.PriorityMedium}, roster)
	if len(recs) != 1 {
		t.Fatalf("expected fallback candidate, got %d", len(recs))
	}
	if recs[0].Score != 50 {
		t.Fatalf("expected 100-30-20, got %v", recs[0].Score)
	}
}

func TestScoreNoCandidates(t *testing.T) {
	scorer := NewScorer(dayClock())
	roster := []models.Responder{
		{Email: "off@example.com", Skills: []string{"Security"}, Availability: models.Offline, MaxLoad: 5},
	}

	if recs := scorer.Score(models.Ticket{Category: "Security", Priority: models.PriorityHigh}, roster); len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %v", recs)
	}
}

func TestRequiredSkillsDefault(t *testing.T) {
	got := RequiredSkills("Facilities")
	if len(got) != 2 || got[0] != "Monitoring" || got[1] != "Incident Management" {
		t.Fatalf("unexpected default skills %v", got)
	}
}
