package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rlibbert/noc-analyst/internal/models"
)

type fakeTicketSource struct {
	open    []models.Ticket
	listErr error

	escalations []escalationCall
	escalateErr error
}

type escalationCall struct {
	number   string
	assignee string
	group    string
	priority models.Priority
	note     string
}

func (f *fakeTicketSource) ListOpen(ctx context.Context) ([]models.Ticket, error) {
	return f.open, f.listErr
}

func (f *fakeTicketSource) Escalate(ctx context.Context, number, assignee, group string, priority models.Priority, note string) error {
	if f.escalateErr != nil {
		return f.escalateErr
	}
	f.escalations = append(f.escalations, escalationCall{number, assignee, group, priority, note})
	return nil
}

type fakeRoster struct {
	members  []models.Responder
	assigned []string
	released []string
	rotated  []time.Time
}

func (f *fakeRoster) List() []models.Responder    { return f.members }
func (f *fakeRoster) AssignByEmail(email string)  { f.assigned = append(f.assigned, email) }
func (f *fakeRoster) ReleaseByEmail(email string) { f.released = append(f.released, email) }
func (f *fakeRoster) RotateShifts(now time.Time)  { f.rotated = append(f.rotated, now) }

func sweepRoster() *fakeRoster {
	return &fakeRoster{members: []models.Responder{
		{Name: "Lisa Anderson", Email: "lisa.a@company.com", Group: "L3 Database", Availability: models.Offline},
		{Name: "Sarah Johnson", Email: "sarah.j@company.com", Group: "L3 Database", Availability: models.Available},
		{Name: "John Smith", Email: "john.s@company.com", Group: "L2 Network", Availability: models.Available},
		{Name: "Emily Davis", Email: "emily.d@company.com", Group: "L1 Support", Availability: models.Available},
	}}
}

func TestSweepEscalatesAgedTickets(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	tickets := &fakeTicketSource{open: []models.Ticket{
		{Number: "INC0001000", Priority: models.PriorityHigh, State: models.StateNew,
			AssignedTo: "john.s@company.com", CreatedAt: clock.now.Add(-90 * time.Minute)},
	}}
	roster := sweepRoster()
	scheduler := NewScheduler(nil, tickets, roster, nil, clock, 0)

	escalated, err := scheduler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(escalated) != 1 || escalated[0] != "INC0001000" {
		t.Fatalf("unexpected escalations %v", escalated)
	}

	call := tickets.escalations[0]
	if call.assignee != "john.s@company.com" || call.group != "L2 Network" {
		t.Fatalf("high tickets go to the first L2 responder, got %+v", call)
	}
	if call.priority != models.PriorityCritical {
		t.Fatalf("2-High escalates to 1-Critical, got %q", call.priority)
	}
	if !strings.HasPrefix(call.note, "ESCALATED: Incident escalated due to SLA risk") {
		t.Fatalf("unexpected note %q", call.note)
	}
	if !strings.Contains(call.note, "New Priority: 1-Critical") {
		t.Fatalf("note missing new priority: %q", call.note)
	}

	if len(roster.released) != 1 || roster.released[0] != "john.s@company.com" {
		t.Fatalf("previous assignee not released: %v", roster.released)
	}
	if len(roster.assigned) != 1 || roster.assigned[0] != "john.s@company.com" {
		t.Fatalf("new assignee load not recorded: %v", roster.assigned)
	}
}

func TestSweepSkipsOfflineTierMembers(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	tickets := &fakeTicketSource{open: []models.Ticket{
		{Number: "INC0001001", Priority: models.PriorityCritical, State: models.StateInProgress,
			CreatedAt: clock.now.Add(-45 * time.Minute)},
	}}
	roster := sweepRoster()
	scheduler := NewScheduler(nil, tickets, roster, nil, clock, 0)

	if _, err := scheduler.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	call := tickets.escalations[0]
	if call.assignee != "sarah.j@company.com" {
		t.Fatalf("offline L3 member must be passed over, got %q", call.assignee)
	}
	if call.priority != models.PriorityCritical {
		t.Fatalf("1-Critical is the ceiling, got %q", call.priority)
	}
	if len(roster.released) != 0 {
		t.Fatalf("unassigned tickets release nobody, got %v", roster.released)
	}
}

func TestSweepLeavesYoungAndClosedTickets(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	tickets := &fakeTicketSource{open: []models.Ticket{
		{Number: "INC0001002", Priority: models.PriorityHigh, State: models.StateNew,
			CreatedAt: clock.now.Add(-30 * time.Minute)},
		{Number: "INC0001003", Priority: models.PriorityHigh, State: models.StateResolved,
			CreatedAt: clock.now.Add(-3 * time.Hour)},
		{Number: "INC0001004", Priority: models.Priority("5-Planning"), State: models.StateNew,
			CreatedAt: clock.now.Add(-3 * time.Hour)},
	}}
	scheduler := NewScheduler(nil, tickets, sweepRoster(), nil, clock, 0)

	escalated, err := scheduler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(escalated) != 0 {
		t.Fatalf("nothing should escalate, got %v", escalated)
	}
}

func TestSweepRetriesWhenTierEmpty(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	tickets := &fakeTicketSource{open: []models.Ticket{
		{Number: "INC0001005", Priority: models.PriorityCritical, State: models.StateNew,
			CreatedAt: clock.now.Add(-2 * time.Hour)},
	}}
	roster := &fakeRoster{members: []models.Responder{
		{Name: "Emily Davis", Email: "emily.d@company.com", Group: "L1 Support", Availability: models.Available},
	}}
	scheduler := NewScheduler(nil, tickets, roster, nil, clock, 0)

	escalated, err := scheduler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(escalated) != 0 || len(tickets.escalations) != 0 {
		t.Fatalf("no L3 responder means no escalation, got %v", escalated)
	}
}

func TestSweepListFailure(t *testing.T) {
	tickets := &fakeTicketSource{listErr: errors.New("store unavailable")}
	scheduler := NewScheduler(nil, tickets, sweepRoster(), nil, fixedClock{now: time.Now()}, 0)

	if _, err := scheduler.Sweep(context.Background()); err == nil {
		t.Fatal("expected list failure to surface")
	}
}

func TestRunRotatesAndStopsOnCancel(t *testing.T) {
	tickets := &fakeTicketSource{}
	roster := sweepRoster()
	scheduler := NewScheduler(nil, tickets, roster, nil, fixedClock{now: time.Now()}, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := scheduler.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
	if len(roster.rotated) == 0 {
		t.Fatal("expected shift rotation on each tick")
	}
}
