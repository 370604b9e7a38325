package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rlibbert/noc-analyst/internal/models"
)

type fakeDesk struct {
	system     *models.SystemDetails
	resolveErr error
	changes    []models.Change
	changesErr error
	articles   []models.Article
	kbErr      error
	incidents  []models.HistoricalIncident
	historyErr error

	resolveStarted chan struct{}
	resolveRelease chan struct{}
}

func (f *fakeDesk) Resolve(ctx context.Context, name string) (*models.SystemDetails, error) {
	if f.resolveStarted != nil {
		close(f.resolveStarted)
		<-f.resolveRelease
	}
	return f.system, f.resolveErr
}

func (f *fakeDesk) RecentChanges(ctx context.Context, sinceHours int) ([]models.Change, error) {
	return f.changes, f.changesErr
}

func (f *fakeDesk) SearchKnowledgeBase(ctx context.Context, symptoms []string) ([]models.Article, error) {
	return f.articles, f.kbErr
}

func (f *fakeDesk) SearchHistory(ctx context.Context, symptoms []string) ([]models.HistoricalIncident, error) {
	return f.incidents, f.historyErr
}

func newTestCoordinator(t *testing.T, desk ServiceDesk) *Coordinator {
	t.Helper()
	solutions, err := NewSolutionGenerator("", nil)
	if err != nil {
		t.Fatalf("NewSolutionGenerator: %v", err)
	}
	return NewCoordinator(nil, desk, NewCorrelationEngine(nil), solutions, Options{})
}

func TestAnalyzeEventSuccess(t *testing.T) {
	desk := &fakeDesk{
		system: &models.SystemDetails{ID: "srv-web-01", Name: "web-server-01"},
		changes: []models.Change{{
			ID:              "CHG0001236",
			Title:           "Application deployment v2.5.0",
			EndTime:         time.Now().Add(-time.Hour),
			AffectedSystems: []string{"srv-web-01"},
		}},
		articles: []models.Article{{
			ID:       "KB002",
			Title:    "High CPU Usage on Web Servers",
			Symptoms: []string{"High cpuUsage"},
			Solution: "Restart the web tier",
		}},
	}
	coordinator := newTestCoordinator(t, desk)

	event := models.Event{
		ID:        "EVT-1001",
		Timestamp: time.Now().UTC(),
		Severity:  models.SeverityCritical,
		Type:      models.EventTypeServer,
		Source:    "web-server-01",
		Message:   "CPU saturation alarm",
		Metrics:   map[string]float64{"cpuUsage": 96},
	}

	analysis, err := coordinator.AnalyzeEvent(context.Background(), &event)
	if err != nil {
		t.Fatalf("AnalyzeEvent: %v", err)
	}
	if !event.Analyzed {
		t.Fatal("event should be marked analyzed")
	}
	if len(analysis.Hypotheses) != 3 {
		t.Fatalf("expected CPU, KB and change hypotheses, got %d", len(analysis.Hypotheses))
	}
	if analysis.OverallConfidence != 0.90 {
		t.Fatalf("overall confidence should track the top hypothesis, got %v", analysis.OverallConfidence)
	}
	if analysis.ConfidenceLevel != models.ConfidenceHigh {
		t.Fatalf("unexpected confidence level %q", analysis.ConfidenceLevel)
	}
	if analysis.EstimatedHours != 3 {
		t.Fatalf("expected 3 hour estimate for a performance cause, got %d", analysis.EstimatedHours)
	}
	if analysis.RecommendedPriority != models.PriorityCritical {
		t.Fatalf("critical events recommend 1-Critical, got %q", analysis.RecommendedPriority)
	}
	if len(analysis.Solutions) != len(analysis.Hypotheses) {
		t.Fatalf("solutions must align with hypotheses: %d vs %d", len(analysis.Solutions), len(analysis.Hypotheses))
	}

	stored, ok := coordinator.AnalysisFor(event.ID)
	if !ok || stored.ID != analysis.ID {
		t.Fatalf("analysis not retained for %q", event.ID)
	}
	if session := coordinator.CurrentSession(); session.State != SessionCompleted {
		t.Fatalf("expected completed session, got %q", session.State)
	}
}

func TestAnalyzeEventNoHypotheses(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeDesk{})

	event := models.Event{
		ID:       "EVT-1002",
		Severity: models.SeverityMedium,
		Type:     models.EventTypeApplication,
		Source:   "app-admin",
		Message:  "sporadic timeouts",
	}

	analysis, err := coordinator.AnalyzeEvent(context.Background(), &event)
	if err != nil {
		t.Fatalf("AnalyzeEvent: %v", err)
	}
	if analysis.OverallConfidence != 0.5 {
		t.Fatalf("expected fallback confidence 0.5, got %v", analysis.OverallConfidence)
	}
	if analysis.EstimatedHours != 4 {
		t.Fatalf("expected fallback estimate, got %d", analysis.EstimatedHours)
	}
	if analysis.RecommendedPriority != models.PriorityLow {
		t.Fatalf("medium severity without a confident cause recommends 4-Low, got %q", analysis.RecommendedPriority)
	}
}

func TestAnalyzeEventValidation(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeDesk{})

	if _, err := coordinator.AnalyzeEvent(context.Background(), nil); err == nil {
		t.Fatal("nil event must be rejected")
	}
	event := models.Event{ID: "EVT-1003", Severity: "Extreme", Type: models.EventTypeServer}
	if _, err := coordinator.AnalyzeEvent(context.Background(), &event); err == nil {
		t.Fatal("unknown severity must be rejected")
	}
	if session := coordinator.CurrentSession(); session.State != SessionIdle {
		t.Fatalf("rejected input must not consume the session, got %q", session.State)
	}
}

func TestAnalyzeEventResolveFailureFailsSession(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeDesk{resolveErr: errors.New("catalog unreachable")})

	event := models.Event{
		ID:       "EVT-1004",
		Severity: models.SeverityHigh,
		Type:     models.EventTypeServer,
		Source:   "web-server-01",
	}
	if _, err := coordinator.AnalyzeEvent(context.Background(), &event); err == nil {
		t.Fatal("resolve failure must fail the analysis")
	}
	if session := coordinator.CurrentSession(); session.State != SessionFailed {
		t.Fatalf("expected failed session, got %q", session.State)
	}
	if event.Analyzed {
		t.Fatal("failed analysis must not mark the event analyzed")
	}
}

func TestAnalyzeEventOptionalLookupsDegrade(t *testing.T) {
	desk := &fakeDesk{
		system:     &models.SystemDetails{ID: "srv-db-01"},
		changesErr: errors.New("change log down"),
		kbErr:      errors.New("kb down"),
		historyErr: errors.New("history down"),
	}
	coordinator := newTestCoordinator(t, desk)

	event := models.Event{
		ID:       "EVT-1005",
		Severity: models.SeverityCritical,
		Type:     models.EventTypeDatabase,
		Source:   "db-primary",
		Message:  "connection pool exhausted",
		Metrics:  map[string]float64{"connectionPool": 97},
	}

	analysis, err := coordinator.AnalyzeEvent(context.Background(), &event)
	if err != nil {
		t.Fatalf("optional failures must not fail the session: %v", err)
	}
	if len(analysis.Hypotheses) != 1 || analysis.Hypotheses[0].Category != models.CategoryResourceExhaustion {
		t.Fatalf("expected only the event-pattern hypothesis, got %+v", analysis.Hypotheses)
	}
}

func TestAnalyzeEventRejectsConcurrent(t *testing.T) {
	desk := &fakeDesk{
		resolveStarted: make(chan struct{}),
		resolveRelease: make(chan struct{}),
	}
	coordinator := newTestCoordinator(t, desk)

	first := models.Event{ID: "EVT-2001", Severity: models.SeverityHigh, Type: models.EventTypeServer, Source: "a"}
	second := models.Event{ID: "EVT-2002", Severity: models.SeverityHigh, Type: models.EventTypeServer, Source: "b"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := coordinator.AnalyzeEvent(context.Background(), &first); err != nil {
			t.Errorf("first analysis failed: %v", err)
		}
	}()

	<-desk.resolveStarted
	if _, err := coordinator.AnalyzeEvent(context.Background(), &second); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("expected ErrAnalysisInProgress, got %v", err)
	}

	close(desk.resolveRelease)
	wg.Wait()
}
