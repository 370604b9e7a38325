package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// ErrAnalysisInProgress is returned when an analysis request arrives while a
// session is already running. Requests are rejected, never queued.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// ServiceDesk bundles the read-only collaborator lookups the analysis
// pipeline consults.
type ServiceDesk interface {
	// Resolve finds the catalog entry for a system name. A nil result with a
	// nil error means the name is not in the catalog.
	Resolve(ctx context.Context, name string) (*models.SystemDetails, error)
	RecentChanges(ctx context.Context, sinceHours int) ([]models.Change, error)
	SearchKnowledgeBase(ctx context.Context, symptoms []string) ([]models.Article, error)
	SearchHistory(ctx context.Context, symptoms []string) ([]models.HistoricalIncident, error)
}

// SessionState labels the coordinator's analysis session lifecycle.
type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
)

// Session describes the current or most recent analysis session.
type Session struct {
	EventID   string
	StartedAt time.Time
	State     SessionState
}

// resolutionEstimates maps the top hypothesis category to estimated
// resolution hours. Events with no hypothesis fall back to noCauseEstimate.
var resolutionEstimates = map[models.CauseCategory]int{
	models.CategoryKnownIssue:         1,
	models.CategoryResourceExhaustion: 2,
	models.CategoryChangeRelated:      2,
	models.CategoryConnectivity:       2,
	models.CategoryPerformance:        3,
	models.CategoryHistoricalPattern:  3,
}

const noCauseEstimate = 4

// Options tune coordinator behaviour.
type Options struct {
	// StageTimeout bounds each collaborator call. Zero disables the bound.
	StageTimeout time.Duration
	// ChangeWindowHours is how far back the change log is queried.
	ChangeWindowHours int
}

// Coordinator runs exclusive, sequential analysis sessions. At most one
// session may be running at a time; concurrent requests are rejected with
// ErrAnalysisInProgress.
type Coordinator struct {
	logger     *slog.Logger
	desk       ServiceDesk
	extractor  *SymptomExtractor
	correlator *CorrelationEngine
	solutions  *SolutionGenerator
	opts       Options

	mu      sync.Mutex
	session Session

	historyMu sync.RWMutex
	history   map[string]models.Analysis
}

// NewCoordinator constructs the analysis coordinator.
func NewCoordinator(logger *slog.Logger, desk ServiceDesk, correlator *CorrelationEngine, solutions *SolutionGenerator, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ChangeWindowHours <= 0 {
		opts.ChangeWindowHours = 48
	}
	return &Coordinator{
		logger:     logger,
		desk:       desk,
		extractor:  NewSymptomExtractor(),
		correlator: correlator,
		solutions:  solutions,
		opts:       opts,
		session:    Session{State: SessionIdle},
		history:    make(map[string]models.Analysis),
	}
}

// AnalyzeEvent runs the full analysis pipeline for one event. Stages run in
// a fixed order because later stages consume earlier outputs: symptom
// extraction, catalog lookup, change correlation, knowledge lookup,
// historical lookup, root-cause computation, solution generation,
// finalization. On success the event is marked analyzed and the analysis is
// retained in history; the exclusivity flag is released on every path.
func (c *Coordinator) AnalyzeEvent(ctx context.Context, event *models.Event) (models.Analysis, error) {
	if event == nil {
		return models.Analysis{}, fmt.Errorf("event cannot be nil")
	}
	if err := event.Validate(); err != nil {
		return models.Analysis{}, err
	}
	if err := c.acquire(event.ID); err != nil {
		return models.Analysis{}, err
	}

	analysis, err := c.run(ctx, event)
	if err != nil {
		c.release(SessionFailed)
		return models.Analysis{}, err
	}
	c.release(SessionCompleted)
	return analysis, nil
}

func (c *Coordinator) run(ctx context.Context, event *models.Event) (models.Analysis, error) {
	symptoms := c.extractor.Extract(*event)

	// Catalog resolution is mandatory: a transport failure here fails the
	// session. A not-found source is fine and only disables change
	// correlation.
	system, err := c.resolveSource(ctx, event.Source)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("resolve source %q: %w", event.Source, err)
	}

	// The remaining lookups are optional; a failed one degrades the
	// analysis to whatever hypotheses the other sources support.
	changes := c.lookupChanges(ctx)
	related := c.correlator.CorrelateChanges(*event, system, changes)
	articles := c.lookupKnowledge(ctx, symptoms)
	history := c.lookupHistory(ctx, symptoms)

	hypotheses := c.correlator.Correlate(*event, symptoms, system, related, articles, history)
	solutions := c.solutions.Generate(hypotheses, articles)

	analysis := c.finalize(*event, system, hypotheses, solutions, related, articles, history)

	c.historyMu.Lock()
	c.history[event.ID] = analysis
	c.historyMu.Unlock()

	event.Analyzed = true
	return analysis, nil
}

func (c *Coordinator) finalize(
	event models.Event,
	system *models.SystemDetails,
	hypotheses []models.RootCauseHypothesis,
	solutions []models.Solution,
	changes []models.Change,
	articles []models.Article,
	history []models.HistoricalIncident,
) models.Analysis {
	overall := 0.5
	estimate := noCauseEstimate
	if len(hypotheses) > 0 {
		overall = hypotheses[0].Confidence
		if hours, ok := resolutionEstimates[hypotheses[0].Category]; ok {
			estimate = hours
		}
	}

	return models.Analysis{
		ID:                  fmt.Sprintf("ANALYSIS-%s", uuid.NewString()),
		EventID:             event.ID,
		Timestamp:           time.Now().UTC(),
		Hypotheses:          hypotheses,
		Solutions:           solutions,
		OverallConfidence:   overall,
		ConfidenceLevel:     models.ConfidenceLevelFor(overall),
		EstimatedHours:      estimate,
		RecommendedPriority: recommendPriority(event, hypotheses),
		SystemInfo:          system,
		RelatedChanges:      changes,
		KnowledgeArticles:   articles,
		HistoricalIncidents: history,
	}
}

// recommendPriority maps event severity (and top-hypothesis confidence for
// medium-severity events) onto a ticket priority.
func recommendPriority(event models.Event, hypotheses []models.RootCauseHypothesis) models.Priority {
	switch event.Severity {
	case models.SeverityCritical:
		return models.PriorityCritical
	case models.SeverityHigh:
		return models.PriorityHigh
	}
	if event.Severity == models.SeverityMedium && len(hypotheses) > 0 && hypotheses[0].Confidence > 0.8 {
		return models.PriorityMedium
	}
	return models.PriorityLow
}

func (c *Coordinator) resolveSource(ctx context.Context, source string) (*models.SystemDetails, error) {
	stageCtx, cancel := c.stage(ctx)
	defer cancel()
	return c.desk.Resolve(stageCtx, source)
}

func (c *Coordinator) lookupChanges(ctx context.Context) []models.Change {
	stageCtx, cancel := c.stage(ctx)
	defer cancel()
	changes, err := c.desk.RecentChanges(stageCtx, c.opts.ChangeWindowHours)
	if err != nil {
		c.logger.Warn("change log lookup failed", slog.Any("error", err))
		return nil
	}
	return changes
}

func (c *Coordinator) lookupKnowledge(ctx context.Context, symptoms []string) []models.Article {
	stageCtx, cancel := c.stage(ctx)
	defer cancel()
	articles, err := c.desk.SearchKnowledgeBase(stageCtx, symptoms)
	if err != nil {
		c.logger.Warn("knowledge base lookup failed", slog.Any("error", err))
		return nil
	}
	return articles
}

func (c *Coordinator) lookupHistory(ctx context.Context, symptoms []string) []models.HistoricalIncident {
	stageCtx, cancel := c.stage(ctx)
	defer cancel()
	incidents, err := c.desk.SearchHistory(stageCtx, symptoms)
	if err != nil {
		c.logger.Warn("historical incident lookup failed", slog.Any("error", err))
		return nil
	}
	return incidents
}

// stage bounds a single collaborator call so a stuck lookup cannot wedge the
// exclusivity flag indefinitely.
func (c *Coordinator) stage(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.StageTimeout)
}

func (c *Coordinator) acquire(eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State == SessionRunning {
		return ErrAnalysisInProgress
	}
	c.session = Session{EventID: eventID, StartedAt: time.Now().UTC(), State: SessionRunning}
	return nil
}

func (c *Coordinator) release(outcome SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.State = outcome
}

// CurrentSession returns a snapshot of the session state.
func (c *Coordinator) CurrentSession() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// AnalysisFor returns the retained analysis for an event id.
func (c *Coordinator) AnalysisFor(eventID string) (models.Analysis, bool) {
	c.historyMu.RLock()
	defer c.historyMu.RUnlock()
	analysis, ok := c.history[eventID]
	return analysis, ok
}
