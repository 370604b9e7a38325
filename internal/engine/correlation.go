package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rlibbert/noc-analyst/internal/models"
	"github.com/rlibbert/noc-analyst/internal/utils"
)

// Metric thresholds for the pattern-based hypothesis rules.
const (
	connectionPoolHighWater = 90
	cpuHighWater            = 90
	packetLossHighWater     = 20
)

// CorrelationEngine combines an event with catalog, change, knowledge-base
// and historical context into a ranked set of root-cause hypotheses.
type CorrelationEngine struct {
	logger *slog.Logger
	clock  func() time.Time
}

// NewCorrelationEngine constructs a CorrelationEngine.
func NewCorrelationEngine(logger *slog.Logger) *CorrelationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationEngine{logger: logger, clock: time.Now}
}

// Correlate evaluates every candidate rule against the event and its
// collaborator context. Rules are additive: each one that triggers appends a
// hypothesis, and the final list is sorted confidence-descending with ties
// keeping encounter order.
func (e *CorrelationEngine) Correlate(
	event models.Event,
	symptoms []string,
	system *models.SystemDetails,
	relatedChanges []models.Change,
	articles []models.Article,
	history []models.HistoricalIncident,
) []models.RootCauseHypothesis {
	hypotheses := make([]models.RootCauseHypothesis, 0, 6)

	if event.Type == models.EventTypeDatabase && strings.Contains(event.Message, "connection") {
		evidence := []string{
			"Connection-related error message",
			"Database system affected",
		}
		if pool, ok := event.Metric("connectionPool"); ok && pool > connectionPoolHighWater {
			evidence = append(evidence, "High connection pool usage")
		}
		hypotheses = append(hypotheses, models.NewHypothesis(
			"Database Connection Pool Exhaustion", 0.85, models.CategoryResourceExhaustion, evidence...))
	}

	if cpu, ok := event.Metric("cpuUsage"); ok && event.Type == models.EventTypeServer && cpu > cpuHighWater {
		hypotheses = append(hypotheses, models.NewHypothesis(
			"High CPU Utilization", 0.90, models.CategoryPerformance,
			fmt.Sprintf("CPU usage at %.1f%%", cpu),
			"Server performance degradation"))
	}

	if loss, ok := event.Metric("packetLoss"); ok && event.Type == models.EventTypeNetwork && loss > packetLossHighWater {
		hypotheses = append(hypotheses, models.NewHypothesis(
			"Network Connectivity Issues", 0.75, models.CategoryConnectivity,
			fmt.Sprintf("Packet loss at %.1f%%", loss),
			"Network device affected"))
	}

	if len(relatedChanges) > 0 {
		change := mostRecentChange(relatedChanges)
		hypotheses = append(hypotheses, models.NewHypothesis(
			fmt.Sprintf("Recent Change: %s", change.Title), 0.70, models.CategoryChangeRelated,
			fmt.Sprintf("Change %s completed %s", change.ID, utils.TimeAgo(change.EndTime, e.clock())),
			"Affected same systems as event"))
	}

	if matched := MatchArticles(articles, symptoms); len(matched) > 0 {
		top := matched[0]
		hypotheses = append(hypotheses, models.NewHypothesis(
			top.Title, 0.80, models.CategoryKnownIssue,
			"Matches known issue pattern",
			fmt.Sprintf("Knowledge Article: %s", top.ID)))
	}

	if matched := matchHistory(history, symptoms); len(matched) > 0 {
		similar := matched[0]
		hypotheses = append(hypotheses, models.NewHypothesis(
			similar.RootCause, 0.65, models.CategoryHistoricalPattern,
			fmt.Sprintf("Similar to %d past incidents", similar.Occurrences),
			fmt.Sprintf("Average resolution time: %.1f hours", similar.ResolutionTime)))
	}

	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].Confidence > hypotheses[j].Confidence
	})
	return hypotheses
}

// CorrelateChanges filters the change log down to changes whose affected
// systems intersect the event's resolved catalog entry or affected-system
// list. Without a catalog resolution no change can be correlated.
func (e *CorrelationEngine) CorrelateChanges(event models.Event, system *models.SystemDetails, changes []models.Change) []models.Change {
	if system == nil {
		return nil
	}
	related := make([]models.Change, 0)
	for _, change := range changes {
		if changeTouches(change, system.ID, event.AffectedSystems) {
			related = append(related, change)
		}
	}
	return related
}

func changeTouches(change models.Change, systemID string, affected []string) bool {
	for _, sys := range change.AffectedSystems {
		if sys == systemID {
			return true
		}
		for _, a := range affected {
			if sys == a {
				return true
			}
		}
	}
	return false
}

func mostRecentChange(changes []models.Change) models.Change {
	recent := changes[0]
	for _, c := range changes[1:] {
		if c.EndTime.After(recent.EndTime) {
			recent = c
		}
	}
	return recent
}

// MatchArticles returns the knowledge-base articles whose symptom keywords
// match any extracted symptom. The match is a bidirectional case-insensitive
// substring test: short keywords can match spuriously, but callers rely on
// the resulting ordering, so tightening it would reshuffle which article
// ranks first.
func MatchArticles(articles []models.Article, symptoms []string) []models.Article {
	matched := make([]models.Article, 0)
	for _, article := range articles {
		if articleMatches(article, symptoms) {
			matched = append(matched, article)
		}
	}
	return matched
}

func articleMatches(article models.Article, symptoms []string) bool {
	for _, keyword := range article.Symptoms {
		kw := strings.ToLower(keyword)
		for _, symptom := range symptoms {
			s := strings.ToLower(symptom)
			if strings.Contains(s, kw) || strings.Contains(kw, s) {
				return true
			}
		}
	}
	return false
}

// matchHistory returns historical incidents whose title, root cause or
// resolution contains any symptom, case-insensitively.
func matchHistory(history []models.HistoricalIncident, symptoms []string) []models.HistoricalIncident {
	matched := make([]models.HistoricalIncident, 0)
	for _, inc := range history {
		haystack := strings.ToLower(inc.Title + " " + inc.RootCause + " " + inc.Resolution)
		for _, symptom := range symptoms {
			if strings.Contains(haystack, strings.ToLower(symptom)) {
				matched = append(matched, inc)
				break
			}
		}
	}
	return matched
}
