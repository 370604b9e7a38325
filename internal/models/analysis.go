package models

import "time"

// CauseCategory classifies a root-cause hypothesis.
type CauseCategory string

const (
	CategoryResourceExhaustion CauseCategory = "Resource Exhaustion"
	CategoryPerformance        CauseCategory = "Performance"
	CategoryConnectivity       CauseCategory = "Connectivity"
	CategoryChangeRelated      CauseCategory = "Change-Related"
	CategoryKnownIssue         CauseCategory = "Known Issue"
	CategoryHistoricalPattern  CauseCategory = "Historical Pattern"
	CategoryOther              CauseCategory = "Other"
)

// RootCauseHypothesis is a candidate root cause with supporting evidence.
// Confidence is a deterministic rule weight in [0,1], not a learned
// probability.
type RootCauseHypothesis struct {
	Cause      string        `json:"cause"`
	Confidence float64       `json:"confidence"`
	Category   CauseCategory `json:"category"`
	Evidence   []string      `json:"evidence"`
}

// NewHypothesis builds a hypothesis with confidence clamped to [0,1].
func NewHypothesis(cause string, confidence float64, category CauseCategory, evidence ...string) RootCauseHypothesis {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return RootCauseHypothesis{
		Cause:      cause,
		Confidence: confidence,
		Category:   category,
		Evidence:   evidence,
	}
}

// Solution is the remediation plan generated for one hypothesis.
type Solution struct {
	RootCause  string   `json:"rootCause"`
	Confidence float64  `json:"confidence"`
	Steps      []string `json:"steps"`
}

// ConfidenceLevel buckets an overall confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceLevelFor maps a score onto its level. Boundaries at 0.8 and 0.6
// belong to the higher band.
func ConfidenceLevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Analysis is the finalized output of correlating one event. Hypotheses and
// Solutions are always equal length and index-aligned. Immutable once built.
type Analysis struct {
	ID                   string                `json:"id"`
	EventID              string                `json:"eventId"`
	Timestamp            time.Time             `json:"timestamp"`
	Hypotheses           []RootCauseHypothesis `json:"hypotheses"`
	Solutions            []Solution            `json:"solutions"`
	OverallConfidence    float64               `json:"overallConfidence"`
	ConfidenceLevel      ConfidenceLevel       `json:"confidenceLevel"`
	EstimatedHours       int                   `json:"estimatedResolutionHours"`
	RecommendedPriority  Priority              `json:"recommendedPriority"`
	SystemInfo           *SystemDetails        `json:"systemInfo,omitempty"`
	RelatedChanges       []Change              `json:"relatedChanges,omitempty"`
	KnowledgeArticles    []Article             `json:"knowledgeArticles,omitempty"`
	HistoricalIncidents  []HistoricalIncident  `json:"historicalIncidents,omitempty"`
}

// TopHypothesis returns the highest-confidence hypothesis, if any.
func (a Analysis) TopHypothesis() (RootCauseHypothesis, bool) {
	if len(a.Hypotheses) == 0 {
		return RootCauseHypothesis{}, false
	}
	return a.Hypotheses[0], true
}
