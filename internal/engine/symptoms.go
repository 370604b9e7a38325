package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// Thresholds above which a metric becomes a symptom tag.
const (
	usageThreshold = 80
	errorThreshold = 10
	timeThresholdMs = 5000
)

// SymptomExtractor normalizes a raw event into symptom tags.
type SymptomExtractor struct{}

// NewSymptomExtractor creates a symptom extractor.
func NewSymptomExtractor() *SymptomExtractor {
	return &SymptomExtractor{}
}

// Extract returns the event's symptom tags. The message and type are always
// included; metrics contribute a tag when their class threshold is exceeded.
// Metric-name classification is case-sensitive substring matching: camelCase
// names like cpuUsage and responseTime are recognised, a leading-lowercase
// errorRate is not.
func (e *SymptomExtractor) Extract(event models.Event) []string {
	symptoms := []string{event.Message}

	names := make([]string, 0, len(event.Metrics))
	for name := range event.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := event.Metrics[name]
		switch {
		case strings.Contains(name, "Usage") && value > usageThreshold:
			symptoms = append(symptoms, fmt.Sprintf("High %s", name))
		case strings.Contains(name, "Error") && value > errorThreshold:
			symptoms = append(symptoms, fmt.Sprintf("Elevated %s", name))
		case strings.Contains(name, "Time") && value > timeThresholdMs:
			symptoms = append(symptoms, fmt.Sprintf("Slow %s", name))
		}
	}

	symptoms = append(symptoms, string(event.Type))
	return symptoms
}
