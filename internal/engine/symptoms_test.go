package engine

import (
	"reflect"
	"testing"

	"github.com/rlibbert/noc-analyst/internal/models"
)

func TestSymptomExtractorOrdering(t *testing.T) {
	extractor := NewSymptomExtractor()
	event := models.Event{
		ID:       "evt-1",
		Severity: models.SeverityHigh,
		Type:     models.EventTypeServer,
		Message:  "CPU saturation on web tier",
		Metrics: map[string]float64{
			"responseTime": 6200,
			"cpuUsage":     93,
			"httpErrors":   15,
		},
	}

	got := extractor.Extract(event)
	want := []string{
		"CPU saturation on web tier",
		"High cpuUsage",
		"Elevated httpErrors",
		"Slow responseTime",
		"Server",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("symptoms mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestSymptomExtractorThresholds(t *testing.T) {
	extractor := NewSymptomExtractor()
	event := models.Event{
		ID:       "evt-2",
		Severity: models.SeverityLow,
		Type:     models.EventTypeDatabase,
		Message:  "routine check",
		Metrics: map[string]float64{
			"diskUsage":    80,   // not above threshold
			"errorCount":   10,   // not above threshold
			"queryTime":    5000, // not above threshold
			"memoryUsage":  80.1,
			"timeoutCount": 11,
		},
	}

	got := extractor.Extract(event)
	want := []string{
		"routine check",
		"High memoryUsage",
		"Database",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("symptoms mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestSymptomExtractorCaseSensitiveNames(t *testing.T) {
	extractor := NewSymptomExtractor()
	event := models.Event{
		ID:       "evt-3",
		Severity: models.SeverityLow,
		Type:     models.EventTypeNetwork,
		Message:  "link degraded",
		Metrics: map[string]float64{
			// Lowercase "usage" does not match the Usage classifier.
			"cpu usage": 95,
		},
	}

	got := extractor.Extract(event)
	want := []string{"link degraded", "Network"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("symptoms mismatch\n got: %v\nwant: %v", got, want)
	}
}
