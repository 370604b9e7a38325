package engine

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// defaultTemplates maps a cause category to its canned remediation steps.
// KnownIssue is absent on purpose: its steps come from the matching
// knowledge-base article.
var defaultTemplates = map[models.CauseCategory][]string{
	models.CategoryResourceExhaustion: {
		"Identify resource-consuming processes",
		"Increase resource allocation temporarily",
		"Optimize application configuration",
		"Schedule restart during maintenance window",
	},
	models.CategoryPerformance: {
		"Analyze performance metrics",
		"Identify bottlenecks",
		"Scale resources if needed",
		"Optimize code or queries",
	},
	models.CategoryConnectivity: {
		"Check physical connections",
		"Verify network configuration",
		"Test connectivity between endpoints",
		"Review firewall rules",
	},
	models.CategoryChangeRelated: {
		"Review change implementation",
		"Check for configuration errors",
		"Consider rollback if critical",
		"Document lessons learned",
	},
}

var genericSteps = []string{
	"Gather additional diagnostic information",
	"Isolate affected components",
	"Apply targeted fix",
	"Monitor for recurrence",
}

const knownIssueFallbackStep = "Apply known fix from knowledge base"

// SolutionGenerator maps hypotheses onto remediation step lists.
type SolutionGenerator struct {
	templates map[models.CauseCategory][]string
	logger    *slog.Logger
}

// templatePackFile is the YAML root for an on-disk template override pack.
type templatePackFile struct {
	Templates map[string][]string `yaml:"templates"`
}

// NewSolutionGenerator builds a generator using the built-in templates,
// overridden per category by the YAML pack at path when one exists.
func NewSolutionGenerator(path string, logger *slog.Logger) (*SolutionGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	templates := make(map[models.CauseCategory][]string, len(defaultTemplates))
	for category, steps := range defaultTemplates {
		templates[category] = steps
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Pack is optional.
		case err != nil:
			return nil, err
		default:
			var pack templatePackFile
			if err := yaml.Unmarshal(data, &pack); err != nil {
				return nil, err
			}
			for category, steps := range pack.Templates {
				if len(steps) > 0 {
					templates[models.CauseCategory(category)] = steps
				}
			}
		}
	}

	return &SolutionGenerator{templates: templates, logger: logger}, nil
}

// Generate produces one solution per hypothesis, index-aligned with the
// input. KnownIssue hypotheses take the matching article's recorded fix as a
// single step; categories outside the template table get the generic
// diagnostic steps.
func (g *SolutionGenerator) Generate(hypotheses []models.RootCauseHypothesis, articles []models.Article) []models.Solution {
	solutions := make([]models.Solution, 0, len(hypotheses))
	for _, hyp := range hypotheses {
		solutions = append(solutions, models.Solution{
			RootCause:  hyp.Cause,
			Confidence: hyp.Confidence,
			Steps:      g.stepsFor(hyp, articles),
		})
	}
	return solutions
}

func (g *SolutionGenerator) stepsFor(hyp models.RootCauseHypothesis, articles []models.Article) []string {
	if hyp.Category == models.CategoryKnownIssue {
		for _, article := range articles {
			if article.Title == hyp.Cause {
				return []string{article.Solution}
			}
		}
		return []string{knownIssueFallbackStep}
	}
	if steps, ok := g.templates[hyp.Category]; ok {
		return steps
	}
	return genericSteps
}
