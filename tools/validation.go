package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/docsearch/documenter-mcp/internal/searchindex"
	"github.com/docsearch/documenter-mcp/internal/source"
)

const (
	// ValidationGuidance keeps the caller from inventing fixes
	ValidationGuidance = "The problems listed are the complete validation result. Fix only what is listed; every fragment needs exactly location, page, title, text and category (page or section), all strings."
)

// ValidationReport is the result of validating one search index
type ValidationReport struct {
	Source   string                `json:"source"`
	Valid    bool                  `json:"valid"`
	Problems []searchindex.Problem `json:"problems"`
	Errors   []string              `json:"errors,omitempty"`
	Stats    *searchindex.Stats    `json:"stats,omitempty"`
	Guidance string                `json:"guidance,omitempty"`
}

// isInlineIndex reports whether s is index content rather than a path or URL
func isInlineIndex(s string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	if strings.HasPrefix(trimmed, "{") {
		return true
	}
	for _, kw := range []string{"var ", "let ", "const "} {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return strings.Contains(trimmed, "\n")
}

// ValidateSource validates the search index given by path, URL or content.
// Shape problems and semantic check failures are part of the report; the
// error is for a source that cannot be read at all.
func ValidateSource(ctx context.Context, ref string) (ValidationReport, error) {
	if strings.TrimSpace(ref) == "" {
		return ValidationReport{}, errors.New("source must not be empty")
	}

	report := ValidationReport{Source: ref, Problems: []searchindex.Problem{}}

	var data []byte
	if isInlineIndex(ref) {
		report.Source = "inline"
		data = []byte(ref)
	} else {
		var err error
		if data, err = source.Fetch(ctx, ref); err != nil {
			return ValidationReport{}, fmt.Errorf("unable to read search index: %w", err)
		}
	}

	problems, err := searchindex.Validate(data)
	if err != nil {
		report.Errors = []string{err.Error()}
		report.Guidance = ValidationGuidance
		return report, nil
	}
	report.Problems = append(report.Problems, problems...)

	if !searchindex.HasErrors(problems) {
		idx, err := searchindex.Parse(data)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		} else {
			stats := idx.Stats()
			report.Stats = &stats
			for _, e := range multierr.Errors(idx.Check()) {
				report.Errors = append(report.Errors, e.Error())
			}
		}
	}

	report.Valid = !searchindex.HasErrors(report.Problems) && len(report.Errors) == 0
	if !report.Valid {
		report.Guidance = ValidationGuidance
	}
	return report, nil
}
