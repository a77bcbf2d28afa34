package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/scabench-org/scabench/api/schemas"
)

// WriteReport serializes the report as score_<project>.json under dir,
// creating the directory if needed. Returns the written path.
func WriteReport(dir string, report *schemas.ScoreReport) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode score report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("score_%s.json", sanitizeProjectID(report.Project)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write score report: %w", err)
	}
	return path, nil
}

// sanitizeProjectID keeps the filename flat even when the project ID carries
// path separators or other hostile characters.
func sanitizeProjectID(project string) string {
	if project == "" {
		return "project"
	}
	var b strings.Builder
	b.Grow(len(project))
	for _, r := range project {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
