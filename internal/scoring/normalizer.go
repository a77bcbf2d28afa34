package scoring

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
)

// Normalize canonicalizes candidate severities and collapses duplicates.
// Findings keep their original indices; a skipped or merged record leaves a
// gap rather than shifting later indices. Records with an unrecognized
// severity are dropped with a warning. Duplicates collide on the dedup key
// (file or location, title, severity, all case-folded) and the first
// occurrence wins. Informational findings are kept; they are excluded from
// false-positive counting later, not from matching.
func Normalize(findings []schemas.CandidateFinding, logger *zap.Logger) ([]schemas.CandidateFinding, []string) {
	normalized := make([]schemas.CandidateFinding, 0, len(findings))
	var warnings []string
	seen := make(map[string]int, len(findings))

	for _, f := range findings {
		severity, ok := schemas.ParseSeverity(string(f.Severity))
		if !ok {
			dataErr := NewDataError(
				fmt.Sprintf("finding %d", f.Index),
				fmt.Sprintf("unrecognized severity %q", f.Severity),
			)
			logger.Warn("Skipping finding with unrecognized severity",
				zap.Int("index", f.Index),
				zap.String("severity", string(f.Severity)),
			)
			warnings = append(warnings, dataErr.Error())
			continue
		}
		f.Severity = severity

		key := f.DedupKey()
		if keptIndex, dup := seen[key]; dup {
			logger.Debug("Collapsing duplicate finding",
				zap.Int("index", f.Index),
				zap.Int("kept_index", keptIndex),
			)
			continue
		}
		seen[key] = f.Index
		normalized = append(normalized, f)
	}

	return normalized, warnings
}

// NormalizeTruth canonicalizes truth severities. Unlike candidates, a truth
// item with an unrecognized severity is kept (case-folded) with a warning:
// dropping it would silently shrink the detection denominator and hide a
// benchmark data problem.
func NormalizeTruth(vulns []schemas.TruthVulnerability, logger *zap.Logger) ([]schemas.TruthVulnerability, []string) {
	normalized := make([]schemas.TruthVulnerability, 0, len(vulns))
	var warnings []string

	for _, v := range vulns {
		severity, ok := schemas.ParseSeverity(string(v.Severity))
		if ok {
			v.Severity = severity
		} else {
			v.Severity = schemas.Severity(strings.ToLower(strings.TrimSpace(string(v.Severity))))
			dataErr := NewDataError(
				fmt.Sprintf("truth %s", v.FindingID),
				fmt.Sprintf("unrecognized severity %q", v.Severity),
			)
			logger.Warn("Truth item has unrecognized severity",
				zap.String("finding_id", v.FindingID),
				zap.String("severity", string(v.Severity)),
			)
			warnings = append(warnings, dataErr.Error())
		}
		normalized = append(normalized, v)
	}

	return normalized, warnings
}
