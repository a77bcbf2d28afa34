package scoring

import (
	"github.com/scabench-org/scabench/api/schemas"
)

// CalculateMetrics derives the benchmark metrics from the resolved
// assignments. Partial matches never count towards true positives; a truth
// finding with a partial match is still a false negative. Every ratio is
// zero-guarded so a project with no truth findings or no candidates reports
// 0.0 rather than NaN.
func CalculateMetrics(assignments []Assignment, totalFound, falsePositives int) schemas.Metrics {
	m := schemas.Metrics{
		TotalExpected:  len(assignments),
		TotalFound:     totalFound,
		FalsePositives: falsePositives,
		BySeverity:     make(map[schemas.Severity]schemas.SeverityBreakdown),
	}

	perSeverity := make(map[schemas.Severity]*schemas.SeverityBreakdown)
	for _, a := range assignments {
		sev := a.Truth.Severity
		bd, ok := perSeverity[sev]
		if !ok {
			bd = &schemas.SeverityBreakdown{}
			perSeverity[sev] = bd
		}
		bd.Expected++
		switch a.Outcome {
		case schemas.OutcomeExactMatch:
			m.TruePositives++
			bd.TruePositives++
		case schemas.OutcomePartialMatch:
			m.PartialMatches++
			bd.PartialMatches++
		}
	}

	m.FalseNegatives = m.TotalExpected - m.TruePositives
	m.DetectionRate = ratio(m.TruePositives, m.TotalExpected)
	m.Precision = ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
	if m.Precision+m.DetectionRate > 0 {
		m.F1Score = 2 * m.Precision * m.DetectionRate / (m.Precision + m.DetectionRate)
	}

	for sev, bd := range perSeverity {
		bd.FalseNegatives = bd.Expected - bd.TruePositives
		bd.DetectionRate = ratio(bd.TruePositives, bd.Expected)
		m.BySeverity[sev] = *bd
	}

	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
