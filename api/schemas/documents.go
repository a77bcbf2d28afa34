package schemas

import "time"

// -- Document Schemas --

// FindingsDocument is the candidate-findings input for one project, as
// produced by the analysis agent under evaluation. Loaders also accept the
// looser shapes seen in the wild (a bare array, or a "results" key); this is
// the canonical form.
type FindingsDocument struct {
	Project  string             `json:"project,omitempty"`
	Findings []CandidateFinding `json:"findings"`
}

// BenchmarkDocument is the ground-truth input for one project.
type BenchmarkDocument struct {
	ProjectID       string               `json:"project_id"`
	Vulnerabilities []TruthVulnerability `json:"vulnerabilities"`
}

// Metrics aggregates the verdicts of one scoring run. Partial matches are
// tracked but never counted as true positives. All rates carry
// zero-denominator guards: a rate whose denominator is zero is 0, never NaN.
type Metrics struct {
	TotalExpected  int `json:"total_expected"`
	TotalFound     int `json:"total_found"`
	TruePositives  int `json:"true_positives"`
	PartialMatches int `json:"partial_matches"`
	FalseNegatives int `json:"false_negatives"`
	FalsePositives int `json:"false_positives"`

	DetectionRate float64 `json:"detection_rate"`
	Precision     float64 `json:"precision"`
	F1Score       float64 `json:"f1_score"`

	// BySeverity breaks the truth-side outcomes down by the truth item's
	// severity.
	BySeverity map[Severity]SeverityBreakdown `json:"by_severity,omitempty"`
}

// SeverityBreakdown is the truth-side outcome tally for one severity level.
type SeverityBreakdown struct {
	Expected       int     `json:"expected"`
	TruePositives  int     `json:"true_positives"`
	PartialMatches int     `json:"partial_matches"`
	FalseNegatives int     `json:"false_negatives"`
	DetectionRate  float64 `json:"detection_rate"`
}

// JudgeUsage counts judgment-service traffic for one scoring run. Token
// counts are zero when the provider does not report usage.
type JudgeUsage struct {
	Calls              int64 `json:"calls"`
	Retries            int64 `json:"retries"`
	TransientFailures  int64 `json:"transient_failures"`
	MalformedResponses int64 `json:"malformed_responses"`
	PromptTokens       int64 `json:"prompt_tokens"`
	CompletionTokens   int64 `json:"completion_tokens"`
}

// ScoreReport is the per-project output document of a scoring run. Records
// holds one MatchRecord per truth item in benchmark order followed by the
// false-positive records; Incomplete marks a run that was cancelled before
// every truth item was judged, in which case Records covers only the
// evaluated subset and no false positives are attributed.
type ScoreReport struct {
	Project    string    `json:"project"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	JudgeModel string    `json:"judge_model"`
	Incomplete bool      `json:"incomplete"`

	Metrics

	Records  []MatchRecord `json:"records"`
	Warnings []string      `json:"warnings,omitempty"`
	Usage    JudgeUsage    `json:"judge_usage"`
}

// Matched returns the records claiming an exact match.
func (r *ScoreReport) Matched() []MatchRecord { return r.filter(func(m MatchRecord) bool { return m.IsMatch }) }

// Partial returns the records claiming a partial match.
func (r *ScoreReport) Partial() []MatchRecord {
	return r.filter(func(m MatchRecord) bool { return m.IsPartialMatch })
}

// Missed returns the truth-side records with no match at all.
func (r *ScoreReport) Missed() []MatchRecord {
	return r.filter(func(m MatchRecord) bool { return !m.IsFP && !m.IsMatch && !m.IsPartialMatch })
}

// FalsePositives returns the candidate-side records never claimed by a match.
func (r *ScoreReport) FalsePositives() []MatchRecord {
	return r.filter(func(m MatchRecord) bool { return m.IsFP })
}

func (r *ScoreReport) filter(keep func(MatchRecord) bool) []MatchRecord {
	var out []MatchRecord
	for _, rec := range r.Records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
