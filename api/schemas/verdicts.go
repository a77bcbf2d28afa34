package schemas

// -- Verdict Schemas --

// VerdictOutcome is the tagged variant returned by a judgment call. Any other
// value fails schema validation at the judgment-client boundary.
type VerdictOutcome string

const (
	OutcomeExactMatch   VerdictOutcome = "exact_match"
	OutcomePartialMatch VerdictOutcome = "partial_match"
	OutcomeNoMatch      VerdictOutcome = "no_match"
)

// Valid reports whether the outcome is one of the three recognized variants.
func (o VerdictOutcome) Valid() bool {
	switch o {
	case OutcomeExactMatch, OutcomePartialMatch, OutcomeNoMatch:
		return true
	}
	return false
}

// Verdict is the outcome of comparing one TruthVulnerability against a batch
// of candidate findings. CandidateIndex is nil for no_match and always refers
// to the candidate's original index, never its position within the batch.
// Verdicts are ephemeral: they feed the majority vote and are not persisted.
type Verdict struct {
	Outcome        VerdictOutcome `json:"outcome"`
	CandidateIndex *int           `json:"candidate_index"`
	Confidence     float64        `json:"confidence"`
	Explanation    string         `json:"explanation"`

	// Severities are filled from the authoritative inputs, never from
	// judgment output.
	SeverityFromCandidate Severity `json:"severity_from_candidate,omitempty"`
	SeverityFromTruth     Severity `json:"severity_from_truth,omitempty"`
}

// IsMatch reports whether the verdict claims any relation to a candidate.
func (v Verdict) IsMatch() bool {
	return v.Outcome == OutcomeExactMatch || v.Outcome == OutcomePartialMatch
}

// MatchRecord is the final, persisted decision for one truth item or one
// unclaimed candidate. Truth-side records are emitted one per
// TruthVulnerability in input order; false-positive records follow with
// IsFP set. The json tags are the external contract consumed by the
// benchmark pipeline and must not change.
type MatchRecord struct {
	IsMatch        bool   `json:"is_match"`
	IsPartialMatch bool   `json:"is_partial_match"`
	IsFP           bool   `json:"is_fp"`
	Explanation    string `json:"explanation"`

	// CandidateSeverity is what the agent under evaluation claimed;
	// TruthSeverity is what the benchmark records. Either may be empty when
	// no counterpart exists (a missed truth item has no candidate severity,
	// a false positive has no truth severity).
	CandidateSeverity Severity `json:"severity_from_junior_auditor"`
	TruthSeverity     Severity `json:"severity_from_truth"`

	// CandidateIndex is the matched (or, for FP records, the unclaimed)
	// candidate's original index; nil when the truth item went unmatched.
	CandidateIndex       *int    `json:"index_of_finding_from_junior_auditor"`
	CandidateDescription *string `json:"finding_description_from_junior_auditor"`
}
