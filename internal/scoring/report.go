package scoring

import (
	"github.com/scabench-org/scabench/api/schemas"
)

// buildRecords flattens the resolution into the per-finding audit records:
// one record per truth finding, then one per false positive.
func buildRecords(res *Resolution, byIndex map[int]schemas.CandidateFinding, falsePositives []schemas.CandidateFinding) []schemas.MatchRecord {
	records := make([]schemas.MatchRecord, 0, len(res.Assignments)+len(falsePositives))

	for _, a := range res.Assignments {
		rec := schemas.MatchRecord{
			IsMatch:        a.Outcome == schemas.OutcomeExactMatch,
			IsPartialMatch: a.Outcome == schemas.OutcomePartialMatch,
			Explanation:    a.Explanation,
			TruthSeverity:  a.Truth.Severity,
		}
		if a.CandidateIndex != nil {
			idx := *a.CandidateIndex
			rec.CandidateIndex = &idx
			if c, ok := byIndex[idx]; ok {
				rec.CandidateSeverity = c.Severity
				rec.CandidateDescription = describeCandidate(c)
			}
		}
		records = append(records, rec)
	}

	for _, c := range falsePositives {
		idx := c.Index
		records = append(records, schemas.MatchRecord{
			IsFP:                 true,
			Explanation:          "reported finding does not correspond to any benchmark vulnerability",
			CandidateSeverity:    c.Severity,
			CandidateIndex:       &idx,
			CandidateDescription: describeCandidate(c),
		})
	}

	return records
}

func describeCandidate(c schemas.CandidateFinding) *string {
	text := c.Description
	if text == "" {
		text = c.Title
	}
	return &text
}
