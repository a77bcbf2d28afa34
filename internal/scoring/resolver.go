package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
)

// TruthVerdict pairs a truth finding with its consensus verdict, in
// benchmark order.
type TruthVerdict struct {
	Truth   schemas.TruthVulnerability
	Verdict ConsensusVerdict
}

// Assignment is the final, conflict-free outcome for one truth finding.
type Assignment struct {
	Truth          schemas.TruthVulnerability
	Consensus      ConsensusVerdict
	Outcome        schemas.VerdictOutcome
	CandidateIndex *int
	Explanation    string
}

// Resolution holds the assignments plus the candidate indices consumed by
// exact and partial matches. The two sets are tracked independently.
type Resolution struct {
	Assignments     []Assignment
	ExactConsumed   map[int]struct{}
	PartialConsumed map[int]struct{}
}

// Resolve walks the consensus verdicts in benchmark order and enforces that
// no candidate is claimed twice within the same match tier. An exact claim
// on an already-consumed candidate downgrades to no_match; a partial claim
// falls back to the next-best candidate from the vote distribution and only
// downgrades when every ranked candidate is taken.
func Resolve(items []TruthVerdict, logger *zap.Logger) *Resolution {
	res := &Resolution{
		Assignments:     make([]Assignment, 0, len(items)),
		ExactConsumed:   make(map[int]struct{}),
		PartialConsumed: make(map[int]struct{}),
	}

	for _, item := range items {
		a := Assignment{
			Truth:       item.Truth,
			Consensus:   item.Verdict,
			Outcome:     item.Verdict.Outcome,
			Explanation: item.Verdict.Explanation,
		}

		switch item.Verdict.Outcome {
		case schemas.OutcomeExactMatch:
			idx := *item.Verdict.CandidateIndex
			if _, taken := res.ExactConsumed[idx]; taken {
				a.Outcome = schemas.OutcomeNoMatch
				a.CandidateIndex = nil
				a.Explanation = fmt.Sprintf("candidate %d already claimed as an exact match by an earlier truth item; %s", idx, item.Verdict.Explanation)
				logger.Warn("Exact match conflict, downgrading to no_match",
					zap.String("finding_id", item.Truth.FindingID),
					zap.Int("candidate_index", idx))
				break
			}
			res.ExactConsumed[idx] = struct{}{}
			a.CandidateIndex = &idx

		case schemas.OutcomePartialMatch:
			assigned := false
			for _, idx := range item.Verdict.PartialRanking {
				if _, taken := res.PartialConsumed[idx]; taken {
					continue
				}
				res.PartialConsumed[idx] = struct{}{}
				ranked := idx
				a.CandidateIndex = &ranked
				if item.Verdict.CandidateIndex != nil && ranked != *item.Verdict.CandidateIndex {
					a.Explanation = fmt.Sprintf("candidate %d already consumed; reassigned partial match to next-best candidate %d; %s",
						*item.Verdict.CandidateIndex, ranked, item.Verdict.Explanation)
					logger.Debug("Partial match reassigned",
						zap.String("finding_id", item.Truth.FindingID),
						zap.Int("candidate_index", ranked))
				}
				assigned = true
				break
			}
			if !assigned {
				a.Outcome = schemas.OutcomeNoMatch
				a.CandidateIndex = nil
				a.Explanation = fmt.Sprintf("all partially matching candidates already consumed; %s", item.Verdict.Explanation)
				logger.Warn("Partial match conflict, downgrading to no_match",
					zap.String("finding_id", item.Truth.FindingID))
			}

		default:
			if a.Explanation == "" {
				a.Explanation = "no matching candidate found"
			}
		}

		res.Assignments = append(res.Assignments, a)
	}

	return res
}
