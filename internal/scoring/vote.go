package scoring

import (
	"fmt"
	"sort"

	"github.com/scabench-org/scabench/api/schemas"
)

// ConsensusVerdict is the majority-vote outcome for one truth finding.
type ConsensusVerdict struct {
	schemas.Verdict

	// Support is the number of votes backing the final outcome.
	Support int
	// Votes keeps every iteration's verdict for the audit trail.
	Votes []schemas.Verdict
	// PartialRanking lists the candidate indices named by partial votes, most
	// supported first with ties going to the lower index. The resolver walks
	// it when the primary candidate is already consumed.
	PartialRanking []int
}

// Aggregate resolves the N iteration verdicts for one truth finding into a
// single consensus. An outcome qualifies when at least ceil(N/2) votes back
// it; exact matches must additionally agree on the same candidate index.
// When several outcomes qualify the most conservative wins (no_match over
// partial over exact), and when none does the consensus is no_match.
func Aggregate(votes []schemas.Verdict) ConsensusVerdict {
	if len(votes) == 0 {
		return ConsensusVerdict{Verdict: schemas.Verdict{
			Outcome:     schemas.OutcomeNoMatch,
			Explanation: "no votes recorded",
		}}
	}
	majority := (len(votes) + 1) / 2

	exactByIndex := make(map[int]int)
	partialByIndex := make(map[int]int)
	partialCount, noMatchCount := 0, 0
	for _, v := range votes {
		switch v.Outcome {
		case schemas.OutcomeExactMatch:
			if v.CandidateIndex != nil {
				exactByIndex[*v.CandidateIndex]++
			}
		case schemas.OutcomePartialMatch:
			partialCount++
			if v.CandidateIndex != nil {
				partialByIndex[*v.CandidateIndex]++
			}
		case schemas.OutcomeNoMatch:
			noMatchCount++
		}
	}

	cv := ConsensusVerdict{
		Votes:          votes,
		PartialRanking: rankIndices(partialByIndex),
	}
	if len(votes) > 0 {
		cv.SeverityFromTruth = votes[0].SeverityFromTruth
	}

	exactIndex, exactSupport := topIndex(exactByIndex)
	partialIndex, _ := topIndex(partialByIndex)

	switch {
	case noMatchCount >= majority:
		cv.Outcome = schemas.OutcomeNoMatch
		cv.Support = noMatchCount
		cv.adoptBest(votes, func(v schemas.Verdict) bool { return v.Outcome == schemas.OutcomeNoMatch })

	case partialCount >= majority && partialIndex >= 0:
		cv.Outcome = schemas.OutcomePartialMatch
		cv.Support = partialCount
		cv.CandidateIndex = &partialIndex
		cv.adoptBest(votes, func(v schemas.Verdict) bool {
			return v.Outcome == schemas.OutcomePartialMatch && v.CandidateIndex != nil && *v.CandidateIndex == partialIndex
		})

	case exactSupport >= majority:
		cv.Outcome = schemas.OutcomeExactMatch
		cv.Support = exactSupport
		cv.CandidateIndex = &exactIndex
		cv.adoptBest(votes, func(v schemas.Verdict) bool {
			return v.Outcome == schemas.OutcomeExactMatch && v.CandidateIndex != nil && *v.CandidateIndex == exactIndex
		})

	default:
		cv.Outcome = schemas.OutcomeNoMatch
		cv.Support = noMatchCount
		cv.Explanation = fmt.Sprintf("no outcome reached a %d-vote majority across %d iterations", majority, len(votes))
	}

	return cv
}

// adoptBest copies confidence, explanation and candidate severity from the
// supporting votes: the explanation of the most confident one and the mean
// confidence over all of them.
func (cv *ConsensusVerdict) adoptBest(votes []schemas.Verdict, supports func(schemas.Verdict) bool) {
	var best *schemas.Verdict
	sum, n := 0.0, 0
	for i := range votes {
		if !supports(votes[i]) {
			continue
		}
		sum += votes[i].Confidence
		n++
		if best == nil || votes[i].Confidence > best.Confidence {
			best = &votes[i]
		}
	}
	if best == nil {
		return
	}
	cv.Confidence = sum / float64(n)
	cv.Explanation = best.Explanation
	cv.SeverityFromCandidate = best.SeverityFromCandidate
}

// topIndex returns the most supported index and its count; ties go to the
// lower index. Returns (-1, 0) for an empty map.
func topIndex(counts map[int]int) (int, int) {
	best, support := -1, 0
	for idx, c := range counts {
		if c > support || (c == support && idx < best) {
			best, support = idx, c
		}
	}
	return best, support
}

// rankIndices orders indices by descending support, then ascending index.
func rankIndices(counts map[int]int) []int {
	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool {
		if counts[indices[i]] != counts[indices[j]] {
			return counts[indices[i]] > counts[indices[j]]
		}
		return indices[i] < indices[j]
	})
	return indices
}
