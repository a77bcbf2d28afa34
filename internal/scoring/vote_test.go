package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scabench-org/scabench/api/schemas"
)

func TestAggregate_UnanimousExact(t *testing.T) {
	votes := []schemas.Verdict{
		*exactVerdict(2, 0.90),
		*exactVerdict(2, 0.80),
		*exactVerdict(2, 0.95),
	}
	votes[2].Explanation = "identical root cause and sink"

	cv := Aggregate(votes)

	assert.Equal(t, schemas.OutcomeExactMatch, cv.Outcome)
	assert.Equal(t, 3, cv.Support)
	require.NotNil(t, cv.CandidateIndex)
	assert.Equal(t, 2, *cv.CandidateIndex)
	assert.InDelta(t, (0.90+0.80+0.95)/3, cv.Confidence, 1e-9)
	// The most confident supporting vote contributes the explanation.
	assert.Equal(t, "identical root cause and sink", cv.Explanation)
}

// Three iterations split three ways: one exact, one no_match, one partial.
// No outcome reaches the two-vote majority, so the consensus falls back to
// no_match rather than promoting the single exact vote.
func TestAggregate_SplitWithoutMajorityFallsBackToNoMatch(t *testing.T) {
	votes := []schemas.Verdict{
		*exactVerdict(2, 0.90),
		*noMatchVerdict(),
		*partialVerdict(2, 0.60),
	}

	cv := Aggregate(votes)

	assert.Equal(t, schemas.OutcomeNoMatch, cv.Outcome)
	assert.Nil(t, cv.CandidateIndex)
	assert.Equal(t, "no outcome reached a 2-vote majority across 3 iterations", cv.Explanation)
}

func TestAggregate_ExactMajorityRequiresSameIndex(t *testing.T) {
	t.Run("Same Index Qualifies", func(t *testing.T) {
		votes := []schemas.Verdict{
			*exactVerdict(2, 0.90),
			*exactVerdict(2, 0.85),
			*partialVerdict(5, 0.50),
		}

		cv := Aggregate(votes)

		assert.Equal(t, schemas.OutcomeExactMatch, cv.Outcome)
		assert.Equal(t, 2, cv.Support)
		require.NotNil(t, cv.CandidateIndex)
		assert.Equal(t, 2, *cv.CandidateIndex)
	})

	t.Run("Split Indices Do Not Qualify", func(t *testing.T) {
		votes := []schemas.Verdict{
			*exactVerdict(1, 0.90),
			*exactVerdict(2, 0.90),
			*noMatchVerdict(),
		}

		cv := Aggregate(votes)

		assert.Equal(t, schemas.OutcomeNoMatch, cv.Outcome)
		assert.Nil(t, cv.CandidateIndex)
	})
}

func TestAggregate_PartialMajorityPicksMostFrequentIndex(t *testing.T) {
	votes := []schemas.Verdict{
		*partialVerdict(7, 0.60),
		*partialVerdict(3, 0.50),
		*partialVerdict(3, 0.70),
	}

	cv := Aggregate(votes)

	assert.Equal(t, schemas.OutcomePartialMatch, cv.Outcome)
	assert.Equal(t, 3, cv.Support)
	require.NotNil(t, cv.CandidateIndex)
	assert.Equal(t, 3, *cv.CandidateIndex)
	// Mean confidence over the votes naming index 3 only.
	assert.InDelta(t, 0.60, cv.Confidence, 1e-9)
	assert.Equal(t, []int{3, 7}, cv.PartialRanking)
}

func TestAggregate_PartialIndexTieGoesToLowerIndex(t *testing.T) {
	votes := []schemas.Verdict{
		*partialVerdict(9, 0.80),
		*partialVerdict(4, 0.40),
		*noMatchVerdict(),
	}

	cv := Aggregate(votes)

	assert.Equal(t, schemas.OutcomePartialMatch, cv.Outcome)
	require.NotNil(t, cv.CandidateIndex)
	assert.Equal(t, 4, *cv.CandidateIndex)
	assert.Equal(t, []int{4, 9}, cv.PartialRanking)
}

// When several outcomes qualify at the same time the most conservative one
// wins: no_match beats both match tiers, partial beats exact.
func TestAggregate_TiesResolveConservatively(t *testing.T) {
	t.Run("No Match Beats Exact", func(t *testing.T) {
		votes := []schemas.Verdict{
			*exactVerdict(2, 0.90),
			*exactVerdict(2, 0.90),
			*noMatchVerdict(),
			*noMatchVerdict(),
		}

		cv := Aggregate(votes)

		assert.Equal(t, schemas.OutcomeNoMatch, cv.Outcome)
		assert.Equal(t, 2, cv.Support)
		assert.Nil(t, cv.CandidateIndex)
		assert.Equal(t, "no candidate matched", cv.Explanation)
	})

	t.Run("Partial Beats Exact", func(t *testing.T) {
		votes := []schemas.Verdict{
			*exactVerdict(2, 0.90),
			*exactVerdict(2, 0.90),
			*partialVerdict(5, 0.60),
			*partialVerdict(5, 0.80),
		}

		cv := Aggregate(votes)

		assert.Equal(t, schemas.OutcomePartialMatch, cv.Outcome)
		require.NotNil(t, cv.CandidateIndex)
		assert.Equal(t, 5, *cv.CandidateIndex)
		assert.InDelta(t, 0.70, cv.Confidence, 1e-9)
	})
}

func TestAggregate_FiveVoteMajority(t *testing.T) {
	votes := []schemas.Verdict{
		*exactVerdict(1, 0.90),
		*noMatchVerdict(),
		*exactVerdict(1, 0.70),
		*noMatchVerdict(),
		*exactVerdict(1, 0.80),
	}

	cv := Aggregate(votes)

	assert.Equal(t, schemas.OutcomeExactMatch, cv.Outcome)
	assert.Equal(t, 3, cv.Support)
	require.NotNil(t, cv.CandidateIndex)
	assert.Equal(t, 1, *cv.CandidateIndex)
	assert.InDelta(t, 0.80, cv.Confidence, 1e-9)
}

func TestAggregate_SeverityPropagation(t *testing.T) {
	winner := exactVerdict(2, 0.90)
	winner.SeverityFromTruth = schemas.SeverityHigh
	winner.SeverityFromCandidate = schemas.SeverityCritical
	loser := exactVerdict(2, 0.60)
	loser.SeverityFromTruth = schemas.SeverityHigh
	loser.SeverityFromCandidate = schemas.SeverityCritical

	cv := Aggregate([]schemas.Verdict{*winner, *loser})

	assert.Equal(t, schemas.SeverityHigh, cv.SeverityFromTruth)
	assert.Equal(t, schemas.SeverityCritical, cv.SeverityFromCandidate)
}

func TestAggregate_NoVotes(t *testing.T) {
	cv := Aggregate(nil)

	assert.Equal(t, schemas.OutcomeNoMatch, cv.Outcome)
	assert.Equal(t, "no votes recorded", cv.Explanation)
	assert.Nil(t, cv.CandidateIndex)
}

func TestAggregate_KeepsVotesForAudit(t *testing.T) {
	votes := []schemas.Verdict{*exactVerdict(2, 0.90), *noMatchVerdict()}

	cv := Aggregate(votes)

	require.Len(t, cv.Votes, 2)
	assert.Equal(t, schemas.OutcomeExactMatch, cv.Votes[0].Outcome)
	assert.Equal(t, schemas.OutcomeNoMatch, cv.Votes[1].Outcome)
}

func TestRankIndices(t *testing.T) {
	counts := map[int]int{8: 1, 3: 2, 11: 2, 5: 1}

	assert.Equal(t, []int{3, 11, 5, 8}, rankIndices(counts))
	assert.Empty(t, rankIndices(nil))
}
