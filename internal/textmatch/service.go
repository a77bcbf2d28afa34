package textmatch

import (
	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
)

// Service scores lexical similarity between truth findings and candidate
// findings. It is a cheap, deterministic complement to the LLM judge: the
// engine uses it for diagnostics and the offline judge provider is built
// entirely on it. Its scores never override a judge verdict.
type Service struct {
	logger *zap.Logger
	rules  Rules
}

// NewService creates a lexical scoring service with the given rules.
func NewService(logger *zap.Logger, rules Rules) *Service {
	return &Service{
		logger: logger.Named("textmatch"),
		rules:  rules,
	}
}

// Similarity computes the Jaccard similarity of the two texts' word sets,
// boosted when both sides mention a shared vulnerability keyword. The result
// is clamped to [0, 1].
func (s *Service) Similarity(a, b string) float64 {
	wordsA := Tokenize(a)
	wordsB := Tokenize(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	sharedKeyword := false
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
			if _, kw := s.rules.Keywords[w]; kw {
				sharedKeyword = true
			}
		}
	}

	union := len(wordsA) + len(wordsB) - intersection
	jaccard := 0.0
	if union > 0 {
		jaccard = float64(intersection) / float64(union)
	}

	score := jaccard
	if sharedKeyword {
		score += s.rules.KeywordBoost
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Score blends title and description similarity between a truth finding and
// a candidate, weighting the title more heavily.
func (s *Service) Score(truth schemas.TruthVulnerability, candidate schemas.CandidateFinding) float64 {
	titleSim := s.Similarity(truth.Title, candidate.Title)
	descSim := s.Similarity(truth.Description, candidate.Description)
	return s.rules.TitleWeight*titleSim + s.rules.DescriptionWeight*descSim
}

// SeverityCompatible reports whether two severities are close enough for a
// lexical match. Informational findings never match anything; critical and
// high are treated as interchangeable.
func SeverityCompatible(a, b schemas.Severity) bool {
	if a == schemas.SeverityInformational || b == schemas.SeverityInformational {
		return false
	}
	if a == b {
		return true
	}
	highOrCritical := func(s schemas.Severity) bool {
		return s == schemas.SeverityHigh || s == schemas.SeverityCritical
	}
	return highOrCritical(a) && highOrCritical(b)
}

// BestCandidate returns the position in candidates of the highest-scoring
// severity-compatible candidate, together with its score. ok is false when no
// candidate clears the minimum score.
func (s *Service) BestCandidate(truth schemas.TruthVulnerability, candidates []schemas.CandidateFinding) (best int, score float64, ok bool) {
	best = -1
	for i, candidate := range candidates {
		if !SeverityCompatible(truth.Severity, candidate.Severity) {
			continue
		}
		cs := s.Score(truth, candidate)
		if cs > score && cs > s.rules.MinScore {
			best = i
			score = cs
		}
	}
	if best < 0 {
		return -1, 0.0, false
	}

	s.logger.Debug("Lexical pre-screen selected a candidate",
		zap.String("truth_title", truth.Title),
		zap.Int("candidate_index", candidates[best].Index),
		zap.Float64("score", score),
	)
	return best, score, true
}
