package scoring

import (
	"strings"

	"github.com/scabench-org/scabench/api/schemas"
)

// CollectFalsePositives returns, in index order, every candidate that no
// truth finding consumed. Informational findings and findings whose
// severity appears in the excluded list never count as false positives.
func CollectFalsePositives(candidates []schemas.CandidateFinding, res *Resolution, excluded []string) []schemas.CandidateFinding {
	skip := map[string]struct{}{
		string(schemas.SeverityInformational): {},
	}
	for _, s := range excluded {
		skip[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	var out []schemas.CandidateFinding
	for _, c := range candidates {
		if _, consumed := res.ExactConsumed[c.Index]; consumed {
			continue
		}
		if _, consumed := res.PartialConsumed[c.Index]; consumed {
			continue
		}
		if _, excluded := skip[strings.ToLower(string(c.Severity))]; excluded {
			continue
		}
		out = append(out, c)
	}
	return out
}
