package judge

import (
	"fmt"
	"strings"

	"github.com/scabench-org/scabench/api/schemas"
)

// systemPrompt keeps the judge in strict-matcher mode.
const systemPrompt = "You are a precise vulnerability matcher. Be strict."

// matchingRules is the strict policy shown to the judge on every call.
const matchingRules = `STRICT MATCHING RULES:
1. Must be the SAME vulnerability, not just a similar type
2. Must have the SAME location
3. Must have the SAME root cause
4. Must describe the SAME attack vector
5. Impact should be the same (slight variations allowed)`

// responseInstructions tells the judge the exact JSON shape to return.
const responseInstructions = `Answer with a JSON object only, no other text:
{
    "outcome": "exact_match" or "partial_match" or "no_match",
    "candidate_index": null or the [FINDING n] number of the matching finding,
    "confidence": 0.0-1.0,
    "explanation": "brief explanation"
}

Outcome rules:
- "exact_match" only when every rule above holds for one candidate
- "partial_match" when a candidate clearly describes the same underlying issue
  but differs in location detail, scope, or severity framing
- "no_match" otherwise

Confidence guide:
- 1.0 = Perfect match (same vulnerability, location, cause)
- 0.9 = Very strong match (minor wording differences)
- 0.8 = Strong match (same issue, slight variations)
- 0.7 = Good match (clearly the same vulnerability)
- 0.6 = Moderate match (likely same, some uncertainty)
- Below 0.5 = Poor match or different vulnerability

When in doubt, lean towards no_match.`

// BuildJudgePrompt renders the user prompt for one truth finding against a
// batch of candidates. Candidates are labeled with their original indices so
// the judge's candidate_index refers to the full findings list, not the
// batch position.
func BuildJudgePrompt(truth schemas.TruthVulnerability, candidates []schemas.CandidateFinding) string {
	var b strings.Builder

	b.WriteString("You are a security expert checking whether a specific vulnerability was detected.\n\n")
	b.WriteString("EXPECTED VULNERABILITY:\n")
	fmt.Fprintf(&b, "Title: %s\n", orNA(truth.Title))
	fmt.Fprintf(&b, "Description: %s\n", orNA(truth.Description))
	fmt.Fprintf(&b, "Severity: %s\n", orNA(string(truth.Severity)))
	fmt.Fprintf(&b, "Location: %s\n", orNA(truth.Location))

	b.WriteString("\nCANDIDATE FINDINGS:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "\n[FINDING %d]\n", c.Index)
		fmt.Fprintf(&b, "Title: %s\n", orNA(c.Title))
		fmt.Fprintf(&b, "Description: %s\n", orNA(c.Description))
		fmt.Fprintf(&b, "Severity: %s\n", orNA(string(c.Severity)))
		if c.File != "" {
			fmt.Fprintf(&b, "File: %s\n", c.File)
		} else if c.Location != "" {
			fmt.Fprintf(&b, "Location: %s\n", c.Location)
		}
	}

	b.WriteString("\n")
	b.WriteString(matchingRules)
	b.WriteString("\n\n")
	b.WriteString(responseInstructions)

	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
