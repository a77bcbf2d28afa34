package schemas

import "strings"

// -- Finding Schemas --

// Severity represents the severity level of a security finding, ranging from
// critical to informational. The values are lowercase to align with the JSON
// documents exchanged with the benchmark tooling.
type Severity string

// Constants defining the canonical severity levels.
const (
	SeverityCritical      Severity = "critical"      // Represents a critical vulnerability.
	SeverityHigh          Severity = "high"          // Represents a high-severity vulnerability.
	SeverityMedium        Severity = "medium"        // Represents a medium-severity vulnerability.
	SeverityLow           Severity = "low"           // Represents a low-severity vulnerability.
	SeverityInformational Severity = "informational" // Represents an informational finding.
)

// severityAliases maps the spellings seen in real report documents onto the
// canonical enum. Lookup keys are lowercase.
var severityAliases = map[string]Severity{
	"critical":      SeverityCritical,
	"high":          SeverityHigh,
	"medium":        SeverityMedium,
	"moderate":      SeverityMedium,
	"low":           SeverityLow,
	"informational": SeverityInformational,
	"info":          SeverityInformational,
	"note":          SeverityInformational,
}

// severityRank orders severities for sorting and breakdown reporting,
// highest first.
var severityRank = map[Severity]int{
	SeverityCritical:      4,
	SeverityHigh:          3,
	SeverityMedium:        2,
	SeverityLow:           1,
	SeverityInformational: 0,
}

// ParseSeverity canonicalizes a raw severity string (case-folded, trimmed)
// into the five-level enum. The second return value is false when the value
// is not recognized.
func ParseSeverity(raw string) (Severity, bool) {
	s, ok := severityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// Rank returns the ordering weight of the severity; higher means more severe.
// Unknown severities rank below informational.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// SeverityLevels lists the canonical severities from most to least severe.
// The slice is fresh on every call so callers may reorder it freely.
func SeverityLevels() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInformational,
	}
}

// CandidateFinding is one issue reported by the analysis agent under
// evaluation. Index is the finding's position in the original report document
// and is its stable identity throughout a scoring run; the engine never
// mutates a candidate, it only references it by index.
type CandidateFinding struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence,omitempty"`
	Location    string   `json:"location,omitempty"`
	File        string   `json:"file,omitempty"`
}

// DedupKey returns the canonical identity used to collapse duplicate
// candidates: file (or location when no file is given), title and severity,
// all case-folded.
func (f CandidateFinding) DedupKey() string {
	loc := f.File
	if loc == "" {
		loc = f.Location
	}
	parts := []string{loc, f.Title, string(f.Severity)}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ":")
}

// TruthVulnerability is one ground-truth issue from the curated benchmark
// for a project. Immutable input to the scoring engine.
type TruthVulnerability struct {
	FindingID   string   `json:"finding_id"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
}
