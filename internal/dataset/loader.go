// Package dataset loads and writes the JSON documents exchanged with the
// benchmark pipeline: candidate findings files, the ground-truth benchmark,
// and per-project score reports.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/scabench-org/scabench/api/schemas"
)

// findingsEnvelope covers the object shapes seen in the wild. Exactly one of
// the list keys is expected to be populated.
type findingsEnvelope struct {
	Project         string                     `json:"project"`
	Findings        []schemas.CandidateFinding `json:"findings"`
	Results         []schemas.CandidateFinding `json:"results"`
	Vulnerabilities []schemas.CandidateFinding `json:"vulnerabilities"`
}

// benchmarkEntry tolerates the three project-key spellings used across
// benchmark revisions.
type benchmarkEntry struct {
	ProjectID       string                       `json:"project_id"`
	ID              string                       `json:"id"`
	Name            string                       `json:"name"`
	Vulnerabilities []schemas.TruthVulnerability `json:"vulnerabilities"`
}

func (e benchmarkEntry) key() string {
	switch {
	case e.ProjectID != "":
		return e.ProjectID
	case e.ID != "":
		return e.ID
	default:
		return e.Name
	}
}

// LoadFindings reads one candidate-findings document. Accepted shapes: an
// object carrying the list under "findings", "results" or "vulnerabilities",
// or a bare array of findings. Indices are assigned positionally at load;
// any index field present in the document is ignored.
func LoadFindings(path string) (*schemas.FindingsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read findings file: %w", err)
	}

	doc := &schemas.FindingsDocument{}
	switch firstToken(data) {
	case '[':
		if err := json.Unmarshal(data, &doc.Findings); err != nil {
			return nil, fmt.Errorf("failed to parse findings array in %s: %w", path, err)
		}
	case '{':
		var envelope findingsEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse findings document %s: %w", path, err)
		}
		doc.Project = envelope.Project
		switch {
		case envelope.Findings != nil:
			doc.Findings = envelope.Findings
		case envelope.Results != nil:
			doc.Findings = envelope.Results
		default:
			doc.Findings = envelope.Vulnerabilities
		}
	default:
		return nil, fmt.Errorf("findings document %s is neither a JSON object nor an array", path)
	}

	for i := range doc.Findings {
		doc.Findings[i].Index = i
	}
	return doc, nil
}

// LoadBenchmark reads the ground-truth benchmark: either an array of project
// entries or a single project object.
func LoadBenchmark(path string) ([]schemas.BenchmarkDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark file: %w", err)
	}

	var entries []benchmarkEntry
	switch firstToken(data) {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse benchmark array in %s: %w", path, err)
		}
	case '{':
		var entry benchmarkEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse benchmark document %s: %w", path, err)
		}
		entries = []benchmarkEntry{entry}
	default:
		return nil, fmt.Errorf("benchmark document %s is neither a JSON object nor an array", path)
	}

	docs := make([]schemas.BenchmarkDocument, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, schemas.BenchmarkDocument{
			ProjectID:       e.key(),
			Vulnerabilities: e.Vulnerabilities,
		})
	}
	return docs, nil
}

// FindProject returns the benchmark entry for projectID, if any.
func FindProject(docs []schemas.BenchmarkDocument, projectID string) (*schemas.BenchmarkDocument, bool) {
	for i := range docs {
		if docs[i].ProjectID == projectID {
			return &docs[i], true
		}
	}
	return nil, false
}

// ResultFile is one discovered findings document plus the project it is for.
type ResultFile struct {
	Path      string
	ProjectID string
}

// DiscoverResults lists the .json files in dir, in filename order. The
// project is derived from the filename stem with the generator prefixes
// stripped, so baseline_foo.json and findings_foo.json both map to foo.
func DiscoverResults(dir string) ([]ResultFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var files []ResultFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		files = append(files, ResultFile{
			Path:      path,
			ProjectID: ProjectIDFromFilename(path),
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no result files found in %s", dir)
	}
	return files, nil
}

// ProjectIDFromFilename maps a findings filename onto its project ID.
func ProjectIDFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, prefix := range []string{"baseline_", "findings_"} {
		if strings.HasPrefix(stem, prefix) {
			return strings.TrimPrefix(stem, prefix)
		}
	}
	return stem
}

// DiscoverScores lists the score reports previously written into dir by
// WriteReport, in filename order.
func DiscoverScores(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "score_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no score files found in %s", dir)
	}
	return paths, nil
}

// LoadScoreReport reads back a single score report document.
func LoadScoreReport(path string) (*schemas.ScoreReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read score file: %w", err)
	}

	report := &schemas.ScoreReport{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("failed to parse score file %s: %w", path, err)
	}
	return report, nil
}

// firstToken returns the first non-whitespace byte of a JSON document.
func firstToken(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}
