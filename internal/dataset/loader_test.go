package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scabench-org/scabench/api/schemas"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFindings_CanonicalObject(t *testing.T) {
	path := writeFixture(t, "results.json", `{
		"project": "vault-protocol",
		"findings": [
			{"title": "Reentrancy in withdraw", "description": "CEI violated", "severity": "high", "file": "Vault.sol"},
			{"title": "Missing zero check", "description": "constructor", "severity": "low", "location": "Vault.sol:12"}
		]
	}`)

	doc, err := LoadFindings(path)

	require.NoError(t, err)
	assert.Equal(t, "vault-protocol", doc.Project)
	require.Len(t, doc.Findings, 2)
	assert.Equal(t, 0, doc.Findings[0].Index)
	assert.Equal(t, 1, doc.Findings[1].Index)
	assert.Equal(t, "Reentrancy in withdraw", doc.Findings[0].Title)
	assert.Equal(t, schemas.Severity("high"), doc.Findings[0].Severity)
	assert.Equal(t, "Vault.sol", doc.Findings[0].File)
	assert.Equal(t, "Vault.sol:12", doc.Findings[1].Location)
}

func TestLoadFindings_AlternateKeys(t *testing.T) {
	t.Run("Results Key", func(t *testing.T) {
		path := writeFixture(t, "r.json", `{"results": [{"title": "A", "severity": "medium"}]}`)

		doc, err := LoadFindings(path)

		require.NoError(t, err)
		require.Len(t, doc.Findings, 1)
		assert.Equal(t, "A", doc.Findings[0].Title)
	})

	t.Run("Vulnerabilities Key", func(t *testing.T) {
		path := writeFixture(t, "v.json", `{"vulnerabilities": [{"title": "B", "severity": "low"}]}`)

		doc, err := LoadFindings(path)

		require.NoError(t, err)
		require.Len(t, doc.Findings, 1)
		assert.Equal(t, "B", doc.Findings[0].Title)
	})
}

func TestLoadFindings_BareArray(t *testing.T) {
	path := writeFixture(t, "bare.json", `[
		{"title": "A", "severity": "high"},
		{"title": "B", "severity": "low"}
	]`)

	doc, err := LoadFindings(path)

	require.NoError(t, err)
	assert.Empty(t, doc.Project)
	require.Len(t, doc.Findings, 2)
	assert.Equal(t, []int{0, 1}, []int{doc.Findings[0].Index, doc.Findings[1].Index})
}

// Indices are positional identity assigned at load; whatever the document
// claims is discarded.
func TestLoadFindings_IndexFieldIgnored(t *testing.T) {
	path := writeFixture(t, "idx.json", `{"findings": [
		{"index": 99, "title": "A", "severity": "high"},
		{"index": 7, "title": "B", "severity": "low"}
	]}`)

	doc, err := LoadFindings(path)

	require.NoError(t, err)
	assert.Equal(t, 0, doc.Findings[0].Index)
	assert.Equal(t, 1, doc.Findings[1].Index)
}

func TestLoadFindings_EmptyObject(t *testing.T) {
	path := writeFixture(t, "empty.json", `{}`)

	doc, err := LoadFindings(path)

	require.NoError(t, err)
	assert.Empty(t, doc.Findings)
}

func TestLoadFindings_Failures(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadFindings(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read findings file")
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		path := writeFixture(t, "bad.json", `{"findings": [`)
		_, err := LoadFindings(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse findings document")
	})

	t.Run("Unsupported Shape", func(t *testing.T) {
		path := writeFixture(t, "str.json", `"just a string"`)
		_, err := LoadFindings(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "neither a JSON object nor an array")
	})
}

func TestLoadBenchmark_ArrayWithMixedProjectKeys(t *testing.T) {
	path := writeFixture(t, "benchmark.json", `[
		{"project_id": "alpha", "vulnerabilities": [{"finding_id": "SB-001", "severity": "high", "title": "Reentrancy"}]},
		{"id": "beta", "vulnerabilities": []},
		{"name": "gamma", "vulnerabilities": [{"finding_id": "SB-002", "severity": "low", "title": "Rounding"}]}
	]`)

	docs, err := LoadBenchmark(path)

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "alpha", docs[0].ProjectID)
	assert.Equal(t, "beta", docs[1].ProjectID)
	assert.Equal(t, "gamma", docs[2].ProjectID)
	require.Len(t, docs[0].Vulnerabilities, 1)
	assert.Equal(t, "SB-001", docs[0].Vulnerabilities[0].FindingID)
}

func TestLoadBenchmark_SingleObject(t *testing.T) {
	path := writeFixture(t, "single.json", `{"project_id": "solo", "vulnerabilities": [{"finding_id": "SB-001", "severity": "high", "title": "Bug"}]}`)

	docs, err := LoadBenchmark(path)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "solo", docs[0].ProjectID)
}

func TestLoadBenchmark_PrefersProjectIDOverAliases(t *testing.T) {
	path := writeFixture(t, "pref.json", `{"project_id": "canonical", "id": "alias", "name": "other", "vulnerabilities": []}`)

	docs, err := LoadBenchmark(path)

	require.NoError(t, err)
	assert.Equal(t, "canonical", docs[0].ProjectID)
}

func TestFindProject(t *testing.T) {
	docs := []schemas.BenchmarkDocument{
		{ProjectID: "alpha"},
		{ProjectID: "beta"},
	}

	doc, ok := FindProject(docs, "beta")
	require.True(t, ok)
	assert.Equal(t, "beta", doc.ProjectID)

	_, ok = FindProject(docs, "missing")
	assert.False(t, ok)
}

func TestDiscoverResults(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"baseline_foo.json", "findings_bar.json", "plain.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.json"), 0755))

	files, err := DiscoverResults(dir)

	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "foo", files[0].ProjectID)
	assert.Equal(t, "bar", files[1].ProjectID)
	assert.Equal(t, "plain", files[2].ProjectID)
}

func TestDiscoverResults_NoFiles(t *testing.T) {
	_, err := DiscoverResults(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result files found")
}

func TestProjectIDFromFilename(t *testing.T) {
	cases := map[string]string{
		"/tmp/baseline_uniswap-v4.json": "uniswap-v4",
		"/tmp/findings_aave.json":       "aave",
		"results/morpho.json":           "morpho",
		"baseline_.json":                "",
	}
	for path, want := range cases {
		assert.Equal(t, want, ProjectIDFromFilename(path), "path %s", path)
	}
}
