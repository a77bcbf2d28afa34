package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scabench-org/scabench/api/schemas"
)

func sampleReport(project string) *schemas.ScoreReport {
	idx := 0
	return &schemas.ScoreReport{
		Project:    project,
		RunID:      "run-123",
		Timestamp:  time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		JudgeModel: "gpt-5-mini",
		Metrics: schemas.Metrics{
			TotalExpected: 1,
			TotalFound:    1,
			TruePositives: 1,
			DetectionRate: 1.0,
			Precision:     1.0,
			F1Score:       1.0,
		},
		Records: []schemas.MatchRecord{
			{IsMatch: true, Explanation: "same bug", TruthSeverity: schemas.SeverityHigh, CandidateIndex: &idx},
		},
		Usage: schemas.JudgeUsage{Calls: 1, PromptTokens: 120, CompletionTokens: 40},
	}
}

func TestWriteReport_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteReport(dir, sampleReport("vault-protocol"))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "score_vault-protocol.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got schemas.ScoreReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "vault-protocol", got.Project)
	assert.Equal(t, "run-123", got.RunID)
	assert.Equal(t, 1, got.TruePositives)
	require.Len(t, got.Records, 1)
	assert.True(t, got.Records[0].IsMatch)
	assert.Equal(t, int64(120), got.Usage.PromptTokens)

	// The benchmark pipeline consumes these exact keys.
	assert.Contains(t, string(data), `"is_match"`)
	assert.Contains(t, string(data), `"severity_from_junior_auditor"`)
	assert.Contains(t, string(data), `"detection_rate"`)
}

func TestWriteReport_CreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "scores")

	path, err := WriteReport(dir, sampleReport("aave"))

	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriteReport_SanitizesProjectID(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteReport(dir, sampleReport("../weird name/v2"))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "score_.._weird_name_v2.json"), path)
	assert.FileExists(t, path)
}

func TestWriteReport_EmptyProjectFallback(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteReport(dir, sampleReport(""))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "score_project.json"), path)
}

func TestLoadScoreReport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleReport("vault-protocol")

	path, err := WriteReport(dir, want)
	require.NoError(t, err)

	got, err := LoadScoreReport(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadScoreReport_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score_x.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadScoreReport(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse score file")
}

func TestDiscoverScores(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteReport(dir, sampleReport("beta"))
	require.NoError(t, err)
	_, err = WriteReport(dir, sampleReport("alpha"))
	require.NoError(t, err)
	// Findings files sharing the directory must not be picked up.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "baseline_alpha.json"), []byte("[]"), 0o644))

	paths, err := DiscoverScores(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "score_alpha.json"), paths[0])
	assert.Equal(t, filepath.Join(dir, "score_beta.json"), paths[1])
}

func TestDiscoverScores_NoScoreFiles(t *testing.T) {
	_, err := DiscoverScores(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no score files found")
}
