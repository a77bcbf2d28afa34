package judge

import (
	"sync/atomic"

	"github.com/scabench-org/scabench/api/schemas"
)

// UsageRecorder accumulates judge API usage across a scoring run. All methods
// are safe for concurrent use.
type UsageRecorder struct {
	calls              atomic.Int64
	retries            atomic.Int64
	transientFailures  atomic.Int64
	malformedResponses atomic.Int64
	promptTokens       atomic.Int64
	completionTokens   atomic.Int64
}

// NewUsageRecorder returns an empty recorder.
func NewUsageRecorder() *UsageRecorder {
	return &UsageRecorder{}
}

// RecordCall counts one judge invocation and its token usage.
func (u *UsageRecorder) RecordCall(promptTokens, completionTokens int) {
	u.calls.Add(1)
	u.promptTokens.Add(int64(promptTokens))
	u.completionTokens.Add(int64(completionTokens))
}

// RecordRetry counts one additional transport attempt beyond the first.
func (u *UsageRecorder) RecordRetry() {
	u.retries.Add(1)
}

// RecordTransientFailure counts a judge call that failed even after retries.
func (u *UsageRecorder) RecordTransientFailure() {
	u.transientFailures.Add(1)
}

// RecordMalformedResponse counts a response that could not be parsed into a
// verdict.
func (u *UsageRecorder) RecordMalformedResponse() {
	u.malformedResponses.Add(1)
}

// Snapshot captures the current counters for inclusion in a report.
func (u *UsageRecorder) Snapshot() schemas.JudgeUsage {
	return schemas.JudgeUsage{
		Calls:              u.calls.Load(),
		Retries:            u.retries.Load(),
		TransientFailures:  u.transientFailures.Load(),
		MalformedResponses: u.malformedResponses.Load(),
		PromptTokens:       u.promptTokens.Load(),
		CompletionTokens:   u.completionTokens.Load(),
	}
}
