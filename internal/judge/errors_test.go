package judge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransientErrorUnwraps(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := fmt.Errorf("judgment failed: %w", NewTransientError(base))

	var transient *TransientError
	require.ErrorAs(t, wrapped, &transient)
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "transient judge failure")
}

func TestMalformedOutputErrorPreservesRaw(t *testing.T) {
	err := NewMalformedOutputError("raw model text", errors.New("no JSON object found"))
	wrapped := fmt.Errorf("attempt failed: %w", err)

	var malformed *MalformedOutputError
	require.ErrorAs(t, wrapped, &malformed)
	assert.Equal(t, "raw model text", malformed.Raw)
	assert.Contains(t, err.Error(), "malformed judge output")
}
