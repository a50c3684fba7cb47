package hashkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDeterministic(t *testing.T) {
	a, err := Compute("cell_001", "2025-01-15T10:30:00.000Z")
	require.NoError(t, err)
	b, err := Compute("cell_001", "2025-01-15T10:30:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DigestLen)
	assert.True(t, Valid(a))
}

func TestComputeDistinctInputs(t *testing.T) {
	base, err := Compute("cell_001", "2025-01-15T10:30:00.000Z")
	require.NoError(t, err)

	otherCell, err := Compute("cell_002", "2025-01-15T10:30:00.000Z")
	require.NoError(t, err)
	otherTime, err := Compute("cell_001", "2025-01-15T10:30:01.000Z")
	require.NoError(t, err)

	assert.NotEqual(t, base, otherCell)
	assert.NotEqual(t, base, otherTime)
	assert.NotEqual(t, otherCell, otherTime)
}

func TestComputeNoConcatenationAmbiguity(t *testing.T) {
	// "ab"+"c" and "a"+"bc" concatenate identically without a separator.
	x, err := Compute("ab", "c")
	require.NoError(t, err)
	y, err := Compute("a", "bc")
	require.NoError(t, err)
	assert.NotEqual(t, x, y)
}

func TestComputeRejectsBadInput(t *testing.T) {
	_, err := Compute("", "2025-01-15T10:30:00.000Z")
	assert.Error(t, err)
	_, err = Compute("cell_001", "")
	assert.Error(t, err)
	_, err = Compute("cell\x00001", "2025-01-15T10:30:00.000Z")
	assert.Error(t, err)
}

func TestValidShape(t *testing.T) {
	d, err := Compute("cell_001", "T")
	require.NoError(t, err)
	assert.True(t, Valid(d))

	assert.False(t, Valid(""))
	assert.False(t, Valid(d[:32]))
	assert.False(t, Valid(d[:63]+"Z"))
	assert.False(t, Valid(d+"00"))
}

func TestPrefix(t *testing.T) {
	d, err := Compute("cell_001", "T")
	require.NoError(t, err)
	assert.Equal(t, d[:8], Prefix(d))
	assert.Equal(t, "abc", Prefix("abc"))
}
