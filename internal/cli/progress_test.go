package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgress(&buf, 3, "Importing")
	Step(bar, 1)
	Step(bar, 2)
	require.NoError(t, bar.Finish())

	assert.True(t, bar.IsFinished())
	assert.Contains(t, buf.String(), "Importing")
	assert.Contains(t, buf.String(), "3/3")
}
