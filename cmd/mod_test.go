package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonOpts(t *testing.T) {
	assert.Empty(t, reasonOpts(""), "no audit log header without a reason")
	assert.Len(t, reasonOpts("spamming"), 1)
}

func TestParseTimeoutUntil(t *testing.T) {
	until, err := parseTimeoutUntil("2h")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(2*time.Hour), until, 5*time.Second)

	_, err = parseTimeoutUntil("-5m")
	assert.Error(t, err, "timeouts must end in the future")

	_, err = parseTimeoutUntil("800h")
	assert.Error(t, err, "timeouts are capped at 28 days")

	_, err = parseTimeoutUntil("complete gibberish !!")
	assert.Error(t, err)
}
