package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberList(t *testing.T) {
	values, err := parseNumberList("1 2.5, -3")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, -3}, values)

	_, err = parseNumberList("")
	assert.Error(t, err)

	_, err = parseNumberList("1 two 3")
	assert.Error(t, err)
}

func TestSumNumbers(t *testing.T) {
	assert.Equal(t, 0.0, sumNumbers(nil))
	assert.Equal(t, 6.0, sumNumbers([]float64{1, 2, 3}))
	assert.Equal(t, -0.5, sumNumbers([]float64{1, -1.5}))
}

func TestRoundDigits(t *testing.T) {
	assert.Equal(t, 3.0, roundDigits(3.14159, 0))
	assert.Equal(t, 3.14, roundDigits(3.14159, 2))
	assert.Equal(t, 3.142, roundDigits(3.14159, 3))
	assert.Equal(t, -2.0, roundDigits(-1.5, 0), "rounds half away from zero")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", formatNumber(3.0))
	assert.Equal(t, "3.14", formatNumber(3.14))
	assert.Equal(t, "-12", formatNumber(-12.0))
}
