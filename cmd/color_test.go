package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorHex(t *testing.T) {
	value, ok := parseColor("#FF8800")
	require.True(t, ok)
	assert.Equal(t, 0xff8800, value)

	value, ok = parseColor("00ff00")
	require.True(t, ok)
	assert.Equal(t, 0x00ff00, value)
}

func TestParseColorName(t *testing.T) {
	value, ok := parseColor("Crimson")
	require.True(t, ok)
	assert.Equal(t, 0xdc143c, value)

	value, ok = parseColor(" royal blue ")
	require.True(t, ok)
	assert.Equal(t, 0x4169e1, value)

	value, ok = parseColor("salmon")
	require.True(t, ok)
	assert.Equal(t, 0xfa8072, value)
}

func TestParseColorRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "#ff88", "zzzzzz", "not a color", "#1234567"} {
		_, ok := parseColor(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestChannelMath(t *testing.T) {
	assert.Equal(t, 0x00ffff, invertColor(0xff0000))
	assert.Equal(t, 0x000000, invertColor(0xffffff))

	// lighten moves toward white, darken toward black
	assert.Greater(t, lightenColor(0x808080, 0.1), 0x808080)
	assert.Less(t, darkenColor(0x808080, 0.1), 0x808080)

	// both are stable at the extremes
	assert.Equal(t, 0xffffff, lightenColor(0xffffff, 0.5))
	assert.Equal(t, 0x000000, darkenColor(0x000000, 0.5))
}

func TestRandomColorSeeded(t *testing.T) {
	a := randomColor("fizz")
	b := randomColor("fizz")
	assert.Equal(t, a, b, "same seed gives the same color")

	assert.NotZero(t, a)
	assert.LessOrEqual(t, a, 0xFFFFFF)
}

func TestFormatHex(t *testing.T) {
	assert.Equal(t, "#FF8800", formatHex(0xff8800))
	assert.Equal(t, "#000001", formatHex(1))
}
