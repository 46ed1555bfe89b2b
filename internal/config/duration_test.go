package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration_Units(t *testing.T) {
	cases := map[string]int64{
		"0s":  0,
		"30s": 30000,
		"5m":  300000,
		"1h":  3600000,
		"7d":  604800000,
		"2w":  1209600000,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseDuration_Rejects(t *testing.T) {
	for _, input := range []string{"", "5", "m", "-5s", "5 s", "5.5m", "5M", "5y", " 5s"} {
		_, err := ParseDuration(input)
		assert.Error(t, err, input)
	}
}

func TestIsValidDuration(t *testing.T) {
	assert.True(t, IsValidDuration("30s"))
	assert.False(t, IsValidDuration("30"))
}
