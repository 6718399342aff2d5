package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShorthand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10", "10"},
		{"5.5", "5.5"},
		{"100k", "100000"},
		{"1.5m", "1500000"},
		{"2b", "2000000000"},
		{"100K", "100000"},
		{"  42  ", "42"},
	}

	for _, tt := range tests {
		got, err := ParseShorthand(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		want, _ := decimal.NewFromString(tt.want)
		assert.True(t, got.Equal(want), "input %q: got %s, want %s", tt.input, got, want)
	}
}

func TestParseShorthandInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-5", "0", "-1k", "0k", "1kk", "k"} {
		_, err := ParseShorthand(input)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", input)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"3d", 72 * time.Hour},
		{"1M", 1 * time.Minute},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, input := range []string{"", "10", "h", "2w", "1.5h", "-2h", "0m", "2 h"} {
		_, err := ParseDuration(input)
		assert.ErrorIs(t, err, ErrInvalidDuration, "input %q", input)
	}
}

func TestPluralizePounds(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "фунт"}, {21, "фунт"}, {101, "фунт"},
		{2, "фунта"}, {3, "фунта"}, {4, "фунта"}, {22, "фунта"},
		{0, "фунтов"}, {5, "фунтов"}, {11, "фунтов"}, {12, "фунтов"},
		{14, "фунтов"}, {100, "фунтов"}, {111, "фунтов"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizePounds(tt.n), "n=%d", tt.n)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1 000", FormatNumber(1000))
	assert.Equal(t, "150 000", FormatNumber(150000))
	assert.Equal(t, "5 000 000", FormatNumber(5000000))
	assert.Equal(t, "-1 234", FormatNumber(-1234))
}

func TestNextUTCMidnight(t *testing.T) {
	at := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), NextUTCMidnight(at))
}
