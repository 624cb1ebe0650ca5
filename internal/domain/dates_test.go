package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"dotted date", "16.04.2025", "2025-04-16"},
		{"dotted date with time", "16.04.2025 08:54", "2025-04-16"},
		{"single digit day and month", "1.2.2024", "2024-02-01"},
		{"iso passes through", "2025-04-16", "2025-04-16"},
		{"iso with time keeps date part", "2025-04-16 10:00", "2025-04-16"},
		{"surrounding whitespace", "  16.04.2025 ", "2025-04-16"},
		{"unknown format passes through", "2025/04/16", "2025/04/16"},
		{"leap day", "29.02.2024", "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatDate_Invalid(t *testing.T) {
	inputs := []string{
		"32.01.2025",
		"29.02.2023",
		"16.13.2025",
		"aa.04.2025",
		"16.04.25",
		"16..2025",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := FormatDate(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestIsWinterBreak(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected bool
	}{
		{time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.September, 14, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.December, 24, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format(DateLayout), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsWinterBreak(tt.date))
		})
	}
}
