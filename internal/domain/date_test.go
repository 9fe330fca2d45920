package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneDayBefore(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		expected string
	}{
		{"mid month", "2020-03-15", "2020-03-14"},
		{"leap year month rollover", "2020-03-01", "2020-02-29"},
		{"non-leap month rollover", "2019-03-01", "2019-02-28"},
		{"year rollover", "2020-01-01", "2019-12-31"},
		{"thirty day month", "2020-05-01", "2020-04-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OneDayBefore(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOneDayBefore_Invalid(t *testing.T) {
	_, err := OneDayBefore("2020.03.01")
	require.Error(t, err)

	_, err = OneDayBefore("")
	require.Error(t, err)
}

func TestSliceName(t *testing.T) {
	assert.Equal(t, "2020.03.01.json", SliceName("2020-03-01"))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2020-03-15", "2020-03-15"},
		{"2020.03.15", "2020-03-15"},
		{"07.04.2020", "2020-04-07"},
		{"20/6/2019", "2019-06-20"},
		{"2003.3.19", "2003-03-19"},
		{"7.4.2020", "2020-04-07"},
		{" 2020-03-15 ", "2020-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2020-13-01", "2020-02-30", "20-3-15", "2020-03"} {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizeDate(input)
			assert.Error(t, err)
		})
	}
}
