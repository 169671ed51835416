package timeres

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetFromUserTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"negative offset", "2026-01-12T17:00:00-05:00", "-05:00"},
		{"positive offset", "2026-06-01T09:30:00+05:30", "+05:30"},
		{"utc z", "2026-01-12T17:00:00Z", "+00:00"},
		{"no offset", "2026-01-12T17:00:00", "+00:00"},
		{"garbage", "not a time", "+00:00"},
		{"empty", "", "+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OffsetFromUserTime(tt.input))
		})
	}
}

func TestEnsureISODatetime(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		offset string
		want   string
		ok     bool
	}{
		{"already qualified", "2026-01-13T07:00:00-05:00", "-05:00", "2026-01-13T07:00:00-05:00", true},
		{"no offset gets default", "2026-01-13T07:00:00", "-05:00", "2026-01-13T07:00:00-05:00", true},
		{"date only is midnight", "2026-01-13", "-05:00", "2026-01-13T00:00:00-05:00", true},
		{"z normalized to numeric", "2026-01-13T12:00:00Z", "-05:00", "2026-01-13T12:00:00+00:00", true},
		{"keeps foreign offset", "2026-01-13T07:00:00+09:00", "-05:00", "2026-01-13T07:00:00+09:00", true},
		{"minute precision", "2026-01-13T07:30", "-05:00", "2026-01-13T07:30:00-05:00", true},
		{"space separator", "2026-01-13 07:00:00", "+02:00", "2026-01-13T07:00:00+02:00", true},
		{"empty", "", "-05:00", "", false},
		{"unparseable", "next tuesday", "-05:00", "", false},
		{"bad default offset falls back utc", "2026-01-13T07:00:00", "junk", "2026-01-13T07:00:00+00:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EnsureISODatetime(tt.value, tt.offset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureISODatetimeIdempotent(t *testing.T) {
	inputs := []string{
		"2026-01-13T07:00:00",
		"2026-01-13",
		"2026-03-01T23:59:59+05:30",
		"2026-01-13T12:00:00Z",
	}
	for _, input := range inputs {
		once, ok := EnsureISODatetime(input, "-05:00")
		require.True(t, ok, input)
		twice, ok := EnsureISODatetime(once, "-05:00")
		require.True(t, ok, once)
		assert.Equal(t, once, twice, "normalization must be idempotent for %q", input)
	}
}

func TestEnsureISODate(t *testing.T) {
	got, ok := EnsureISODate("2026-01-13T07:00:00-05:00")
	assert.True(t, ok)
	assert.Equal(t, "2026-01-13", got)

	got, ok = EnsureISODate("2026-01-13")
	assert.True(t, ok)
	assert.Equal(t, "2026-01-13", got)

	_, ok = EnsureISODate("soon")
	assert.False(t, ok)

	_, ok = EnsureISODate("")
	assert.False(t, ok)
}

func TestDateToDatetimeISO(t *testing.T) {
	got, ok := DateToDatetimeISO("2026-01-13", "", "-05:00")
	require.True(t, ok)
	assert.Equal(t, "2026-01-13T09:00:00-05:00", got)

	got, ok = DateToDatetimeISO("2026-01-13", "14:30", "+01:00")
	require.True(t, ok)
	assert.Equal(t, "2026-01-13T14:30:00+01:00", got)

	_, ok = DateToDatetimeISO("", "09:00:00", "-05:00")
	assert.False(t, ok)

	_, ok = DateToDatetimeISO("13/01/2026", "09:00:00", "-05:00")
	assert.False(t, ok)
}

func TestComputeLocalDay(t *testing.T) {
	// 23:30 on the 12th in -05:00 is still the 12th locally.
	assert.Equal(t, "2026-01-12", ComputeLocalDay("2026-01-12T23:30:00-05:00"))
	assert.Equal(t, "2026-01-12", ComputeLocalDay("2026-01-12"))

	// Unparseable input falls back to the current UTC date.
	today := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, today, ComputeLocalDay("whenever"))
}

func TestIsDateOnly(t *testing.T) {
	assert.True(t, IsDateOnly("2026-01-13"))
	assert.False(t, IsDateOnly("2026-01-13T09:00:00"))
	assert.False(t, IsDateOnly("2026-01-13 09:00:00"))
}

func TestUTCNowISOShape(t *testing.T) {
	now := UTCNowISO()
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?\+00:00$`), now)
	_, ok := EnsureISODatetime(now, "+00:00")
	assert.True(t, ok)
}
