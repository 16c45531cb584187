package parsers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(v float64) *float64 { return &v }

func TestParseFloat(t *testing.T) {
	tests := []struct {
		input string
		want  *float64
	}{
		{"100", float64Ptr(100)},
		{"3.14", float64Ptr(3.14)},
		{"", nil},
		{"abc", nil},
		{" 42 ", float64Ptr(42)},
	}

	for _, tt := range tests {
		got := ParseFloat(tt.input)
		if tt.want == nil {
			assert.Nil(t, got, "ParseFloat(%q)", tt.input)
			continue
		}
		require.NotNil(t, got, "ParseFloat(%q)", tt.input)
		assert.Equal(t, *tt.want, *got, "ParseFloat(%q)", tt.input)
	}
}

func TestClampUint(t *testing.T) {
	assert.Zero(t, ClampUint(-5))
	assert.EqualValues(t, 17, ClampUint(17))
	assert.Zero(t, ClampFloatUint(-0.5))
	assert.EqualValues(t, 12, ClampFloatUint(12.9))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2026-03-04T05:06:07Z", want},
		{"rfc3339 offset", "2026-03-04T07:06:07+02:00", want},
		{"rfc3339 nano", "2026-03-04T05:06:07.000Z", want},
		{"naive space", "2026-03-04 05:06:07", want},
		{"naive micros", "2026-03-04 05:06:07.000000", want},
		{"naive T", "2026-03-04T05:06:07", want},
		{"epoch seconds", "1772600767", want},
		{"epoch millis", "1772600767000", want},
		{"epoch micros", "1772600767000000", want},
		{"garbage", "yesterday-ish", time.Time{}},
		{"empty", "", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			assert.True(t, got.Equal(tt.want), "ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		})
	}
}

func TestUnixAuto(t *testing.T) {
	assert.True(t, UnixAuto(0).IsZero())
	assert.EqualValues(t, 1_700_000_000_123, UnixAuto(1_700_000_000_123).UnixMilli())
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer sk-1234567890abcdef")
	h.Set("Content-Type", "application/json")
	h.Set("X-Custom-Secret", "short")

	got := RedactHeaders(h, "x-custom-secret")

	assert.Equal(t, "application/json", got["Content-Type"])
	assert.Equal(t, "Bear...cdef", got["Authorization"])
	assert.Equal(t, "****", got["X-Custom-Secret"])
}

func TestSplitEstimate(t *testing.T) {
	tests := []struct{ total, in, out uint64 }{
		{0, 0, 0},
		{1000, 600, 400},
		{101, 60, 41},
		{3, 1, 2},
	}
	for _, tt := range tests {
		in, out := SplitEstimate(tt.total)
		assert.Equal(t, tt.in, in, "SplitEstimate(%d) input", tt.total)
		assert.Equal(t, tt.out, out, "SplitEstimate(%d) output", tt.total)
	}
}
