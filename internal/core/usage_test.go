package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageDataAddIsAssociativeAndCommutative(t *testing.T) {
	a := UsageData{InputTokens: 1, OutputTokens: 2, CacheReadTokens: 3, CacheWriteTokens: 4, RequestCount: 5, EstimatedCost: 0.25}
	b := UsageData{InputTokens: 10, OutputTokens: 20, CacheReadTokens: 30, CacheWriteTokens: 40, RequestCount: 50, EstimatedCost: 0.5}
	c := UsageData{InputTokens: 100, OutputTokens: 200, RequestCount: 1, EstimatedCost: 1}

	left := a.Plus(b).Plus(c)
	right := a.Plus(b.Plus(c))
	assert.Equal(t, left, right)

	assert.Equal(t, a.Plus(b), b.Plus(a))
	assert.Equal(t, UsageData{InputTokens: 111, OutputTokens: 222, CacheReadTokens: 33, CacheWriteTokens: 44, RequestCount: 56, EstimatedCost: 1.75}, left)
}

func TestUsageDataTotalTokens(t *testing.T) {
	tests := []struct {
		name string
		u    UsageData
		want uint64
	}{
		{"zero", UsageData{}, 0},
		{"input only", UsageData{InputTokens: 7}, 7},
		{"all counters", UsageData{InputTokens: 1, OutputTokens: 2, CacheReadTokens: 3, CacheWriteTokens: 4, RequestCount: 99}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.u.TotalTokens())
			assert.Equal(t, tt.u.InputTokens+tt.u.OutputTokens+tt.u.CacheReadTokens+tt.u.CacheWriteTokens, tt.u.TotalTokens())
		})
	}
}

func TestAccumulatorBucketsByTimestamp(t *testing.T) {
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.Local)
	acc := NewAccumulator(WindowsAt(now))

	acc.Add(UsageData{InputTokens: 100, OutputTokens: 50, RequestCount: 1}, now.Add(-time.Hour))
	acc.Add(UsageData{InputTokens: 20, OutputTokens: 10, RequestCount: 1}, now.AddDate(0, 0, -8))

	stats := acc.Stats()
	assert.EqualValues(t, 120, stats.Total.InputTokens)
	assert.EqualValues(t, 100, stats.Today.InputTokens)
	assert.EqualValues(t, 100, stats.ThisWeek.InputTokens)
	assert.EqualValues(t, 120, stats.ThisMonth.InputTokens)
	assert.Equal(t, 2, acc.Records())
}

func TestAccumulatorZeroTimestampCountsTotalOnly(t *testing.T) {
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.Local)
	acc := NewAccumulator(WindowsAt(now))

	acc.Add(UsageData{InputTokens: 5, OutputTokens: 5}, time.Time{})
	acc.AddTotalOnly(UsageData{RequestCount: 3})

	stats := acc.Stats()
	assert.EqualValues(t, 5, stats.Total.InputTokens)
	assert.EqualValues(t, 3, stats.Total.RequestCount)
	assert.True(t, stats.Today.IsZero())
	assert.True(t, stats.ThisWeek.IsZero())
	assert.True(t, stats.ThisMonth.IsZero())
}

func TestAccumulatorFutureTimestampExcludedFromWindows(t *testing.T) {
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.Local)
	acc := NewAccumulator(WindowsAt(now))

	acc.Add(UsageData{InputTokens: 1}, now.Add(time.Minute))

	stats := acc.Stats()
	require.EqualValues(t, 1, stats.Total.InputTokens)
	assert.Zero(t, stats.Today.InputTokens)
}

func TestFirstTimestamp(t *testing.T) {
	record := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	session := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mtime := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, record, FirstTimestamp(record, session, mtime))
	assert.Equal(t, session, FirstTimestamp(time.Time{}, session, mtime))
	assert.Equal(t, mtime, FirstTimestamp(time.Time{}, time.Time{}, mtime))
	assert.True(t, FirstTimestamp(time.Time{}, time.Time{}).IsZero())
	assert.True(t, FirstTimestamp().IsZero())
}
