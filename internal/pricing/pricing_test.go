package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/a2zusage/a2zusage/internal/core"
)

func TestLookup(t *testing.T) {
	table := Default()

	tests := []struct {
		model      string
		wantInput  float64
		wantOutput float64
	}{
		{"gpt-4o", 2.5, 10},
		{"GPT-4O-MINI", 0.15, 0.6},
		{"gpt-4o-2024-08-06", 2.5, 10},
		{"gpt-4o-mini-2024-07-18", 0.15, 0.6},
		{"claude-3-5-sonnet-20241022", 3, 15},
		{"claude-opus-4-20250514", 15, 75},
		{"gemini-2.0-flash-001", 0.1, 0.4},
		{"gemini-1.5", 1.25, 5},
		{"", 1, 3},
		{"totally-unknown-model", 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := table.Lookup(tt.model)
			assert.Equal(t, tt.wantInput, p.InputPerMillion)
			assert.Equal(t, tt.wantOutput, p.OutputPerMillion)
		})
	}
}

func TestLookupIsDeterministic(t *testing.T) {
	table := Default()
	first := table.Lookup("sonnet")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Default().Lookup("sonnet"))
	}
}

func TestCacheDefaults(t *testing.T) {
	p := Default().Lookup("claude-sonnet-4")
	assert.InDelta(t, 0.3, p.CacheReadPerMillion, 1e-9)
	assert.InDelta(t, 3.75, p.CacheWritePerMillion, 1e-9)
}

func TestCost(t *testing.T) {
	table := Default()

	u := core.UsageData{InputTokens: 1_000_000, OutputTokens: 1_000_000, CacheReadTokens: 1_000_000, CacheWriteTokens: 1_000_000}
	assert.InDelta(t, 3+15+0.3+3.75, table.Cost("claude-sonnet-4", u), 1e-9)
	assert.Zero(t, table.Cost("gpt-4", core.UsageData{}))
}

func TestOverrides(t *testing.T) {
	table := New(map[string]Price{
		"GPT-4o":       {InputPerMillion: 5, OutputPerMillion: 20},
		"my-local-llm": {InputPerMillion: 0, OutputPerMillion: 0},
		"  ":           {InputPerMillion: 99},
	})

	assert.Equal(t, 5.0, table.Lookup("gpt-4o").InputPerMillion)
	assert.Equal(t, 0.0, table.Lookup("my-local-llm-7b").OutputPerMillion)
	assert.Equal(t, 1.0, table.Lookup("unknown").InputPerMillion)

	// the defaults themselves are untouched
	assert.Equal(t, 2.5, Default().Lookup("gpt-4o").InputPerMillion)
}

func TestPriceStatsKeepsExistingCost(t *testing.T) {
	stats := core.UsageStats{
		Today: core.UsageData{InputTokens: 1_000_000, EstimatedCost: 0.42},
		Total: core.UsageData{InputTokens: 2_000_000},
	}

	priced := Default().PriceStats("gpt-4o", stats)
	assert.Equal(t, 0.42, priced.Today.EstimatedCost)
	assert.InDelta(t, 5.0, priced.Total.EstimatedCost, 1e-9)
	assert.Zero(t, priced.ThisMonth.EstimatedCost)
}
