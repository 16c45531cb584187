// Package pricing estimates request cost from token counts.
package pricing

import (
	"sort"
	"strings"

	"github.com/a2zusage/a2zusage/internal/core"
)

// DefaultModel is the key used when no model name matches.
const DefaultModel = "default"

const (
	cacheReadFactor  = 0.10
	cacheWriteFactor = 1.25
)

// Price is USD per one million tokens. Zero cache prices are derived from
// InputPerMillion.
type Price struct {
	InputPerMillion      float64 `yaml:"input" json:"input"`
	OutputPerMillion     float64 `yaml:"output" json:"output"`
	CacheReadPerMillion  float64 `yaml:"cache_read,omitempty" json:"cache_read,omitempty"`
	CacheWritePerMillion float64 `yaml:"cache_write,omitempty" json:"cache_write,omitempty"`
}

func (p Price) withCacheDefaults() Price {
	if p.CacheReadPerMillion == 0 {
		p.CacheReadPerMillion = p.InputPerMillion * cacheReadFactor
	}
	if p.CacheWritePerMillion == 0 {
		p.CacheWritePerMillion = p.InputPerMillion * cacheWriteFactor
	}
	return p
}

var defaultPrices = map[string]Price{
	// Anthropic
	"claude-3-opus":     {InputPerMillion: 15.0, OutputPerMillion: 75.0},
	"claude-3-sonnet":   {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"claude-3-haiku":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"claude-3.5-sonnet": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"claude-3-5-sonnet": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"claude-3.5-haiku":  {InputPerMillion: 0.8, OutputPerMillion: 4.0},
	"claude-3-5-haiku":  {InputPerMillion: 0.8, OutputPerMillion: 4.0},
	"claude-3-7-sonnet": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"claude-sonnet-4":   {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"claude-opus-4":     {InputPerMillion: 15.0, OutputPerMillion: 75.0},
	// OpenAI
	"gpt-4":         {InputPerMillion: 30.0, OutputPerMillion: 60.0},
	"gpt-4-turbo":   {InputPerMillion: 10.0, OutputPerMillion: 30.0},
	"gpt-4o":        {InputPerMillion: 2.5, OutputPerMillion: 10.0},
	"gpt-4o-mini":   {InputPerMillion: 0.15, OutputPerMillion: 0.6},
	"gpt-3.5-turbo": {InputPerMillion: 0.5, OutputPerMillion: 1.5},
	"o1":            {InputPerMillion: 15.0, OutputPerMillion: 60.0},
	"o1-mini":       {InputPerMillion: 3.0, OutputPerMillion: 12.0},
	// Google
	"gemini-pro":       {InputPerMillion: 0.5, OutputPerMillion: 1.5},
	"gemini-1.5-pro":   {InputPerMillion: 1.25, OutputPerMillion: 5.0},
	"gemini-1.5-flash": {InputPerMillion: 0.075, OutputPerMillion: 0.3},
	"gemini-2.0-flash": {InputPerMillion: 0.1, OutputPerMillion: 0.4},

	DefaultModel: {InputPerMillion: 1.0, OutputPerMillion: 3.0},
}

// DefaultPrices returns a copy of the built-in price list.
func DefaultPrices() map[string]Price {
	out := make(map[string]Price, len(defaultPrices))
	for k, v := range defaultPrices {
		out[k] = v
	}
	return out
}

// Table is an immutable price list. Build it once and share it.
type Table struct {
	prices map[string]Price
	// keys sorted longest first, then alphabetically, excluding DefaultModel
	keys []string
}

// Default returns a Table of the built-in prices.
func Default() *Table {
	return New(nil)
}

// New returns the built-in prices with overrides applied on top. Override
// keys are matched case-insensitively.
func New(overrides map[string]Price) *Table {
	prices := DefaultPrices()
	for model, p := range overrides {
		key := normalize(model)
		if key == "" {
			continue
		}
		prices[key] = p
	}

	keys := make([]string, 0, len(prices))
	for k := range prices {
		if k != DefaultModel {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for k, p := range prices {
		prices[k] = p.withCacheDefaults()
	}
	return &Table{prices: prices, keys: keys}
}

// Lookup resolves model to a price: exact name first, then the longest
// known name contained in model, then the shortest known name containing
// model, then DefaultModel.
func (t *Table) Lookup(model string) Price {
	m := normalize(model)
	if m == "" {
		return t.prices[DefaultModel]
	}
	if p, ok := t.prices[m]; ok {
		return p
	}
	for _, k := range t.keys {
		if strings.Contains(m, k) {
			return t.prices[k]
		}
	}
	for i := len(t.keys) - 1; i >= 0; i-- {
		if strings.Contains(t.keys[i], m) {
			return t.prices[t.keys[i]]
		}
	}
	return t.prices[DefaultModel]
}

// Cost prices every token counter of u with model's rates.
func (t *Table) Cost(model string, u core.UsageData) float64 {
	p := t.Lookup(model)
	return perMillion(u.InputTokens, p.InputPerMillion) +
		perMillion(u.OutputTokens, p.OutputPerMillion) +
		perMillion(u.CacheReadTokens, p.CacheReadPerMillion) +
		perMillion(u.CacheWriteTokens, p.CacheWritePerMillion)
}

// PriceStats fills EstimatedCost on every bucket of stats using model.
// Buckets that already carry a cost are left alone.
func (t *Table) PriceStats(model string, stats core.UsageStats) core.UsageStats {
	for _, b := range []*core.UsageData{&stats.Today, &stats.ThisWeek, &stats.ThisMonth, &stats.Total} {
		if b.EstimatedCost == 0 && b.HasTokens() {
			b.EstimatedCost = t.Cost(model, *b)
		}
	}
	return stats
}

func perMillion(tokens uint64, price float64) float64 {
	return float64(tokens) / 1_000_000 * price
}

func normalize(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}
