package core

import "time"

// UsageData holds the canonical additive counters for one time bucket.
type UsageData struct {
	InputTokens      uint64  `json:"input_tokens"`
	OutputTokens     uint64  `json:"output_tokens"`
	CacheReadTokens  uint64  `json:"cache_read_tokens"`
	CacheWriteTokens uint64  `json:"cache_write_tokens"`
	RequestCount     uint64  `json:"request_count"`
	EstimatedCost    float64 `json:"estimated_cost"` // USD
}

func (u UsageData) TotalTokens() uint64 {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens + u.CacheWriteTokens
}

// HasTokens reports whether any of the four token counters is non-zero.
func (u UsageData) HasTokens() bool {
	return u.TotalTokens() > 0
}

func (u UsageData) IsZero() bool {
	return u == UsageData{}
}

// Add folds delta into u field by field. Callers must not pass counters
// derived from negative raw values; clamp them first.
func (u *UsageData) Add(delta UsageData) {
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens
	u.CacheReadTokens += delta.CacheReadTokens
	u.CacheWriteTokens += delta.CacheWriteTokens
	u.RequestCount += delta.RequestCount
	u.EstimatedCost += delta.EstimatedCost
}

// Plus returns the sum of u and delta without mutating either.
func (u UsageData) Plus(delta UsageData) UsageData {
	u.Add(delta)
	return u
}

type UsageStats struct {
	Today     UsageData `json:"today"`
	ThisWeek  UsageData `json:"this_week"`
	ThisMonth UsageData `json:"this_month"`
	Total     UsageData `json:"total"`
}

// Add folds every bucket of o into s.
func (s *UsageStats) Add(o UsageStats) {
	s.Today.Add(o.Today)
	s.ThisWeek.Add(o.ThisWeek)
	s.ThisMonth.Add(o.ThisMonth)
	s.Total.Add(o.Total)
}

// Accumulator folds parsed records into UsageStats for one provider
// invocation. It is not safe for concurrent use and must not be shared
// between providers.
type Accumulator struct {
	windows Windows
	stats   UsageStats
	records int
}

func NewAccumulator(windows Windows) *Accumulator {
	return &Accumulator{windows: windows}
}

// Add folds delta into Total and into each window containing ts. A zero ts
// means the record's time could not be resolved: it counts toward Total only.
func (a *Accumulator) Add(delta UsageData, ts time.Time) {
	a.records++
	a.stats.Total.Add(delta)
	if ts.IsZero() {
		return
	}
	if a.windows.Today.Contains(ts) {
		a.stats.Today.Add(delta)
	}
	if a.windows.Week.Contains(ts) {
		a.stats.ThisWeek.Add(delta)
	}
	if a.windows.Month.Contains(ts) {
		a.stats.ThisMonth.Add(delta)
	}
}

// AddTotalOnly folds delta into Total regardless of any timestamp, for
// sources that only expose lifetime counters.
func (a *Accumulator) AddTotalOnly(delta UsageData) {
	a.Add(delta, time.Time{})
}

// Records returns how many deltas were folded so far.
func (a *Accumulator) Records() int {
	return a.records
}

func (a *Accumulator) Stats() UsageStats {
	return a.stats
}

// FirstTimestamp returns the first non-zero candidate, following the
// resolution order record > session/file > file mtime. It returns the zero
// time when none is known.
func FirstTimestamp(candidates ...time.Time) time.Time {
	for _, t := range candidates {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
