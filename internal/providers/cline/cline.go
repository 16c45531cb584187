package cline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const ID = "cline"

// pricingModel prices task totals that carry no cost of their own.
const pricingModel = "claude-sonnet-4"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Cline",
		Info: core.ProviderInfo{
			Description: "VS Code extension storage",
			Source:      core.SourceLocal,
			DocURL:      "https://github.com/cline/cline",
		},
	}, deps)}
}

type taskData struct {
	TokensIn    *int64   `json:"tokensIn"`
	TokensOut   *int64   `json:"tokensOut"`
	CacheWrites *int64   `json:"cacheWrites"`
	CacheReads  *int64   `json:"cacheReads"`
	TotalCost   *float64 `json:"totalCost"`
	Ts          *int64   `json:"ts"`
}

type rooUsageTracking struct {
	TotalInputTokens      int64   `json:"totalInputTokens"`
	TotalOutputTokens     int64   `json:"totalOutputTokens"`
	TotalCacheWriteTokens int64   `json:"totalCacheWriteTokens"`
	TotalCacheReadTokens  int64   `json:"totalCacheReadTokens"`
	TotalCost             float64 `json:"totalCost"`
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func (p *Provider) candidates() []string {
	r := p.Paths()
	return []string{r.ClineTasksDir(), r.RooTasksDir(), r.RooUsageTracking()}
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return lo.SomeBy(p.candidates(), paths.Exists)
}

func (p *Provider) PathsToCheck() []string {
	return p.candidates()
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	if stats, ok := p.readRooTracking(); ok {
		return core.Active(stats, p.Paths().RooUsageTracking()), nil
	}

	tasksDir := p.PathOr(p.Paths().RooTasksDir())
	if !paths.DirExists(tasksDir) {
		tasksDir = p.Paths().ClineTasksDir()
	}
	if !paths.DirExists(tasksDir) {
		return core.NotFound(), nil
	}

	acc := p.NewAccumulator()
	taskFiles, err := filepath.Glob(filepath.Join(tasksDir, "*", "task.json"))
	if err != nil {
		return core.Errorf("listing tasks: %v", err), nil
	}
	sort.Strings(taskFiles)

	var reads providerbase.Reads
	for _, file := range taskFiles {
		if err := ctx.Err(); err != nil {
			return core.Result{}, err
		}
		err := p.readTask(file, acc)
		if err != nil {
			p.Log().Debug("skipping task", "file", file, "error", err)
		}
		reads.Record(err)
	}
	if err := reads.Err(); err != nil {
		return core.Errorf("reading tasks: %v", err), nil
	}

	stats := acc.Stats()
	if stats.Total.EstimatedCost == 0 && stats.Total.HasTokens() {
		stats = p.Pricing().PriceStats(pricingModel, stats)
	}
	return core.Active(stats, tasksDir), nil
}

// readRooTracking reads Roo Code's lifetime counters. They have no
// timestamps so they land in Total only.
func (p *Provider) readRooTracking() (core.UsageStats, bool) {
	data, err := os.ReadFile(p.Paths().RooUsageTracking())
	if err != nil {
		return core.UsageStats{}, false
	}
	var t rooUsageTracking
	if err := json.Unmarshal(data, &t); err != nil {
		p.Log().Debug("malformed Roo usage tracking", "error", err)
		return core.UsageStats{}, false
	}
	acc := p.NewAccumulator()
	acc.AddTotalOnly(core.UsageData{
		InputTokens:      parsers.ClampUint(t.TotalInputTokens),
		OutputTokens:     parsers.ClampUint(t.TotalOutputTokens),
		CacheReadTokens:  parsers.ClampUint(t.TotalCacheReadTokens),
		CacheWriteTokens: parsers.ClampUint(t.TotalCacheWriteTokens),
		EstimatedCost:    max(t.TotalCost, 0),
	})
	return acc.Stats(), true
}

func (p *Provider) readTask(file string, acc *core.Accumulator) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var task taskData
	if err := json.Unmarshal(data, &task); err != nil {
		return fmt.Errorf("malformed task: %w", err)
	}

	delta := core.UsageData{
		InputTokens:      parsers.ClampUint(deref(task.TokensIn)),
		OutputTokens:     parsers.ClampUint(deref(task.TokensOut)),
		CacheReadTokens:  parsers.ClampUint(deref(task.CacheReads)),
		CacheWriteTokens: parsers.ClampUint(deref(task.CacheWrites)),
		EstimatedCost:    max(deref(task.TotalCost), 0),
		RequestCount:     1,
	}
	if delta.InputTokens == 0 && delta.OutputTokens == 0 {
		return nil
	}
	acc.Add(delta, core.FirstTimestamp(parsers.UnixAuto(deref(task.Ts)), parsers.ModTime(file)))
	return nil
}
