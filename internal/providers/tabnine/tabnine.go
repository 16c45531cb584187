package tabnine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const (
	ID = "tabnine"

	charsPerToken = 4
	// Completion logs only record generated text; the prompt is assumed
	// to be this many times longer.
	inputPerOutput = 2
)

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Tabnine",
		Info: core.ProviderInfo{
			Description: "Local completion logs",
			Source:      core.SourceLocal,
			DocURL:      "https://www.tabnine.com",
		},
	}, deps)}
}

type logEntry struct {
	Type      string          `json:"type"`
	Event     string          `json:"event"`
	Timestamp json.RawMessage `json:"timestamp"`
	Meta      *struct {
		NetLength  *uint64 `json:"net_length"`
		TokensUsed *uint64 `json:"tokens_used"`
	} `json:"meta"`
	Usage *struct {
		Tokens *uint64 `json:"tokens"`
		Chars  *uint64 `json:"chars"`
	} `json:"usage"`
}

func (e logEntry) isCompletion() bool {
	return e.Type == "completion" || e.Event == "usage" || e.Event == "completion"
}

// outputTokens is the generated token count, estimated from characters
// when the entry carries no token count.
func (e logEntry) outputTokens() uint64 {
	var n uint64
	if e.Meta != nil {
		switch {
		case e.Meta.TokensUsed != nil:
			n = *e.Meta.TokensUsed
		case e.Meta.NetLength != nil:
			n = *e.Meta.NetLength / charsPerToken
		}
	}
	if e.Usage != nil {
		switch {
		case e.Usage.Tokens != nil:
			n = max(n, *e.Usage.Tokens)
		case e.Usage.Chars != nil:
			n = max(n, *e.Usage.Chars/charsPerToken)
		}
	}
	return n
}

func (e logEntry) timestamp() time.Time {
	if len(e.Timestamp) == 0 {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(e.Timestamp, &s); err == nil {
		return parsers.ParseTimestamp(s)
	}
	return parsers.ParseTimestamp(string(e.Timestamp))
}

func (p *Provider) logsDir() string {
	return p.PathOr(p.Paths().TabnineLogsDir())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return paths.DirExists(p.logsDir())
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.logsDir()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	dir := p.logsDir()
	if !paths.DirExists(dir) {
		return core.NotFound(), nil
	}

	files, err := parsers.WalkFiles(ctx, dir, parsers.HasSuffix(".log", ".json", ".jsonl"))
	if err != nil {
		if ctx.Err() != nil {
			return core.Result{}, ctx.Err()
		}
		return core.Errorf("reading Tabnine logs: %v", err), nil
	}

	acc := p.NewAccumulator()
	var reads providerbase.Reads
	for _, file := range files {
		mtime := parsers.ModTime(file)
		err := parsers.ScanLines(ctx, file, func(_ int, line []byte) error {
			var e logEntry
			if json.Unmarshal(line, &e) != nil {
				return nil
			}
			if !e.isCompletion() && e.Meta == nil && e.Usage == nil {
				return nil
			}
			out := e.outputTokens()
			if out == 0 {
				return nil
			}
			acc.Add(core.UsageData{
				InputTokens:  out * inputPerOutput,
				OutputTokens: out,
				RequestCount: 1,
			}, core.FirstTimestamp(e.timestamp(), mtime))
			return nil
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return core.Result{}, err
		}
		if err != nil {
			p.Log().Debug("skipping log", "file", file, "error", err)
		}
		reads.Record(err)
	}
	if err := reads.Err(); err != nil {
		return core.Errorf("reading Tabnine logs: %v", err), nil
	}

	stats := acc.Stats()
	if stats.Total.HasTokens() {
		return core.EstimatedActive(stats, dir), nil
	}
	return core.Active(stats, dir), nil
}
