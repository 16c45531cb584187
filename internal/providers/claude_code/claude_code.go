package claude_code

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/samber/lo"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const ID = "claude-code"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Claude Code",
		Info: core.ProviderInfo{
			Description: "CLI + IDE extension (shared JSONL)",
			Source:      core.SourceLocal,
			DocURL:      "https://docs.anthropic.com/en/docs/claude-code",
		},
	}, deps)}
}

// Session transcripts hold one JSON object per line. Only assistant turns
// carry usage.
type jsonlEntry struct {
	Type      string    `json:"type"`
	Timestamp string    `json:"timestamp"`
	RequestID string    `json:"requestId"`
	CostUSD   *float64  `json:"costUSD"`
	Message   *jsonlMsg `json:"message"`
}

type jsonlMsg struct {
	ID    string      `json:"id"`
	Model string      `json:"model"`
	Usage *jsonlUsage `json:"usage"`
}

type jsonlUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

func (p *Provider) projectDirs() []string {
	if o := p.PathOr(""); o != "" {
		return []string{o}
	}
	return p.Paths().ClaudeProjectsDirs()
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return lo.SomeBy(p.projectDirs(), paths.DirExists)
}

func (p *Provider) PathsToCheck() []string {
	return append(p.projectDirs(), p.Paths().ClaudeConfigFile())
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	dirs := lo.Filter(p.projectDirs(), func(d string, _ int) bool { return paths.DirExists(d) })
	if len(dirs) == 0 {
		return core.NotFound(), nil
	}

	acc := p.NewAccumulator()
	// Resumed sessions replay earlier turns into the new transcript.
	seen := make(map[string]struct{})
	var reads providerbase.Reads

	for _, dir := range dirs {
		files, err := parsers.WalkFiles(ctx, dir, parsers.HasSuffix(".jsonl"))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return core.Result{}, ctxErr
			}
			p.Log().Debug("walking projects dir", "dir", dir, "error", err)
			reads.Record(err)
			continue
		}
		for _, file := range files {
			err := p.readTranscript(ctx, file, acc, seen)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return core.Result{}, err
			}
			if err != nil {
				p.Log().Debug("skipping transcript", "file", file, "error", err)
			}
			reads.Record(err)
		}
	}

	if err := reads.Err(); err != nil {
		return core.Errorf("reading Claude transcripts: %v", err), nil
	}
	p.Log().Debug("folded transcripts", "records", acc.Records(), "messages", len(seen))
	return core.Active(acc.Stats(), dirs[0]), nil
}

func (p *Provider) readTranscript(ctx context.Context, file string, acc *core.Accumulator, seen map[string]struct{}) error {
	mtime := parsers.ModTime(file)
	return parsers.ScanLines(ctx, file, func(lineNo int, line []byte) error {
		var entry jsonlEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			p.Log().Debug("malformed line", "file", file, "line", lineNo)
			return nil
		}
		if entry.Message == nil || entry.Message.Usage == nil {
			return nil
		}
		if key := dedupKey(entry); key != "" {
			if _, dup := seen[key]; dup {
				return nil
			}
			seen[key] = struct{}{}
		}

		u := entry.Message.Usage
		delta := core.UsageData{
			InputTokens:      parsers.ClampUint(u.InputTokens),
			OutputTokens:     parsers.ClampUint(u.OutputTokens),
			CacheReadTokens:  parsers.ClampUint(u.CacheReadInputTokens),
			CacheWriteTokens: parsers.ClampUint(u.CacheCreationInputTokens),
		}
		if !delta.HasTokens() {
			return nil
		}
		delta.RequestCount = 1
		if entry.CostUSD != nil && *entry.CostUSD > 0 {
			delta.EstimatedCost = *entry.CostUSD
		} else {
			delta.EstimatedCost = p.Pricing().Cost(entry.Message.Model, delta)
		}

		acc.Add(delta, core.FirstTimestamp(parsers.ParseTimestamp(entry.Timestamp), mtime))
		return nil
	})
}

func dedupKey(e jsonlEntry) string {
	if e.Message.ID == "" || e.RequestID == "" {
		return ""
	}
	return e.Message.ID + ":" + e.RequestID
}
