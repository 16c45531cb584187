package opencode

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const ID = "opencode"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "OpenCode",
		Info: core.ProviderInfo{
			Description: "Local message storage",
			Source:      core.SourceLocal,
			DocURL:      "https://opencode.ai/docs",
		},
	}, deps)}
}

// entry is one usage-bearing item of a storage file. A zero ts means the
// file's own time applies.
type entry struct {
	model string
	delta core.UsageData
	ts    time.Time
}

// file is the decoded content of one storage file.
type file struct {
	ts      time.Time
	entries []entry
}

// Older releases wrote one file per session holding every message; newer
// ones write one file per message under message/<session>/.
var fileChain = parsers.Chain[file]{
	{Name: "session", Decode: decodeSession},
	{Name: "message", Decode: decodeMessage},
}

func (p *Provider) storageDir() string {
	return p.PathOr(p.Paths().OpenCodeMessageDir())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return paths.DirExists(p.storageDir())
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.storageDir()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	dir := p.storageDir()
	if !paths.DirExists(dir) {
		return core.NotFound(), nil
	}

	files, err := parsers.WalkFiles(ctx, dir, parsers.HasSuffix(".json"))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.Result{}, ctxErr
		}
		return core.Errorf("reading OpenCode storage: %v", err), nil
	}

	acc := p.NewAccumulator()
	var reads providerbase.Reads
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return core.Result{}, err
		}
		err := p.readFile(path, acc)
		if err != nil {
			p.Log().Debug("skipping storage file", "file", path, "error", err)
		}
		reads.Record(err)
	}
	if err := reads.Err(); err != nil {
		return core.Errorf("reading OpenCode storage: %v", err), nil
	}
	return core.Active(acc.Stats(), dir), nil
}

func (p *Provider) readFile(path string, acc *core.Accumulator) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(raw) {
		return errors.New("invalid JSON")
	}
	f, kind, ok := fileChain.Decode(raw)
	if !ok {
		p.Log().Debug("unrecognized storage file", "file", path)
		return nil
	}
	fileTime := core.FirstTimestamp(f.ts, parsers.ModTime(path))
	for _, e := range f.entries {
		if !e.delta.HasTokens() {
			continue
		}
		if e.delta.EstimatedCost == 0 {
			e.delta.EstimatedCost = p.Pricing().Cost(e.model, e.delta)
		}
		acc.Add(e.delta, core.FirstTimestamp(e.ts, fileTime))
	}
	p.Log().Debug("read storage file", "file", path, "shape", kind, "entries", len(f.entries))
	return nil
}

func decodeSession(raw []byte) (file, bool) {
	if !gjson.ValidBytes(raw) {
		return file{}, false
	}
	doc := gjson.ParseBytes(raw)
	msgs, usage := doc.Get("messages"), doc.Get("usage")
	if !msgs.IsArray() && !usage.IsObject() {
		return file{}, false
	}

	f := file{ts: parsers.FirstTime(doc, "created_at", "updated_at")}
	if usage.IsObject() {
		f.entries = append(f.entries, entry{
			model: doc.Get("model").String(),
			delta: core.UsageData{
				InputTokens:  parsers.JSONUint(usage.Get("input_tokens")),
				OutputTokens: parsers.JSONUint(usage.Get("output_tokens")),
				RequestCount: 1,
			},
		})
	}
	msgs.ForEach(func(_, m gjson.Result) bool {
		u := m.Get("usage")
		if !u.IsObject() {
			return true
		}
		delta := core.UsageData{
			InputTokens:  parsers.JSONUint(u.Get("input_tokens")),
			OutputTokens: parsers.JSONUint(u.Get("output_tokens")) + parsers.JSONUint(u.Get("reasoning_tokens")),
		}
		if m.Get("role").String() == "assistant" {
			delta.RequestCount = 1
		}
		f.entries = append(f.entries, entry{
			model: m.Get("model").String(),
			delta: delta,
			ts:    parsers.FirstTime(m, "timestamp", "created_at"),
		})
		return true
	})
	return f, true
}

func decodeMessage(raw []byte) (file, bool) {
	if !gjson.ValidBytes(raw) {
		return file{}, false
	}
	doc := gjson.ParseBytes(raw)
	tokens := doc.Get("tokens")
	if !tokens.IsObject() {
		return file{}, false
	}
	delta := core.UsageData{
		InputTokens:      parsers.JSONUint(tokens.Get("input")),
		OutputTokens:     parsers.JSONUint(tokens.Get("output")) + parsers.JSONUint(tokens.Get("reasoning")),
		CacheReadTokens:  parsers.JSONUint(tokens.Get("cache.read")),
		CacheWriteTokens: parsers.JSONUint(tokens.Get("cache.write")),
	}
	if role := doc.Get("role").String(); role == "" || role == "assistant" {
		delta.RequestCount = 1
	}
	if cost, ok := parsers.JSONFloat(doc.Get("cost")); ok && cost > 0 {
		delta.EstimatedCost = cost
	}
	return file{entries: []entry{{
		model: doc.Get("modelID").String(),
		delta: delta,
		ts:    parsers.FirstTime(doc, "time.created", "time.completed"),
	}}}, true
}
