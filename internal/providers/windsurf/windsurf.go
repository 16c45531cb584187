package windsurf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const ID = "windsurf"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Windsurf",
		Info: core.ProviderInfo{
			Description: "Cascade logs",
			Source:      core.SourceLocal,
			DocURL:      "https://windsurf.com/subscription/usage",
		},
	}, deps)}
}

type entry struct {
	delta core.UsageData
	ts    time.Time
}

// documentChain decodes a whole .json file: either a list of entries or a
// single entry object.
var documentChain = parsers.Chain[[]gjson.Result]{
	{Name: "array", Decode: func(raw []byte) ([]gjson.Result, bool) {
		doc := gjson.ParseBytes(raw)
		if !gjson.ValidBytes(raw) || !doc.IsArray() {
			return nil, false
		}
		return doc.Array(), true
	}},
	{Name: "object", Decode: func(raw []byte) ([]gjson.Result, bool) {
		doc := gjson.ParseBytes(raw)
		if !gjson.ValidBytes(raw) || !doc.IsObject() {
			return nil, false
		}
		return []gjson.Result{doc}, true
	}},
}

func (p *Provider) cascadeDir() string {
	return p.PathOr(p.Paths().WindsurfCascadeDir())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return lo.SomeBy(p.PathsToCheck(), paths.Exists)
}

func (p *Provider) PathsToCheck() []string {
	r := p.Paths()
	return []string{p.cascadeDir(), r.WindsurfMemoriesDir(), r.CodeiumDir()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	cascade := p.cascadeDir()
	hasCascade := paths.DirExists(cascade)
	if !hasCascade && !paths.DirExists(p.Paths().WindsurfMemoriesDir()) {
		if paths.DirExists(p.Paths().CodeiumDir()) {
			return core.Active(core.UsageStats{}, "Installed (no readable usage data found)"), nil
		}
		return core.NotFound(), nil
	}

	acc := p.NewAccumulator()
	if !hasCascade {
		return core.Active(acc.Stats(), cascade), nil
	}

	files, err := parsers.WalkFiles(ctx, cascade, parsers.HasSuffix(".jsonl", ".log", ".json", ".pb"))
	if err != nil {
		if ctx.Err() != nil {
			return core.Result{}, ctx.Err()
		}
		return core.Errorf("reading cascade logs: %v", err), nil
	}

	var pbFiles int
	var reads providerbase.Reads
	for _, file := range files {
		var err error
		switch strings.ToLower(filepath.Ext(file)) {
		case ".pb":
			pbFiles++
			continue
		case ".json":
			err = p.readDocument(file, acc)
		default:
			err = p.readLines(ctx, file, acc)
		}
		if err != nil {
			if ctx.Err() != nil {
				return core.Result{}, ctx.Err()
			}
			p.Log().Debug("skipping cascade file", "file", file, "error", err)
		}
		reads.Record(err)
	}

	if acc.Stats().Total.IsZero() && pbFiles > 0 {
		return core.Unsupported(
			fmt.Sprintf("Cascade history is stored as encrypted protobuf (%d sessions); token counts are not readable", pbFiles),
			cascade), nil
	}
	if err := reads.Err(); err != nil {
		return core.Errorf("reading cascade logs: %v", err), nil
	}
	return core.Active(acc.Stats(), cascade), nil
}

func (p *Provider) readLines(ctx context.Context, file string, acc *core.Accumulator) error {
	mtime := parsers.ModTime(file)
	return parsers.ScanLines(ctx, file, func(lineNo int, line []byte) error {
		if !gjson.ValidBytes(line) {
			return nil
		}
		if e, ok := decodeEntry(gjson.ParseBytes(line)); ok {
			acc.Add(e.delta, core.FirstTimestamp(e.ts, mtime))
		}
		return nil
	})
}

func (p *Provider) readDocument(file string, acc *core.Accumulator) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(raw) {
		return errors.New("invalid JSON")
	}
	items, _, ok := documentChain.Decode(raw)
	if !ok {
		p.Log().Debug("unrecognized cascade file", "file", file)
		return nil
	}
	mtime := parsers.ModTime(file)
	for _, item := range items {
		if e, ok := decodeEntry(item); ok {
			acc.Add(e.delta, core.FirstTimestamp(e.ts, mtime))
		}
	}
	return nil
}

// decodeEntry reads one Cascade log entry. Top-level context and
// completion lengths win over smaller nested usage counts; billable_tokens
// is only used when nothing else is present.
func decodeEntry(obj gjson.Result) (entry, bool) {
	if !obj.IsObject() {
		return entry{}, false
	}
	usage := obj.Get("usage")
	in, _ := parsers.FirstUint(usage, "input_tokens", "context_length")
	out, _ := parsers.FirstUint(usage, "output_tokens", "completion_length")

	if in == 0 && out == 0 {
		in = parsers.JSONUint(obj.Get("billable_tokens"))
	}
	in = max(in, parsers.JSONUint(obj.Get("context_length")))
	if completion, ok := parsers.FirstUint(obj, "completion_length", "generated_tokens"); ok {
		out = max(out, completion)
	}

	if in == 0 && out == 0 {
		return entry{}, false
	}
	return entry{
		delta: core.UsageData{InputTokens: in, OutputTokens: out, RequestCount: 1},
		ts:    parsers.JSONTime(obj.Get("timestamp")),
	}, true
}
