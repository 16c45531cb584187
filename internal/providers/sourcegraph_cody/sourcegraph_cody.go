package sourcegraph_cody

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

const ID = "sourcegraph-cody"

// Per-reply token guesses for chat state that records no token counts.
const (
	inputPerReply  = 300
	outputPerReply = 200
)

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Cody",
		Info: core.ProviderInfo{
			Description: "VS Code extension storage",
			Source:      core.SourceLocal,
			DocURL:      "https://sourcegraph.com/cody",
		},
	}, deps)}
}

// chatState is the usage read from one extension state file.
type chatState struct {
	delta     core.UsageData
	ts        time.Time
	estimated bool
}

func decodeChatState(raw []byte) (chatState, bool) {
	if !gjson.ValidBytes(raw) {
		return chatState{}, false
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return chatState{}, false
	}

	var s chatState
	if tc := doc.Get("tokenCount"); tc.IsObject() {
		s.delta.InputTokens = parsers.JSONUint(tc.Get("input"))
		s.delta.OutputTokens = parsers.JSONUint(tc.Get("output"))
	}

	var latest int64
	doc.Get("messages").ForEach(func(_, m gjson.Result) bool {
		if m.Get("role").String() == "assistant" {
			s.delta.RequestCount++
		}
		if ts := m.Get("timestamp"); ts.Type == gjson.Number && ts.Int() > latest {
			latest = ts.Int()
		}
		return true
	})
	s.ts = parsers.UnixAuto(latest)

	if !s.delta.HasTokens() && s.delta.RequestCount > 0 {
		s.delta.InputTokens = s.delta.RequestCount * inputPerReply
		s.delta.OutputTokens = s.delta.RequestCount * outputPerReply
		s.estimated = true
	}
	return s, !s.delta.IsZero()
}

func (p *Provider) extensionDir() string {
	return p.PathOr(p.Paths().CodyExtensionDir())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return paths.DirExists(p.extensionDir())
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.extensionDir()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	dir := p.extensionDir()
	if !paths.DirExists(dir) {
		return core.NotFound(), nil
	}

	files, err := parsers.WalkFiles(ctx, dir, parsers.HasSuffix(".json"))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return core.Result{}, err
		}
		return core.Errorf("reading Cody storage: %v", err), nil
	}

	acc := p.NewAccumulator()
	var reads providerbase.Reads
	var estimated bool
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return core.Result{}, err
		}
		raw, err := os.ReadFile(file)
		if err == nil && !gjson.ValidBytes(raw) {
			err = errors.New("invalid JSON")
		}
		reads.Record(err)
		if err != nil {
			p.Log().Debug("skipping state file", "file", file, "error", err)
			continue
		}
		s, ok := decodeChatState(raw)
		if !ok {
			continue
		}
		estimated = estimated || s.estimated
		acc.Add(s.delta, core.FirstTimestamp(s.ts, parsers.ModTime(file)))
	}

	if err := reads.Err(); err != nil {
		return core.Errorf("reading Cody storage: %v", err), nil
	}
	if estimated {
		return core.EstimatedActive(acc.Stats(), dir), nil
	}
	return core.Active(acc.Stats(), dir), nil
}
