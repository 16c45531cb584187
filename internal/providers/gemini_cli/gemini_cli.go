package gemini_cli

import (
	"context"
	"encoding/json"
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

const (
	ID = "gemini-cli"

	// pricingModel prices records that do not name their model.
	pricingModel = "gemini-2.0-flash"

	telemetryLogName = "telemetry.log"
	wrapperLogName   = "a2zusage-telemetry.jsonl"

	encryptedReason = "Token data is encrypted in .pb files. Use /stats command in Gemini CLI for usage."
)

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Gemini CLI",
		Info: core.ProviderInfo{
			Description: "Session files + telemetry",
			Source:      core.SourceLocal,
			DocURL:      "https://github.com/google-gemini/gemini-cli",
		},
	}, deps)}
}

// layout holds the locations read under the Gemini config dir.
type layout struct {
	config        string
	telemetry     string
	wrapper       string
	tmp           string
	conversations string
}

func (p *Provider) layout() layout {
	r := p.Paths()
	if root := p.PathOr(""); root != "" {
		return layout{
			config:        root,
			telemetry:     filepath.Join(root, telemetryLogName),
			wrapper:       filepath.Join(root, wrapperLogName),
			tmp:           filepath.Join(root, "tmp"),
			conversations: filepath.Join(root, "antigravity", "conversations"),
		}
	}
	return layout{
		config:        r.GeminiDir(),
		telemetry:     r.GeminiTelemetryLog(),
		wrapper:       r.GeminiWrapperTelemetry(),
		tmp:           r.GeminiTmpDir(),
		conversations: r.GeminiConversationsDir(),
	}
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	l := p.layout()
	return lo.SomeBy([]string{l.conversations, l.telemetry, l.config}, paths.Exists)
}

func (p *Provider) PathsToCheck() []string {
	l := p.layout()
	return []string{l.conversations, l.telemetry, l.config}
}

type geminiChatFile struct {
	SessionID string              `json:"sessionId"`
	Messages  []geminiChatMessage `json:"messages"`
}

type geminiChatMessage struct {
	Type      string              `json:"type"`
	Timestamp string              `json:"timestamp"`
	Model     string              `json:"model"`
	Tokens    *geminiMessageToken `json:"tokens,omitempty"`
}

type geminiMessageToken struct {
	Input    int64 `json:"input"`
	Output   int64 `json:"output"`
	Cached   int64 `json:"cached"`
	Thoughts int64 `json:"thoughts"`
	Tool     int64 `json:"tool"`
	Total    int64 `json:"total"`
}

// wrapperEntry is one line written by the a2zusage gemini wrapper.
type wrapperEntry struct {
	Timestamp    string `json:"timestamp"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	CachedTokens int64  `json:"cached_tokens"`
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	l := p.layout()
	hasWrapper := paths.FileExists(l.wrapper)
	if !hasWrapper && !paths.Exists(l.config) && !paths.Exists(l.telemetry) && !paths.Exists(l.conversations) {
		return core.NotFound(), nil
	}

	acc := p.NewAccumulator()
	var reads providerbase.Reads
	if hasWrapper {
		err := p.readWrapper(ctx, l.wrapper, acc)
		if err != nil {
			if ctx.Err() != nil {
				return core.Result{}, ctx.Err()
			}
			p.Log().Debug("reading wrapper telemetry", "error", err)
		}
		reads.Record(err)
	}
	if err := p.readSessions(ctx, l.tmp, acc, &reads); err != nil {
		return core.Result{}, err
	}

	if acc.Stats().Total.HasTokens() {
		source := l.tmp
		if hasWrapper {
			source = "a2zusage telemetry + native sessions"
		}
		return core.Active(acc.Stats(), source), nil
	}

	// Older releases only left telemetry logs behind.
	if paths.FileExists(l.telemetry) {
		if err := p.readLogLines(ctx, l.telemetry, acc); err != nil && ctx.Err() != nil {
			return core.Result{}, ctx.Err()
		}
	}
	if err := p.readConfigDir(ctx, l.config, acc); err != nil {
		return core.Result{}, err
	}

	source := l.config
	if paths.FileExists(l.telemetry) {
		source = l.telemetry
	}
	if acc.Stats().Total.IsZero() && hasEncryptedConversations(l.conversations) {
		return core.Unsupported(encryptedReason, source), nil
	}
	if err := reads.Err(); err != nil && acc.Stats().Total.IsZero() {
		return core.Errorf("reading Gemini sessions: %v", err), nil
	}
	return core.Active(acc.Stats(), source), nil
}

func (p *Provider) readWrapper(ctx context.Context, path string, acc *core.Accumulator) error {
	return parsers.ScanLines(ctx, path, func(lineNo int, line []byte) error {
		var e wrapperEntry
		if err := json.Unmarshal(line, &e); err != nil {
			p.Log().Debug("malformed wrapper line", "line", lineNo)
			return nil
		}
		delta := core.UsageData{
			InputTokens:     parsers.ClampUint(e.InputTokens),
			OutputTokens:    parsers.ClampUint(e.OutputTokens),
			CacheReadTokens: parsers.ClampUint(e.CachedTokens),
		}
		p.fold(acc, delta, e.Model, parsers.ParseTimestamp(e.Timestamp))
		return nil
	})
}

// readSessions folds the model turns of ~/.gemini/tmp/<project>/chats/*.json.
func (p *Provider) readSessions(ctx context.Context, tmpDir string, acc *core.Accumulator, reads *providerbase.Reads) error {
	if !paths.DirExists(tmpDir) {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(tmpDir, "*", "chats", "*.json"))
	if err != nil {
		return nil
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		chat, err := readGeminiChatFile(file)
		reads.Record(err)
		if err != nil {
			p.Log().Debug("skipping chat file", "file", file, "error", err)
			continue
		}
		for _, msg := range chat.Messages {
			if msg.Type != "gemini" || msg.Tokens == nil {
				continue
			}
			delta := core.UsageData{
				InputTokens:     parsers.ClampUint(msg.Tokens.Input),
				OutputTokens:    parsers.ClampUint(msg.Tokens.Output + msg.Tokens.Thoughts),
				CacheReadTokens: parsers.ClampUint(msg.Tokens.Cached),
			}
			p.fold(acc, delta, msg.Model, parsers.ParseTimestamp(msg.Timestamp))
		}
	}
	return nil
}

func readGeminiChatFile(path string) (*geminiChatFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chat geminiChatFile
	if err := json.NewDecoder(f).Decode(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// fold adds a record with an explicit input/output split. Records without
// a timestamp count toward the total only.
func (p *Provider) fold(acc *core.Accumulator, delta core.UsageData, model string, ts time.Time) {
	if delta.InputTokens == 0 && delta.OutputTokens == 0 {
		return
	}
	delta.RequestCount = 1
	if model == "" {
		model = pricingModel
	}
	delta.EstimatedCost = p.Pricing().Cost(model, delta)
	acc.Add(delta, ts)
}

// logEntry is a legacy telemetry record.
type logEntry struct {
	delta     core.UsageData
	ts        time.Time
	totalOnly bool
}

func decodeLogEntry(obj gjson.Result) (logEntry, bool) {
	if !obj.IsObject() {
		return logEntry{}, false
	}
	e := logEntry{
		delta: core.UsageData{
			InputTokens:  parsers.JSONUint(obj.Get("input_token_count")),
			OutputTokens: parsers.JSONUint(obj.Get("output_token_count")),
		},
		ts: parsers.JSONTime(obj.Get("timestamp")),
	}
	if e.delta.InputTokens == 0 && e.delta.OutputTokens == 0 {
		// A combined count is kept as input rather than split.
		e.delta.InputTokens = parsers.JSONUint(obj.Get("total_token_count"))
		e.totalOnly = true
	}
	return e, e.delta.InputTokens > 0 || e.delta.OutputTokens > 0
}

var documentChain = parsers.Chain[[]logEntry]{
	{Name: "array", Decode: func(raw []byte) ([]logEntry, bool) {
		doc := gjson.ParseBytes(raw)
		if !doc.IsArray() {
			return nil, false
		}
		var out []logEntry
		doc.ForEach(func(_, v gjson.Result) bool {
			if e, ok := decodeLogEntry(v); ok {
				out = append(out, e)
			}
			return true
		})
		return out, true
	}},
	{Name: "object", Decode: func(raw []byte) ([]logEntry, bool) {
		doc := gjson.ParseBytes(raw)
		if !doc.IsObject() {
			return nil, false
		}
		if e, ok := decodeLogEntry(doc); ok {
			return []logEntry{e}, true
		}
		return nil, true
	}},
}

func (p *Provider) foldLogEntry(acc *core.Accumulator, e logEntry) {
	e.delta.RequestCount = 1
	if !e.totalOnly {
		e.delta.EstimatedCost = p.Pricing().Cost(pricingModel, e.delta)
	}
	acc.Add(e.delta, e.ts)
}

func (p *Provider) readLogLines(ctx context.Context, path string, acc *core.Accumulator) error {
	return parsers.ScanLines(ctx, path, func(_ int, line []byte) error {
		if !gjson.ValidBytes(line) {
			return nil
		}
		if e, ok := decodeLogEntry(gjson.ParseBytes(line)); ok {
			p.foldLogEntry(acc, e)
		}
		return nil
	})
}

func (p *Provider) readConfigDir(ctx context.Context, dir string, acc *core.Accumulator) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := de.Name()
		if de.IsDir() || name == telemetryLogName || name == wrapperLogName {
			continue
		}
		path := filepath.Join(dir, name)
		switch {
		case strings.HasSuffix(name, ".log"), strings.HasSuffix(name, ".jsonl"):
			if err := p.readLogLines(ctx, path, acc); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		case strings.HasSuffix(name, ".json"):
			raw, err := os.ReadFile(path)
			if err != nil || !gjson.ValidBytes(raw) {
				continue
			}
			logs, _, _ := documentChain.Decode(raw)
			for _, e := range logs {
				p.foldLogEntry(acc, e)
			}
		}
	}
	return nil
}

func hasEncryptedConversations(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pb"))
	return err == nil && len(matches) > 0
}
