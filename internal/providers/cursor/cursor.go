package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
	"github.com/a2zusage/a2zusage/internal/snapshot"
)

const ID = "cursor"

// maxWorkspaceDBs bounds how many per-workspace state databases are read,
// most recently modified first.
const maxWorkspaceDBs = 10

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Cursor",
		Info: core.ProviderInfo{
			Description: "SQLite database",
			Source:      core.SourceLocal,
			DocURL:      "https://cursor.com/settings",
		},
	}, deps)}
}

func (p *Provider) globalDB() string {
	return p.PathOr(p.Paths().CursorGlobalState())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return paths.FileExists(p.globalDB()) || paths.DirExists(p.Paths().CursorWorkspaceStorage())
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.globalDB(), p.Paths().CursorWorkspaceStorage()}
}

// record is one decoded usage item from a state database value.
type record struct {
	delta     core.UsageData
	ts        time.Time
	totalOnly bool
}

var valueChain = parsers.Chain[record]{
	{Name: "composer", Decode: decodeComposer},
	{Name: "chat", Decode: decodeChat},
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	global := p.globalDB()
	workspaceDir := p.Paths().CursorWorkspaceStorage()
	if !paths.FileExists(global) && !paths.DirExists(workspaceDir) {
		return core.NotFound(), nil
	}

	sources := append([]string{global}, recentWorkspaceDBs(workspaceDir, maxWorkspaceDBs)...)
	acc := p.NewAccumulator()

	var reads providerbase.Reads
	for _, src := range sources {
		err := snapshot.WithDB(ctx, src, func(db *sql.DB) error {
			return p.readDB(ctx, db, acc)
		})
		switch {
		case err == nil:
			reads.Record(nil)
		case errors.Is(err, snapshot.ErrSourceMissing):
		case ctx.Err() != nil:
			return core.Result{}, ctx.Err()
		default:
			p.Log().Debug("reading state database", "path", src, "error", err)
			reads.Record(err)
		}
	}

	if err := reads.Err(); err != nil {
		return core.Errorf("reading Cursor state: %v", err), nil
	}
	return core.Active(acc.Stats(), global), nil
}

func recentWorkspaceDBs(dir string, limit int) []string {
	if !paths.DirExists(dir) {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*", "state.vscdb"))
	if err != nil {
		return nil
	}
	type candidate struct {
		path  string
		mtime time.Time
	}
	candidates := lo.FilterMap(matches, func(m string, _ int) (candidate, bool) {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			return candidate{}, false
		}
		return candidate{path: m, mtime: info.ModTime()}, true
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].mtime.After(candidates[j].mtime)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return lo.Map(candidates, func(c candidate, _ int) string { return c.path })
}

func (p *Provider) readDB(ctx context.Context, db *sql.DB, acc *core.Accumulator) error {
	hasItems, err := snapshot.TableExists(ctx, db, "ItemTable")
	if err != nil {
		return err
	}
	if hasItems {
		err := p.readRows(ctx, db, acc, valueChain,
			`SELECT key, value FROM ItemTable WHERE key LIKE '%aichat%' OR key LIKE '%composer%' OR key LIKE '%chat%'`)
		if err != nil {
			return err
		}
	}

	hasKV, err := snapshot.TableExists(ctx, db, "cursorDiskKV")
	if err != nil {
		return err
	}
	if !hasKV {
		return nil
	}
	if err := p.readRows(ctx, db, acc, valueChain,
		`SELECT key, value FROM cursorDiskKV WHERE key LIKE 'composerData:%' OR key LIKE 'composer.%'`); err != nil {
		return err
	}
	return p.readRows(ctx, db, acc, parsers.Chain[record]{{Name: "bubble", Decode: decodeBubble}},
		`SELECT key, value FROM cursorDiskKV WHERE key LIKE 'bubbleId:%'`)
}

func (p *Provider) readRows(ctx context.Context, db *sql.DB, acc *core.Accumulator, chain parsers.Chain[record], query string) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			p.Log().Debug("skipping row", "error", err)
			continue
		}
		rec, _, ok := chain.Decode(value)
		if !ok {
			continue
		}
		if rec.totalOnly {
			acc.AddTotalOnly(rec.delta)
		} else {
			acc.Add(rec.delta, rec.ts)
		}
	}
	return rows.Err()
}

// decodeComposer matches composer sessions that carry a tokenCount object.
func decodeComposer(raw []byte) (record, bool) {
	if !gjson.ValidBytes(raw) {
		return record{}, false
	}
	doc := gjson.ParseBytes(raw)
	tc := doc.Get("tokenCount")
	if !tc.IsObject() {
		return record{}, false
	}
	delta := core.UsageData{
		InputTokens:  parsers.JSONUint(tc.Get("inputTokens")),
		OutputTokens: parsers.JSONUint(tc.Get("outputTokens")),
	}
	if delta.HasTokens() {
		delta.RequestCount = 1
	}
	return record{delta: delta, ts: parsers.FirstTime(doc, "createdAt", "updatedAt")}, true
}

// decodeChat matches legacy chat blobs. They carry no token counts, so
// assistant turns are counted as requests toward the total only.
func decodeChat(raw []byte) (record, bool) {
	if !gjson.ValidBytes(raw) {
		return record{}, false
	}
	doc := gjson.ParseBytes(raw)
	msgs := doc.Get("messages")
	if !msgs.IsArray() {
		return record{}, false
	}
	var n uint64
	msgs.ForEach(func(_, m gjson.Result) bool {
		if m.Get("role").String() == "assistant" {
			n++
		}
		return true
	})
	return record{delta: core.UsageData{RequestCount: n}, totalOnly: true}, true
}

func decodeBubble(raw []byte) (record, bool) {
	if !gjson.ValidBytes(raw) {
		return record{}, false
	}
	doc := gjson.ParseBytes(raw)
	tc := doc.Get("tokenCount")
	if !tc.IsObject() {
		return record{}, false
	}
	delta := core.UsageData{
		InputTokens:  parsers.JSONUint(tc.Get("inputTokens")),
		OutputTokens: parsers.JSONUint(tc.Get("outputTokens")),
	}
	if !delta.HasTokens() {
		return record{}, false
	}
	delta.RequestCount = 1
	return record{delta: delta, ts: parsers.JSONTime(doc.Get("createdAt"))}, true
}
