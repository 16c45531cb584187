package warp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
	"github.com/a2zusage/a2zusage/internal/snapshot"
)

const ID = "warp"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Warp AI",
		Info: core.ProviderInfo{
			Description: "SQLite database",
			Source:      core.SourceLocal,
			DocURL:      "https://www.warp.dev/pricing",
		},
	}, deps)}
}

// tokenUsageChain reads one element of conversation_usage_metadata.token_usage.
var tokenUsageChain = parsers.Chain[uint64]{
	{Name: "total", Decode: func(raw []byte) (uint64, bool) {
		v := gjson.GetBytes(raw, "total_tokens")
		if !v.Exists() || v.Type == gjson.Null {
			return 0, false
		}
		return parsers.JSONUint(v), true
	}},
	{Name: "warp+byok", Decode: func(raw []byte) (uint64, bool) {
		n := parsers.JSONUint(gjson.GetBytes(raw, "warp_tokens")) + parsers.JSONUint(gjson.GetBytes(raw, "byok_tokens"))
		return n, n > 0
	}},
}

func (p *Provider) dbPath() string {
	return p.PathOr(p.Paths().WarpDB())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return paths.FileExists(p.dbPath())
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.dbPath(), p.Paths().WarpLogsDir()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	src := p.dbPath()
	if !paths.FileExists(src) {
		return core.NotFound(), nil
	}

	var stats core.UsageStats
	err := snapshot.WithDB(ctx, src, func(db *sql.DB) error {
		conv, err := p.readConversations(ctx, db)
		if err != nil {
			return err
		}
		queries, err := p.readQueries(ctx, db)
		if err != nil {
			return err
		}
		stats = conv
		// ai_queries rows duplicate agent turns; they only stand in for
		// request counts when no conversation carried usage.
		if stats.Total.RequestCount == 0 {
			stats.Add(queries)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, snapshot.ErrSourceMissing):
		return core.NotFound(), nil
	case ctx.Err() != nil:
		return core.Result{}, ctx.Err()
	default:
		return core.Errorf("%v", err), nil
	}
	if stats.Total.HasTokens() {
		return core.EstimatedActive(stats, src), nil
	}
	return core.Active(stats, src), nil
}

func (p *Provider) readConversations(ctx context.Context, db *sql.DB) (core.UsageStats, error) {
	acc := p.NewAccumulator()
	ok, err := snapshot.TableExists(ctx, db, "agent_conversations")
	if err != nil || !ok {
		return acc.Stats(), err
	}

	rows, err := db.QueryContext(ctx, `SELECT conversation_data, last_modified_at FROM agent_conversations`)
	if err != nil {
		return acc.Stats(), fmt.Errorf("querying agent_conversations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data, modified sql.NullString
		if err := rows.Scan(&data, &modified); err != nil {
			p.Log().Debug("skipping conversation row", "error", err)
			continue
		}
		if !gjson.Valid(data.String) {
			continue
		}
		var total uint64
		gjson.Get(data.String, "conversation_usage_metadata.token_usage").ForEach(func(_, tu gjson.Result) bool {
			if n, _, ok := tokenUsageChain.Decode([]byte(tu.Raw)); ok {
				total += n
			}
			return true
		})
		if total == 0 {
			continue
		}
		in, out := parsers.SplitEstimate(total)
		acc.Add(core.UsageData{InputTokens: in, OutputTokens: out, RequestCount: 1},
			parsers.ParseTimestamp(modified.String))
	}
	return acc.Stats(), rows.Err()
}

func (p *Provider) readQueries(ctx context.Context, db *sql.DB) (core.UsageStats, error) {
	acc := p.NewAccumulator()
	ok, err := snapshot.TableExists(ctx, db, "ai_queries")
	if err != nil || !ok {
		return acc.Stats(), err
	}

	rows, err := db.QueryContext(ctx, `SELECT start_ts FROM ai_queries`)
	if err != nil {
		return acc.Stats(), fmt.Errorf("querying ai_queries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var start sql.NullString
		if err := rows.Scan(&start); err != nil {
			continue
		}
		acc.Add(core.UsageData{RequestCount: 1}, parsers.ParseTimestamp(start.String))
	}
	return acc.Stats(), rows.Err()
}
