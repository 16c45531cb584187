package providers

import (
	"strings"

	"github.com/samber/lo"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/providers/amazon_q"
	"github.com/a2zusage/a2zusage/internal/providers/claude_code"
	"github.com/a2zusage/a2zusage/internal/providers/cline"
	"github.com/a2zusage/a2zusage/internal/providers/cursor"
	"github.com/a2zusage/a2zusage/internal/providers/gemini_cli"
	"github.com/a2zusage/a2zusage/internal/providers/gemini_code_assist"
	"github.com/a2zusage/a2zusage/internal/providers/github_copilot"
	"github.com/a2zusage/a2zusage/internal/providers/openai_codex"
	"github.com/a2zusage/a2zusage/internal/providers/opencode"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
	"github.com/a2zusage/a2zusage/internal/providers/replit"
	"github.com/a2zusage/a2zusage/internal/providers/sourcegraph_cody"
	"github.com/a2zusage/a2zusage/internal/providers/tabnine"
	"github.com/a2zusage/a2zusage/internal/providers/warp"
	"github.com/a2zusage/a2zusage/internal/providers/windsurf"
)

// AllProviders returns every adapter in report order.
func AllProviders(deps providerbase.Deps) []core.Provider {
	return []core.Provider{
		claude_code.New(deps),
		cursor.New(deps),
		github_copilot.New(deps),
		cline.New(deps),
		windsurf.New(deps),
		warp.New(deps),
		opencode.New(deps),
		openai_codex.New(deps),
		gemini_cli.New(deps),
		amazon_q.New(deps),
		tabnine.New(deps),
		gemini_code_assist.New(deps),
		sourcegraph_cody.New(deps),
		replit.New(deps),
	}
}

// ByID finds a provider by its exact ID, ignoring case.
func ByID(all []core.Provider, id string) (core.Provider, bool) {
	return lo.Find(all, func(p core.Provider) bool {
		return strings.EqualFold(p.ID(), id)
	})
}

// Filter keeps providers whose ID contains query or whose display name
// contains it case-insensitively. An empty query keeps everything.
func Filter(all []core.Provider, query string) []core.Provider {
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}
	lower := strings.ToLower(query)
	return lo.Filter(all, func(p core.Provider, _ int) bool {
		return strings.Contains(p.ID(), query) ||
			strings.Contains(strings.ToLower(p.DisplayName()), lower)
	})
}

// Enabled keeps the providers whose ID passes enabled.
func Enabled(all []core.Provider, enabled func(id string) bool) []core.Provider {
	return lo.Filter(all, func(p core.Provider, _ int) bool { return enabled(p.ID()) })
}

// Describe returns p's metadata, or a local-source placeholder for
// providers that do not implement core.Describer.
func Describe(p core.Provider) core.ProviderInfo {
	if d, ok := p.(core.Describer); ok {
		return d.Describe()
	}
	return core.ProviderInfo{Source: core.SourceLocal}
}
