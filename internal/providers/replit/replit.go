package replit

import (
	"context"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const (
	ID       = "replit"
	usageURL = "https://replit.com/usage"
)

// Provider points at the Replit usage page. Replit keeps no local usage
// data and has no public usage API.
type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Replit",
		Info: core.ProviderInfo{
			Description: "Web dashboard only",
			Source:      core.SourceLink,
			DocURL:      usageURL,
		},
	}, deps)}
}

func (p *Provider) IsAvailable(_ context.Context) bool { return true }

func (p *Provider) PathsToCheck() []string { return []string{usageURL} }

func (p *Provider) GetUsage(_ context.Context, _ *core.TimeRange) (core.Result, error) {
	return core.LinkOnly(usageURL), nil
}
