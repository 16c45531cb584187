package gemini_code_assist

import (
	"context"
	"os"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const ID = "gemini-code-assist"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Gemini Assist",
		Info: core.ProviderInfo{
			Description: "Install detection only; usage lives in Google Cloud Console",
			Source:      core.SourceLocal,
			DocURL:      "https://console.cloud.google.com",
		},
	}, deps)}
}

func (p *Provider) extensionDir() string {
	return p.PathOr(p.Paths().GeminiCodeAssistDir())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return paths.DirExists(p.extensionDir())
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.extensionDir()}
}

// GetUsage only detects the extension. Its usage is not recorded locally.
func (p *Provider) GetUsage(_ context.Context, _ *core.TimeRange) (core.Result, error) {
	entries, err := os.ReadDir(p.extensionDir())
	if err != nil || len(entries) == 0 {
		return core.NotFound(), nil
	}
	return core.Active(core.UsageStats{}, "Installed (see Google Cloud Console for usage)"), nil
}
