package github_copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const (
	ID             = "github-copilot"
	defaultBaseURL = "https://api.github.com"
	userAgent      = "a2zusage"
	ghTimeout      = 5 * time.Second
)

// TokenEnvKeys are checked in order before the gh CLI and hosts.json.
var TokenEnvKeys = []string{"A2Z_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}

type Provider struct {
	providerbase.Base
	baseURL string
	ghToken func(ctx context.Context) (string, error)
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{
		Base: providerbase.New(providerbase.Spec{
			ID:   ID,
			Name: "GitHub Copilot",
			Info: core.ProviderInfo{
				Description: "API + Local logs",
				Source:      core.SourceHybrid,
				DocURL:      "https://github.com/settings/copilot",
			},
		}, deps),
		baseURL: defaultBaseURL,
		ghToken: ghAuthToken,
	}
}

// copilotInternalUser is the subset of /copilot_internal/user we read.
// Only limited (free plan) users get a usage counter.
type copilotInternalUser struct {
	LimitedUserUsage     *uint64 `json:"limited_user_usage"`
	LimitedUserLimit     *uint64 `json:"limited_user_limit"`
	LimitedUserResetDate string  `json:"limited_user_reset_date"`
	ChatEnabled          *bool   `json:"chat_enabled"`
}

func (p *Provider) hostsFile() string {
	return p.PathOr(p.Paths().CopilotHostsFile())
}

func (p *Provider) IsAvailable(ctx context.Context) bool {
	_, ok := p.token(ctx)
	return ok
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.hostsFile(), p.Paths().VSCodeLogs()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	token, ok := p.token(ctx)
	if !ok {
		return core.NoKey(), nil
	}

	user, status, err := p.fetchUser(ctx, token)
	switch {
	case err == nil:
		var stats core.UsageStats
		if user.LimitedUserUsage != nil {
			// The counter covers the current billing period; there is no
			// token breakdown.
			stats.ThisMonth.RequestCount = *user.LimitedUserUsage
			stats.Total.RequestCount = *user.LimitedUserUsage
		}
		return core.Active(stats, "GitHub API"), nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.AuthRequired(), nil
	case ctx.Err() != nil:
		return core.Result{}, ctx.Err()
	}

	p.Log().Debug("copilot user endpoint unavailable", "status", status, "error", err)
	if paths.FileExists(p.hostsFile()) {
		return core.Active(core.UsageStats{}, "Installed (API data unavailable)"), nil
	}
	return core.NotFound(), nil
}

func (p *Provider) token(ctx context.Context) (string, bool) {
	if v, ok := p.FirstEnv(TokenEnvKeys...); ok {
		return v, true
	}
	if p.ghToken != nil {
		tctx, cancel := context.WithTimeout(ctx, ghTimeout)
		out, err := p.ghToken(tctx)
		cancel()
		out = strings.TrimSpace(out)
		if err == nil && strings.HasPrefix(out, "gh") {
			return out, true
		}
	}
	return hostsToken(p.hostsFile())
}

func ghAuthToken(ctx context.Context) (string, error) {
	binary, err := exec.LookPath("gh")
	if err != nil {
		return "", err
	}
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "auth", "token")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func hostsToken(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(data) {
		return "", false
	}
	tok := gjson.GetBytes(data, `github\.com.oauth_token`).String()
	return tok, tok != ""
}

func (p *Provider) fetchUser(ctx context.Context, token string) (copilotInternalUser, int, error) {
	var user copilotInternalUser
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/copilot_internal/user", nil)
	if err != nil {
		return user, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.HTTPClient().Do(req)
	if err != nil {
		return user, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return user, resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		p.Log().Debug("copilot user endpoint rejected request",
			"status", resp.StatusCode,
			"token", parsers.RedactToken(token),
			"headers", parsers.RedactHeaders(resp.Header))
		return user, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return user, resp.StatusCode, fmt.Errorf("parsing response: %w", err)
	}
	return user, resp.StatusCode, nil
}
