package openai_codex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const (
	ID             = "openai-codex"
	defaultBaseURL = "https://api.openai.com"
	dateLayout     = "2006-01-02"
)

// KeyEnvKeys are checked in order.
var KeyEnvKeys = []string{"A2Z_OPENAI_KEY", "OPENAI_API_KEY", "OPENAI_KEY"}

// Failure messages shown for each class of API failure.
const (
	msgUnauthorized = "Invalid API key. Please check your OPENAI_API_KEY."
	msgForbidden    = "API key lacks permission to access organization usage data (requires org admin or usage:read scope)."
	msgNotFound     = "Usage API endpoint not found. This may require an organization account."
	msgRateLimited  = "Rate limited by OpenAI API. Please try again later."
	msgNetwork      = "Network error connecting to OpenAI API."
	msgParse        = "Failed to parse OpenAI API response."
)

type Provider struct {
	providerbase.Base
	baseURL string
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{
		Base: providerbase.New(providerbase.Spec{
			ID:   ID,
			Name: "OpenAI Codex",
			Info: core.ProviderInfo{
				Description: "Organization usage API",
				Source:      core.SourceAPI,
				DocURL:      "https://platform.openai.com/usage",
			},
		}, deps),
		baseURL: defaultBaseURL,
	}
}

type usageResponse struct {
	Data []usageEntry `json:"data"`
}

type usageEntry struct {
	AggregationTimestamp  *int64  `json:"aggregation_timestamp"`
	NRequests             *uint64 `json:"n_requests"`
	NContextTokensTotal   *uint64 `json:"n_context_tokens_total"`
	NGeneratedTokensTotal *uint64 `json:"n_generated_tokens_total"`
	SnapshotID            string  `json:"snapshot_id"`
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	_, ok := p.FirstEnv(KeyEnvKeys...)
	return ok
}

func (p *Provider) PathsToCheck() []string {
	return []string{"OPENAI_API_KEY environment variable"}
}

func (p *Provider) GetUsage(ctx context.Context, hint *core.TimeRange) (core.Result, error) {
	key, ok := p.FirstEnv(KeyEnvKeys...)
	if !ok {
		return core.NoKey(), nil
	}

	windows := p.Windows()
	start := windows.Month.Start
	if hint != nil && !hint.Start.IsZero() {
		start = hint.Start
	}

	resp, status, err := p.fetchUsage(ctx, key, start)
	if err != nil {
		if ctx.Err() != nil {
			return core.Result{}, ctx.Err()
		}
		p.Log().Debug("usage request failed", "status", status, "error", err)
		return core.Errorf("%s", failureMessage(status, err)), nil
	}

	// Undated entries can only be placed in the month when the query did
	// not reach back before it.
	monthBounded := !start.Before(windows.Month.Start)

	var stats core.UsageStats
	for _, e := range resp.Data {
		delta := core.UsageData{
			InputTokens:  deref(e.NContextTokensTotal),
			OutputTokens: deref(e.NGeneratedTokensTotal),
			RequestCount: deref(e.NRequests),
		}
		if delta.InputTokens+delta.OutputTokens > 0 {
			delta.EstimatedCost = p.Pricing().Cost(e.SnapshotID, delta)
		}
		stats.Total.Add(delta)
		if e.AggregationTimestamp == nil {
			if monthBounded {
				stats.ThisMonth.Add(delta)
			}
			continue
		}
		ts := parsers.UnixAuto(*e.AggregationTimestamp)
		if windows.Month.Contains(ts) {
			stats.ThisMonth.Add(delta)
		}
		if windows.Today.Contains(ts) {
			stats.Today.Add(delta)
		}
		if windows.Week.Contains(ts) {
			stats.ThisWeek.Add(delta)
		}
	}
	return core.Active(stats, "OpenAI API"), nil
}

type parseError struct{ err error }

func (e parseError) Error() string { return "parsing response: " + e.err.Error() }

func failureMessage(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return msgUnauthorized
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusTooManyRequests:
		return msgRateLimited
	}
	var perr parseError
	if errors.As(err, &perr) {
		return msgParse
	}
	return msgNetwork
}

func (p *Provider) fetchUsage(ctx context.Context, key string, start time.Time) (usageResponse, int, error) {
	var out usageResponse
	q := url.Values{}
	q.Set("start_date", start.Format(dateLayout))
	q.Set("end_date", p.Now().Format(dateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/organization/usage?"+q.Encode(), nil)
	if err != nil {
		return out, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient().Do(req)
	if err != nil {
		return out, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Log().Debug("usage API rejected request",
			"status", resp.StatusCode,
			"key", parsers.RedactToken(key),
			"headers", parsers.RedactHeaders(resp.Header, "openai-organization"))
		return out, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return out, resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, resp.StatusCode, parseError{err}
	}
	return out, resp.StatusCode, nil
}

func deref(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
