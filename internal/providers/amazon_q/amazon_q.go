package amazon_q

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

const ID = "amazon-q"

type Provider struct {
	providerbase.Base
}

func New(deps providerbase.Deps) *Provider {
	return &Provider{Base: providerbase.New(providerbase.Spec{
		ID:   ID,
		Name: "Amazon Q",
		Info: core.ProviderInfo{
			Description: "Developer log file",
			Source:      core.SourceLocal,
			DocURL:      "https://aws.amazon.com/q/developer/",
		},
	}, deps)}
}

// entry is one decoded log line. estimated marks an input/output split
// derived from a combined count.
type entry struct {
	delta     core.UsageData
	ts        time.Time
	estimated bool
}

var lineChain = parsers.Chain[entry]{
	{Name: "json", Decode: decodeJSON},
	{Name: "text", Decode: decodeText},
}

func (p *Provider) logFile() string {
	return p.PathOr(p.Paths().AmazonQLog())
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	return lo.SomeBy(p.PathsToCheck(), paths.FileExists)
}

func (p *Provider) PathsToCheck() []string {
	return []string{p.logFile(), p.Paths().AWSConfig()}
}

func (p *Provider) GetUsage(ctx context.Context, _ *core.TimeRange) (core.Result, error) {
	logFile := p.logFile()
	hasLog := paths.FileExists(logFile)
	hasConfig := paths.FileExists(p.Paths().AWSConfig())
	if !hasLog && !hasConfig {
		return core.NotFound(), nil
	}

	acc := p.NewAccumulator()
	var estimated bool
	if hasLog {
		mtime := parsers.ModTime(logFile)
		err := parsers.ScanLines(ctx, logFile, func(_ int, line []byte) error {
			e, _, ok := lineChain.Decode(line)
			if !ok || !e.delta.HasTokens() {
				return nil
			}
			e.delta.RequestCount = 1
			estimated = estimated || e.estimated
			acc.Add(e.delta, core.FirstTimestamp(e.ts, mtime))
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return core.Result{}, ctx.Err()
			}
			return core.Errorf("reading Amazon Q log: %v", err), nil
		}
	}

	stats := acc.Stats()
	if !stats.Total.HasTokens() && hasConfig {
		return core.Active(stats, "Configured (no local usage data)"), nil
	}
	if estimated {
		return core.EstimatedActive(stats, logFile), nil
	}
	return core.Active(stats, logFile), nil
}

// decodeJSON claims every JSON object line, even one without token
// fields, so its text never reaches decodeText.
func decodeJSON(line []byte) (entry, bool) {
	if !gjson.ValidBytes(line) {
		return entry{}, false
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return entry{}, false
	}
	e := entry{
		delta: core.UsageData{
			InputTokens:  parsers.JSONUint(doc.Get("input_tokens")),
			OutputTokens: parsers.JSONUint(doc.Get("output_tokens")),
		},
		ts: parsers.JSONTime(doc.Get("timestamp")),
	}
	if !e.delta.HasTokens() {
		total := parsers.JSONUint(doc.Get("tokens"))
		e.delta.InputTokens, e.delta.OutputTokens = parsers.SplitEstimate(total)
		e.estimated = total > 0
	}
	return e, true
}

var (
	inputRe   = regexp.MustCompile(`(?i)\binput_tokens?[:\s=]+(\d+)`)
	outputRe  = regexp.MustCompile(`(?i)\boutput_tokens?[:\s=]+(\d+)`)
	combineRe = regexp.MustCompile(`(?i)\btokens?[:\s=]+(\d+)`)
	isoTimeRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)
)

// decodeText pulls token counts out of free-form log lines. Explicit
// input/output counts are used as is; a bare count is split.
func decodeText(line []byte) (entry, bool) {
	e := entry{ts: parsers.ParseTimestamp(string(isoTimeRe.Find(line)))}
	in, hasIn := firstNumber(inputRe, line)
	out, hasOut := firstNumber(outputRe, line)
	if hasIn || hasOut {
		e.delta.InputTokens, e.delta.OutputTokens = in, out
	} else if total, ok := firstNumber(combineRe, line); ok {
		e.delta.InputTokens, e.delta.OutputTokens = parsers.SplitEstimate(total)
		e.estimated = true
	}
	return e, e.delta.HasTokens()
}

func firstNumber(re *regexp.Regexp, line []byte) (uint64, bool) {
	m := re.FindSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(string(m[1]), 10, 64)
	return n, err == nil
}
