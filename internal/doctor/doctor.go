// Package doctor checks which of the locations the providers read from
// exist on this machine.
package doctor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/samber/lo"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/tui"
)

const envMarkerSuffix = " environment variable"

type CheckKind string

const (
	KindPath CheckKind = "path"
	KindURL  CheckKind = "url"
	KindEnv  CheckKind = "env"
)

// Check is one PathsToCheck entry of one provider.
type Check struct {
	Provider string
	Target   string
	Kind     CheckKind
	Found    bool
}

type Report struct {
	Checks []Check
}

func (r Report) Found() int {
	return lo.CountBy(r.Checks, func(c Check) bool { return c.Found })
}

func (r Report) Total() int { return len(r.Checks) }

// EnvHint names an environment variable an API-backed provider reads.
type EnvHint struct {
	Name  string
	Usage string
}

var EnvHints = []EnvHint{
	{Name: "GITHUB_TOKEN", Usage: "GitHub Copilot"},
	{Name: "OPENAI_API_KEY", Usage: "OpenAI Codex"},
	{Name: "AWS_PROFILE", Usage: "AWS credentials for Amazon Q"},
}

// Options injects the outside world. Zero fields use the real OS.
type Options struct {
	Stat   func(string) (os.FileInfo, error)
	Getenv func(string) string
}

func (o Options) withDefaults() Options {
	if o.Stat == nil {
		o.Stat = os.Stat
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	return o
}

// Run evaluates every non-empty PathsToCheck entry of every provider in
// order. URLs count as found; env markers are found when the variable is
// set.
func Run(providers []core.Provider, opts Options) Report {
	opts = opts.withDefaults()
	var checks []Check
	for _, p := range providers {
		for _, target := range p.PathsToCheck() {
			if strings.TrimSpace(target) == "" {
				continue
			}
			checks = append(checks, evaluate(p.DisplayName(), target, opts))
		}
	}
	return Report{Checks: checks}
}

func evaluate(provider, target string, opts Options) Check {
	c := Check{Provider: provider, Target: target}
	switch {
	case strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://"):
		c.Kind = KindURL
		c.Found = true
	case strings.HasSuffix(target, envMarkerSuffix):
		c.Kind = KindEnv
		name := strings.TrimSpace(strings.TrimSuffix(target, envMarkerSuffix))
		c.Found = opts.Getenv(name) != ""
	default:
		c.Kind = KindPath
		_, err := opts.Stat(target)
		c.Found = err == nil
	}
	return c
}

// Write prints the report followed by the summary and env hints.
func Write(w io.Writer, r Report, color bool) error {
	var b strings.Builder
	b.WriteString(tui.SectionStyle.Render("Provider Path Detection:"))
	b.WriteString("\n\n")
	for _, c := range r.Checks {
		target := tui.DimStyle.Render(c.Target)
		if c.Found {
			target = tui.OKStyle.Render(c.Target)
		}
		fmt.Fprintf(&b, "  %s %s\n    %s\n\n", tui.CheckMark(c.Found), c.Provider, target)
	}

	fmt.Fprintf(&b, "%s: %s of %d paths found\n\n",
		tui.HeaderStyle.Render("Summary"),
		tui.OKStyle.Render(fmt.Sprint(r.Found())),
		r.Total())

	b.WriteString(tui.HeaderStyle.Render("Environment Variables for API Providers:"))
	b.WriteString("\n")
	for _, h := range EnvHints {
		fmt.Fprintf(&b, "  %s - %s\n", tui.LinkStyle.Render(h.Name), h.Usage)
	}

	out := b.String()
	if !color {
		out = ansi.Strip(out)
	}
	_, err := io.WriteString(w, out)
	return err
}
