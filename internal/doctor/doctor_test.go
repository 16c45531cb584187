package doctor

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/providers/providertest"
)

type fakeProvider struct {
	name  string
	paths []string
}

func (f fakeProvider) ID() string                      { return f.name }
func (f fakeProvider) DisplayName() string             { return f.name }
func (f fakeProvider) IsAvailable(context.Context) bool { return false }
func (f fakeProvider) PathsToCheck() []string          { return f.paths }
func (f fakeProvider) GetUsage(context.Context, *core.TimeRange) (core.Result, error) {
	return core.NotFound(), nil
}

func TestRun(t *testing.T) {
	home := t.TempDir()
	present := providertest.Write(t, filepath.Join(home, "state.vscdb"), "x")
	missing := filepath.Join(home, "nope")

	providers := []core.Provider{
		fakeProvider{name: "Cursor", paths: []string{present, "", missing}},
		fakeProvider{name: "Replit", paths: []string{"https://replit.com/usage"}},
		fakeProvider{name: "OpenAI Codex", paths: []string{"OPENAI_API_KEY environment variable", "OPENAI_KEY environment variable"}},
	}
	env := map[string]string{"OPENAI_API_KEY": "sk-test"}

	report := Run(providers, Options{Getenv: func(k string) string { return env[k] }})

	require.Len(t, report.Checks, 5, "empty entries are skipped")
	assert.Equal(t, Check{Provider: "Cursor", Target: present, Kind: KindPath, Found: true}, report.Checks[0])
	assert.Equal(t, Check{Provider: "Cursor", Target: missing, Kind: KindPath, Found: false}, report.Checks[1])
	assert.Equal(t, KindURL, report.Checks[2].Kind)
	assert.True(t, report.Checks[2].Found)
	assert.True(t, report.Checks[3].Found)
	assert.Equal(t, KindEnv, report.Checks[4].Kind)
	assert.False(t, report.Checks[4].Found)

	assert.Equal(t, 3, report.Found())
	assert.Equal(t, 5, report.Total())
}

func TestWrite(t *testing.T) {
	report := Report{Checks: []Check{
		{Provider: "Claude Code", Target: "/home/u/.claude/projects", Kind: KindPath, Found: true},
		{Provider: "Cursor", Target: "/home/u/.config/Cursor", Kind: KindPath},
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report, false))
	out := buf.String()

	assert.Contains(t, out, "Provider Path Detection:")
	assert.Contains(t, out, "  ✓ Claude Code\n    /home/u/.claude/projects\n")
	assert.Contains(t, out, "  ✗ Cursor\n")
	assert.Contains(t, out, "Summary: 1 of 2 paths found")
	assert.Contains(t, out, "GITHUB_TOKEN - GitHub Copilot")
	assert.Contains(t, out, "AWS_PROFILE - AWS credentials for Amazon Q")
}
