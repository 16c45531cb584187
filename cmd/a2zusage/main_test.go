package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providertest"
)

type harness struct {
	home       string
	configPath string
	env        map[string]string
	out        bytes.Buffer
	errOut     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		home:       filepath.Join(dir, "home"),
		configPath: filepath.Join(dir, "config", "config.yaml"),
		env:        map[string]string{},
	}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	getenv := func(k string) string { return h.env[k] }
	a := &app{
		in:       strings.NewReader(""),
		out:      &h.out,
		errOut:   &h.errOut,
		resolver: paths.Resolver{Home: h.home, GOOS: runtime.GOOS, Getenv: getenv},
		now:      func() time.Time { return providertest.Now },
		skipEnv:  true,
	}
	root := newRootCommand(a)
	root.SetArgs(append([]string{"--config", h.configPath}, args...))
	return root.Execute()
}

func writeClaudeSession(t *testing.T, home string) {
	t.Helper()
	ts := providertest.Ts(providertest.Now.Add(-time.Hour))
	providertest.Write(t, filepath.Join(home, ".claude", "projects", "demo", "session.jsonl"),
		`{"type":"assistant","timestamp":"`+ts+`","costUSD":0.5,"requestId":"r1","message":{"id":"m1","model":"claude-sonnet-4","usage":{"input_tokens":1000,"output_tokens":500}}}`+"\n")
}

func TestUsage_NoMatchingProviders(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "--tool", "does-not-exist"))
	assert.Equal(t, "No matching providers found.\n", h.out.String())
}

func TestUsage_JSON(t *testing.T) {
	h := newHarness(t)
	writeClaudeSession(t, h.home)

	require.NoError(t, h.run(t, "-t", "claude", "-f", "json"))

	var results []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Usage  struct {
			Today struct {
				InputTokens  uint64  `json:"input_tokens"`
				OutputTokens uint64  `json:"output_tokens"`
				Cost         float64 `json:"estimated_cost"`
			} `json:"today"`
		} `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &results), h.out.String())
	require.Len(t, results, 1)
	assert.Equal(t, "claude-code", results[0].Name)
	assert.Equal(t, "active", results[0].Status)
	assert.EqualValues(t, 1000, results[0].Usage.Today.InputTokens)
	assert.EqualValues(t, 500, results[0].Usage.Today.OutputTokens)
	assert.InDelta(t, 0.5, results[0].Usage.Today.Cost, 1e-9)
}

func TestUsage_TableWithoutTerminal(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "-t", "replit", "-v"))

	out := h.out.String()
	assert.Contains(t, out, "a2zusage - AI Coding Tools Usage Tracker")
	assert.Contains(t, out, "Scanning AI tools...")
	assert.Contains(t, out, "→ Link")
	assert.Contains(t, out, "Data Sources:")
	assert.Contains(t, out, "https://replit.com/usage")
	assert.NotContains(t, out, "\x1b[", "plain output for pipes")
}

func TestUsage_CSVSkipsBanner(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "-t", "replit", "-f", "csv"))
	assert.True(t, strings.HasPrefix(h.out.String(), "Tool,Status,"))
	assert.Contains(t, h.out.String(), "Replit,Link Only,0,0,0,0,0,0,0.00")
}

func TestUsage_DisabledProvidersAreSkipped(t *testing.T) {
	h := newHarness(t)
	providertest.Write(t, h.configPath, "disabled: [replit]\n")
	require.NoError(t, h.run(t, "-t", "replit"))
	assert.Equal(t, "No matching providers found.\n", h.out.String())
}

func TestListMarksDisabledIgnoringCase(t *testing.T) {
	h := newHarness(t)
	providertest.Write(t, h.configPath, "disabled: [Replit]\n")

	require.NoError(t, h.run(t, "list"))
	assert.Contains(t, h.out.String(), "ID: replit  source: link  (disabled)")

	require.NoError(t, h.run(t, "-t", "replit"))
	assert.Equal(t, "No matching providers found.\n", h.out.String())
}

func TestUsage_Errors(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "-f", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	providertest.Write(t, h.configPath, "timeout: [not, a, duration]\n")
	err = h.run(t, "-t", "replit")
	require.Error(t, err)
	assert.Contains(t, h.errOut.String(), "Config path: "+h.configPath)
}

func TestListCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "list"))

	out := h.out.String()
	assert.Contains(t, out, "Supported AI Coding Tools:")
	for _, id := range []string{"claude-code", "cursor", "github-copilot", "cline", "windsurf", "warp", "opencode",
		"openai-codex", "gemini-cli", "amazon-q", "tabnine", "gemini-code-assist", "sourcegraph-cody", "replit"} {
		assert.Contains(t, out, "ID: "+id+" ")
	}
	assert.Contains(t, out, "source: local+api")
}

func TestDoctorCommand(t *testing.T) {
	h := newHarness(t)
	writeClaudeSession(t, h.home)
	h.env["OPENAI_API_KEY"] = "sk-test"

	require.NoError(t, h.run(t, "doctor"))
	out := h.out.String()
	assert.Contains(t, out, "Provider Path Detection:")
	assert.Contains(t, out, "✓ Claude Code")
	assert.Contains(t, out, "✓ OpenAI Codex")
	assert.Contains(t, out, "✓ Replit")
	assert.Regexp(t, `Summary: \d+ of \d+ paths found`, out)
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "version"))
	assert.True(t, strings.HasPrefix(h.out.String(), "a2zusage dev"))
}

func TestKeyCommands(t *testing.T) {
	h := newHarness(t)
	h.env["GITHUB_TOKEN"] = "ghp_from_environment"

	require.NoError(t, h.run(t, "key", "set", "openai_api_key", "sk-1234567890abcdef"))
	assert.Equal(t, "OPENAI_API_KEY saved\n", h.out.String())

	credPath := filepath.Join(filepath.Dir(h.configPath), "credentials.env")
	data, err := os.ReadFile(credPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "OPENAI_API_KEY=")

	require.NoError(t, h.run(t, "key", "list"))
	out := h.out.String()
	assert.Regexp(t, `OPENAI_API_KEY\s+stored\s+sk-1\.\.\.cdef`, out)
	assert.Regexp(t, `GITHUB_TOKEN\s+env\s+ghp_\.\.\.ment`, out)
	assert.NotContains(t, out, "sk-1234567890abcdef")

	require.NoError(t, h.run(t, "key", "rm", "OPENAI_API_KEY"))
	require.NoError(t, h.run(t, "key", "list"))
	assert.Regexp(t, `OPENAI_API_KEY\s+-\s+-`, h.out.String())

	assert.Error(t, h.run(t, "key", "set", "1BAD", "x"))
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "config", "path"))
	assert.Equal(t, h.configPath+"\n", h.out.String())

	require.NoError(t, h.run(t, "config", "init"))
	_, err := os.Stat(h.configPath)
	require.NoError(t, err)

	assert.Error(t, h.run(t, "config", "init"))
	require.NoError(t, h.run(t, "config", "init", "--force"))
}
