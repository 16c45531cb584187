package windsurf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/providers/providertest"
)

func TestGetUsage_NotFound(t *testing.T) {
	p := New(providertest.Deps(t.TempDir(), nil))
	res, err := p.GetUsage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusNotFound, res.Status)
}

func TestGetUsage_InstalledWithoutLogs(t *testing.T) {
	home := t.TempDir()
	providertest.Mkdir(t, filepath.Join(home, ".codeium"))
	p := New(providertest.Deps(home, nil))

	require.True(t, p.IsAvailable(context.Background()))
	res, err := p.GetUsage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusActive, res.Status)
	assert.Equal(t, "Installed (no readable usage data found)", res.DataSource)
	assert.True(t, res.Stats().Total.IsZero())
}

func TestGetUsage_ProtobufOnlyIsUnsupported(t *testing.T) {
	home := t.TempDir()
	cascade := filepath.Join(home, ".codeium", "windsurf", "cascade")
	providertest.Write(t, filepath.Join(cascade, "a.pb"), "\x0a\x02\xff")
	providertest.Write(t, filepath.Join(cascade, "b.pb"), "\x0a\x02\xff")

	res, err := New(providertest.Deps(home, nil)).GetUsage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusUnsupported, res.Status)
	assert.Contains(t, res.Error, "encrypted protobuf (2 sessions)")
	assert.Equal(t, cascade, res.DataSource)
	assert.Nil(t, res.Usage)
}

func TestGetUsage_ErrorWhenEveryCascadeFileFails(t *testing.T) {
	home := t.TempDir()
	cascade := filepath.Join(home, ".codeium", "windsurf", "cascade")
	providertest.Write(t, filepath.Join(cascade, "state.json"), `[{"usage":`)
	providertest.Write(t, filepath.Join(cascade, "session.jsonl"), strings.Repeat("x", 11<<20))

	res, err := New(providertest.Deps(home, nil)).GetUsage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, res.Status)
	assert.Contains(t, res.Error, "reading cascade logs")
}

func TestGetUsage_ReadsLogsAndDocuments(t *testing.T) {
	home := t.TempDir()
	cascade := filepath.Join(home, ".codeium", "windsurf", "cascade")
	now := providertest.Now

	providertest.Write(t, filepath.Join(cascade, "session.jsonl"), fmt.Sprintf(
		"{\"timestamp\":%d,\"usage\":{\"input_tokens\":100,\"output_tokens\":20}}\n"+
			"garbage\n"+
			"{\"timestamp\":%q,\"billable_tokens\":70}\n",
		now.Add(-time.Hour).Unix(), providertest.Ts(time.Date(2026, 10, 2, 8, 0, 0, 0, time.Local))))
	providertest.Write(t, filepath.Join(cascade, "batch.json"), fmt.Sprintf(
		`[{"timestamp":%d,"context_length":500,"completion_length":50},{"usage":{}}]`, now.Add(-2*time.Hour).UnixMilli()))
	old := providertest.Write(t, filepath.Join(cascade, "single.json"), `{"generated_tokens":9,"usage":{"context_length":1}}`)
	providertest.Touch(t, old, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	providertest.Write(t, filepath.Join(cascade, "c.pb"), "\x00")

	res, err := New(providertest.Deps(home, nil)).GetUsage(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, core.StatusActive, res.Status)
	assert.Equal(t, cascade, res.DataSource)

	stats := res.Stats()
	assert.Equal(t, core.UsageData{InputTokens: 600, OutputTokens: 70, RequestCount: 2}, stats.Today)
	assert.Equal(t, core.UsageData{InputTokens: 670, OutputTokens: 70, RequestCount: 3}, stats.ThisMonth)
	assert.Equal(t, core.UsageData{InputTokens: 671, OutputTokens: 79, RequestCount: 4}, stats.Total)
}

func TestDecodeEntry(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		in, out uint64
		ok      bool
	}{
		{"nested usage", `{"usage":{"input_tokens":5,"output_tokens":6}}`, 5, 6, true},
		{"nested lengths", `{"usage":{"context_length":7,"completion_length":8}}`, 7, 8, true},
		{"top-level max", `{"usage":{"input_tokens":5},"context_length":50}`, 50, 0, true},
		{"billable fallback", `{"billable_tokens":12}`, 12, 0, true},
		{"billable ignored", `{"usage":{"output_tokens":1},"billable_tokens":12}`, 0, 1, true},
		{"empty", `{"usage":{}}`, 0, 0, false},
		{"not an object", `[1,2]`, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := decodeEntry(gjson.Parse(tt.json))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.in, e.delta.InputTokens)
			assert.Equal(t, tt.out, e.delta.OutputTokens)
		})
	}
}
