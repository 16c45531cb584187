package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDiscardsWithoutVerbose(t *testing.T) {
	t.Setenv(EnvDebug, "")
	var buf bytes.Buffer
	l := New(Options{Output: &buf})
	l.Error("boom")
	assert.Empty(t, buf.String())
}

func TestNewVerboseWritesPlainText(t *testing.T) {
	t.Setenv(EnvDebug, "")
	var buf bytes.Buffer
	l := New(Options{Verbose: true, Output: &buf})
	l.Debug("hidden")
	ForProvider(l, "cursor").Info("scanned", "files", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "scanned")
	assert.Contains(t, out, "provider=cursor")
	assert.NotContains(t, out, "\x1b[")
}

func TestDebugEnvEnablesDebugLevel(t *testing.T) {
	t.Setenv(EnvDebug, "1")
	var buf bytes.Buffer
	New(Options{Output: &buf}).Debug("skipped line", "line", 4)
	assert.Contains(t, buf.String(), "skipped line")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"info": "INFO", "WARN": "WARN", "error": "ERROR", "1": "DEBUG", "": "DEBUG"}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in).String(), "parseLevel(%q)", in)
	}
}
