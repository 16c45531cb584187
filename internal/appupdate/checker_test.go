package appupdate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestNormalizeReleaseVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "valid with prefix", input: "v1.2.3", want: "v1.2.3"},
		{name: "valid without prefix", input: "0.4.0", want: "v0.4.0"},
		{name: "short form", input: "v2", want: "v2.0.0"},
		{name: "pre-release skipped", input: "v1.2.3-rc.1", want: ""},
		{name: "dev skipped", input: "dev", want: ""},
		{name: "empty skipped", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeReleaseVersion(tt.input)
			if got != tt.want {
				t.Fatalf("normalizeReleaseVersion(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectInstallMethod(t *testing.T) {
	getenv := env(map[string]string{"GOPATH": "/work/gopath"})
	tests := []struct {
		name string
		path string
		want InstallMethod
	}{
		{"homebrew cellar", "/opt/homebrew/Cellar/a2zusage/0.4.0/bin/a2zusage", InstallMethodHomebrew},
		{"go install default", "/Users/test/go/bin/a2zusage", InstallMethodGoInstall},
		{"gopath bin", "/work/gopath/bin/a2zusage", InstallMethodGoInstall},
		{"windows go bin", "C:/Users/test/go/bin/a2zusage.exe", InstallMethodGoInstall},
		{"release binary", "/usr/local/bin/a2zusage", InstallMethodRelease},
		{"unknown", "/tmp/a2zusage", InstallMethodUnknown},
		{"empty", "", InstallMethodUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectInstallMethod(tt.path, getenv)
			if got != tt.want {
				t.Fatalf("detectInstallMethod(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestCheckUpdateAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"v0.5.0"}`))
	}))
	defer server.Close()

	result, err := Check(context.Background(), CheckOptions{
		CurrentVersion:   "0.4.2",
		ExecutablePath:   "/opt/homebrew/Cellar/a2zusage/0.4.2/bin/a2zusage",
		LatestReleaseURL: server.URL,
		HTTPClient:       server.Client(),
		Timeout:          time.Second,
		Getenv:           env(nil),
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.UpdateAvailable {
		t.Fatal("expected UpdateAvailable=true")
	}
	if result.LatestVersion != "v0.5.0" || result.CurrentVersion != "v0.4.2" {
		t.Fatalf("versions = %q -> %q", result.CurrentVersion, result.LatestVersion)
	}
	if result.UpgradeHint != "brew upgrade a2zusage" {
		t.Fatalf("UpgradeHint = %q", result.UpgradeHint)
	}
}

func TestCheckNoUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v0.4.0"}`))
	}))
	defer server.Close()

	result, err := Check(context.Background(), CheckOptions{
		CurrentVersion:   "v0.4.0",
		ExecutablePath:   "/usr/local/bin/a2zusage",
		LatestReleaseURL: server.URL,
		HTTPClient:       server.Client(),
		Getenv:           env(nil),
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.UpdateAvailable {
		t.Fatal("expected UpdateAvailable=false")
	}
	if !strings.Contains(result.UpgradeHint, "releases/latest") {
		t.Fatalf("UpgradeHint = %q", result.UpgradeHint)
	}
}

func TestCheckSkipsDevVersion(t *testing.T) {
	result, err := Check(context.Background(), CheckOptions{
		CurrentVersion:   "dev",
		LatestReleaseURL: "http://127.0.0.1:0/unused",
		Getenv:           env(nil),
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.UpdateAvailable || result.CurrentVersion != "" {
		t.Fatalf("result = %+v, want no comparison", result)
	}
}

func TestCheckHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := Check(context.Background(), CheckOptions{
		CurrentVersion:   "v0.4.0",
		LatestReleaseURL: server.URL,
		HTTPClient:       server.Client(),
		Getenv:           env(nil),
	})
	if err == nil || !strings.Contains(err.Error(), "HTTP 429") {
		t.Fatalf("err = %v, want HTTP 429", err)
	}
}

func TestCheckPrereleaseTagIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v0.5.0-beta.1"}`))
	}))
	defer server.Close()

	_, err := Check(context.Background(), CheckOptions{
		CurrentVersion:   "v0.4.0",
		LatestReleaseURL: server.URL,
		HTTPClient:       server.Client(),
		Getenv:           env(nil),
	})
	if err == nil {
		t.Fatal("expected error for prerelease tag")
	}
}

type captureTransport struct {
	lastReq *http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastReq = req
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"tag_name":"v0.5.0"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestCheckTokenOnlySentToGitHub(t *testing.T) {
	getenv := env(map[string]string{EnvGitHubToken: "ghp_test"})
	tests := []struct {
		url      string
		wantAuth string
	}{
		{"https://api.github.com/repos/a2zusage/a2zusage/releases/latest", "Bearer ghp_test"},
		{"http://api.github.com/repos/a2zusage/a2zusage/releases/latest", ""},
		{"https://example.com/releases/latest", ""},
	}
	for _, tt := range tests {
		transport := &captureTransport{}
		_, err := Check(context.Background(), CheckOptions{
			CurrentVersion:   "v0.4.0",
			LatestReleaseURL: tt.url,
			HTTPClient:       &http.Client{Transport: transport},
			Getenv:           getenv,
		})
		if err != nil {
			t.Fatalf("Check(%s) error = %v", tt.url, err)
		}
		if got := transport.lastReq.Header.Get("Authorization"); got != tt.wantAuth {
			t.Errorf("%s: Authorization = %q, want %q", tt.url, got, tt.wantAuth)
		}
		if got := transport.lastReq.Header.Get("User-Agent"); got != "a2zusage/v0.4.0" {
			t.Errorf("User-Agent = %q", got)
		}
	}
}
