// Package appupdate compares the running build against the latest
// published release.
package appupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	binaryName = "a2zusage"
	repo       = "a2zusage/a2zusage"

	defaultLatestReleaseURL = "https://api.github.com/repos/" + repo + "/releases/latest"
	defaultRequestTimeout   = 3 * time.Second

	// EnvGitHubToken raises the GitHub API rate limit for release checks.
	EnvGitHubToken = "A2ZUSAGE_GITHUB_TOKEN"
)

type InstallMethod string

const (
	InstallMethodUnknown   InstallMethod = "unknown"
	InstallMethodHomebrew  InstallMethod = "homebrew"
	InstallMethodGoInstall InstallMethod = "go_install"
	InstallMethodRelease   InstallMethod = "release_binary"
)

type CheckOptions struct {
	CurrentVersion   string
	ExecutablePath   string
	LatestReleaseURL string
	Timeout          time.Duration
	HTTPClient       *http.Client
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

type Result struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	InstallMethod   InstallMethod
	UpgradeHint     string
}

// Check fetches the latest release tag. Development and prerelease builds
// are never compared and report no update.
func Check(ctx context.Context, opts CheckOptions) (Result, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	method := detectInstallMethod(resolveExecutablePath(opts.ExecutablePath), opts.Getenv)
	result := Result{
		CurrentVersion: normalizeReleaseVersion(opts.CurrentVersion),
		InstallMethod:  method,
		UpgradeHint:    upgradeHint(method),
	}
	if result.CurrentVersion == "" {
		return result, nil
	}

	latest, err := fetchLatestTag(ctx, opts, result.CurrentVersion)
	if err != nil {
		return result, err
	}
	result.LatestVersion = latest
	result.UpdateAvailable = semver.Compare(latest, result.CurrentVersion) > 0
	return result, nil
}

func fetchLatestTag(ctx context.Context, opts CheckOptions, current string) (string, error) {
	latestURL := strings.TrimSpace(opts.LatestReleaseURL)
	if latestURL == "" {
		latestURL = defaultLatestReleaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestURL, nil)
	if err != nil {
		return "", fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", binaryName+"/"+current)
	if token := strings.TrimSpace(opts.Getenv(EnvGitHubToken)); token != "" && isGitHubAPI(latestURL) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch latest release: HTTP %d", resp.StatusCode)
	}

	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode release payload: %w", err)
	}
	latest := normalizeReleaseVersion(payload.TagName)
	if latest == "" {
		return "", fmt.Errorf("latest release tag %q is not a stable version", payload.TagName)
	}
	return latest, nil
}

func resolveExecutablePath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return normalizePath(p)
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil && resolved != "" {
		exe = resolved
	}
	return normalizePath(exe)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.ToLower(filepath.ToSlash(filepath.Clean(path)))
}

func detectInstallMethod(path string, getenv func(string) string) InstallMethod {
	path = normalizePath(path)
	if path == "" {
		return InstallMethodUnknown
	}
	path = strings.TrimSuffix(path, ".exe")

	if strings.Contains(path, "/cellar/"+binaryName+"/") {
		return InstallMethodHomebrew
	}

	goBins := []string{normalizePath(getenv("GOBIN"))}
	for _, gp := range filepath.SplitList(getenv("GOPATH")) {
		goBins = append(goBins, normalizePath(gp)+"/bin")
	}
	for _, dir := range goBins {
		if dir != "" && dir != "/bin" && path == dir+"/"+binaryName {
			return InstallMethodGoInstall
		}
	}
	if strings.HasSuffix(path, "/go/bin/"+binaryName) {
		return InstallMethodGoInstall
	}

	if strings.HasSuffix(path, "/bin/"+binaryName) {
		return InstallMethodRelease
	}
	return InstallMethodUnknown
}

func upgradeHint(method InstallMethod) string {
	switch method {
	case InstallMethodHomebrew:
		return "brew upgrade " + binaryName
	case InstallMethodGoInstall:
		return "go install github.com/" + repo + "/cmd/" + binaryName + "@latest"
	default:
		return "download the latest release from https://github.com/" + repo + "/releases/latest"
	}
}

// normalizeReleaseVersion returns the canonical "vX.Y.Z" form of a stable
// release version, or "" for anything else.
func normalizeReleaseVersion(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	return semver.Canonical(v)
}

func isGitHubAPI(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https") && strings.EqualFold(u.Hostname(), "api.github.com")
}
