// Package paths resolves the per-OS locations where supported tools keep
// their data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Resolver computes tool paths for one home directory and OS. The zero
// value is not useful; use Default or fill every field.
type Resolver struct {
	Home   string
	GOOS   string
	Getenv func(string) string
}

// Default resolves against the current user and OS.
func Default() Resolver {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return Resolver{Home: home, GOOS: runtime.GOOS, Getenv: os.Getenv}
}

// ForHome is Default with a fixed home directory and no environment, for
// tests and sandboxed runs.
func ForHome(home string) Resolver {
	return Resolver{Home: home, GOOS: runtime.GOOS, Getenv: func(string) string { return "" }}
}

func (r Resolver) env(key string) string {
	if r.Getenv == nil {
		return ""
	}
	return r.Getenv(key)
}

func (r Resolver) join(parts ...string) string {
	if r.Home == "" {
		return ""
	}
	return filepath.Join(append([]string{r.Home}, parts...)...)
}

// DataDir is the platform's per-user application data directory.
func (r Resolver) DataDir() string {
	switch r.GOOS {
	case "windows":
		if v := r.env("APPDATA"); v != "" {
			return v
		}
		return r.join("AppData", "Roaming")
	case "darwin":
		return r.join("Library", "Application Support")
	default:
		if v := r.env("XDG_DATA_HOME"); v != "" {
			return v
		}
		return r.join(".local", "share")
	}
}

// ConfigDir is the platform's per-user configuration directory.
func (r Resolver) ConfigDir() string {
	switch r.GOOS {
	case "windows":
		if v := r.env("APPDATA"); v != "" {
			return v
		}
		return r.join("AppData", "Roaming")
	case "darwin":
		return r.join("Library", "Application Support")
	default:
		if v := r.env("XDG_CONFIG_HOME"); v != "" {
			return v
		}
		return r.join(".config")
	}
}

// editorUserDir is "<app>/User" for VS Code style editors. On Linux those
// editors keep state under the config dir; elsewhere under the data dir.
func (r Resolver) editorUserDir(app string) string {
	base := r.DataDir()
	if r.GOOS != "windows" && r.GOOS != "darwin" {
		base = r.ConfigDir()
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, app, "User")
}

func (r Resolver) vscodeGlobalStorage(extension string) string {
	dir := r.editorUserDir("Code")
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "globalStorage", extension)
}

// Claude Code

func (r Resolver) ClaudeProjectsDirs() []string {
	dirs := []string{r.join(".claude", "projects")}
	if v := r.env("CLAUDE_CONFIG_DIR"); v != "" {
		dirs = append([]string{filepath.Join(v, "projects")}, dirs...)
	}
	if cfg := r.ConfigDir(); cfg != "" && r.GOOS != "windows" && r.GOOS != "darwin" {
		dirs = append(dirs, filepath.Join(cfg, "claude", "projects"))
	}
	return dirs
}

func (r Resolver) ClaudeConfigFile() string {
	return r.join(".claude.json")
}

// Cursor

func (r Resolver) CursorGlobalState() string {
	dir := r.editorUserDir("Cursor")
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "globalStorage", "state.vscdb")
}

func (r Resolver) CursorWorkspaceStorage() string {
	dir := r.editorUserDir("Cursor")
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "workspaceStorage")
}

// GitHub Copilot

func (r Resolver) CopilotHostsFile() string {
	return r.join(".config", "github-copilot", "hosts.json")
}

func (r Resolver) VSCodeLogs() string {
	base := r.DataDir()
	if r.GOOS != "windows" && r.GOOS != "darwin" {
		base = r.ConfigDir()
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, "Code", "logs")
}

// Cline and Roo Code

func (r Resolver) ClineTasksDir() string {
	return r.vscodeGlobalStorage(filepath.Join("saoudrizwan.claude-dev", "tasks"))
}

func (r Resolver) RooTasksDir() string {
	return r.vscodeGlobalStorage(filepath.Join("rooveterinaryinc.roo-cline", "tasks"))
}

func (r Resolver) RooUsageTracking() string {
	return r.join(".roo", "usage-tracking.json")
}

// Windsurf

func (r Resolver) CodeiumDir() string {
	return r.join(".codeium")
}

func (r Resolver) WindsurfCascadeDir() string {
	return r.join(".codeium", "windsurf", "cascade")
}

func (r Resolver) WindsurfMemoriesDir() string {
	return r.join(".codeium", "windsurf", "memories")
}

// Warp

func (r Resolver) WarpDB() string {
	switch r.GOOS {
	case "darwin":
		return r.join("Library", "Group Containers", "2BBY89MBSN.dev.warp",
			"Library", "Application Support", "dev.warp.Warp-Stable", "warp.sqlite")
	case "windows":
		if d := r.DataDir(); d != "" {
			return filepath.Join(d, "Warp", "warp.sqlite")
		}
		return ""
	default:
		return r.join(".local", "share", "warp", "warp.sqlite")
	}
}

func (r Resolver) WarpLogsDir() string {
	switch r.GOOS {
	case "darwin":
		return r.join("Library", "Logs")
	case "windows":
		if d := r.DataDir(); d != "" {
			return filepath.Join(d, "Warp", "logs")
		}
		return ""
	default:
		return r.join(".local", "share", "warp", "logs")
	}
}

// OpenCode

func (r Resolver) OpenCodeMessageDir() string {
	if r.GOOS == "windows" {
		if d := r.DataDir(); d != "" {
			return filepath.Join(d, "opencode", "storage", "message")
		}
		return ""
	}
	return r.join(".local", "share", "opencode", "storage", "message")
}

// Gemini CLI

func (r Resolver) GeminiDir() string {
	return r.join(".gemini")
}

func (r Resolver) GeminiTelemetryLog() string {
	return r.join(".gemini", "telemetry.log")
}

// GeminiWrapperTelemetry is written by the a2zusage gemini wrapper script.
func (r Resolver) GeminiWrapperTelemetry() string {
	return r.join(".gemini", "a2zusage-telemetry.jsonl")
}

func (r Resolver) GeminiTmpDir() string {
	return r.join(".gemini", "tmp")
}

func (r Resolver) GeminiConversationsDir() string {
	return r.join(".gemini", "antigravity", "conversations")
}

// Amazon Q

func (r Resolver) AmazonQLog() string {
	return r.join(".aws", "q", "q_developer_log.txt")
}

func (r Resolver) AWSConfig() string {
	return r.join(".aws", "config")
}

// Tabnine

func (r Resolver) TabnineLogsDir() string {
	switch r.GOOS {
	case "windows", "darwin":
		if d := r.DataDir(); d != "" {
			return filepath.Join(d, "TabNine", "logs")
		}
		return ""
	default:
		return r.join(".local", "share", "TabNine", "logs")
	}
}

// Gemini Code Assist and Sourcegraph Cody live in VS Code global storage.

func (r Resolver) GeminiCodeAssistDir() string {
	return r.vscodeGlobalStorage("google.geminicodeassist")
}

func (r Resolver) CodyExtensionDir() string {
	return r.vscodeGlobalStorage("sourcegraph.cody-ai")
}

// Exists reports whether path names an existing file or directory. An
// empty path never exists.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether path is an existing non-directory.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
