// Package providertest holds fixtures shared by adapter tests.
package providertest

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
)

// Now is a Monday at noon in the local zone. Week started 2026-10-18,
// month on 2026-10-01.
var Now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)

// Deps returns adapter deps rooted at home with a fixed clock and an
// environment read from env.
func Deps(home string, env map[string]string) providerbase.Deps {
	getenv := func(k string) string { return env[k] }
	return providerbase.Deps{
		Paths:  paths.Resolver{Home: home, GOOS: runtime.GOOS, Getenv: getenv},
		Now:    func() time.Time { return Now },
		Getenv: getenv,
	}
}

// Write creates path (and its parents) under t's temp tree.
func Write(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Touch sets the modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// Mkdir creates dir and its parents.
func Mkdir(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return dir
}

// Ts formats a time as RFC 3339 in UTC.
func Ts(tm time.Time) string {
	return tm.UTC().Format(time.RFC3339)
}

// SQLite creates a database at path and runs stmts against it. Each stmt
// may carry bind args as a []any in the following element.
func SQLite(t testing.TB, path string, stmts ...any) {
	t.Helper()
	Mkdir(t, filepath.Dir(path))
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()

	for i := 0; i < len(stmts); i++ {
		q, ok := stmts[i].(string)
		if !ok {
			t.Fatalf("stmt %d is %T, want string", i, stmts[i])
		}
		var args []any
		if i+1 < len(stmts) {
			if a, ok := stmts[i+1].([]any); ok {
				args = a
				i++
			}
		}
		if _, err := db.Exec(q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
}
