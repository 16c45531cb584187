// Package snapshot reads SQLite databases owned by other running
// applications by copying them first. A copy is a best-effort point in time:
// rows written while the copy runs may be missing or half applied.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const filePrefix = "a2zusage-snapshot-"

var sidecarSuffixes = []string{"-wal", "-shm"}

// ErrSourceMissing is returned when the database to snapshot does not exist.
var ErrSourceMissing = errors.New("snapshot: source database does not exist")

// Snapshot is a private copy of a database and its sidecars.
type Snapshot struct {
	source string
	path   string
}

// Open copies src (and its -wal/-shm sidecars when present) into a uniquely
// named file under the OS temp directory.
func Open(src string) (*Snapshot, error) {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return nil, fmt.Errorf("snapshot: stat %s: %w", src, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("snapshot: %s is a directory", src)
	}

	dst := filepath.Join(os.TempDir(), filePrefix+uuid.NewString()+".db")
	if err := copyExclusive(src, dst); err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("snapshot: copying %s: %w", src, err)
	}

	s := &Snapshot{source: src, path: dst}
	for _, suffix := range sidecarSuffixes {
		if _, err := os.Stat(src + suffix); err != nil {
			continue
		}
		// A sidecar that vanishes or cannot be read mid-copy only costs us
		// the most recent writes.
		if err := copyExclusive(src+suffix, dst+suffix); err != nil {
			_ = os.Remove(dst + suffix)
		}
	}
	return s, nil
}

func (s *Snapshot) Path() string {
	return s.path
}

func (s *Snapshot) Source() string {
	return s.source
}

// Close removes the copy and every sidecar next to it, including any that
// SQLite created while the copy was open.
func (s *Snapshot) Close() error {
	if s == nil || s.path == "" {
		return nil
	}
	var errs []error
	for _, p := range append([]string{s.path}, sidecarPaths(s.path)...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.path = ""
	return errors.Join(errs...)
}

// With snapshots src, calls fn with the copy's path and removes the copy
// afterwards. Cleanup also runs when fn panics; the panic then continues.
func With(src string, fn func(path string) error) (err error) {
	s, err := Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("snapshot: cleanup: %w", cerr)
		}
	}()
	return fn(s.Path())
}

// WithDB is With for callers that want a read-only *sql.DB on the copy.
func WithDB(ctx context.Context, src string, fn func(db *sql.DB) error) error {
	return With(src, func(path string) error {
		db, err := sql.Open("sqlite3", ReadOnlyDSN(path))
		if err != nil {
			return fmt.Errorf("snapshot: opening copy: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("snapshot: opening copy: %w", err)
		}
		return fn(db)
	})
}

// TableExists reports whether db has a table called name.
func TableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return n > 0, nil
}

// ReadOnlyDSN builds the go-sqlite3 DSN used for snapshot copies.
func ReadOnlyDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=ro", path)
}

func sidecarPaths(path string) []string {
	out := make([]string, 0, len(sidecarSuffixes))
	for _, suffix := range sidecarSuffixes {
		out = append(out, path+suffix)
	}
	return out
}

func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
