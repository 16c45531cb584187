package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateTempDir points os.TempDir at a fresh directory so leftovers can be
// counted.
func isolateTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	return dir
}

func createDB(t *testing.T, path string, rows int) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err = db.Exec(`INSERT INTO items (value) VALUES (?)`, "row")
		require.NoError(t, err)
	}
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), filePrefix) {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestOpenMissingSource(t *testing.T) {
	isolateTempDir(t)

	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceMissing))

	err = With(filepath.Join(t.TempDir(), "nope.db"), func(string) error {
		require.FailNow(t, "fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestOpenCopiesSidecars(t *testing.T) {
	tmp := isolateTempDir(t)
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "state.vscdb")
	require.NoError(t, os.WriteFile(src, []byte("main"), 0o644))
	require.NoError(t, os.WriteFile(src+"-wal", []byte("wal"), 0o644))

	s, err := Open(src)
	require.NoError(t, err)

	assert.Equal(t, tmp, filepath.Dir(s.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(s.Path()), filePrefix))
	assert.True(t, strings.HasSuffix(s.Path(), ".db"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "main", string(data))

	wal, err := os.ReadFile(s.Path() + "-wal")
	require.NoError(t, err)
	assert.Equal(t, "wal", string(wal))

	_, err = os.Stat(s.Path() + "-shm")
	assert.True(t, errors.Is(err, os.ErrNotExist), "absent sidecar must not be created")

	require.NoError(t, s.Close())
	assert.Empty(t, leftovers(t, tmp))
	require.NoError(t, s.Close())

	_, err = os.Stat(src)
	assert.NoError(t, err, "source must be untouched")
}

func TestWithCleansUpOnEveryExitPath(t *testing.T) {
	tmp := isolateTempDir(t)
	src := filepath.Join(t.TempDir(), "db.sqlite")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(src+"-wal", []byte("w"), 0o644))
	require.NoError(t, os.WriteFile(src+"-shm", []byte("s"), 0o644))

	t.Run("success", func(t *testing.T) {
		var seen string
		err := With(src, func(path string) error {
			seen = path
			_, err := os.Stat(path + "-shm")
			return err
		})
		require.NoError(t, err)
		assert.NotEmpty(t, seen)
		assert.Empty(t, leftovers(t, tmp))
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("query failed")
		err := With(src, func(string) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, leftovers(t, tmp))
	})

	t.Run("panic", func(t *testing.T) {
		assert.PanicsWithValue(t, "closure exploded", func() {
			_ = With(src, func(string) error { panic("closure exploded") })
		})
		assert.Empty(t, leftovers(t, tmp))
	})
}

func TestConcurrentSnapshotsDoNotCollide(t *testing.T) {
	tmp := isolateTempDir(t)
	src := filepath.Join(t.TempDir(), "shared.db")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		paths = map[string]bool{}
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := With(src, func(path string) error {
				mu.Lock()
				paths[path] = true
				mu.Unlock()
				_, err := os.ReadFile(path)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, paths, 16)
	assert.Empty(t, leftovers(t, tmp))
}

func TestWithDBQueriesCopy(t *testing.T) {
	tmp := isolateTempDir(t)
	src := filepath.Join(t.TempDir(), "app.db")
	createDB(t, src, 3)

	var count int
	err := WithDB(context.Background(), src, func(db *sql.DB) error {
		return db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Empty(t, leftovers(t, tmp))
}

func TestWithDBIsReadOnly(t *testing.T) {
	isolateTempDir(t)
	src := filepath.Join(t.TempDir(), "app.db")
	createDB(t, src, 1)

	err := WithDB(context.Background(), src, func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO items (value) VALUES ('x')`)
		return err
	})
	assert.Error(t, err)

	db, err := sql.Open("sqlite3", src)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTableExists(t *testing.T) {
	isolateTempDir(t)
	src := filepath.Join(t.TempDir(), "app.db")
	createDB(t, src, 0)

	err := WithDB(context.Background(), src, func(db *sql.DB) error {
		ok, err := TableExists(context.Background(), db, "items")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = TableExists(context.Background(), db, "ai_queries")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}
