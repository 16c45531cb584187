package parsers

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MatchFunc selects files during WalkFiles.
type MatchFunc func(path string, d fs.DirEntry) bool

// HasSuffix matches regular files whose name ends in any of suffixes.
func HasSuffix(suffixes ...string) MatchFunc {
	return func(path string, d fs.DirEntry) bool {
		name := d.Name()
		for _, s := range suffixes {
			if strings.HasSuffix(name, s) {
				return true
			}
		}
		return false
	}
}

// WalkFiles returns the files below root accepted by match, in lexical
// order. It traverses with an explicit stack so nesting depth is bounded
// only by memory. Unreadable directories are skipped. Symlinked
// directories are not followed.
func WalkFiles(ctx context.Context, root string, match MatchFunc) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		d := fs.FileInfoToDirEntry(info)
		if match(root, d) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			switch {
			case e.IsDir():
				stack = append(stack, path)
			case e.Type().IsRegular():
				if match(path, e) {
					files = append(files, path)
				}
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// ModTime returns the file's modification time, or the zero time.
func ModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
