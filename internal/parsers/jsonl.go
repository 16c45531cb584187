package parsers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
)

const (
	initialLineBuffer = 256 * 1024
	maxLineSize       = 10 * 1024 * 1024
)

// ScanLines calls fn for every non-blank line of the file at path. The
// slice passed to fn is only valid for the duration of the call. fn
// returning an error stops the scan; ctx is checked between lines.
func ScanLines(ctx context.Context, path string, fn func(lineNo int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
