package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Filter reports whether a line should be shown.
type Filter func(line string) bool

// MatchRecord keeps lines mentioning id. An empty id keeps everything.
func MatchRecord(id string) Filter {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return func(line string) bool { return strings.Contains(line, id) }
}

// Last returns up to n trailing lines of path that pass keep, and the offset
// of the end of the file. A missing file yields no lines and offset 0.
func Last(path string, n int, keep Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, n)
	count, next := 0, 0
	end, err := scan(file, keep, func(line string) {
		ring[next] = line
		next = (next + 1) % n
		if count < n {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == n {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%n])
	}
	return lines, end, nil
}

// Follow calls emit for every line appended to path after offset, polling
// every interval, until ctx is done. A truncated file is read from the start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, keep Filter, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, keep, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, keep Filter, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	return scan(file, keep, emit)
}

// scan feeds complete lines from the current position to emit and returns
// the offset after the last complete line, so a partially written line is
// picked up whole on the next read.
func scan(file *os.File, keep Filter, emit func(string)) (int64, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		if keep == nil || keep(line) {
			emit(line)
		}
	}
}
