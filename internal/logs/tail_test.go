package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shortsmith/internal/logs"
)

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortsmith.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2, nil)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d, want 6", offset)
	}
}

func TestLastFiltersByRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortsmith.log")
	content := "record_id=page-1 render started\nrecord_id=page-2 render started\nrecord_id=page-1 done\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, _, err := logs.Last(path, 10, logs.MatchRecord("page-1"))
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 page-1 lines, got %#v", lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "none.log"), 5, nil)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %#v %d %v", lines, offset, err)
	}
}

func TestLastIgnoresPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortsmith.log")
	if err := os.WriteFile(path, []byte("done\npart"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	lines, offset, err := logs.Last(path, 5, nil)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 1 || offset != 5 {
		t.Fatalf("expected the complete line only, got %#v at %d", lines, offset)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortsmith.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 1, nil)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, nil, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			cancel()
		})
	}()

	time.Sleep(30 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", got)
	}
}
