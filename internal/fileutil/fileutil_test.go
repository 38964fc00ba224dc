package fileutil_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"shortsmith/internal/fileutil"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile returned error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "hello" {
		t.Fatalf("unexpected copy %q, %v", data, err)
	}
}

func TestPartCount(t *testing.T) {
	cases := []struct {
		size, part int64
		want       int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}
	for _, tc := range cases {
		if got := fileutil.PartCount(tc.size, tc.part); got != tc.want {
			t.Fatalf("PartCount(%d, %d) = %d, want %d", tc.size, tc.part, got, tc.want)
		}
	}
}

func TestSplitFileReassembles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	payload := bytes.Repeat([]byte("0123456789"), 25)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	partsDir := filepath.Join(dir, "parts")
	if err := os.Mkdir(partsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	parts, err := fileutil.SplitFile(src, partsDir, 100)
	if err != nil {
		t.Fatalf("SplitFile returned error: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	var joined []byte
	for _, p := range parts {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		joined = append(joined, data...)
	}
	if !bytes.Equal(joined, payload) {
		t.Fatal("parts do not reassemble to source")
	}

	if err := fileutil.RemoveFiles(append(parts, filepath.Join(dir, "missing"))); err != nil {
		t.Fatalf("RemoveFiles returned error: %v", err)
	}
	entries, _ := os.ReadDir(partsDir)
	if len(entries) != 0 {
		t.Fatalf("expected parts removed, found %d entries", len(entries))
	}
}
