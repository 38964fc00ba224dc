package renderer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/testsupport"
)

type fakeRun struct {
	name  string
	args  []string
	write bool
	out   string
	err   error
}

func (f *fakeRun) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = append([]string(nil), args...)
	if f.write {
		for _, a := range args {
			if strings.HasSuffix(a, ".mp4") && !strings.HasPrefix(a, "--") {
				if err := os.WriteFile(a, []byte("video"), 0o644); err != nil {
					return nil, err
				}
			}
		}
	}
	return []byte(f.out), f.err
}

func scratch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script-rec1.json")
	testsupport.WriteFile(t, path, 8)
	return path
}

func TestRenderAppendsDefaultArguments(t *testing.T) {
	out := t.TempDir()
	fake := &fakeRun{write: true}
	cmd, err := New("npx", []string{"remotion", "render", "src/index.ts"}, out, nil, WithRunner(fake.run))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scratchPath := scratch(t)

	path, err := cmd.Render(context.Background(), "Por que Go?", scratchPath, script.Portrait)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := filepath.Join(out, "por-que-go-Portrait.mp4")
	if path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
	wantArgs := []string{"remotion", "render", "src/index.ts", "Portrait", want, "--props=" + scratchPath}
	if fmt.Sprint(fake.args) != fmt.Sprint(wantArgs) {
		t.Fatalf("unexpected args %v", fake.args)
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	out := t.TempDir()
	fake := &fakeRun{write: true}
	cmd, _ := New("render-video", []string{"--comp={composition}", "--in", "{props}", "--out", "{output}"}, out, nil, WithRunner(fake.run))
	scratchPath := scratch(t)

	path, err := cmd.Render(context.Background(), "Title", scratchPath, script.DebateLandscape)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	wantArgs := []string{"--comp=DebateLandscape", "--in", scratchPath, "--out", path}
	if fmt.Sprint(fake.args) != fmt.Sprint(wantArgs) {
		t.Fatalf("unexpected args %v", fake.args)
	}
}

func TestRenderFailures(t *testing.T) {
	out := t.TempDir()
	scratchPath := scratch(t)

	failing := &fakeRun{out: "line1\nboom", err: errors.New("exit status 1")}
	cmd, _ := New("r", nil, out, nil, WithRunner(failing.run))
	if _, err := cmd.Render(context.Background(), "T", scratchPath, script.Portrait); !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected external tool error with output, got %v", err)
	}

	silent := &fakeRun{}
	cmd, _ = New("r", nil, out, nil, WithRunner(silent.run))
	if _, err := cmd.Render(context.Background(), "T", scratchPath, script.Portrait); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected error when renderer writes nothing, got %v", err)
	}

	if _, err := cmd.Render(context.Background(), "T", filepath.Join(out, "missing.json"), script.Portrait); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing scratch, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := New(" ", nil, t.TempDir(), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
