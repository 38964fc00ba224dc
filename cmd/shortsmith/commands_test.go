package main

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"shortsmith/internal/journal"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/workflow"
)

func TestRenderRequiresRenderCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Render.Command = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"render"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "render.command") {
		t.Fatalf("expected render.command error, got %v", err)
	}
}

func TestRenderRefusesWhileLockHeld(t *testing.T) {
	env := setupCLITestEnv(t)

	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, []string{"render"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock refusal, got %v", err)
	}
}

func TestProduceRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"produce"}, env.configPath); err == nil {
		t.Fatal("expected error without a topic")
	}
	if _, _, err := runCLI(t, []string{"produce", "  "}, env.configPath); err == nil || !strings.Contains(err.Error(), "topic") {
		t.Fatalf("expected topic error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"produce", "--debate", "--roast", "x"}, env.configPath); err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected flag conflict, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"produce", "--newsletter", "--news"}, env.configPath); err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected flag conflict, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"produce", "--news", "extra"}, env.configPath); err == nil || !strings.Contains(err.Error(), "no arguments") {
		t.Fatalf("expected argument error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"produce", "--newsletter", "a.html", "b.html"}, env.configPath); err == nil || !strings.Contains(err.Error(), "at most one") {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestHistoryListsJournalTransitions(t *testing.T) {
	env := setupCLITestEnv(t)

	j, err := journal.Open(env.cfg.JournalPath())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	err = j.RecordTransition(context.Background(), journal.Transition{
		RecordID: "page-1",
		Title:    "Goroutines",
		From:     lifecycle.NotStarted,
		To:       lifecycle.InProgress,
	})
	if err != nil {
		t.Fatalf("record transition: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "page-1")
	requireContains(t, out, "Goroutines")
	requireContains(t, out, "Not started → In progress")
}

func TestHistoryEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No transitions recorded")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	unsetEnv(t, "NTFY_TOPIC")
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notification not sent")
}

func TestPrintRunSummary(t *testing.T) {
	var b strings.Builder
	printRunSummary(&b, workflow.RunSummary{})
	requireContains(t, b.String(), "No records ready to render")

	b.Reset()
	printRunSummary(&b, workflow.RunSummary{Processed: 2, Failed: 1, Published: 3, Duration: 90 * time.Second})
	out := b.String()
	for _, want := range []string{"Rendered", "Failed", "Published", "1m30s"} {
		requireContains(t, out, want)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"ID", "Title"}, [][]string{{"only-id"}}, []columnAlignment{alignLeft, alignRight})
	requireContains(t, out, "ID")
	requireContains(t, out, "only-id")
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestLogsShowsTrailingLinesForRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	content := "record_id=page-1 claimed\nrecord_id=page-2 claimed\nrecord_id=page-1 done\n"
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--record", "page-1", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "record_id=page-1 done" {
		t.Fatalf("unexpected output %q", out)
	}
}
