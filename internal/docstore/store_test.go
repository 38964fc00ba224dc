package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/notion"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/testsupport"
)

type storeFixture struct {
	api        *fakeAPI
	downloader *fakeDownloader
	store      *Store
	publicDir  string
	outputDir  string
}

func newStoreFixture(t *testing.T, databases ...string) *storeFixture {
	t.Helper()
	if len(databases) == 0 {
		databases = []string{"db-default"}
	}
	base := t.TempDir()
	fx := &storeFixture{
		api:        newFakeAPI(),
		downloader: &fakeDownloader{},
		publicDir:  filepath.Join(base, "public"),
		outputDir:  filepath.Join(base, "out"),
	}
	for _, dir := range []string{fx.publicDir, fx.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	uploader := newTestUploader(fx.api, t.TempDir())
	fx.store = NewStore(fx.api, fx.downloader, uploader, StoreConfig{
		DatabaseIDs: databases,
		PublicDir:   fx.publicDir,
		OutputDir:   fx.outputDir,
	}, logging.NewNop())
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fx.store.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	n := 0
	fx.store.newName = func() string {
		n++
		return fmt.Sprintf("asset-%d", n)
	}
	return fx
}

func (fx *storeFixture) save(t *testing.T, rec script.Record, status lifecycle.Status) string {
	t.Helper()
	id, err := fx.store.SaveScript(context.Background(), SaveRequest{Record: rec, Status: status})
	if err != nil {
		t.Fatalf("save %s: %v", rec.Title, err)
	}
	return id
}

func sampleRecord(t *testing.T, publicDir string) script.Record {
	t.Helper()
	testsupport.Touch(t, publicDir, "take.mp3")
	testsupport.Touch(t, publicDir, "cat.png")
	return script.Record{
		Title: "Why Go",
		Segments: []script.Segment{
			{Speaker: script.Cody, Text: "Go is simple."},
			{Speaker: script.Felippe, Text: "Is it though?", MediaSrc: "cat.png",
				Illustration: &script.Illustration{Type: script.IllustrationImageGeneration, Description: "a gopher"}},
			{Speaker: script.Cody, Text: "Yes."},
		},
		Audio:        []script.AudioTrack{{Src: "take.mp3"}},
		Compositions: []script.Composition{script.Portrait, script.Landscape},
		Channels:     []script.Channel{script.CodeStack},
		Settings:     json.RawMessage(`{"winner":"Cody"}`),
	}
}

func TestSaveScriptUploadsBeforeCreatingRecord(t *testing.T) {
	fx := newStoreFixture(t)
	rec := sampleRecord(t, fx.publicDir)
	scriptFile := testsupport.Touch(t, fx.outputDir, "Why Go.txt")
	thumb := testsupport.Touch(t, fx.outputDir, "Why Go Portrait Thumbnail.png")

	id, err := fx.store.SaveScript(context.Background(), SaveRequest{Record: rec, ScriptFile: scriptFile, Thumbnails: []string{thumb}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(fx.api.uploads) != 4 {
		t.Fatalf("expected audio, script, thumbnail and media uploads, got %d", len(fx.api.uploads))
	}
	page := fx.api.pages[id]
	if got := page.Properties[PropStatus].Status.Name; got != string(lifecycle.NotReady) {
		t.Fatalf("expected initial status %q, got %q", lifecycle.NotReady, got)
	}
	if len(page.Properties[PropAudio].Files) != 1 || len(page.Properties[PropOutput].Files) != 2 {
		t.Fatalf("unexpected file slots %+v", page.Properties)
	}
	if got := notion.PlainText(page.Properties[PropSettings].RichText); got != `{"winner":"Cody"}` {
		t.Fatalf("settings not stored verbatim: %q", got)
	}
	top := fx.api.children[id]
	if len(top) != 5 {
		t.Fatalf("expected 3 segments and 2 dividers, got %d blocks", len(top))
	}
}

func TestSaveScriptRejectsNonInitialStatus(t *testing.T) {
	fx := newStoreFixture(t)
	rec := sampleRecord(t, fx.publicDir)
	_, err := fx.store.SaveScript(context.Background(), SaveRequest{Record: rec, Status: lifecycle.Done})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fx.api.pages) != 0 {
		t.Fatal("no record should be created")
	}
}

func TestSaveScriptTargetsRequestedDatabase(t *testing.T) {
	fx := newStoreFixture(t, "db-default", "db-news")
	rec := sampleRecord(t, fx.publicDir)
	id, err := fx.store.SaveScript(context.Background(), SaveRequest{Record: rec, DatabaseID: "db-news"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := fx.api.pages[id].Parent.DatabaseID; got != "db-news" {
		t.Fatalf("record created in %q, want db-news", got)
	}
	if len(fx.api.databases["db-default"]) != 0 {
		t.Fatal("default database should stay empty")
	}
}

func TestRetrieveScriptsRoundTrip(t *testing.T) {
	fx := newStoreFixture(t)
	rec := sampleRecord(t, fx.publicDir)
	fx.save(t, rec, lifecycle.NotStarted)

	got, err := fx.store.RetrieveScripts(context.Background(), lifecycle.NotStarted, 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	out := got[0]
	if out.Title != rec.Title || out.Status != lifecycle.NotStarted {
		t.Fatalf("unexpected record %+v", out)
	}
	if len(out.Compositions) != 2 || out.Compositions[1] != script.Landscape {
		t.Fatalf("unexpected compositions %v", out.Compositions)
	}
	if string(out.Settings) != string(rec.Settings) {
		t.Fatalf("settings changed: %s", out.Settings)
	}
	if len(out.Audio) != 1 || !script.IsRemote(out.Audio[0].Src) {
		t.Fatalf("expected hosted audio reference, got %+v", out.Audio)
	}
	if len(out.Segments) != len(rec.Segments) {
		t.Fatalf("expected %d segments, got %d", len(rec.Segments), len(out.Segments))
	}
	for i, seg := range rec.Segments {
		if out.Segments[i].Speaker != seg.Speaker || out.Segments[i].Text != seg.Text {
			t.Fatalf("segment %d mismatch: %+v", i, out.Segments[i])
		}
		if (out.Segments[i].MediaSrc != "") != (seg.MediaSrc != "") {
			t.Fatalf("segment %d media presence mismatch", i)
		}
	}
}

func TestRetrieveScriptsSkipsUndecodableRecords(t *testing.T) {
	fx := newStoreFixture(t)
	good := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	bad := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	fx.api.children[bad] = []notion.Block{{ID: "x", Type: "column_list", ColumnList: &notion.Container{}}}

	got, err := fx.store.RetrieveScripts(context.Background(), lifecycle.NotStarted, 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != good {
		t.Fatalf("expected only %s, got %+v", good, got)
	}
}

func TestRetrieveScriptsSkipsRecordWhenContentListingFails(t *testing.T) {
	fx := newStoreFixture(t)
	bad := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	good := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	fx.api.listFailures = map[string]error{bad: errors.New("boom")}

	got, err := fx.store.RetrieveScripts(context.Background(), lifecycle.NotStarted, 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != good {
		t.Fatalf("expected only %s, got %+v", good, got)
	}
}

func TestRetrieveScriptsAbortsWhenContextCancelled(t *testing.T) {
	fx := newStoreFixture(t)
	id := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fx.api.listFailures = map[string]error{id: context.Canceled}

	if _, err := fx.store.RetrieveScripts(ctx, lifecycle.NotStarted, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRetrieveScriptsReadsEveryDatabaseAndHonoursLimit(t *testing.T) {
	fx := newStoreFixture(t, "db-default", "db-news")
	fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	page, _ := fx.api.CreatePage(context.Background(), notion.CreatePageRequest{
		Parent:     notion.Parent{DatabaseID: "db-news"},
		Properties: newRecordProperties(script.Record{Title: "News"}, lifecycle.NotStarted, nil, nil, time.Now()),
	})
	fx.api.children[page.ID] = []notion.Block{Paragraph{Text: "breaking"}.Render()}

	all, err := fx.store.RetrieveScripts(context.Background(), lifecycle.NotStarted, 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected records from both databases, got %d", len(all))
	}
	one, err := fx.store.RetrieveScripts(context.Background(), lifecycle.NotStarted, 1)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("expected limit of 1, got %d", len(one))
	}
}

func TestRetrieveLatestSortsByDate(t *testing.T) {
	fx := newStoreFixture(t)
	var ids []string
	for i := range 3 {
		rec := sampleRecord(t, fx.publicDir)
		rec.Title = fmt.Sprintf("Episode %d", i)
		ids = append(ids, fx.save(t, rec, lifecycle.NotReady))
	}
	latest, err := fx.store.RetrieveLatest(context.Background(), 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 2 || latest[0].ID != ids[2] || latest[1].ID != ids[1] {
		t.Fatalf("unexpected order %+v", latest)
	}
}

func TestStatusUpdateAndRead(t *testing.T) {
	fx := newStoreFixture(t)
	id := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	ctx := context.Background()

	if err := fx.store.UpdateStatus(ctx, id, lifecycle.InProgress); err != nil {
		t.Fatalf("update: %v", err)
	}
	status, err := fx.store.CurrentStatus(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != lifecycle.InProgress {
		t.Fatalf("expected %q, got %q", lifecycle.InProgress, status)
	}
	if _, err := fx.store.CurrentStatus(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetSEOWritesTitleProperty(t *testing.T) {
	fx := newStoreFixture(t)
	id := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	blob := script.SEO{Title: "T", Description: "D", Hashtags: []string{"#go"}}.Text()
	if err := fx.store.SetSEO(context.Background(), id, blob); err != nil {
		t.Fatalf("seo: %v", err)
	}
	if got := notion.PlainText(fx.api.pages[id].Properties[PropSEO].RichText); got != "T\n\nD\n\n#go" {
		t.Fatalf("unexpected SEO blob %q", got)
	}
}

func TestSaveOutputMergesWithExistingFiles(t *testing.T) {
	fx := newStoreFixture(t)
	rec := sampleRecord(t, fx.publicDir)
	thumb := testsupport.Touch(t, fx.outputDir, "Why Go Portrait Thumbnail.png")
	id, err := fx.store.SaveScript(context.Background(), SaveRequest{Record: rec, Thumbnails: []string{thumb}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	video := testsupport.Touch(t, fx.outputDir, "Why Go-Portrait.mp4")
	if err := fx.store.SaveOutput(context.Background(), id, []string{video}); err != nil {
		t.Fatalf("save output: %v", err)
	}
	files := fx.api.pages[id].Properties[PropOutput].Files
	if len(files) != 2 {
		t.Fatalf("expected existing thumbnail plus video, got %+v", files)
	}
	if !strings.Contains(files[0].Name, "Thumbnail") || files[1].Name != "Why Go-Portrait.mp4" {
		t.Fatalf("unexpected output order %+v", files)
	}
}

func TestDownloadAssetsRewritesReferences(t *testing.T) {
	fx := newStoreFixture(t)
	rec := script.Record{
		ID:         "page-1",
		Audio:      []script.AudioTrack{{Src: "https://files.test/a/take.mp3?sig=1"}},
		Segments:   []script.Segment{{Text: "x", MediaSrc: "https://files.test/b/cat.png"}, {Text: "y"}},
		Thumbnails: []script.Thumbnail{{Name: "Portrait Thumbnail.png", Src: "https://files.test/c/thumb.png"}},
	}
	written, err := fx.store.DownloadAssets(context.Background(), &rec)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("expected 3 files, got %v", written)
	}
	if rec.Audio[0].Src != "asset-1.mp3" || rec.Segments[0].MediaSrc != "asset-2.png" {
		t.Fatalf("references not rewritten: %+v %+v", rec.Audio, rec.Segments)
	}
	if rec.Thumbnails[0].Src != filepath.Join(fx.outputDir, "asset-3.png") {
		t.Fatalf("unexpected thumbnail path %q", rec.Thumbnails[0].Src)
	}
	for _, path := range written {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s on disk: %v", path, err)
		}
	}
}

func TestDownloadAssetsReportsPartialWrites(t *testing.T) {
	fx := newStoreFixture(t)
	fx.downloader.fail = "https://files.test/b/cat.png"
	rec := script.Record{
		Audio:    []script.AudioTrack{{Src: "https://files.test/a/take.mp3"}},
		Segments: []script.Segment{{Text: "x", MediaSrc: "https://files.test/b/cat.png"}},
	}
	written, err := fx.store.DownloadAssets(context.Background(), &rec)
	if err == nil {
		t.Fatal("expected download failure")
	}
	if len(written) != 1 {
		t.Fatalf("expected the audio file to be reported, got %v", written)
	}
}

func TestDownloadOutputsFetchesDoneRecords(t *testing.T) {
	fx := newStoreFixture(t)
	done := fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	fx.save(t, sampleRecord(t, fx.publicDir), lifecycle.NotStarted)
	video := testsupport.Touch(t, fx.outputDir, "Why Go-Portrait.mp4")
	if err := fx.store.SaveOutput(context.Background(), done, []string{video}); err != nil {
		t.Fatalf("save output: %v", err)
	}
	if err := fx.store.UpdateStatus(context.Background(), done, lifecycle.Done); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := os.Remove(video); err != nil {
		t.Fatalf("remove: %v", err)
	}

	written, err := fx.store.DownloadOutputs(context.Background())
	if err != nil {
		t.Fatalf("download outputs: %v", err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "Why Go-Portrait.mp4" {
		t.Fatalf("unexpected downloads %v", written)
	}
}
