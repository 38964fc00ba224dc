package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/notion"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/textutil"
)

// API is the subset of the notion client the store needs.
type API interface {
	FileUploadAPI
	ChildLister
	CreatePage(ctx context.Context, req notion.CreatePageRequest) (notion.Page, error)
	RetrievePage(ctx context.Context, id string) (notion.Page, error)
	UpdatePage(ctx context.Context, id string, props notion.Properties) (notion.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, q notion.DatabaseQuery) (notion.QueryResult, error)
	AppendBlockChildren(ctx context.Context, blockID string, children []notion.Block) ([]notion.Block, error)
}

// Downloader fetches a remote file to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// DecodeError reports a record whose content could not be mapped onto a
// script.
type DecodeError struct {
	RecordID string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode record %s: %s: %v", e.RecordID, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode record %s: %s", e.RecordID, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StoreConfig locates the databases and local directories the store uses.
type StoreConfig struct {
	// DatabaseIDs lists every database pulled from. New records go to the first.
	DatabaseIDs []string
	PublicDir   string
	OutputDir   string
}

// Store persists script records in the document store.
type Store struct {
	api        API
	downloader Downloader
	uploader   *Uploader
	cfg        StoreConfig
	logger     *slog.Logger
	now        func() time.Time
	newName    func() string
}

// NewStore wires a Store. A nil downloader disables asset downloads.
func NewStore(api API, downloader Downloader, uploader *Uploader, cfg StoreConfig, logger *slog.Logger) *Store {
	return &Store{
		api:        api,
		downloader: downloader,
		uploader:   uploader,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "docstore"),
		now:        time.Now,
		newName:    func() string { return uuid.NewString() },
	}
}

// SaveRequest is a record ready to be persisted. Audio and segment media
// sources are local files, resolved against the public directory when
// relative.
type SaveRequest struct {
	Record     script.Record
	Status     lifecycle.Status
	ScriptFile string
	Thumbnails []string
	// DatabaseID overrides the database the record is created in; empty
	// uses the first configured database.
	DatabaseID string
}

// SaveScript uploads every asset, creates the record, then appends its
// content blocks in segment order. A failure while appending leaves a
// partially populated record behind.
func (s *Store) SaveScript(ctx context.Context, req SaveRequest) (string, error) {
	rec := req.Record
	if len(rec.Segments) == 0 {
		return "", services.Wrap(services.ErrValidation, "save", "validate", "record has no segments", nil)
	}
	if strings.TrimSpace(rec.Title) == "" {
		return "", services.Wrap(services.ErrValidation, "save", "validate", "record has no title", nil)
	}
	status := req.Status
	if status == "" {
		status = lifecycle.NotReady
	}
	if !lifecycle.IsInitial(status) {
		return "", services.Wrap(services.ErrValidation, "save", "validate", fmt.Sprintf("records cannot be created as %q", status), nil)
	}
	databaseID := strings.TrimSpace(req.DatabaseID)
	if databaseID == "" && len(s.cfg.DatabaseIDs) > 0 {
		databaseID = s.cfg.DatabaseIDs[0]
	}
	if databaseID == "" {
		return "", services.Wrap(services.ErrConfiguration, "save", "database", "no database configured", nil)
	}

	audio := make([]notion.FileObject, 0, len(rec.Audio))
	for _, track := range rec.Audio {
		file, err := s.uploadFile(ctx, s.localPath(track.Src))
		if err != nil {
			return "", err
		}
		audio = append(audio, file)
	}
	outputs := make([]notion.FileObject, 0, len(req.Thumbnails)+1)
	if req.ScriptFile != "" {
		file, err := s.uploadFile(ctx, req.ScriptFile)
		if err != nil {
			return "", err
		}
		outputs = append(outputs, file)
	}
	for _, thumb := range req.Thumbnails {
		file, err := s.uploadFile(ctx, thumb)
		if err != nil {
			return "", err
		}
		outputs = append(outputs, file)
	}

	media := make(map[int]Media)
	for i, seg := range rec.Segments {
		if seg.MediaSrc == "" {
			continue
		}
		path := s.localPath(seg.MediaSrc)
		id, err := s.uploader.Upload(ctx, path)
		if err != nil {
			return "", err
		}
		kind := MediaImage
		if script.IsVideo(path) {
			kind = MediaVideo
		}
		media[i] = Media{Type: kind, UploadID: id}
	}

	page, err := s.api.CreatePage(ctx, notion.CreatePageRequest{
		Parent:     notion.Parent{DatabaseID: databaseID},
		Properties: newRecordProperties(rec, status, audio, outputs, s.now()),
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "save", "create record", rec.Title, err)
	}

	blocks := EncodeSegments(rec.Segments, media)
	rendered := make([]notion.Block, 0, len(blocks))
	for _, b := range blocks {
		rendered = append(rendered, b.Render())
	}
	for start := 0; start < len(rendered); start += notion.MaxAppendChildren {
		end := min(start+notion.MaxAppendChildren, len(rendered))
		if _, err := s.api.AppendBlockChildren(ctx, page.ID, rendered[start:end]); err != nil {
			return page.ID, services.Wrap(services.ErrExternalTool, "save", "append content", page.ID, err)
		}
	}

	s.logger.Info("record saved",
		logging.String(logging.FieldRecordID, page.ID),
		logging.String("title", rec.Title),
		logging.Int("segments", len(rec.Segments)),
		logging.Int("blocks", len(rendered)),
		logging.String(logging.FieldEventType, "record_saved"))
	return page.ID, nil
}

// RetrieveScripts returns fully decoded records in status from every
// configured database, up to limit (zero means no limit). Records that fail
// to decode are logged and skipped.
func (s *Store) RetrieveScripts(ctx context.Context, status lifecycle.Status, limit int) ([]script.Record, error) {
	var out []script.Record
	query := notion.DatabaseQuery{Filter: &notion.Filter{Property: PropStatus, Status: &notion.StatusFilter{Equals: string(status)}}}
	err := s.eachPage(ctx, query, limit, func(page notion.Page) error {
		rec, err := s.decodeRecord(ctx, page)
		if err != nil {
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				return err
			}
			logging.WarnWithContext(s.logger, "record skipped", "record_decode_failed",
				logging.String(logging.FieldRecordID, page.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "record is not processed this run"))
			return nil
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// RetrieveLatest lists the most recent records across databases by Date.
func (s *Store) RetrieveLatest(ctx context.Context, limit int) ([]script.Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []script.Summary
	query := notion.DatabaseQuery{Sorts: []notion.Sort{{Property: PropDate, Direction: "descending"}}}
	for _, db := range s.cfg.DatabaseIDs {
		err := s.queryDatabase(ctx, db, query, limit, func(page notion.Page) error {
			rec, err := decodeProperties(page)
			if err != nil {
				s.logger.Debug("listing skipped page", logging.String(logging.FieldRecordID, page.ID), logging.Error(err))
				return nil
			}
			out = append(out, rec.Summary())
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CurrentStatus re-reads a record's status.
func (s *Store) CurrentStatus(ctx context.Context, id string) (lifecycle.Status, error) {
	page, err := s.api.RetrievePage(ctx, id)
	if err != nil {
		if notion.IsNotFound(err) {
			return "", services.Wrap(services.ErrNotFound, "status", "retrieve", id, err)
		}
		return "", services.Wrap(services.ErrExternalTool, "status", "retrieve", id, err)
	}
	value := page.Properties[PropStatus].Status
	if value == nil {
		return "", services.Wrap(services.ErrValidation, "status", "parse", id+" has no status", nil)
	}
	status, ok := lifecycle.Parse(value.Name)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "status", "parse", fmt.Sprintf("%s has unknown status %q", id, value.Name), nil)
	}
	return status, nil
}

// UpdateStatus writes status without checking the transition; callers go
// through lifecycle.Transition first.
func (s *Store) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error {
	if _, err := s.api.UpdatePage(ctx, id, notion.Properties{PropStatus: statusProperty(status)}); err != nil {
		return services.Wrap(services.ErrExternalTool, "status", "update", fmt.Sprintf("%s -> %s", id, status), err)
	}
	return nil
}

// SetSEO stores the SEO blob on the record.
func (s *Store) SetSEO(ctx context.Context, id, text string) error {
	if _, err := s.api.UpdatePage(ctx, id, notion.Properties{PropSEO: richTextProperty(text)}); err != nil {
		return services.Wrap(services.ErrExternalTool, "seo", "update", id, err)
	}
	return nil
}

// SaveOutput uploads paths and appends them to the record's existing
// output files.
func (s *Store) SaveOutput(ctx context.Context, id string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	uploaded := make([]notion.FileObject, 0, len(paths))
	for _, path := range paths {
		file, err := s.uploadFile(ctx, path)
		if err != nil {
			return err
		}
		uploaded = append(uploaded, file)
	}
	page, err := s.api.RetrievePage(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "output", "retrieve", id, err)
	}
	merged := append(resendable(page.Properties[PropOutput].Files), uploaded...)
	if _, err := s.api.UpdatePage(ctx, id, notion.Properties{PropOutput: filesProperty(merged)}); err != nil {
		return services.Wrap(services.ErrExternalTool, "output", "update", id, err)
	}
	s.logger.Info("outputs attached",
		logging.String(logging.FieldRecordID, id),
		logging.Int("uploaded", len(uploaded)),
		logging.Int("total", len(merged)),
		logging.String(logging.FieldEventType, "outputs_attached"))
	return nil
}

// DownloadAssets materializes a record's remote audio and segment media in
// the public directory and its thumbnails in the output directory, under
// fresh names, and rewrites the record's references to them. Audio and
// media references become public-relative names; thumbnails become paths.
// The returned paths include files written before any error.
func (s *Store) DownloadAssets(ctx context.Context, rec *script.Record) ([]string, error) {
	if s.downloader == nil {
		return nil, nil
	}
	var written []string
	fetch := func(src, dir string) (string, error) {
		name := s.newName() + script.ExtensionFromURL(src)
		dst := filepath.Join(dir, name)
		if err := s.downloader.Download(ctx, src, dst); err != nil {
			return "", services.Wrap(services.ErrExternalTool, "assets", "download", src, err)
		}
		written = append(written, dst)
		return name, nil
	}

	for i := range rec.Audio {
		if !script.IsRemote(rec.Audio[i].Src) {
			continue
		}
		name, err := fetch(rec.Audio[i].Src, s.cfg.PublicDir)
		if err != nil {
			return written, err
		}
		rec.Audio[i].Src = name
	}
	for i := range rec.Segments {
		if !script.IsRemote(rec.Segments[i].MediaSrc) {
			continue
		}
		name, err := fetch(rec.Segments[i].MediaSrc, s.cfg.PublicDir)
		if err != nil {
			return written, err
		}
		rec.Segments[i].MediaSrc = name
	}
	for i := range rec.Thumbnails {
		if !script.IsRemote(rec.Thumbnails[i].Src) {
			continue
		}
		name, err := fetch(rec.Thumbnails[i].Src, s.cfg.OutputDir)
		if err != nil {
			return written, err
		}
		rec.Thumbnails[i].Src = filepath.Join(s.cfg.OutputDir, name)
	}
	s.logger.Debug("assets downloaded", logging.String(logging.FieldRecordID, rec.ID), logging.Int("files", len(written)))
	return written, nil
}

// DownloadOutputs fetches every output file of Done records into the output
// directory and returns the written paths.
func (s *Store) DownloadOutputs(ctx context.Context) ([]string, error) {
	if s.downloader == nil {
		return nil, services.Wrap(services.ErrConfiguration, "outputs", "download", "no downloader configured", nil)
	}
	var written []string
	query := notion.DatabaseQuery{Filter: &notion.Filter{Property: PropStatus, Status: &notion.StatusFilter{Equals: string(lifecycle.Done)}}}
	err := s.eachPage(ctx, query, 0, func(page notion.Page) error {
		for _, file := range outputFiles(page) {
			if file.URL == "" {
				continue
			}
			name := textutil.SanitizeFileName(file.Name)
			if name == "" {
				name = s.newName() + script.ExtensionFromURL(file.URL)
			}
			dst := filepath.Join(s.cfg.OutputDir, name)
			if err := s.downloader.Download(ctx, file.URL, dst); err != nil {
				return services.Wrap(services.ErrExternalTool, "outputs", "download", file.Name, err)
			}
			written = append(written, dst)
		}
		return nil
	})
	return written, err
}

func (s *Store) decodeRecord(ctx context.Context, page notion.Page) (script.Record, error) {
	rec, err := decodeProperties(page)
	if err != nil {
		return rec, &DecodeError{RecordID: page.ID, Reason: "properties", Err: err}
	}
	raw, err := s.api.ListAllBlockChildren(ctx, page.ID)
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "retrieve", "list content", page.ID, err)
		if ctx.Err() != nil {
			return rec, wrapped
		}
		return rec, &DecodeError{RecordID: page.ID, Reason: "content listing", Err: wrapped}
	}
	blocks := make([]Block, 0, len(raw))
	for i, b := range raw {
		block, err := ParseBlock(ctx, b, s.api)
		if err != nil {
			return rec, &DecodeError{RecordID: page.ID, Reason: fmt.Sprintf("block %d", i), Err: err}
		}
		blocks = append(blocks, block)
	}
	segments, err := DecodeSegments(blocks)
	if err != nil {
		return rec, &DecodeError{RecordID: page.ID, Reason: "content", Err: err}
	}
	rec.Segments = segments
	if n := len(rec.Audio); n != 0 && n != 1 && n != len(segments) {
		return rec, &DecodeError{RecordID: page.ID, Reason: fmt.Sprintf("%d audio tracks for %d segments", n, len(segments))}
	}
	return rec, nil
}

// eachPage walks query results across every database until limit pages
// have been visited.
func (s *Store) eachPage(ctx context.Context, query notion.DatabaseQuery, limit int, fn func(notion.Page) error) error {
	visited := 0
	for _, db := range s.cfg.DatabaseIDs {
		remaining := 0
		if limit > 0 {
			remaining = limit - visited
			if remaining <= 0 {
				return nil
			}
		}
		err := s.queryDatabase(ctx, db, query, remaining, func(page notion.Page) error {
			visited++
			return fn(page)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// queryDatabase pages through one database, stopping after limit results
// when limit is positive.
func (s *Store) queryDatabase(ctx context.Context, db string, query notion.DatabaseQuery, limit int, fn func(notion.Page) error) error {
	seen := 0
	query.StartCursor = ""
	for {
		query.PageSize = notion.MaxPageSize
		if limit > 0 {
			query.PageSize = min(limit-seen, notion.MaxPageSize)
		}
		result, err := s.api.QueryDatabase(ctx, db, query)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "query", db, "", err)
		}
		for _, page := range result.Results {
			if err := fn(page); err != nil {
				return err
			}
			seen++
			if limit > 0 && seen >= limit {
				return nil
			}
		}
		if !result.HasMore || result.NextCursor == nil || *result.NextCursor == "" {
			return nil
		}
		query.StartCursor = *result.NextCursor
	}
}

func (s *Store) uploadFile(ctx context.Context, path string) (notion.FileObject, error) {
	id, err := s.uploader.Upload(ctx, path)
	if err != nil {
		return notion.FileObject{}, err
	}
	return notion.UploadedFile(filepath.Base(path), id), nil
}

func (s *Store) localPath(src string) string {
	if s.cfg.PublicDir == "" || filepath.IsAbs(src) || filepath.Base(src) != src {
		return src
	}
	return filepath.Join(s.cfg.PublicDir, src)
}
