package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"shortsmith/internal/fileutil"
	"shortsmith/internal/logging"
	"shortsmith/internal/notion"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
)

const (
	// DefaultSinglePartLimit is the largest file sent in one request.
	DefaultSinglePartLimit int64 = 20 << 20
	// DefaultPartSize is the chunk size for multi-part uploads.
	DefaultPartSize int64 = 10 << 20
	// DefaultPartAttempts bounds how many times one part is sent.
	DefaultPartAttempts = 3
)

// FileUploadAPI is the subset of the store API used to upload binaries.
type FileUploadAPI interface {
	CreateFileUpload(ctx context.Context, req notion.CreateFileUploadRequest) (notion.FileUpload, error)
	SendFileUpload(ctx context.Context, uploadID string, part notion.FilePart) (notion.FileUpload, error)
	CompleteFileUpload(ctx context.Context, uploadID string) (notion.FileUpload, error)
}

// ProgressFunc observes multi-part progress: sent parts out of total.
type ProgressFunc func(filename string, sent, total int)

// PartUploadError reports a part that failed every attempt.
type PartUploadError struct {
	Filename string
	Part     int
	Total    int
	Attempts int
	Err      error
}

func (e *PartUploadError) Error() string {
	return fmt.Sprintf("upload %s: part %d of %d failed after %d attempts: %v", e.Filename, e.Part, e.Total, e.Attempts, e.Err)
}

func (e *PartUploadError) Unwrap() error { return e.Err }

// Uploader moves local files into the store and returns file upload ids.
type Uploader struct {
	api             FileUploadAPI
	tempDir         string
	singlePartLimit int64
	partSize        int64
	attempts        int
	sleeper         func(context.Context, time.Duration) error
	progress        ProgressFunc
	logger          *slog.Logger
}

// UploaderOption customizes an Uploader.
type UploaderOption func(*Uploader)

// WithPartLimits overrides the single-part ceiling and the part size.
func WithPartLimits(singlePartLimit, partSize int64) UploaderOption {
	return func(u *Uploader) {
		if singlePartLimit > 0 {
			u.singlePartLimit = singlePartLimit
		}
		if partSize > 0 {
			u.partSize = partSize
		}
	}
}

// WithPartAttempts overrides how many times a part is sent before failing.
func WithPartAttempts(attempts int) UploaderOption {
	return func(u *Uploader) {
		if attempts > 0 {
			u.attempts = attempts
		}
	}
}

// WithUploadSleeper overrides the backoff sleep (useful for tests).
func WithUploadSleeper(sleeper func(context.Context, time.Duration) error) UploaderOption {
	return func(u *Uploader) {
		if sleeper != nil {
			u.sleeper = sleeper
		}
	}
}

// WithProgress installs a progress observer for multi-part uploads.
func WithProgress(fn ProgressFunc) UploaderOption {
	return func(u *Uploader) {
		u.progress = fn
	}
}

// WithTempDir sets where part files are written. Defaults to os.TempDir.
func WithTempDir(dir string) UploaderOption {
	return func(u *Uploader) {
		u.tempDir = dir
	}
}

// NewUploader constructs an Uploader over api.
func NewUploader(api FileUploadAPI, logger *slog.Logger, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		api:             api,
		singlePartLimit: DefaultSinglePartLimit,
		partSize:        DefaultPartSize,
		attempts:        DefaultPartAttempts,
		sleeper:         sleepContext,
		logger:          logging.NewComponentLogger(logger, "uploader"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload sends the file at path and returns its upload id. Files up to the
// single-part limit (inclusive) go in one request; larger files are split
// into ceil(size/partSize) parts, each retried with 2^attempt second backoff,
// then completed. Part files are removed whether or not the upload succeeds.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "upload", "stat", filepath.Base(path), err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "upload", "stat", filepath.Base(path)+" is a directory", nil)
	}
	contentType, err := script.MimeType(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "upload", "mime type", filepath.Base(path), err)
	}
	if info.Size() <= u.singlePartLimit {
		return u.uploadSingle(ctx, path, contentType)
	}
	return u.uploadMulti(ctx, path, contentType, info.Size())
}

func (u *Uploader) uploadSingle(ctx context.Context, path, contentType string) (string, error) {
	filename := filepath.Base(path)
	created, err := u.api.CreateFileUpload(ctx, notion.CreateFileUploadRequest{Mode: notion.ModeSinglePart, Filename: filename, ContentType: contentType})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "create", filename, err)
	}
	sent, err := u.api.SendFileUpload(ctx, created.ID, notion.FilePart{Filename: filename, ContentType: contentType, Path: path})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "send", filename, err)
	}
	id := sent.ID
	if id == "" {
		id = created.ID
	}
	u.logger.Debug("uploaded file", logging.String("file", filename), logging.String("upload_id", id))
	return id, nil
}

func (u *Uploader) uploadMulti(ctx context.Context, path, contentType string, size int64) (id string, err error) {
	filename := filepath.Base(path)
	dir, err := os.MkdirTemp(u.tempDir, "upload-parts-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "upload", "split", filename, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.WarnWithContext(u.logger, "part cleanup failed", "upload_cleanup_failed",
				logging.String("dir", dir), logging.Error(rmErr),
				logging.String(logging.FieldImpact, "temporary part files left on disk"))
		}
	}()

	parts, err := fileutil.SplitFile(path, dir, u.partSize)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "upload", "split", filename, err)
	}
	total := len(parts)

	created, err := u.api.CreateFileUpload(ctx, notion.CreateFileUploadRequest{
		Mode:          notion.ModeMultiPart,
		Filename:      filename,
		ContentType:   contentType,
		NumberOfParts: total,
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "create", filename, err)
	}

	u.logger.Info("multi-part upload started",
		logging.String("file", filename),
		logging.Int64("size_bytes", size),
		logging.Int("parts", total),
		logging.String(logging.FieldEventType, "upload_started"))

	for i, partPath := range parts {
		part := notion.FilePart{Filename: filename, ContentType: contentType, PartNumber: i + 1, Path: partPath}
		if err := u.sendPart(ctx, created.ID, part, total); err != nil {
			return "", err
		}
		if u.progress != nil {
			u.progress(filename, i+1, total)
		}
	}

	done, err := u.api.CompleteFileUpload(ctx, created.ID)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "complete", filename, err)
	}
	id = done.ID
	if id == "" {
		id = created.ID
	}
	return id, nil
}

func (u *Uploader) sendPart(ctx context.Context, uploadID string, part notion.FilePart, total int) error {
	var lastErr error
	made := 0
	for attempt := 1; attempt <= u.attempts; attempt++ {
		made = attempt
		_, err := u.api.SendFileUpload(ctx, uploadID, part)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt == u.attempts {
			break
		}
		delay := time.Duration(1<<attempt) * time.Second
		logging.WarnWithContext(u.logger, "part upload failed; retrying", "upload_part_retry",
			logging.String("file", part.Filename),
			logging.Int("part", part.PartNumber),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "upload delayed"))
		if err := u.sleeper(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	partErr := &PartUploadError{Filename: part.Filename, Part: part.PartNumber, Total: total, Attempts: made, Err: lastErr}
	return services.Wrap(services.ErrExternalTool, "upload", "send part", "", partErr)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AsPartUploadError extracts a PartUploadError from err.
func AsPartUploadError(err error) (*PartUploadError, bool) {
	var partErr *PartUploadError
	ok := errors.As(err, &partErr)
	return partErr, ok
}
