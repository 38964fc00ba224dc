// Package youtube publishes rendered videos through the YouTube Data API.
package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"shortsmith/internal/logging"
	"shortsmith/internal/services"
)

const watchURL = "https://www.youtube.com/watch?v="

// Config carries OAuth credentials and upload defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CategoryID   string
	Privacy      string
}

// Video describes one upload.
type Video struct {
	Path        string
	Title       string
	Description string
	Tags        []string
	Thumbnail   string
	// PublishAt schedules the video; zero publishes with the configured
	// privacy immediately.
	PublishAt time.Time
}

// Uploader inserts videos and sets their thumbnails.
type Uploader struct {
	svc        *yt.Service
	categoryID string
	privacy    string
	logger     *slog.Logger
}

// New authenticates with the refresh token and constructs an uploader.
// Extra client options are applied after the OAuth client.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Uploader, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "init", "client id, client secret, and refresh token are required", nil)
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(conf.Client(ctx, token))}, opts...)
	svc, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "init", "create service", err)
	}
	category := strings.TrimSpace(cfg.CategoryID)
	if category == "" {
		category = "28"
	}
	privacy := strings.TrimSpace(cfg.Privacy)
	if privacy == "" {
		privacy = "public"
	}
	return &Uploader{
		svc:        svc,
		categoryID: category,
		privacy:    privacy,
		logger:     logging.NewComponentLogger(logger, "youtube"),
	}, nil
}

// Publish uploads v and returns its watch URL. A thumbnail that fails to
// attach is logged; the video itself is already live.
func (u *Uploader) Publish(ctx context.Context, v Video) (string, error) {
	if strings.TrimSpace(v.Title) == "" {
		return "", services.Wrap(services.ErrValidation, "youtube", "publish", "title required", nil)
	}
	f, err := os.Open(v.Path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "youtube", "open video", filepath.Base(v.Path), err)
	}
	defer f.Close()

	status := &yt.VideoStatus{
		PrivacyStatus:           u.privacy,
		SelfDeclaredMadeForKids: false,
		ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
	}
	if !v.PublishAt.IsZero() {
		status.PrivacyStatus = "private"
		status.PublishAt = v.PublishAt.UTC().Format(time.RFC3339)
	}
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       truncateRunes(v.Title, 100),
			Description: v.Description,
			Tags:        v.Tags,
			CategoryId:  u.categoryID,
		},
		Status: status,
	}

	u.logger.Info("uploading video",
		logging.String("file", filepath.Base(v.Path)),
		logging.String("publish_at", status.PublishAt),
		logging.String(logging.FieldEventType, "publish_started"))
	inserted, err := u.svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "youtube", "insert video", filepath.Base(v.Path), err)
	}
	if inserted == nil || inserted.Id == "" {
		return "", services.Wrap(services.ErrExternalTool, "youtube", "insert video", "response carried no video id", nil)
	}
	url := watchURL + inserted.Id

	if v.Thumbnail != "" {
		if err := u.setThumbnail(ctx, inserted.Id, v.Thumbnail); err != nil {
			logging.WarnWithContext(u.logger, "thumbnail upload failed", "thumbnail_failed",
				logging.String("video_id", inserted.Id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "video published with the platform default thumbnail"))
		}
	}
	u.logger.Info("video uploaded",
		logging.String("url", url),
		logging.String(logging.FieldEventType, "publish_completed"))
	return url, nil
}

func (u *Uploader) setThumbnail(ctx context.Context, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer f.Close()
	if _, err := u.svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}
	return nil
}

func truncateRunes(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}
