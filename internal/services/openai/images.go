package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/textutil"
)

// Images generates illustrations and thumbnails.
type Images struct {
	client    *goopenai.Client
	http      *http.Client
	model     string
	size      string
	publicDir string
	outputDir string
	logger    *slog.Logger
}

// NewImages constructs a generator writing illustrations into publicDir and
// thumbnails into outputDir.
func NewImages(cfg Config, publicDir, outputDir string, logger *slog.Logger, opts ...Option) *Images {
	model := strings.TrimSpace(cfg.ImageModel)
	if model == "" {
		model = "gpt-image-1"
	}
	size := strings.TrimSpace(cfg.ImageSize)
	if size == "" {
		size = "1024x1536"
	}
	return &Images{
		client:    newClient(cfg, opts...),
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		model:     model,
		size:      size,
		publicDir: publicDir,
		outputDir: outputDir,
		logger:    logging.NewComponentLogger(logger, "openai-images"),
	}
}

// Generate renders prompt to image-<id>-0.png in the public directory and
// returns the file name.
func (g *Images) Generate(ctx context.Context, prompt, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	name := fmt.Sprintf("image-%s-0.png", id)
	if err := g.generateTo(ctx, prompt, g.size, filepath.Join(g.publicDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// GenerateThumbnail renders a cover for title in the given orientation and
// returns its path in the output directory.
func (g *Images) GenerateThumbnail(ctx context.Context, title string, orientation script.Orientation) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", services.Wrap(services.ErrValidation, "images", "thumbnail", "empty title", nil)
	}
	size := "1024x1536"
	if orientation != script.OrientationPortrait {
		size = "1536x1024"
	}
	name := fmt.Sprintf("%s-Thumbnail-%s.png", textutil.Slug(title), orientation)
	path := filepath.Join(g.outputDir, name)
	if err := g.generateTo(ctx, thumbnailPrompt(title, orientation), size, path); err != nil {
		return "", err
	}
	g.logger.Info("thumbnail generated",
		logging.String("file", name),
		logging.String("orientation", string(orientation)),
		logging.String(logging.FieldEventType, "thumbnail_generated"))
	return path, nil
}

func thumbnailPrompt(title string, orientation script.Orientation) string {
	format := "a YouTube video thumbnail in 16:9 landscape format"
	if orientation == script.OrientationPortrait {
		format = "a TikTok video cover in 9:16 portrait format"
	}
	return fmt.Sprintf("Create %s for a video titled %q. "+
		"Feature Felippe, a young Brazilian tech presenter, reacting to the topic. "+
		"Use bold, high-contrast colors and at most 5 words of Portuguese text.", format, title)
}

func (g *Images) generateTo(ctx context.Context, prompt, size, path string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return services.Wrap(services.ErrValidation, "images", "generate", "empty prompt", nil)
	}
	resp, err := g.client.CreateImage(ctx, goopenai.ImageRequest{
		Prompt: prompt,
		Model:  g.model,
		Size:   size,
		N:      1,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "images", "create image", filepath.Base(path), err)
	}
	if len(resp.Data) == 0 {
		return services.Wrap(services.ErrExternalTool, "images", "create image", "response contained no images", nil)
	}
	img := resp.Data[0]
	switch {
	case img.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "images", "decode image", filepath.Base(path), err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "images", "ensure dir", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "images", "write image", filepath.Base(path), err)
		}
		return nil
	case img.URL != "":
		return g.fetch(ctx, img.URL, path)
	default:
		return services.Wrap(services.ErrExternalTool, "images", "create image", "image carried neither data nor url", nil)
	}
}

func (g *Images) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "images", "fetch", "invalid image url", err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "images", "fetch", filepath.Base(path), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool, "images", "fetch", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	if err := writeStream(path, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, "images", "write image", filepath.Base(path), err)
	}
	return nil
}
