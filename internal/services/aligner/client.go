package aligner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortsmith/internal/script"
	"shortsmith/internal/services"
)

const (
	defaultTimeout = 5 * time.Minute
	headerAPIKey   = "x-api-key"
)

// Config holds one alignment service endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Option customizes an alignment client.
type Option func(*client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		if c != nil {
			cl.http = c
		}
	}
}

type client struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

func newClient(name string, cfg Config, opts ...Option) client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := client{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// post uploads audio and text as a multipart form to path and decodes the
// JSON response into out.
func (c client) post(ctx context.Context, path, audioPath, text string, out any) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, c.name, "align", "base url not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrValidation, c.name, "align", "empty transcript", nil)
	}
	mimeType, err := script.MimeType(audioPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, c.name, "align", filepath.Base(audioPath), err)
	}
	file, err := os.Open(audioPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, c.name, "open audio", filepath.Base(audioPath), err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("text", text); err != nil {
		return fmt.Errorf("%s: write text field: %w", c.name, err)
	}
	if err := writer.WriteField("mime_type", mimeType); err != nil {
		return fmt.Errorf("%s: write mime field: %w", c.name, err)
	}
	field, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return fmt.Errorf("%s: create file field: %w", c.name, err)
	}
	if _, err := io.Copy(field, file); err != nil {
		return fmt.Errorf("%s: copy audio: %w", c.name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%s: close multipart writer: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return services.Wrap(services.ErrValidation, c.name, "build request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, c.name, "http request", "", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, c.name, "read response", "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, c.name, "align", fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, snippet(payload)), nil)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrExternalTool, c.name, "decode response", snippet(payload), err)
	}
	return nil
}

func snippet(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
