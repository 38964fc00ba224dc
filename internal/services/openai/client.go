package openai

import (
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const defaultHTTPTimeout = 5 * time.Minute

// Config captures the OpenAI connection and model settings.
type Config struct {
	APIKey     string
	BaseURL    string
	TTSModel   string
	ImageModel string
	ImageSize  string
}

// Option customizes the underlying client.
type Option func(*goopenai.ClientConfig)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *goopenai.ClientConfig) {
		if client != nil {
			cfg.HTTPClient = client
		}
	}
}

func newClient(cfg Config, opts ...Option) *goopenai.Client {
	clientCfg := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	for _, opt := range opts {
		opt(&clientCfg)
	}
	return goopenai.NewClientWithConfig(clientCfg)
}
