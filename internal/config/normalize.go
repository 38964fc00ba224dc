package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNotion()
	c.normalizeLLM()
	c.normalizeOpenAI()
	c.normalizeAligner()
	c.normalizeRender()
	c.normalizePublish()
	c.normalizeProducer()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.PublicDir) == "" {
		c.Paths.PublicDir = defaultPublicDir
	}
	if c.Paths.PublicDir, err = expandPath(c.Paths.PublicDir); err != nil {
		return fmt.Errorf("paths.public_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotion() {
	c.Notion.Token = envFallback(c.Notion.Token, "NOTION_TOKEN")
	ids := make([]string, 0, len(c.Notion.DatabaseIDs)+2)
	seen := make(map[string]struct{})
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range c.Notion.DatabaseIDs {
		add(id)
	}
	if len(ids) == 0 {
		add(os.Getenv("NOTION_DEFAULT_DATABASE_ID"))
	}
	c.Notion.NewsDatabaseID = envFallback(c.Notion.NewsDatabaseID, "NOTION_NEWS_DATABASE_ID")
	add(c.Notion.NewsDatabaseID)
	c.Notion.DatabaseIDs = ids
	c.Notion.BaseURL = strings.TrimRight(strings.TrimSpace(c.Notion.BaseURL), "/")
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = defaultNotionBaseURL
	}
	if strings.TrimSpace(c.Notion.Version) == "" {
		c.Notion.Version = defaultNotionVersion
	}
	if c.Notion.TimeoutSeconds <= 0 {
		c.Notion.TimeoutSeconds = defaultNotionTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = envFallback(c.LLM.APIKey, "LLM_API_KEY", "OPENROUTER_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if path := strings.TrimSpace(c.LLM.AgentsFile); path != "" {
		if expanded, err := expandPath(path); err == nil {
			c.LLM.AgentsFile = expanded
		}
	}
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = envFallback(c.OpenAI.APIKey, "OPENAI_API_KEY")
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	if strings.TrimSpace(c.OpenAI.TTSModel) == "" {
		c.OpenAI.TTSModel = defaultTTSModel
	}
	if strings.TrimSpace(c.OpenAI.ImageModel) == "" {
		c.OpenAI.ImageModel = defaultImageModel
	}
	if strings.TrimSpace(c.OpenAI.ImageSize) == "" {
		c.OpenAI.ImageSize = defaultImageSize
	}
}

func (c *Config) normalizeAligner() {
	c.Aligner.WordsBaseURL = strings.TrimRight(envFallback(c.Aligner.WordsBaseURL, "AENEAS_BASE_URL"), "/")
	c.Aligner.WordsAPIKey = envFallback(c.Aligner.WordsAPIKey, "AENEAS_API_KEY")
	c.Aligner.VisemesBaseURL = strings.TrimRight(envFallback(c.Aligner.VisemesBaseURL, "MFA_BASE_URL"), "/")
	c.Aligner.VisemesAPIKey = envFallback(c.Aligner.VisemesAPIKey, "MFA_API_KEY")
	if c.Aligner.TimeoutSeconds <= 0 {
		c.Aligner.TimeoutSeconds = defaultAlignerTimeout
	}
}

func (c *Config) normalizeRender() {
	c.Render.Command = strings.TrimSpace(c.Render.Command)
	if strings.TrimSpace(c.Render.FFmpegBinary) == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Render.FFprobeBinary) == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizePublish() {
	c.Publish.ClientID = envFallback(c.Publish.ClientID, "GOOGLE_CLIENT_ID")
	c.Publish.ClientSecret = envFallback(c.Publish.ClientSecret, "GOOGLE_CLIENT_SECRET")
	c.Publish.RefreshToken = envFallback(c.Publish.RefreshToken, "YOUTUBE_REFRESH_TOKEN")
	c.Publish.Channels = trimList(c.Publish.Channels)
	if strings.TrimSpace(c.Publish.CategoryID) == "" {
		c.Publish.CategoryID = defaultCategoryID
	}
	c.Publish.Privacy = strings.ToLower(strings.TrimSpace(c.Publish.Privacy))
	if c.Publish.Privacy == "" {
		c.Publish.Privacy = defaultPrivacy
	}
}

func (c *Config) normalizeProducer() {
	c.Producer.Compositions = trimList(c.Producer.Compositions)
	if len(c.Producer.Compositions) == 0 {
		c.Producer.Compositions = []string{defaultComposition}
	}
	c.Producer.Channels = trimList(c.Producer.Channels)
	if c.Producer.IllustrationConcurrency <= 0 {
		c.Producer.IllustrationConcurrency = defaultIllustrationWorkers
	}
	if strings.TrimSpace(c.Producer.MermaidBinary) == "" {
		c.Producer.MermaidBinary = defaultMermaidBinary
	}
	if c.Producer.NewsMaxTakeSeconds <= 0 {
		c.Producer.NewsMaxTakeSeconds = defaultNewsMaxTakeSeconds
	}
	if strings.TrimSpace(c.Producer.NewsletterSender) == "" {
		c.Producer.NewsletterSender = defaultNewsletterSender
	}
	if c.Producer.NewsletterMaxAgeHours <= 0 {
		c.Producer.NewsletterMaxAgeHours = defaultNewsletterMaxAgeHours
	}
	c.Producer.GmailRefreshToken = envFallback(c.Producer.GmailRefreshToken, "GMAIL_REFRESH_TOKEN")
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envFallback(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value string, keys ...string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	for _, key := range keys {
		if env, ok := os.LookupEnv(key); ok && strings.TrimSpace(env) != "" {
			return strings.TrimSpace(env)
		}
	}
	return ""
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
