package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"shortsmith/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local working directories.
type Paths struct {
	PublicDir string `toml:"public_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Notion contains document store connection and upload settings.
type Notion struct {
	Token             string   `toml:"token"`
	DatabaseIDs       []string `toml:"database_ids"`
	NewsDatabaseID    string   `toml:"news_database_id"`
	BaseURL           string   `toml:"base_url"`
	Version           string   `toml:"version"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	SinglePartLimitMB int      `toml:"single_part_limit_mib"`
	PartSizeMB        int      `toml:"part_size_mib"`
	UploadAttempts    int      `toml:"upload_attempts"`
}

// LLM contains chat-completion settings shared by the agents.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	AgentsFile     string `toml:"agents_file"`
}

// OpenAI contains speech and image generation settings.
type OpenAI struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	TTSModel   string `toml:"tts_model"`
	ImageModel string `toml:"image_model"`
	ImageSize  string `toml:"image_size"`
}

// Aligner contains the forced-alignment service endpoints.
type Aligner struct {
	WordsBaseURL   string `toml:"words_base_url"`
	WordsAPIKey    string `toml:"words_api_key"`
	VisemesBaseURL string `toml:"visemes_base_url"`
	VisemesAPIKey  string `toml:"visemes_api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Render contains compositor and retiming settings.
type Render struct {
	Command             string   `toml:"command"`
	Args                []string `toml:"args"`
	FFmpegBinary        string   `toml:"ffmpeg_binary"`
	FFprobeBinary       string   `toml:"ffprobe_binary"`
	ShortTargetSeconds  float64  `toml:"short_target_seconds"`
	ShortCeilingSeconds float64  `toml:"short_ceiling_seconds"`
	StaleScratchHours   int      `toml:"stale_scratch_hours"`
}

// Publish contains video-hosting settings.
type Publish struct {
	Channels       []string `toml:"channels"`
	StaggerMinutes int      `toml:"stagger_minutes"`
	ClientID       string   `toml:"client_id"`
	ClientSecret   string   `toml:"client_secret"`
	RefreshToken   string   `toml:"refresh_token"`
	CategoryID     string   `toml:"category_id"`
	Privacy        string   `toml:"privacy"`
}

// Producer contains settings for the script production pipeline.
type Producer struct {
	Compositions            []string `toml:"compositions"`
	Channels                []string `toml:"channels"`
	IllustrationConcurrency int      `toml:"illustration_concurrency"`
	MermaidBinary           string   `toml:"mmdc"`
	NewsMaxTakeSeconds      float64  `toml:"news_max_take_seconds"`
	NewsletterSender        string   `toml:"newsletter_sender"`
	NewsletterMaxAgeHours   int      `toml:"newsletter_max_age_hours"`
	GmailRefreshToken       string   `toml:"gmail_refresh_token"`
}

// Background contains visual defaults handed to the renderer.
type Background struct {
	AssetsDir      string `toml:"assets_dir"`
	Color          string `toml:"color"`
	MainColor      string `toml:"main_color"`
	SecondaryColor string `toml:"secondary_color"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RecordDone     bool   `toml:"record_done"`
	Published      bool   `toml:"published"`
	Errors         bool   `toml:"errors"`
	BatchSummary   bool   `toml:"batch_summary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shortsmith.
//
// Configuration sections by subsystem:
//   - Paths: public (renderer-visible), output, state, and log directories
//   - Notion: document store credentials, databases, and upload limits
//   - LLM: chat-completion connection used by the agents
//   - OpenAI: speech and image generation
//   - Aligner: word and viseme alignment services
//   - Render: compositor command, media binaries, short-form retiming
//   - Publish: video-hosting channels and credentials
//   - Producer: defaults for newly produced scripts
//   - Background: renderer visual defaults
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Notion        Notion        `toml:"notion"`
	LLM           LLM           `toml:"llm"`
	OpenAI        OpenAI        `toml:"openai"`
	Aligner       Aligner       `toml:"aligner"`
	Render        Render        `toml:"render"`
	Publish       Publish       `toml:"publish"`
	Producer      Producer      `toml:"producer"`
	Background    Background    `toml:"background"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shortsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories used by render and produce.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.PublicDir, c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AssetsDir returns the directory holding background videos and overlays.
func (c *Config) AssetsDir() string {
	if filepath.IsAbs(c.Background.AssetsDir) {
		return c.Background.AssetsDir
	}
	return filepath.Join(c.Paths.PublicDir, c.Background.AssetsDir)
}

// JournalPath returns the SQLite run ledger location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the single-instance lock file used by render.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "render.lock")
}

// LogPath returns the log file written next to stderr output, or empty when
// paths.log_dir is unset.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "shortsmith.log")
}

// DefaultDatabaseID returns the database new records are written to.
func (c *Config) DefaultDatabaseID() string {
	if len(c.Notion.DatabaseIDs) == 0 {
		return ""
	}
	return c.Notion.DatabaseIDs[0]
}

// NewsDatabaseID returns the database news scripts are written to, falling
// back to the default database.
func (c *Config) NewsDatabaseID() string {
	if id := strings.TrimSpace(c.Notion.NewsDatabaseID); id != "" {
		return id
	}
	return c.DefaultDatabaseID()
}

// GmailEnabled reports whether newsletters can be fetched from Gmail.
func (c *Config) GmailEnabled() bool {
	return strings.TrimSpace(c.Publish.ClientID) != "" &&
		strings.TrimSpace(c.Publish.ClientSecret) != "" &&
		strings.TrimSpace(c.Producer.GmailRefreshToken) != ""
}

// SinglePartLimitBytes returns the largest file sent in one request.
func (c *Config) SinglePartLimitBytes() int64 {
	return int64(c.Notion.SinglePartLimitMB) * mebibyte
}

// PartSizeBytes returns the multi-part chunk size.
func (c *Config) PartSizeBytes() int64 {
	return int64(c.Notion.PartSizeMB) * mebibyte
}

// RequireStore reports missing document store credentials.
func (c *Config) RequireStore() error {
	if strings.TrimSpace(c.Notion.Token) == "" {
		return missing("notion.token", "NOTION_TOKEN")
	}
	if len(c.Notion.DatabaseIDs) == 0 {
		return missing("notion.database_ids", "NOTION_DEFAULT_DATABASE_ID")
	}
	return nil
}

// RequireRender reports settings the render pass cannot run without.
func (c *Config) RequireRender() error {
	if err := c.RequireStore(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Aligner.WordsBaseURL) == "" {
		return missing("aligner.words_base_url", "AENEAS_BASE_URL")
	}
	if strings.TrimSpace(c.Render.Command) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "render", "render.command must be set", nil)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return missing("llm.api_key", "LLM_API_KEY")
	}
	return nil
}

// RequireProducer reports settings the producer cannot run without.
func (c *Config) RequireProducer() error {
	if err := c.RequireStore(); err != nil {
		return err
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return missing("llm.api_key", "LLM_API_KEY")
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return missing("openai.api_key", "OPENAI_API_KEY")
	}
	return nil
}

// PublishEnabled reports whether video-hosting credentials are present.
func (c *Config) PublishEnabled() bool {
	return strings.TrimSpace(c.Publish.ClientID) != "" &&
		strings.TrimSpace(c.Publish.ClientSecret) != "" &&
		strings.TrimSpace(c.Publish.RefreshToken) != ""
}

func missing(key, env string) error {
	location, err := DefaultConfigPath()
	if err != nil {
		location = defaultConfigPath
	}
	message := fmt.Sprintf("%s is required. Set %s or edit %s (create with 'shortsmith config init')", key, env, location)
	return services.Wrap(services.ErrConfiguration, "config", "require", message, nil)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
