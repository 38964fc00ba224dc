package config

const (
	mebibyte = 1 << 20

	defaultConfigPath            = "~/.config/shortsmith/config.toml"
	defaultPublicDir             = "~/.local/share/shortsmith/public"
	defaultOutputDir             = "~/.local/share/shortsmith/out"
	defaultStateDir              = "~/.local/share/shortsmith/state"
	defaultLogDir                = "~/.local/share/shortsmith/logs"
	defaultNotionBaseURL         = "https://api.notion.com/v1"
	defaultNotionVersion         = "2022-06-28"
	defaultNotionTimeout         = 180
	defaultSinglePartLimitMiB    = 20
	defaultPartSizeMiB           = 10
	defaultUploadAttempts        = 3
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/shortsmith/shortsmith"
	defaultLLMTitle              = "shortsmith"
	defaultLLMTimeoutSeconds     = 120
	defaultTTSModel              = "gpt-4o-mini-tts"
	defaultImageModel            = "gpt-image-1"
	defaultImageSize             = "1024x1536"
	defaultAlignerTimeout        = 300
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultShortTargetSeconds    = 175
	defaultShortCeilingSeconds   = 350
	defaultStaleScratchHours     = 24
	defaultStaggerMinutes        = 60
	defaultCategoryID            = "28"
	defaultPrivacy               = "public"
	defaultPublishChannel        = "CodeStack"
	defaultComposition           = "Portrait"
	defaultIllustrationWorkers   = 4
	defaultMermaidBinary         = "mmdc"
	defaultNewsMaxTakeSeconds    = 170
	defaultNewsletterSender      = "newsletter@filipedeschamps.com.br"
	defaultNewsletterMaxAgeHours = 12
	defaultAssetsDir             = "assets"
	defaultColor                 = "oklch(97% 0 0)"
	defaultMainColor             = "oklch(68.5% 0.169 237.323)"
	defaultSecondaryColor        = "oklch(29.3% 0.066 243.157)"
	defaultNotifyTimeout         = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PublicDir: defaultPublicDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Notion: Notion{
			BaseURL:           defaultNotionBaseURL,
			Version:           defaultNotionVersion,
			TimeoutSeconds:    defaultNotionTimeout,
			SinglePartLimitMB: defaultSinglePartLimitMiB,
			PartSizeMB:        defaultPartSizeMiB,
			UploadAttempts:    defaultUploadAttempts,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		OpenAI: OpenAI{
			TTSModel:   defaultTTSModel,
			ImageModel: defaultImageModel,
			ImageSize:  defaultImageSize,
		},
		Aligner: Aligner{
			TimeoutSeconds: defaultAlignerTimeout,
		},
		Render: Render{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			ShortTargetSeconds:  defaultShortTargetSeconds,
			ShortCeilingSeconds: defaultShortCeilingSeconds,
			StaleScratchHours:   defaultStaleScratchHours,
		},
		Publish: Publish{
			Channels:       []string{defaultPublishChannel},
			StaggerMinutes: defaultStaggerMinutes,
			CategoryID:     defaultCategoryID,
			Privacy:        defaultPrivacy,
		},
		Producer: Producer{
			Compositions:            []string{defaultComposition},
			Channels:                []string{defaultPublishChannel},
			IllustrationConcurrency: defaultIllustrationWorkers,
			MermaidBinary:           defaultMermaidBinary,
			NewsMaxTakeSeconds:      defaultNewsMaxTakeSeconds,
			NewsletterSender:        defaultNewsletterSender,
			NewsletterMaxAgeHours:   defaultNewsletterMaxAgeHours,
		},
		Background: Background{
			AssetsDir:      defaultAssetsDir,
			Color:          defaultColor,
			MainColor:      defaultMainColor,
			SecondaryColor: defaultSecondaryColor,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RecordDone:     true,
			Published:      true,
			Errors:         true,
			BatchSummary:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
