package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is internally consistent. Credentials are
// checked separately by the Require* helpers so commands that do not need a
// collaborator can run without configuring it.
func (c *Config) Validate() error {
	if err := c.validateNotion(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotion() error {
	if c.Notion.SinglePartLimitMB <= 0 {
		return errors.New("notion.single_part_limit_mib must be positive")
	}
	if c.Notion.PartSizeMB <= 0 {
		return errors.New("notion.part_size_mib must be positive")
	}
	if c.Notion.PartSizeMB > c.Notion.SinglePartLimitMB {
		return fmt.Errorf("notion.part_size_mib (%d) must not exceed notion.single_part_limit_mib (%d)", c.Notion.PartSizeMB, c.Notion.SinglePartLimitMB)
	}
	if c.Notion.UploadAttempts < 1 {
		return errors.New("notion.upload_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.ShortTargetSeconds <= 0 {
		return errors.New("render.short_target_seconds must be positive")
	}
	if c.Render.ShortCeilingSeconds <= c.Render.ShortTargetSeconds {
		return fmt.Errorf("render.short_ceiling_seconds (%.0f) must exceed render.short_target_seconds (%.0f)", c.Render.ShortCeilingSeconds, c.Render.ShortTargetSeconds)
	}
	if c.Render.StaleScratchHours < 0 {
		return errors.New("render.stale_scratch_hours must be non-negative")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.StaggerMinutes < 0 {
		return errors.New("publish.stagger_minutes must be non-negative")
	}
	switch c.Publish.Privacy {
	case "public", "private", "unlisted":
	default:
		return fmt.Errorf("publish.privacy: unsupported value %q", c.Publish.Privacy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
