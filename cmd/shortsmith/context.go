package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"shortsmith/internal/config"
	"shortsmith/internal/logging"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	envOnce sync.Once
	envErr  error

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
	}
}

// loadEnv populates the process environment from the dotenv file so config
// fallbacks see it. Variables already set win.
func (c *commandContext) loadEnv() error {
	c.envOnce.Do(func() {
		if c.envFlag == nil {
			return
		}
		path := strings.TrimSpace(*c.envFlag)
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.envErr = fmt.Errorf("load env file %s: %w", path, err)
		}
	})
	return c.envErr
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// configPath returns the flag value, or empty for the default location.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
