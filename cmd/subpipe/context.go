package main

import (
	"fmt"
	"strings"
	"sync"

	"log/slog"

	"subpipe/internal/artifactstore"
	"subpipe/internal/config"
	"subpipe/internal/identity"
	"subpipe/internal/journal"
	"subpipe/internal/logging"
	"subpipe/internal/media/pcm"
	"subpipe/internal/orchestrator"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// openStore returns the artifact store, or nil with a warning string when
// caching is disabled in config.
func (c *commandContext) openStore(logger *slog.Logger) (*artifactstore.Store, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if !cfg.Cache.Enabled {
		return nil, "Artifact cache is disabled (set enabled = true under [cache] in config.toml)", nil
	}
	if strings.TrimSpace(cfg.Paths.CacheDir) == "" {
		return nil, "Cache directory is not configured", nil
	}
	return artifactstore.New(cfg.Paths.CacheDir, logger), "", nil
}

// openJournal returns the run journal, or nil when journaling is disabled.
// Callers own the returned journal and must close it.
func (c *commandContext) openJournal() (*journal.Journal, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	path, err := config.ExpandPath(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}
	return journal.Open(path)
}

func (c *commandContext) newIdentifier(logger *slog.Logger) (*identity.Identifier, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	decoder := pcm.NewFFmpegDecoder(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	return identity.New(decoder, logger), nil
}

func (c *commandContext) newOrchestrator(logger *slog.Logger, jrnl *journal.Journal) (*orchestrator.Orchestrator, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	store, warn, err := c.openStore(logger)
	if err != nil {
		return nil, warn, err
	}
	identifier, err := c.newIdentifier(logger)
	if err != nil {
		return nil, warn, err
	}
	return orchestrator.New(identifier, store, jrnl, logger, cfg.Identity.SampleSeconds), warn, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
