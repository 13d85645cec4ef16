package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	return c.normalizeSubtitles()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	if glossary := strings.TrimSpace(c.Subtitles.GlossaryPath); glossary != "" {
		if c.Subtitles.GlossaryPath, err = expandPath(glossary); err != nil {
			return fmt.Errorf("subtitles.glossary_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
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

func (c *Config) normalizeSubtitles() error {
	cleaned := make([]string, 0, len(c.Subtitles.TargetLanguages))
	for _, tag := range c.Subtitles.TargetLanguages {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		cleaned = append(cleaned, tag)
	}
	c.Subtitles.TargetLanguages = cleaned
	return nil
}
