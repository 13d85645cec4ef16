package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateSubtitles()
}

func (c *Config) validateIdentity() error {
	if c.Identity.SampleSeconds <= 0 {
		return errors.New("identity.sample_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	for _, tag := range c.Subtitles.TargetLanguages {
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("subtitles.target_languages: invalid language tag %q: %w", tag, err)
		}
	}
	return nil
}
