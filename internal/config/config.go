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
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Tools names the external binaries the subsystem shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Identity contains configuration for media fingerprinting.
type Identity struct {
	// SampleSeconds is the length of each PCM sampling window.
	SampleSeconds int `toml:"sample_seconds"`
}

// Cache contains configuration for the artifact store.
type Cache struct {
	Enabled bool `toml:"enabled"`
}

// Journal contains configuration for the SQLite run journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Subtitles contains configuration consumed by the post-baseline stages.
type Subtitles struct {
	// TargetLanguages are BCP 47 tags the translation stage produces.
	TargetLanguages []string `toml:"target_languages"`
	// GlossaryPath points at the optional glossary file applied after
	// translation. An absent file is a valid, addressable state.
	GlossaryPath string `toml:"glossary_path"`
}

// Config encapsulates all configuration values for subpipe.
//
// Configuration sections by subsystem:
//   - Paths: cache root and log directory
//   - Tools: ffmpeg/ffprobe binaries used for probing and PCM decoding
//   - Identity: fingerprint sampling parameters
//   - Cache: artifact store enablement
//   - Journal: SQLite run journal
//   - Logging: log format and level
//   - Subtitles: translation targets and glossary location
type Config struct {
	Paths     Paths     `toml:"paths"`
	Tools     Tools     `toml:"tools"`
	Identity  Identity  `toml:"identity"`
	Cache     Cache     `toml:"cache"`
	Journal   Journal   `toml:"journal"`
	Logging   Logging   `toml:"logging"`
	Subtitles Subtitles `toml:"subtitles"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found; defaults apply either way.
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
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the caching subsystem needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Cache.Enabled {
		dirs = append(dirs, c.Paths.CacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
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
