package config

const (
	defaultCacheDir       = "~/.cache/subpipe"
	defaultLogDir         = "~/.local/share/subpipe/logs"
	defaultJournalPath    = "~/.local/share/subpipe/journal.db"
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultSampleSeconds  = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultCacheEnabled   = true
	defaultJournalEnabled = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Identity: Identity{
			SampleSeconds: defaultSampleSeconds,
		},
		Cache: Cache{
			Enabled: defaultCacheEnabled,
		},
		Journal: Journal{
			Enabled: defaultJournalEnabled,
			Path:    defaultJournalPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
