package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/samhoang/themesync/internal/source"
)

// Config represents the themesync.toml configuration file
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Git      GitConfig      `toml:"git"`
	Archive  ArchiveConfig  `toml:"archive"`
	Log      LogConfig      `toml:"log"`
	Check    CheckConfig    `toml:"check"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// Upload backends
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// UploadsConfig selects where theme assets are stored
type UploadsConfig struct {
	// "local" or "s3"
	Backend string `toml:"backend"`

	// Local directory (local backend)
	Dir string `toml:"dir"`

	// Bucket settings (s3 backend). Credentials come from the AWS default chain.
	Bucket   string `toml:"bucket,omitempty"`
	Region   string `toml:"region,omitempty"`
	Prefix   string `toml:"prefix,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`
}

// GitConfig tunes the git importer
type GitConfig struct {
	CloneTimeout Duration `toml:"clone_timeout"`
	SSHUser      string   `toml:"ssh_user"`
}

// ArchiveConfig tunes the archive importer
type ArchiveConfig struct {
	DownloadTimeout Duration `toml:"download_timeout"`
	MaxBytes        int64    `toml:"max_bytes"`

	// Decompressed size cap; 0 means source.DefaultExtractRatio * max_bytes
	MaxExtractedBytes int64 `toml:"max_extracted_bytes"`
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// CheckConfig bounds `theme check --all`
type CheckConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Duration is a time.Duration written as a string ("90s", "2m") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists
func Default(paths *Paths) *Config {
	return &Config{
		Database: DatabaseConfig{Path: paths.DefaultDatabase()},
		Uploads: UploadsConfig{
			Backend: BackendLocal,
			Dir:     paths.DefaultUploadDir(),
		},
		Git: GitConfig{
			CloneTimeout: Duration{source.DefaultCloneTimeout},
			SSHUser:      source.DefaultSSHUser,
		},
		Archive: ArchiveConfig{
			DownloadTimeout: Duration{source.DefaultDownloadTimeout},
			MaxBytes:        source.DefaultMaxArchiveBytes,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Check: CheckConfig{Concurrency: 4},
	}
}

// Load reads the .env file and themesync.toml from the config directory.
// Missing files fall back to defaults; environment variables override both.
func Load(paths *Paths) (*Config, error) {
	if err := godotenv.Load(paths.EnvFile()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", paths.EnvFile(), err)
	}

	cfg := Default(paths)
	data, err := os.ReadFile(paths.ConfigFile())
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", paths.ConfigFile(), err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes themesync.toml to disk
func (c *Config) Save(paths *Paths) error {
	if err := os.MkdirAll(paths.ConfigDir, 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(paths.ConfigFile(), data, 0o644)
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"THEMESYNC_DATABASE_PATH":   &c.Database.Path,
		"THEMESYNC_UPLOADS_BACKEND": &c.Uploads.Backend,
		"THEMESYNC_UPLOADS_DIR":     &c.Uploads.Dir,
		"THEMESYNC_S3_BUCKET":       &c.Uploads.Bucket,
		"THEMESYNC_S3_REGION":       &c.Uploads.Region,
		"THEMESYNC_S3_PREFIX":       &c.Uploads.Prefix,
		"THEMESYNC_S3_ENDPOINT":     &c.Uploads.Endpoint,
		"THEMESYNC_LOG_LEVEL":       &c.Log.Level,
		"THEMESYNC_LOG_FORMAT":      &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("THEMESYNC_CHECK_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("THEMESYNC_CHECK_CONCURRENCY: %w", err)
		}
		c.Check.Concurrency = n
	}
	return nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Path == "" {
		problems = append(problems, "database.path must be set")
	}

	switch c.Uploads.Backend {
	case BackendLocal:
		if c.Uploads.Dir == "" {
			problems = append(problems, "uploads.dir must be set for the local backend")
		}
	case BackendS3:
		if c.Uploads.Bucket == "" {
			problems = append(problems, "uploads.bucket must be set for the s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("uploads.backend %q must be %q or %q", c.Uploads.Backend, BackendLocal, BackendS3))
	}

	if c.Git.CloneTimeout.Duration <= 0 {
		problems = append(problems, "git.clone_timeout must be positive")
	}
	if c.Archive.DownloadTimeout.Duration <= 0 {
		problems = append(problems, "archive.download_timeout must be positive")
	}
	if c.Archive.MaxBytes <= 0 {
		problems = append(problems, "archive.max_bytes must be positive")
	}
	if c.Archive.MaxExtractedBytes < 0 {
		problems = append(problems, "archive.max_extracted_bytes must not be negative")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is not a valid level", c.Log.Level))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}

	if c.Check.Concurrency < 1 {
		problems = append(problems, "check.concurrency must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SourceOptions returns importer settings derived from the config.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		SSHUser:           c.Git.SSHUser,
		CloneTimeout:      c.Git.CloneTimeout.Duration,
		DownloadTimeout:   c.Archive.DownloadTimeout.Duration,
		MaxArchiveBytes:   c.Archive.MaxBytes,
		MaxExtractedBytes: c.Archive.MaxExtractedBytes,
	}
}
