package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "themesync"

// Paths holds all resolved paths for themesync
type Paths struct {
	ConfigDir string // $XDG_CONFIG_HOME/themesync
	DataDir   string // $XDG_DATA_HOME/themesync
}

// ResolvePaths resolves all paths based on environment and XDG defaults
func ResolvePaths() (*Paths, error) {
	configDir := os.Getenv("THEMESYNC_CONFIG_DIR")
	if configDir == "" {
		configDir = filepath.Join(xdg.ConfigHome, appName)
	}

	dataDir := os.Getenv("THEMESYNC_DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, appName)
	}

	return &Paths{
		ConfigDir: configDir,
		DataDir:   dataDir,
	}, nil
}

// ConfigFile returns the path to themesync.toml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, appName+".toml")
}

// EnvFile returns the .env file loaded before the config
func (p *Paths) EnvFile() string {
	return filepath.Join(p.ConfigDir, ".env")
}

// DefaultDatabase returns the default SQLite database location
func (p *Paths) DefaultDatabase() string {
	return filepath.Join(p.DataDir, appName+".db")
}

// DefaultUploadDir returns the default local upload directory
func (p *Paths) DefaultUploadDir() string {
	return filepath.Join(p.DataDir, "uploads")
}

// ConfigExists checks if themesync.toml has been written
func (p *Paths) ConfigExists() bool {
	info, err := os.Stat(p.ConfigFile())
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
