// Package source stages remote theme packages on local disk. A git importer
// clones repositories with go-git and an archive importer extracts zip and
// tarball packages; both expose the staged files through Importer.
package source

import (
	"context"
	"iter"
	"time"

	gossh "golang.org/x/crypto/ssh"

	"github.com/samhoang/themesync/internal/theme"
)

// Importer fetches a theme package into a staging area and gives read access
// to its files. Cleanup must be called once the importer is no longer needed,
// including when Import failed.
type Importer interface {
	// Type returns the backend identifier ("git" or "archive")
	Type() string

	// Import fetches and stages the package
	Import(ctx context.Context) error

	// AllFiles yields slash-separated paths relative to the package root.
	// Each call walks the staging area again.
	AllFiles() iter.Seq[string]

	// ReadFile returns the content of a staged file
	ReadFile(path string) ([]byte, error)

	// RealPath returns the on-disk location of a staged file
	RealPath(path string) (string, bool)

	// Version identifies the staged content
	Version() string

	// Cleanup removes the staging area. Failures are logged.
	Cleanup()
}

// CommitCounter is implemented by importers that can measure how far a
// previously imported version is behind the staged one.
type CommitCounter interface {
	CommitsSince(ctx context.Context, oldVersion string) (newVersion string, behind int, err error)
}

// LocalDiffer is implemented by importers that can compare stored field
// values against the staged package.
type LocalDiffer interface {
	DiffLocalChanges(ctx context.Context, localVersion string, fields []theme.Field) (string, error)
}

// Options configures importers created by DetectImporter.
type Options struct {
	Branch          string
	PrivateKey      string
	SSHUser         string
	CloneTimeout    time.Duration
	DownloadTimeout time.Duration
	MaxArchiveBytes int64
	HostKeyCallback gossh.HostKeyCallback

	// MaxExtractedBytes caps the decompressed size of an archive. Zero means
	// DefaultExtractRatio times MaxArchiveBytes.
	MaxExtractedBytes int64
}

// Default limits
const (
	DefaultSSHUser         = "git"
	DefaultCloneTimeout    = 2 * time.Minute
	DefaultDownloadTimeout = time.Minute
	DefaultMaxArchiveBytes = 50 << 20
	DefaultExtractRatio    = 4
)

func (o Options) withDefaults() Options {
	if o.SSHUser == "" {
		o.SSHUser = DefaultSSHUser
	}
	if o.CloneTimeout <= 0 {
		o.CloneTimeout = DefaultCloneTimeout
	}
	if o.DownloadTimeout <= 0 {
		o.DownloadTimeout = DefaultDownloadTimeout
	}
	if o.MaxArchiveBytes <= 0 {
		o.MaxArchiveBytes = DefaultMaxArchiveBytes
	}
	if o.MaxExtractedBytes <= 0 {
		o.MaxExtractedBytes = DefaultExtractRatio * o.MaxArchiveBytes
	}
	return o
}
