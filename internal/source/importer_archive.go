package source

import (
	"context"
	_ "crypto/sha256"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"

	"github.com/samhoang/themesync/internal/errors"
)

// ArchiveImporter stages a theme from a zip or gzipped tarball, either on local
// disk or behind an http(s) URL.
type ArchiveImporter struct {
	location string
	opts     Options
	client   *http.Client
	staged   *stagedDir
	version  digest.Digest
}

var _ Importer = (*ArchiveImporter)(nil)

// NewArchiveImporter creates an importer for a local path or http(s) URL.
func NewArchiveImporter(location string, opts Options) *ArchiveImporter {
	return &ArchiveImporter{
		location: location,
		opts:     opts.withDefaults(),
		client:   http.DefaultClient,
	}
}

// WithHTTPClient overrides the client used for remote archives.
func (a *ArchiveImporter) WithHTTPClient(c *http.Client) *ArchiveImporter {
	a.client = c
	return a
}

func (a *ArchiveImporter) Type() string {
	return TypeArchive
}

func (a *ArchiveImporter) isRemote() bool {
	return strings.HasPrefix(a.location, "http://") || strings.HasPrefix(a.location, "https://")
}

func (a *ArchiveImporter) Import(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("importer", TypeArchive).Str("location", redactURL(a.location)).Logger()

	staged, err := newStagedDir(TypeArchive, logger)
	if err != nil {
		return errors.NewImportError("extract archive", a.location, err)
	}
	a.staged = staged

	archivePath := a.location
	if a.isRemote() {
		tmp, err := a.download(ctx)
		if tmp != "" {
			defer os.Remove(tmp)
		}
		if err != nil {
			return errors.NewImportError("download archive", redactURL(a.location), err)
		}
		archivePath = tmp
	}

	dgst, err := digestFile(archivePath, a.opts.MaxArchiveBytes)
	if err != nil {
		return errors.NewImportError("read archive", redactURL(a.location), err)
	}

	format, err := archiveFormat(archivePath, a.location)
	if err != nil {
		return errors.NewImportError("extract archive", redactURL(a.location), err)
	}

	switch format {
	case formatZip:
		err = extractZip(archivePath, staged.root, a.opts.MaxExtractedBytes)
	case formatTarGz:
		err = extractTarGzFile(archivePath, staged.root, a.opts.MaxExtractedBytes)
	}
	if err != nil {
		return errors.NewImportError("extract archive", redactURL(a.location), err)
	}

	a.version = dgst
	logger.Debug().Str("version", dgst.String()).Str("format", format).Msg("extracted theme archive")
	return nil
}

func (a *ArchiveImporter) download(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.location, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", errors.ErrTransport, resp.StatusCode)
	}
	if resp.ContentLength > a.opts.MaxArchiveBytes {
		return "", ErrArchiveTooLarge
	}

	tmp, err := os.CreateTemp("", "themesync-download-*"+archiveSuffix(a.location))
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, a.opts.MaxArchiveBytes+1))
	if err != nil {
		return tmp.Name(), fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	if n > a.opts.MaxArchiveBytes {
		return tmp.Name(), ErrArchiveTooLarge
	}
	return tmp.Name(), nil
}

func (a *ArchiveImporter) AllFiles() iter.Seq[string] {
	return a.staged.files()
}

func (a *ArchiveImporter) ReadFile(path string) ([]byte, error) {
	return a.staged.readFile(path)
}

func (a *ArchiveImporter) RealPath(path string) (string, bool) {
	return a.staged.realPath(path)
}

// Version returns the sha256 digest of the archive bytes.
func (a *ArchiveImporter) Version() string {
	return a.version.String()
}

func (a *ArchiveImporter) Cleanup() {
	a.staged.remove()
}

func digestFile(path string, maxBytes int64) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() > maxBytes {
		return "", ErrArchiveTooLarge
	}
	return digest.Canonical.FromReader(f)
}

const (
	formatZip   = "zip"
	formatTarGz = "tar.gz"
)

// archiveFormat sniffs the archive content and falls back to the suffix of
// the original location.
func archiveFormat(path, location string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err == nil {
		switch {
		case mt.Is("application/zip"):
			return formatZip, nil
		case mt.Is("application/gzip"):
			return formatTarGz, nil
		}
	}

	switch archiveSuffix(location) {
	case ".zip":
		return formatZip, nil
	case ".tar.gz", ".tgz":
		return formatTarGz, nil
	}
	if mt != nil {
		return "", fmt.Errorf("%w (%s)", ErrArchiveUnsupported, mt.String())
	}
	return "", ErrArchiveUnsupported
}

func archiveSuffix(location string) string {
	lower := strings.ToLower(location)
	if i := strings.IndexAny(lower, "?#"); i >= 0 && strings.Contains(lower, "://") {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".tar.gz"):
		return ".tar.gz"
	case strings.HasSuffix(lower, ".tgz"):
		return ".tgz"
	default:
		return filepath.Ext(lower)
	}
}
