package source

import (
	"os"
	"strings"
)

// Importer types
const (
	TypeGit     = "git"
	TypeArchive = "archive"
)

// DetectImporter picks a backend for location. Archive suffixes and existing
// local files use the archive importer, everything else is cloned with git.
func DetectImporter(location string, opts Options) Importer {
	if IsArchive(location) {
		return NewArchiveImporter(location, opts)
	}
	return NewGitImporter(normalizeGitURL(location), opts)
}

// IsArchive reports whether location names a theme archive.
func IsArchive(location string) bool {
	lower := strings.ToLower(location)
	if strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tgz") ||
		strings.HasSuffix(lower, ".zip") {
		return true
	}
	if strings.Contains(location, "://") || strings.HasPrefix(location, "git@") {
		return false
	}
	info, err := os.Stat(location)
	return err == nil && info.Mode().IsRegular()
}

// normalizeGitURL expands host-relative shorthands to HTTPS clone URLs.
func normalizeGitURL(url string) string {
	if strings.HasPrefix(url, "github.com/") ||
		strings.HasPrefix(url, "gitlab.com/") ||
		strings.HasPrefix(url, "bitbucket.org/") {
		url = "https://" + url
		if !strings.HasSuffix(url, ".git") {
			url = url + ".git"
		}
	}
	return url
}
