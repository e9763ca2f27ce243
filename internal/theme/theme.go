// Package theme holds the domain model shared by the importers, the
// reconcilers and the store: themes, their fields and color schemes, and the
// remote source record describing where a theme was imported from.
package theme

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Theme is a themable package owned by a user.
type Theme struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	UserID        string    `json:"userId"`
	Component     bool      `json:"component"`
	ColorSchemeID *int64    `json:"colorSchemeId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Persisted reports whether the theme has been written to the store.
func (t Theme) Persisted() bool {
	return t.ID > 0
}

// Metadata is the descriptive part of about.json copied onto the remote source.
type Metadata struct {
	LicenseURL     string `json:"licenseUrl,omitempty"`
	AboutURL       string `json:"aboutUrl,omitempty"`
	Authors        string `json:"authors,omitempty"`
	ThemeVersion   string `json:"themeVersion,omitempty"`
	MinimumVersion string `json:"minimumVersion,omitempty"`
	MaximumVersion string `json:"maximumVersion,omitempty"`
}

var betaSuffix = regexp.MustCompile(`\.(beta|rc)(\d+)$`)

// ParsePlatformVersion parses a platform version string such as "3.1.0" or
// "3.2.0.beta4".
func ParsePlatformVersion(raw string) (*semver.Version, error) {
	normalized := betaSuffix.ReplaceAllString(strings.TrimSpace(raw), "-$1$2")
	return semver.NewVersion(normalized)
}

// Validate checks the metadata format rules and returns every violation.
// Absent values are always valid.
func (m Metadata) Validate() []string {
	var messages []string

	var minVersion, maxVersion *semver.Version
	if m.MinimumVersion != "" {
		v, err := ParsePlatformVersion(m.MinimumVersion)
		if err != nil {
			messages = append(messages, fmt.Sprintf("minimum_version %q is not a valid version", m.MinimumVersion))
		}
		minVersion = v
	}
	if m.MaximumVersion != "" {
		v, err := ParsePlatformVersion(m.MaximumVersion)
		if err != nil {
			messages = append(messages, fmt.Sprintf("maximum_version %q is not a valid version", m.MaximumVersion))
		}
		maxVersion = v
	}
	if minVersion != nil && maxVersion != nil && minVersion.GreaterThan(maxVersion) {
		messages = append(messages, "minimum_version must not be greater than maximum_version")
	}

	if m.LicenseURL != "" && !isHTTPURL(m.LicenseURL) {
		messages = append(messages, fmt.Sprintf("license_url %q is not a valid URL", m.LicenseURL))
	}
	if m.AboutURL != "" && !isHTTPURL(m.AboutURL) {
		messages = append(messages, fmt.Sprintf("about_url %q is not a valid URL", m.AboutURL))
	}

	return messages
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// RemoteSource records where a theme came from and how far it has been synced.
type RemoteSource struct {
	ID              int64     `json:"id"`
	ThemeID         int64     `json:"themeId"`
	URL             string    `json:"url,omitempty"`
	Branch          string    `json:"branch,omitempty"`
	PrivateKey      string    `json:"-"`
	LocalVersion    string    `json:"localVersion,omitempty"`
	RemoteVersion   string    `json:"remoteVersion,omitempty"`
	CommitsBehind   int       `json:"commitsBehind"`
	LastErrorText   string    `json:"lastErrorText,omitempty"`
	RemoteUpdatedAt time.Time `json:"remoteUpdatedAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Metadata        Metadata  `json:"metadata"`
}

// IsGit reports whether the source tracks a git remote. An empty URL means the
// theme was imported from an archive and only exists locally.
func (r RemoteSource) IsGit() bool {
	return r.URL != ""
}

// OutOfDate reports whether the remote has moved past the imported version.
func (r RemoteSource) OutOfDate() bool {
	return r.CommitsBehind > 0 || r.RemoteVersion != r.LocalVersion
}

// Failed reports whether the last sync attempt recorded an error.
func (r RemoteSource) Failed() bool {
	return r.LastErrorText != ""
}

// ShortVersion trims a version token for display.
func ShortVersion(v string) string {
	v = strings.TrimPrefix(v, "sha256:")
	if len(v) > 7 {
		return v[:7]
	}
	return v
}

// RemoteTheme pairs a theme with its remote source record.
type RemoteTheme struct {
	Theme  Theme        `json:"theme"`
	Source RemoteSource `json:"source"`
}
