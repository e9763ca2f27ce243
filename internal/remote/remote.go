// Package remote keeps themes in sync with the packages they were imported
// from. A Service stages a package through a source.Importer, parses its
// manifest, and reconciles fields, uploads and color schemes inside a single
// store transaction.
package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/manifest"
	"github.com/samhoang/themesync/internal/source"
	"github.com/samhoang/themesync/internal/theme"
	"github.com/samhoang/themesync/internal/upload"
)

// ImporterFactory creates an importer for a location.
type ImporterFactory func(location string, opts source.Options) source.Importer

// Service runs imports and syncs against a Store.
type Service struct {
	store       Store
	fields      *FieldReconciler
	colors      *ColorMerger
	newImporter ImporterFactory
	sourceOpts  source.Options
	notifier    ColorNotifier
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithImporterFactory replaces source.DetectImporter.
func WithImporterFactory(f ImporterFactory) Option {
	return func(s *Service) { s.newImporter = f }
}

// WithNotifier sets the receiver of color change notifications.
func WithNotifier(n ColorNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the time source used for sync timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSourceOptions sets the importer defaults (timeouts, ssh user, limits).
// Branch and key are always taken from the request or stored source.
func WithSourceOptions(opts source.Options) Option {
	return func(s *Service) { s.sourceOpts = opts }
}

// New creates a Service.
func New(store Store, uploader upload.Uploader, opts ...Option) *Service {
	s := &Service{
		store:       store,
		newImporter: source.DetectImporter,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fields = NewFieldReconciler(uploader)
	s.colors = NewColorMerger(s.notifier)
	return s
}

// ImportRequest describes a package to import as a new theme. Exactly one of
// URL and ArchivePath must be set.
type ImportRequest struct {
	URL         string
	ArchivePath string
	Branch      string
	PrivateKey  string
	UserID      string
}

func (r ImportRequest) location() (string, error) {
	switch {
	case r.URL != "" && r.ArchivePath != "":
		return "", fmt.Errorf("url and archive path are mutually exclusive")
	case r.URL != "":
		return r.URL, nil
	case r.ArchivePath != "":
		return r.ArchivePath, nil
	}
	return "", fmt.Errorf("a url or archive path is required")
}

// ImportResult is the outcome of an initial import.
type ImportResult struct {
	Theme  theme.Theme        `json:"theme"`
	Source theme.RemoteSource `json:"source"`
	Fields FieldResult        `json:"fields"`
	Colors ColorResult        `json:"colors"`
}

// UpdateOptions tunes UpdateFromRemote.
type UpdateOptions struct {
	// Importer is an already staged package to apply. The caller keeps
	// ownership and must clean it up.
	Importer source.Importer

	// SkipVersionUpdate leaves the recorded versions untouched.
	SkipVersionUpdate bool
}

// DiffResult carries a local-changes patch or the error that prevented it.
type DiffResult struct {
	Diff  string `json:"diff"`
	Error string `json:"error,omitempty"`
}

func (s *Service) importerOptions(branch, key string) source.Options {
	opts := s.sourceOpts
	opts.Branch = branch
	opts.PrivateKey = key
	return opts
}

// syncContext attaches a logger tagged with a fresh sync id.
func syncContext(ctx context.Context, themeID int64) context.Context {
	l := zerolog.Ctx(ctx).With().Str("sync_id", uuid.NewString())
	if themeID != 0 {
		l = l.Int64("theme_id", themeID)
	}
	logger := l.Logger()
	return logger.WithContext(ctx)
}

// release cleans up an importer this service created.
func release(ctx context.Context, imp source.Importer) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Warn().Interface("panic", r).Msg("importer cleanup panicked")
		}
	}()
	imp.Cleanup()
}

// parse reads and validates the manifest of a staged package.
func parse(imp source.Importer, location string) (*manifest.Manifest, error) {
	m, err := manifest.Parse(imp)
	if err != nil {
		return nil, err
	}
	msgs := m.Metadata.Validate()
	if strings.TrimSpace(m.Name) == "" {
		msgs = append([]string{"name is required"}, msgs...)
	}
	if verr := errors.NewValidationError(msgs); verr != nil {
		return nil, errors.NewImportError("validate manifest", location, verr)
	}
	return m, nil
}

// Import stages a package and creates a theme from it.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	location, err := req.location()
	if err != nil {
		return nil, err
	}
	ctx = syncContext(ctx, 0)
	logger := zerolog.Ctx(ctx)

	imp := s.newImporter(location, s.importerOptions(req.Branch, req.PrivateKey))
	defer release(ctx, imp)

	if err := imp.Import(ctx); err != nil {
		return nil, err
	}
	m, err := parse(imp, location)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &ImportResult{}
	err = s.store.RunInTx(ctx, func(q Queries) error {
		th := theme.Theme{Name: m.Name, UserID: req.UserID, Component: m.Component}
		if err := q.CreateTheme(ctx, &th); err != nil {
			return err
		}

		fields, err := s.fields.Reconcile(ctx, q, imp, m, &th)
		if err != nil {
			return err
		}
		var colors ColorResult
		if !m.Component {
			if colors, err = s.colors.Reconcile(ctx, q, &th, m.ColorSchemes, true); err != nil {
				return err
			}
		}

		version := imp.Version()
		src := theme.RemoteSource{
			ThemeID:         th.ID,
			LocalVersion:    version,
			RemoteVersion:   version,
			RemoteUpdatedAt: now,
			UpdatedAt:       now,
			Metadata:        m.Metadata,
		}
		if imp.Type() == source.TypeGit {
			src.URL = location
			src.Branch = req.Branch
			src.PrivateKey = req.PrivateKey
		}
		if err := q.SaveRemoteSource(ctx, &src); err != nil {
			return err
		}

		*result = ImportResult{Theme: th, Source: src, Fields: fields, Colors: colors}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int64("theme_id", result.Theme.ID).
		Str("name", result.Theme.Name).
		Str("version", theme.ShortVersion(result.Source.LocalVersion)).
		Msg("imported theme")
	return result, nil
}

// UpdateRemoteVersion checks the remote of a git-backed theme and records how
// far the stored version is behind it. A failed fetch is recorded on the
// source instead of being returned.
func (s *Service) UpdateRemoteVersion(ctx context.Context, themeID int64) (theme.RemoteSource, error) {
	ctx = syncContext(ctx, themeID)
	logger := zerolog.Ctx(ctx)

	src, err := s.store.GetRemoteSource(ctx, themeID)
	if err != nil {
		return src, err
	}
	if !src.IsGit() {
		return src, errors.ErrNotGitSource
	}

	imp := s.newImporter(src.URL, s.importerOptions(src.Branch, src.PrivateKey))
	defer release(ctx, imp)

	version, behind, err := s.remoteVersion(ctx, imp, src.LocalVersion)
	if err != nil {
		if !errors.IsImportError(err) {
			return src, err
		}
		logger.Warn().Err(err).Msg("version check failed")
		src.LastErrorText = err.Error()
		return src, s.store.SaveRemoteSource(ctx, &src)
	}

	src.RemoteVersion = version
	src.CommitsBehind = behind
	src.LastErrorText = ""
	src.UpdatedAt = s.now()
	if err := s.store.SaveRemoteSource(ctx, &src); err != nil {
		return src, err
	}
	logger.Debug().
		Str("remote_version", theme.ShortVersion(version)).
		Int("commits_behind", behind).
		Msg("refreshed remote version")
	return src, nil
}

func (s *Service) remoteVersion(ctx context.Context, imp source.Importer, localVersion string) (string, int, error) {
	if err := imp.Import(ctx); err != nil {
		return "", 0, err
	}
	counter, ok := imp.(source.CommitCounter)
	if !ok {
		return imp.Version(), 0, nil
	}
	return counter.CommitsSince(ctx, localVersion)
}

// UpdateFromRemote applies the current package content to a theme. When the
// package cannot be staged the error is recorded on the source and the stored
// record is returned unchanged. Manifest, validation and upload failures are
// returned and nothing is committed.
func (s *Service) UpdateFromRemote(ctx context.Context, themeID int64, opts UpdateOptions) (theme.RemoteSource, error) {
	ctx = syncContext(ctx, themeID)
	logger := zerolog.Ctx(ctx)

	th, err := s.store.GetTheme(ctx, themeID)
	if err != nil {
		return theme.RemoteSource{}, err
	}
	src, err := s.store.GetRemoteSource(ctx, themeID)
	if err != nil {
		return src, err
	}

	imp := opts.Importer
	location := src.URL
	if imp == nil {
		if !src.IsGit() {
			return src, errors.ErrNotGitSource
		}
		imp = s.newImporter(src.URL, s.importerOptions(src.Branch, src.PrivateKey))
		defer release(ctx, imp)

		if err := imp.Import(ctx); err != nil {
			if !errors.IsImportError(err) {
				return src, err
			}
			logger.Warn().Err(err).Msg("update failed to stage package")
			failed := src
			failed.LastErrorText = err.Error()
			if err := s.store.SaveRemoteSource(ctx, &failed); err != nil {
				return src, err
			}
			return src, nil
		}
	}

	m, err := parse(imp, location)
	if err != nil {
		return src, err
	}

	updated := src
	var fields FieldResult
	var colors ColorResult
	err = s.store.RunInTx(ctx, func(q Queries) error {
		if th.Component != m.Component {
			th.Component = m.Component
			if err := q.UpdateTheme(ctx, &th); err != nil {
				return err
			}
		}

		var err error
		if fields, err = s.fields.Reconcile(ctx, q, imp, m, &th); err != nil {
			return err
		}
		if !m.Component {
			if colors, err = s.colors.Reconcile(ctx, q, &th, m.ColorSchemes, false); err != nil {
				return err
			}
		}

		now := s.now()
		updated.Metadata = m.Metadata
		if !opts.SkipVersionUpdate {
			version := imp.Version()
			updated.LocalVersion = version
			updated.RemoteVersion = version
			updated.CommitsBehind = 0
			updated.RemoteUpdatedAt = now
		}
		updated.LastErrorText = ""
		updated.UpdatedAt = now
		return q.SaveRemoteSource(ctx, &updated)
	})
	if err != nil {
		return src, err
	}

	logger.Info().
		Str("version", theme.ShortVersion(updated.LocalVersion)).
		Bool("fields_changed", fields.Changed()).
		Int("colors_updated", colors.Updated).
		Int("schemes_created", colors.Created).
		Int("schemes_deleted", colors.Deleted).
		Msg("updated theme from remote")
	return updated, nil
}

// DiffLocalChanges returns a patch of stored field values against the last
// imported version. Failures are reported in the result, except for store
// lookups which are returned.
func (s *Service) DiffLocalChanges(ctx context.Context, themeID int64) (DiffResult, error) {
	ctx = syncContext(ctx, themeID)

	src, err := s.store.GetRemoteSource(ctx, themeID)
	if err != nil {
		return DiffResult{}, err
	}
	if !src.IsGit() {
		return DiffResult{Error: errors.ErrNotGitSource.Error()}, nil
	}
	fields, err := s.store.ListFields(ctx, themeID)
	if err != nil {
		return DiffResult{}, err
	}

	imp := s.newImporter(src.URL, s.importerOptions(src.Branch, src.PrivateKey))
	defer release(ctx, imp)

	if err := imp.Import(ctx); err != nil {
		return DiffResult{Error: err.Error()}, nil
	}
	differ, ok := imp.(source.LocalDiffer)
	if !ok {
		return DiffResult{Error: fmt.Sprintf("%s importer cannot diff local changes", imp.Type())}, nil
	}
	diff, err := differ.DiffLocalChanges(ctx, src.LocalVersion, fields)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return DiffResult{}, err
		}
		return DiffResult{Error: err.Error()}, nil
	}
	return DiffResult{Diff: diff}, nil
}

// ListRemoteThemes returns every theme that has a remote source.
func (s *Service) ListRemoteThemes(ctx context.Context) ([]theme.RemoteTheme, error) {
	return s.store.ListRemoteThemes(ctx)
}
