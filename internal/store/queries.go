package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/theme"
)

// Queries runs statements against a connection or a transaction.
type Queries struct {
	db  DBTX
	now func() time.Time
}

// NewQueries binds queries to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Themes

func (q *Queries) CreateTheme(ctx context.Context, t *theme.Theme) error {
	now := q.now()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO themes (name, user_id, component, color_scheme_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Name, t.UserID, t.Component, t.ColorSchemeID, now, now)
	if err != nil {
		return fmt.Errorf("insert theme: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert theme: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (q *Queries) UpdateTheme(ctx context.Context, t *theme.Theme) error {
	now := q.now()
	res, err := q.db.ExecContext(ctx,
		`UPDATE themes SET name = ?, component = ?, color_scheme_id = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Component, t.ColorSchemeID, now, t.ID)
	if err != nil {
		return fmt.Errorf("update theme %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update theme %d: %w", t.ID, errors.ErrThemeNotFound)
	}
	t.UpdatedAt = now
	return nil
}

func (q *Queries) GetTheme(ctx context.Context, id int64) (theme.Theme, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, component, color_scheme_id, created_at, updated_at FROM themes WHERE id = ?`, id)
	t, err := scanTheme(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return theme.Theme{}, fmt.Errorf("theme %d: %w", id, errors.ErrThemeNotFound)
	}
	if err != nil {
		return theme.Theme{}, fmt.Errorf("get theme %d: %w", id, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTheme(s scanner) (theme.Theme, error) {
	var t theme.Theme
	var schemeID sql.NullInt64
	if err := s.Scan(&t.ID, &t.Name, &t.UserID, &t.Component, &schemeID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return theme.Theme{}, err
	}
	if schemeID.Valid {
		id := schemeID.Int64
		t.ColorSchemeID = &id
	}
	return t, nil
}

// Fields

func (q *Queries) ListFields(ctx context.Context, themeID int64) ([]theme.Field, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, theme_id, target, name, kind, value, upload_id
		 FROM theme_fields WHERE theme_id = ? ORDER BY target, name, id`, themeID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var fields []theme.Field
	for rows.Next() {
		var f theme.Field
		if err := rows.Scan(&f.ID, &f.ThemeID, &f.Target, &f.Name, &f.Kind, &f.Value, &f.UploadID); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (q *Queries) CreateField(ctx context.Context, f *theme.Field) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO theme_fields (theme_id, target, name, kind, category, value, upload_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ThemeID, f.Target, f.Name, f.Kind, f.Kind.Category(), f.Value, f.UploadID)
	if err != nil {
		return fmt.Errorf("insert field %s/%s: %w", f.Target, f.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert field %s/%s: %w", f.Target, f.Name, err)
	}
	f.ID = id
	return nil
}

func (q *Queries) UpdateField(ctx context.Context, f *theme.Field) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE theme_fields SET kind = ?, category = ?, value = ?, upload_id = ? WHERE id = ?`,
		f.Kind, f.Kind.Category(), f.Value, f.UploadID, f.ID)
	if err != nil {
		return fmt.Errorf("update field %d: %w", f.ID, err)
	}
	return nil
}

// DeleteFields removes every field in ids with a single statement.
func (q *Queries) DeleteFields(ctx context.Context, ids []int64) error {
	return q.deleteIn(ctx, "theme_fields", ids)
}

// Color schemes

func (q *Queries) ListColorSchemes(ctx context.Context, themeID int64) ([]theme.ColorScheme, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT s.id, s.theme_id, s.name, c.id, c.name, c.hex
		 FROM color_schemes s
		 LEFT JOIN color_scheme_colors c ON c.color_scheme_id = s.id
		 WHERE s.theme_id = ?
		 ORDER BY s.id, c.position`, themeID)
	if err != nil {
		return nil, fmt.Errorf("list color schemes: %w", err)
	}
	defer rows.Close()

	var schemes []theme.ColorScheme
	for rows.Next() {
		var (
			s         theme.ColorScheme
			colorID   sql.NullInt64
			colorName sql.NullString
			colorHex  sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.ThemeID, &s.Name, &colorID, &colorName, &colorHex); err != nil {
			return nil, fmt.Errorf("scan color scheme: %w", err)
		}
		if len(schemes) == 0 || schemes[len(schemes)-1].ID != s.ID {
			schemes = append(schemes, s)
		}
		if colorID.Valid {
			last := &schemes[len(schemes)-1]
			last.Colors = append(last.Colors, theme.Color{
				ID:            colorID.Int64,
				ColorSchemeID: s.ID,
				Name:          colorName.String,
				Hex:           colorHex.String,
			})
		}
	}
	return schemes, rows.Err()
}

// CreateColorScheme inserts the scheme and its colors.
func (q *Queries) CreateColorScheme(ctx context.Context, s *theme.ColorScheme) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO color_schemes (theme_id, name) VALUES (?, ?)`, s.ThemeID, s.Name)
	if err != nil {
		return fmt.Errorf("insert color scheme %q: %w", s.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert color scheme %q: %w", s.Name, err)
	}
	s.ID = id

	for i := range s.Colors {
		c := &s.Colors[i]
		res, err := q.db.ExecContext(ctx,
			`INSERT INTO color_scheme_colors (color_scheme_id, position, name, hex) VALUES (?, ?, ?, ?)`,
			id, i, c.Name, c.Hex)
		if err != nil {
			return fmt.Errorf("insert color %s: %w", c.Name, err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert color %s: %w", c.Name, err)
		}
		c.ColorSchemeID = id
	}
	return nil
}

func (q *Queries) UpdateColor(ctx context.Context, colorID int64, hex string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE color_scheme_colors SET hex = ? WHERE id = ?`, hex, colorID); err != nil {
		return fmt.Errorf("update color %d: %w", colorID, err)
	}
	return nil
}

// DeleteColorSchemes removes schemes and, through the foreign key, their colors.
func (q *Queries) DeleteColorSchemes(ctx context.Context, ids []int64) error {
	return q.deleteIn(ctx, "color_schemes", ids)
}

// Remote sources

const remoteSourceColumns = `id, theme_id, url, branch, private_key, local_version, remote_version,
	commits_behind, last_error_text, remote_updated_at, updated_at, license_url, about_url,
	authors, theme_version, minimum_version, maximum_version`

func (q *Queries) GetRemoteSource(ctx context.Context, themeID int64) (theme.RemoteSource, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+remoteSourceColumns+` FROM remote_sources WHERE theme_id = ?`, themeID)
	r, err := scanRemoteSource(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return theme.RemoteSource{}, fmt.Errorf("theme %d: %w", themeID, errors.ErrSourceNotFound)
	}
	if err != nil {
		return theme.RemoteSource{}, fmt.Errorf("get remote source: %w", err)
	}
	return r, nil
}

// SaveRemoteSource inserts or replaces the single source record of a theme.
func (q *Queries) SaveRemoteSource(ctx context.Context, r *theme.RemoteSource) error {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO remote_sources (theme_id, url, branch, private_key, local_version, remote_version,
			commits_behind, last_error_text, remote_updated_at, updated_at, license_url, about_url,
			authors, theme_version, minimum_version, maximum_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (theme_id) DO UPDATE SET
			url = excluded.url,
			branch = excluded.branch,
			private_key = excluded.private_key,
			local_version = excluded.local_version,
			remote_version = excluded.remote_version,
			commits_behind = excluded.commits_behind,
			last_error_text = excluded.last_error_text,
			remote_updated_at = excluded.remote_updated_at,
			updated_at = excluded.updated_at,
			license_url = excluded.license_url,
			about_url = excluded.about_url,
			authors = excluded.authors,
			theme_version = excluded.theme_version,
			minimum_version = excluded.minimum_version,
			maximum_version = excluded.maximum_version
		 RETURNING id`,
		r.ThemeID, r.URL, r.Branch, r.PrivateKey, r.LocalVersion, r.RemoteVersion,
		r.CommitsBehind, r.LastErrorText, nullTime(r.RemoteUpdatedAt), nullTime(r.UpdatedAt),
		r.Metadata.LicenseURL, r.Metadata.AboutURL, r.Metadata.Authors, r.Metadata.ThemeVersion,
		r.Metadata.MinimumVersion, r.Metadata.MaximumVersion)
	if err := row.Scan(&r.ID); err != nil {
		return fmt.Errorf("save remote source for theme %d: %w", r.ThemeID, err)
	}
	return nil
}

// ListRemoteThemes returns every theme that has a remote source record.
func (q *Queries) ListRemoteThemes(ctx context.Context) ([]theme.RemoteTheme, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.user_id, t.component, t.color_scheme_id, t.created_at, t.updated_at,
			r.id, r.theme_id, r.url, r.branch, r.private_key, r.local_version, r.remote_version,
			r.commits_behind, r.last_error_text, r.remote_updated_at, r.updated_at, r.license_url,
			r.about_url, r.authors, r.theme_version, r.minimum_version, r.maximum_version
		 FROM themes t JOIN remote_sources r ON r.theme_id = t.id
		 ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("list remote themes: %w", err)
	}
	defer rows.Close()

	var out []theme.RemoteTheme
	for rows.Next() {
		var (
			rt       theme.RemoteTheme
			schemeID sql.NullInt64
			remoteAt sql.NullTime
			updated  sql.NullTime
		)
		t, r := &rt.Theme, &rt.Source
		if err := rows.Scan(&t.ID, &t.Name, &t.UserID, &t.Component, &schemeID, &t.CreatedAt, &t.UpdatedAt,
			&r.ID, &r.ThemeID, &r.URL, &r.Branch, &r.PrivateKey, &r.LocalVersion, &r.RemoteVersion,
			&r.CommitsBehind, &r.LastErrorText, &remoteAt, &updated, &r.Metadata.LicenseURL,
			&r.Metadata.AboutURL, &r.Metadata.Authors, &r.Metadata.ThemeVersion,
			&r.Metadata.MinimumVersion, &r.Metadata.MaximumVersion); err != nil {
			return nil, fmt.Errorf("scan remote theme: %w", err)
		}
		if schemeID.Valid {
			id := schemeID.Int64
			t.ColorSchemeID = &id
		}
		r.RemoteUpdatedAt = remoteAt.Time
		r.UpdatedAt = updated.Time
		out = append(out, rt)
	}
	return out, rows.Err()
}

func scanRemoteSource(s scanner) (theme.RemoteSource, error) {
	var (
		r        theme.RemoteSource
		remoteAt sql.NullTime
		updated  sql.NullTime
	)
	err := s.Scan(&r.ID, &r.ThemeID, &r.URL, &r.Branch, &r.PrivateKey, &r.LocalVersion, &r.RemoteVersion,
		&r.CommitsBehind, &r.LastErrorText, &remoteAt, &updated, &r.Metadata.LicenseURL,
		&r.Metadata.AboutURL, &r.Metadata.Authors, &r.Metadata.ThemeVersion,
		&r.Metadata.MinimumVersion, &r.Metadata.MaximumVersion)
	if err != nil {
		return theme.RemoteSource{}, err
	}
	r.RemoteUpdatedAt = remoteAt.Time
	r.UpdatedAt = updated.Time
	return r, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (q *Queries) deleteIn(ctx context.Context, table string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, placeholders)
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
