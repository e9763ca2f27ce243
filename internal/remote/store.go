package remote

import (
	"context"

	"github.com/samhoang/themesync/internal/store"
	"github.com/samhoang/themesync/internal/theme"
)

// Queries is the persistence a sync reads and writes.
type Queries interface {
	CreateTheme(ctx context.Context, t *theme.Theme) error
	UpdateTheme(ctx context.Context, t *theme.Theme) error
	GetTheme(ctx context.Context, id int64) (theme.Theme, error)

	ListFields(ctx context.Context, themeID int64) ([]theme.Field, error)
	CreateField(ctx context.Context, f *theme.Field) error
	UpdateField(ctx context.Context, f *theme.Field) error
	DeleteFields(ctx context.Context, ids []int64) error

	ListColorSchemes(ctx context.Context, themeID int64) ([]theme.ColorScheme, error)
	CreateColorScheme(ctx context.Context, s *theme.ColorScheme) error
	UpdateColor(ctx context.Context, colorID int64, hex string) error
	DeleteColorSchemes(ctx context.Context, ids []int64) error

	GetRemoteSource(ctx context.Context, themeID int64) (theme.RemoteSource, error)
	SaveRemoteSource(ctx context.Context, r *theme.RemoteSource) error
	ListRemoteThemes(ctx context.Context) ([]theme.RemoteTheme, error)
}

// Store is Queries plus transactions. Everything a sync commits happens
// inside one RunInTx call.
type Store interface {
	Queries
	RunInTx(ctx context.Context, fn func(Queries) error) error
}

type sqlStore struct {
	*store.Queries
	db *store.DB
}

// NewSQLStore adapts a SQLite database to Store.
func NewSQLStore(db *store.DB) Store {
	return &sqlStore{Queries: db.Queries, db: db}
}

func (s *sqlStore) RunInTx(ctx context.Context, fn func(Queries) error) error {
	return s.db.RunInTx(ctx, func(q *store.Queries) error {
		return fn(q)
	})
}
