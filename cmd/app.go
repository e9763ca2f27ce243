package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/samhoang/themesync/internal/config"
	"github.com/samhoang/themesync/internal/remote"
	"github.com/samhoang/themesync/internal/store"
	"github.com/samhoang/themesync/internal/upload"
)

// app bundles what theme commands need: config, database and sync service.
type app struct {
	cfg *config.Config
	db  *store.DB
	svc *remote.Service
}

func openApp(ctx context.Context) (*app, error) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths)
	if err != nil {
		return nil, err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	uploader, err := newUploader(ctx, cfg.Uploads)
	if err != nil {
		db.Close()
		return nil, err
	}

	svc := remote.New(remote.NewSQLStore(db), uploader,
		remote.WithSourceOptions(cfg.SourceOptions()),
	)
	log.Debug().Str("database", cfg.Database.Path).Str("uploads", cfg.Uploads.Backend).Msg("opened theme store")
	return &app{cfg: cfg, db: db, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("closing database")
	}
}

func newUploader(ctx context.Context, c config.UploadsConfig) (upload.Uploader, error) {
	switch c.Backend {
	case config.BackendS3:
		return upload.NewS3Store(ctx, upload.S3Options{
			Bucket:   c.Bucket,
			Region:   c.Region,
			Prefix:   c.Prefix,
			Endpoint: c.Endpoint,
		})
	case config.BackendLocal:
		return upload.NewLocalStore(c.Dir)
	}
	return nil, fmt.Errorf("unknown upload backend %q", c.Backend)
}
