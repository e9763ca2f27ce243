package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/manifest"
	"github.com/samhoang/themesync/internal/source"
	"github.com/samhoang/themesync/internal/theme"
	"github.com/samhoang/themesync/internal/upload"
)

// FieldResult counts what a field reconciliation did.
type FieldResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// Changed reports whether any field was written or removed.
func (r FieldResult) Changed() bool {
	return r.Created+r.Updated+r.Removed > 0
}

// FieldReconciler turns staged files and declared assets into theme fields.
type FieldReconciler struct {
	uploader upload.Uploader
}

// NewFieldReconciler creates a reconciler that stores assets with uploader.
func NewFieldReconciler(uploader upload.Uploader) *FieldReconciler {
	return &FieldReconciler{uploader: uploader}
}

// fieldSet tracks which stored fields a sync touched.
type fieldSet struct {
	q        Queries
	existing map[theme.FieldKey]theme.Field
	touched  map[int64]struct{}
	result   FieldResult
}

func (s *fieldSet) upsert(ctx context.Context, f theme.Field) error {
	if old, ok := s.existing[f.Key()]; ok {
		f.ID = old.ID
		s.touched[f.ID] = struct{}{}
		if old.SameContent(f) {
			s.result.Unchanged++
			return nil
		}
		if err := s.q.UpdateField(ctx, &f); err != nil {
			return err
		}
		s.existing[f.Key()] = f
		s.result.Updated++
		return nil
	}

	if err := s.q.CreateField(ctx, &f); err != nil {
		return err
	}
	s.existing[f.Key()] = f
	s.touched[f.ID] = struct{}{}
	s.result.Created++
	return nil
}

// stale returns the ids of stored fields no longer present in the package.
func (s *fieldSet) stale() []int64 {
	var ids []int64
	for _, f := range s.existing {
		if _, ok := s.touched[f.ID]; !ok {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// Reconcile makes the fields of th mirror the staged package. th must already
// be persisted through q.
func (r *FieldReconciler) Reconcile(ctx context.Context, q Queries, imp source.Importer, m *manifest.Manifest, th *theme.Theme) (FieldResult, error) {
	logger := zerolog.Ctx(ctx)

	current, err := q.ListFields(ctx, th.ID)
	if err != nil {
		return FieldResult{}, err
	}
	set := &fieldSet{
		q:        q,
		existing: make(map[theme.FieldKey]theme.Field, len(current)),
		touched:  make(map[int64]struct{}),
	}
	for _, f := range current {
		set.existing[f.Key()] = f
	}

	for _, asset := range m.Assets {
		field := theme.Field{
			ThemeID: th.ID,
			Target:  theme.TargetCommon,
			Name:    asset.Name,
			Kind:    theme.KindUpload,
		}
		uploadID, err := r.uploadAsset(ctx, imp, th, asset, set.existing[field.Key()].UploadID)
		if err != nil {
			return FieldResult{}, err
		}
		if uploadID == "" {
			continue
		}
		field.UploadID = uploadID
		if err := set.upsert(ctx, field); err != nil {
			return FieldResult{}, err
		}
	}

	for _, sf := range sourceFiles(ctx, imp) {
		p, placement := sf.path, sf.placement
		data, err := imp.ReadFile(p)
		if err != nil {
			return FieldResult{}, err
		}
		if placement.Kind == theme.KindYAML {
			var doc any
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return FieldResult{}, errors.NewImportError("parse yaml", p,
					errors.NewValidationError([]string{fmt.Sprintf("%s is not valid YAML: %v", p, err)}))
			}
		}
		field := theme.Field{
			ThemeID: th.ID,
			Target:  placement.Target,
			Name:    placement.Name,
			Kind:    placement.Kind,
			Value:   string(data),
		}
		if err := set.upsert(ctx, field); err != nil {
			return FieldResult{}, err
		}
	}

	stale := set.stale()
	if err := q.DeleteFields(ctx, stale); err != nil {
		return FieldResult{}, err
	}
	set.result.Removed = len(stale)

	logger.Debug().
		Int("created", set.result.Created).
		Int("updated", set.result.Updated).
		Int("unchanged", set.result.Unchanged).
		Int("removed", set.result.Removed).
		Msg("reconciled theme fields")
	return set.result, nil
}

type sourceFile struct {
	path      string
	placement theme.Placement
}

// sourceFiles lists the staged files that map to fields, one per field. When
// two files map to the same field, the conventional path wins, and otherwise
// the first one walked.
func sourceFiles(ctx context.Context, imp source.Importer) []sourceFile {
	var files []sourceFile
	index := make(map[theme.FieldKey]int)
	for p := range imp.AllFiles() {
		placement, ok := theme.FieldFromPath(p)
		if !ok {
			continue
		}
		f := theme.Field{Target: placement.Target, Name: placement.Name, Kind: placement.Kind}
		i, dup := index[f.Key()]
		if !dup {
			index[f.Key()] = len(files)
			files = append(files, sourceFile{path: p, placement: placement})
			continue
		}
		ignored := p
		if canonical, ok := theme.PathForField(f); ok && p == canonical {
			ignored, files[i].path = files[i].path, p
		}
		zerolog.Ctx(ctx).Warn().Str("path", files[i].path).Str("ignored", ignored).Msg("two files map to the same field, ignoring one")
	}
	return files
}

// uploadAsset stores one declared asset and returns its upload id. Assets
// missing from the package are skipped with a warning. When the content id
// matches current, the stored upload is reused without calling the uploader.
func (r *FieldReconciler) uploadAsset(ctx context.Context, imp source.Importer, th *theme.Theme, asset manifest.Asset, current string) (string, error) {
	logger := zerolog.Ctx(ctx)
	declared := path.Base(asset.Path)

	var data []byte
	if real, ok := imp.RealPath(asset.Path); ok {
		// upload storage rejects conventional file names, so the staged copy
		// is renamed to a neutral one first
		neutral := filepath.Join(filepath.Dir(real), strings.ReplaceAll(uuid.NewString(), "-", "")+filepath.Ext(real))
		if err := os.Rename(real, neutral); err != nil {
			return "", errors.NewImportError("upload asset", asset.Path, fmt.Errorf("%w: %v", errors.ErrUpload, err))
		}
		b, err := os.ReadFile(neutral)
		if err != nil {
			return "", errors.NewImportError("upload asset", asset.Path, fmt.Errorf("%w: %v", errors.ErrUpload, err))
		}
		data = b
	} else {
		b, err := imp.ReadFile(asset.Path)
		if stderrors.Is(err, errors.ErrFileMissing) {
			logger.Warn().Str("asset", asset.Name).Str("path", asset.Path).Msg("declared asset not found in package, skipping")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		data = b
	}

	if id := upload.ContentID(data); id == current {
		logger.Debug().Str("asset", asset.Name).Str("upload_id", id).Msg("theme asset unchanged")
		return id, nil
	}

	up, err := r.uploader.Create(ctx, th.UserID, bytes.NewReader(data), declared)
	if err != nil {
		return "", errors.NewImportError("upload asset", asset.Path, fmt.Errorf("%w: %v", errors.ErrUpload, err))
	}
	logger.Debug().Str("asset", asset.Name).Str("upload_id", up.ID).Msg("uploaded theme asset")
	return up.ID, nil
}
