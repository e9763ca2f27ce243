package remote

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/manifest"
	"github.com/samhoang/themesync/internal/theme"
	"github.com/samhoang/themesync/internal/upload"
)

func fieldsByKey(t *testing.T, store *memStore, themeID int64) map[theme.FieldKey]theme.Field {
	t.Helper()
	fields, err := store.ListFields(context.Background(), themeID)
	require.NoError(t, err)
	out := make(map[theme.FieldKey]theme.Field, len(fields))
	for _, f := range fields {
		out[f.Key()] = f
	}
	return out
}

func contentKey(target, name string) theme.FieldKey {
	return theme.FieldKey{Target: target, Name: name, Category: "content"}
}

func uploadKey(name string) theme.FieldKey {
	return theme.FieldKey{Target: theme.TargetCommon, Name: name, Category: "upload"}
}

func TestFieldReconcilerCreates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	up := &fakeUploader{}

	imp := gitPackage("v1", map[string]string{
		"about.json":            `{"name":"Graceful"}`,
		"common/common.scss":    "body { color: red; }",
		"desktop/header.html":   "<div>hi</div>",
		"scss/buttons.scss":     ".btn {}",
		"javascripts/init.js":   "export default {}",
		"settings.yml":          "show_banner: true\n",
		"locales/en.yml":        "en:\n  title: Hi\n",
		"README.md":             "ignored",
		"assets/logo.png":       "PNGDATA",
		"common/unrelated.scss": "ignored",
	})
	m := &manifest.Manifest{Assets: []manifest.Asset{{Name: "logo", Path: "assets/logo.png"}}}

	result, err := NewFieldReconciler(up).Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Created: 7}, result)

	fields := fieldsByKey(t, store, th.ID)
	assert.Len(t, fields, 7)
	assert.Equal(t, "body { color: red; }", fields[contentKey(theme.TargetCommon, "scss")].Value)
	assert.Equal(t, "<div>hi</div>", fields[contentKey(theme.TargetDesktop, "header")].Value)
	assert.Equal(t, ".btn {}", fields[contentKey(theme.TargetExtraSCSS, "buttons")].Value)
	assert.Equal(t, theme.KindJS, fields[contentKey(theme.TargetExtraJS, "init.js")].Kind)
	assert.Equal(t, theme.KindYAML, fields[contentKey(theme.TargetSettings, "yaml")].Kind)
	assert.Contains(t, fields[contentKey(theme.TargetTranslations, "en")].Value, "title: Hi")

	logo := fields[uploadKey("logo")]
	assert.Equal(t, theme.KindUpload, logo.Kind)
	assert.Equal(t, upload.ContentID([]byte("PNGDATA")), logo.UploadID)

	require.Len(t, up.calls, 1)
	assert.Equal(t, uploadCall{owner: "7", name: "logo.png", body: "PNGDATA"}, up.calls[0])
}

func TestFieldReconcilerIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	r := NewFieldReconciler(&fakeUploader{})

	imp := gitPackage("v1", map[string]string{
		"common/common.scss": "a {}",
		"mobile/footer.html": "<footer/>",
	})
	m := &manifest.Manifest{}

	_, err := r.Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	before := fieldsByKey(t, store, th.ID)
	writes := store.fieldWrites

	result, err := r.Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Unchanged: 2}, result)
	assert.False(t, result.Changed())
	assert.Equal(t, writes, store.fieldWrites, "unchanged fields are not rewritten")
	assert.Equal(t, before, fieldsByKey(t, store, th.ID))
}

func TestFieldReconcilerUpdatesAndRemoves(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	r := NewFieldReconciler(&fakeUploader{})

	first := gitPackage("v1", map[string]string{
		"common/common.scss":   "a {}",
		"common/head_tag.html": "<meta>",
		"scss/old.scss":        "old",
	})
	_, err := r.Reconcile(ctx, store, first, &manifest.Manifest{}, &th)
	require.NoError(t, err)
	original := fieldsByKey(t, store, th.ID)

	second := gitPackage("v2", map[string]string{
		"common/common.scss":   "b {}",
		"common/head_tag.html": "<meta>",
		"scss/new.scss":        "new",
	})
	result, err := r.Reconcile(ctx, store, second, &manifest.Manifest{}, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Created: 1, Updated: 1, Unchanged: 1, Removed: 1}, result)

	fields := fieldsByKey(t, store, th.ID)
	assert.Len(t, fields, 3)
	scss := fields[contentKey(theme.TargetCommon, "scss")]
	assert.Equal(t, "b {}", scss.Value)
	assert.Equal(t, original[contentKey(theme.TargetCommon, "scss")].ID, scss.ID, "updates keep the field id")
	assert.NotContains(t, fields, contentKey(theme.TargetExtraSCSS, "old"))
	assert.Contains(t, fields, contentKey(theme.TargetExtraSCSS, "new"))
}

func TestFieldReconcilerInvalidYAML(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)

	imp := gitPackage("v1", map[string]string{
		"settings.yml": "key: [unclosed\n",
	})
	_, err := NewFieldReconciler(&fakeUploader{}).Reconcile(ctx, store, imp, &manifest.Manifest{}, &th)
	require.Error(t, err)
	assert.True(t, errors.IsImportError(err))
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "settings.yml")
}

func TestFieldReconcilerUploadFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)

	imp := gitPackage("v1", map[string]string{"assets/font.woff2": "FONT"})
	m := &manifest.Manifest{Assets: []manifest.Asset{{Name: "font", Path: "assets/font.woff2"}}}

	up := &fakeUploader{err: stderrors.New("disk full")}
	_, err := NewFieldReconciler(up).Reconcile(ctx, store, imp, m, &th)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUpload))
	assert.Contains(t, err.Error(), "disk full")
}

func TestFieldReconcilerMissingAssetSkipped(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	up := &fakeUploader{}

	imp := gitPackage("v1", map[string]string{"common/common.scss": "a {}"})
	m := &manifest.Manifest{Assets: []manifest.Asset{{Name: "logo", Path: "assets/missing.png"}}}

	result, err := NewFieldReconciler(up).Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Created: 1}, result)
	assert.Empty(t, up.calls)
}

func TestFieldReconcilerRenamesStagedAsset(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	up := &fakeUploader{}

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "logo.svg"), []byte("<svg/>"), 0o644))

	imp := &fakeImporter{typ: "archive", dir: dir, files: map[string]string{}}
	m := &manifest.Manifest{Assets: []manifest.Asset{{Name: "logo", Path: "assets/logo.svg"}}}

	_, err := NewFieldReconciler(up).Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)

	require.Len(t, up.calls, 1)
	assert.Equal(t, "logo.svg", up.calls[0].name, "the declared file name is kept")
	assert.Equal(t, "<svg/>", up.calls[0].body)

	_, err = os.Stat(filepath.Join(dir, "assets", "logo.svg"))
	assert.True(t, os.IsNotExist(err), "staged asset is moved to a neutral name")
	entries, err := os.ReadDir(filepath.Join(dir, "assets"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".svg", filepath.Ext(entries[0].Name()))
}

func TestFieldReconcilerReusesUnchangedAsset(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	up := &fakeUploader{}
	r := NewFieldReconciler(up)
	m := &manifest.Manifest{Assets: []manifest.Asset{{Name: "logo", Path: "assets/logo.png"}}}

	imp := &fakeImporter{typ: "archive", files: map[string]string{"assets/logo.png": "PNGDATA"}}
	imp.stage(t)
	_, err := r.Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	require.Len(t, up.calls, 1)
	before := fieldsByKey(t, store, th.ID)
	writes := store.fieldWrites

	imp.stage(t)
	result, err := r.Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Unchanged: 1}, result)
	assert.Len(t, up.calls, 1, "identical asset is not uploaded again")
	assert.Equal(t, writes, store.fieldWrites)
	assert.Equal(t, before, fieldsByKey(t, store, th.ID))

	imp.files["assets/logo.png"] = "PNGDATA2"
	imp.stage(t)
	result, err = r.Reconcile(ctx, store, imp, m, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Updated: 1}, result)
	require.Len(t, up.calls, 2)
	assert.Equal(t, upload.ContentID([]byte("PNGDATA2")), fieldsByKey(t, store, th.ID)[uploadKey("logo")].UploadID)
}

func TestFieldReconcilerPrefersSettingsYML(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	th := seedTheme(t, store)
	r := NewFieldReconciler(&fakeUploader{})

	imp := gitPackage("v1", map[string]string{
		"settings.yaml": "from_yaml: true\n",
		"settings.yml":  "from_yml: true\n",
	})
	result, err := r.Reconcile(ctx, store, imp, &manifest.Manifest{}, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Created: 1}, result)
	assert.Equal(t, 1, store.fieldWrites, "the settings field is written once")
	assert.Equal(t, "from_yml: true\n", fieldsByKey(t, store, th.ID)[contentKey(theme.TargetSettings, "yaml")].Value)

	result, err = r.Reconcile(ctx, store, imp, &manifest.Manifest{}, &th)
	require.NoError(t, err)
	assert.Equal(t, FieldResult{Unchanged: 1}, result)
	assert.Equal(t, 1, store.fieldWrites)
}
