package remote

import (
	"context"
	"fmt"
	"io"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/source"
	"github.com/samhoang/themesync/internal/theme"
	"github.com/samhoang/themesync/internal/upload"
)

// memStore is an in-memory Store. RunInTx restores a snapshot when fn fails.
type memStore struct {
	nextID  int64
	themes  map[int64]theme.Theme
	fields  map[int64]theme.Field
	schemes map[int64]theme.ColorScheme
	sources map[int64]theme.RemoteSource

	fieldWrites int
	colorWrites int
}

func newMemStore() *memStore {
	return &memStore{
		themes:  map[int64]theme.Theme{},
		fields:  map[int64]theme.Field{},
		schemes: map[int64]theme.ColorScheme{},
		sources: map[int64]theme.RemoteSource{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) clone() *memStore {
	c := *s
	c.themes = maps.Clone(s.themes)
	c.fields = maps.Clone(s.fields)
	c.sources = maps.Clone(s.sources)
	c.schemes = make(map[int64]theme.ColorScheme, len(s.schemes))
	for id, sc := range s.schemes {
		sc.Colors = slices.Clone(sc.Colors)
		c.schemes[id] = sc
	}
	return &c
}

func (s *memStore) RunInTx(ctx context.Context, fn func(Queries) error) error {
	snapshot := s.clone()
	if err := fn(s); err != nil {
		*s = *snapshot
		return err
	}
	return nil
}

func (s *memStore) CreateTheme(ctx context.Context, t *theme.Theme) error {
	t.ID = s.id()
	s.themes[t.ID] = *t
	return nil
}

func (s *memStore) UpdateTheme(ctx context.Context, t *theme.Theme) error {
	if _, ok := s.themes[t.ID]; !ok {
		return errors.ErrThemeNotFound
	}
	s.themes[t.ID] = *t
	return nil
}

func (s *memStore) GetTheme(ctx context.Context, id int64) (theme.Theme, error) {
	t, ok := s.themes[id]
	if !ok {
		return theme.Theme{}, errors.ErrThemeNotFound
	}
	return t, nil
}

func (s *memStore) ListFields(ctx context.Context, themeID int64) ([]theme.Field, error) {
	var out []theme.Field
	for _, id := range slices.Sorted(maps.Keys(s.fields)) {
		if f := s.fields[id]; f.ThemeID == themeID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memStore) CreateField(ctx context.Context, f *theme.Field) error {
	for _, other := range s.fields {
		if other.ThemeID == f.ThemeID && other.Key() == f.Key() {
			return fmt.Errorf("duplicate field %+v", f.Key())
		}
	}
	f.ID = s.id()
	s.fields[f.ID] = *f
	s.fieldWrites++
	return nil
}

func (s *memStore) UpdateField(ctx context.Context, f *theme.Field) error {
	if _, ok := s.fields[f.ID]; !ok {
		return fmt.Errorf("field %d not found", f.ID)
	}
	s.fields[f.ID] = *f
	s.fieldWrites++
	return nil
}

func (s *memStore) DeleteFields(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(s.fields, id)
	}
	return nil
}

func (s *memStore) ListColorSchemes(ctx context.Context, themeID int64) ([]theme.ColorScheme, error) {
	var out []theme.ColorScheme
	for _, id := range slices.Sorted(maps.Keys(s.schemes)) {
		if sc := s.schemes[id]; sc.ThemeID == themeID {
			sc.Colors = slices.Clone(sc.Colors)
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *memStore) CreateColorScheme(ctx context.Context, sc *theme.ColorScheme) error {
	sc.ID = s.id()
	for i := range sc.Colors {
		sc.Colors[i].ID = s.id()
		sc.Colors[i].ColorSchemeID = sc.ID
	}
	stored := *sc
	stored.Colors = slices.Clone(sc.Colors)
	s.schemes[sc.ID] = stored
	return nil
}

func (s *memStore) UpdateColor(ctx context.Context, colorID int64, hex string) error {
	for id, sc := range s.schemes {
		for i := range sc.Colors {
			if sc.Colors[i].ID == colorID {
				sc.Colors[i].Hex = hex
				s.schemes[id] = sc
				s.colorWrites++
				return nil
			}
		}
	}
	return fmt.Errorf("color %d not found", colorID)
}

func (s *memStore) DeleteColorSchemes(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(s.schemes, id)
		for tid, t := range s.themes {
			if t.ColorSchemeID != nil && *t.ColorSchemeID == id {
				t.ColorSchemeID = nil
				s.themes[tid] = t
			}
		}
	}
	return nil
}

func (s *memStore) GetRemoteSource(ctx context.Context, themeID int64) (theme.RemoteSource, error) {
	r, ok := s.sources[themeID]
	if !ok {
		return theme.RemoteSource{}, errors.ErrSourceNotFound
	}
	return r, nil
}

func (s *memStore) SaveRemoteSource(ctx context.Context, r *theme.RemoteSource) error {
	if existing, ok := s.sources[r.ThemeID]; ok {
		r.ID = existing.ID
	} else {
		r.ID = s.id()
	}
	s.sources[r.ThemeID] = *r
	return nil
}

func (s *memStore) ListRemoteThemes(ctx context.Context) ([]theme.RemoteTheme, error) {
	var out []theme.RemoteTheme
	for _, id := range slices.Sorted(maps.Keys(s.sources)) {
		out = append(out, theme.RemoteTheme{Theme: s.themes[id], Source: s.sources[id]})
	}
	return out, nil
}

// schemeByName returns the stored scheme of a theme with the given name.
func (s *memStore) schemeByName(themeID int64, name string) (theme.ColorScheme, bool) {
	for _, sc := range s.schemes {
		if sc.ThemeID == themeID && sc.Name == name {
			return sc, true
		}
	}
	return theme.ColorScheme{}, false
}

// fakeImporter serves a package from memory.
type fakeImporter struct {
	typ       string
	files     map[string]string
	version   string
	importErr error
	behind    int
	diff      string
	diffErr   error
	dir       string // when set, RealPath resolves files below it

	imported   int
	cleaned    int
	diffedWith []theme.Field
	diffedAt   string
}

func gitPackage(version string, files map[string]string) *fakeImporter {
	return &fakeImporter{typ: source.TypeGit, files: files, version: version}
}

// stage writes the package files below a fresh directory and points RealPath
// at it, the way an archive or git checkout is staged on disk.
func (f *fakeImporter) stage(t testing.TB) {
	t.Helper()
	f.dir = t.TempDir()
	for p, content := range f.files {
		target := filepath.Join(f.dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *fakeImporter) Type() string { return f.typ }

func (f *fakeImporter) Import(ctx context.Context) error {
	f.imported++
	return f.importErr
}

func (f *fakeImporter) AllFiles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, p := range slices.Sorted(maps.Keys(f.files)) {
			if !yield(p) {
				return
			}
		}
	}
}

func (f *fakeImporter) ReadFile(path string) ([]byte, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, errors.NewImportError("read file", path, errors.ErrFileMissing)
	}
	return []byte(content), nil
}

func (f *fakeImporter) RealPath(path string) (string, bool) {
	if f.dir == "" {
		return "", false
	}
	p := filepath.Join(f.dir, filepath.FromSlash(path))
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

func (f *fakeImporter) Version() string { return f.version }

func (f *fakeImporter) Cleanup() { f.cleaned++ }

func (f *fakeImporter) CommitsSince(ctx context.Context, oldVersion string) (string, int, error) {
	return f.version, f.behind, nil
}

func (f *fakeImporter) DiffLocalChanges(ctx context.Context, localVersion string, fields []theme.Field) (string, error) {
	f.diffedAt = localVersion
	f.diffedWith = fields
	return f.diff, f.diffErr
}

type uploadCall struct {
	owner string
	name  string
	body  string
}

// fakeUploader records uploads and hands out content ids.
type fakeUploader struct {
	calls []uploadCall
	err   error
}

func (u *fakeUploader) Create(ctx context.Context, ownerID string, r io.Reader, name string) (*upload.Upload, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.calls = append(u.calls, uploadCall{owner: ownerID, name: name, body: string(body)})
	return &upload.Upload{ID: upload.ContentID(body), OwnerID: ownerID, Name: name}, nil
}

type recordingNotifier struct {
	changes []ColorChange
}

func (n *recordingNotifier) ColorChanged(ctx context.Context, c ColorChange) {
	n.changes = append(n.changes, c)
}

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// newTestService wires a Service whose factory always returns imp.
func newTestService(store *memStore, up *fakeUploader, imp source.Importer, opts ...Option) (*Service, *[]string) {
	var locations []string
	factory := func(location string, o source.Options) source.Importer {
		locations = append(locations, location)
		return imp
	}
	opts = append([]Option{WithImporterFactory(factory), WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, up, opts...), &locations
}
