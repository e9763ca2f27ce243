package store

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/theme"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

func createTheme(t *testing.T, db *DB, name string) theme.Theme {
	t.Helper()
	th := theme.Theme{Name: name, UserID: "7"}
	if err := db.Queries.CreateTheme(context.Background(), &th); err != nil {
		t.Fatalf("CreateTheme() error = %v", err)
	}
	return th
}

func TestEnsureForeignKeysEnabledDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"themes.db", "themes.db?_fk=1"},
		{"themes.db?cache=shared", "themes.db?cache=shared&_fk=1"},
		{"themes.db?_fk=0", "themes.db?_fk=0"},
	}
	for _, tt := range tests {
		if got := ensureForeignKeysEnabledDSN(tt.in); got != tt.want {
			t.Errorf("ensureForeignKeysEnabledDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.db")
	first, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("reopen New() error = %v", err)
	}
	second.Close()
}

func TestThemeCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	th := createTheme(t, db, "Graceful")
	if th.ID == 0 {
		t.Fatalf("CreateTheme() did not assign an id")
	}

	got, err := db.Queries.GetTheme(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetTheme() error = %v", err)
	}
	if got.Name != "Graceful" || got.UserID != "7" || got.Component {
		t.Errorf("GetTheme() = %+v", got)
	}

	got.Name = "Graceful 2"
	got.Component = true
	if err := db.Queries.UpdateTheme(ctx, &got); err != nil {
		t.Fatalf("UpdateTheme() error = %v", err)
	}
	again, _ := db.Queries.GetTheme(ctx, th.ID)
	if again.Name != "Graceful 2" || !again.Component {
		t.Errorf("after UpdateTheme() = %+v", again)
	}

	if _, err := db.Queries.GetTheme(ctx, 999); !stderrors.Is(err, errors.ErrThemeNotFound) {
		t.Errorf("GetTheme(999) error = %v, want ErrThemeNotFound", err)
	}
}

func TestFieldIdentity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	th := createTheme(t, db, "T")

	scss := theme.Field{ThemeID: th.ID, Target: "common", Name: "logo", Kind: theme.KindSCSS, Value: "a{}"}
	upload := theme.Field{ThemeID: th.ID, Target: "common", Name: "logo", Kind: theme.KindUpload, UploadID: "u-1"}
	if err := db.Queries.CreateField(ctx, &scss); err != nil {
		t.Fatalf("CreateField(scss) error = %v", err)
	}
	if err := db.Queries.CreateField(ctx, &upload); err != nil {
		t.Fatalf("CreateField(upload) error = %v", err)
	}

	dup := theme.Field{ThemeID: th.ID, Target: "common", Name: "logo", Kind: theme.KindHTML, Value: "<p>"}
	if err := db.Queries.CreateField(ctx, &dup); err == nil {
		t.Errorf("CreateField() with duplicate content identity succeeded")
	}

	scss.Value = "b{}"
	if err := db.Queries.UpdateField(ctx, &scss); err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}

	fields, err := db.Queries.ListFields(ctx, th.ID)
	if err != nil {
		t.Fatalf("ListFields() error = %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("ListFields() = %d fields, want 2", len(fields))
	}
	for _, f := range fields {
		if f.Kind == theme.KindSCSS && f.Value != "b{}" {
			t.Errorf("scss value = %q, want b{}", f.Value)
		}
	}

	if err := db.Queries.DeleteFields(ctx, []int64{scss.ID, upload.ID}); err != nil {
		t.Fatalf("DeleteFields() error = %v", err)
	}
	if err := db.Queries.DeleteFields(ctx, nil); err != nil {
		t.Fatalf("DeleteFields(nil) error = %v", err)
	}
	fields, _ = db.Queries.ListFields(ctx, th.ID)
	if len(fields) != 0 {
		t.Errorf("ListFields() after delete = %v", fields)
	}
}

func TestColorSchemes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	th := createTheme(t, db, "T")

	dark := theme.ColorScheme{ThemeID: th.ID, Name: "Dark", Colors: theme.BasePalette()}
	if err := db.Queries.CreateColorScheme(ctx, &dark); err != nil {
		t.Fatalf("CreateColorScheme() error = %v", err)
	}
	light := theme.ColorScheme{ThemeID: th.ID, Name: "Light", Colors: theme.BasePalette()[:2]}
	if err := db.Queries.CreateColorScheme(ctx, &light); err != nil {
		t.Fatalf("CreateColorScheme() error = %v", err)
	}

	primary, _ := dark.Color("primary")
	if err := db.Queries.UpdateColor(ctx, primary.ID, "000000"); err != nil {
		t.Fatalf("UpdateColor() error = %v", err)
	}

	schemes, err := db.Queries.ListColorSchemes(ctx, th.ID)
	if err != nil {
		t.Fatalf("ListColorSchemes() error = %v", err)
	}
	if len(schemes) != 2 || schemes[0].Name != "Dark" || schemes[1].Name != "Light" {
		t.Fatalf("ListColorSchemes() = %+v", schemes)
	}
	if len(schemes[0].Colors) != len(theme.BasePalette()) {
		t.Errorf("Dark colors = %d, want %d", len(schemes[0].Colors), len(theme.BasePalette()))
	}
	if schemes[0].Colors[0].Name != "primary" || schemes[0].Colors[0].Hex != "000000" {
		t.Errorf("first Dark color = %+v", schemes[0].Colors[0])
	}

	if err := db.Queries.DeleteColorSchemes(ctx, []int64{dark.ID}); err != nil {
		t.Fatalf("DeleteColorSchemes() error = %v", err)
	}
	var colorCount int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM color_scheme_colors WHERE color_scheme_id = ?`, dark.ID).Scan(&colorCount)
	if colorCount != 0 {
		t.Errorf("colors of deleted scheme = %d, want 0", colorCount)
	}
}

func TestActiveSchemeClearedOnDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	th := createTheme(t, db, "T")

	s := theme.ColorScheme{ThemeID: th.ID, Name: "Only", Colors: theme.BasePalette()}
	if err := db.Queries.CreateColorScheme(ctx, &s); err != nil {
		t.Fatal(err)
	}
	th.ColorSchemeID = &s.ID
	if err := db.Queries.UpdateTheme(ctx, &th); err != nil {
		t.Fatal(err)
	}
	if err := db.Queries.DeleteColorSchemes(ctx, []int64{s.ID}); err != nil {
		t.Fatal(err)
	}
	got, _ := db.Queries.GetTheme(ctx, th.ID)
	if got.ColorSchemeID != nil {
		t.Errorf("ColorSchemeID = %d after scheme deleted, want nil", *got.ColorSchemeID)
	}
}

func TestRemoteSourceUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	th := createTheme(t, db, "T")

	if _, err := db.Queries.GetRemoteSource(ctx, th.ID); !stderrors.Is(err, errors.ErrSourceNotFound) {
		t.Fatalf("GetRemoteSource() error = %v, want ErrSourceNotFound", err)
	}

	synced := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	src := theme.RemoteSource{
		ThemeID:         th.ID,
		URL:             "https://example.com/t.git",
		Branch:          "main",
		LocalVersion:    "abc",
		RemoteVersion:   "abc",
		RemoteUpdatedAt: synced,
		Metadata:        theme.Metadata{Authors: "Team", MinimumVersion: "3.0.0"},
	}
	if err := db.Queries.SaveRemoteSource(ctx, &src); err != nil {
		t.Fatalf("SaveRemoteSource() error = %v", err)
	}
	firstID := src.ID

	src.RemoteVersion = "def"
	src.CommitsBehind = 3
	src.LastErrorText = "boom"
	if err := db.Queries.SaveRemoteSource(ctx, &src); err != nil {
		t.Fatalf("second SaveRemoteSource() error = %v", err)
	}
	if src.ID != firstID {
		t.Errorf("upsert changed id %d -> %d", firstID, src.ID)
	}

	got, err := db.Queries.GetRemoteSource(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetRemoteSource() error = %v", err)
	}
	if got.RemoteVersion != "def" || got.CommitsBehind != 3 || got.LastErrorText != "boom" {
		t.Errorf("GetRemoteSource() = %+v", got)
	}
	if !got.RemoteUpdatedAt.Equal(synced) {
		t.Errorf("RemoteUpdatedAt = %v, want %v", got.RemoteUpdatedAt, synced)
	}
	if !got.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero", got.UpdatedAt)
	}
	if got.Metadata.Authors != "Team" || got.Metadata.MinimumVersion != "3.0.0" {
		t.Errorf("Metadata = %+v", got.Metadata)
	}

	list, err := db.Queries.ListRemoteThemes(ctx)
	if err != nil {
		t.Fatalf("ListRemoteThemes() error = %v", err)
	}
	if len(list) != 1 || list[0].Theme.ID != th.ID || list[0].Source.URL != src.URL {
		t.Errorf("ListRemoteThemes() = %+v", list)
	}
}

func TestRunInTxRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	boom := stderrors.New("boom")
	err := db.RunInTx(ctx, func(q *Queries) error {
		th := theme.Theme{Name: "doomed"}
		if err := q.CreateTheme(ctx, &th); err != nil {
			return err
		}
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("RunInTx() error = %v, want boom", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM themes`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("themes after rollback = %d, want 0", n)
	}

	err = db.RunInTx(ctx, func(q *Queries) error {
		th := theme.Theme{Name: "kept"}
		return q.CreateTheme(ctx, &th)
	})
	if err != nil {
		t.Fatalf("RunInTx() error = %v", err)
	}
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM themes`).Scan(&n)
	if n != 1 {
		t.Errorf("themes after commit = %d, want 1", n)
	}
}
