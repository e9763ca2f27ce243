package manifest

import (
	stderrors "errors"
	"testing"

	"github.com/samhoang/themesync/internal/errors"
)

type mapReader map[string]string

func (m mapReader) ReadFile(path string) ([]byte, error) {
	v, ok := m[path]
	if !ok {
		return nil, errors.NewImportError("read file", path, errors.ErrFileMissing)
	}
	return []byte(v), nil
}

func TestParse(t *testing.T) {
	r := mapReader{FileName: `{
		"name": "Graceful",
		"component": "true",
		"license_url": "https://example.com/LICENSE",
		"about_url": "https://example.com/graceful",
		"authors": "Team",
		"theme_version": "1.2.0",
		"minimum_version": "3.1.0",
		"maximum_version": 42,
		"assets": {"logo": "assets/logo.png", "bad": 7, "font": "assets/font.woff2"},
		"color_schemes": {
			"Zeta": {"primary": "FF0000", "secondary": 12},
			"Alpha": {"tertiary": "00ff00"}
		}
	}`}

	m, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Name != "Graceful" {
		t.Errorf("Name = %q, want %q", m.Name, "Graceful")
	}
	if !m.Component {
		t.Errorf("Component = false, want true for string \"true\"")
	}
	if m.Metadata.MinimumVersion != "3.1.0" || m.Metadata.MaximumVersion != "" {
		t.Errorf("versions = %q/%q, want %q/%q", m.Metadata.MinimumVersion, m.Metadata.MaximumVersion, "3.1.0", "")
	}
	if m.Metadata.Authors != "Team" || m.Metadata.ThemeVersion != "1.2.0" {
		t.Errorf("Metadata = %+v", m.Metadata)
	}

	wantAssets := []Asset{{"logo", "assets/logo.png"}, {"font", "assets/font.woff2"}}
	if len(m.Assets) != len(wantAssets) {
		t.Fatalf("Assets = %+v, want %+v", m.Assets, wantAssets)
	}
	for i := range wantAssets {
		if m.Assets[i] != wantAssets[i] {
			t.Errorf("Assets[%d] = %+v, want %+v", i, m.Assets[i], wantAssets[i])
		}
	}

	if len(m.ColorSchemes) != 2 || m.ColorSchemes[0].Name != "Zeta" || m.ColorSchemes[1].Name != "Alpha" {
		t.Fatalf("ColorSchemes order = %+v, want Zeta then Alpha", m.ColorSchemes)
	}
	if hex, ok := m.ColorSchemes[0].Override("primary"); !ok || hex != "FF0000" {
		t.Errorf("Override(primary) = %q, %v", hex, ok)
	}
	if hex, ok := m.ColorSchemes[0].Override("secondary"); !ok || hex != "" {
		t.Errorf("Override(secondary) = %q, %v, want empty override", hex, ok)
	}
}

func TestParseComponentFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"name":"a","component":true}`, true},
		{`{"name":"a","component":"true"}`, true},
		{`{"name":"a","component":false}`, false},
		{`{"name":"a","component":"yes"}`, false},
		{`{"name":"a"}`, false},
	}

	for _, tt := range tests {
		m, err := Decode([]byte(tt.raw))
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", tt.raw, err)
		}
		if m.Component != tt.want {
			t.Errorf("Decode(%s).Component = %v, want %v", tt.raw, m.Component, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		reader mapReader
		want   error
	}{
		{"missing", mapReader{}, errors.ErrManifestMissing},
		{"malformed", mapReader{FileName: `{"name": `}, errors.ErrManifestInvalid},
		{"array", mapReader{FileName: `["name"]`}, errors.ErrManifestInvalid},
		{"string", mapReader{FileName: `"theme"`}, errors.ErrManifestInvalid},
		{"empty", mapReader{FileName: ``}, errors.ErrManifestInvalid},
		{"assets not object", mapReader{FileName: `{"assets": ["a"]}`}, errors.ErrManifestInvalid},
		{"scheme not object", mapReader{FileName: `{"color_schemes": {"Dark": "black"}}`}, errors.ErrManifestInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.reader)
			if !stderrors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			if !errors.IsImportError(err) {
				t.Errorf("Parse() error %T is not an ImportError", err)
			}
		})
	}
}

func TestParseMinimal(t *testing.T) {
	m, err := Decode([]byte(`{"name":"Foo","component":false}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Name != "Foo" || m.Component || len(m.Assets) != 0 || len(m.ColorSchemes) != 0 {
		t.Errorf("Decode() = %+v", m)
	}
}
