// Package manifest parses the about.json file at the root of a theme package.
package manifest

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/theme"
)

// FileName is the manifest location relative to the package root.
const FileName = "about.json"

// FileReader is the part of an importer the parser needs.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Asset is a binary file the package declares under a variable name.
type Asset struct {
	Name string
	Path string
}

// Color is a declared override. Hex is copied verbatim and validated by the
// color merger.
type Color struct {
	Name string
	Hex  string
}

// Scheme is a declared color scheme.
type Scheme struct {
	Name   string
	Colors []Color
}

// Override returns the declared value for the named color.
func (s Scheme) Override(name string) (string, bool) {
	for _, c := range s.Colors {
		if c.Name == name {
			return c.Hex, true
		}
	}
	return "", false
}

// Manifest is the structured content of about.json. Assets and ColorSchemes
// keep document order.
type Manifest struct {
	Name         string
	Component    bool
	Assets       []Asset
	ColorSchemes []Scheme
	Metadata     theme.Metadata
}

type document struct {
	Name           json.RawMessage `json:"name"`
	Component      json.RawMessage `json:"component"`
	Assets         json.RawMessage `json:"assets"`
	ColorSchemes   json.RawMessage `json:"color_schemes"`
	LicenseURL     json.RawMessage `json:"license_url"`
	AboutURL       json.RawMessage `json:"about_url"`
	Authors        json.RawMessage `json:"authors"`
	ThemeVersion   json.RawMessage `json:"theme_version"`
	MinimumVersion json.RawMessage `json:"minimum_version"`
	MaximumVersion json.RawMessage `json:"maximum_version"`
}

// Parse reads and decodes the manifest of a staged package.
func Parse(r FileReader) (*Manifest, error) {
	data, err := r.ReadFile(FileName)
	if err != nil {
		if stderrors.Is(err, errors.ErrFileMissing) {
			return nil, errors.NewImportError("parse manifest", FileName, errors.ErrManifestMissing)
		}
		return nil, errors.NewImportError("parse manifest", FileName, err)
	}
	return Decode(data)
}

// Decode parses manifest bytes.
func Decode(data []byte) (*Manifest, error) {
	invalid := func(cause string) error {
		return errors.NewImportError("parse manifest", FileName, fmt.Errorf("%w: %s", errors.ErrManifestInvalid, cause))
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, invalid("expected a JSON object")
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, invalid(err.Error())
	}

	m := &Manifest{
		Name:      stringValue(doc.Name),
		Component: truthy(doc.Component),
		Metadata: theme.Metadata{
			LicenseURL:     stringValue(doc.LicenseURL),
			AboutURL:       stringValue(doc.AboutURL),
			Authors:        stringValue(doc.Authors),
			ThemeVersion:   stringValue(doc.ThemeVersion),
			MinimumVersion: stringValue(doc.MinimumVersion),
			MaximumVersion: stringValue(doc.MaximumVersion),
		},
	}

	assets, err := members(doc.Assets)
	if err != nil {
		return nil, invalid("assets: " + err.Error())
	}
	for _, a := range assets {
		if p := stringValue(a.value); p != "" {
			m.Assets = append(m.Assets, Asset{Name: a.key, Path: p})
		}
	}

	schemes, err := members(doc.ColorSchemes)
	if err != nil {
		return nil, invalid("color_schemes: " + err.Error())
	}
	for _, s := range schemes {
		colors, err := members(s.value)
		if err != nil {
			return nil, invalid(fmt.Sprintf("color scheme %q: %v", s.key, err))
		}
		scheme := Scheme{Name: s.key}
		for _, c := range colors {
			scheme.Colors = append(scheme.Colors, Color{Name: c.key, Hex: stringValue(c.value)})
		}
		m.ColorSchemes = append(m.ColorSchemes, scheme)
	}

	return m, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// members walks a JSON object and returns its members in document order. A
// missing or null value yields no members; any other non-object is an error.
// Duplicate keys keep the last value at the position of the first.
func members(raw json.RawMessage) ([]member, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object")
	}

	var out []member
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			out[i].value = value
			continue
		}
		index[key] = len(out)
		out = append(out, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return stringValue(raw) == "true"
}
