package theme

import (
	"regexp"
	"strings"
)

// Color is one named entry of a palette. Hex carries no leading '#'.
type Color struct {
	ID            int64  `json:"id,omitempty"`
	ColorSchemeID int64  `json:"colorSchemeId,omitempty"`
	Name          string `json:"name"`
	Hex           string `json:"hex"`
}

// ColorScheme is a named palette owned by a theme.
type ColorScheme struct {
	ID      int64   `json:"id"`
	ThemeID int64   `json:"themeId"`
	Name    string  `json:"name"`
	Colors  []Color `json:"colors"`
}

// Color returns the entry with the given name.
func (s *ColorScheme) Color(name string) (*Color, bool) {
	for i := range s.Colors {
		if s.Colors[i].Name == name {
			return &s.Colors[i], true
		}
	}
	return nil, false
}

var basePalette = []Color{
	{Name: "primary", Hex: "222222"},
	{Name: "secondary", Hex: "ffffff"},
	{Name: "tertiary", Hex: "0088cc"},
	{Name: "quaternary", Hex: "e45735"},
	{Name: "header_background", Hex: "ffffff"},
	{Name: "header_primary", Hex: "333333"},
	{Name: "highlight", Hex: "ffff4d"},
	{Name: "danger", Hex: "e45735"},
	{Name: "success", Hex: "009900"},
	{Name: "love", Hex: "fa6c8d"},
}

// BasePalette returns a copy of the palette every new scheme is seeded from.
func BasePalette() []Color {
	out := make([]Color, len(basePalette))
	copy(out, basePalette)
	return out
}

// IsBaseColor reports whether name belongs to the base palette.
func IsBaseColor(name string) bool {
	for _, c := range basePalette {
		if c.Name == name {
			return true
		}
	}
	return false
}

var hexColor = regexp.MustCompile(`(?i)^[0-9a-f]{6}$`)

// NormalizeHex validates a six digit hex color and lower-cases it.
func NormalizeHex(s string) (string, bool) {
	if !hexColor.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}
