package remote

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/samhoang/themesync/internal/manifest"
	"github.com/samhoang/themesync/internal/theme"
)

// ColorChange describes one color whose value a sync replaced.
type ColorChange struct {
	ThemeID int64
	Scheme  string
	Color   string
	From    string
	To      string
}

// ColorNotifier is told about every color a sync changes.
type ColorNotifier interface {
	ColorChanged(ctx context.Context, change ColorChange)
}

type logNotifier struct{}

func (logNotifier) ColorChanged(ctx context.Context, c ColorChange) {
	zerolog.Ctx(ctx).Info().
		Str("scheme", c.Scheme).
		Str("color", c.Color).
		Str("from", c.From).
		Str("to", c.To).
		Msg("color changed")
}

// ColorResult counts what a color merge did.
type ColorResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// ColorMerger reconciles declared color schemes with the stored ones.
type ColorMerger struct {
	notifier ColorNotifier
}

// NewColorMerger creates a merger. A nil notifier logs changes.
func NewColorMerger(notifier ColorNotifier) *ColorMerger {
	if notifier == nil {
		notifier = logNotifier{}
	}
	return &ColorMerger{notifier: notifier}
}

// Reconcile applies the declared schemes to th. Existing schemes only have
// their colors overridden, new schemes start from the base palette, and
// schemes no longer declared are deleted unless the theme is new. A new theme
// gets its first declared scheme as the active one.
func (m *ColorMerger) Reconcile(ctx context.Context, q Queries, th *theme.Theme, declared []manifest.Scheme, isNew bool) (ColorResult, error) {
	var result ColorResult

	existing, err := q.ListColorSchemes(ctx, th.ID)
	if err != nil {
		return result, err
	}
	byName := make(map[string]theme.ColorScheme, len(existing))
	for _, s := range existing {
		byName[s.Name] = s
	}

	declaredNames := make(map[string]struct{}, len(declared))
	for _, s := range declared {
		declaredNames[s.Name] = struct{}{}
	}
	var missing []int64
	for _, s := range existing {
		if _, ok := declaredNames[s.Name]; !ok {
			missing = append(missing, s.ID)
		}
	}

	var first *int64
	for _, decl := range declared {
		var schemeID int64
		if scheme, ok := byName[decl.Name]; ok {
			updated, err := m.override(ctx, q, th, scheme, decl)
			if err != nil {
				return result, err
			}
			result.Updated += updated
			schemeID = scheme.ID
		} else {
			scheme := theme.ColorScheme{ThemeID: th.ID, Name: decl.Name, Colors: theme.BasePalette()}
			for i := range scheme.Colors {
				if hex, ok := overrideHex(decl, scheme.Colors[i].Name); ok {
					scheme.Colors[i].Hex = hex
				}
			}
			if err := q.CreateColorScheme(ctx, &scheme); err != nil {
				return result, err
			}
			result.Created++
			schemeID = scheme.ID
		}
		if first == nil {
			id := schemeID
			first = &id
		}
	}

	if isNew {
		if first != nil {
			th.ColorSchemeID = first
			if err := q.UpdateTheme(ctx, th); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	if err := q.DeleteColorSchemes(ctx, missing); err != nil {
		return result, err
	}
	result.Deleted = len(missing)
	return result, nil
}

// override writes each declared color that differs from the stored value and
// returns how many changed.
func (m *ColorMerger) override(ctx context.Context, q Queries, th *theme.Theme, scheme theme.ColorScheme, decl manifest.Scheme) (int, error) {
	changed := 0
	for _, c := range scheme.Colors {
		hex, ok := overrideHex(decl, c.Name)
		if !ok || hex == c.Hex {
			continue
		}
		if err := q.UpdateColor(ctx, c.ID, hex); err != nil {
			return changed, err
		}
		m.notifier.ColorChanged(ctx, ColorChange{
			ThemeID: th.ID,
			Scheme:  scheme.Name,
			Color:   c.Name,
			From:    c.Hex,
			To:      hex,
		})
		changed++
	}
	return changed, nil
}

// overrideHex returns the normalized declared value for a color. Missing and
// malformed values report false.
func overrideHex(decl manifest.Scheme, name string) (string, bool) {
	raw, ok := decl.Override(name)
	if !ok {
		return "", false
	}
	return theme.NormalizeHex(raw)
}
