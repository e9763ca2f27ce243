package theme

import (
	"path"
	"regexp"
	"strings"
)

// Kind is the type of content a field holds.
type Kind string

const (
	KindSCSS   Kind = "scss"   // stylesheet fragment
	KindHTML   Kind = "html"   // markup for a slot
	KindUpload Kind = "upload" // uploaded asset referenced by variable name
	KindJS     Kind = "js"     // extra javascript module
	KindYAML   Kind = "yaml"   // settings or translations
)

// Targets
const (
	TargetCommon       = "common"
	TargetDesktop      = "desktop"
	TargetMobile       = "mobile"
	TargetExtraSCSS    = "extra_scss"
	TargetExtraJS      = "extra_js"
	TargetSettings     = "settings"
	TargetTranslations = "translations"
)

// HTMLSlots lists the markup slots a theme can fill per device target.
func HTMLSlots() []string {
	return []string{"head_tag", "header", "after_header", "body_tag", "footer"}
}

// Field is a single named, typed unit of theme content.
type Field struct {
	ID       int64  `json:"id"`
	ThemeID  int64  `json:"themeId"`
	Target   string `json:"target"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Value    string `json:"value,omitempty"`
	UploadID string `json:"uploadId,omitempty"`
}

// FieldKey identifies a field for reconciliation. Uploads and content fields
// live in separate categories so an asset and a stylesheet may share a name.
type FieldKey struct {
	Target   string
	Name     string
	Category string
}

// Category groups kinds that replace each other in place.
func (k Kind) Category() string {
	if k == KindUpload {
		return "upload"
	}
	return "content"
}

// Key returns the reconciliation identity of f.
func (f Field) Key() FieldKey {
	return FieldKey{Target: f.Target, Name: f.Name, Category: f.Kind.Category()}
}

// SameContent reports whether two fields carry identical content.
func (f Field) SameContent(other Field) bool {
	return f.Kind == other.Kind && f.Value == other.Value && f.UploadID == other.UploadID
}

// Placement is where a staged file lands in the field model.
type Placement struct {
	Target string
	Name   string
	Kind   Kind
}

var (
	deviceStylesheet = regexp.MustCompile(`^(common|desktop|mobile)/(common|desktop|mobile)\.scss$`)
	deviceHTML       = regexp.MustCompile(`^(common|desktop|mobile)/(head_tag|header|after_header|body_tag|footer)\.html$`)
	extraStylesheet  = regexp.MustCompile(`^scss/(.+)\.scss$`)
	extraJS          = regexp.MustCompile(`^javascripts/(.+)$`)
	settingsFile     = regexp.MustCompile(`^settings\.ya?ml$`)
	localeFile       = regexp.MustCompile(`^locales/([A-Za-z]{2,3}(?:_[A-Za-z0-9]+)?)\.yml$`)
)

// FieldFromPath derives a field placement from a package-relative path.
// Paths that match no convention return ok == false.
func FieldFromPath(p string) (Placement, bool) {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")

	if m := deviceStylesheet.FindStringSubmatch(p); m != nil {
		if m[1] != m[2] {
			return Placement{}, false
		}
		return Placement{Target: m[1], Name: "scss", Kind: KindSCSS}, true
	}
	if p == "common/embedded.scss" {
		return Placement{Target: TargetCommon, Name: "embedded_scss", Kind: KindSCSS}, true
	}
	if m := deviceHTML.FindStringSubmatch(p); m != nil {
		return Placement{Target: m[1], Name: m[2], Kind: KindHTML}, true
	}
	if m := extraStylesheet.FindStringSubmatch(p); m != nil {
		return Placement{Target: TargetExtraSCSS, Name: m[1], Kind: KindSCSS}, true
	}
	if m := extraJS.FindStringSubmatch(p); m != nil {
		return Placement{Target: TargetExtraJS, Name: m[1], Kind: KindJS}, true
	}
	if settingsFile.MatchString(p) {
		return Placement{Target: TargetSettings, Name: "yaml", Kind: KindYAML}, true
	}
	if m := localeFile.FindStringSubmatch(p); m != nil {
		return Placement{Target: TargetTranslations, Name: m[1], Kind: KindYAML}, true
	}

	return Placement{}, false
}

// PathForField is the inverse of FieldFromPath. Upload fields have no path.
func PathForField(f Field) (string, bool) {
	switch f.Kind {
	case KindUpload:
		return "", false
	case KindSCSS:
		switch {
		case f.Target == TargetExtraSCSS:
			return "scss/" + f.Name + ".scss", true
		case f.Target == TargetCommon && f.Name == "embedded_scss":
			return "common/embedded.scss", true
		case f.Name == "scss" && isDeviceTarget(f.Target):
			return f.Target + "/" + f.Target + ".scss", true
		}
	case KindHTML:
		if isDeviceTarget(f.Target) {
			return f.Target + "/" + f.Name + ".html", true
		}
	case KindJS:
		if f.Target == TargetExtraJS {
			return "javascripts/" + f.Name, true
		}
	case KindYAML:
		switch f.Target {
		case TargetSettings:
			return "settings.yml", true
		case TargetTranslations:
			return "locales/" + f.Name + ".yml", true
		}
	}
	return "", false
}

func isDeviceTarget(target string) bool {
	return target == TargetCommon || target == TargetDesktop || target == TargetMobile
}
