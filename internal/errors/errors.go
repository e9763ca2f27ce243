package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrTransport       = errors.New("could not fetch theme")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrManifestMissing = errors.New("about.json not found")
	ErrManifestInvalid = errors.New("about.json is malformed")
	ErrFileMissing     = errors.New("file not found in theme package")
	ErrUpload          = errors.New("asset upload failed")
	ErrValidation      = errors.New("theme metadata is invalid")
	ErrNotGitSource    = errors.New("theme is not backed by a git repository")
	ErrThemeNotFound   = errors.New("theme not found")
	ErrSourceNotFound  = errors.New("remote source not found")
)

// ImportError is returned when a theme package cannot be staged, parsed or
// reconciled. Its message is meant to be shown to the person running the sync.
type ImportError struct {
	Op     string // operation
	Source string // url or archive path
	Err    error  // underlying error
}

func (e *ImportError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// NewImportError creates a new import error
func NewImportError(op, source string, err error) *ImportError {
	return &ImportError{Op: op, Source: source, Err: err}
}

// IsImportError reports whether err is, or wraps, an *ImportError.
func IsImportError(err error) bool {
	var ie *ImportError
	return errors.As(err, &ie)
}

// ValidationError lists every metadata rule a manifest violated.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(e.Messages, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new validation error, or nil when there is
// nothing to report.
func NewValidationError(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}
