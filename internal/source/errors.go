package source

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/samhoang/themesync/internal/errors"
)

// Transport causes shown to the user
var (
	ErrRepositoryNotFound = fmt.Errorf("%w: repository not found", errors.ErrTransport)
	ErrBranchNotFound     = fmt.Errorf("%w: branch not found", errors.ErrTransport)
	ErrArchiveTooLarge    = fmt.Errorf("%w: archive exceeds size limit", errors.ErrTransport)
	ErrArchiveUnsupported = fmt.Errorf("%w: unsupported archive format", errors.ErrTransport)
	ErrArchiveCorrupt     = fmt.Errorf("%w: archive is corrupt", errors.ErrTransport)
	ErrUnsafePath         = fmt.Errorf("%w: archive entry escapes package root", errors.ErrTransport)
)

// gitCause maps go-git failures onto the user-facing transport causes.
func gitCause(err error) error {
	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		stderrors.Is(err, transport.ErrInvalidAuthMethod):
		return fmt.Errorf("%w: %v", errors.ErrAuthFailed, err)
	case stderrors.Is(err, transport.ErrRepositoryNotFound),
		stderrors.Is(err, transport.ErrEmptyRemoteRepository):
		return fmt.Errorf("%w (%v)", ErrRepositoryNotFound, err)
	case stderrors.Is(err, plumbing.ErrReferenceNotFound):
		return fmt.Errorf("%w (%v)", ErrBranchNotFound, err)
	}
	var refErr git.NoMatchingRefSpecError
	if stderrors.As(err, &refErr) {
		return fmt.Errorf("%w (%v)", ErrBranchNotFound, err)
	}
	if strings.Contains(err.Error(), "couldn't find remote ref") {
		return fmt.Errorf("%w (%v)", ErrBranchNotFound, err)
	}
	return fmt.Errorf("%w: %v", errors.ErrTransport, err)
}

// redactURL drops credentials embedded in a clone URL before it is logged or
// stored in an error message.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
