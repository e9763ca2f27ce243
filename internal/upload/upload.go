// Package upload stores binary theme assets and hands back identifiers that
// upload fields reference.
package upload

import (
	"context"
	_ "crypto/sha256"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opencontainers/go-digest"
)

// Upload describes a stored asset.
type Upload struct {
	ID          string
	OwnerID     string
	Name        string
	ContentType string
	Size        int64
	Location    string
}

// Uploader stores asset bytes on behalf of an owner. Upload ids are
// ContentID of the bytes, so storing identical content again for the same
// owner returns the existing upload instead of a copy.
type Uploader interface {
	Create(ctx context.Context, ownerID string, r io.Reader, name string) (*Upload, error)
}

// ContentID is the id an upload of data receives: its hex sha256 digest.
func ContentID(data []byte) string {
	return digest.FromBytes(data).Encoded()
}

// objectName builds the storage name for an upload: its id keeping the
// extension of the declared name.
func objectName(id, declaredName string) string {
	ext := strings.ToLower(path.Ext(declaredName))
	return id + ext
}

func ownerDir(ownerID string) string {
	if ownerID == "" {
		return "system"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(ownerID)
}

// detectContentType sniffs the leading bytes of an asset.
func detectContentType(head []byte, declaredName string) string {
	mt := mimetype.Detect(head)
	if mt.Is("application/octet-stream") || mt.Is("text/plain") {
		if byExt := extensionMime(declaredName); byExt != "" {
			return byExt
		}
	}
	return mt.String()
}

// extensionMime maps the extensions themes commonly ship as assets whose
// content sniffing is ambiguous.
func extensionMime(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".js":
		return "text/javascript"
	case ".json":
		return "application/json"
	}
	return ""
}
