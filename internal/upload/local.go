package upload

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"
)

// LocalStore keeps uploads in a directory tree: <dir>/<owner>/<id><ext>.
type LocalStore struct {
	dir string
}

var _ Uploader = (*LocalStore)(nil)

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Create(ctx context.Context, ownerID string, r io.Reader, name string) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.dir, ownerDir(ownerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create owner dir: %w", err)
	}

	br := bufio.NewReaderSize(r, 3072)
	head, _ := br.Peek(3072)
	contentType := detectContentType(head, name)

	// the id is only known once every byte is read, so content lands in a
	// temp file first
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	digester := digest.Canonical.Digester()
	size, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), br)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write upload %s: %w", name, err)
	}

	id := digester.Digest().Encoded()
	target := filepath.Join(dir, objectName(id, name))
	reused := false
	if _, err := os.Stat(target); err == nil {
		os.Remove(tmp.Name())
		reused = true
	} else if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("store upload %s: %w", name, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("upload_id", id).
		Str("name", name).
		Str("content_type", contentType).
		Int64("size", size).
		Bool("reused", reused).
		Msg("stored upload")

	return &Upload{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Location:    target,
	}, nil
}
