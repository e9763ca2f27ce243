package source

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"

	"github.com/samhoang/themesync/internal/errors"
)

// stagedDir is a temporary directory holding one staged package.
type stagedDir struct {
	root   string
	fs     billy.Filesystem
	logger zerolog.Logger
	once   sync.Once
}

func newStagedDir(prefix string, logger zerolog.Logger) (*stagedDir, error) {
	root, err := os.MkdirTemp("", "themesync-"+prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &stagedDir{
		root:   root,
		fs:     osfs.New(root),
		logger: logger,
	}, nil
}

// files walks the staging area lazily, skipping git metadata.
func (s *stagedDir) files() iter.Seq[string] {
	return func(yield func(string) bool) {
		if s == nil {
			return
		}
		stop := stderrors.New("stop")
		err := util.Walk(s.fs, "/", func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
			if info.IsDir() {
				if rel == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if !yield(rel) {
				return stop
			}
			return nil
		})
		if err != nil && !stderrors.Is(err, stop) {
			s.logger.Warn().Err(err).Str("root", s.root).Msg("walk staged package")
		}
	}
}

func (s *stagedDir) readFile(p string) ([]byte, error) {
	if s == nil {
		return nil, errors.NewImportError("read file", p, errors.ErrFileMissing)
	}
	data, err := util.ReadFile(s.fs, cleanRel(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewImportError("read file", p, errors.ErrFileMissing)
		}
		return nil, errors.NewImportError("read file", p, err)
	}
	return data, nil
}

func (s *stagedDir) realPath(p string) (string, bool) {
	if s == nil {
		return "", false
	}
	full, err := securejoin.SecureJoin(s.root, cleanRel(p))
	if err != nil {
		return "", false
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

// remove deletes the staging area once. Later calls are no-ops.
func (s *stagedDir) remove() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if err := os.RemoveAll(s.root); err != nil {
			s.logger.Warn().Err(err).Str("root", s.root).Msg("cleanup staged package")
			return
		}
		s.logger.Debug().Str("root", s.root).Msg("removed staged package")
	})
}

func cleanRel(p string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
}
