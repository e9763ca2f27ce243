package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// entryTarget resolves an archive entry inside destPath after stripping
// topDir. Entries that would land outside destPath are rejected.
func entryTarget(destPath, topDir, name string) (string, bool, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if topDir != "" {
		if name == topDir || name == topDir+"/" {
			return "", false, nil
		}
		name = strings.TrimPrefix(name, topDir+"/")
	}
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return "", false, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target, err := securejoin.SecureJoin(destPath, name)
	if err != nil {
		return "", false, err
	}
	return target, true, nil
}

// commonTopDir returns the single directory every entry lives under, or "" when
// the archive has files at its root or more than one top-level directory.
func commonTopDir(names []string) string {
	top := ""
	for _, n := range names {
		n = strings.TrimPrefix(filepath.ToSlash(n), "./")
		if n == "" {
			continue
		}
		first, _, nested := strings.Cut(n, "/")
		if !nested {
			return ""
		}
		if top == "" {
			top = first
		} else if first != top {
			return ""
		}
	}
	return top
}

// extractBudget caps the bytes written across every entry of one archive.
type extractBudget struct {
	remaining int64
}

func (b *extractBudget) copy(w io.Writer, r io.Reader) error {
	n, err := io.Copy(w, io.LimitReader(r, b.remaining+1))
	b.remaining -= n
	if err != nil {
		return err
	}
	if b.remaining < 0 {
		return ErrArchiveTooLarge
	}
	return nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode, budget *extractBudget) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	if err := budget.copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func extractTarGzFile(archivePath, destPath string, maxBytes int64) error {
	names, err := tarNames(archivePath)
	if err != nil {
		return err
	}
	topDir := commonTopDir(names)

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	defer gzr.Close()

	budget := &extractBudget{remaining: maxBytes}
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
		}

		target, ok, err := entryTarget(destPath, topDir, header.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(header.Mode), budget); err != nil {
				return err
			}
		}
	}

	return nil
}

func tarNames(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	defer gzr.Close()

	var names []string
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
		}
		if header.Typeflag == tar.TypeXGlobalHeader || path.Base(header.Name) == "pax_global_header" {
			continue
		}
		names = append(names, header.Name)
	}
}

func extractZip(zipPath, destPath string, maxBytes int64) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		names = append(names, f.Name)
	}
	topDir := commonTopDir(names)

	budget := &extractBudget{remaining: maxBytes}
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		target, ok, err := entryTarget(destPath, topDir, f.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
		}
		err = writeEntry(target, rc, f.Mode(), budget)
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}
