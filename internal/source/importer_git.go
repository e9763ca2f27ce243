package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/rs/zerolog"

	"github.com/samhoang/themesync/internal/errors"
	"github.com/samhoang/themesync/internal/manifest"
	"github.com/samhoang/themesync/internal/theme"
)

const objectCacheSize = 1000

// GitImporter stages a theme by cloning its repository.
type GitImporter struct {
	url    string
	opts   Options
	staged *stagedDir
	repo   *git.Repository
	head   plumbing.Hash
}

var (
	_ Importer      = (*GitImporter)(nil)
	_ CommitCounter = (*GitImporter)(nil)
	_ LocalDiffer   = (*GitImporter)(nil)
)

// NewGitImporter creates an importer for url. Nothing is fetched until Import.
func NewGitImporter(url string, opts Options) *GitImporter {
	return &GitImporter{url: url, opts: opts.withDefaults()}
}

func (g *GitImporter) Type() string {
	return TypeGit
}

// URL returns the remote being cloned.
func (g *GitImporter) URL() string {
	return g.url
}

func (g *GitImporter) Import(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("importer", TypeGit).Str("url", redactURL(g.url)).Logger()

	staged, err := newStagedDir(TypeGit, logger)
	if err != nil {
		return errors.NewImportError("git clone", redactURL(g.url), err)
	}
	g.staged = staged

	auth, err := authMethod(g.url, g.opts)
	if err != nil {
		return err
	}

	dotGit, err := staged.fs.Chroot(git.GitDirName)
	if err != nil {
		return errors.NewImportError("git clone", redactURL(g.url), err)
	}
	storage := filesystem.NewStorage(dotGit, cache.NewObjectLRU(cache.FileSize(objectCacheSize)))

	cloneOpts := &git.CloneOptions{
		URL:  g.url,
		Auth: auth,
	}
	if g.opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(g.opts.Branch)
		cloneOpts.SingleBranch = true
	}

	cloneCtx, cancel := context.WithTimeout(ctx, g.opts.CloneTimeout)
	defer cancel()

	start := time.Now()
	repo, err := git.CloneContext(cloneCtx, storage, staged.fs, cloneOpts)
	if err != nil {
		if stderrors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("clone timed out after %s: %w", g.opts.CloneTimeout, err)
		}
		return errors.NewImportError("git clone", redactURL(g.url), gitCause(err))
	}

	ref, err := repo.Head()
	if err != nil {
		return errors.NewImportError("git clone", redactURL(g.url), gitCause(err))
	}
	g.repo = repo
	g.head = ref.Hash()

	logger.Debug().
		Str("version", g.head.String()).
		Dur("elapsed", time.Since(start)).
		Msg("cloned theme repository")
	return nil
}

func (g *GitImporter) AllFiles() iter.Seq[string] {
	return g.staged.files()
}

func (g *GitImporter) ReadFile(path string) ([]byte, error) {
	return g.staged.readFile(path)
}

func (g *GitImporter) RealPath(path string) (string, bool) {
	return g.staged.realPath(path)
}

// Version returns the commit checked out by Import.
func (g *GitImporter) Version() string {
	if g.head.IsZero() {
		return ""
	}
	return g.head.String()
}

func (g *GitImporter) Cleanup() {
	g.staged.remove()
}

// CommitsSince counts commits between oldVersion and the staged head. An empty
// or unknown oldVersion, which happens after a force push, counts as zero
// distance and is logged.
func (g *GitImporter) CommitsSince(ctx context.Context, oldVersion string) (string, int, error) {
	if g.repo == nil {
		return "", 0, errors.NewImportError("count commits", redactURL(g.url), fmt.Errorf("repository not imported"))
	}
	logger := zerolog.Ctx(ctx)
	newVersion := g.head.String()

	if oldVersion == "" || oldVersion == newVersion {
		return newVersion, 0, nil
	}

	oldHash := plumbing.NewHash(oldVersion)
	if _, err := g.repo.CommitObject(oldHash); err != nil {
		logger.Warn().Str("old_version", oldVersion).Err(err).Msg("previous version not found in history, assuming up to date")
		return newVersion, 0, nil
	}

	commits, err := g.repo.Log(&git.LogOptions{From: g.head})
	if err != nil {
		return "", 0, errors.NewImportError("count commits", redactURL(g.url), err)
	}
	defer commits.Close()

	behind := 0
	found := false
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Hash == oldHash {
			found = true
			return storer.ErrStop
		}
		behind++
		return nil
	})
	if err != nil {
		return "", 0, errors.NewImportError("count commits", redactURL(g.url), err)
	}
	if !found {
		logger.Warn().Str("old_version", oldVersion).Msg("previous version is not an ancestor of the remote head, assuming up to date")
		return newVersion, 0, nil
	}

	return newVersion, behind, nil
}

// DiffLocalChanges writes fields over the checkout of localVersion and returns
// the unified diff against that commit. An empty string means the stored fields
// match the repository.
func (g *GitImporter) DiffLocalChanges(ctx context.Context, localVersion string, fields []theme.Field) (string, error) {
	if g.repo == nil {
		return "", errors.NewImportError("diff local changes", redactURL(g.url), fmt.Errorf("repository not imported"))
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	base := g.head
	if localVersion != "" {
		h := plumbing.NewHash(localVersion)
		if _, err := g.repo.CommitObject(h); err == nil {
			base = h
		} else {
			zerolog.Ctx(ctx).Warn().Str("local_version", localVersion).Msg("local version not found, diffing against remote head")
		}
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: base, Force: true}); err != nil {
		return "", fmt.Errorf("checkout %s: %w", base, err)
	}

	var stale []string
	for p := range g.AllFiles() {
		if p == manifest.FileName {
			continue
		}
		if _, ok := theme.FieldFromPath(p); ok {
			stale = append(stale, p)
		}
	}
	for _, p := range stale {
		if _, err := wt.Remove(p); err == nil {
			continue
		}
		if err := wt.Filesystem.Remove(p); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove %s: %w", p, err)
		}
	}
	for _, f := range fields {
		p, ok := theme.PathForField(f)
		if !ok {
			continue
		}
		if err := util.WriteFile(wt.Filesystem, p, []byte(f.Value), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", p, err)
		}
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage local changes: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	sig := &object.Signature{Name: "themesync", Email: "themesync@localhost", When: time.Now()}
	local, err := wt.Commit("local changes", &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", fmt.Errorf("commit local changes: %w", err)
	}

	return g.patch(ctx, base, local)
}

func (g *GitImporter) patch(ctx context.Context, from, to plumbing.Hash) (string, error) {
	fromCommit, err := g.repo.CommitObject(from)
	if err != nil {
		return "", fmt.Errorf("load commit %s: %w", from, err)
	}
	toCommit, err := g.repo.CommitObject(to)
	if err != nil {
		return "", fmt.Errorf("load commit %s: %w", to, err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("load tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("load tree: %w", err)
	}

	changes, err := fromTree.DiffContext(ctx, toTree)
	if err != nil {
		return "", fmt.Errorf("compute changes: %w", err)
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", fmt.Errorf("generate patch: %w", err)
	}
	return patch.String(), nil
}
