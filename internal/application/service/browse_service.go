package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bravo68web/gitkit/internal/config"
	apperrors "github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/git"
	"github.com/bravo68web/gitkit/pkg/git/diff"
	"github.com/bravo68web/gitkit/pkg/logger"
	"github.com/bravo68web/gitkit/pkg/process"
)

const (
	DefaultLogLimit = 30
	MaxLogLimit     = 500
)

// DiffLimits overrides the configured diff limits. Nil fields keep the
// configured value; zero disables a limit.
type DiffLimits struct {
	MaxFiles     *int
	MaxFileLines *int
	MaxLineChars *int
}

// BrowseService serves read-only views of the repositories below a root
// directory
type BrowseService struct {
	cfg    *config.Config
	runner *process.Runner
	log    *logger.Logger

	mu    sync.Mutex
	repos map[string]*git.Repository
}

// NewBrowseService creates a new BrowseService instance
func NewBrowseService(cfg *config.Config, log *logger.Logger) *BrowseService {
	if log == nil {
		log = logger.Get()
	}
	return &BrowseService{
		cfg:    cfg,
		runner: process.NewRunner(process.WithLogger(log.Named("process"))),
		log:    log.Named("browse"),
		repos:  make(map[string]*git.Repository),
	}
}

// Repository returns the handle for name, opening it on first use. Both
// "name" and "name.git" directories below the root are accepted.
func (s *BrowseService) Repository(name string) (*git.Repository, error) {
	if err := validateRepoName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if repo, ok := s.repos[name]; ok {
		return repo, nil
	}

	dir, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	repo, err := git.Open(dir,
		git.WithBinary(s.cfg.Git.Binary),
		git.WithRunner(s.runner),
		git.WithTimeout(s.cfg.Git.Timeout),
		git.WithEnv(s.cfg.Git.Environment()),
		git.WithMaxConcurrency(s.cfg.Pool.MaxConcurrency),
		git.WithLogger(s.log),
	)
	if err != nil {
		return nil, err
	}

	s.repos[name] = repo
	s.log.Debug("repository opened", logger.Repository(name), logger.Dir(dir))
	return repo, nil
}

func (s *BrowseService) resolve(name string) (string, error) {
	base := filepath.Join(s.cfg.Repos.Root, filepath.FromSlash(name))
	for _, dir := range []string{base, base + ".git"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", apperrors.NotFound("repository "+name, apperrors.ErrNotFound)
}

// validateRepoName accepts "repo" and "owner/repo"
func validateRepoName(name string) error {
	if name == "" {
		return apperrors.ValidationError("repo", "repository name is required")
	}
	if strings.ContainsAny(name, `\`+"\x00") || strings.HasPrefix(name, "/") {
		return apperrors.ValidationError("repo", "invalid repository name")
	}
	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return apperrors.ValidationError("repo", "repository name has too many segments")
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.HasPrefix(p, "-") {
			return apperrors.ValidationError("repo", "invalid repository name")
		}
	}
	return nil
}

// Commit resolves rev to a commit
func (s *BrowseService) Commit(ctx context.Context, repoName, rev string) (*git.Commit, error) {
	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}
	return repo.CatFileCommit(ctx, rev)
}

// Tag returns the tag named name
func (s *BrowseService) Tag(ctx context.Context, repoName, name string) (*git.Tag, error) {
	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}
	return repo.Tag(ctx, name)
}

// Branches lists the branch names of a repository
func (s *BrowseService) Branches(ctx context.Context, repoName string) ([]string, error) {
	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}
	return repo.Branches(ctx)
}

// Tags lists the tag names of a repository
func (s *BrowseService) Tags(ctx context.Context, repoName string) ([]string, error) {
	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}
	return repo.Tags(ctx)
}

// Tree lists the directory at p in rev
func (s *BrowseService) Tree(ctx context.Context, repoName, rev, p string) ([]*git.TreeEntry, error) {
	tree, _, err := s.subtree(ctx, repoName, rev, p)
	if err != nil {
		return nil, err
	}
	return tree.Entries(ctx)
}

func (s *BrowseService) subtree(ctx context.Context, repoName, rev, p string) (*git.Tree, *git.Commit, error) {
	commit, err := s.Commit(ctx, repoName, rev)
	if err != nil {
		return nil, nil, err
	}
	tree, err := commit.Tree().Subtree(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return tree, commit, nil
}

// Blob writes the content of the file at p in rev to w
func (s *BrowseService) Blob(ctx context.Context, repoName, rev, p string, w io.Writer) error {
	commit, err := s.Commit(ctx, repoName, rev)
	if err != nil {
		return err
	}
	blob, err := commit.Blob(ctx, p)
	if err != nil {
		return err
	}
	return blob.Pipeline(ctx, w)
}

// Diff parses the changes introduced by rev, or between base and rev
func (s *BrowseService) Diff(ctx context.Context, repoName, rev, base string, limits DiffLimits) (*diff.Diff, error) {
	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}

	opts := git.DiffOptions{
		Base:         base,
		MaxFiles:     s.cfg.Diff.MaxFiles,
		MaxFileLines: s.cfg.Diff.MaxFileLines,
		MaxLineChars: s.cfg.Diff.MaxLineChars,
	}
	for _, l := range []struct {
		override *int
		target   *int
		field    string
	}{
		{limits.MaxFiles, &opts.MaxFiles, "max_files"},
		{limits.MaxFileLines, &opts.MaxFileLines, "max_file_lines"},
		{limits.MaxLineChars, &opts.MaxLineChars, "max_line_chars"},
	} {
		if l.override == nil {
			continue
		}
		if *l.override < 0 {
			return nil, apperrors.ValidationError(l.field, "must not be negative")
		}
		*l.target = *l.override
	}

	d, err := repo.Diff(ctx, rev, opts)
	if err != nil {
		return nil, err
	}
	if d.IsIncomplete() {
		s.log.Debug("diff truncated",
			logger.Repository(repoName),
			logger.Revision(rev),
			logger.Int("files", d.NumFiles()),
		)
	}
	return d, nil
}

// RawDiff streams the unparsed diff or patch of rev to w
func (s *BrowseService) RawDiff(ctx context.Context, repoName, rev string, format git.RawDiffFormat, w io.Writer) error {
	repo, err := s.Repository(repoName)
	if err != nil {
		return err
	}
	return repo.RawDiff(ctx, rev, format, w)
}

// TreeCommits pairs every entry of the directory at p in rev with the last
// commit that touched it. concurrency <= 0 uses the configured pool size.
func (s *BrowseService) TreeCommits(ctx context.Context, repoName, rev, p string, concurrency int) ([]git.EntryCommitInfo, error) {
	commit, err := s.Commit(ctx, repoName, rev)
	if err != nil {
		return nil, err
	}
	return commit.CommitsInfo(ctx, git.CommitsInfoOptions{
		Path:           p,
		MaxConcurrency: concurrency,
	})
}

// Log lists up to limit commits reachable from rev, newest first
func (s *BrowseService) Log(ctx context.Context, repoName, rev, p string, limit, skip int) ([]*git.Commit, error) {
	switch {
	case limit == 0:
		limit = DefaultLogLimit
	case limit < 0 || limit > MaxLogLimit:
		return nil, apperrors.ValidationError("limit", "limit must be between 1 and 500")
	}
	if skip < 0 {
		return nil, apperrors.ValidationError("skip", "must not be negative")
	}

	repo, err := s.Repository(repoName)
	if err != nil {
		return nil, err
	}
	return repo.Log(ctx, rev, git.LogOptions{MaxCount: limit, Skip: skip, Path: p})
}
