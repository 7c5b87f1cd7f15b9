package git

import (
	"context"
	"path"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/logger"
	"github.com/bravo68web/gitkit/pkg/process"
)

// CommitsInfoOptions controls Tree.CommitsInfo.
type CommitsInfoOptions struct {
	// Path is the directory below the commit's root tree.
	Path string
	// MaxConcurrency caps the git invocations in flight. Zero or less uses
	// the repository setting, then GOMAXPROCS.
	MaxConcurrency int
	// Timeout bounds each history lookup when positive.
	Timeout time.Duration
}

// EntryCommitInfo pairs a tree entry with the latest commit that touched it.
type EntryCommitInfo struct {
	Entry     *TreeEntry
	Commit    *Commit
	Submodule *Submodule
}

// CommitsInfo finds, for every entry, the most recent commit reachable from
// commit that modified it. Results are in the order of entries. Lookups run
// on a bounded pool; the first failure is returned once every started
// lookup has finished.
func (t *Tree) CommitsInfo(ctx context.Context, commit *Commit, entries []*TreeEntry, opts CommitsInfoOptions) ([]EntryCommitInfo, error) {
	if len(entries) == 0 {
		return []EntryCommitInfo{}, nil
	}
	repo := commit.repository()

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = repo.maxConcurrency
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var subs map[string]*Submodule
	for _, e := range entries {
		if e.IsCommit() {
			var err error
			if subs, err = commit.Submodules(ctx); err != nil {
				return nil, err
			}
			break
		}
	}

	started := time.Now()
	infos := make([]EntryCommitInfo, len(entries))
	sem := semaphore.NewWeighted(int64(limit))
	var g errgroup.Group

	for i, e := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			_ = g.Wait()
			return nil, errors.Wrap(err, "acquire commits info worker")
		}

		g.Go(func() error {
			defer sem.Release(1)

			c, err := repo.lastCommitFor(ctx, commit.ID, e.Path(), opts.Timeout)
			if err != nil {
				return errors.Wrapf(err, "last commit of %s", e.Path())
			}
			infos[i] = EntryCommitInfo{Entry: e, Commit: c}
			if e.IsCommit() {
				infos[i].Submodule = subs[e.Path()]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	repo.log.WithContext(ctx).Debug("commits info resolved",
		logger.Commit(commit.ID.String()),
		logger.Path(path.Join("/", t.path)),
		logger.Int("entries", len(entries)),
		logger.Int("workers", limit),
		logger.Duration("duration", time.Since(started)),
	)
	return infos, nil
}

// lastCommitFor returns the latest commit reachable from id touching p.
func (r *Repository) lastCommitFor(ctx context.Context, id ObjectID, p string, timeout time.Duration) (*Commit, error) {
	var opts []process.Option
	if timeout > 0 {
		opts = append(opts, process.WithTimeout(timeout))
	}
	res, err := r.runWith(ctx, "log",
		[]string{"log", "-1", "--pretty=format:%H", id.String(), "--", p}, opts...)
	if err != nil {
		return nil, err
	}
	hash := strings.TrimSpace(res.Stdout)
	if hash == "" {
		return nil, errors.NotFound("commit touching "+p, errors.ErrRevisionNotExist)
	}
	return r.CatFileCommit(ctx, hash)
}
