// Package git reads commits, tags, trees and diffs from a repository by
// running the git binary and parsing its plumbing output.
package git

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/git/diff"
	"github.com/bravo68web/gitkit/pkg/logger"
	"github.com/bravo68web/gitkit/pkg/process"
)

// DefaultTimeout bounds every git invocation unless overridden.
const DefaultTimeout = time.Minute

// notFoundMarkers are the stderr fragments git prints when a revision,
// object or ref does not exist. Matching is case-insensitive.
var notFoundMarkers = []string{
	"unknown revision",
	"bad revision",
	"bad object",
	"not a valid object",
	"not a tree object",
	"invalid object name",
	"not a valid ref",
	"does not exist",
	"needed a single revision",
}

// Repository is a handle on one repository on disk. It is safe for
// concurrent use.
type Repository struct {
	path           string
	bin            string
	runner         *process.Runner
	cache          *ObjectCache
	timeout        time.Duration
	maxConcurrency int
	env            map[string]string
	log            *logger.Logger

	refsOnce sync.Once
	refs     *gogit.Repository
	refsErr  error
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithBinary sets the git executable, "git" by default.
func WithBinary(bin string) RepositoryOption {
	return func(r *Repository) {
		r.bin = bin
	}
}

// WithRunner sets the process runner used for every invocation.
func WithRunner(runner *process.Runner) RepositoryOption {
	return func(r *Repository) {
		r.runner = runner
	}
}

// WithCache shares an object cache with the repository.
func WithCache(cache *ObjectCache) RepositoryOption {
	return func(r *Repository) {
		r.cache = cache
	}
}

// WithTimeout sets the per-invocation kill deadline. Zero disables it.
func WithTimeout(d time.Duration) RepositoryOption {
	return func(r *Repository) {
		r.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) RepositoryOption {
	return func(r *Repository) {
		r.log = l
	}
}

// WithMaxConcurrency sets the default worker count of batch operations.
func WithMaxConcurrency(n int) RepositoryOption {
	return func(r *Repository) {
		r.maxConcurrency = n
	}
}

// WithEnv adds environment variables to every invocation.
func WithEnv(env map[string]string) RepositoryOption {
	return func(r *Repository) {
		for k, v := range env {
			r.env[k] = v
		}
	}
}

// Open returns a handle on the repository at path, which may be a bare
// repository or a work tree.
func Open(path string, opts ...RepositoryOption) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.BadRequest("invalid repository path "+path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, errors.NotFound("repository "+path, nil)
	}

	r := &Repository{
		path:    abs,
		bin:     "git",
		timeout: DefaultTimeout,
		env: map[string]string{
			"LC_ALL":              "C",
			"GIT_TERMINAL_PROMPT": "0",
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runner == nil {
		r.runner = process.NewRunner()
	}
	if r.cache == nil {
		r.cache = NewObjectCache()
	}
	if r.log == nil {
		r.log = logger.Get()
	}
	r.log = r.log.Named("git").WithFields(logger.Repository(abs))

	return r, nil
}

// Path returns the absolute path of the repository.
func (r *Repository) Path() string {
	return r.path
}

// Cache returns the repository's object cache.
func (r *Repository) Cache() *ObjectCache {
	return r.cache
}

// run executes git with args in the repository and classifies failures.
// op names the subcommand in errors.
func (r *Repository) run(ctx context.Context, op string, args ...string) (*process.Result, error) {
	return r.runWith(ctx, op, args)
}

func (r *Repository) runWith(ctx context.Context, op string, args []string, opts ...process.Option) (*process.Result, error) {
	opts = append([]process.Option{
		process.WithSeparator(process.DefaultSeparator),
		process.WithDir(r.path),
		process.WithEnv(r.env),
		process.WithTimeout(r.timeout),
		process.WithLogger(r.log),
	}, opts...)

	res, err := r.runner.Run(ctx, process.New(r.bin, args...), opts...)
	if err != nil {
		if errors.Is(err, process.ErrStartFailed) {
			return nil, errors.GitError(op, "", err)
		}
		return nil, errors.Wrapf(err, "git %s", op)
	}
	if res.TimedOut() {
		return nil, errors.Timeout(op)
	}
	if !res.Success() || strings.TrimSpace(res.Stderr) != "" {
		return nil, classifyFailure(op, res)
	}
	return res, nil
}

func classifyFailure(op string, res *process.Result) error {
	lower := strings.ToLower(res.Stderr)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return errors.NotFound("object for git "+op, nil).
				WithDetails(map[string]any{"stderr": res.Stderr})
		}
	}
	return errors.GitError(op, res.Stderr, fmt.Errorf("exit status %d", res.Code()))
}

// checkRev rejects revisions git would read as options.
func checkRev(rev string) error {
	if rev == "" {
		return errors.ValidationError("rev", "revision is empty")
	}
	if strings.HasPrefix(rev, "-") {
		return errors.ValidationError("rev", fmt.Sprintf("invalid revision %q", rev))
	}
	return nil
}

// RevParse resolves rev to an object ID.
func (r *Repository) RevParse(ctx context.Context, rev string) (ObjectID, error) {
	if err := checkRev(rev); err != nil {
		return EmptyID, err
	}
	res, err := r.run(ctx, "rev-parse", "rev-parse", "--verify", rev)
	if err != nil {
		if errors.IsNotFound(err) {
			return EmptyID, errors.NotFound("revision "+rev, errors.ErrRevisionNotExist).
				WithDetails(map[string]any{"stderr": errors.Stderr(err)})
		}
		return EmptyID, err
	}
	return NewIDFromString(strings.TrimSpace(res.Stdout))
}

// CatFileType returns the kind of the object rev names.
func (r *Repository) CatFileType(ctx context.Context, rev string) (ObjectKind, error) {
	if err := checkRev(rev); err != nil {
		return 0, err
	}
	res, err := r.run(ctx, "cat-file", "cat-file", "-t", rev)
	if err != nil {
		return 0, err
	}
	return ParseObjectKind(strings.TrimSpace(res.Stdout))
}

// CatFileCommit loads the commit rev resolves to. Tags are peeled. Commits
// are cached by ID, so a full ID that is already cached costs no
// invocation at all.
func (r *Repository) CatFileCommit(ctx context.Context, rev string) (*Commit, error) {
	if id, err := NewIDFromString(rev); err == nil {
		if c, ok := r.cache.Commit(id.String()); ok {
			return c, nil
		}
	}

	id, err := r.RevParse(ctx, rev+"^{commit}")
	if err != nil {
		return nil, err
	}
	key := id.String()
	if c, ok := r.cache.Commit(key); ok {
		return c, nil
	}

	res, err := r.run(ctx, "cat-file", "cat-file", "commit", key)
	if err != nil {
		return nil, err
	}
	c, err := ParseCommit([]byte(res.Stdout))
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.repo = r
	return r.cache.StoreCommit(key, c), nil
}

// BranchCommit loads the commit at the tip of branch.
func (r *Repository) BranchCommit(ctx context.Context, branch string) (*Commit, error) {
	return r.CatFileCommit(ctx, plumbing.NewBranchReferenceName(branch).String())
}

// TagCommit loads the commit tag points at.
func (r *Repository) TagCommit(ctx context.Context, tag string) (*Commit, error) {
	return r.CatFileCommit(ctx, plumbing.NewTagReferenceName(tag).String())
}

// GetTag loads the tag object id. An id naming anything other than a tag
// object yields a lightweight tag pointing at that object.
func (r *Repository) GetTag(ctx context.Context, id ObjectID) (*Tag, error) {
	key := id.String()
	if t, ok := r.cache.Tag(key); ok {
		return t, nil
	}

	kind, err := r.CatFileType(ctx, key)
	if err != nil {
		return nil, err
	}

	var tag *Tag
	if kind != ObjectTag {
		tag = &Tag{ID: id, TargetID: id, TargetKind: kind, Kind: kind}
	} else {
		res, err := r.run(ctx, "cat-file", "cat-file", "tag", key)
		if err != nil {
			return nil, err
		}
		tag, err = ParseTag([]byte(res.Stdout))
		if err != nil {
			return nil, err
		}
		tag.ID = id
	}
	tag.repo = r
	return r.cache.StoreTag(key, tag), nil
}

// Tag loads the tag named name.
func (r *Repository) Tag(ctx context.Context, name string) (*Tag, error) {
	if err := checkRev(name); err != nil {
		return nil, err
	}
	refspec := plumbing.NewTagReferenceName(name).String()
	res, err := r.run(ctx, "show-ref", "show-ref", "--verify", "--hash", refspec)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound("tag "+name, errors.ErrRevisionNotExist)
		}
		return nil, err
	}
	id, err := NewIDFromString(strings.TrimSpace(res.Stdout))
	if err != nil {
		return nil, err
	}

	t, err := r.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	named := *t
	if named.Name == "" {
		named.Name = name
	}
	named.Refspec = refspec
	return &named, nil
}

func (r *Repository) openRefs() (*gogit.Repository, error) {
	r.refsOnce.Do(func() {
		r.refs, r.refsErr = gogit.PlainOpen(r.path)
		if r.refsErr != nil {
			if errors.Is(r.refsErr, gogit.ErrRepositoryNotExists) {
				r.refsErr = errors.NotFound("repository "+r.path, nil)
				return
			}
			r.refsErr = errors.Wrap(r.refsErr, "open repository")
		}
	})
	return r.refs, r.refsErr
}

// Branches lists the local branch names in ascending order.
func (r *Repository) Branches(ctx context.Context) ([]string, error) {
	repo, err := r.openRefs()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Branches()
	if err != nil {
		return nil, errors.Wrap(err, "list branches")
	}
	return collectRefNames(ctx, iter.ForEach)
}

// Tags lists the tag names in ascending order.
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	repo, err := r.openRefs()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "list tags")
	}
	return collectRefNames(ctx, iter.ForEach)
}

func collectRefNames(ctx context.Context, forEach func(func(*plumbing.Reference) error) error) ([]string, error) {
	var names []string
	err := forEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "iterate references")
	}
	sort.Strings(names)
	return names, nil
}

// HeadBranch returns the branch HEAD points at.
func (r *Repository) HeadBranch(ctx context.Context) (string, error) {
	repo, err := r.openRefs()
	if err != nil {
		return "", err
	}
	ref, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", errors.NotFound("HEAD", errors.ErrRevisionNotExist)
		}
		return "", errors.Wrap(err, "read HEAD")
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", errors.NotFound("HEAD branch", errors.ErrRevisionNotExist)
	}
	return ref.Target().Short(), nil
}

// LsTree loads the root tree of rev with its entries listed.
func (r *Repository) LsTree(ctx context.Context, rev string) (*Tree, error) {
	id, err := r.RevParse(ctx, rev+"^{tree}")
	if err != nil {
		return nil, err
	}
	t := newTree(r, id, nil, "")
	if _, err := t.Entries(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// LogOptions narrows a history walk.
type LogOptions struct {
	MaxCount         int
	Skip             int
	Since            time.Time
	Grep             string
	RegexpIgnoreCase bool
	// Path limits the walk to commits touching it.
	Path string
}

// Log returns the commits reachable from rev, newest first.
func (r *Repository) Log(ctx context.Context, rev string, opts LogOptions) ([]*Commit, error) {
	if err := checkRev(rev); err != nil {
		return nil, err
	}

	args := []string{"log", "--pretty=format:%H"}
	if opts.MaxCount > 0 {
		args = append(args, "--max-count="+strconv.Itoa(opts.MaxCount))
	}
	if opts.Skip > 0 {
		args = append(args, "--skip="+strconv.Itoa(opts.Skip))
	}
	if !opts.Since.IsZero() {
		args = append(args, "--since="+opts.Since.Format(time.RFC3339))
	}
	if opts.Grep != "" {
		args = append(args, "--grep="+opts.Grep)
	}
	if opts.RegexpIgnoreCase {
		args = append(args, "--regexp-ignore-case")
	}
	args = append(args, rev, "--")
	if opts.Path != "" {
		args = append(args, opts.Path)
	}

	res, err := r.runWith(ctx, "log", args)
	if err != nil {
		return nil, err
	}
	return r.commitsFromIDs(ctx, res.Stdout)
}

func (r *Repository) commitsFromIDs(ctx context.Context, out string) ([]*Commit, error) {
	var commits []*Commit
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := r.CatFileCommit(ctx, strings.TrimSpace(line))
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

// CommitByRevision returns the latest commit reachable from rev that
// touches path, or the commit rev itself when path is empty.
func (r *Repository) CommitByRevision(ctx context.Context, rev, path string) (*Commit, error) {
	commits, err := r.Log(ctx, rev, LogOptions{MaxCount: 1, Path: path})
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("commit for %s at %s", path, rev), errors.ErrRevisionNotExist)
	}
	return commits[0], nil
}

// CommitsByPage returns one page of the history of rev. Pages start at 1.
func (r *Repository) CommitsByPage(ctx context.Context, rev string, page, size int) ([]*Commit, error) {
	if page < 1 || size < 1 {
		return nil, errors.ValidationError("page", "page and size must be positive")
	}
	return r.Log(ctx, rev, LogOptions{MaxCount: size, Skip: (page - 1) * size})
}

// RevListCount counts the commits reachable from rev that touch path.
func (r *Repository) RevListCount(ctx context.Context, rev, path string) (int64, error) {
	if err := checkRev(rev); err != nil {
		return 0, err
	}
	args := []string{"rev-list", "--count", rev, "--"}
	if path != "" {
		args = append(args, path)
	}
	res, err := r.runWith(ctx, "rev-list", args)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
	if err != nil {
		return 0, errors.Malformed("commit count", err)
	}
	return n, nil
}

// DiffOptions controls Diff. Zero limits are unlimited.
type DiffOptions struct {
	// Base compares against this revision instead of the first parent.
	Base         string
	MaxFiles     int
	MaxFileLines int
	MaxLineChars int
	// Timeout overrides the repository timeout when positive.
	Timeout time.Duration
}

// Diff parses the changes rev introduces.
func (r *Repository) Diff(ctx context.Context, rev string, opts DiffOptions) (*diff.Diff, error) {
	args, err := r.diffArgs(ctx, rev, opts.Base)
	if err != nil {
		return nil, err
	}

	var runOpts []process.Option
	if opts.Timeout > 0 {
		runOpts = append(runOpts, process.WithTimeout(opts.Timeout))
	}
	res, err := r.runWith(ctx, args[0], args, runOpts...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return &diff.Diff{}, nil
	}
	return diff.NewParser(opts.MaxFiles, opts.MaxFileLines, opts.MaxLineChars).Parse(res.Stdout, "\n")
}

func (r *Repository) diffArgs(ctx context.Context, rev, base string) ([]string, error) {
	commit, err := r.CatFileCommit(ctx, rev)
	if err != nil {
		return nil, err
	}
	id := commit.ID.String()

	switch {
	case base != "":
		if err := checkRev(base); err != nil {
			return nil, err
		}
		return []string{"diff", "--full-index", "-M", base, id}, nil
	case commit.ParentsCount() == 0:
		return []string{"show", "--full-index", id}, nil
	default:
		return []string{"diff", "--full-index", "-M", commit.ParentIDs[0].String(), id}, nil
	}
}

// RawDiffFormat selects the output of RawDiff.
type RawDiffFormat string

const (
	RawDiffNormal RawDiffFormat = "diff"
	RawDiffPatch  RawDiffFormat = "patch"
)

// RawDiff streams the unparsed changes of rev to w, either as a plain diff
// or as a mailbox patch. Output already written stays written if git fails
// part way.
func (r *Repository) RawDiff(ctx context.Context, rev string, format RawDiffFormat, w io.Writer) error {
	var args []string
	switch format {
	case RawDiffNormal:
		var err error
		if args, err = r.diffArgs(ctx, rev, ""); err != nil {
			return err
		}
	case RawDiffPatch:
		commit, err := r.CatFileCommit(ctx, rev)
		if err != nil {
			return err
		}
		args = []string{"format-patch", "--full-index", "--no-signature", "--stdout", "-1", commit.ID.String()}
	default:
		return errors.ValidationError("format", fmt.Sprintf("unknown raw diff format %q", format))
	}

	lines := make(chan string)
	written := make(chan error, 1)
	go func() {
		var werr error
		for line := range lines {
			if werr != nil {
				continue
			}
			_, werr = io.WriteString(w, line+"\n")
		}
		written <- werr
	}()

	_, err := r.runWith(ctx, args[0], args, process.WithStdoutLines(lines), process.WithoutStdoutCapture())
	close(lines)
	werr := <-written

	if err != nil {
		return err
	}
	if werr != nil {
		return errors.Wrap(werr, "write raw diff")
	}
	return nil
}
