package git

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// Tree is a directory snapshot. Its entries are listed once and cached.
type Tree struct {
	ID ObjectID

	repo   *Repository
	parent *Tree
	path   string

	mu       sync.Mutex
	entries  []*TreeEntry
	loaded   bool
	subtrees map[string]*Tree
}

func newTree(repo *Repository, id ObjectID, parent *Tree, p string) *Tree {
	return &Tree{ID: id, repo: repo, parent: parent, path: p}
}

// Path returns the tree's path from the root; the root tree has "".
func (t *Tree) Path() string {
	return t.path
}

// Parent returns the containing tree, or nil for a root tree.
func (t *Tree) Parent() *Tree {
	return t.parent
}

// Entries lists the tree with "git ls-tree".
func (t *Tree) Entries(ctx context.Context) ([]*TreeEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded {
		return t.entries, nil
	}
	if t.repo == nil {
		return nil, errors.InternalError("tree is not bound to a repository", nil)
	}

	res, err := t.repo.run(ctx, "ls-tree", "ls-tree", t.ID.String())
	if err != nil {
		return nil, err
	}
	entries, err := ParseTree(t, []byte(res.Stdout))
	if err != nil {
		return nil, err
	}

	t.entries = entries
	t.loaded = true
	return t.entries, nil
}

// Subtree walks subpath from t. An empty subpath returns t.
func (t *Tree) Subtree(ctx context.Context, subpath string) (*Tree, error) {
	subpath = cleanTreePath(subpath)
	if subpath == "" {
		return t, nil
	}

	cur := t
	for _, name := range strings.Split(subpath, "/") {
		entry, err := cur.entry(ctx, name)
		if err != nil {
			return nil, err
		}
		if !entry.IsTree() {
			return nil, errors.NotFound("tree "+subpath, errors.ErrNotFound)
		}
		cur = cur.child(entry)
	}
	return cur, nil
}

// TreeEntry returns the entry at subpath. An empty subpath yields an entry
// describing t itself.
func (t *Tree) TreeEntry(ctx context.Context, subpath string) (*TreeEntry, error) {
	subpath = cleanTreePath(subpath)
	if subpath == "" {
		return &TreeEntry{mode: EntryTree, id: t.ID, parent: t.parent, name: path.Base("/" + t.path)}, nil
	}

	dir, name := path.Split(subpath)
	tree, err := t.Subtree(ctx, dir)
	if err != nil {
		return nil, err
	}
	entry, err := tree.entry(ctx, name)
	if err != nil {
		return nil, errors.NotFound("tree entry "+subpath, errors.ErrNotFound)
	}
	return entry, nil
}

// Blob returns the blob at subpath.
func (t *Tree) Blob(ctx context.Context, subpath string) (*Blob, error) {
	entry, err := t.TreeEntry(ctx, subpath)
	if err != nil {
		return nil, err
	}
	if entry.IsTree() || entry.IsCommit() {
		return nil, errors.NotFound("blob "+subpath, errors.ErrNotFound)
	}
	return entry.Blob(), nil
}

func (t *Tree) entry(ctx context.Context, name string) (*TreeEntry, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name == name {
			return e, nil
		}
	}
	return nil, errors.NotFound("tree entry "+path.Join(t.path, name), errors.ErrNotFound)
}

// child returns the cached subtree for a tree entry of t.
func (t *Tree) child(e *TreeEntry) *Tree {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subtrees == nil {
		t.subtrees = make(map[string]*Tree)
	}
	if sub, ok := t.subtrees[e.name]; ok {
		return sub
	}
	sub := newTree(t.repo, e.id, t, e.Path())
	t.subtrees[e.name] = sub
	return sub
}

func cleanTreePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}
