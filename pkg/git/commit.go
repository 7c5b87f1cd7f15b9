package git

import (
	"context"
	"strings"
	"sync"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// Commit is a parsed commit object. Its tree is loaded on demand through the
// repository it was read from.
type Commit struct {
	ID        ObjectID   `json:"id"`
	TreeID    ObjectID   `json:"tree_id"`
	ParentIDs []ObjectID `json:"parent_ids"`
	Author    *Signature `json:"author"`
	Committer *Signature `json:"committer"`
	Message   string     `json:"message"`

	repo *Repository

	mu         sync.Mutex
	tree       *Tree
	submodules map[string]*Submodule
}

// ParseCommit parses the body printed by "git cat-file commit".
func ParseCommit(data []byte) (*Commit, error) {
	header, message := splitObject(data)

	c := &Commit{Message: string(message)}
	err := walkHeader(header, func(key, value string) error {
		switch key {
		case "tree", "object":
			id, err := NewIDFromString(value)
			if err != nil {
				return err
			}
			c.TreeID = id
		case "parent":
			id, err := NewIDFromString(value)
			if err != nil {
				return err
			}
			c.ParentIDs = append(c.ParentIDs, id)
		case "author", "tagger":
			sig, err := ParseSignature(value)
			if err != nil {
				return err
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(value)
			if err != nil {
				return err
			}
			c.Committer = sig
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse commit")
	}
	return c, nil
}

// Summary returns the first line of the message.
func (c *Commit) Summary() string {
	summary, _, _ := strings.Cut(c.Message, "\n")
	return summary
}

// ParentsCount returns the number of parents.
func (c *Commit) ParentsCount() int {
	return len(c.ParentIDs)
}

// ParentID returns the ID of the n-th parent, 0 being the mainline parent.
func (c *Commit) ParentID(n int) (ObjectID, error) {
	if n < 0 || n >= len(c.ParentIDs) {
		return EmptyID, errors.ErrParentNotExist
	}
	return c.ParentIDs[n], nil
}

// Parent loads the n-th parent commit.
func (c *Commit) Parent(ctx context.Context, n int) (*Commit, error) {
	id, err := c.ParentID(n)
	if err != nil {
		return nil, err
	}
	return c.repository().CatFileCommit(ctx, id.String())
}

// Tree returns the root tree of the commit. The same *Tree is returned on
// every call so its entry listing is fetched once.
func (c *Commit) Tree() *Tree {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tree == nil {
		c.tree = newTree(c.repository(), c.TreeID, nil, "")
	}
	return c.tree
}

// TreeEntry looks up the entry at subpath in the commit's tree.
func (c *Commit) TreeEntry(ctx context.Context, subpath string) (*TreeEntry, error) {
	return c.Tree().TreeEntry(ctx, subpath)
}

// Blob looks up the blob at subpath in the commit's tree.
func (c *Commit) Blob(ctx context.Context, subpath string) (*Blob, error) {
	return c.Tree().Blob(ctx, subpath)
}

// CommitsInfo finds the latest commit touching each entry of the tree at
// opts.Path.
func (c *Commit) CommitsInfo(ctx context.Context, opts CommitsInfoOptions) ([]EntryCommitInfo, error) {
	tree, err := c.Tree().Subtree(ctx, opts.Path)
	if err != nil {
		return nil, err
	}
	entries, err := tree.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return tree.CommitsInfo(ctx, c, entries, opts)
}

func (c *Commit) repository() *Repository {
	if c.repo == nil {
		panic("git: commit is not bound to a repository")
	}
	return c.repo
}
