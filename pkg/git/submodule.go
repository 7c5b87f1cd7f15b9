package git

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5/config"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// Submodule is a .gitmodules declaration resolved against one commit.
type Submodule struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	URL    string   `json:"url"`
	Commit ObjectID `json:"commit"`
}

// ParseGitmodules reads the submodule declarations of a .gitmodules file,
// keyed by path.
func ParseGitmodules(data []byte) (map[string]*Submodule, error) {
	modules := config.NewModules()
	if err := modules.Unmarshal(data); err != nil {
		return nil, errors.Malformed(".gitmodules", err)
	}

	subs := make(map[string]*Submodule, len(modules.Submodules))
	for name, m := range modules.Submodules {
		p := strings.Trim(m.Path, "/")
		if p == "" {
			p = name
		}
		subs[p] = &Submodule{Name: name, Path: p, URL: m.URL}
	}
	return subs, nil
}

// Submodules returns the submodules declared at this commit, keyed by path,
// with each one's pinned commit resolved. The result is computed once.
func (c *Commit) Submodules(ctx context.Context) (map[string]*Submodule, error) {
	c.mu.Lock()
	cached := c.submodules
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	entry, err := c.TreeEntry(ctx, ".gitmodules")
	if err != nil {
		if errors.IsNotFound(err) {
			return map[string]*Submodule{}, nil
		}
		return nil, err
	}
	data, err := entry.Blob().Bytes(ctx)
	if err != nil {
		return nil, err
	}

	subs, err := ParseGitmodules(data)
	if err != nil {
		return nil, err
	}
	for p, sub := range subs {
		id, err := c.repository().RevParse(ctx, c.ID.String()+":"+p)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		sub.Commit = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submodules == nil {
		c.submodules = subs
	}
	return c.submodules, nil
}

// Submodule returns the submodule declared at path.
func (c *Commit) Submodule(ctx context.Context, path string) (*Submodule, error) {
	subs, err := c.Submodules(ctx)
	if err != nil {
		return nil, err
	}
	sub, ok := subs[strings.Trim(path, "/")]
	if !ok {
		return nil, errors.NotFound("submodule "+path, errors.ErrSubmoduleNotExist)
	}
	return sub, nil
}
