package git

import (
	"sync"
	"sync/atomic"
)

// ObjectCache memoises parsed commits and tags for one repository. Parsed
// objects are immutable and content addressed, so when two goroutines
// compute the same key concurrently the first store wins and the second
// caller gets the winner back.
type ObjectCache struct {
	commits sync.Map
	tags    sync.Map
	size    atomic.Int64
}

// NewObjectCache creates an empty cache.
func NewObjectCache() *ObjectCache {
	return &ObjectCache{}
}

// Commit returns the cached commit for key.
func (c *ObjectCache) Commit(key string) (*Commit, bool) {
	v, ok := c.commits.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Commit), true
}

// StoreCommit inserts commit under key unless a commit is already present,
// and returns the stored value.
func (c *ObjectCache) StoreCommit(key string, commit *Commit) *Commit {
	v, loaded := c.commits.LoadOrStore(key, commit)
	if !loaded {
		c.size.Add(1)
	}
	return v.(*Commit)
}

// Tag returns the cached tag for key.
func (c *ObjectCache) Tag(key string) (*Tag, bool) {
	v, ok := c.tags.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Tag), true
}

// StoreTag inserts tag under key unless a tag is already present, and
// returns the stored value.
func (c *ObjectCache) StoreTag(key string, tag *Tag) *Tag {
	v, loaded := c.tags.LoadOrStore(key, tag)
	if !loaded {
		c.size.Add(1)
	}
	return v.(*Tag)
}

// Len returns the number of cached objects.
func (c *ObjectCache) Len() int {
	return int(c.size.Load())
}

// Reset drops every cached object.
func (c *ObjectCache) Reset() {
	c.commits.Range(func(k, _ any) bool {
		c.commits.Delete(k)
		return true
	})
	c.tags.Range(func(k, _ any) bool {
		c.tags.Delete(k)
		return true
	})
	c.size.Store(0)
}
