package git

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectCacheFirstWriterWins(t *testing.T) {
	cache := NewObjectCache()
	first := &Commit{Message: "first"}
	second := &Commit{Message: "second"}

	assert.Same(t, first, cache.StoreCommit(commitID, first))
	assert.Same(t, first, cache.StoreCommit(commitID, second))

	got, ok := cache.Commit(commitID)
	assert.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, cache.Len())

	_, ok = cache.Commit(treeID)
	assert.False(t, ok)
}

func TestObjectCacheConcurrentStores(t *testing.T) {
	cache := NewObjectCache()

	var wg sync.WaitGroup
	winners := make([]*Tag, 32)
	for i := range winners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			winners[i] = cache.StoreTag(commitID, &Tag{Name: "v1"})
		}()
	}
	wg.Wait()

	for _, w := range winners {
		assert.Same(t, winners[0], w)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestObjectCacheReset(t *testing.T) {
	cache := NewObjectCache()
	cache.StoreCommit(commitID, &Commit{})
	cache.StoreTag(commitID, &Tag{})
	assert.Equal(t, 2, cache.Len())

	cache.Reset()
	assert.Zero(t, cache.Len())
	_, ok := cache.Tag(commitID)
	assert.False(t, ok)
}
