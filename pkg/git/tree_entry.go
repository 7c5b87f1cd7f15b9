package git

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// EntryMode is the file mode of a tree entry.
type EntryMode int

const (
	EntryTree    EntryMode = 0o040000
	EntryBlob    EntryMode = 0o100644
	EntryExec    EntryMode = 0o100755
	EntrySymlink EntryMode = 0o120000
	EntryCommit  EntryMode = 0o160000
)

// entryModes maps the modes ls-tree prints to their canonical mode.
// 100664 is a legacy group-writable blob mode still found in old trees.
var entryModes = map[string]EntryMode{
	"040000": EntryTree,
	"100644": EntryBlob,
	"100664": EntryBlob,
	"100755": EntryExec,
	"120000": EntrySymlink,
	"160000": EntryCommit,
}

func (m EntryMode) String() string {
	return strconv.FormatInt(int64(m), 8)
}

// Kind returns the object kind stored under the mode.
func (m EntryMode) Kind() ObjectKind {
	switch m {
	case EntryTree:
		return ObjectTree
	case EntryCommit:
		return ObjectCommit
	default:
		return ObjectBlob
	}
}

// TreeEntry is one line of a tree listing.
type TreeEntry struct {
	mode   EntryMode
	id     ObjectID
	name   string
	parent *Tree

	sizeMu     sync.Mutex
	sizeLoaded bool
	size       int64
}

func (e *TreeEntry) Mode() EntryMode  { return e.mode }
func (e *TreeEntry) Kind() ObjectKind { return e.mode.Kind() }
func (e *TreeEntry) ID() ObjectID     { return e.id }
func (e *TreeEntry) Name() string     { return e.name }

// Path returns the entry's path from the root tree.
func (e *TreeEntry) Path() string {
	if e.parent == nil || e.parent.path == "" {
		return e.name
	}
	return path.Join(e.parent.path, e.name)
}

func (e *TreeEntry) IsTree() bool    { return e.mode == EntryTree }
func (e *TreeEntry) IsBlob() bool    { return e.mode == EntryBlob }
func (e *TreeEntry) IsExec() bool    { return e.mode == EntryExec }
func (e *TreeEntry) IsSymlink() bool { return e.mode == EntrySymlink }
func (e *TreeEntry) IsCommit() bool  { return e.mode == EntryCommit }

// Blob returns the entry as a blob. It is only meaningful for blob, exec
// and symlink entries.
func (e *TreeEntry) Blob() *Blob {
	return &Blob{entry: e}
}

// Size returns the object size reported by "git cat-file -s". A successful
// lookup is cached on the entry; failures are retried on the next call.
func (e *TreeEntry) Size(ctx context.Context) (int64, error) {
	if e.parent == nil || e.parent.repo == nil {
		return 0, errors.InternalError("tree entry is not bound to a repository", nil)
	}

	e.sizeMu.Lock()
	defer e.sizeMu.Unlock()
	if e.sizeLoaded {
		return e.size, nil
	}

	res, err := e.parent.repo.run(ctx, "cat-file", "cat-file", "-s", e.id.String())
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
	if err != nil {
		return 0, errors.Malformed("object size", err)
	}
	e.size, e.sizeLoaded = size, true
	return size, nil
}

// ParseTree parses "git ls-tree" output into entries owned by parent,
// ordered by SortEntries.
func ParseTree(parent *Tree, data []byte) ([]*TreeEntry, error) {
	var entries []*TreeEntry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseTreeLine(line)
		if err != nil {
			return nil, err
		}
		e.parent = parent
		entries = append(entries, e)
	}
	SortEntries(entries)
	return entries, nil
}

const treeLineFormat = "<mode> <type> <id>\\t<name>, e.g. \"100644 blob <id>\\t.DS_Store\""

// parseTreeLine splits a listing line into its four fields. The name is
// everything after the tab, so names containing spaces survive; lines
// without a tab fall back to plain whitespace splitting.
func parseTreeLine(line string) (*TreeEntry, error) {
	var fields []string
	if meta, name, ok := strings.Cut(line, "\t"); ok {
		fields = append(strings.Fields(meta), name)
		if name == "" {
			fields = fields[:len(fields)-1]
		}
	} else {
		fields = strings.Fields(line)
	}
	if len(fields) != 4 {
		return nil, errors.Malformedf("tree line %q has %d fields, expected %s", line, len(fields), treeLineFormat)
	}

	mode, ok := entryModes[fields[0]]
	if !ok {
		return nil, errors.Malformedf("tree line %q has unknown mode %q, expected %s", line, fields[0], treeLineFormat)
	}
	if fields[1] != mode.Kind().String() {
		return nil, errors.Malformedf("tree line %q: type %q does not match mode %s", line, fields[1], fields[0])
	}

	id, err := NewIDFromString(fields[2])
	if err != nil {
		return nil, errors.Wrapf(err, "tree line %q", line)
	}

	name := fields[3]
	if strings.HasPrefix(name, `"`) {
		if unquoted, err := strconv.Unquote(name); err == nil {
			name = unquoted
		}
	}
	if strings.Contains(name, "/") {
		return nil, errors.Malformedf("tree line %q: entry name contains a path separator", line)
	}

	return &TreeEntry{mode: mode, id: id, name: name}, nil
}

// SortEntries orders entries so that files, executables and symlinks come
// before trees and submodules, then by name.
func SortEntries(entries []*TreeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return lessEntry(entries[i], entries[j])
	})
}

func lessEntry(a, b *TreeEntry) bool {
	ab, bb := entryBucket(a), entryBucket(b)
	if ab != bb {
		return ab < bb
	}
	return a.name < b.name
}

func entryBucket(e *TreeEntry) int {
	if e.IsTree() || e.IsCommit() {
		return 1
	}
	return 0
}
