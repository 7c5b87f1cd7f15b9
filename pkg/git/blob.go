package git

import (
	"bytes"
	"context"
	"io"

	"github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/process"
)

// Blob is the content of a file-like tree entry.
type Blob struct {
	entry *TreeEntry
}

// Entry returns the tree entry the blob was read from.
func (b *Blob) Entry() *TreeEntry {
	return b.entry
}

// Bytes reads the whole blob with "git cat-file blob".
func (b *Blob) Bytes(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Pipeline(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pipeline streams the blob content to w as git produces it. Bytes already
// written stay written if git fails part way.
func (b *Blob) Pipeline(ctx context.Context, w io.Writer) error {
	if b.entry.parent == nil || b.entry.parent.repo == nil {
		return errors.InternalError("blob is not bound to a repository", nil)
	}
	_, err := b.entry.parent.repo.runWith(ctx, "cat-file",
		[]string{"cat-file", "blob", b.entry.id.String()}, process.WithStdout(w))
	return err
}
