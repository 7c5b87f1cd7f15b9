package git

import (
	"context"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// Tag is an annotated tag object, or a lightweight tag pointing straight at
// a commit, in which case ID equals TargetID and Tagger is nil.
type Tag struct {
	ID         ObjectID   `json:"id"`
	TargetID   ObjectID   `json:"target_id"`
	TargetKind ObjectKind `json:"target_kind"`
	Kind       ObjectKind `json:"kind"`
	Name       string     `json:"name"`
	Tagger     *Signature `json:"tagger,omitempty"`
	Message    string     `json:"message"`
	Refspec    string     `json:"refspec,omitempty"`

	repo *Repository
}

// ParseTag parses the body printed by "git cat-file tag".
func ParseTag(data []byte) (*Tag, error) {
	header, message := splitObject(data)

	t := &Tag{Kind: ObjectTag, Message: string(message)}
	err := walkHeader(header, func(key, value string) error {
		switch key {
		case "object", "tree":
			id, err := NewIDFromString(value)
			if err != nil {
				return err
			}
			t.TargetID = id
		case "type":
			kind, err := ParseObjectKind(value)
			if err != nil {
				return err
			}
			t.TargetKind = kind
		case "tag":
			t.Name = value
		case "tagger", "author":
			sig, err := ParseSignature(value)
			if err != nil {
				return err
			}
			t.Tagger = sig
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse tag")
	}
	return t, nil
}

// Commit loads the commit the tag points at.
func (t *Tag) Commit(ctx context.Context) (*Commit, error) {
	if t.repo == nil {
		panic("git: tag is not bound to a repository")
	}
	if t.TargetKind != ObjectCommit {
		return nil, errors.NotFound("commit for tag "+t.Name, errors.ErrNotFound)
	}
	return t.repo.CatFileCommit(ctx, t.TargetID.String())
}
