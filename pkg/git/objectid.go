package git

import (
	"encoding/hex"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// IDSize is the length in bytes of a SHA-1 object ID.
const IDSize = 20

// ObjectID is a content-addressed SHA-1 object name. The zero value is EmptyID.
type ObjectID [IDSize]byte

// EmptyID is the all-zero ID git prints for a missing side of a change.
var EmptyID ObjectID

// NewID builds an ObjectID from exactly IDSize raw bytes.
func NewID(b []byte) (ObjectID, error) {
	var id ObjectID
	if len(b) != IDSize {
		return id, errors.Malformedf("object id must be %d bytes, got %d", IDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// NewIDFromString parses the 40-character lowercase hex form of an
// ObjectID. Surrounding whitespace and uppercase digits are rejected.
func NewIDFromString(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != IDSize*2 {
		return id, errors.Malformedf("object id must be %d hex characters, got %q", IDSize*2, s)
	}
	for i := 0; i < len(s); i++ {
		if !isLowerHex(s[i]) {
			return id, errors.Malformedf("object id %q has invalid character %q", s, s[i])
		}
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return EmptyID, errors.Malformed("object id "+s, err)
	}
	return id, nil
}

func isLowerHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f')
}

// MustIDFromString is NewIDFromString for constants; it panics on bad input.
func MustIDFromString(s string) ObjectID {
	id, err := NewIDFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromHash converts a go-git hash.
func FromHash(h plumbing.Hash) ObjectID {
	return ObjectID(h)
}

// Hash converts the ID to a go-git hash.
func (id ObjectID) Hash() plumbing.Hash {
	return plumbing.Hash(id)
}

func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the abbreviated 7-character form.
func (id ObjectID) Short() string {
	return id.String()[:7]
}

// Bytes returns a copy of the raw bytes.
func (id ObjectID) Bytes() []byte {
	b := make([]byte, IDSize)
	copy(b, id[:])
	return b
}

func (id ObjectID) Equal(other ObjectID) bool {
	return id == other
}

func (id ObjectID) IsZero() bool {
	return id == EmptyID
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := NewIDFromString(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
