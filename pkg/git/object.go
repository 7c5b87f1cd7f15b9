package git

import (
	"bytes"
	"strings"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// ObjectKind is one of the four git object types.
type ObjectKind int

const (
	ObjectCommit ObjectKind = iota + 1
	ObjectTree
	ObjectBlob
	ObjectTag
)

var objectKindNames = map[ObjectKind]string{
	ObjectCommit: "commit",
	ObjectTree:   "tree",
	ObjectBlob:   "blob",
	ObjectTag:    "tag",
}

func (k ObjectKind) String() string {
	if name, ok := objectKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseObjectKind parses the type names printed by "git cat-file -t".
func ParseObjectKind(s string) (ObjectKind, error) {
	s = strings.TrimSpace(s)
	for kind, name := range objectKindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, errors.Malformedf("unknown object type %q", s)
}

func (k ObjectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ObjectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// splitObject separates the header block of a commit or tag body from its
// message at the first blank line. A body that starts with the blank line
// has no header.
func splitObject(data []byte) (header, message []byte) {
	if len(data) > 0 && data[0] == '\n' {
		return nil, data[1:]
	}
	i := bytes.Index(data, []byte("\n\n"))
	if i < 0 {
		return data, nil
	}
	return data[:i], data[i+2:]
}

// walkHeader calls fn for every "key value" line of header. Lines without a
// space, and continuation lines of multi-line values, are skipped.
func walkHeader(header []byte, fn func(key, value string) error) error {
	for _, line := range strings.Split(string(header), "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok || key == "" {
			continue
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}
