package diff

import (
	"github.com/bravo68web/gitkit/pkg/errors"
)

// Line finds the added or deleted line with the given one-based line number
// on its own side of the diff. Added and deleted lines only carry the line
// number of their own side, so the numbering is rebuilt from the offset
// between the two sides at the closest preceding context line.
//
// It returns nil when no line matches, and ErrDiffLine when the run of
// additions and deletions around the match is unbalanced.
func (s *Section) Line(typ LineType, line int) (*Line, error) {
	var (
		difference int
		addCount   int
		delCount   int
		matched    *Line
	)

	for _, l := range s.Lines {
		switch l.Type {
		case LineAdd:
			addCount++
		case LineDelete:
			delCount++
		default:
			if matched != nil {
				return balanced(matched, addCount, delCount)
			}
			difference = l.RightLine - l.LeftLine
			addCount = 0
			delCount = 0
		}

		if l.Type != typ {
			continue
		}
		switch typ {
		case LineDelete:
			if l.RightLine == 0 && l.LeftLine == line-difference {
				matched = l
			}
		case LineAdd:
			if l.LeftLine == 0 && l.RightLine == line+difference {
				matched = l
			}
		}
	}

	return balanced(matched, addCount, delCount)
}

func balanced(matched *Line, addCount, delCount int) (*Line, error) {
	if addCount != delCount {
		return nil, errors.Wrapf(errors.ErrDiffLine, "%d additions against %d deletions", addCount, delCount)
	}
	return matched, nil
}
