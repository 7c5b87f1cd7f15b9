package diff

import (
	"io"
	"strconv"
	"strings"

	"github.com/bravo68web/gitkit/pkg/errors"
)

const (
	fileHeaderPrefix = "diff --git "
	noNewlineMarker  = `\`
)

// Parser turns unified diff text into a Diff. A zero limit means unlimited.
type Parser struct {
	// MaxFiles stops parsing once this many files have been read.
	MaxFiles int
	// MaxFileLines skips the remaining sections of a file once it has
	// accumulated more than this many section lines.
	MaxFileLines int
	// MaxLineChars cuts a section short at the first longer line.
	MaxLineChars int
}

// NewParser creates a Parser with the given limits.
func NewParser(maxFiles, maxFileLines, maxLineChars int) *Parser {
	return &Parser{MaxFiles: maxFiles, MaxFileLines: maxFileLines, MaxLineChars: maxLineChars}
}

// ParseReader reads r to the end and parses it as newline separated text.
func (p *Parser) ParseReader(r io.Reader) (*Diff, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read diff")
	}
	return p.Parse(string(data), "\n")
}

// Parse parses text whose lines are separated by sep. Limits that are hit
// mark the affected file and the whole diff incomplete instead of failing.
func (p *Parser) Parse(text, sep string) (*Diff, error) {
	if text == "" {
		return nil, errors.Malformedf("diff output is empty")
	}
	if sep == "" {
		sep = "\n"
	}

	s := &scanner{lines: strings.Split(text, sep), parser: p}
	return s.run()
}

// scanner walks the lines once; the file header and section parsers advance
// the shared cursor past what they consume.
type scanner struct {
	parser *Parser
	lines  []string
	cursor int
}

func (s *scanner) run() (*Diff, error) {
	d := &Diff{}
	var (
		file      *File
		fileLines int
	)

	for ; s.cursor < len(s.lines); s.cursor++ {
		line := s.lines[s.cursor]

		if strings.HasPrefix(line, "+++ ") || strings.HasPrefix(line, "--- ") {
			continue
		}

		if strings.HasPrefix(line, fileHeaderPrefix) {
			if s.parser.MaxFiles > 0 && len(d.Files) >= s.parser.MaxFiles {
				d.isIncomplete = true
				break
			}
			f, err := s.parseFileHeader()
			if err != nil {
				return nil, err
			}
			file = f
			fileLines = 0
			d.Files = append(d.Files, file)
			continue
		}

		if file == nil || file.isIncomplete {
			continue
		}

		if strings.HasPrefix(line, "Binary") {
			file.isBinary = true
			continue
		}

		if !strings.HasPrefix(line, "@@") {
			continue
		}

		if s.parser.MaxFileLines > 0 && fileLines > s.parser.MaxFileLines {
			file.isIncomplete = true
			d.isIncomplete = true
			continue
		}

		section, truncated, err := s.parseSection()
		if err != nil {
			return nil, err
		}
		file.Sections = append(file.Sections, section)
		file.numAdditions += section.numAdditions
		file.numDeletions += section.numDeletions
		d.totalAdditions += section.numAdditions
		d.totalDeletions += section.numDeletions
		fileLines += section.NumLines()

		if truncated {
			file.isIncomplete = true
			d.isIncomplete = true
		}
	}

	return d, nil
}

// parseFileHeader reads "diff --git a/<old> b/<new>" at the cursor and the
// extended header lines after it. On return the cursor is on the last line
// consumed.
func (s *scanner) parseFileHeader() (*File, error) {
	line := s.lines[s.cursor]
	a, b, err := splitHeaderPaths(line)
	if err != nil {
		return nil, err
	}

	file := &File{Name: a, Type: FileChange}

	for i := s.cursor + 1; i < len(s.lines); i++ {
		line = s.lines[i]
		if line == "" {
			s.cursor = i
			continue
		}
		if strings.HasPrefix(line, fileHeaderPrefix) {
			// Next file without an index line; leave it for the main loop.
			return file, nil
		}
		s.cursor = i

		switch {
		case strings.HasPrefix(line, "new file"):
			file.Type = FileAdd
			file.isSubmodule = strings.HasSuffix(line, " 160000")

		case strings.HasPrefix(line, "deleted"):
			file.Type = FileDelete
			file.isSubmodule = strings.HasSuffix(line, " 160000")

		case strings.HasPrefix(line, "index "):
			fields := strings.Fields(line[len("index "):])
			if len(fields) == 0 {
				return nil, errors.Malformedf("malformed index %q: expect two SHAs in the form of <old>..<new>", line)
			}
			shas := strings.Split(fields[0], "..")
			if len(shas) != 2 {
				return nil, errors.Malformedf("malformed index %q: expect two SHAs in the form of <old>..<new>", line)
			}
			if file.IsDeleted() {
				file.Index = shas[0]
			} else {
				file.Index = shas[1]
			}
			return file, nil

		case strings.HasPrefix(line, "similarity index "):
			file.Type = FileRename
			file.OldName = a
			file.Name = b
			if strings.HasSuffix(line, "100%") {
				return file, nil
			}

		case strings.HasPrefix(line, "old mode"):
			return file, nil
		}
	}
	return file, nil
}

// splitHeaderPaths extracts both paths of a file header, removing the a/ and
// b/ prefixes and any C-style quoting git adds for unusual names.
func splitHeaderPaths(line string) (string, string, error) {
	rest := line[len(fileHeaderPrefix):]

	var middle int
	if strings.HasSuffix(rest, `"`) {
		middle = strings.Index(rest, ` "b/`)
	} else {
		middle = strings.Index(rest, " b/")
	}
	if middle < 0 {
		return "", "", errors.Malformedf("malformed file header %q: expect a/<path> b/<path>", line)
	}

	a, err := headerPath(rest[:middle], "a/")
	if err != nil {
		return "", "", errors.Wrapf(err, "file header %q", line)
	}
	b, err := headerPath(rest[middle+1:], "b/")
	if err != nil {
		return "", "", errors.Wrapf(err, "file header %q", line)
	}
	return a, b, nil
}

func headerPath(p, prefix string) (string, error) {
	if strings.HasPrefix(p, `"`) {
		unquoted, err := strconv.Unquote(p)
		if err != nil {
			return "", errors.Malformed("quoted path "+p, err)
		}
		p = unquoted
	}
	return strings.TrimPrefix(p, prefix), nil
}

// parseSection reads the hunk starting at the cursor. On return the cursor
// is on the last line consumed, or on the line that ended the section
// minus one, so that the main loop sees that line next.
func (s *scanner) parseSection() (*Section, bool, error) {
	header := s.lines[s.cursor]
	leftLine, rightLine, err := parseHunkHeader(header)
	if err != nil {
		return nil, false, err
	}

	section := &Section{Lines: []*Line{{Type: LineSection, Content: header}}}

	for i := s.cursor + 1; i < len(s.lines); i++ {
		line := s.lines[i]
		if line == "" {
			s.cursor = i
			continue
		}

		switch line[0] {
		case ' ', '+', '-':
		default:
			if strings.HasPrefix(line, noNewlineMarker) {
				s.cursor = i
				continue
			}
			s.cursor = i - 1
			return section, false, nil
		}

		if s.parser.MaxLineChars > 0 && len(line) > s.parser.MaxLineChars {
			s.cursor = i - 1
			return section, true, nil
		}
		s.cursor = i

		switch line[0] {
		case ' ':
			section.Lines = append(section.Lines, &Line{
				Type:      LinePlain,
				Content:   line,
				LeftLine:  leftLine,
				RightLine: rightLine,
			})
			leftLine++
			rightLine++
		case '+':
			section.Lines = append(section.Lines, &Line{
				Type:      LineAdd,
				Content:   line,
				RightLine: rightLine,
			})
			section.numAdditions++
			rightLine++
		case '-':
			section.Lines = append(section.Lines, &Line{
				Type:     LineDelete,
				Content:  line,
				LeftLine: leftLine,
			})
			section.numDeletions++
			if leftLine > 0 {
				leftLine++
			}
		}
	}
	return section, false, nil
}

// parseHunkHeader reads the start lines of "@@ -l[,c] +r[,c] @@[ context]".
func parseHunkHeader(line string) (left, right int, err error) {
	malformed := func() (int, int, error) {
		return 0, 0, errors.Malformedf("malformed hunk header %q: expect @@ -<start>[,<count>] +<start>[,<count>] @@", line)
	}

	body, ok := strings.CutPrefix(line, "@@ ")
	if !ok {
		return malformed()
	}
	ranges, _, ok := strings.Cut(body, " @@")
	if !ok {
		return malformed()
	}
	fields := strings.Fields(ranges)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "-") {
		return malformed()
	}

	left, err = rangeStart(fields[0][1:])
	if err != nil {
		return malformed()
	}
	right = left
	if len(fields) > 1 {
		right, err = rangeStart(strings.TrimPrefix(fields[1], "+"))
		if err != nil {
			return malformed()
		}
	}
	return left, right, nil
}

func rangeStart(r string) (int, error) {
	start, _, _ := strings.Cut(r, ",")
	return strconv.Atoi(start)
}
