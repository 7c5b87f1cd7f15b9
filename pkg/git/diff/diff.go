// Package diff parses unified diff output of git into files, sections and
// lines.
package diff

// FileType is the kind of change a file went through.
type FileType int

const (
	FileAdd FileType = iota + 1
	FileChange
	FileDelete
	FileRename
)

var fileTypeNames = map[FileType]string{
	FileAdd:    "add",
	FileChange: "change",
	FileDelete: "delete",
	FileRename: "rename",
}

func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t FileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// LineType is the kind of a line inside a section.
type LineType int

const (
	LinePlain LineType = iota + 1
	LineAdd
	LineDelete
	LineSection
)

var lineTypeNames = map[LineType]string{
	LinePlain:   "plain",
	LineAdd:     "add",
	LineDelete:  "delete",
	LineSection: "section",
}

func (t LineType) String() string {
	if name, ok := lineTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t LineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Line is one line of a section, including its leading marker character.
// Added lines have no left line number and deleted lines no right line
// number; both are 0 in that case.
type Line struct {
	Type      LineType `json:"type"`
	Content   string   `json:"content"`
	LeftLine  int      `json:"left_line"`
	RightLine int      `json:"right_line"`
}

// Section is one "@@ ... @@" hunk. The first line is the hunk header.
type Section struct {
	Lines []*Line `json:"lines"`

	numAdditions int
	numDeletions int
}

func (s *Section) NumLines() int     { return len(s.Lines) }
func (s *Section) NumAdditions() int { return s.numAdditions }
func (s *Section) NumDeletions() int { return s.numDeletions }

// File is the change to one path.
type File struct {
	Name     string     `json:"name"`
	OldName  string     `json:"old_name,omitempty"`
	Type     FileType   `json:"type"`
	Index    string     `json:"index,omitempty"`
	Sections []*Section `json:"sections"`

	numAdditions int
	numDeletions int
	isBinary     bool
	isSubmodule  bool
	isIncomplete bool
}

func (f *File) NumSections() int   { return len(f.Sections) }
func (f *File) NumAdditions() int  { return f.numAdditions }
func (f *File) NumDeletions() int  { return f.numDeletions }
func (f *File) IsCreated() bool    { return f.Type == FileAdd }
func (f *File) IsDeleted() bool    { return f.Type == FileDelete }
func (f *File) IsRenamed() bool    { return f.Type == FileRename }
func (f *File) IsBinary() bool     { return f.isBinary }
func (f *File) IsSubmodule() bool  { return f.isSubmodule }
func (f *File) IsIncomplete() bool { return f.isIncomplete }

// Diff is a parsed diff across any number of files.
type Diff struct {
	Files []*File `json:"files"`

	totalAdditions int
	totalDeletions int
	isIncomplete   bool
}

func (d *Diff) NumFiles() int         { return len(d.Files) }
func (d *Diff) TotalAdditions() int   { return d.totalAdditions }
func (d *Diff) TotalDeletions() int   { return d.totalDeletions }
func (d *Diff) IsIncomplete() bool    { return d.isIncomplete }
