package dto

import (
	"time"

	"github.com/bravo68web/gitkit/pkg/git"
	"github.com/bravo68web/gitkit/pkg/git/diff"
)

// SignatureResponse represents an author, committer or tagger
type SignatureResponse struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}

// CommitResponse represents a parsed commit
type CommitResponse struct {
	ID        string             `json:"id"`
	TreeID    string             `json:"tree_id"`
	ParentIDs []string           `json:"parent_ids"`
	Author    *SignatureResponse `json:"author,omitempty"`
	Committer *SignatureResponse `json:"committer,omitempty"`
	Summary   string             `json:"summary"`
	Message   string             `json:"message"`
}

// CommitListResponse represents one page of history
type CommitListResponse struct {
	Commits []CommitResponse `json:"commits"`
	Total   int              `json:"total"`
}

// TagResponse represents an annotated or lightweight tag
type TagResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	TargetID    string             `json:"target_id"`
	TargetKind  string             `json:"target_kind"`
	Tagger      *SignatureResponse `json:"tagger,omitempty"`
	Message     string             `json:"message,omitempty"`
	Refspec     string             `json:"refspec,omitempty"`
	IsAnnotated bool               `json:"is_annotated"`
}

// RefListResponse represents branch or tag names
type RefListResponse struct {
	Names []string `json:"names"`
	Total int      `json:"total"`
}

// TreeEntryResponse represents one tree entry
type TreeEntryResponse struct {
	Mode string `json:"mode"`
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// TreeResponse represents a directory listing
type TreeResponse struct {
	Path    string              `json:"path"`
	Entries []TreeEntryResponse `json:"entries"`
}

// EntryCommitResponse pairs a tree entry with its latest commit
type EntryCommitResponse struct {
	Entry        TreeEntryResponse `json:"entry"`
	Commit       CommitResponse    `json:"commit"`
	SubmoduleURL string            `json:"submodule_url,omitempty"`
}

// DiffLineResponse represents one line of a hunk
type DiffLineResponse struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	LeftLine  int    `json:"left_line,omitempty"`
	RightLine int    `json:"right_line,omitempty"`
}

// DiffSectionResponse represents one hunk
type DiffSectionResponse struct {
	Lines     []DiffLineResponse `json:"lines"`
	Additions int                `json:"additions"`
	Deletions int                `json:"deletions"`
}

// DiffFileResponse represents the changes to one file
type DiffFileResponse struct {
	Name         string                `json:"name"`
	OldName      string                `json:"old_name,omitempty"`
	Type         string                `json:"type"`
	Index        string                `json:"index,omitempty"`
	Additions    int                   `json:"additions"`
	Deletions    int                   `json:"deletions"`
	IsBinary     bool                  `json:"is_binary"`
	IsSubmodule  bool                  `json:"is_submodule"`
	IsIncomplete bool                  `json:"is_incomplete"`
	Sections     []DiffSectionResponse `json:"sections,omitempty"`
}

// DiffResponse represents a parsed diff
type DiffResponse struct {
	Files          []DiffFileResponse `json:"files"`
	TotalAdditions int                `json:"total_additions"`
	TotalDeletions int                `json:"total_deletions"`
	IsIncomplete   bool               `json:"is_incomplete"`
}

// FromSignature converts a signature; nil stays nil
func FromSignature(s *git.Signature) *SignatureResponse {
	if s == nil {
		return nil
	}
	return &SignatureResponse{Name: s.Name, Email: s.Email, When: s.When}
}

// FromCommit converts a commit
func FromCommit(c *git.Commit) CommitResponse {
	parents := make([]string, 0, len(c.ParentIDs))
	for _, id := range c.ParentIDs {
		parents = append(parents, id.String())
	}
	return CommitResponse{
		ID:        c.ID.String(),
		TreeID:    c.TreeID.String(),
		ParentIDs: parents,
		Author:    FromSignature(c.Author),
		Committer: FromSignature(c.Committer),
		Summary:   c.Summary(),
		Message:   c.Message,
	}
}

// FromCommits converts a page of history
func FromCommits(commits []*git.Commit) CommitListResponse {
	resp := CommitListResponse{Commits: make([]CommitResponse, 0, len(commits)), Total: len(commits)}
	for _, c := range commits {
		resp.Commits = append(resp.Commits, FromCommit(c))
	}
	return resp
}

// FromTag converts a tag
func FromTag(t *git.Tag) TagResponse {
	return TagResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		TargetID:    t.TargetID.String(),
		TargetKind:  t.TargetKind.String(),
		Tagger:      FromSignature(t.Tagger),
		Message:     t.Message,
		Refspec:     t.Refspec,
		IsAnnotated: t.Kind == git.ObjectTag,
	}
}

// FromRefs converts a list of ref names
func FromRefs(names []string) RefListResponse {
	if names == nil {
		names = []string{}
	}
	return RefListResponse{Names: names, Total: len(names)}
}

// FromTreeEntry converts a tree entry
func FromTreeEntry(e *git.TreeEntry) TreeEntryResponse {
	return TreeEntryResponse{
		Mode: e.Mode().String(),
		Kind: e.Kind().String(),
		ID:   e.ID().String(),
		Name: e.Name(),
		Path: e.Path(),
	}
}

// FromTree converts a directory listing
func FromTree(path string, entries []*git.TreeEntry) TreeResponse {
	resp := TreeResponse{Path: path, Entries: make([]TreeEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, FromTreeEntry(e))
	}
	return resp
}

// FromEntryCommits converts the result of a commits info lookup
func FromEntryCommits(infos []git.EntryCommitInfo) []EntryCommitResponse {
	resp := make([]EntryCommitResponse, 0, len(infos))
	for _, info := range infos {
		item := EntryCommitResponse{
			Entry:  FromTreeEntry(info.Entry),
			Commit: FromCommit(info.Commit),
		}
		if info.Submodule != nil {
			item.SubmoduleURL = info.Submodule.URL
		}
		resp = append(resp, item)
	}
	return resp
}

// FromDiff converts a parsed diff. Hunks are left out unless withSections
// is set.
func FromDiff(d *diff.Diff, withSections bool) DiffResponse {
	resp := DiffResponse{
		Files:          make([]DiffFileResponse, 0, d.NumFiles()),
		TotalAdditions: d.TotalAdditions(),
		TotalDeletions: d.TotalDeletions(),
		IsIncomplete:   d.IsIncomplete(),
	}
	for _, f := range d.Files {
		file := DiffFileResponse{
			Name:         f.Name,
			OldName:      f.OldName,
			Type:         f.Type.String(),
			Index:        f.Index,
			Additions:    f.NumAdditions(),
			Deletions:    f.NumDeletions(),
			IsBinary:     f.IsBinary(),
			IsSubmodule:  f.IsSubmodule(),
			IsIncomplete: f.IsIncomplete(),
		}
		if withSections {
			for _, s := range f.Sections {
				section := DiffSectionResponse{
					Lines:     make([]DiffLineResponse, 0, s.NumLines()),
					Additions: s.NumAdditions(),
					Deletions: s.NumDeletions(),
				}
				for _, l := range s.Lines {
					section.Lines = append(section.Lines, DiffLineResponse{
						Type:      l.Type.String(),
						Content:   l.Content,
						LeftLine:  l.LeftLine,
						RightLine: l.RightLine,
					})
				}
				file.Sections = append(file.Sections, section)
			}
		}
		resp.Files = append(resp.Files, file)
	}
	return resp
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    int            `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}
