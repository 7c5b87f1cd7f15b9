package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitkit/internal/application/dto"
	"github.com/bravo68web/gitkit/internal/application/service"
	apperrors "github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/git"
	"github.com/bravo68web/gitkit/pkg/logger"
)

// BrowseHandler serves the read-only repository API
type BrowseHandler struct {
	browse *service.BrowseService
	log    *logger.Logger
}

// NewBrowseHandler creates a new BrowseHandler instance
func NewBrowseHandler(browse *service.BrowseService, log *logger.Logger) *BrowseHandler {
	if log == nil {
		log = logger.Get()
	}
	return &BrowseHandler{
		browse: browse,
		log:    log.WithFields(logger.Component("browse-handler")),
	}
}

// treePath strips the leading slash gin keeps on catch-all parameters
func treePath(c *gin.Context) string {
	return strings.Trim(c.Param("path"), "/")
}

// GetCommit handles GET /api/repos/:repo/commits/:rev
func (h *BrowseHandler) GetCommit(c *gin.Context) {
	commit, err := h.browse.Commit(c.Request.Context(), c.Param("repo"), c.Param("rev"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCommit(commit))
}

// ListCommits handles GET /api/repos/:repo/log/:rev
func (h *BrowseHandler) ListCommits(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	skip, err := queryInt(c, "skip")
	if err != nil {
		respondError(c, err)
		return
	}

	commits, err := h.browse.Log(c.Request.Context(), c.Param("repo"), c.Param("rev"),
		c.Query("path"), intOr(limit, service.DefaultLogLimit), intOr(skip, 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCommits(commits))
}

// ListBranches handles GET /api/repos/:repo/branches
func (h *BrowseHandler) ListBranches(c *gin.Context) {
	names, err := h.browse.Branches(c.Request.Context(), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromRefs(names))
}

// ListTags handles GET /api/repos/:repo/tags
func (h *BrowseHandler) ListTags(c *gin.Context) {
	names, err := h.browse.Tags(c.Request.Context(), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromRefs(names))
}

// GetTag handles GET /api/repos/:repo/tags/:tag
func (h *BrowseHandler) GetTag(c *gin.Context) {
	tag, err := h.browse.Tag(c.Request.Context(), c.Param("repo"), c.Param("tag"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTag(tag))
}

// GetTree handles GET /api/repos/:repo/tree/:rev/*path
func (h *BrowseHandler) GetTree(c *gin.Context) {
	p := treePath(c)
	entries, err := h.browse.Tree(c.Request.Context(), c.Param("repo"), c.Param("rev"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTree(p, entries))
}

// GetBlob handles GET /api/repos/:repo/blob/:rev/*path
func (h *BrowseHandler) GetBlob(c *gin.Context) {
	w := &sniffWriter{w: c.Writer}
	err := h.browse.Blob(c.Request.Context(), c.Param("repo"), c.Param("rev"), treePath(c), w)
	if err == nil {
		err = w.Close()
	}
	if err == nil {
		return
	}
	if !w.flushed {
		respondError(c, err)
		return
	}
	_ = c.Error(err)
	h.log.Warn("blob download interrupted",
		logger.Repository(c.Param("repo")),
		logger.Revision(c.Param("rev")),
		logger.Path(treePath(c)),
		logger.Error(err),
	)
}

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// sniffWriter holds back the start of a response body until the content
// type can be detected, then passes everything straight through.
type sniffWriter struct {
	w       gin.ResponseWriter
	buf     []byte
	flushed bool
}

func (s *sniffWriter) Write(p []byte) (int, error) {
	if s.flushed {
		return s.w.Write(p)
	}
	s.buf = append(s.buf, p...)
	if len(s.buf) < sniffLen {
		return len(p), nil
	}
	if err := s.flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends whatever is still held back, including the headers of an
// empty body.
func (s *sniffWriter) Close() error {
	if s.flushed {
		return nil
	}
	return s.flush()
}

func (s *sniffWriter) flush() error {
	s.flushed = true
	s.w.Header().Set("Content-Type", http.DetectContentType(s.buf))
	s.w.WriteHeader(http.StatusOK)
	s.w.WriteHeaderNow()
	_, err := s.w.Write(s.buf)
	s.buf = nil
	return err
}

// GetDiff handles GET /api/repos/:repo/diff/:rev. With ?raw=diff or
// ?raw=patch the unparsed output is streamed as text.
func (h *BrowseHandler) GetDiff(c *gin.Context) {
	if raw := c.Query("raw"); raw != "" {
		h.streamRawDiff(c, git.RawDiffFormat(raw))
		return
	}

	var limits service.DiffLimits
	for _, q := range []struct {
		name   string
		target **int
	}{
		{"max_files", &limits.MaxFiles},
		{"max_file_lines", &limits.MaxFileLines},
		{"max_line_chars", &limits.MaxLineChars},
	} {
		n, err := queryInt(c, q.name)
		if err != nil {
			respondError(c, err)
			return
		}
		*q.target = n
	}

	d, err := h.browse.Diff(c.Request.Context(), c.Param("repo"), c.Param("rev"), c.Query("base"), limits)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDiff(d, c.Query("sections") != "false"))
}

func (h *BrowseHandler) streamRawDiff(c *gin.Context, format git.RawDiffFormat) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	err := h.browse.RawDiff(c.Request.Context(), c.Param("repo"), c.Param("rev"), format, c.Writer)
	if err == nil {
		return
	}
	if !c.Writer.Written() {
		c.Writer.Header().Del("Content-Type")
		respondError(c, err)
		return
	}
	// Headers are gone; the truncated body is all the client gets.
	_ = c.Error(err)
	h.log.Warn("raw diff interrupted",
		logger.Repository(c.Param("repo")),
		logger.Revision(c.Param("rev")),
		logger.Error(err),
	)
}

// GetTreeCommits handles GET /api/repos/:repo/tree-commits/:rev/*path
func (h *BrowseHandler) GetTreeCommits(c *gin.Context) {
	concurrency, err := queryInt(c, "concurrency")
	if err != nil {
		respondError(c, err)
		return
	}

	infos, err := h.browse.TreeCommits(c.Request.Context(), c.Param("repo"), c.Param("rev"), treePath(c), intOr(concurrency, 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEntryCommits(infos))
}

// NoRoute answers unknown paths with the JSON error body
func NoRoute(c *gin.Context) {
	respondError(c, apperrors.NotFound("route "+c.Request.URL.Path, nil))
}
