package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitkit/internal/application/dto"
	"github.com/bravo68web/gitkit/internal/transport/http/handler"
	"github.com/bravo68web/gitkit/pkg/openapi"
)

func errorResponses(notFound string) map[int]openapi.ResponseDoc {
	return map[int]openapi.ResponseDoc{
		400: {Description: "Invalid repository name, revision or parameter", Model: dto.ErrorResponse{}},
		404: {Description: notFound, Model: dto.ErrorResponse{}},
		422: {Description: "Git output could not be parsed", Model: dto.ErrorResponse{}},
		502: {Description: "Git failed", Model: dto.ErrorResponse{}},
		504: {Description: "Git timed out", Model: dto.ErrorResponse{}},
	}
}

func withOK(desc string, model any, responses map[int]openapi.ResponseDoc) map[int]openapi.ResponseDoc {
	responses[200] = openapi.ResponseDoc{Description: desc, Model: model}
	return responses
}

func (r *Router) browseRouter() {
	h := handler.NewBrowseHandler(r.server.Browse, r.server.Log)

	routes := []struct {
		path    string
		handler func(*gin.Context)
		docs    openapi.RouteDocs
	}{
		{
			path:    "/commits/:rev",
			handler: h.GetCommit,
			docs: openapi.RouteDocs{
				Summary:   "Get commit",
				Tags:      []string{"Commits"},
				Responses: withOK("Commit", dto.CommitResponse{}, errorResponses("Repository or revision not found")),
			},
		},
		{
			path:    "/log/:rev",
			handler: h.ListCommits,
			docs: openapi.RouteDocs{
				Summary: "List commits",
				Tags:    []string{"Commits"},
				Query: []openapi.Parameter{
					openapi.QueryParam("path", "string", "Only commits touching this path"),
					openapi.QueryParam("limit", "integer", "Page size, 1 to 500"),
					openapi.QueryParam("skip", "integer", "Commits to skip"),
				},
				Responses: withOK("Commits, newest first", dto.CommitListResponse{}, errorResponses("Repository or revision not found")),
			},
		},
		{
			path:    "/branches",
			handler: h.ListBranches,
			docs: openapi.RouteDocs{
				Summary:   "List branches",
				Tags:      []string{"Refs"},
				Responses: withOK("Branch names", dto.RefListResponse{}, errorResponses("Repository not found")),
			},
		},
		{
			path:    "/tags",
			handler: h.ListTags,
			docs: openapi.RouteDocs{
				Summary:   "List tags",
				Tags:      []string{"Refs"},
				Responses: withOK("Tag names", dto.RefListResponse{}, errorResponses("Repository not found")),
			},
		},
		{
			path:    "/tags/:tag",
			handler: h.GetTag,
			docs: openapi.RouteDocs{
				Summary:   "Get tag",
				Tags:      []string{"Refs"},
				Responses: withOK("Tag", dto.TagResponse{}, errorResponses("Repository or tag not found")),
			},
		},
		{
			path:    "/tree/:rev",
			handler: h.GetTree,
			docs: openapi.RouteDocs{
				Summary:   "List root tree",
				Tags:      []string{"Code"},
				Responses: withOK("Tree entries", dto.TreeResponse{}, errorResponses("Repository or revision not found")),
			},
		},
		{
			path:    "/tree/:rev/*path",
			handler: h.GetTree,
			docs: openapi.RouteDocs{
				Summary:   "List tree",
				Tags:      []string{"Code"},
				Responses: withOK("Tree entries", dto.TreeResponse{}, errorResponses("Repository, revision or path not found")),
			},
		},
		{
			path:    "/blob/:rev/*path",
			handler: h.GetBlob,
			docs: openapi.RouteDocs{
				Summary:   "Get file content",
				Tags:      []string{"Code"},
				Responses: withOK("Raw file content", []byte{}, errorResponses("Repository, revision or file not found")),
			},
		},
		{
			path:    "/diff/:rev",
			handler: h.GetDiff,
			docs: openapi.RouteDocs{
				Summary:     "Get diff",
				Description: "Changes introduced by a commit, or between base and the commit",
				Tags:        []string{"Commits"},
				Query: []openapi.Parameter{
					openapi.QueryParam("base", "string", "Revision to compare against instead of the first parent"),
					openapi.QueryParam("max_files", "integer", "Files to parse, 0 for no limit"),
					openapi.QueryParam("max_file_lines", "integer", "Lines per file, 0 for no limit"),
					openapi.QueryParam("max_line_chars", "integer", "Characters per line, 0 for no limit"),
					openapi.QueryParam("sections", "boolean", "Include hunks, default true"),
					openapi.QueryParam("raw", "string", "Stream the unparsed diff or patch"),
				},
				Responses: withOK("Parsed diff", dto.DiffResponse{}, errorResponses("Repository or revision not found")),
			},
		},
		{
			path:    "/tree-commits/:rev",
			handler: h.GetTreeCommits,
			docs: openapi.RouteDocs{
				Summary:   "Last commit of each root entry",
				Tags:      []string{"Code"},
				Query:     []openapi.Parameter{openapi.QueryParam("concurrency", "integer", "Parallel git lookups")},
				Responses: withOK("Entries with their last commit", []dto.EntryCommitResponse{}, errorResponses("Repository or revision not found")),
			},
		},
		{
			path:    "/tree-commits/:rev/*path",
			handler: h.GetTreeCommits,
			docs: openapi.RouteDocs{
				Summary:   "Last commit of each entry",
				Tags:      []string{"Code"},
				Query:     []openapi.Parameter{openapi.QueryParam("concurrency", "integer", "Parallel git lookups")},
				Responses: withOK("Entries with their last commit", []dto.EntryCommitResponse{}, errorResponses("Repository, revision or path not found")),
			},
		},
	}

	// "team/lib" is addressed as team%2Flib; the server matches on the raw path.
	const prefix = "/api/repos/:repo"
	group := r.server.Group(prefix)
	for _, route := range routes {
		r.docs.RegisterDocs(http.MethodGet, prefix+route.path, route.docs)
		group.GET(route.path, route.handler)
	}
}
