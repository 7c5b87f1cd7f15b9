// Package openapi builds an OpenAPI 3 document from the routes of a gin
// engine.
package openapi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteDocs documents one route
type RouteDocs struct {
	Summary     string
	Description string
	Tags        []string
	Query       []Parameter
	Responses   map[int]ResponseDoc
}

// ResponseDoc documents one response status
type ResponseDoc struct {
	Description string
	Model       any    // Struct for response schema
	ContentType string // defaults to application/json
}

// Generator collects route documentation
type Generator struct {
	info      Info
	tags      []Tag
	routeDocs map[string]RouteDocs
}

// NewGenerator creates a generator for a document described by info
func NewGenerator(info Info, tags []Tag) *Generator {
	return &Generator{
		info:      info,
		tags:      tags,
		routeDocs: make(map[string]RouteDocs),
	}
}

// RegisterDocs registers documentation for a specific route
// method: GET, POST, etc.
// path: /api/repos/:repo/commits/:rev
func (g *Generator) RegisterDocs(method, path string, docs RouteDocs) {
	g.routeDocs[method+" "+path] = docs
}

// Generate documents every route of routes. Routes without registered docs
// are left out.
func (g *Generator) Generate(routes gin.RoutesInfo) *OpenAPI {
	spec := &OpenAPI{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Tags:    g.tags,
		Paths:   make(map[string]*PathItem),
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	for _, route := range routes {
		docs, ok := g.routeDocs[route.Method+" "+route.Path]
		if !ok {
			continue
		}

		// e.g., /api/repos/:repo/tree/:rev/*path -> /api/repos/{repo}/tree/{rev}/{path}
		openAPIPath := convertPath(route.Path)
		pathItem, exists := spec.Paths[openAPIPath]
		if !exists {
			pathItem = &PathItem{}
			spec.Paths[openAPIPath] = pathItem
		}

		operation := &Operation{
			Summary:     docs.Summary,
			Description: docs.Description,
			Tags:        docs.Tags,
			OperationID: getOperationID(route.Handler),
			Parameters:  append(extractPathParams(route.Path), docs.Query...),
			Responses:   make(map[string]Response, len(docs.Responses)),
		}

		for status, respDoc := range docs.Responses {
			resp := Response{Description: respDoc.Description}
			if respDoc.Model != nil {
				contentType := respDoc.ContentType
				if contentType == "" {
					contentType = "application/json"
				}
				resp.Content = map[string]MediaType{
					contentType: {Schema: GenerateSchema(respDoc.Model)},
				}
			}
			operation.Responses[strconv.Itoa(status)] = resp
		}
		if len(operation.Responses) == 0 {
			operation.Responses["200"] = Response{Description: "Successful response"}
		}

		switch route.Method {
		case "GET":
			pathItem.Get = operation
		case "HEAD":
			pathItem.Head = operation
		case "OPTIONS":
			pathItem.Options = operation
		}
	}

	return spec
}

// QueryParam documents an optional query parameter
func QueryParam(name, typ, description string) Parameter {
	return Parameter{
		Name:        name,
		In:          "query",
		Description: description,
		Schema:      &Schema{Type: typ},
	}
}

func convertPath(ginPath string) string {
	parts := strings.Split(ginPath, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func extractPathParams(ginPath string) []Parameter {
	var params []Parameter
	for _, part := range strings.Split(ginPath, "/") {
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			params = append(params, Parameter{
				Name:     part[1:],
				In:       "path",
				Required: true,
				Schema:   &Schema{Type: "string"},
			})
		}
	}
	return params
}

func getOperationID(handlerName string) string {
	// handlerName is usually "github.com/bravo68web/gitkit/internal/transport/http/handler.(*BrowseHandler).GetCommit-fm"
	// We want something cleaner like "BrowseHandler_GetCommit"
	parts := strings.Split(handlerName, "/")
	lastPart := parts[len(parts)-1]

	if idx := strings.Index(lastPart, "-fm"); idx != -1 {
		lastPart = lastPart[:idx]
	}
	if idx := strings.Index(lastPart, "."); idx != -1 {
		lastPart = lastPart[idx+1:]
	}

	lastPart = strings.NewReplacer("(", "", ")", "", "*", "", ".", "_").Replace(lastPart)
	return lastPart
}
