package router

import (
	"github.com/bravo68web/gitkit/internal/server"
	"github.com/bravo68web/gitkit/internal/transport/http/handler"
	"github.com/bravo68web/gitkit/internal/transport/http/middleware"
	"github.com/bravo68web/gitkit/pkg/openapi"
)

type Router struct {
	server *server.Server
	docs   *openapi.Generator
}

// NewRouter creates a new Router instance.
func NewRouter(s *server.Server) *Router {
	return &Router{
		server: s,
		docs: openapi.NewGenerator(
			openapi.Info{
				Title:       "gitkit API",
				Description: "Read-only access to the commits, trees and diffs of local git repositories",
				Version:     "1.0.0",
			},
			[]openapi.Tag{
				{Name: "Commits"},
				{Name: "Refs"},
				{Name: "Code"},
				{Name: "Health"},
			},
		),
	}
}

// RegisterRoutes sets up the routes and middleware for the server.
func (r *Router) RegisterRoutes() {
	r.server.Use(
		middleware.LoggerMiddleware(r.server.Log),
		middleware.RecoveryMiddleware(r.server.Log),
		middleware.CORSMiddleware(r.server.Config.Server.AllowedOrigins),
	)
	r.server.NoRoute(handler.NoRoute)

	r.healthRouter()
	r.browseRouter()
	r.docsRouter()
}

// Docs returns the OpenAPI document of every registered route
func (r *Router) Docs() *openapi.OpenAPI {
	return r.docs.Generate(r.server.Routes())
}
