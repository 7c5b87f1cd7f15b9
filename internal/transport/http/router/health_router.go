package router

import (
	"net/http"

	"github.com/bravo68web/gitkit/internal/transport/http/handler"
	"github.com/bravo68web/gitkit/pkg/openapi"
)

func (r *Router) healthRouter() {
	r.docs.RegisterDocs(http.MethodGet, "/health", openapi.RouteDocs{
		Summary: "Health check",
		Tags:    []string{"Health"},
		Responses: map[int]openapi.ResponseDoc{
			200: {Description: "Service is up", Model: handler.HealthResponse{}},
		},
	})

	r.server.GET("/health", handler.HealthHandler())
}
