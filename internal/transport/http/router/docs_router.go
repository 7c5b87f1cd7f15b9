package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (r *Router) docsRouter() {
	r.server.GET("/api/openapi.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Docs())
	})
}
