package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}
