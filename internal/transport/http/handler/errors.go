package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitkit/internal/application/dto"
	apperrors "github.com/bravo68web/gitkit/pkg/errors"
)

// respondError writes err as a JSON error body with the status it maps to
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := apperrors.HTTPStatus(err)
	resp := dto.ErrorResponse{Error: err.Error(), Code: status}

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		resp.Error = appErr.Message
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(status, resp)
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, apperrors.ValidationError(name, name+" must be a non-negative integer")
	}
	return &n, nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
