package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitkit/internal/application/dto"
	"github.com/bravo68web/gitkit/pkg/logger"
)

const stackTraceSize = 4096

// RecoveryMiddleware turns a panic in a handler into a logged 500 response
func RecoveryMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if log == nil {
				log = logger.Get()
			}

			stack := debug.Stack()
			if len(stack) > stackTraceSize {
				stack = stack[:stackTraceSize]
			}

			fields := []logger.Field{
				logger.Any("panic", rec),
				logger.Method(c.Request.Method),
				logger.Path(c.Request.URL.Path),
				logger.String("stacktrace", string(stack)),
			}
			if id := GetRequestID(c); id != "" {
				fields = append(fields, logger.RequestID(id))
			}
			if id := GetTraceID(c); id != "" {
				fields = append(fields, logger.TraceID(id))
			}
			log.Error("Panic recovered", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error: "an unexpected error occurred",
				Code:  http.StatusInternalServerError,
				Details: map[string]any{
					"request_id": GetRequestID(c),
				},
			})
		}()

		c.Next()
	}
}
