// Package handlers implements the HTTP endpoints of the diary API: sync
// triggers, diary queries, bookmarks, account management, publishing and
// stats. Handlers stay thin; they parse and validate input, call into the
// service or repo layer, and translate the outcome into a JSON envelope.
//
// Every failure path goes through fail(), which guarantees a uniform error
// body with a stable machine-readable code alongside the HTTP status:
//
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "diary not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yournote/go-diary-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope shared by all endpoints. RequestID
// echoes the X-Request-ID correlation header so a client error can be matched
// to server logs. Code is one of the constants in errors.go and never changes
// meaning between releases; Message is free text and may.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"diary not found"`
}

// fail writes the error envelope with the given status and aborts the chain.
// Server-side failures (5xx) are additionally logged through the
// request-scoped logger so they carry the correlation ID and route fields.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	if reqID == "" {
		reqID = c.GetHeader("X-Request-ID")
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{RequestID: reqID, Code: code, Message: msg})
}

// Fail exposes fail to the router for NoRoute/NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success body as JSON.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent answers 204 for operations with nothing to return.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
