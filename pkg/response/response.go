package response

import (
	"errors"
	"net/http"
	"time"

	"revenue-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope (code + message).
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	success(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	success(c, http.StatusCreated, data)
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: requestID(c),
		Timestamp: now(),
	})
}

// Error maps an *apperror.AppError to its code and HTTP status. Anything
// else is masked as a 500 so internals never leak to callers.
func Error(c *gin.Context, err error) {
	code, message, status := "SYS_000", "Internal server error", http.StatusInternalServerError
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code, message, status = appErr.Code, appErr.Message, appErr.HTTPStatus
	}
	c.JSON(status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
		RequestID: requestID(c),
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// requestID retrieves the request ID from context, or generates one.
func requestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return uuid.New().String()
}
