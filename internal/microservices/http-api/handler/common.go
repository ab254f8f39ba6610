package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const DefaultRequestTimeout = 5 * time.Second

// base carries what every handler shares.
type base struct {
	timeout time.Duration
}

func newBase(timeout time.Duration) base {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return base{timeout: timeout}
}

func (b base) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), b.timeout)
}

// currentUser reads the id set by the auth middleware and writes 401 when
// it is missing.
func currentUser(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return id, true
}

func paramID(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label})
		return 0, false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// respondError maps a service error kind to its status. Unknown errors are
// attached to the context for the access log and hidden from the caller.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusFor(svcErr.Kind), gin.H{"error": svcErr.Msg})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func statusFor(kind error) int {
	switch kind {
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrConflict:
		return http.StatusConflict
	case service.ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
