package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"circlehub/internal/microservices/http-api/dto"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	base
	svc service.ProgressService
}

func NewProgressHandler(svc service.ProgressService, timeout time.Duration) *ProgressHandler {
	return &ProgressHandler{base: newBase(timeout), svc: svc}
}

// RegisterRoutes expects the /circles group.
func (h *ProgressHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/:id/challenges/:cid/progress", h.Update)
	rg.POST("/:id/challenges/:cid/sync", h.Sync)
}

// Update sets the caller's progress. The value comes from the JSON body
// or, failing that, the "value" query parameter.
func (h *ProgressHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}
	challengeID, ok := paramID(c, "cid", "challenge id")
	if !ok {
		return
	}

	value, ok := progressValue(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.svc.SetProgress(ctx, userID, circleID, challengeID, value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromProgressResult(result))
}

func progressValue(c *gin.Context) (int, bool) {
	var req dto.UpdateProgressRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return 0, false
		}
	}
	if req.Value == nil {
		raw := c.Query("value")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
			return 0, false
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
			return 0, false
		}
		req.Value = &n
	}
	return *req.Value, true
}

func (h *ProgressHandler) Sync(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}
	challengeID, ok := paramID(c, "cid", "challenge id")
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.svc.SyncFromLibrary(ctx, userID, circleID, challengeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSyncResult(result))
}
