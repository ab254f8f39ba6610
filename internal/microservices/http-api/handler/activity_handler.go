package handler

import (
	"net/http"
	"time"

	"circlehub/internal/microservices/http-api/dto"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	base
	svc service.ActivityService
}

func NewActivityHandler(svc service.ActivityService, timeout time.Duration) *ActivityHandler {
	return &ActivityHandler{base: newBase(timeout), svc: svc}
}

// RegisterRoutes expects the /circles group.
func (h *ActivityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/activity", h.List)
}

func (h *ActivityHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	activities, err := h.svc.List(ctx, userID, circleID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromActivities(activities))
}
