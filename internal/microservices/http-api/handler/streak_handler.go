package handler

import (
	"net/http"
	"time"

	"circlehub/internal/microservices/http-api/dto"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type StreakHandler struct {
	base
	svc service.StreakService
}

func NewStreakHandler(svc service.StreakService, timeout time.Duration) *StreakHandler {
	return &StreakHandler{base: newBase(timeout), svc: svc}
}

// RegisterRoutes expects the /stats group.
func (h *StreakHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reading-streak", h.ReadingStreak)
}

func (h *StreakHandler) ReadingStreak(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	streak, err := h.svc.ReadingStreak(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromReadingStreak(streak))
}
