package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"circlehub/internal/microservices/http-api/dto"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type LeaderboardHandler struct {
	base
	svc service.LeaderboardService
}

func NewLeaderboardHandler(svc service.LeaderboardService, timeout time.Duration) *LeaderboardHandler {
	return &LeaderboardHandler{base: newBase(timeout), svc: svc}
}

// RegisterRoutes expects the /circles group.
func (h *LeaderboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/leaderboard", h.Get)
	rg.GET("/:id/leaderboard/export", h.Export)
}

func (h *LeaderboardHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	entries, err := h.svc.Leaderboard(ctx, userID, circleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLeaderboard(entries))
}

// Export streams the leaderboard as an xlsx workbook.
func (h *LeaderboardHandler) Export(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	export, err := h.svc.Export(ctx, userID, circleID)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := service.WriteLeaderboardXLSX(&buf, export); err != nil {
		respondError(c, fmt.Errorf("render leaderboard: %w", err))
		return
	}

	filename := fmt.Sprintf("circle-%d-leaderboard.xlsx", circleID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
