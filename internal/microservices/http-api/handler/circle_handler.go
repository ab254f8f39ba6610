package handler

import (
	"net/http"
	"time"

	"circlehub/internal/microservices/http-api/dto"
	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CircleHandler struct {
	base
	svc service.CircleService
}

func NewCircleHandler(svc service.CircleService, timeout time.Duration) *CircleHandler {
	return &CircleHandler{base: newBase(timeout), svc: svc}
}

// RegisterRoutes expects the /circles group.
func (h *CircleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.ListMine)
	rg.GET("/discover", h.Discover)
	rg.POST("/join/:code", h.JoinByCode)
	rg.POST("/:id/join", h.JoinPublic)
	rg.DELETE("/:id/leave", h.Leave)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PUT("/:id/members/:user_id/role", h.SetMemberRole)
}

func (h *CircleHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateCircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	circle, err := h.svc.Create(ctx, userID, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCircle(*circle))
}

func (h *CircleHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	circles, err := h.svc.ListMine(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSummaries(circles))
}

func (h *CircleHandler) Discover(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	circles, err := h.svc.Discover(ctx, userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSummaries(circles))
}

func (h *CircleHandler) JoinByCode(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	circle, err := h.svc.JoinByCode(ctx, userID, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "joined circle",
		"circle_id":   circle.ID,
		"circle_name": circle.Name,
	})
}

func (h *CircleHandler) JoinPublic(c *gin.Context) {
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

	circle, err := h.svc.JoinPublic(ctx, userID, circleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "joined circle",
		"circle_id":   circle.ID,
		"circle_name": circle.Name,
	})
}

func (h *CircleHandler) Leave(c *gin.Context) {
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

	if err := h.svc.Leave(ctx, userID, circleID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left circle"})
}

func (h *CircleHandler) Delete(c *gin.Context) {
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

	if err := h.svc.Delete(ctx, userID, circleID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CircleHandler) Get(c *gin.Context) {
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

	detail, err := h.svc.Get(ctx, userID, circleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCircleDetail(detail))
}

func (h *CircleHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}

	var req dto.UpdateCircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	circle, err := h.svc.Update(ctx, userID, circleID, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCircle(*circle))
}

func (h *CircleHandler) SetMemberRole(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}

	var req dto.SetMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	target := c.Param("user_id")
	if err := h.svc.SetMemberRole(ctx, userID, circleID, target, models.MemberRole(req.Role)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role updated", "user_id": target, "role": req.Role})
}
