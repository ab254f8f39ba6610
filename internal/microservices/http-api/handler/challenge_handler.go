package handler

import (
	"net/http"
	"strconv"
	"time"

	"circlehub/internal/microservices/http-api/dto"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ChallengeHandler struct {
	base
	svc service.ChallengeService
}

func NewChallengeHandler(svc service.ChallengeService, timeout time.Duration) *ChallengeHandler {
	return &ChallengeHandler{base: newBase(timeout), svc: svc}
}

// RegisterRoutes expects the /circles group.
func (h *ChallengeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/challenges", h.Create)
	rg.GET("/:id/challenges", h.List)
	rg.PATCH("/:id/challenges/:cid", h.SetActive)
}

func (h *ChallengeHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}

	var req dto.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	challenge, err := h.svc.Create(ctx, userID, circleID, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromChallenge(*challenge))
}

// List returns active challenges unless ?active_only=false.
func (h *ChallengeHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	circleID, ok := paramID(c, "id", "circle id")
	if !ok {
		return
	}

	activeOnly := true
	if raw := c.Query("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active_only"})
			return
		}
		activeOnly = parsed
	}

	ctx, cancel := h.context(c)
	defer cancel()

	boards, err := h.svc.List(ctx, userID, circleID, activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromChallengeBoards(boards))
}

func (h *ChallengeHandler) SetActive(c *gin.Context) {
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

	var req dto.SetChallengeActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	challenge, err := h.svc.SetActive(ctx, userID, circleID, challengeID, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromChallenge(*challenge))
}
