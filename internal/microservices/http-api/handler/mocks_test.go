package handler_test

import (
	"context"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
	"circlehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

// --- MOCK SERVICES ---

type MockCircleService struct {
	mock.Mock
}

func (m *MockCircleService) Create(ctx context.Context, userID string, in service.CreateCircleInput) (*models.Circle, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Circle), args.Error(1)
}

func (m *MockCircleService) JoinByCode(ctx context.Context, userID, code string) (*models.Circle, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Circle), args.Error(1)
}

func (m *MockCircleService) JoinPublic(ctx context.Context, userID string, circleID int64) (*models.Circle, error) {
	args := m.Called(ctx, userID, circleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Circle), args.Error(1)
}

func (m *MockCircleService) Leave(ctx context.Context, userID string, circleID int64) error {
	args := m.Called(ctx, userID, circleID)
	return args.Error(0)
}

func (m *MockCircleService) Delete(ctx context.Context, userID string, circleID int64) error {
	args := m.Called(ctx, userID, circleID)
	return args.Error(0)
}

func (m *MockCircleService) ListMine(ctx context.Context, userID string) ([]repository.CircleSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]repository.CircleSummary), args.Error(1)
}

func (m *MockCircleService) Discover(ctx context.Context, userID string, limit int) ([]repository.CircleSummary, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]repository.CircleSummary), args.Error(1)
}

func (m *MockCircleService) Get(ctx context.Context, userID string, circleID int64) (*service.CircleDetail, error) {
	args := m.Called(ctx, userID, circleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CircleDetail), args.Error(1)
}

func (m *MockCircleService) Update(ctx context.Context, userID string, circleID int64, in service.UpdateCircleInput) (*models.Circle, error) {
	args := m.Called(ctx, userID, circleID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Circle), args.Error(1)
}

func (m *MockCircleService) SetMemberRole(ctx context.Context, userID string, circleID int64, targetUserID string, role models.MemberRole) error {
	args := m.Called(ctx, userID, circleID, targetUserID, role)
	return args.Error(0)
}

type MockChallengeService struct {
	mock.Mock
}

func (m *MockChallengeService) Create(ctx context.Context, userID string, circleID int64, in service.CreateChallengeInput) (*models.Challenge, error) {
	args := m.Called(ctx, userID, circleID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Challenge), args.Error(1)
}

func (m *MockChallengeService) List(ctx context.Context, userID string, circleID int64, activeOnly bool) ([]service.ChallengeBoard, error) {
	args := m.Called(ctx, userID, circleID, activeOnly)
	return args.Get(0).([]service.ChallengeBoard), args.Error(1)
}

func (m *MockChallengeService) SetActive(ctx context.Context, userID string, circleID, challengeID int64, active bool) (*models.Challenge, error) {
	args := m.Called(ctx, userID, circleID, challengeID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Challenge), args.Error(1)
}

type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) SetProgress(ctx context.Context, userID string, circleID, challengeID int64, value int) (*service.ProgressResult, error) {
	args := m.Called(ctx, userID, circleID, challengeID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProgressResult), args.Error(1)
}

func (m *MockProgressService) SyncFromLibrary(ctx context.Context, userID string, circleID, challengeID int64) (*service.SyncResult, error) {
	args := m.Called(ctx, userID, circleID, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SyncResult), args.Error(1)
}

type MockLeaderboardService struct {
	mock.Mock
}

func (m *MockLeaderboardService) Leaderboard(ctx context.Context, userID string, circleID int64) ([]service.LeaderboardEntry, error) {
	args := m.Called(ctx, userID, circleID)
	return args.Get(0).([]service.LeaderboardEntry), args.Error(1)
}

func (m *MockLeaderboardService) Export(ctx context.Context, userID string, circleID int64) (*service.LeaderboardExport, error) {
	args := m.Called(ctx, userID, circleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LeaderboardExport), args.Error(1)
}

type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) List(ctx context.Context, userID string, circleID int64, limit int) ([]repository.ActivityView, error) {
	args := m.Called(ctx, userID, circleID, limit)
	return args.Get(0).([]repository.ActivityView), args.Error(1)
}

type MockStreakService struct {
	mock.Mock
}

func (m *MockStreakService) ReadingStreak(ctx context.Context, userID string) (*service.ReadingStreak, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReadingStreak), args.Error(1)
}

// --- SETUP ---

func mockAuthMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func setupRouter(userID, prefix string, handlers ...routeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rg := r.Group(prefix)
	rg.Use(mockAuthMiddleware(userID))
	for _, h := range handlers {
		h.RegisterRoutes(rg)
	}
	return r
}

func svcErr(kind error, msg string) error {
	return &service.Error{Kind: kind, Msg: msg}
}
