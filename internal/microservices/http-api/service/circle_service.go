package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
)

const (
	DefaultDiscoverLimit = 20
	MaxDiscoverLimit     = 100
	defaultCodeAttempts  = 10
)

type CreateCircleInput struct {
	Name        string
	Description string
	IsPrivate   bool
}

// UpdateCircleInput is a partial update; nil fields are left alone.
type UpdateCircleInput struct {
	Name        *string
	Description *string
	IsPrivate   *bool
}

// CircleDetail is a circle as seen by one requester.
type CircleDetail struct {
	Circle   models.Circle
	IsMember bool
	MyRole   models.MemberRole
	Members  []repository.MemberView
}

type CircleService interface {
	Create(ctx context.Context, userID string, in CreateCircleInput) (*models.Circle, error)
	JoinByCode(ctx context.Context, userID, code string) (*models.Circle, error)
	JoinPublic(ctx context.Context, userID string, circleID int64) (*models.Circle, error)
	Leave(ctx context.Context, userID string, circleID int64) error
	Delete(ctx context.Context, userID string, circleID int64) error
	ListMine(ctx context.Context, userID string) ([]repository.CircleSummary, error)
	Discover(ctx context.Context, userID string, limit int) ([]repository.CircleSummary, error)
	Get(ctx context.Context, userID string, circleID int64) (*CircleDetail, error)
	Update(ctx context.Context, userID string, circleID int64, in UpdateCircleInput) (*models.Circle, error)
	SetMemberRole(ctx context.Context, userID string, circleID int64, targetUserID string, role models.MemberRole) error
}

type circleService struct {
	store        repository.Store
	cache        LeaderboardCache
	log          *slog.Logger
	metrics      *Metrics
	newCode      CodeGenerator
	codeAttempts int
}

func NewCircleService(store repository.Store, cache LeaderboardCache, log *slog.Logger, metrics *Metrics, codeAttempts int) CircleService {
	if codeAttempts <= 0 {
		codeAttempts = defaultCodeAttempts
	}
	return &circleService{
		store:        store,
		cache:        cache,
		log:          log,
		metrics:      metrics,
		newCode:      NewInviteCode,
		codeAttempts: codeAttempts,
	}
}

func (s *circleService) Create(ctx context.Context, userID string, in CreateCircleInput) (*models.Circle, error) {
	name := cleanText(in.Name)
	if err := checkLength("name", name, 2, 100); err != nil {
		return nil, err
	}

	var circle *models.Circle
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := s.freeCode(ctx)
		if err != nil {
			return nil, err
		}

		circle = &models.Circle{
			Name:        name,
			Description: cleanText(in.Description),
			InviteCode:  code,
			IsPrivate:   in.IsPrivate,
			CreatedBy:   userID,
		}
		err = s.store.Transaction(ctx, func(tx Store) error {
			if err := tx.Circles().Create(ctx, circle); err != nil {
				return err
			}
			if err := tx.Members().Create(ctx, &models.CircleMember{
				CircleID: circle.ID,
				UserID:   userID,
				Role:     models.RoleAdmin,
			}); err != nil {
				return err
			}
			return tx.Activities().Create(ctx, &models.CircleActivity{
				CircleID: circle.ID,
				UserID:   userID,
				Type:     models.ActivityCircleCreated,
				Content:  "created the circle",
			})
		})
		if err == nil {
			s.metrics.circleCreated()
			s.log.Info("circle_created", "circle_id", circle.ID, "user_id", userID)
			return circle, nil
		}
		// another insert took the code between the check and the commit
		if repository.IsDuplicate(err) {
			s.log.Warn("invite_code_collision", "attempt", attempt, "code", code)
			continue
		}
		return nil, fmt.Errorf("create circle: %w", err)
	}
	return nil, fmt.Errorf("create circle: no free invite code after %d attempts", s.codeAttempts)
}

// freeCode draws codes until one is not held by any circle.
func (s *circleService) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < s.codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		taken, err := s.store.Circles().InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free invite code after %d attempts", s.codeAttempts)
}

func (s *circleService) JoinByCode(ctx context.Context, userID, code string) (*models.Circle, error) {
	circle, err := s.store.Circles().GetByInviteCode(ctx, NormalizeInviteCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("invalid invite code")
	}
	if err != nil {
		return nil, fmt.Errorf("find circle by code: %w", err)
	}
	if err := s.join(ctx, userID, circle); err != nil {
		return nil, err
	}
	return circle, nil
}

func (s *circleService) JoinPublic(ctx context.Context, userID string, circleID int64) (*models.Circle, error) {
	circle, err := s.getCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if circle.IsPrivate {
		return nil, forbidden("this circle is private, use an invite code to join")
	}
	if err := s.join(ctx, userID, circle); err != nil {
		return nil, err
	}
	return circle, nil
}

func (s *circleService) join(ctx context.Context, userID string, circle *models.Circle) error {
	err := s.store.Transaction(ctx, func(tx Store) error {
		_, err := tx.Members().Get(ctx, circle.ID, userID)
		if err == nil {
			return conflict("already a member of this circle")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := tx.Members().Create(ctx, &models.CircleMember{
			CircleID: circle.ID,
			UserID:   userID,
			Role:     models.RoleMember,
		}); err != nil {
			// lost a race with a concurrent join of the same user
			if repository.IsDuplicate(err) {
				return conflict("already a member of this circle")
			}
			return err
		}
		return tx.Activities().Create(ctx, &models.CircleActivity{
			CircleID: circle.ID,
			UserID:   userID,
			Type:     models.ActivityJoined,
			Content:  "joined the circle",
		})
	})
	if err != nil {
		return wrapInternal("join circle", err)
	}
	s.metrics.membership("join")
	s.invalidate(ctx, circle.ID)
	s.log.Info("circle_joined", "circle_id", circle.ID, "user_id", userID)
	return nil
}

func (s *circleService) Leave(ctx context.Context, userID string, circleID int64) error {
	err := s.store.Transaction(ctx, func(tx Store) error {
		if err := lockCircle(ctx, tx, circleID); err != nil {
			return err
		}
		member, err := tx.Members().GetForUpdate(ctx, circleID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return conflict("not a member of this circle")
		}
		if err != nil {
			return err
		}
		if member.IsAdmin() {
			admins, err := tx.Members().CountAdmins(ctx, circleID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return forbidden("cannot leave as the only admin, promote another member or delete the circle")
			}
		}
		return tx.Members().Delete(ctx, circleID, userID)
	})
	if err != nil {
		return wrapInternal("leave circle", err)
	}
	s.metrics.membership("leave")
	s.invalidate(ctx, circleID)
	s.log.Info("circle_left", "circle_id", circleID, "user_id", userID)
	return nil
}

// lockCircle serializes membership changes that depend on the admin count.
// It is always taken before any membership row lock.
func lockCircle(ctx context.Context, tx Store, circleID int64) error {
	_, err := tx.Circles().GetForUpdate(ctx, circleID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("circle not found")
	}
	return err
}

func (s *circleService) Delete(ctx context.Context, userID string, circleID int64) error {
	if _, err := s.getCircle(ctx, circleID); err != nil {
		return err
	}
	if _, err := s.requireAdmin(ctx, circleID, userID, "only admins can delete the circle"); err != nil {
		return err
	}
	err := s.store.Transaction(ctx, func(tx Store) error {
		return tx.Circles().Delete(ctx, circleID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("circle not found")
	}
	if err != nil {
		return fmt.Errorf("delete circle: %w", err)
	}
	s.invalidate(ctx, circleID)
	s.log.Info("circle_deleted", "circle_id", circleID, "user_id", userID)
	return nil
}

func (s *circleService) ListMine(ctx context.Context, userID string) ([]repository.CircleSummary, error) {
	return s.store.Circles().ListForUser(ctx, userID)
}

func (s *circleService) Discover(ctx context.Context, userID string, limit int) ([]repository.CircleSummary, error) {
	if limit <= 0 {
		limit = DefaultDiscoverLimit
	}
	if limit > MaxDiscoverLimit {
		limit = MaxDiscoverLimit
	}
	return s.store.Circles().ListPublic(ctx, userID, limit)
}

func (s *circleService) Get(ctx context.Context, userID string, circleID int64) (*CircleDetail, error) {
	circle, err := s.getCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}

	detail := &CircleDetail{Circle: *circle}
	member, err := s.store.Members().Get(ctx, circleID, userID)
	switch {
	case err == nil:
		detail.IsMember = true
		detail.MyRole = member.Role
	case errors.Is(err, repository.ErrNotFound):
		if circle.IsPrivate {
			return nil, forbidden("this circle is private")
		}
		detail.Circle.InviteCode = ""
	default:
		return nil, fmt.Errorf("get membership: %w", err)
	}

	members, err := s.store.Members().ListByCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].CirclePoints > members[j].CirclePoints
	})
	detail.Members = members
	return detail, nil
}

func (s *circleService) Update(ctx context.Context, userID string, circleID int64, in UpdateCircleInput) (*models.Circle, error) {
	circle, err := s.getCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, circleID, userID, "only admins can edit the circle"); err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := cleanText(*in.Name)
		if err := checkLength("name", name, 2, 100); err != nil {
			return nil, err
		}
		circle.Name = name
	}
	if in.Description != nil {
		circle.Description = cleanText(*in.Description)
	}
	if in.IsPrivate != nil {
		circle.IsPrivate = *in.IsPrivate
	}

	if err := s.store.Circles().Update(ctx, circle); err != nil {
		return nil, err
	}
	return circle, nil
}

func (s *circleService) SetMemberRole(ctx context.Context, userID string, circleID int64, targetUserID string, role models.MemberRole) error {
	if !role.Valid() {
		return invalid("role must be admin or member")
	}
	err := s.store.Transaction(ctx, func(tx Store) error {
		if err := lockCircle(ctx, tx, circleID); err != nil {
			return err
		}
		actor, err := tx.Members().GetForUpdate(ctx, circleID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return forbidden("not a member of this circle")
		}
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return forbidden("only admins can change roles")
		}

		target, err := tx.Members().GetForUpdate(ctx, circleID, targetUserID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("member not found")
		}
		if err != nil {
			return err
		}
		if target.Role == role {
			return nil
		}
		if target.IsAdmin() && role == models.RoleMember {
			admins, err := tx.Members().CountAdmins(ctx, circleID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return forbidden("a circle must keep at least one admin")
			}
		}
		return tx.Members().UpdateRole(ctx, circleID, targetUserID, role)
	})
	if err != nil {
		return wrapInternal("set member role", err)
	}
	s.log.Info("member_role_changed", "circle_id", circleID, "user_id", targetUserID, "role", role, "by", userID)
	return nil
}

func (s *circleService) getCircle(ctx context.Context, circleID int64) (*models.Circle, error) {
	circle, err := s.store.Circles().GetByID(ctx, circleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("circle not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get circle: %w", err)
	}
	return circle, nil
}

func (s *circleService) requireAdmin(ctx context.Context, circleID int64, userID, msg string) (*models.CircleMember, error) {
	member, err := requireMember(ctx, s.store, circleID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, forbidden("%s", msg)
	}
	return member, nil
}

func (s *circleService) invalidate(ctx context.Context, circleID int64) {
	invalidateLeaderboard(ctx, s.cache, s.log, circleID)
}
