package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
)

type CreateChallengeInput struct {
	Name         string
	Description  string
	Type         models.ChallengeType
	TargetBookID *int64
	TargetCount  *int
	TargetGenre  *string
	// StartDate defaults to now.
	StartDate *time.Time
	EndDate   time.Time
}

// ProgressEntry is one member's standing on a challenge.
type ProgressEntry struct {
	repository.ProgressView
	Percentage    float64
	IsCurrentUser bool
}

// LibraryStatus is the requester's own library state for a race book.
type LibraryStatus struct {
	InLibrary   bool
	Status      string
	CurrentPage int
}

// ChallengeBoard is a challenge with its target resolved and everyone's
// progress attached.
type ChallengeBoard struct {
	Challenge       models.Challenge
	Target          models.Target
	EffectiveTarget int
	TargetBook      *models.Book
	Library         *LibraryStatus
	Progress        []ProgressEntry
}

type ChallengeService interface {
	Create(ctx context.Context, userID string, circleID int64, in CreateChallengeInput) (*models.Challenge, error)
	List(ctx context.Context, userID string, circleID int64, activeOnly bool) ([]ChallengeBoard, error)
	SetActive(ctx context.Context, userID string, circleID, challengeID int64, active bool) (*models.Challenge, error)
}

type challengeService struct {
	store   repository.Store
	books   repository.BookCatalog
	library repository.LibraryReader
	log     *slog.Logger
	now     func() time.Time
}

func NewChallengeService(store repository.Store, books repository.BookCatalog, library repository.LibraryReader, log *slog.Logger) ChallengeService {
	return &challengeService{
		store:   store,
		books:   books,
		library: library,
		log:     log,
		now:     time.Now,
	}
}

func (s *challengeService) Create(ctx context.Context, userID string, circleID int64, in CreateChallengeInput) (*models.Challenge, error) {
	if _, err := requireMember(ctx, s.store, circleID, userID); err != nil {
		return nil, err
	}

	name := cleanText(in.Name)
	if err := checkLength("name", name, 2, 150); err != nil {
		return nil, err
	}
	target, err := models.NewTarget(in.Type, in.TargetBookID, in.TargetCount, in.TargetGenre)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if race, ok := target.(models.BookRaceTarget); ok {
		if _, err := s.books.GetBook(ctx, race.BookID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("target book not found")
			}
			return nil, fmt.Errorf("resolve target book: %w", err)
		}
	}

	start := s.now().UTC()
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate.IsZero() {
		return nil, invalid("end_date is required")
	}
	if !in.EndDate.After(start) {
		return nil, invalid("end_date must be after start_date")
	}

	challenge := &models.Challenge{
		CircleID:    circleID,
		Name:        name,
		Description: cleanText(in.Description),
		StartDate:   start,
		EndDate:     in.EndDate,
		IsActive:    true,
		CreatedBy:   userID,
	}
	challenge.SetTarget(target)

	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := tx.Challenges().Create(ctx, challenge); err != nil {
			return err
		}
		// members who join later get their row lazily on first update
		members, err := tx.Members().ListByCircle(ctx, circleID)
		if err != nil {
			return err
		}
		rows := make([]models.ChallengeProgress, 0, len(members))
		for _, m := range members {
			rows = append(rows, models.ChallengeProgress{ChallengeID: challenge.ID, UserID: m.UserID})
		}
		if err := tx.Progress().Seed(ctx, rows); err != nil {
			return err
		}
		challengeID := challenge.ID
		return tx.Activities().Create(ctx, &models.CircleActivity{
			CircleID:    circleID,
			UserID:      userID,
			Type:        models.ActivityChallengeCreated,
			ChallengeID: &challengeID,
			BookID:      challenge.TargetBookID,
			Content:     fmt.Sprintf("created a new challenge: %s", challenge.Name),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}

	s.log.Info("challenge_created",
		"circle_id", circleID,
		"challenge_id", challenge.ID,
		"challenge_type", challenge.Kind,
		"user_id", userID,
	)
	return challenge, nil
}

func (s *challengeService) List(ctx context.Context, userID string, circleID int64, activeOnly bool) ([]ChallengeBoard, error) {
	if _, err := requireMember(ctx, s.store, circleID, userID); err != nil {
		return nil, err
	}

	challenges, err := s.store.Challenges().List(ctx, circleID, activeOnly, s.now().UTC())
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}
	progress, err := s.store.Progress().ListByChallenges(ctx, ids)
	if err != nil {
		return nil, err
	}
	byChallenge := make(map[int64][]repository.ProgressView, len(challenges))
	for _, p := range progress {
		byChallenge[p.ChallengeID] = append(byChallenge[p.ChallengeID], p)
	}

	books := make(map[int64]*models.Book)
	boards := make([]ChallengeBoard, 0, len(challenges))
	for _, c := range challenges {
		target, err := c.Target()
		if err != nil {
			// listed without a target
			s.log.Warn("challenge_target_invalid", "challenge_id", c.ID, "error", err)
		}
		board := ChallengeBoard{Challenge: c, Target: target}

		if race, ok := target.(models.BookRaceTarget); ok {
			book, err := s.cachedBook(ctx, books, race.BookID)
			if err != nil {
				return nil, err
			}
			board.TargetBook = book
			board.Library, err = s.libraryStatus(ctx, userID, race.BookID)
			if err != nil {
				return nil, err
			}
		}
		if target != nil {
			board.EffectiveTarget = EffectiveTarget(target, board.TargetBook)
		}

		entries := make([]ProgressEntry, 0, len(byChallenge[c.ID]))
		for _, p := range byChallenge[c.ID] {
			entries = append(entries, ProgressEntry{
				ProgressView:  p,
				Percentage:    Percentage(p.CurrentValue, board.EffectiveTarget),
				IsCurrentUser: p.UserID == userID,
			})
		}
		sortProgress(entries)
		board.Progress = entries
		boards = append(boards, board)
	}
	return boards, nil
}

// sortProgress orders leaders first, then by username and user id so equal
// values always come out in the same order.
func sortProgress(entries []ProgressEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.CurrentValue != b.CurrentValue {
			return a.CurrentValue > b.CurrentValue
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})
}

func (s *challengeService) cachedBook(ctx context.Context, seen map[int64]*models.Book, id int64) (*models.Book, error) {
	if b, ok := seen[id]; ok {
		return b, nil
	}
	b, err := s.books.GetBook(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		b, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get target book: %w", err)
	}
	seen[id] = b
	return b, nil
}

func (s *challengeService) libraryStatus(ctx context.Context, userID string, bookID int64) (*LibraryStatus, error) {
	entry, err := s.library.GetEntry(ctx, userID, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return &LibraryStatus{InLibrary: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get library entry: %w", err)
	}
	return &LibraryStatus{InLibrary: true, Status: entry.Status, CurrentPage: entry.Page()}, nil
}

// SetActive lets an admin or the challenge's creator open or close it.
func (s *challengeService) SetActive(ctx context.Context, userID string, circleID, challengeID int64, active bool) (*models.Challenge, error) {
	member, err := requireMember(ctx, s.store, circleID, userID)
	if err != nil {
		return nil, err
	}
	challenge, err := getChallenge(ctx, s.store, circleID, challengeID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() && challenge.CreatedBy != userID {
		return nil, forbidden("only admins or the challenge creator can change it")
	}
	if err := s.store.Challenges().SetActive(ctx, challengeID, active); err != nil {
		return nil, err
	}
	challenge.IsActive = active
	s.log.Info("challenge_active_changed", "challenge_id", challengeID, "active", active, "user_id", userID)
	return challenge, nil
}

func getChallenge(ctx context.Context, store repository.Store, circleID, challengeID int64) (*models.Challenge, error) {
	challenge, err := store.Challenges().GetInCircle(ctx, circleID, challengeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("challenge not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return challenge, nil
}
