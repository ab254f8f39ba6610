package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
)

// ProgressResult is the state of the caller's progress after an update.
type ProgressResult struct {
	CurrentValue  int
	Completed     bool
	CompletedNow  bool
	PointsAwarded int
}

// SyncResult adds what the library reported and whether it was applied.
type SyncResult struct {
	ProgressResult
	LibraryPage int
	Applied     bool
}

type ProgressService interface {
	// SetProgress overwrites the caller's value on an open challenge.
	SetProgress(ctx context.Context, userID string, circleID, challengeID int64, value int) (*ProgressResult, error)
	// SyncFromLibrary raises a book race value to the caller's library page.
	// It never lowers the recorded value.
	SyncFromLibrary(ctx context.Context, userID string, circleID, challengeID int64) (*SyncResult, error)
}

type progressService struct {
	store   repository.Store
	books   repository.BookCatalog
	library repository.LibraryReader
	cache   LeaderboardCache
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewProgressService(
	store repository.Store,
	books repository.BookCatalog,
	library repository.LibraryReader,
	cache LeaderboardCache,
	log *slog.Logger,
	metrics *Metrics,
) ProgressService {
	return &progressService{
		store:   store,
		books:   books,
		library: library,
		cache:   cache,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// errNotAhead rolls back a sync whose library page is not ahead.
var errNotAhead = errors.New("library not ahead")

func (s *progressService) SetProgress(ctx context.Context, userID string, circleID, challengeID int64, value int) (*ProgressResult, error) {
	if _, err := requireMember(ctx, s.store, circleID, userID); err != nil {
		return nil, err
	}
	challenge, err := getChallenge(ctx, s.store, circleID, challengeID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !challenge.OpenAt(now) {
		return nil, invalid("this challenge is no longer active")
	}
	target, effective, err := s.resolveTarget(ctx, challenge)
	if err != nil {
		return nil, err
	}

	var out ProgressOutcome
	err = s.store.Transaction(ctx, func(tx Store) error {
		member, progress, err := lockProgress(ctx, tx, challenge, userID)
		if err != nil {
			return err
		}
		out, err = s.apply(ctx, tx, challenge, member, progress, target, effective, value, now, true)
		return err
	})
	if err != nil {
		return nil, wrapInternal("set progress", err)
	}

	s.after(ctx, challenge, userID, "manual", out)
	return &ProgressResult{
		CurrentValue:  out.NewValue,
		Completed:     out.Completed,
		CompletedNow:  out.CompletedNow,
		PointsAwarded: out.Points(),
	}, nil
}

func (s *progressService) SyncFromLibrary(ctx context.Context, userID string, circleID, challengeID int64) (*SyncResult, error) {
	if _, err := requireMember(ctx, s.store, circleID, userID); err != nil {
		return nil, err
	}
	challenge, err := getChallenge(ctx, s.store, circleID, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Kind != models.ChallengeBookRace {
		return nil, forbidden("sync only works for book race challenges")
	}
	if challenge.TargetBookID == nil {
		return nil, invalid("no target book for this challenge")
	}
	target, effective, err := s.resolveTarget(ctx, challenge)
	if err != nil {
		return nil, err
	}

	entry, err := s.library.GetEntry(ctx, userID, *challenge.TargetBookID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("add this book to your library first")
	}
	if err != nil {
		return nil, fmt.Errorf("get library entry: %w", err)
	}
	page := entry.Page()
	// a finished book counts as every page read
	if entry.IsFinished() && effective > 0 {
		page = effective
	}

	now := s.now().UTC()
	res := &SyncResult{LibraryPage: page}
	var out ProgressOutcome
	err = s.store.Transaction(ctx, func(tx Store) error {
		member, progress, err := lockProgress(ctx, tx, challenge, userID)
		if err != nil {
			return err
		}
		if page <= progress.CurrentValue {
			res.CurrentValue = progress.CurrentValue
			res.Completed = progress.Completed
			return errNotAhead
		}
		out, err = s.apply(ctx, tx, challenge, member, progress, target, effective, page, now, false)
		return err
	})
	if errors.Is(err, errNotAhead) {
		return res, nil
	}
	if err != nil {
		return nil, wrapInternal("sync progress", err)
	}

	s.after(ctx, challenge, userID, "library_sync", out)
	res.Applied = true
	res.CurrentValue = out.NewValue
	res.Completed = out.Completed
	res.CompletedNow = out.CompletedNow
	res.PointsAwarded = out.Points()
	return res, nil
}

// apply runs one award inside tx on rows locked by lockProgress: it applies
// the value, credits points and appends the feed rows.
func (s *progressService) apply(
	ctx context.Context,
	tx Store,
	challenge *models.Challenge,
	member *models.CircleMember,
	progress *models.ChallengeProgress,
	target models.Target,
	effective, value int,
	now time.Time,
	logJumps bool,
) (ProgressOutcome, error) {
	userID := member.UserID
	out := ApplyProgress(progress, target, effective, value, now)
	if err := tx.Progress().Save(ctx, progress); err != nil {
		return ProgressOutcome{}, err
	}
	if err := tx.Members().AddPoints(ctx, member.ID, out.Points()); err != nil {
		return ProgressOutcome{}, err
	}

	challengeID := challenge.ID
	if out.CompletedNow {
		if err := tx.Activities().Create(ctx, &models.CircleActivity{
			CircleID:    challenge.CircleID,
			UserID:      userID,
			Type:        models.ActivityChallengeComplete,
			ChallengeID: &challengeID,
			BookID:      challenge.TargetBookID,
			Content:     fmt.Sprintf("completed the challenge: %s!", challenge.Name),
		}); err != nil {
			return ProgressOutcome{}, err
		}
	}
	if logJumps && out.LogProgress {
		if err := tx.Activities().Create(ctx, &models.CircleActivity{
			CircleID:    challenge.CircleID,
			UserID:      userID,
			Type:        models.ActivityProgressUpdate,
			ChallengeID: &challengeID,
			BookID:      challenge.TargetBookID,
			Content:     fmt.Sprintf("made progress: now at %d", out.NewValue),
		}); err != nil {
			return ProgressOutcome{}, err
		}
	}
	return out, nil
}

func (s *progressService) after(ctx context.Context, challenge *models.Challenge, userID, source string, out ProgressOutcome) {
	s.metrics.progressApplied(string(challenge.Kind), source, out)
	if out.Points() > 0 || out.CompletedNow {
		invalidateLeaderboard(ctx, s.cache, s.log, challenge.CircleID)
	}
	if out.CompletedNow {
		s.log.Info("challenge_completed",
			"circle_id", challenge.CircleID,
			"challenge_id", challenge.ID,
			"user_id", userID,
			"source", source,
		)
	}
	s.log.Debug("progress_applied",
		"challenge_id", challenge.ID,
		"user_id", userID,
		"old_value", out.OldValue,
		"new_value", out.NewValue,
		"points", out.Points(),
	)
}

// resolveTarget returns the challenge target and the value that completes it.
func (s *progressService) resolveTarget(ctx context.Context, challenge *models.Challenge) (models.Target, int, error) {
	target, err := challenge.Target()
	if err != nil {
		return nil, 0, fmt.Errorf("challenge %d has an unreadable target: %w", challenge.ID, err)
	}
	var book *models.Book
	if race, ok := target.(models.BookRaceTarget); ok {
		book, err = s.books.GetBook(ctx, race.BookID)
		if errors.Is(err, repository.ErrNotFound) {
			book, err = nil, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("get target book: %w", err)
		}
	}
	return target, EffectiveTarget(target, book), nil
}

// lockProgress locks the membership and then the progress row, lazily
// creating the latter. Every writer takes the locks in this order.
func lockProgress(ctx context.Context, tx Store, challenge *models.Challenge, userID string) (*models.CircleMember, *models.ChallengeProgress, error) {
	member, err := tx.Members().GetForUpdate(ctx, challenge.CircleID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, forbidden("not a member of this circle")
	}
	if err != nil {
		return nil, nil, err
	}
	progress, err := tx.Progress().GetOrCreateForUpdate(ctx, challenge.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	return member, progress, nil
}
