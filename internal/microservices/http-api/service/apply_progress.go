package service

import (
	"time"

	"circlehub/internal/microservices/http-api/models"
)

const (
	// CompletionBonus is awarded once per (challenge, user) when the target
	// is first reached.
	CompletionBonus = 50
	// progressLogThreshold is the smallest jump that gets a feed entry.
	progressLogThreshold = 50
)

// ProgressOutcome is the result of applying a new value to a progress row.
type ProgressOutcome struct {
	OldValue     int
	NewValue     int
	Completed    bool
	CompletedNow bool
	// DeltaPoints is the award for the increase alone.
	DeltaPoints int
	// Bonus is CompletionBonus when CompletedNow, else 0.
	Bonus int
	// LogProgress reports whether a progress_update activity is due.
	LogProgress bool
}

// Points is the total award of this application.
func (o ProgressOutcome) Points() int {
	return o.DeltaPoints + o.Bonus
}

// ApplyProgress overwrites p.CurrentValue with max(0, value) and computes
// the awards. Points derive from max(0, new-old) so repeated or lower
// values never credit twice, and Completed is never cleared.
func ApplyProgress(p *models.ChallengeProgress, target models.Target, effectiveTarget, value int, now time.Time) ProgressOutcome {
	out := ProgressOutcome{OldValue: p.CurrentValue}
	if value < 0 {
		value = 0
	}
	p.CurrentValue = value
	p.UpdatedAt = now
	out.NewValue = value

	if value >= effectiveTarget && !p.Completed {
		p.Completed = true
		completedAt := now
		p.CompletedAt = &completedAt
		out.CompletedNow = true
		out.Bonus = CompletionBonus
	}
	out.Completed = p.Completed

	delta := value - out.OldValue
	if delta < 0 {
		delta = 0
	}
	out.DeltaPoints = delta * target.PointsPerUnit()
	out.LogProgress = delta >= progressLogThreshold || out.CompletedNow
	return out
}

// EffectiveTarget is the value at which a challenge counts as complete.
// For a book race it is the target book's page count, 0 when unknown.
func EffectiveTarget(target models.Target, book *models.Book) int {
	switch t := target.(type) {
	case models.BookRaceTarget:
		return book.Pages()
	case models.BooksCountTarget:
		return t.Count
	case models.PagesCountTarget:
		return t.Count
	case models.GenreTarget:
		return t.Count
	}
	return 0
}

// Percentage is min(value/target, 1) as a percentage rounded to one decimal.
func Percentage(value, target int) float64 {
	if target <= 0 {
		return 0
	}
	ratio := float64(value) / float64(target)
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return float64(int(ratio*1000+0.5)) / 10
}
