package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"circlehub/internal/microservices/http-api/repository"
)

type YearMonth struct {
	Year  int
	Month time.Month
}

// next is the calendar month after ym.
func (ym YearMonth) next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

func (ym YearMonth) before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

// Label formats as "January 2024".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", ym.Month, ym.Year)
}

type ProductiveMonth struct {
	YearMonth
	Count int
}

// ReadingStreak is derived on demand and never stored.
type ReadingStreak struct {
	CurrentStreak       int
	LongestStreak       int
	BooksThisMonth      int
	BooksThisYear       int
	MostProductiveMonth *ProductiveMonth
	ReadingSince        *YearMonth
}

// MonthBuckets counts completions per calendar month. Months without a
// completion have no key.
func MonthBuckets(completions []time.Time) map[YearMonth]int {
	buckets := make(map[YearMonth]int)
	for _, t := range completions {
		if t.IsZero() {
			continue
		}
		buckets[YearMonth{Year: t.Year(), Month: t.Month()}]++
	}
	return buckets
}

// ComputeStreak derives the streak statistics for completions as seen at now.
func ComputeStreak(completions []time.Time, now time.Time) ReadingStreak {
	buckets := MonthBuckets(completions)
	var out ReadingStreak
	if len(buckets) == 0 {
		return out
	}

	current := YearMonth{Year: now.Year(), Month: now.Month()}
	for ym := current; buckets[ym] > 0; ym = ym.prev() {
		out.CurrentStreak++
	}

	months := make([]YearMonth, 0, len(buckets))
	for ym := range buckets {
		months = append(months, ym)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].before(months[j]) })

	run := 0
	for i, ym := range months {
		if i > 0 && months[i-1].next() == ym {
			run++
		} else {
			run = 1
		}
		if run > out.LongestStreak {
			out.LongestStreak = run
		}
	}

	// chronological scan so the earliest month wins a tie
	var best *ProductiveMonth
	for _, ym := range months {
		if best == nil || buckets[ym] > best.Count {
			best = &ProductiveMonth{YearMonth: ym, Count: buckets[ym]}
		}
		if ym.Year == current.Year {
			out.BooksThisYear += buckets[ym]
		}
	}
	out.MostProductiveMonth = best
	out.BooksThisMonth = buckets[current]
	since := months[0]
	out.ReadingSince = &since
	return out
}

type StreakService interface {
	ReadingStreak(ctx context.Context, userID string) (*ReadingStreak, error)
}

type streakService struct {
	library repository.LibraryReader
	now     func() time.Time
}

func NewStreakService(library repository.LibraryReader) StreakService {
	return &streakService{library: library, now: time.Now}
}

func (s *streakService) ReadingStreak(ctx context.Context, userID string) (*ReadingStreak, error) {
	entries, err := s.library.ListFinished(ctx, userID)
	if err != nil {
		return nil, err
	}
	completions := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		completions = append(completions, e.CompletedAt().UTC())
	}
	streak := ComputeStreak(completions, s.now().UTC())
	return &streak, nil
}
