package dto

import "circlehub/internal/microservices/http-api/service"

type ProductiveMonthResponse struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Num   int    `json:"month_number"`
	Count int    `json:"count"`
}

type YearMonthResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type ReadingStreakResponse struct {
	CurrentStreakMonths int                      `json:"current_streak_months"`
	LongestStreakMonths int                      `json:"longest_streak_months"`
	BooksThisMonth      int                      `json:"books_this_month"`
	BooksThisYear       int                      `json:"books_this_year"`
	MostProductiveMonth *ProductiveMonthResponse `json:"most_productive_month"`
	ReadingSince        *YearMonthResponse       `json:"reading_since"`
}

func FromReadingStreak(s *service.ReadingStreak) ReadingStreakResponse {
	resp := ReadingStreakResponse{
		CurrentStreakMonths: s.CurrentStreak,
		LongestStreakMonths: s.LongestStreak,
		BooksThisMonth:      s.BooksThisMonth,
		BooksThisYear:       s.BooksThisYear,
	}
	if m := s.MostProductiveMonth; m != nil {
		resp.MostProductiveMonth = &ProductiveMonthResponse{
			Month: m.Label(),
			Year:  m.Year,
			Num:   int(m.Month),
			Count: m.Count,
		}
	}
	if r := s.ReadingSince; r != nil {
		resp.ReadingSince = &YearMonthResponse{Year: r.Year, Month: int(r.Month)}
	}
	return resp
}
