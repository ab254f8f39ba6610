package dto

import (
	"time"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/service"
)

// CreateChallengeRequest used for POST /circles/:id/challenges. Which target
// fields are required depends on challenge_type.
type CreateChallengeRequest struct {
	Name          string     `json:"name" binding:"required"`
	Description   string     `json:"description"`
	ChallengeType string     `json:"challenge_type" binding:"required,oneof=book_race books_count pages_count genre_challenge"`
	TargetBookID  *int64     `json:"target_book_id,omitempty"`
	TargetCount   *int       `json:"target_count,omitempty"`
	TargetGenre   *string    `json:"target_genre,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       time.Time  `json:"end_date" binding:"required"`
}

func (r CreateChallengeRequest) ToInput() service.CreateChallengeInput {
	return service.CreateChallengeInput{
		Name:         r.Name,
		Description:  r.Description,
		Type:         models.ChallengeType(r.ChallengeType),
		TargetBookID: r.TargetBookID,
		TargetCount:  r.TargetCount,
		TargetGenre:  r.TargetGenre,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
	}
}

type SetChallengeActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// TargetResponse is one of BookRaceTargetResponse, CountTargetResponse or
// GenreTargetResponse. Each variant carries only its own fields.
type TargetResponse interface {
	targetType() string
}

type BookRaceTargetResponse struct {
	Type     string  `json:"type"`
	BookID   int64   `json:"book_id"`
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	CoverURL *string `json:"cover_url,omitempty"`
	Pages    *int    `json:"pages,omitempty"`
}

type CountTargetResponse struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type GenreTargetResponse struct {
	Type  string `json:"type"`
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

func (r BookRaceTargetResponse) targetType() string { return r.Type }
func (r CountTargetResponse) targetType() string    { return r.Type }
func (r GenreTargetResponse) targetType() string    { return r.Type }

// FromTarget builds the response variant; book may be nil.
func FromTarget(t models.Target, book *models.Book) TargetResponse {
	switch v := t.(type) {
	case models.BookRaceTarget:
		resp := BookRaceTargetResponse{Type: string(v.Type()), BookID: v.BookID}
		if book != nil {
			title, author := book.Title, book.Author
			resp.Title, resp.Author = &title, &author
			resp.CoverURL = book.CoverURL
			resp.Pages = book.PageCount
		}
		return resp
	case models.BooksCountTarget:
		return CountTargetResponse{Type: string(v.Type()), Count: v.Count}
	case models.PagesCountTarget:
		return CountTargetResponse{Type: string(v.Type()), Count: v.Count}
	case models.GenreTarget:
		return GenreTargetResponse{Type: string(v.Type()), Genre: v.Genre, Count: v.Count}
	}
	return nil
}

type ProgressEntryResponse struct {
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	CurrentValue  int        `json:"current_value"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Percentage    float64    `json:"percentage"`
	IsCurrentUser bool       `json:"is_current_user"`
}

type LibraryStatusResponse struct {
	InLibrary   bool    `json:"in_library"`
	Status      *string `json:"status"`
	CurrentPage int     `json:"current_page"`
}

type ChallengeResponse struct {
	ID                int64                   `json:"id"`
	CircleID          int64                   `json:"circle_id"`
	Name              string                  `json:"name"`
	Description       string                  `json:"description"`
	ChallengeType     string                  `json:"challenge_type"`
	Target            TargetResponse          `json:"target"`
	EffectiveTarget   int                     `json:"effective_target"`
	StartDate         time.Time               `json:"start_date"`
	EndDate           time.Time               `json:"end_date"`
	IsActive          bool                    `json:"is_active"`
	CreatedBy         string                  `json:"created_by"`
	CreatedAt         time.Time               `json:"created_at"`
	Progress          []ProgressEntryResponse `json:"progress,omitempty"`
	UserLibraryStatus *LibraryStatusResponse  `json:"user_library_status,omitempty"`
}

func FromChallenge(c models.Challenge) ChallengeResponse {
	resp := ChallengeResponse{
		ID:            c.ID,
		CircleID:      c.CircleID,
		Name:          c.Name,
		Description:   c.Description,
		ChallengeType: string(c.Kind),
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		IsActive:      c.IsActive,
		CreatedBy:     c.CreatedBy,
		CreatedAt:     c.CreatedAt,
	}
	if t, err := c.Target(); err == nil {
		resp.Target = FromTarget(t, nil)
	}
	return resp
}

func FromChallengeBoards(boards []service.ChallengeBoard) []ChallengeResponse {
	out := make([]ChallengeResponse, 0, len(boards))
	for _, b := range boards {
		resp := FromChallenge(b.Challenge)
		if b.Target != nil {
			resp.Target = FromTarget(b.Target, b.TargetBook)
		}
		resp.EffectiveTarget = b.EffectiveTarget

		resp.Progress = make([]ProgressEntryResponse, 0, len(b.Progress))
		for _, p := range b.Progress {
			resp.Progress = append(resp.Progress, ProgressEntryResponse{
				UserID:        p.UserID,
				Username:      p.Username,
				AvatarURL:     p.AvatarURL,
				CurrentValue:  p.CurrentValue,
				Completed:     p.Completed,
				CompletedAt:   p.CompletedAt,
				Percentage:    p.Percentage,
				IsCurrentUser: p.IsCurrentUser,
			})
		}

		if b.Library != nil {
			lib := &LibraryStatusResponse{InLibrary: b.Library.InLibrary, CurrentPage: b.Library.CurrentPage}
			if b.Library.InLibrary {
				status := b.Library.Status
				lib.Status = &status
			}
			resp.UserLibraryStatus = lib
		}
		out = append(out, resp)
	}
	return out
}
