package dto

import (
	"time"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
	"circlehub/internal/microservices/http-api/service"
)

// CreateCircleRequest used for POST /circles
type CreateCircleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

func (r CreateCircleRequest) ToInput() service.CreateCircleInput {
	return service.CreateCircleInput{Name: r.Name, Description: r.Description, IsPrivate: r.IsPrivate}
}

// UpdateCircleRequest used for PUT /circles/:id (partial updates allowed)
type UpdateCircleRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
}

func (r UpdateCircleRequest) ToInput() service.UpdateCircleInput {
	return service.UpdateCircleInput{Name: r.Name, Description: r.Description, IsPrivate: r.IsPrivate}
}

type SetMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

type CircleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InviteCode  string    `json:"invite_code,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromCircle(c models.Circle) CircleResponse {
	return CircleResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		InviteCode:  c.InviteCode,
		IsPrivate:   c.IsPrivate,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
}

// CircleSummaryResponse is a row of GET /circles and GET /circles/discover.
type CircleSummaryResponse struct {
	CircleResponse
	MemberCount int64  `json:"member_count"`
	MyRole      string `json:"my_role,omitempty"`
	MyPoints    *int   `json:"my_points,omitempty"`
}

// FromSummaries hides invite codes unless the caller is a member.
func FromSummaries(list []repository.CircleSummary) []CircleSummaryResponse {
	out := make([]CircleSummaryResponse, 0, len(list))
	for _, s := range list {
		resp := CircleSummaryResponse{
			CircleResponse: FromCircle(s.Circle),
			MemberCount:    s.MemberCount,
		}
		if s.MyRole != "" {
			points := s.MyPoints
			resp.MyRole = string(s.MyRole)
			resp.MyPoints = &points
		} else {
			resp.InviteCode = ""
		}
		out = append(out, resp)
	}
	return out
}

type MemberResponse struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Role         string    `json:"role"`
	CirclePoints int       `json:"circle_points"`
	JoinedAt     time.Time `json:"joined_at"`
}

type CircleDetailResponse struct {
	CircleResponse
	IsMember bool             `json:"is_member"`
	MyRole   string           `json:"my_role,omitempty"`
	Members  []MemberResponse `json:"members"`
}

func FromCircleDetail(d *service.CircleDetail) CircleDetailResponse {
	members := make([]MemberResponse, 0, len(d.Members))
	for _, m := range d.Members {
		members = append(members, MemberResponse{
			UserID:       m.UserID,
			Username:     m.Username,
			AvatarURL:    m.AvatarURL,
			Role:         string(m.Role),
			CirclePoints: m.CirclePoints,
			JoinedAt:     m.JoinedAt,
		})
	}
	return CircleDetailResponse{
		CircleResponse: FromCircle(d.Circle),
		IsMember:       d.IsMember,
		MyRole:         string(d.MyRole),
		Members:        members,
	}
}
