package dto

import (
	"bytes"
	"encoding/json"

	"circlehub/internal/microservices/http-api/service"
)

// UpdateProgressRequest used for PUT .../progress. The body is either
// {"value": n} or a bare integer; the value may also be sent as the "value"
// query parameter.
type UpdateProgressRequest struct {
	Value *int `json:"value"`
}

func (r *UpdateProgressRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' && !bytes.Equal(trimmed, []byte("null")) {
		var n int
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		r.Value = &n
		return nil
	}
	type object UpdateProgressRequest
	return json.Unmarshal(data, (*object)(r))
}

type ProgressResponse struct {
	Message       string `json:"message"`
	CurrentValue  int    `json:"current_value"`
	Completed     bool   `json:"completed"`
	CompletedNow  bool   `json:"completed_now"`
	PointsAwarded int    `json:"points_awarded"`
}

func FromProgressResult(r *service.ProgressResult) ProgressResponse {
	return ProgressResponse{
		Message:       "Progress updated",
		CurrentValue:  r.CurrentValue,
		Completed:     r.Completed,
		CompletedNow:  r.CompletedNow,
		PointsAwarded: r.PointsAwarded,
	}
}

type SyncResponse struct {
	ProgressResponse
	LibraryPage int  `json:"library_page"`
	Applied     bool `json:"applied"`
}

func FromSyncResult(r *service.SyncResult) SyncResponse {
	resp := SyncResponse{
		ProgressResponse: FromProgressResult(&r.ProgressResult),
		LibraryPage:      r.LibraryPage,
		Applied:          r.Applied,
	}
	if r.Applied {
		resp.Message = "Progress synced from library"
	} else {
		resp.Message = "Library progress is not ahead of challenge progress"
	}
	return resp
}
