package client

// http_client.go wraps the circlehub REST API for the CLI.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"circlehub/internal/microservices/http-api/dto"
)

var ErrNotAuthenticated = errors.New("not logged in: run `circlehub auth token <jwt>` first")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// Challenge mirrors the challenge listing. The target is kept as a plain
// map because its shape depends on challenge_type.
type Challenge struct {
	ID              int64                       `json:"id"`
	CircleID        int64                       `json:"circle_id"`
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	ChallengeType   string                      `json:"challenge_type"`
	Target          map[string]any              `json:"target"`
	EffectiveTarget int                         `json:"effective_target"`
	StartDate       time.Time                   `json:"start_date"`
	EndDate         time.Time                   `json:"end_date"`
	IsActive        bool                        `json:"is_active"`
	Progress        []dto.ProgressEntryResponse `json:"progress"`
	Library         *dto.LibraryStatusResponse  `json:"user_library_status"`
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// constructor for HTTP client
func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// do sends one request and decodes the JSON answer into out when out is
// not nil. Any status other than want becomes an *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
}

// Circles

func (c *HTTPClient) ListCircles(ctx context.Context) ([]dto.CircleSummaryResponse, error) {
	var out []dto.CircleSummaryResponse
	err := c.do(ctx, http.MethodGet, "/circles", nil, http.StatusOK, &out)
	return out, err
}

func (c *HTTPClient) DiscoverCircles(ctx context.Context, limit int) ([]dto.CircleSummaryResponse, error) {
	path := "/circles/discover"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []dto.CircleSummaryResponse
	err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out)
	return out, err
}

func (c *HTTPClient) CreateCircle(ctx context.Context, req dto.CreateCircleRequest) (*dto.CircleResponse, error) {
	var out dto.CircleResponse
	if err := c.do(ctx, http.MethodPost, "/circles", req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetCircle(ctx context.Context, circleID int64) (*dto.CircleDetailResponse, error) {
	var out dto.CircleDetailResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/circles/%d", circleID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinResult is the body of both join endpoints.
type JoinResult struct {
	Message    string `json:"message"`
	CircleID   int64  `json:"circle_id"`
	CircleName string `json:"circle_name"`
}

func (c *HTTPClient) JoinByCode(ctx context.Context, code string) (*JoinResult, error) {
	var out JoinResult
	path := "/circles/join/" + url.PathEscape(strings.TrimSpace(code))
	if err := c.do(ctx, http.MethodPost, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) JoinCircle(ctx context.Context, circleID int64) (*JoinResult, error) {
	var out JoinResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/circles/%d/join", circleID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) LeaveCircle(ctx context.Context, circleID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/circles/%d/leave", circleID), nil, http.StatusOK, nil)
}

func (c *HTTPClient) DeleteCircle(ctx context.Context, circleID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/circles/%d", circleID), nil, http.StatusNoContent, nil)
}

func (c *HTTPClient) SetMemberRole(ctx context.Context, circleID int64, userID, role string) error {
	path := fmt.Sprintf("/circles/%d/members/%s/role", circleID, url.PathEscape(userID))
	return c.do(ctx, http.MethodPut, path, dto.SetMemberRoleRequest{Role: role}, http.StatusOK, nil)
}

// Challenges

func (c *HTTPClient) ListChallenges(ctx context.Context, circleID int64, includeClosed bool) ([]Challenge, error) {
	path := fmt.Sprintf("/circles/%d/challenges", circleID)
	if includeClosed {
		path += "?active_only=false"
	}
	var out []Challenge
	err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out)
	return out, err
}

func (c *HTTPClient) CreateChallenge(ctx context.Context, circleID int64, req dto.CreateChallengeRequest) (*Challenge, error) {
	var out Challenge
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/circles/%d/challenges", circleID), req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SetChallengeActive(ctx context.Context, circleID, challengeID int64, active bool) (*Challenge, error) {
	var out Challenge
	path := fmt.Sprintf("/circles/%d/challenges/%d", circleID, challengeID)
	if err := c.do(ctx, http.MethodPatch, path, dto.SetChallengeActiveRequest{IsActive: &active}, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress

func (c *HTTPClient) SetProgress(ctx context.Context, circleID, challengeID int64, value int) (*dto.ProgressResponse, error) {
	var out dto.ProgressResponse
	path := fmt.Sprintf("/circles/%d/challenges/%d/progress", circleID, challengeID)
	if err := c.do(ctx, http.MethodPut, path, dto.UpdateProgressRequest{Value: &value}, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SyncProgress(ctx context.Context, circleID, challengeID int64) (*dto.SyncResponse, error) {
	var out dto.SyncResponse
	path := fmt.Sprintf("/circles/%d/challenges/%d/sync", circleID, challengeID)
	if err := c.do(ctx, http.MethodPost, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard, feed and stats

func (c *HTTPClient) Leaderboard(ctx context.Context, circleID int64) ([]dto.LeaderboardEntryResponse, error) {
	var out []dto.LeaderboardEntryResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/circles/%d/leaderboard", circleID), nil, http.StatusOK, &out)
	return out, err
}

// ExportLeaderboard copies the xlsx download into w.
func (c *HTTPClient) ExportLeaderboard(ctx context.Context, circleID int64, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, fmt.Sprintf("/circles/%d/leaderboard/export", circleID), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *HTTPClient) Activity(ctx context.Context, circleID int64, limit int) ([]dto.ActivityResponse, error) {
	path := fmt.Sprintf("/circles/%d/activity", circleID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []dto.ActivityResponse
	err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out)
	return out, err
}

func (c *HTTPClient) ReadingStreak(ctx context.Context) (*dto.ReadingStreakResponse, error) {
	var out dto.ReadingStreakResponse
	if err := c.do(ctx, http.MethodGet, "/stats/reading-streak", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
