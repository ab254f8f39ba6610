package service

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLeaderboard_SortedWithCompletions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	env.join(t, c, bob)
	env.join(t, c, carol)
	ch := env.createRace(t, c.ID, alice)

	_, err := env.progress.SetProgress(ctx, bob, c.ID, ch.ID, 400)
	require.NoError(t, err)
	_, err = env.progress.SetProgress(ctx, carol, c.ID, ch.ID, 30)
	require.NoError(t, err)
	_, err = env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 30)
	require.NoError(t, err)

	board, err := env.leaderboard.Leaderboard(ctx, carol, c.ID)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, "bob", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 450, board[0].CirclePoints)
	assert.Equal(t, 1, board[0].ChallengesCompleted)

	// equal points fall back to username
	assert.Equal(t, "alice", board[1].Username)
	assert.Equal(t, "carol", board[2].Username)
	assert.True(t, board[2].IsCurrentUser)
	assert.False(t, board[0].IsCurrentUser)

	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].CirclePoints, board[i].CirclePoints)
	}
}

func TestLeaderboard_CachedUntilPointsChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)

	_, err := env.leaderboard.Leaderboard(ctx, alice, c.ID)
	require.NoError(t, err)
	_, cached := env.cache.boards[c.ID]
	assert.True(t, cached)

	_, err = env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 10)
	require.NoError(t, err)
	_, cached = env.cache.boards[c.ID]
	assert.False(t, cached)

	board, err := env.leaderboard.Leaderboard(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, board[0].CirclePoints)
}

// awardDuringFill commits an award between the leaderboard read and the
// cache fill of the first Set it sees.
type awardDuringFill struct {
	*memCache
	award func()
	once  sync.Once
}

func (c *awardDuringFill) Set(ctx context.Context, circleID, gen int64, rows []repository.LeaderboardRow) error {
	c.once.Do(c.award)
	return c.memCache.Set(ctx, circleID, gen, rows)
}

func TestLeaderboard_FillRacingAnAwardIsDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)

	cache := &awardDuringFill{memCache: env.cache}
	cache.award = func() {
		_, err := env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 400)
		require.NoError(t, err)
	}
	board := NewLeaderboardService(env.store, cache, discardLogger())

	first, err := board.Leaderboard(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first[0].CirclePoints, "computed before the award committed")
	_, cached := env.cache.boards[c.ID]
	assert.False(t, cached, "a board older than the last invalidation must not be stored")

	second, err := board.Leaderboard(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 450, second[0].CirclePoints)
	assert.Equal(t, 450, env.points(t, c.ID, alice))

	_, cached = env.cache.boards[c.ID]
	assert.True(t, cached)
}

func TestLeaderboard_NonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCircle(t, alice, false)

	_, err := env.leaderboard.Leaderboard(context.Background(), bob, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSortLeaderboard_Deterministic(t *testing.T) {
	rows := []repository.LeaderboardRow{
		{UserID: "u3", Username: "sam", CirclePoints: 10},
		{UserID: "u2", Username: "sam", CirclePoints: 10},
		{UserID: "u1", Username: "ann", CirclePoints: 5},
		{UserID: "u4", Username: "zed", CirclePoints: 99},
	}
	SortLeaderboard(rows)

	var ids []string
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	assert.Equal(t, []string{"u4", "u2", "u3", "u1"}, ids)
}

func TestWriteLeaderboardXLSX(t *testing.T) {
	export := &LeaderboardExport{
		Circle: models.Circle{Name: "Sci-fi Club"},
		Entries: []LeaderboardEntry{
			{Rank: 1, LeaderboardRow: repository.LeaderboardRow{Username: "bob", CirclePoints: 450, ChallengesCompleted: 1}},
			{Rank: 2, LeaderboardRow: repository.LeaderboardRow{Username: "alice", CirclePoints: 30}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLeaderboardXLSX(&buf, export))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(leaderboardSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rank", "Username", "Circle points", "Challenges completed"}, rows[0])
	assert.Equal(t, []string{"1", "bob", "450", "1"}, rows[1])
	assert.Equal(t, []string{"2", "alice", "30", "0"}, rows[2])
}

func TestActivityFeed_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	env.join(t, c, bob)

	feed, err := env.activity.List(ctx, alice, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, models.ActivityJoined, feed[0].Type)
	assert.Equal(t, "bob", feed[0].Username)
	assert.Equal(t, models.ActivityCircleCreated, feed[1].Type)

	feed, err = env.activity.List(ctx, alice, c.ID, 1)
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	_, err = env.activity.List(ctx, carol, c.ID, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}
