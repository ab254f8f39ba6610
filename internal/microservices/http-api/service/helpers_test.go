package service

import (
	"context"
	"testing"
	"time"

	"circlehub/internal/microservices/http-api/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	alice = "a0000000-0000-0000-0000-000000000001"
	bob   = "b0000000-0000-0000-0000-000000000002"
	carol = "c0000000-0000-0000-0000-000000000003"

	duneID int64 = 900
)

type testEnv struct {
	store   *fakeStore
	cache   *memCache
	books   fakeBooks
	library fakeLibrary
	now     time.Time

	circles     *circleService
	challenges  *challengeService
	progress    *progressService
	leaderboard LeaderboardService
	activity    ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	store.addUser(alice, "alice")
	store.addUser(bob, "bob")
	store.addUser(carol, "carol")

	pages := 400
	env := &testEnv{
		store:   store,
		cache:   newMemCache(),
		books:   fakeBooks{duneID: {ID: duneID, Title: "Dune", Author: "Frank Herbert", PageCount: &pages}},
		library: fakeLibrary{},
		now:     time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	log := discardLogger()
	metrics := NewMetrics(prometheus.NewRegistry())
	clock := func() time.Time { return env.now }

	env.circles = NewCircleService(store, env.cache, log, metrics, 5).(*circleService)
	env.challenges = NewChallengeService(store, env.books, env.library, log).(*challengeService)
	env.challenges.now = clock
	env.progress = NewProgressService(store, env.books, env.library, env.cache, log, metrics).(*progressService)
	env.progress.now = clock
	env.leaderboard = NewLeaderboardService(store, env.cache, log)
	env.activity = NewActivityService(store)
	return env
}

func (e *testEnv) createCircle(t *testing.T, owner string, private bool) *models.Circle {
	t.Helper()
	c, err := e.circles.Create(context.Background(), owner, CreateCircleInput{Name: "Sci-fi Club", IsPrivate: private})
	require.NoError(t, err)
	return c
}

func (e *testEnv) join(t *testing.T, c *models.Circle, user string) {
	t.Helper()
	_, err := e.circles.JoinByCode(context.Background(), user, c.InviteCode)
	require.NoError(t, err)
}

func (e *testEnv) createRace(t *testing.T, circleID int64, creator string) *models.Challenge {
	t.Helper()
	book := duneID
	ch, err := e.challenges.Create(context.Background(), creator, circleID, CreateChallengeInput{
		Name:         "Race to Dune",
		Type:         models.ChallengeBookRace,
		TargetBookID: &book,
		EndDate:      e.now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return ch
}

func (e *testEnv) createCount(t *testing.T, circleID int64, creator string, kind models.ChallengeType, count int) *models.Challenge {
	t.Helper()
	ch, err := e.challenges.Create(context.Background(), creator, circleID, CreateChallengeInput{
		Name:        "Read more",
		Type:        kind,
		TargetCount: &count,
		EndDate:     e.now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return ch
}

func (e *testEnv) points(t *testing.T, circleID int64, user string) int {
	t.Helper()
	m, ok := e.store.member(circleID, user)
	require.True(t, ok, "membership missing")
	return m.CirclePoints
}
