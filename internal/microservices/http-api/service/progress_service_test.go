package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"circlehub/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProgress_RaceToDune(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)

	res, err := env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 400)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.CompletedNow)
	assert.Equal(t, 450, res.PointsAwarded)
	assert.Equal(t, 450, env.points(t, c.ID, alice))
	assert.Len(t, env.store.activitiesOf(c.ID, models.ActivityChallengeComplete), 1)
	assert.Len(t, env.store.activitiesOf(c.ID, models.ActivityProgressUpdate), 1)

	// a regression overwrites the value but keeps completion and points
	res, err = env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, res.CurrentValue)
	assert.True(t, res.Completed)
	assert.False(t, res.CompletedNow)
	assert.Equal(t, 0, res.PointsAwarded)
	assert.Equal(t, 450, env.points(t, c.ID, alice))
	assert.Len(t, env.store.activitiesOf(c.ID, models.ActivityChallengeComplete), 1)
}

func TestSetProgress_CountChallengePoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	ch := env.createCount(t, c.ID, alice, models.ChallengeBooksCount, 5)

	res, err := env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 20, res.PointsAwarded)
	assert.Empty(t, env.store.activitiesOf(c.ID, models.ActivityProgressUpdate), "small jumps are not logged")

	res, err = env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 5)
	require.NoError(t, err)
	assert.True(t, res.CompletedNow)
	assert.Equal(t, 80, res.PointsAwarded)
	assert.Equal(t, 100, env.points(t, c.ID, alice))
}

func TestSetProgress_LateJoinerCreatesRowLazily(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)
	env.join(t, c, carol)

	_, err := env.progress.SetProgress(context.Background(), carol, c.ID, ch.ID, 10)
	require.NoError(t, err)

	p, ok := env.store.progressFor(ch.ID, carol)
	require.True(t, ok)
	assert.Equal(t, 10, p.CurrentValue)
}

func TestSetProgress_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)

	_, err := env.progress.SetProgress(ctx, carol, c.ID, ch.ID, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.progress.SetProgress(ctx, alice, c.ID, 777777, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.challenges.SetActive(ctx, alice, c.ID, ch.ID, false)
	require.NoError(t, err)
	_, err = env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetProgress_PastEndDate(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)

	env.now = env.now.Add(31 * 24 * time.Hour)
	_, err := env.progress.SetProgress(context.Background(), alice, c.ID, ch.ID, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetProgress_FailedActivityRollsBackAward(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)
	env.store.db.failActivityType = models.ActivityChallengeComplete

	_, err := env.progress.SetProgress(context.Background(), alice, c.ID, ch.ID, 400)
	require.Error(t, err)

	p, ok := env.store.progressFor(ch.ID, alice)
	require.True(t, ok)
	assert.Equal(t, 0, p.CurrentValue)
	assert.False(t, p.Completed)
	assert.Equal(t, 0, env.points(t, c.ID, alice))
}

func TestSetProgress_ConcurrentUpdatesAwardOnce(t *testing.T) {
	// "serial" runs whole transactions one at a time. "row locks" lets them
	// overlap so only the member and progress row locks keep awards apart.
	for name, rowLocking := range map[string]bool{"serial": false, "row locks": true} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			c := env.createCircle(t, alice, false)
			ch := env.createRace(t, c.ID, alice)
			env.store.db.rowLocking = rowLocking

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := env.progress.SetProgress(context.Background(), alice, c.ID, ch.ID, 400)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			p, ok := env.store.progressFor(ch.ID, alice)
			require.True(t, ok)
			assert.True(t, p.Completed)
			assert.Equal(t, 450, env.points(t, c.ID, alice))
			assert.Len(t, env.store.activitiesOf(c.ID, models.ActivityChallengeComplete), 1)
		})
	}
}

func TestSetProgress_InvalidatesLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)
	env.cache.invalidated = nil

	_, err := env.progress.SetProgress(context.Background(), alice, c.ID, ch.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, env.cache.invalidated)
}

func TestSyncFromLibrary_Ratchet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)

	page := 120
	entry := &models.LibraryEntry{UserID: alice, BookID: duneID, Status: models.LibraryStatusCurrentlyReading, CurrentPage: &page}
	env.library[libraryKey{alice, duneID}] = entry

	res, err := env.progress.SyncFromLibrary(ctx, alice, c.ID, ch.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 120, res.CurrentValue)
	assert.Equal(t, 120, res.PointsAwarded)
	assert.Empty(t, env.store.activitiesOf(c.ID, models.ActivityProgressUpdate), "sync does not log jumps")

	// manual progress moves ahead, then a stale library page must not pull it back
	_, err = env.progress.SetProgress(ctx, alice, c.ID, ch.ID, 200)
	require.NoError(t, err)
	res, err = env.progress.SyncFromLibrary(ctx, alice, c.ID, ch.ID)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 200, res.CurrentValue)
	assert.Equal(t, 120, res.LibraryPage)

	p, _ := env.store.progressFor(ch.ID, alice)
	assert.Equal(t, 200, p.CurrentValue)
}

func TestSyncFromLibrary_FinishedBookCompletes(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCircle(t, alice, false)
	ch := env.createRace(t, c.ID, alice)
	env.library[libraryKey{alice, duneID}] = &models.LibraryEntry{UserID: alice, BookID: duneID, Status: models.LibraryStatusRead}

	res, err := env.progress.SyncFromLibrary(context.Background(), alice, c.ID, ch.ID)
	require.NoError(t, err)
	assert.True(t, res.CompletedNow)
	assert.Equal(t, 400, res.CurrentValue)
	assert.Equal(t, 450, env.points(t, c.ID, alice))
	assert.Len(t, env.store.activitiesOf(c.ID, models.ActivityChallengeComplete), 1)
}

func TestSyncFromLibrary_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createCircle(t, alice, false)
	race := env.createRace(t, c.ID, alice)
	count := env.createCount(t, c.ID, alice, models.ChallengeBooksCount, 3)

	_, err := env.progress.SyncFromLibrary(ctx, alice, c.ID, count.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.progress.SyncFromLibrary(ctx, alice, c.ID, race.ID)
	assert.ErrorIs(t, err, ErrValidation, "book not in library")

	_, err = env.progress.SyncFromLibrary(ctx, bob, c.ID, race.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
