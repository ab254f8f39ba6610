package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
)

// memDB is an in-memory stand-in for postgres. By default transactions hold
// the mutex for their whole duration and restore a snapshot on error. With
// rowLocking set, transactions run concurrently and only the ...ForUpdate
// reads block, holding a per-row lock until commit like SELECT ... FOR
// UPDATE. Rollback is not modelled in that mode, so it only suits flows
// that fail before their first write.
type memDB struct {
	mu         sync.Mutex
	seq        int64
	clock      time.Time
	users      map[string]string
	circles    map[int64]models.Circle
	members    map[int64]models.CircleMember
	challenges map[int64]models.Challenge
	progress   map[int64]models.ChallengeProgress
	activities []models.CircleActivity

	// failActivityType makes inserting an activity of that type fail.
	failActivityType models.ActivityType
	// dupOnCircleInsert makes the next N circle inserts hit the unique index.
	dupOnCircleInsert int

	rowLocking bool
	rowsMu     sync.Mutex
	rows       map[string]*sync.Mutex
	// beforeCountAdmins runs ahead of every admin count.
	beforeCountAdmins func()
}

func newMemDB() *memDB {
	return &memDB{
		clock:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		users:      map[string]string{},
		circles:    map[int64]models.Circle{},
		members:    map[int64]models.CircleMember{},
		challenges: map[int64]models.Challenge{},
		progress:   map[int64]models.ChallengeProgress{},
		rows:       map[string]*sync.Mutex{},
	}
}

func (db *memDB) rowMutex(key string) *sync.Mutex {
	db.rowsMu.Lock()
	defer db.rowsMu.Unlock()
	m, ok := db.rows[key]
	if !ok {
		m = &sync.Mutex{}
		db.rows[key] = m
	}
	return m
}

func (db *memDB) nextID() int64 {
	db.seq++
	return db.seq
}

// tick returns a strictly increasing timestamp so ordering by time is stable.
func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

type memSnapshot struct {
	seq        int64
	circles    map[int64]models.Circle
	members    map[int64]models.CircleMember
	challenges map[int64]models.Challenge
	progress   map[int64]models.ChallengeProgress
	activities []models.CircleActivity
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	return memSnapshot{
		seq:        db.seq,
		circles:    copyMap(db.circles),
		members:    copyMap(db.members),
		challenges: copyMap(db.challenges),
		progress:   copyMap(db.progress),
		activities: append([]models.CircleActivity(nil), db.activities...),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.seq = s.seq
	db.circles = s.circles
	db.members = s.members
	db.challenges = s.challenges
	db.progress = s.progress
	db.activities = s.activities
}

type fakeStore struct {
	db   *memDB
	inTx bool
	held map[string]*sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{db: newMemDB()}
}

func (s *fakeStore) lock() func() {
	if s.inTx && !s.db.rowLocking {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *fakeStore) Circles() repository.CircleRepository       { return fakeCircles{s} }
func (s *fakeStore) Members() repository.MemberRepository       { return fakeMembers{s} }
func (s *fakeStore) Challenges() repository.ChallengeRepository { return fakeChallenges{s} }
func (s *fakeStore) Progress() repository.ProgressRepository    { return fakeProgress{s} }
func (s *fakeStore) Activities() repository.ActivityRepository  { return fakeActivities{s} }

// lockRow blocks until the transaction owns key. Locks are reentrant within
// one transaction and released when it ends.
func (s *fakeStore) lockRow(key string) {
	if !s.db.rowLocking {
		return
	}
	if _, ok := s.held[key]; ok {
		return
	}
	m := s.db.rowMutex(key)
	m.Lock()
	s.held[key] = m
}

func (s *fakeStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.db.rowLocking {
		tx := &fakeStore{db: s.db, inTx: true, held: map[string]*sync.Mutex{}}
		defer func() {
			for _, m := range tx.held {
				m.Unlock()
			}
		}()
		return fn(tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	snap := s.db.snapshot()
	if err := fn(&fakeStore{db: s.db, inTx: true}); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

// helpers used directly by tests

func (s *fakeStore) addUser(id, username string) {
	defer s.lock()()
	s.db.users[id] = username
}

func (s *fakeStore) member(circleID int64, userID string) (models.CircleMember, bool) {
	defer s.lock()()
	for _, m := range s.db.members {
		if m.CircleID == circleID && m.UserID == userID {
			return m, true
		}
	}
	return models.CircleMember{}, false
}

func (s *fakeStore) progressFor(challengeID int64, userID string) (models.ChallengeProgress, bool) {
	defer s.lock()()
	for _, p := range s.db.progress {
		if p.ChallengeID == challengeID && p.UserID == userID {
			return p, true
		}
	}
	return models.ChallengeProgress{}, false
}

func (s *fakeStore) activitiesOf(circleID int64, kind models.ActivityType) []models.CircleActivity {
	defer s.lock()()
	var out []models.CircleActivity
	for _, a := range s.db.activities {
		if a.CircleID == circleID && a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

func (s *fakeStore) username(id string) string {
	if name, ok := s.db.users[id]; ok {
		return name
	}
	return "Unknown"
}

type fakeCircles struct{ s *fakeStore }

func (f fakeCircles) Create(ctx context.Context, c *models.Circle) error {
	defer f.s.lock()()
	db := f.s.db
	if db.dupOnCircleInsert > 0 {
		db.dupOnCircleInsert--
		return fmt.Errorf("create circle: %w: idx_circles_invite_code", repository.ErrDuplicate)
	}
	for _, other := range db.circles {
		if other.InviteCode == c.InviteCode {
			return fmt.Errorf("create circle: %w: idx_circles_invite_code", repository.ErrDuplicate)
		}
	}
	c.ID = db.nextID()
	c.CreatedAt = db.tick()
	db.circles[c.ID] = *c
	return nil
}

func (f fakeCircles) GetByID(ctx context.Context, id int64) (*models.Circle, error) {
	defer f.s.lock()()
	c, ok := f.s.db.circles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f fakeCircles) GetForUpdate(ctx context.Context, id int64) (*models.Circle, error) {
	if !f.s.inTx {
		return nil, errors.New("GetForUpdate outside transaction")
	}
	f.s.lockRow(fmt.Sprintf("circle:%d", id))
	return f.GetByID(ctx, id)
}

func (f fakeCircles) GetByInviteCode(ctx context.Context, code string) (*models.Circle, error) {
	defer f.s.lock()()
	for _, c := range f.s.db.circles {
		if c.InviteCode == code {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeCircles) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByInviteCode(ctx, code)
	return err == nil, nil
}

func (f fakeCircles) summaries(userID string, keep func(c models.Circle, m *models.CircleMember) bool) []repository.CircleSummary {
	db := f.s.db
	var out []repository.CircleSummary
	for _, c := range db.circles {
		var mine *models.CircleMember
		var count int64
		for _, m := range db.members {
			if m.CircleID != c.ID {
				continue
			}
			count++
			if m.UserID == userID {
				m := m
				mine = &m
			}
		}
		if !keep(c, mine) {
			continue
		}
		sum := repository.CircleSummary{Circle: c, MemberCount: count}
		if mine != nil {
			sum.MyRole = mine.Role
			sum.MyPoints = mine.CirclePoints
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f fakeCircles) ListForUser(ctx context.Context, userID string) ([]repository.CircleSummary, error) {
	defer f.s.lock()()
	return f.summaries(userID, func(_ models.Circle, m *models.CircleMember) bool { return m != nil }), nil
}

func (f fakeCircles) ListPublic(ctx context.Context, excludeUserID string, limit int) ([]repository.CircleSummary, error) {
	defer f.s.lock()()
	out := f.summaries(excludeUserID, func(c models.Circle, m *models.CircleMember) bool {
		return !c.IsPrivate && m == nil
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].MyRole = ""
	}
	return out, nil
}

func (f fakeCircles) Update(ctx context.Context, c *models.Circle) error {
	defer f.s.lock()()
	stored, ok := f.s.db.circles[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name, stored.Description, stored.IsPrivate = c.Name, c.Description, c.IsPrivate
	f.s.db.circles[c.ID] = stored
	return nil
}

func (f fakeCircles) Delete(ctx context.Context, id int64) error {
	defer f.s.lock()()
	db := f.s.db
	if _, ok := db.circles[id]; !ok {
		return repository.ErrNotFound
	}
	for cid, ch := range db.challenges {
		if ch.CircleID != id {
			continue
		}
		for pid, p := range db.progress {
			if p.ChallengeID == cid {
				delete(db.progress, pid)
			}
		}
		delete(db.challenges, cid)
	}
	for mid, m := range db.members {
		if m.CircleID == id {
			delete(db.members, mid)
		}
	}
	kept := db.activities[:0]
	for _, a := range db.activities {
		if a.CircleID != id {
			kept = append(kept, a)
		}
	}
	db.activities = kept
	delete(db.circles, id)
	return nil
}

type fakeMembers struct{ s *fakeStore }

func (f fakeMembers) find(circleID int64, userID string) (models.CircleMember, bool) {
	for _, m := range f.s.db.members {
		if m.CircleID == circleID && m.UserID == userID {
			return m, true
		}
	}
	return models.CircleMember{}, false
}

func (f fakeMembers) Create(ctx context.Context, m *models.CircleMember) error {
	defer f.s.lock()()
	if _, ok := f.find(m.CircleID, m.UserID); ok {
		return fmt.Errorf("create member: %w: idx_circle_member", repository.ErrDuplicate)
	}
	m.ID = f.s.db.nextID()
	m.JoinedAt = f.s.db.tick()
	f.s.db.members[m.ID] = *m
	return nil
}

func (f fakeMembers) Get(ctx context.Context, circleID int64, userID string) (*models.CircleMember, error) {
	defer f.s.lock()()
	m, ok := f.find(circleID, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (f fakeMembers) GetForUpdate(ctx context.Context, circleID int64, userID string) (*models.CircleMember, error) {
	if !f.s.inTx {
		return nil, errors.New("GetForUpdate outside transaction")
	}
	f.s.lockRow(fmt.Sprintf("member:%d:%s", circleID, userID))
	return f.Get(ctx, circleID, userID)
}

func (f fakeMembers) Delete(ctx context.Context, circleID int64, userID string) error {
	defer f.s.lock()()
	m, ok := f.find(circleID, userID)
	if !ok {
		return repository.ErrNotFound
	}
	delete(f.s.db.members, m.ID)
	return nil
}

func (f fakeMembers) CountAdmins(ctx context.Context, circleID int64) (int64, error) {
	if hook := f.s.db.beforeCountAdmins; hook != nil {
		hook()
	}
	defer f.s.lock()()
	var n int64
	for _, m := range f.s.db.members {
		if m.CircleID == circleID && m.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (f fakeMembers) ListByCircle(ctx context.Context, circleID int64) ([]repository.MemberView, error) {
	defer f.s.lock()()
	var out []repository.MemberView
	for _, m := range f.s.db.members {
		if m.CircleID == circleID {
			out = append(out, repository.MemberView{CircleMember: m, Username: f.s.username(m.UserID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (f fakeMembers) UpdateRole(ctx context.Context, circleID int64, userID string, role models.MemberRole) error {
	defer f.s.lock()()
	m, ok := f.find(circleID, userID)
	if !ok {
		return repository.ErrNotFound
	}
	m.Role = role
	f.s.db.members[m.ID] = m
	return nil
}

func (f fakeMembers) AddPoints(ctx context.Context, memberID int64, points int) error {
	defer f.s.lock()()
	m, ok := f.s.db.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.CirclePoints += points
	f.s.db.members[memberID] = m
	return nil
}

type fakeChallenges struct{ s *fakeStore }

func (f fakeChallenges) Create(ctx context.Context, c *models.Challenge) error {
	defer f.s.lock()()
	c.ID = f.s.db.nextID()
	c.CreatedAt = f.s.db.tick()
	f.s.db.challenges[c.ID] = *c
	return nil
}

func (f fakeChallenges) GetInCircle(ctx context.Context, circleID, challengeID int64) (*models.Challenge, error) {
	defer f.s.lock()()
	c, ok := f.s.db.challenges[challengeID]
	if !ok || c.CircleID != circleID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f fakeChallenges) List(ctx context.Context, circleID int64, activeOnly bool, now time.Time) ([]models.Challenge, error) {
	defer f.s.lock()()
	var out []models.Challenge
	for _, c := range f.s.db.challenges {
		if c.CircleID != circleID {
			continue
		}
		if activeOnly && (!c.IsActive || c.EndDate.Before(now)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeChallenges) SetActive(ctx context.Context, challengeID int64, active bool) error {
	defer f.s.lock()()
	c, ok := f.s.db.challenges[challengeID]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = active
	f.s.db.challenges[challengeID] = c
	return nil
}

type fakeProgress struct{ s *fakeStore }

func (f fakeProgress) find(challengeID int64, userID string) (models.ChallengeProgress, bool) {
	for _, p := range f.s.db.progress {
		if p.ChallengeID == challengeID && p.UserID == userID {
			return p, true
		}
	}
	return models.ChallengeProgress{}, false
}

func (f fakeProgress) Seed(ctx context.Context, rows []models.ChallengeProgress) error {
	defer f.s.lock()()
	for _, r := range rows {
		if _, ok := f.find(r.ChallengeID, r.UserID); ok {
			continue
		}
		r.ID = f.s.db.nextID()
		f.s.db.progress[r.ID] = r
	}
	return nil
}

func (f fakeProgress) GetOrCreateForUpdate(ctx context.Context, challengeID int64, userID string) (*models.ChallengeProgress, error) {
	if !f.s.inTx {
		return nil, errors.New("GetOrCreateForUpdate outside transaction")
	}
	f.s.lockRow(fmt.Sprintf("progress:%d:%s", challengeID, userID))
	defer f.s.lock()()
	if p, ok := f.find(challengeID, userID); ok {
		return &p, nil
	}
	p := models.ChallengeProgress{ID: f.s.db.nextID(), ChallengeID: challengeID, UserID: userID}
	f.s.db.progress[p.ID] = p
	return &p, nil
}

func (f fakeProgress) Save(ctx context.Context, p *models.ChallengeProgress) error {
	defer f.s.lock()()
	if _, ok := f.s.db.progress[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.s.db.progress[p.ID] = *p
	return nil
}

func (f fakeProgress) ListByChallenges(ctx context.Context, ids []int64) ([]repository.ProgressView, error) {
	defer f.s.lock()()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []repository.ProgressView
	for _, p := range f.s.db.progress {
		if want[p.ChallengeID] {
			out = append(out, repository.ProgressView{ChallengeProgress: p, Username: f.s.username(p.UserID)})
		}
	}
	return out, nil
}

func (f fakeProgress) CountCompletedByCircle(ctx context.Context, circleID int64) (map[string]int, error) {
	defer f.s.lock()()
	out := map[string]int{}
	for _, p := range f.s.db.progress {
		c, ok := f.s.db.challenges[p.ChallengeID]
		if ok && c.CircleID == circleID && p.Completed {
			out[p.UserID]++
		}
	}
	return out, nil
}

type fakeActivities struct{ s *fakeStore }

func (f fakeActivities) Create(ctx context.Context, a *models.CircleActivity) error {
	defer f.s.lock()()
	if f.s.db.failActivityType != "" && a.Type == f.s.db.failActivityType {
		return errors.New("activity insert failed")
	}
	a.ID = f.s.db.nextID()
	a.CreatedAt = f.s.db.tick()
	f.s.db.activities = append(f.s.db.activities, *a)
	return nil
}

func (f fakeActivities) ListByCircle(ctx context.Context, circleID int64, limit int) ([]repository.ActivityView, error) {
	defer f.s.lock()()
	var out []repository.ActivityView
	for i := len(f.s.db.activities) - 1; i >= 0 && len(out) < limit; i-- {
		a := f.s.db.activities[i]
		if a.CircleID == circleID {
			out = append(out, repository.ActivityView{CircleActivity: a, Username: f.s.username(a.UserID)})
		}
	}
	return out, nil
}

type fakeBooks map[int64]*models.Book

func (f fakeBooks) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

type libraryKey struct {
	userID string
	bookID int64
}

type fakeLibrary map[libraryKey]*models.LibraryEntry

func (f fakeLibrary) GetEntry(ctx context.Context, userID string, bookID int64) (*models.LibraryEntry, error) {
	e, ok := f[libraryKey{userID, bookID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (f fakeLibrary) ListFinished(ctx context.Context, userID string) ([]models.LibraryEntry, error) {
	var out []models.LibraryEntry
	for k, e := range f {
		if k.userID == userID && e.IsFinished() {
			out = append(out, *e)
		}
	}
	return out, nil
}

type memCache struct {
	mu          sync.Mutex
	boards      map[int64][]repository.LeaderboardRow
	gens        map[int64]int64
	gets        int
	invalidated []int64
}

func newMemCache() *memCache {
	return &memCache{
		boards: map[int64][]repository.LeaderboardRow{},
		gens:   map[int64]int64{},
	}
}

func (c *memCache) Get(ctx context.Context, circleID int64) ([]repository.LeaderboardRow, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	rows, ok := c.boards[circleID]
	return rows, c.gens[circleID], ok, nil
}

func (c *memCache) Set(ctx context.Context, circleID, gen int64, rows []repository.LeaderboardRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[circleID] != gen {
		return nil
	}
	c.boards[circleID] = append([]repository.LeaderboardRow(nil), rows...)
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, circleID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[circleID]++
	delete(c.boards, circleID)
	c.invalidated = append(c.invalidated, circleID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
