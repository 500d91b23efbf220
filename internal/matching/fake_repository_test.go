package matching

import (
	"context"
	"sync"
	"time"
)

// fakeRepository is an in-memory Repository with the same pair semantics as
// the postgres store: likes unique per ordered pair, at most one active match
// per unordered pair, retired matches kept as history.
type fakeRepository struct {
	mu sync.Mutex

	profiles map[int64]*Profile
	likes    map[[2]int64]*Like
	matches  []*Match
	blocks   map[[2]int64]bool
	reports  map[[2]int64]*Report

	nextMatchID int64
	fameMax     float64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		profiles:    make(map[int64]*Profile),
		likes:       make(map[[2]int64]*Like),
		blocks:      make(map[[2]int64]bool),
		reports:     make(map[[2]int64]*Report),
		nextMatchID: 1,
		fameMax:     10.0,
	}
}

func (f *fakeRepository) addProfile(p *Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.UserID] = p
}

func (f *fakeRepository) GetProfile(_ context.Context, userID int64) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeRepository) ListCandidateProfiles(_ context.Context, excludeUserID int64) ([]*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*Profile{}
	for id, p := range f.profiles {
		if id == excludeUserID {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeRepository) IncrementFame(_ context.Context, userID int64, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil
	}
	p.FameRating += delta
	if p.FameRating < 0 {
		p.FameRating = 0
	}
	if p.FameRating > f.fameMax {
		p.FameRating = f.fameMax
	}
	return nil
}

func (f *fakeRepository) GetLike(_ context.Context, likerID, targetID int64) (*Like, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	like, ok := f.likes[[2]int64{likerID, targetID}]
	if !ok {
		return nil, nil
	}
	clone := *like
	return &clone, nil
}

func (f *fakeRepository) DeleteLike(_ context.Context, likerID, targetID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{likerID, targetID}
	if _, ok := f.likes[key]; !ok {
		return false, nil
	}
	delete(f.likes, key)
	return true, nil
}

func (f *fakeRepository) DeleteLikesBetween(_ context.Context, userA, userB int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.likes, [2]int64{userA, userB})
	delete(f.likes, [2]int64{userB, userA})
	return nil
}

func (f *fakeRepository) LikerIDs(_ context.Context, targetID int64) (map[int64]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]struct{})
	for key, like := range f.likes {
		if key[1] == targetID && like.Kind.Reciprocal() {
			out[key[0]] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeRepository) LikeAndMatch(_ context.Context, like *Like) (*LikeWrite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	write := &LikeWrite{}
	if prev, ok := f.likes[[2]int64{like.LikerID, like.TargetID}]; ok {
		write.PrevKind = prev.Kind
	}

	stored := *like
	stored.CreatedAt = time.Now()
	f.likes[[2]int64{like.LikerID, like.TargetID}] = &stored

	if !like.Kind.Reciprocal() {
		return write, nil
	}
	reverse, ok := f.likes[[2]int64{like.TargetID, like.LikerID}]
	if !ok || !reverse.Kind.Reciprocal() {
		return write, nil
	}

	a, b := orderPair(like.LikerID, like.TargetID)
	if existing := f.activeMatchLocked(a, b); existing != nil {
		clone := *existing
		write.Match = &clone
		return write, nil
	}

	match := &Match{
		ID:        f.nextMatchID,
		UserAID:   a,
		UserBID:   b,
		Status:    MatchActive,
		MatchedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.nextMatchID++
	f.matches = append(f.matches, match)
	clone := *match
	write.Match = &clone
	write.MatchCreated = true
	return write, nil
}

func (f *fakeRepository) activeMatchLocked(a, b int64) *Match {
	for _, m := range f.matches {
		if m.UserAID == a && m.UserBID == b && m.Status == MatchActive {
			return m
		}
	}
	return nil
}

func (f *fakeRepository) GetActiveMatch(_ context.Context, userA, userB int64) (*Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, b := orderPair(userA, userB)
	if m := f.activeMatchLocked(a, b); m != nil {
		clone := *m
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeRepository) HasActiveMatch(_ context.Context, userA, userB int64) (bool, error) {
	m, _ := f.GetActiveMatch(context.Background(), userA, userB)
	return m != nil, nil
}

func (f *fakeRepository) ListMatches(_ context.Context, userID int64, status MatchStatus) ([]*Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*Match{}
	for _, m := range f.matches {
		if m.Status == status && m.Includes(userID) {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeRepository) RetireMatch(_ context.Context, userA, userB int64, to MatchStatus) (*Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, b := orderPair(userA, userB)
	m := f.activeMatchLocked(a, b)
	if m == nil {
		return nil, nil
	}
	m.Status = to
	m.UpdatedAt = time.Now()
	clone := *m
	return &clone, nil
}

func (f *fakeRepository) CreateBlock(_ context.Context, blockerID, blockedID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[[2]int64{blockerID, blockedID}] = true
	return nil
}

func (f *fakeRepository) DeleteBlock(_ context.Context, blockerID, blockedID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{blockerID, blockedID}
	if !f.blocks[key] {
		return false, nil
	}
	delete(f.blocks, key)
	return true, nil
}

func (f *fakeRepository) IsBlockedEitherWay(_ context.Context, userA, userB int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[[2]int64{userA, userB}] || f.blocks[[2]int64{userB, userA}], nil
}

func (f *fakeRepository) BlockedUserIDs(_ context.Context, userID int64) (map[int64]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]struct{})
	for key := range f.blocks {
		if key[0] == userID {
			out[key[1]] = struct{}{}
		}
		if key[1] == userID {
			out[key[0]] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeRepository) CreateReport(_ context.Context, report *Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *report
	f.reports[[2]int64{report.ReporterID, report.ReportedID}] = &clone
	return nil
}

// completeProfile builds a discovery-ready profile for tests
func completeProfile(userID int64, gender Gender, orientation Orientation, lat, lon float64, tags ...string) *Profile {
	birthDate := time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC)
	return &Profile{
		UserID:       userID,
		Gender:       gender,
		Orientation:  orientation,
		Biography:    "hello",
		InterestTags: tags,
		Pictures:     []string{"https://cdn.example.com/pic.jpg"},
		BirthDate:    &birthDate,
		Latitude:     &lat,
		Longitude:    &lon,
	}
}
