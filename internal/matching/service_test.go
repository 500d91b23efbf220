package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(repo Repository, events *Events, policy ServicePolicy) Service {
	return NewService(repo, newTestRanker(repo), events, policy)
}

func seedPair(repo *fakeRepository) {
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10))
	repo.addProfile(completeProfile(2, GenderFemale, OrientationBi, 10, 10))
}

func drainEvents(events *Events) []Event {
	out := []Event{}
	for {
		select {
		case evt := <-events.Subscribe():
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestLikeWithoutReciprocity(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	outcome, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)

	assert.False(t, outcome.Matched)
	assert.Nil(t, outcome.Match)

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, connected)

	// Target earned the like delta
	target, err := repo.GetProfile(context.Background(), 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, target.FameRating, 1e-9)
}

func TestMutualLikeCreatesMatch(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	events := NewEvents(16)
	svc := newTestService(repo, events, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)

	outcome, err := svc.Like(context.Background(), 2, 1, LikeKindSuperLike)
	require.NoError(t, err)

	require.True(t, outcome.Matched)
	require.NotNil(t, outcome.Match)
	assert.Equal(t, int64(1), outcome.Match.UserAID)
	assert.Equal(t, int64(2), outcome.Match.UserBID)
	assert.Equal(t, MatchActive, outcome.Match.Status)

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, connected)

	// like 0.5 on user 2, super_like 1.0 on user 1, match 1.0 on both
	p1, _ := repo.GetProfile(context.Background(), 1)
	p2, _ := repo.GetProfile(context.Background(), 2)
	assert.InDelta(t, 2.0, p1.FameRating, 1e-9)
	assert.InDelta(t, 1.5, p2.FameRating, 1e-9)

	published := drainEvents(events)
	require.Len(t, published, 1)
	assert.Equal(t, EventMatchCreated, published[0].Type)
	assert.Equal(t, outcome.Match.ID, published[0].MatchID)
}

func TestPassNeverMatches(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)

	outcome, err := svc.Like(context.Background(), 2, 1, LikeKindPass)
	require.NoError(t, err)
	assert.False(t, outcome.Matched)

	// Upgrading the pass to a like completes the pair
	outcome, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)
	assert.True(t, outcome.Matched)
}

func TestLikeValidation(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 1, LikeKindLike)
	assert.ErrorIs(t, err, ErrSelfAction)

	_, err = svc.Like(context.Background(), 1, 2, LikeKind("wink"))
	assert.ErrorIs(t, err, ErrInvalidKind)

	// Unknown target
	_, err = svc.Like(context.Background(), 1, 99, LikeKindLike)
	assert.ErrorIs(t, err, ErrNotVisible)
}

func TestLikeRequiresVisibility(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationHetero, 10, 10))
	// Incomplete target
	incomplete := completeProfile(2, GenderFemale, OrientationBi, 10, 10)
	incomplete.Biography = ""
	repo.addProfile(incomplete)
	// Orientation mismatch
	repo.addProfile(completeProfile(3, GenderMale, OrientationHetero, 10, 10))
	// Blocked
	repo.addProfile(completeProfile(4, GenderFemale, OrientationBi, 10, 10))
	require.NoError(t, repo.CreateBlock(context.Background(), 4, 1))

	svc := newTestService(repo, nil, ServicePolicy{})

	for _, target := range []int64{2, 3, 4} {
		_, err := svc.Like(context.Background(), 1, target, LikeKindLike)
		assert.ErrorIs(t, err, ErrNotVisible, "target %d", target)
	}
}

func TestConcurrentMutualLikesCreateOneMatch(t *testing.T) {
	for i := 0; i < 50; i++ {
		repo := newFakeRepository()
		seedPair(repo)
		svc := newTestService(repo, nil, ServicePolicy{})

		var wg sync.WaitGroup
		outcomes := make([]*LikeOutcome, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			outcome, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
			require.NoError(t, err)
			outcomes[0] = outcome
		}()
		go func() {
			defer wg.Done()
			outcome, err := svc.Like(context.Background(), 2, 1, LikeKindLike)
			require.NoError(t, err)
			outcomes[1] = outcome
		}()
		wg.Wait()

		// Exactly one match row regardless of interleaving
		matches1, err := svc.Matches(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, matches1, 1)

		// At least one racer observed the match, and nobody errored
		assert.True(t, outcomes[0].Matched || outcomes[1].Matched)
		if outcomes[0].Matched && outcomes[1].Matched {
			assert.Equal(t, outcomes[0].Match.ID, outcomes[1].Match.ID)
		}
	}
}

func TestRepeatedMutualLikesKeepOneMatch(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	first, err := svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)

	// Re-liking an already-matched user returns the existing match
	again, err := svc.Like(context.Background(), 1, 2, LikeKindSuperLike)
	require.NoError(t, err)
	require.True(t, again.Matched)
	assert.Equal(t, first.Match.ID, again.Match.ID)

	matches, err := svc.Matches(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestReLikesDoNotFarmFame(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	fame := func(userID int64) float64 {
		p, err := repo.GetProfile(context.Background(), userID)
		require.NoError(t, err)
		return p.FameRating
	}

	// Repeating the same like replaces the row without re-applying the delta
	for i := 0; i < 5; i++ {
		_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.5, fame(2), 1e-9)

	// Changing kinds moves fame by the difference, so toggling nets nothing
	_, err := svc.Like(context.Background(), 1, 2, LikeKindSuperLike)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fame(2), 1e-9)

	_, err = svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fame(2), 1e-9)

	// Downgrading to a pass removes the contribution entirely
	_, err = svc.Like(context.Background(), 1, 2, LikeKindPass)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, fame(2), 1e-9)
}

func TestUnlikeReversesSuperLikeFame(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindSuperLike)
	require.NoError(t, err)
	require.NoError(t, svc.Unlike(context.Background(), 1, 2))

	p2, _ := repo.GetProfile(context.Background(), 2)
	assert.InDelta(t, 0.0, p2.FameRating, 1e-9)
}

func TestUnlikeBeforeMatch(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	require.NoError(t, svc.Unlike(context.Background(), 1, 2))

	// The withdrawn like no longer counts toward reciprocity
	outcome, err := svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)
	assert.False(t, outcome.Matched)

	// The like delta was reversed
	p2, _ := repo.GetProfile(context.Background(), 2)
	assert.InDelta(t, 0.0, p2.FameRating, 1e-9)
}

func TestUnlikeAfterMatchKeepsMatch(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)

	// Removing a like does not dissolve an existing match
	require.NoError(t, svc.Unlike(context.Background(), 1, 2))

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestUnlikeIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	require.NoError(t, svc.Unlike(context.Background(), 1, 2))

	// No like existed, so no fame was deducted
	p2, _ := repo.GetProfile(context.Background(), 2)
	assert.InDelta(t, 0.0, p2.FameRating, 1e-9)
}

func TestUnmatchIsTerminal(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	events := NewEvents(16)
	svc := newTestService(repo, events, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)
	drainEvents(events)

	require.NoError(t, svc.Unmatch(context.Background(), 1, 2))

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, connected)

	published := drainEvents(events)
	require.Len(t, published, 1)
	assert.Equal(t, EventMatchRevoked, published[0].Type)

	// Second unmatch finds nothing
	assert.ErrorIs(t, svc.Unmatch(context.Background(), 1, 2), ErrNoActiveMatch)

	// Both likes were removed: a single re-like must not resurrect the match
	outcome, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	assert.False(t, outcome.Matched)

	// A fresh mutual like forms a new match with a new identity
	outcome, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)
	require.True(t, outcome.Matched)
}

func TestBlockRetiresMatchAndHidesPair(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	events := NewEvents(16)
	svc := newTestService(repo, events, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)
	drainEvents(events)

	require.NoError(t, svc.Block(context.Background(), 1, 2))

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, connected)

	published := drainEvents(events)
	require.Len(t, published, 1)
	assert.Equal(t, EventMatchRevoked, published[0].Type)

	// Hidden from both directions in discovery
	ranked, err := svc.Suggestions(context.Background(), 2, 20)
	require.NoError(t, err)
	assert.Empty(t, ranked)

	// Blocking again is a no-op, not an error
	require.NoError(t, svc.Block(context.Background(), 1, 2))

	// Liking a blocked user is refused
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	assert.ErrorIs(t, err, ErrNotVisible)
}

func TestUnblockRestoresDiscoveryButNotMatch(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)

	require.NoError(t, svc.Block(context.Background(), 1, 2))
	require.NoError(t, svc.Unblock(context.Background(), 1, 2))

	// Visible again
	ranked, err := svc.Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, ranked, 1)

	// The retired match stays retired
	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestReportKeepsMatchByDefault(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)

	require.NoError(t, svc.Report(context.Background(), 1, 2, "fake_account", "stolen pictures"))

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestReportRetiresMatchWhenPolicyEnabled(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	events := NewEvents(16)
	svc := newTestService(repo, events, ServicePolicy{ReportRetiresMatch: true})

	_, err := svc.Like(context.Background(), 1, 2, LikeKindLike)
	require.NoError(t, err)
	_, err = svc.Like(context.Background(), 2, 1, LikeKindLike)
	require.NoError(t, err)
	drainEvents(events)

	require.NoError(t, svc.Report(context.Background(), 1, 2, "harassment", ""))

	connected, err := svc.IsConnected(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, connected)

	published := drainEvents(events)
	require.Len(t, published, 1)
	assert.Equal(t, EventMatchRevoked, published[0].Type)
}

func TestReportValidation(t *testing.T) {
	repo := newFakeRepository()
	seedPair(repo)
	svc := newTestService(repo, nil, ServicePolicy{})

	assert.ErrorIs(t, svc.Report(context.Background(), 1, 1, "spam", ""), ErrSelfAction)
	assert.ErrorIs(t, svc.Report(context.Background(), 1, 2, "", ""), ErrInvalidReason)
}

func TestEventsDropWhenBufferFull(t *testing.T) {
	events := NewEvents(1)
	match := &Match{ID: 1, UserAID: 1, UserBID: 2, MatchedAt: time.Now()}

	// Second publish must not block the caller
	done := make(chan struct{})
	go func() {
		events.PublishMatchCreated(match)
		events.PublishMatchCreated(match)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}

	assert.Len(t, drainEvents(events), 1)
}
