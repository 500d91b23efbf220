package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRanker(repo Repository) *Ranker {
	return NewRanker(repo, nil, time.Minute)
}

func TestRankerOrdersByScore(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 48.85, 2.35, "jazz", "hiking"))

	// Nearby, no shared tags
	repo.addProfile(completeProfile(2, GenderFemale, OrientationBi, 48.86, 2.36))
	// Far away (~340km) but two shared tags and max fame
	far := completeProfile(3, GenderFemale, OrientationBi, 51.50, -0.12, "jazz", "hiking")
	far.FameRating = 10
	repo.addProfile(far)

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// Distance dominates: tags and fame cannot close a 340km gap
	assert.Equal(t, int64(2), ranked[0].UserID)
	assert.Equal(t, int64(3), ranked[1].UserID)
	assert.Less(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, 2, ranked[1].TagOverlap)
}

func TestRankerScoreComponents(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10, "jazz"))

	candidate := completeProfile(2, GenderFemale, OrientationBi, 10, 10, "jazz")
	candidate.FameRating = 5
	repo.addProfile(candidate)

	// The candidate already liked the viewer
	_, err := repo.LikeAndMatch(context.Background(), &Like{LikerID: 2, TargetID: 1, Kind: LikeKindLike})
	require.NoError(t, err)

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, ranked, 1)

	// 0km - 2*1 tag - 0.1*5 fame - 5 liked-you bonus
	entry := ranked[0]
	assert.True(t, entry.LikedYou)
	assert.InDelta(t, 0.0, entry.DistanceKm, 1e-9)
	assert.InDelta(t, -7.5, entry.Score, 1e-9)
}

func TestRankerPassDoesNotGrantLikedYouBonus(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10))
	repo.addProfile(completeProfile(2, GenderFemale, OrientationBi, 10, 10))

	_, err := repo.LikeAndMatch(context.Background(), &Like{LikerID: 2, TargetID: 1, Kind: LikeKindPass})
	require.NoError(t, err)

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.False(t, ranked[0].LikedYou)
	assert.InDelta(t, 0.0, ranked[0].Score, 1e-9)
}

func TestRankerExcludesIneligibleCandidates(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationHetero, 10, 10))

	// Eligible
	repo.addProfile(completeProfile(2, GenderFemale, OrientationHetero, 10, 10))
	// Wrong orientation pairing: hetero man never sees hetero man
	repo.addProfile(completeProfile(3, GenderMale, OrientationHetero, 10, 10))
	// Incomplete profile
	incomplete := completeProfile(4, GenderFemale, OrientationBi, 10, 10)
	incomplete.Pictures = nil
	repo.addProfile(incomplete)
	// Blocked
	repo.addProfile(completeProfile(5, GenderFemale, OrientationBi, 10, 10))
	require.NoError(t, repo.CreateBlock(context.Background(), 5, 1))

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, int64(2), ranked[0].UserID)
}

func TestRankerLocationlessCandidateSinks(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10))

	// Far but located
	repo.addProfile(completeProfile(2, GenderFemale, OrientationBi, 60, 60))
	// No location at all
	nowhere := completeProfile(3, GenderFemale, OrientationBi, 0, 0)
	nowhere.Latitude = nil
	nowhere.Longitude = nil
	repo.addProfile(nowhere)

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// Still listed, but last, with the sentinel distance
	assert.Equal(t, int64(3), ranked[1].UserID)
	assert.Equal(t, SentinelDistanceKm, ranked[1].DistanceKm)
}

func TestRankerTieBreaksOnUserID(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10))

	// Indistinguishable candidates registered out of order
	repo.addProfile(completeProfile(9, GenderFemale, OrientationBi, 10, 10))
	repo.addProfile(completeProfile(4, GenderFemale, OrientationBi, 10, 10))
	repo.addProfile(completeProfile(7, GenderFemale, OrientationBi, 10, 10))

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, int64(4), ranked[0].UserID)
	assert.Equal(t, int64(7), ranked[1].UserID)
	assert.Equal(t, int64(9), ranked[2].UserID)
}

func TestRankerMissingViewerYieldsEmptyList(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(2, GenderFemale, OrientationBi, 10, 10))

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 42, 20)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestSuggestionsLimit(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10))
	for id := int64(2); id <= 30; id++ {
		repo.addProfile(completeProfile(id, GenderFemale, OrientationBi, 10, 10))
	}

	ranked, err := newTestRanker(repo).Suggestions(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, ranked, 20)
}

func TestSwipeDeckPaging(t *testing.T) {
	repo := newFakeRepository()
	repo.addProfile(completeProfile(1, GenderMale, OrientationBi, 10, 10))
	for id := int64(2); id <= 26; id++ {
		repo.addProfile(completeProfile(id, GenderFemale, OrientationBi, 10, 10))
	}

	ranker := newTestRanker(repo)

	page0, err := ranker.SwipeDeck(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	page1, err := ranker.SwipeDeck(context.Background(), 1, 10, 1)
	require.NoError(t, err)
	page2, err := ranker.SwipeDeck(context.Background(), 1, 10, 2)
	require.NoError(t, err)

	assert.Len(t, page0, 10)
	assert.Len(t, page1, 10)
	assert.Len(t, page2, 5)

	// Pages never overlap
	seen := map[int64]bool{}
	for _, page := range [][]*ScoredCandidate{page0, page1, page2} {
		for _, c := range page {
			assert.False(t, seen[c.UserID], "candidate %d appeared twice", c.UserID)
			seen[c.UserID] = true
		}
	}

	empty, err := ranker.SwipeDeck(context.Background(), 1, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
