package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

// Scoring weights. Lower score means better match: distance dominates, tag
// overlap and incoming interest pull candidates up the list.
const (
	tagOverlapWeight = 2.0
	fameWeight       = 0.1
	likedYouBonus    = 5.0
)

// Ranker turns the visible candidate pool for a user into an ordered
// suggestion list. Rankings are pure reads with no side effects on like or
// match state. A short-lived redis snapshot keeps swipe-deck pages consistent
// between requests; the ordering may lag like/block changes by the TTL.
type Ranker struct {
	repo     Repository
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewRanker creates a ranker. cache may be nil, in which case every request
// recomputes the ordering.
func NewRanker(repo Repository, cache *redis.Client, cacheTTL time.Duration) *Ranker {
	return &Ranker{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// Suggestions returns the top-limit candidates for the user, best first.
// A missing profile or an empty pool yields an empty list, never an error.
func (r *Ranker) Suggestions(ctx context.Context, userID int64, limit int) ([]*ScoredCandidate, error) {
	ranked, err := r.rank(ctx, userID)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// SwipeDeck returns one deterministic page of the same ordering, sized for
// sequential swipe consumption.
func (r *Ranker) SwipeDeck(ctx context.Context, userID int64, batchSize, page int) ([]*ScoredCandidate, error) {
	ranked, err := r.rank(ctx, userID)
	if err != nil {
		return nil, err
	}

	if batchSize < 1 || page < 0 {
		return []*ScoredCandidate{}, nil
	}

	start := page * batchSize
	if start >= len(ranked) {
		return []*ScoredCandidate{}, nil
	}

	end := start + batchSize
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[start:end], nil
}

func (r *Ranker) rank(ctx context.Context, userID int64) ([]*ScoredCandidate, error) {
	if cached, ok := r.cachedRanking(ctx, userID); ok {
		return cached, nil
	}

	start := time.Now()

	user, err := r.repo.GetProfile(ctx, userID)
	if err == ErrProfileNotFound {
		return []*ScoredCandidate{}, nil
	}
	if err != nil {
		return nil, err
	}

	candidates, err := r.repo.ListCandidateProfiles(ctx, userID)
	if err != nil {
		return nil, err
	}

	blocked, err := r.repo.BlockedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	likers, err := r.repo.LikerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	userLoc := user.Location()

	scored := make([]*ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if _, isBlocked := blocked[candidate.UserID]; isBlocked {
			continue
		}
		if !visibleProfiles(user, candidate) {
			continue
		}

		dist := Distance(userLoc, candidate.Location())
		overlap := TagOverlap(user.InterestTags, candidate.InterestTags)
		_, likedYou := likers[candidate.UserID]

		score := dist - tagOverlapWeight*float64(overlap) - fameWeight*candidate.FameRating
		if likedYou {
			score -= likedYouBonus
		}

		scored = append(scored, &ScoredCandidate{
			UserID:     candidate.UserID,
			DistanceKm: dist,
			TagOverlap: overlap,
			FameRating: candidate.FameRating,
			LikedYou:   likedYou,
			Score:      score,
		})
	}

	// Ascending score; ties broken by fame descending, then user ID ascending
	// for a deterministic ordering
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score < scored[j].Score
		}
		if scored[i].FameRating != scored[j].FameRating {
			return scored[i].FameRating > scored[j].FameRating
		}
		return scored[i].UserID < scored[j].UserID
	})

	RecordRanking(time.Since(start), len(scored))
	r.storeRanking(ctx, userID, scored)

	return scored, nil
}

func rankingKey(userID int64) string {
	return fmt.Sprintf("matching:ranking:%d", userID)
}

func (r *Ranker) cachedRanking(ctx context.Context, userID int64) ([]*ScoredCandidate, bool) {
	if r.cache == nil {
		return nil, false
	}

	raw, err := r.cache.Get(ctx, rankingKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}

	var scored []*ScoredCandidate
	if err := json.Unmarshal(raw, &scored); err != nil {
		return nil, false
	}
	return scored, true
}

// storeRanking best-effort caches the ordering; a cache failure degrades to
// recomputation on the next request
func (r *Ranker) storeRanking(ctx context.Context, userID int64, scored []*ScoredCandidate) {
	if r.cache == nil {
		return
	}

	raw, err := json.Marshal(scored)
	if err != nil {
		return
	}
	r.cache.Set(ctx, rankingKey(userID), raw, r.cacheTTL)
}
