package matching

import (
	"context"
	"errors"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrSelfAction      = errors.New("cannot perform this action on yourself")
	ErrNotVisible      = errors.New("target profile is not visible to you")
	ErrInvalidKind     = errors.New("invalid like kind")
	ErrInvalidReason   = errors.New("report reason is required")
	ErrNoActiveMatch   = errors.New("no active match with this user")
)

// Fame-rating deltas applied on engagement events, clamped to the configured
// range by the store
const (
	fameDeltaLiked      = 0.5
	fameDeltaSuperLiked = 1.0
	fameDeltaMatched    = 1.0
)

// LikeOutcome is what the caller of Like observes: the recorded kind, and the
// match when this like was the reciprocal half of a pair.
type LikeOutcome struct {
	Kind    LikeKind `json:"kind"`
	Matched bool     `json:"matched"`
	Match   *Match   `json:"match,omitempty"`
}

type Service interface {
	// Discovery
	Suggestions(ctx context.Context, userID int64, limit int) ([]*ScoredCandidate, error)
	SwipeDeck(ctx context.Context, userID int64, batchSize, page int) ([]*ScoredCandidate, error)

	// Like/match state machine
	Like(ctx context.Context, likerID, targetID int64, kind LikeKind) (*LikeOutcome, error)
	Unlike(ctx context.Context, likerID, targetID int64) error
	Unmatch(ctx context.Context, userID, otherID int64) error
	Block(ctx context.Context, blockerID, blockedID int64) error
	Unblock(ctx context.Context, blockerID, blockedID int64) error
	Report(ctx context.Context, reporterID, reportedID int64, reason, description string) error

	// Connection queries
	Matches(ctx context.Context, userID int64) ([]*Match, error)
	IsConnected(ctx context.Context, userA, userB int64) (bool, error)
}

// ServicePolicy carries the moderation-policy switches the engine consults
type ServicePolicy struct {
	// ReportRetiresMatch revokes an active match on report when true.
	// Default false: a report only flags the pair for moderation.
	ReportRetiresMatch bool
}

type service struct {
	repo       Repository
	ranker     *Ranker
	visibility *VisibilityFilter
	events     *Events
	policy     ServicePolicy
}

// NewService wires the engine together. events may be nil when no collaborator
// consumes match events.
func NewService(repo Repository, ranker *Ranker, events *Events, policy ServicePolicy) Service {
	return &service{
		repo:       repo,
		ranker:     ranker,
		visibility: NewVisibilityFilter(repo),
		events:     events,
		policy:     policy,
	}
}

func (s *service) Suggestions(ctx context.Context, userID int64, limit int) ([]*ScoredCandidate, error) {
	return s.ranker.Suggestions(ctx, userID, limit)
}

func (s *service) SwipeDeck(ctx context.Context, userID int64, batchSize, page int) ([]*ScoredCandidate, error) {
	return s.ranker.SwipeDeck(ctx, userID, batchSize, page)
}

// Like validates the action, records the directed like and, when the target
// already liked back, creates the match. Both sides of a concurrent mutual
// like observe "matched"; neither observes an error.
func (s *service) Like(ctx context.Context, likerID, targetID int64, kind LikeKind) (*LikeOutcome, error) {
	if likerID == targetID {
		return nil, ErrSelfAction
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	liker, err := s.repo.GetProfile(ctx, likerID)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetProfile(ctx, targetID)
	if err == ErrProfileNotFound {
		return nil, ErrNotVisible
	}
	if err != nil {
		return nil, err
	}

	// A user cannot like someone invisible to them
	visible, err := s.visibility.Visible(ctx, liker, target)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrNotVisible
	}

	like := &Like{LikerID: likerID, TargetID: targetID, Kind: kind}
	write, err := s.repo.LikeAndMatch(ctx, like)
	if err != nil {
		return nil, err
	}

	RecordLike(kind)

	// Fame moves by the difference against the replaced kind, so re-liking
	// the same target repeatedly, or toggling kinds, cannot farm the rating
	if delta := likeFameDelta(kind) - likeFameDelta(write.PrevKind); delta != 0 {
		s.incrementFame(ctx, targetID, delta)
	}

	outcome := &LikeOutcome{Kind: kind}
	if write.Match != nil {
		outcome.Matched = true
		outcome.Match = write.Match
	}
	// Side effects fire once per match, not on every re-like of a matched
	// pair
	if write.MatchCreated {
		RecordMatchCreated()
		s.incrementFame(ctx, write.Match.UserAID, fameDeltaMatched)
		s.incrementFame(ctx, write.Match.UserBID, fameDeltaMatched)
		s.events.PublishMatchCreated(write.Match)
	}

	return outcome, nil
}

// likeFameDelta is the fame contribution of a like kind; passes and absent
// likes contribute nothing.
func likeFameDelta(kind LikeKind) float64 {
	switch kind {
	case LikeKindLike:
		return fameDeltaLiked
	case LikeKindSuperLike:
		return fameDeltaSuperLiked
	}
	return 0
}

// Unlike removes a pending like and reverses its fame contribution. An
// existing match survives: only explicit unmatch or block retires it.
func (s *service) Unlike(ctx context.Context, likerID, targetID int64) error {
	if likerID == targetID {
		return ErrSelfAction
	}

	existing, err := s.repo.GetLike(ctx, likerID, targetID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	removed, err := s.repo.DeleteLike(ctx, likerID, targetID)
	if err != nil {
		return err
	}
	if removed {
		if delta := likeFameDelta(existing.Kind); delta != 0 {
			s.incrementFame(ctx, targetID, -delta)
		}
	}
	return nil
}

// Unmatch terminates the match; the deleted status is terminal. Both like
// rows are removed so a connection can only re-form from a clean mutual
// re-like.
func (s *service) Unmatch(ctx context.Context, userID, otherID int64) error {
	if userID == otherID {
		return ErrSelfAction
	}

	match, err := s.repo.RetireMatch(ctx, userID, otherID, MatchDeleted)
	if err != nil {
		return err
	}
	if match == nil {
		return ErrNoActiveMatch
	}

	if err := s.repo.DeleteLikesBetween(ctx, userID, otherID); err != nil {
		return err
	}

	RecordMatchRetired(MatchDeleted)
	s.events.PublishMatchRevoked(match)
	return nil
}

// Block removes the pair from each other's discovery and retires any active
// match. Idempotent.
func (s *service) Block(ctx context.Context, blockerID, blockedID int64) error {
	if blockerID == blockedID {
		return ErrSelfAction
	}

	if err := s.repo.CreateBlock(ctx, blockerID, blockedID); err != nil {
		return err
	}

	RecordBlock()

	match, err := s.repo.RetireMatch(ctx, blockerID, blockedID, MatchBlocked)
	if err != nil {
		return err
	}
	if match != nil {
		RecordMatchRetired(MatchBlocked)
		s.events.PublishMatchRevoked(match)
	}
	return nil
}

// Unblock removes the block edge only; a previously retired match stays
// retired.
func (s *service) Unblock(ctx context.Context, blockerID, blockedID int64) error {
	if blockerID == blockedID {
		return ErrSelfAction
	}

	_, err := s.repo.DeleteBlock(ctx, blockerID, blockedID)
	return err
}

// Report flags the pair for moderation. By default the match keeps working;
// the retire-on-report policy is an explicit configuration switch.
func (s *service) Report(ctx context.Context, reporterID, reportedID int64, reason, description string) error {
	if reporterID == reportedID {
		return ErrSelfAction
	}
	if reason == "" {
		return ErrInvalidReason
	}

	report := &Report{
		ReporterID:  reporterID,
		ReportedID:  reportedID,
		Reason:      reason,
		Description: description,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return err
	}

	RecordReport()

	if s.policy.ReportRetiresMatch {
		match, err := s.repo.RetireMatch(ctx, reporterID, reportedID, MatchReported)
		if err != nil {
			return err
		}
		if match != nil {
			RecordMatchRetired(MatchReported)
			s.events.PublishMatchRevoked(match)
		}
	}
	return nil
}

func (s *service) Matches(ctx context.Context, userID int64) ([]*Match, error) {
	return s.repo.ListMatches(ctx, userID, MatchActive)
}

// IsConnected answers the chat/notification collaborators' precondition for
// message delivery: an active match exists for the unordered pair.
func (s *service) IsConnected(ctx context.Context, userA, userB int64) (bool, error) {
	if userA == userB {
		return false, nil
	}
	return s.repo.HasActiveMatch(ctx, userA, userB)
}

// incrementFame applies an engagement delta; fame is a ranking signal, so a
// failed increment is not allowed to fail the user's action
func (s *service) incrementFame(ctx context.Context, userID int64, delta float64) {
	_ = s.repo.IncrementFame(ctx, userID, delta)
}
