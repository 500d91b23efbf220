package matching

import "context"

// VisibilityFilter decides whether one user may see another in discovery.
// The same predicate gates ranking candidate pools and new like/match
// formation. It is NOT re-applied to already-active matches: only explicit
// block, report or unmatch transitions revoke those.
type VisibilityFilter struct {
	repo Repository
}

// NewVisibilityFilter creates the filter over the engine's store
func NewVisibilityFilter(repo Repository) *VisibilityFilter {
	return &VisibilityFilter{repo: repo}
}

// Visible evaluates the full predicate for one pair, consulting the block
// store. Checks short-circuit in order: same user, blocks, profile
// completeness, orientation reciprocity.
func (f *VisibilityFilter) Visible(ctx context.Context, viewer, target *Profile) (bool, error) {
	if viewer == nil || target == nil {
		return false, nil
	}
	if viewer.UserID == target.UserID {
		return false, nil
	}

	blocked, err := f.repo.IsBlockedEitherWay(ctx, viewer.UserID, target.UserID)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}

	return visibleProfiles(viewer, target), nil
}

// visibleProfiles is the block-free part of the predicate, shared with the
// ranker which pre-fetches the viewer's block set for the whole pool.
func visibleProfiles(viewer, target *Profile) bool {
	if viewer.UserID == target.UserID {
		return false
	}
	if !target.Complete() {
		return false
	}
	return OrientationReciprocal(viewer.Gender, viewer.Orientation, target.Gender, target.Orientation)
}
