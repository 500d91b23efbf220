package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when the partial unique
// index on active matches rejects a duplicate insert during a like race
const uniqueViolation = "23505"

type Repository interface {
	// Profiles (read-only, plus the fame-rating engagement increment)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	ListCandidateProfiles(ctx context.Context, excludeUserID int64) ([]*Profile, error)
	IncrementFame(ctx context.Context, userID int64, delta float64) error

	// Likes
	GetLike(ctx context.Context, likerID, targetID int64) (*Like, error)
	DeleteLike(ctx context.Context, likerID, targetID int64) (bool, error)
	DeleteLikesBetween(ctx context.Context, userA, userB int64) error
	LikerIDs(ctx context.Context, targetID int64) (map[int64]struct{}, error)

	// LikeAndMatch records the like and, when a reciprocal like exists,
	// creates the active match in the same transaction. Exactly one match
	// results per pair regardless of interleaving; the losing side of a race
	// observes the winner's match, not an error.
	LikeAndMatch(ctx context.Context, like *Like) (*LikeWrite, error)

	// Matches
	GetActiveMatch(ctx context.Context, userA, userB int64) (*Match, error)
	HasActiveMatch(ctx context.Context, userA, userB int64) (bool, error)
	ListMatches(ctx context.Context, userID int64, status MatchStatus) ([]*Match, error)
	RetireMatch(ctx context.Context, userA, userB int64, to MatchStatus) (*Match, error)

	// Blocks
	CreateBlock(ctx context.Context, blockerID, blockedID int64) error
	DeleteBlock(ctx context.Context, blockerID, blockedID int64) (bool, error)
	IsBlockedEitherWay(ctx context.Context, userA, userB int64) (bool, error)
	BlockedUserIDs(ctx context.Context, userID int64) (map[int64]struct{}, error)

	// Reports
	CreateReport(ctx context.Context, report *Report) error
}

// LikeWrite describes what LikeAndMatch changed.
type LikeWrite struct {
	// PrevKind is the kind the upsert replaced, empty when no like existed
	// for the ordered pair before this call
	PrevKind LikeKind

	// Match is the pair's active match after the call, nil when none exists
	Match *Match

	// MatchCreated reports whether this call inserted the match row
	MatchCreated bool
}

type postgresRepository struct {
	db      *sqlx.DB
	fameMax float64
}

// NewPostgresRepository creates the engine's store. fameMax bounds the fame
// rating on engagement increments.
func NewPostgresRepository(db *sqlx.DB, fameMax float64) Repository {
	return &postgresRepository{db: db, fameMax: fameMax}
}

// Profile methods

// gender and biography are nullable until profile setup; the engine reads
// them as empty strings and lets the completeness check sort it out
const profileColumns = `
	user_id, COALESCE(gender, '') AS gender, orientation,
	COALESCE(biography, '') AS biography, interests, pictures,
	fame_rating, birth_date, latitude, longitude, city, country, last_seen
`

func (r *postgresRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id = $1 AND account_status = 'active'`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

func (r *postgresRepository) ListCandidateProfiles(ctx context.Context, excludeUserID int64) ([]*Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id <> $1 AND account_status = 'active'`

	rows, err := r.db.QueryxContext(ctx, query, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		var profile Profile
		if err := rows.StructScan(&profile); err != nil {
			// A single bad candidate row is excluded, not fatal for the pass
			continue
		}
		profiles = append(profiles, &profile)
	}

	return profiles, rows.Err()
}

func (r *postgresRepository) IncrementFame(ctx context.Context, userID int64, delta float64) error {
	query := `
		UPDATE profiles
		SET fame_rating = LEAST(GREATEST(fame_rating + $2, 0), $3)
		WHERE user_id = $1`

	_, err := r.db.ExecContext(ctx, query, userID, delta, r.fameMax)
	if err != nil {
		return fmt.Errorf("increment fame: %w", err)
	}
	return nil
}

// Like methods

func (r *postgresRepository) GetLike(ctx context.Context, likerID, targetID int64) (*Like, error) {
	var like Like
	query := `SELECT liker_id, target_id, kind, created_at FROM likes WHERE liker_id = $1 AND target_id = $2`

	err := r.db.GetContext(ctx, &like, query, likerID, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get like: %w", err)
	}

	return &like, nil
}

func (r *postgresRepository) DeleteLike(ctx context.Context, likerID, targetID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE liker_id = $1 AND target_id = $2`, likerID, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *postgresRepository) DeleteLikesBetween(ctx context.Context, userA, userB int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM likes
		WHERE (liker_id = $1 AND target_id = $2) OR (liker_id = $2 AND target_id = $1)`,
		userA, userB)
	if err != nil {
		return fmt.Errorf("delete likes between: %w", err)
	}
	return nil
}

func (r *postgresRepository) LikerIDs(ctx context.Context, targetID int64) (map[int64]struct{}, error) {
	var ids []int64
	query := `SELECT liker_id FROM likes WHERE target_id = $1 AND kind IN ('like', 'super_like')`

	if err := r.db.SelectContext(ctx, &ids, query, targetID); err != nil {
		return nil, fmt.Errorf("liker ids: %w", err)
	}

	likers := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		likers[id] = struct{}{}
	}
	return likers, nil
}

// LikeAndMatch is the engine's one atomic compare-and-swap: the like upsert,
// the reciprocity check and the match insert run in a single transaction
// holding the pair's advisory lock, and the match insert relies on the
// partial unique index matches(user_a_id, user_b_id) WHERE status = 'active'.
func (r *postgresRepository) LikeAndMatch(ctx context.Context, like *Like) (*LikeWrite, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin like tx: %w", err)
	}
	defer tx.Rollback()

	// Serialize concurrent mutual likes for the pair. At read committed, two
	// reciprocity checks racing from opposite directions would each miss the
	// other's uncommitted like and commit with no match row ever inserted.
	// The lock is released automatically on commit or rollback.
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock($1)`, pairLockKey(like.LikerID, like.TargetID)); err != nil {
		return nil, fmt.Errorf("lock pair: %w", err)
	}

	write := &LikeWrite{}
	err = tx.GetContext(ctx, &write.PrevKind,
		`SELECT kind FROM likes WHERE liker_id = $1 AND target_id = $2`,
		like.LikerID, like.TargetID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read previous like: %w", err)
	}

	// Re-liking replaces the previous row for the ordered pair
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO likes (liker_id, target_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (liker_id, target_id)
		DO UPDATE SET kind = EXCLUDED.kind, created_at = CURRENT_TIMESTAMP
		RETURNING created_at`,
		like.LikerID, like.TargetID, like.Kind,
	).Scan(&like.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert like: %w", err)
	}

	if !like.Kind.Reciprocal() {
		return write, tx.Commit()
	}

	var reciprocal bool
	err = tx.GetContext(ctx, &reciprocal, `
		SELECT EXISTS(
			SELECT 1 FROM likes
			WHERE liker_id = $1 AND target_id = $2 AND kind IN ('like', 'super_like')
		)`,
		like.TargetID, like.LikerID)
	if err != nil {
		return nil, fmt.Errorf("check reciprocal like: %w", err)
	}
	if !reciprocal {
		return write, tx.Commit()
	}

	userA, userB := orderPair(like.LikerID, like.TargetID)
	write.MatchCreated = true

	var match Match
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO matches (user_a_id, user_b_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (user_a_id, user_b_id) WHERE status = 'active'
		DO NOTHING
		RETURNING id, user_a_id, user_b_id, status, matched_at, updated_at`,
		userA, userB,
	).StructScan(&match)

	switch {
	case err == nil:
		// This call inserted the match
	case errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err):
		// An active match already exists from an earlier mutual like;
		// surface it so the caller observes "matched"
		write.MatchCreated = false
		err = tx.GetContext(ctx, &match, `
			SELECT id, user_a_id, user_b_id, status, matched_at, updated_at
			FROM matches
			WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'`,
			userA, userB)
		if errors.Is(err, sql.ErrNoRows) {
			// Should not happen while holding the pair lock; treat as no
			// match yet
			return write, tx.Commit()
		}
		if err != nil {
			return nil, fmt.Errorf("fetch existing match: %w", err)
		}
	default:
		return nil, fmt.Errorf("create match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit like tx: %w", err)
	}
	write.Match = &match
	return write, nil
}

// pairLockKey folds the unordered pair into a single advisory lock key.
// Distinct pairs may collide on the key; a collision only serializes two
// unrelated like transactions, never corrupts state.
func pairLockKey(a, b int64) int64 {
	a, b = orderPair(a, b)
	return a<<32 ^ b
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// Match methods

func (r *postgresRepository) GetActiveMatch(ctx context.Context, userA, userB int64) (*Match, error) {
	userA, userB = orderPair(userA, userB)

	var match Match
	query := `
		SELECT id, user_a_id, user_b_id, status, matched_at, updated_at
		FROM matches
		WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'`

	err := r.db.GetContext(ctx, &match, query, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active match: %w", err)
	}

	return &match, nil
}

func (r *postgresRepository) HasActiveMatch(ctx context.Context, userA, userB int64) (bool, error) {
	userA, userB = orderPair(userA, userB)

	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM matches
			WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'
		)`

	err := r.db.GetContext(ctx, &exists, query, userA, userB)
	if err != nil {
		return false, fmt.Errorf("has active match: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ListMatches(ctx context.Context, userID int64, status MatchStatus) ([]*Match, error) {
	var matches []*Match
	query := `
		SELECT id, user_a_id, user_b_id, status, matched_at, updated_at
		FROM matches
		WHERE (user_a_id = $1 OR user_b_id = $1) AND status = $2
		ORDER BY matched_at DESC`

	if err := r.db.SelectContext(ctx, &matches, query, userID, status); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// RetireMatch moves the pair's active match to the given status. Returns the
// updated match, or nil when the pair has no active match. Retired matches
// are history and never transition again.
func (r *postgresRepository) RetireMatch(ctx context.Context, userA, userB int64, to MatchStatus) (*Match, error) {
	userA, userB = orderPair(userA, userB)

	var match Match
	query := `
		UPDATE matches
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'
		RETURNING id, user_a_id, user_b_id, status, matched_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, userA, userB, to).StructScan(&match)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retire match: %w", err)
	}

	return &match, nil
}

// Block methods

func (r *postgresRepository) CreateBlock(ctx context.Context, blockerID, blockedID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
		blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteBlock(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("delete block: %w", err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *postgresRepository) IsBlockedEitherWay(ctx context.Context, userA, userB int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
		)`

	err := r.db.GetContext(ctx, &exists, query, userA, userB)
	if err != nil {
		return false, fmt.Errorf("is blocked: %w", err)
	}
	return exists, nil
}

// BlockedUserIDs returns every user blocked by or blocking userID. Visibility
// is symmetric: the blocker disappears from the blocked user's results too.
func (r *postgresRepository) BlockedUserIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	var ids []int64
	query := `
		SELECT blocked_id FROM blocks WHERE blocker_id = $1
		UNION
		SELECT blocker_id FROM blocks WHERE blocked_id = $1`

	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("blocked user ids: %w", err)
	}

	blocked := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		blocked[id] = struct{}{}
	}
	return blocked, nil
}

// Report methods

func (r *postgresRepository) CreateReport(ctx context.Context, report *Report) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO reports (reporter_id, reported_id, reason, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reporter_id, reported_id)
		DO UPDATE SET reason = EXCLUDED.reason, description = EXCLUDED.description
		RETURNING created_at`,
		report.ReporterID, report.ReportedID, report.Reason, report.Description,
	).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}
