// internal/profile/repository.go

package profile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines the profile storage interface
type Repository interface {
	GetByUserID(ctx context.Context, userID int64) (*Profile, error)
	Setup(ctx context.Context, userID int64, username, gender, orientation, biography string, birthDate time.Time, interests []string) (*Profile, error)
	Update(ctx context.Context, userID int64, req *UpdateProfileRequest, birthDate *time.Time) (*Profile, error)
	UpdateLocation(ctx context.Context, userID int64, lat, lon float64, city, country *string) error
	UpdatePictures(ctx context.Context, userID int64, pictures []string) error
	SetAccountStatus(ctx context.Context, userID int64, status string) error
	TouchLastSeen(ctx context.Context, userID int64) error
	IncrementFame(ctx context.Context, userID int64, delta float64) error

	RecordVisit(ctx context.Context, visitorID, visitedID int64) error
	ListVisitors(ctx context.Context, userID int64, limit int) ([]*Visitor, error)

	IsBlockedEitherWay(ctx context.Context, userA, userB int64) (bool, error)
}

type postgresRepository struct {
	db      *sqlx.DB
	fameMax float64
}

// NewPostgresRepository creates a PostgreSQL-backed profile repository
func NewPostgresRepository(db *sqlx.DB, fameMax float64) Repository {
	return &postgresRepository{db: db, fameMax: fameMax}
}

const profileColumns = `
	id, user_id, username, gender, orientation, biography, interests,
	pictures, birth_date, latitude, longitude, city, country,
	fame_rating, account_status, last_seen, created_at, updated_at`

func (r *postgresRepository) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// Setup creates the profile on first call and overwrites the setup fields on
// repeat calls.
func (r *postgresRepository) Setup(ctx context.Context, userID int64, username, gender, orientation, biography string, birthDate time.Time, interests []string) (*Profile, error) {
	var profile Profile
	query := `
		INSERT INTO profiles (user_id, username, gender, orientation, biography, birth_date, interests)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username, gender = EXCLUDED.gender,
		    orientation = EXCLUDED.orientation, biography = EXCLUDED.biography,
		    birth_date = EXCLUDED.birth_date, interests = EXCLUDED.interests,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING ` + profileColumns

	err := r.db.GetContext(ctx, &profile, query,
		userID, username, gender, orientation, biography, birthDate, pq.StringArray(interests))
	if err != nil {
		return nil, fmt.Errorf("failed to setup profile: %w", err)
	}
	return &profile, nil
}

// Update applies only the fields present in the request.
func (r *postgresRepository) Update(ctx context.Context, userID int64, req *UpdateProfileRequest, birthDate *time.Time) (*Profile, error) {
	setClauses := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{userID}
	argPos := 2

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if req.Gender != nil {
		addClause("gender", *req.Gender)
	}
	if req.Orientation != nil {
		addClause("orientation", *req.Orientation)
	}
	if req.Biography != nil {
		addClause("biography", *req.Biography)
	}
	if birthDate != nil {
		addClause("birth_date", *birthDate)
	}
	if req.Interests != nil {
		addClause("interests", pq.StringArray(*req.Interests))
	}

	query := fmt.Sprintf(`
		UPDATE profiles SET %s
		WHERE user_id = $1
		RETURNING %s`, strings.Join(setClauses, ", "), profileColumns)

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &profile, nil
}

func (r *postgresRepository) UpdateLocation(ctx context.Context, userID int64, lat, lon float64, city, country *string) error {
	query := `
		UPDATE profiles
		SET latitude = $2, longitude = $3, city = $4, country = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, lat, lon, city, country)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	return requireRow(result, ErrProfileNotFound)
}

func (r *postgresRepository) UpdatePictures(ctx context.Context, userID int64, pictures []string) error {
	query := `
		UPDATE profiles
		SET pictures = $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, pq.StringArray(pictures))
	if err != nil {
		return fmt.Errorf("failed to update pictures: %w", err)
	}
	return requireRow(result, ErrProfileNotFound)
}

func (r *postgresRepository) SetAccountStatus(ctx context.Context, userID int64, status string) error {
	query := `
		UPDATE profiles
		SET account_status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, status)
	if err != nil {
		return fmt.Errorf("failed to set account status: %w", err)
	}
	return requireRow(result, ErrProfileNotFound)
}

func (r *postgresRepository) TouchLastSeen(ctx context.Context, userID int64) error {
	query := `UPDATE profiles SET last_seen = CURRENT_TIMESTAMP WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *postgresRepository) IncrementFame(ctx context.Context, userID int64, delta float64) error {
	query := `
		UPDATE profiles
		SET fame_rating = LEAST(GREATEST(fame_rating + $2, 0), $3)
		WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID, delta, r.fameMax)
	return err
}

// RecordVisit keeps one row per visitor pair; a repeat visit refreshes the
// timestamp.
func (r *postgresRepository) RecordVisit(ctx context.Context, visitorID, visitedID int64) error {
	query := `
		INSERT INTO visits (visitor_id, visited_id, visited_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (visitor_id, visited_id)
		DO UPDATE SET visited_at = CURRENT_TIMESTAMP`

	_, err := r.db.ExecContext(ctx, query, visitorID, visitedID)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListVisitors(ctx context.Context, userID int64, limit int) ([]*Visitor, error) {
	query := `
		SELECT p.user_id, p.username, p.pictures, p.fame_rating, v.visited_at
		FROM visits v
		JOIN profiles p ON p.user_id = v.visitor_id
		WHERE v.visited_id = $1 AND p.account_status = 'active'
		ORDER BY v.visited_at DESC
		LIMIT $2`

	visitors := []*Visitor{}
	if err := r.db.SelectContext(ctx, &visitors, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	return visitors, nil
}

func (r *postgresRepository) IsBlockedEitherWay(ctx context.Context, userA, userB int64) (bool, error) {
	var blocked bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)`

	if err := r.db.GetContext(ctx, &blocked, query, userA, userB); err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}

func requireRow(result sql.Result, missing error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
