// internal/profile/models.go

package profile

import (
	"time"

	"github.com/lib/pq"
)

// Profile is the dating profile behind a user account.
type Profile struct {
	ID            int64          `json:"id" db:"id"`
	UserID        int64          `json:"user_id" db:"user_id"`
	Username      string         `json:"username" db:"username"`
	Gender        *string        `json:"gender" db:"gender"`
	Orientation   string         `json:"orientation" db:"orientation"`
	Biography     *string        `json:"biography" db:"biography"`
	Interests     pq.StringArray `json:"interests" db:"interests"`
	Pictures      pq.StringArray `json:"pictures" db:"pictures"`
	BirthDate     *time.Time     `json:"birth_date" db:"birth_date"`
	Latitude      *float64       `json:"latitude" db:"latitude"`
	Longitude     *float64       `json:"longitude" db:"longitude"`
	City          *string        `json:"city" db:"city"`
	Country       *string        `json:"country" db:"country"`
	FameRating    float64        `json:"fame_rating" db:"fame_rating"`
	AccountStatus string         `json:"account_status" db:"account_status"`
	LastSeen      time.Time      `json:"last_seen" db:"last_seen"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Age derives the user's age from the birth date, -1 when unset.
func (p *Profile) Age() int {
	if p.BirthDate == nil {
		return -1
	}
	now := time.Now()
	age := now.Year() - p.BirthDate.Year()
	if now.YearDay() < p.BirthDate.YearDay() {
		age--
	}
	return age
}

// Visit is one "who viewed me" entry.
type Visit struct {
	VisitorID int64     `json:"visitor_id" db:"visitor_id"`
	VisitedID int64     `json:"visited_id" db:"visited_id"`
	VisitedAt time.Time `json:"visited_at" db:"visited_at"`
}

// Visitor is a visit joined with the visitor's public profile fields.
type Visitor struct {
	UserID     int64          `json:"user_id" db:"user_id"`
	Username   string         `json:"username" db:"username"`
	Pictures   pq.StringArray `json:"pictures" db:"pictures"`
	FameRating float64        `json:"fame_rating" db:"fame_rating"`
	VisitedAt  time.Time      `json:"visited_at" db:"visited_at"`
}

// Completion summarizes how close a profile is to the state required for
// discovery.
type Completion struct {
	Complete   bool     `json:"complete"`
	Percentage int      `json:"percentage"`
	Missing    []string `json:"missing,omitempty"`
}

// SetupProfileRequest is the one-shot initial profile submission. It creates
// the profile row when the user has none yet.
type SetupProfileRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=30,alphanum"`
	Gender      string   `json:"gender" validate:"required,oneof=male female other"`
	Orientation string   `json:"orientation" validate:"omitempty,oneof=heterosexual homosexual bisexual"`
	Biography   string   `json:"biography" validate:"required,max=500"`
	BirthDate   string   `json:"birth_date" validate:"required"`
	Interests   []string `json:"interests" validate:"omitempty,dive,min=1,max=50"`
}

// UpdateProfileRequest carries partial profile edits; nil fields are left
// untouched.
type UpdateProfileRequest struct {
	Gender      *string   `json:"gender" validate:"omitempty,oneof=male female other"`
	Orientation *string   `json:"orientation" validate:"omitempty,oneof=heterosexual homosexual bisexual"`
	Biography   *string   `json:"biography" validate:"omitempty,max=500"`
	BirthDate   *string   `json:"birth_date"`
	Interests   *[]string `json:"interests" validate:"omitempty,dive,min=1,max=50"`
}

// UpdateLocationRequest sets the profile's geolocation.
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	Country   *string `json:"country" validate:"omitempty,max=100"`
}

// AddPictureRequest attaches an already-uploaded picture URL to the profile.
type AddPictureRequest struct {
	URL string `json:"url" validate:"required,url,max=500"`
}
