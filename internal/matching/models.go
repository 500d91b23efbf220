package matching

import (
	"time"

	"github.com/lib/pq"
)

// Gender values stored on a profile
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Orientation values stored on a profile. An unset orientation is treated as
// bisexual everywhere it is read.
type Orientation string

const (
	OrientationHetero Orientation = "heterosexual"
	OrientationHomo   Orientation = "homosexual"
	OrientationBi     Orientation = "bisexual"
)

// LikeKind is the action recorded when a user swipes on a candidate
type LikeKind string

const (
	LikeKindLike      LikeKind = "like"
	LikeKindSuperLike LikeKind = "super_like"
	LikeKindPass      LikeKind = "pass"
)

// Valid reports whether the kind is one the engine accepts
func (k LikeKind) Valid() bool {
	switch k {
	case LikeKindLike, LikeKindSuperLike, LikeKindPass:
		return true
	}
	return false
}

// Reciprocal reports whether the kind counts toward match reciprocity.
// Passes are recorded but never evaluated.
func (k LikeKind) Reciprocal() bool {
	return k == LikeKindLike || k == LikeKindSuperLike
}

// MatchStatus tracks the lifecycle of a match. History is never deleted;
// terminated matches keep a row with a non-active status.
type MatchStatus string

const (
	MatchActive   MatchStatus = "active"
	MatchBlocked  MatchStatus = "blocked"
	MatchReported MatchStatus = "reported"
	MatchDeleted  MatchStatus = "deleted"
)

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Profile is the engine's read model of a user profile. The profile subsystem
// owns writes; the engine only reads it, except for fame-rating increments.
type Profile struct {
	UserID       int64          `json:"user_id" db:"user_id"`
	Gender       Gender         `json:"gender" db:"gender"`
	Orientation  Orientation    `json:"orientation" db:"orientation"`
	Biography    string         `json:"biography" db:"biography"`
	InterestTags pq.StringArray `json:"interest_tags" db:"interests"`
	Pictures     pq.StringArray `json:"pictures" db:"pictures"`
	FameRating   float64        `json:"fame_rating" db:"fame_rating"`
	BirthDate    *time.Time     `json:"birth_date,omitempty" db:"birth_date"`
	Latitude     *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64       `json:"longitude,omitempty" db:"longitude"`
	City         *string        `json:"city,omitempty" db:"city"`
	Country      *string        `json:"country,omitempty" db:"country"`
	LastSeen     *time.Time     `json:"last_seen,omitempty" db:"last_seen"`
}

// Location returns the profile's coordinates, or nil when the user has not
// shared a location. Missing locations rank with the sentinel distance
// instead of being excluded.
func (p *Profile) Location() *Coordinates {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

// Complete reports whether the profile may appear in discovery. Location is
// deliberately not required: profiles without one sink via the distance
// sentinel rather than disappearing.
func (p *Profile) Complete() bool {
	return p.Gender != "" &&
		p.BirthDate != nil &&
		p.Biography != "" &&
		len(p.Pictures) >= 1
}

// Like is a directed expression of interest, unique per ordered pair.
// Re-liking replaces the existing row.
type Like struct {
	LikerID   int64     `json:"liker_id" db:"liker_id"`
	TargetID  int64     `json:"target_id" db:"target_id"`
	Kind      LikeKind  `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Match is an undirected connection keyed by the unordered pair
// (UserAID < UserBID). At most one active match may exist per pair.
type Match struct {
	ID        int64       `json:"id" db:"id"`
	UserAID   int64       `json:"user_a_id" db:"user_a_id"`
	UserBID   int64       `json:"user_b_id" db:"user_b_id"`
	Status    MatchStatus `json:"status" db:"status"`
	MatchedAt time.Time   `json:"matched_at" db:"matched_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Includes reports whether userID is one side of the match
func (m *Match) Includes(userID int64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// Other returns the match partner of userID
func (m *Match) Other(userID int64) int64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// Block is a directed block edge, unique per ordered pair
type Block struct {
	BlockerID int64     `json:"blocker_id" db:"blocker_id"`
	BlockedID int64     `json:"blocked_id" db:"blocked_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Report flags a profile for moderation, unique per ordered pair
type Report struct {
	ReporterID  int64     `json:"reporter_id" db:"reporter_id"`
	ReportedID  int64     `json:"reported_id" db:"reported_id"`
	Reason      string    `json:"reason" db:"reason"`
	Description string    `json:"description,omitempty" db:"description"`
	Resolved    bool      `json:"resolved" db:"resolved"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ScoredCandidate is one ranked entry of a suggestion list or swipe deck.
// Lower score means better match.
type ScoredCandidate struct {
	UserID     int64   `json:"user_id"`
	DistanceKm float64 `json:"distance_km"`
	TagOverlap int     `json:"tag_overlap"`
	FameRating float64 `json:"fame_rating"`
	LikedYou   bool    `json:"liked_you"`
	Score      float64 `json:"score"`
}

// orderPair returns the two IDs in ascending order, the canonical key for
// match rows
func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
