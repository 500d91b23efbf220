// internal/profile/service.go

package profile

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrUserBlocked      = errors.New("user is blocked")
	ErrInvalidBirthDate = errors.New("invalid birth date")
	ErrUnderage         = errors.New("user must be at least 18 years old")
	ErrTooManyInterests = errors.New("too many interests")
	ErrTooManyPictures  = errors.New("picture limit reached")
	ErrLastPicture      = errors.New("cannot remove the last picture")
	ErrPictureNotFound  = errors.New("picture not found")
)

const fameDeltaVisited = 0.1

// Limits carries the configured profile constraints.
type Limits struct {
	MaxInterests int
	MaxPictures  int
	MinPictures  int
}

// Service defines the profile service interface
type Service interface {
	GetMyProfile(ctx context.Context, userID int64) (*Profile, error)
	GetProfile(ctx context.Context, viewerID, userID int64) (*Profile, error)
	SetupProfile(ctx context.Context, userID int64, req *SetupProfileRequest) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error)
	UpdateLocation(ctx context.Context, userID int64, req *UpdateLocationRequest) error

	AddPicture(ctx context.Context, userID int64, url string) (*Profile, error)
	RemovePicture(ctx context.Context, userID int64, url string) (*Profile, error)

	GetCompletion(ctx context.Context, userID int64) (*Completion, error)
	GetVisitors(ctx context.Context, userID int64, limit int) ([]*Visitor, error)

	TouchLastSeen(ctx context.Context, userID int64) error
	DeactivateAccount(ctx context.Context, userID int64) error
	ReactivateAccount(ctx context.Context, userID int64) error
}

type service struct {
	repo   Repository
	limits Limits
}

// NewService creates a new profile service
func NewService(repo Repository, limits Limits) Service {
	return &service{repo: repo, limits: limits}
}

func (s *service) GetMyProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetProfile returns another user's profile and records the visit. Visits
// feed the visitor list and nudge the visited user's fame rating.
func (s *service) GetProfile(ctx context.Context, viewerID, userID int64) (*Profile, error) {
	if viewerID == userID {
		return s.GetMyProfile(ctx, userID)
	}

	blocked, err := s.repo.IsBlockedEitherWay(ctx, viewerID, userID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}

	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RecordVisit(ctx, viewerID, userID); err == nil {
		// visit fame is best effort
		_ = s.repo.IncrementFame(ctx, userID, fameDeltaVisited)
	}

	return profile, nil
}

func (s *service) SetupProfile(ctx context.Context, userID int64, req *SetupProfileRequest) (*Profile, error) {
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	if len(req.Interests) > s.limits.MaxInterests {
		return nil, ErrTooManyInterests
	}

	orientation := req.Orientation
	if orientation == "" {
		orientation = "bisexual"
	}

	return s.repo.Setup(ctx, userID, req.Username, req.Gender, orientation, req.Biography, birthDate, req.Interests)
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error) {
	var birthDate *time.Time
	if req.BirthDate != nil {
		parsed, err := parseBirthDate(*req.BirthDate)
		if err != nil {
			return nil, err
		}
		birthDate = &parsed
	}

	if req.Interests != nil && len(*req.Interests) > s.limits.MaxInterests {
		return nil, ErrTooManyInterests
	}

	return s.repo.Update(ctx, userID, req, birthDate)
}

func (s *service) UpdateLocation(ctx context.Context, userID int64, req *UpdateLocationRequest) error {
	return s.repo.UpdateLocation(ctx, userID, req.Latitude, req.Longitude, req.City, req.Country)
}

func (s *service) AddPicture(ctx context.Context, userID int64, url string) (*Profile, error) {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Re-adding a picture the profile already has is a no-op even at the cap
	for _, existing := range profile.Pictures {
		if existing == url {
			return profile, nil
		}
	}
	if len(profile.Pictures) >= s.limits.MaxPictures {
		return nil, ErrTooManyPictures
	}

	pictures := append([]string(profile.Pictures), url)
	if err := s.repo.UpdatePictures(ctx, userID, pictures); err != nil {
		return nil, err
	}
	profile.Pictures = pictures
	return profile, nil
}

func (s *service) RemovePicture(ctx context.Context, userID int64, url string) (*Profile, error) {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, existing := range profile.Pictures {
		if existing == url {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, ErrPictureNotFound
	}
	if len(profile.Pictures) <= s.limits.MinPictures {
		return nil, ErrLastPicture
	}

	pictures := append([]string{}, profile.Pictures[:index]...)
	pictures = append(pictures, profile.Pictures[index+1:]...)
	if err := s.repo.UpdatePictures(ctx, userID, pictures); err != nil {
		return nil, err
	}
	profile.Pictures = pictures
	return profile, nil
}

// GetCompletion reports which of the discovery-gating fields are still
// missing. Location is advisory only: profiles without it stay discoverable.
func (s *service) GetCompletion(ctx context.Context, userID int64) (*Completion, error) {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	missing := []string{}
	if profile.Gender == nil || *profile.Gender == "" {
		missing = append(missing, "gender")
	}
	if profile.BirthDate == nil {
		missing = append(missing, "birth_date")
	}
	if profile.Biography == nil || *profile.Biography == "" {
		missing = append(missing, "biography")
	}
	if len(profile.Pictures) == 0 {
		missing = append(missing, "pictures")
	}

	total := 4
	completion := &Completion{
		Complete:   len(missing) == 0,
		Percentage: (total - len(missing)) * 100 / total,
		Missing:    missing,
	}
	return completion, nil
}

func (s *service) GetVisitors(ctx context.Context, userID int64, limit int) ([]*Visitor, error) {
	return s.repo.ListVisitors(ctx, userID, limit)
}

func (s *service) TouchLastSeen(ctx context.Context, userID int64) error {
	return s.repo.TouchLastSeen(ctx, userID)
}

func (s *service) DeactivateAccount(ctx context.Context, userID int64) error {
	return s.repo.SetAccountStatus(ctx, userID, "deactivated")
}

func (s *service) ReactivateAccount(ctx context.Context, userID int64) error {
	return s.repo.SetAccountStatus(ctx, userID, "active")
}

func parseBirthDate(value string) (time.Time, error) {
	birthDate, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, ErrInvalidBirthDate
	}
	if birthDate.After(time.Now().AddDate(-18, 0, 0)) {
		return time.Time{}, ErrUnderage
	}
	return birthDate, nil
}
