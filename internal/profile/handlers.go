// internal/profile/handlers.go

package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/matcha-dev/matcha-backend/internal/auth"
	"github.com/matcha-dev/matcha-backend/internal/common/utils"
)

const defaultVisitorLimit = 50

// Handler handles profile-related HTTP requests
type Handler struct {
	service   Service
	validator *validator.Validate
}

// NewHandler creates a new profile handler
func NewHandler(service Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// GetMyProfile returns the authenticated user's own profile.
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.service.GetMyProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// GetUserProfile returns another user's profile and records the visit.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), viewerID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrProfileNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
		case errors.Is(err, ErrUserBlocked):
			utils.RespondWithError(w, http.StatusForbidden, "User is blocked")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// SetupProfile creates or resets the profile from the initial submission.
func (h *Handler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SetupProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	profile, err := h.service.SetupProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondProfileError(w, err, "Failed to setup profile")
		return
	}

	utils.RespondWithData(w, http.StatusCreated, profile)
}

// UpdateProfile applies a partial edit to the profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondProfileError(w, err, "Failed to update profile")
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// UpdateLocation sets the profile's coordinates.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.service.UpdateLocation(r.Context(), userID, &req); err != nil {
		h.respondProfileError(w, err, "Failed to update location")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Location updated")
}

// AddPicture attaches a picture URL to the profile.
func (h *Handler) AddPicture(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddPictureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	profile, err := h.service.AddPicture(r.Context(), userID, req.URL)
	if err != nil {
		if errors.Is(err, ErrTooManyPictures) {
			utils.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		h.respondProfileError(w, err, "Failed to add picture")
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// RemovePicture detaches a picture URL from the profile.
func (h *Handler) RemovePicture(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddPictureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	profile, err := h.service.RemovePicture(r.Context(), userID, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, ErrPictureNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrLastPicture):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			h.respondProfileError(w, err, "Failed to remove picture")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// GetCompletion reports the profile's discovery readiness.
func (h *Handler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	completion, err := h.service.GetCompletion(r.Context(), userID)
	if err != nil {
		h.respondProfileError(w, err, "Failed to get profile completion")
		return
	}

	utils.RespondWithData(w, http.StatusOK, completion)
}

// GetVisitors lists who viewed the user's profile, most recent first.
func (h *Handler) GetVisitors(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := defaultVisitorLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 200 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	visitors, err := h.service.GetVisitors(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get visitors")
		return
	}

	utils.RespondWithData(w, http.StatusOK, visitors)
}

// Heartbeat refreshes the user's last-seen timestamp.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.TouchLastSeen(r.Context(), userID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update last seen")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "OK")
}

// DeactivateAccount soft-removes the user from discovery.
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeactivateAccount(r.Context(), userID); err != nil {
		h.respondProfileError(w, err, "Failed to deactivate account")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Account deactivated")
}

// ReactivateAccount restores the user to discovery.
func (h *Handler) ReactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.ReactivateAccount(r.Context(), userID); err != nil {
		h.respondProfileError(w, err, "Failed to reactivate account")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Account reactivated")
}

func (h *Handler) respondProfileError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, ErrInvalidBirthDate),
		errors.Is(err, ErrUnderage),
		errors.Is(err, ErrTooManyInterests):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
