package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/matcha-dev/matcha-backend/internal/auth"
	"github.com/matcha-dev/matcha-backend/internal/common/utils"
)

// HandlerConfig carries the request-shaping knobs the handlers need.
type HandlerConfig struct {
	SuggestionLimit int
	SwipeDeckSize   int
}

type Handler struct {
	service Service
	cfg     HandlerConfig
}

func NewHandler(service Service, cfg HandlerConfig) *Handler {
	return &Handler{service: service, cfg: cfg}
}

type likeRequest struct {
	Kind string `json:"kind" validate:"required,oneof=like super_like pass"`
}

type reportRequest struct {
	Reason      string `json:"reason" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// GetSuggestions returns the viewer's ranked candidate list.
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := h.cfg.SuggestionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 100 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	candidates, err := h.service.Suggestions(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get suggestions")
		return
	}

	utils.RespondWithData(w, http.StatusOK, candidates)
}

// GetSwipeDeck returns one page of the ranked list for swipe-style clients.
func (h *Handler) GetSwipeDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	size := h.cfg.SwipeDeckSize
	if v := r.URL.Query().Get("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 50 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid size")
			return
		}
		size = parsed
	}

	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		page = parsed
	}

	candidates, err := h.service.SwipeDeck(r.Context(), userID, size, page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get swipe deck")
		return
	}

	utils.RespondWithData(w, http.StatusOK, candidates)
}

// LikeUser records a like, super-like or pass on the target and reports
// whether it completed a match.
func (h *Handler) LikeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	targetID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.Like(r.Context(), userID, targetID, LikeKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfAction), errors.Is(err, ErrInvalidKind):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrNotVisible):
			utils.RespondWithError(w, http.StatusNotFound, "User not available")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record like")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, outcome)
}

// UnlikeUser withdraws a previously sent like.
func (h *Handler) UnlikeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	targetID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Unlike(r.Context(), userID, targetID); err != nil {
		if errors.Is(err, ErrSelfAction) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to remove like")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Like removed")
}

// GetMatches lists the viewer's active matches.
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	matches, err := h.service.Matches(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get matches")
		return
	}

	utils.RespondWithData(w, http.StatusOK, matches)
}

// CheckMatch reports whether the viewer has an active match with the user.
func (h *Handler) CheckMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	otherID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	connected, err := h.service.IsConnected(r.Context(), userID, otherID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check match")
		return
	}

	utils.RespondWithData(w, http.StatusOK, map[string]bool{"connected": connected})
}

// Unmatch ends an active match permanently.
func (h *Handler) Unmatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	otherID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Unmatch(r.Context(), userID, otherID); err != nil {
		switch {
		case errors.Is(err, ErrSelfAction):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoActiveMatch):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unmatch")
		}
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Unmatched")
}

// BlockUser hides the pair from each other and ends any active match.
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	blockedID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Block(r.Context(), userID, blockedID); err != nil {
		if errors.Is(err, ErrSelfAction) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to block user")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "User blocked")
}

// UnblockUser removes the viewer's block on the user.
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	blockedID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Unblock(r.Context(), userID, blockedID); err != nil {
		if errors.Is(err, ErrSelfAction) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unblock user")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "User unblocked")
}

// ReportUser files a moderation report against the user.
func (h *Handler) ReportUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	reportedID, err := pathUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Report(r.Context(), userID, reportedID, req.Reason, req.Description); err != nil {
		switch {
		case errors.Is(err, ErrSelfAction), errors.Is(err, ErrInvalidReason):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to report user")
		}
		return
	}

	utils.RespondWithMessage(w, http.StatusCreated, "Report submitted")
}

func pathUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
}
