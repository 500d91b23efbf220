package matching

import (
	"github.com/gorilla/mux"

	"github.com/matcha-dev/matcha-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/matching").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Discovery
	api.HandleFunc("/suggestions", handler.GetSuggestions).Methods("GET")
	api.HandleFunc("/deck", handler.GetSwipeDeck).Methods("GET")

	// Likes
	api.HandleFunc("/likes/{userId}", handler.LikeUser).Methods("POST")
	api.HandleFunc("/likes/{userId}", handler.UnlikeUser).Methods("DELETE")

	// Matches
	api.HandleFunc("/matches", handler.GetMatches).Methods("GET")
	api.HandleFunc("/matches/check/{userId}", handler.CheckMatch).Methods("GET")
	api.HandleFunc("/matches/{userId}/unmatch", handler.Unmatch).Methods("POST")

	// Safety
	api.HandleFunc("/users/{userId}/block", handler.BlockUser).Methods("POST")
	api.HandleFunc("/users/{userId}/block", handler.UnblockUser).Methods("DELETE")
	api.HandleFunc("/users/{userId}/report", handler.ReportUser).Methods("POST")
}
