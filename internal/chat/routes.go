package chat

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/matcha-dev/matcha-backend/internal/auth"
)

// RegisterRoutes registers the chat REST routes and the websocket endpoint
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	router.Handle("/ws", authMiddleware.Authenticate(http.HandlerFunc(handler.HandleWebSocket))).Methods("GET")

	api := router.PathPrefix("/api/v1/chat").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/conversations", handler.GetConversations).Methods("GET")
	api.HandleFunc("/conversations/{userId}/messages", handler.GetMessages).Methods("GET")
	api.HandleFunc("/conversations/{userId}/read", handler.MarkRead).Methods("POST")
	api.HandleFunc("/messages", handler.SendMessage).Methods("POST")
}
