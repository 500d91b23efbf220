// cmd/api/main.go
// Main entry point: bootstraps all components and starts the server

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matcha-dev/matcha-backend/internal/auth"
	"github.com/matcha-dev/matcha-backend/internal/chat"
	"github.com/matcha-dev/matcha-backend/internal/common/database"
	"github.com/matcha-dev/matcha-backend/internal/config"
	"github.com/matcha-dev/matcha-backend/internal/matching"
	"github.com/matcha-dev/matcha-backend/internal/profile"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("Starting Matcha matching API")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (%v), using environment variables", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: ", err)
	}

	// PostgreSQL
	db, err := database.NewPostgresDB(cfg.DatabaseURL, database.DefaultPostgresConfig())
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Redis is optional: without it every suggestion request recomputes the
	// ranking
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without ranking cache", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("Connected to Redis")
		}
	}

	if err := runMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Println("Database migrations completed")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	// Matching engine
	matchingRepo := matching.NewPostgresRepository(db, cfg.FameRatingMax)
	matchingEvents := matching.NewEvents(256)
	ranker := matching.NewRanker(matchingRepo, redisClient, cfg.RankingCacheTTL)
	matchingService := matching.NewService(matchingRepo, ranker, matchingEvents, matching.ServicePolicy{
		ReportRetiresMatch: cfg.ReportRetiresMatch,
	})
	matchingHandler := matching.NewHandler(matchingService, matching.HandlerConfig{
		SuggestionLimit: cfg.SuggestionLimit,
		SwipeDeckSize:   cfg.SwipeDeckSize,
	})

	// Profiles
	profileRepo := profile.NewPostgresRepository(db, cfg.FameRatingMax)
	profileService := profile.NewService(profileRepo, profile.Limits{
		MaxInterests: cfg.MaxInterests,
		MaxPictures:  cfg.MaxPictures,
		MinPictures:  cfg.MinPictures,
	})
	profileHandler := profile.NewHandler(profileService)

	// Chat rides on the matching engine: messages only flow between matched
	// users, and match events surface as websocket frames
	chatRepo := chat.NewPostgresRepository(db)
	chatService := chat.NewService(chatRepo, matchingService, cfg.MessageMaxLength)
	chatHub := chat.NewHub(chatService)
	chatHandler := chat.NewHandler(chatService, chatHub)

	go chatHub.Run()
	go chatHub.ConsumeMatchEvents(matchingEvents.Subscribe())
	log.Println("Chat hub started")

	// Routes
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	matching.RegisterRoutes(router, matchingHandler, authMiddleware)
	chat.RegisterRoutes(router, chatHandler, authMiddleware)

	// Profile routes live on a chi router mounted behind the mux catch-all
	chiRouter := chi.NewRouter()
	profile.RegisterRoutes(chiRouter, profileHandler, authMiddleware)
	router.PathPrefix("/").Handler(chiRouter)

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s (%s)", srv.Addr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received")

	chatHub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exited gracefully")
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id SERIAL PRIMARY KEY,
			user_id BIGINT UNIQUE NOT NULL,
			username VARCHAR(30) UNIQUE NOT NULL,
			gender VARCHAR(10),
			orientation VARCHAR(20) NOT NULL DEFAULT 'bisexual',
			biography TEXT,
			interests TEXT[] NOT NULL DEFAULT '{}',
			pictures TEXT[] NOT NULL DEFAULT '{}',
			birth_date DATE,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			city VARCHAR(100),
			country VARCHAR(100),
			fame_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			account_status VARCHAR(20) NOT NULL DEFAULT 'active',
			last_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS likes (
			liker_id BIGINT NOT NULL,
			target_id BIGINT NOT NULL,
			kind VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (liker_id, target_id)
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			user_a_id BIGINT NOT NULL,
			user_b_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			matched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK (user_a_id < user_b_id)
		)`,

		// One live match per pair; retired rows stay as history
		`CREATE UNIQUE INDEX IF NOT EXISTS matches_active_pair_idx
			ON matches (user_a_id, user_b_id) WHERE status = 'active'`,

		`CREATE TABLE IF NOT EXISTS blocks (
			blocker_id BIGINT NOT NULL,
			blocked_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (blocker_id, blocked_id)
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			reporter_id BIGINT NOT NULL,
			reported_id BIGINT NOT NULL,
			reason VARCHAR(100) NOT NULL,
			description TEXT,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (reporter_id, reported_id)
		)`,

		`CREATE TABLE IF NOT EXISTS visits (
			visitor_id BIGINT NOT NULL,
			visited_id BIGINT NOT NULL,
			visited_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (visitor_id, visited_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL,
			recipient_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS messages_pair_idx
			ON messages (sender_id, recipient_id, id)`,

		`CREATE INDEX IF NOT EXISTS visits_visited_idx
			ON visits (visited_id, visited_at)`,

		`CREATE INDEX IF NOT EXISTS likes_target_idx
			ON likes (target_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("%s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%q}`, time.Now().Format(time.RFC3339))
}
