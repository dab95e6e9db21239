package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"pairchat/internal/auth"
	"pairchat/internal/chat"
	"pairchat/internal/config"
	"pairchat/internal/db"
	"pairchat/internal/middleware"
	"pairchat/internal/user"
)

func main() {
	// 1. Config: DB_DSN and JWT_SECRET are required, startup fails without them.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// 2. Connect to Database (Platform Layer)
	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database Schema Initialized")

	// 3. Connect to Redis (history cache)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// 4. Auth + User Feature
	credentials := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, credentials)
	userHandler := user.NewHandler(userService, cfg.TokenTTL)

	// 5. Chat Feature
	chatRepo := chat.NewRepository(database.Conn)
	historyCache := chat.NewRedisHistoryCache(redisClient, cfg.HistoryCacheTTL)
	history := chat.NewHistoryService(chatRepo, historyCache)

	hub := chat.NewHub(history)
	chatHandler := chat.NewHandler(hub, history)

	authMiddleware := middleware.NewAuthMiddleware(credentials)

	// 6. Define Routes
	r := chi.NewRouter()
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	// Public Routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Post("/logout", userHandler.Logout)

	// Protected Routes (Require a valid token cookie or bearer header)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/profile", userHandler.Profile)
		r.Get("/people", userHandler.People)

		// WebSocket (Real-time)
		r.Get("/ws", chatHandler.ServeWs)

		r.Get("/messages/{userId}", chatHandler.GetConversation)
		r.Put("/messages/{id}", chatHandler.EditMessage)
		r.Delete("/messages/{id}", chatHandler.DeleteMessage)
	})

	log.Printf("🚀 Server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal(err)
	}
}
