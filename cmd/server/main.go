package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/hemolink/hemolink-backend/internal/config"
	"github.com/hemolink/hemolink-backend/internal/database"
	"github.com/hemolink/hemolink-backend/internal/handlers"
	"github.com/hemolink/hemolink-backend/internal/middleware"
	"github.com/hemolink/hemolink-backend/internal/repository"
	"github.com/hemolink/hemolink-backend/internal/routes"
	"github.com/hemolink/hemolink-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	if cfg.AdminPasswordHash == "" {
		log.Println("⚠️  WARNING: ADMIN_PASSWORD_HASH not set. Admin dashboard sign-in is disabled.")
	}

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis. Redis is optional: without it the search rate limit
	// falls back to the in-process limiter and admin sign-in is disabled.
	log.Printf("Connecting to Redis...")
	var limiter services.SearchLimiter
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Printf("⚠️  WARNING: Redis unavailable (%v); using in-memory search rate limiter", err)
		limiter = services.NewMemorySearchLimiter()
	} else {
		defer database.DisconnectRedis()
		limiter = services.NewRedisSearchLimiter(database.RedisClient)
	}

	// Wire the core
	donorStore := repository.NewDonorStore(database.PostgresDB)
	searchLogStore := repository.NewSearchLogStore(database.PostgresDB)
	donorHub := services.NewDonorHub()
	searchEngine := services.NewSearchEngine(donorStore, limiter, searchLogStore, cfg.RequireVerified)
	handlers.Init(cfg, donorStore, searchLogStore, searchEngine, donorHub)

	if cfg.RequireVerified {
		log.Println("✅ Search surfaces verified donors only (REQUIRE_VERIFIED_DONORS=true)")
	} else {
		log.Println("⚠️  Search surfaces unverified donors too (REQUIRE_VERIFIED_DONORS=false)")
	}

	// Setup router
	r := chi.NewRouter()

	// Custom CORS: set headers and respond to OPTIONS with 200 so preflight never gets 403
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Global per-IP rate limit (Redis-backed, fails open without Redis)
	r.Use(middleware.RateLimitMiddleware)

	// Health check (DB ping, always 200)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.PostgresDB.Ping(); err != nil {
			w.Write([]byte(`{"status":"healthy","database":"disconnected"}`))
			return
		}
		w.Write([]byte(`{"status":"healthy","database":"connected"}`))
	})

	// Setup routes
	routes.SetupRoutes(r)

	// Log registered routes for debugging
	log.Println("📋 Registered routes:")
	log.Println("  GET  /health")
	log.Println("  POST /api/v1/donors")
	log.Println("  GET  /api/v1/donors")
	log.Println("  GET  /api/v1/donors/{donorID}")
	log.Println("  PUT  /api/v1/donors/{donorID}")
	log.Println("  POST /api/v1/donors/search")
	log.Println("  GET  /ws")
	log.Println("  POST /api/admin/signin")
	log.Println("  GET  /api/admin/stats")
	log.Println("  GET  /api/admin/donors")
	log.Println("  PUT  /api/admin/donors/verify")
	log.Println("  DELETE /api/admin/donors")
	log.Println("  GET  /api/admin/search-activity")

	log.Printf("🚀 Blood donor backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
