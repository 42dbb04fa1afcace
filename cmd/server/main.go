package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regdesk/internal/config"
	"regdesk/internal/database"
	"regdesk/internal/handlers"
	"regdesk/internal/logging"
	"regdesk/internal/middleware"
	"regdesk/internal/services"
	"regdesk/internal/sources"
	"regdesk/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting RegDesk Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, PageSize: %d)", cfg.Port, cfg.PageSize)

	// Connect to the document store
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	// Load the source registry (which regulators we serve circulars for)
	registry, err := sources.Load(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("❌ Failed to load sources from %s: %v", cfg.SourcesFile, err)
	}
	log.Printf("📚 Sources loaded: %v", registry.Keys())

	ctx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctx, registry.Keys()); err != nil {
		log.Printf("⚠️  Failed to ensure indexes: %v (continuing, queries fall back to scans)", err)
	}
	cancelInit()

	// JWT verification (tokens are issued by the external identity provider)
	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.JWTSecret)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT verifier: %v", err)
		}
		log.Println("✅ JWT verification enabled")
	} else {
		if os.Getenv("ENVIRONMENT") == "production" {
			log.Fatal("❌ JWT_SECRET is required in production")
		}
		log.Println("⚠️  JWT_SECRET not set - auth bypass active (development mode only)")
	}

	// Metrics
	services.InitMetrics()

	// Services
	store := services.NewMongoStore(db, cfg.StoreTimeout)
	circularService := services.NewCircularService(store, registry, cfg.PageSize, cfg.PageCacheTTL, cfg.FetchRetries)
	detailService := services.NewDetailService(store, registry, cfg.DetailCacheTTL)
	searchService := services.NewSearchService(store, registry, cfg.SearchMinLength, cfg.SearchMaxResults, cfg.SearchTimeout)
	log.Println("✅ Aggregation services initialized")

	// Hot-reload the sources file; a reload re-ensures indexes and drops the
	// page caches for sources that may have changed meaning.
	go sources.Watch(registry, cfg.SourcesFile, func(keys []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.EnsureIndexes(ctx, keys); err != nil {
			log.Printf("⚠️  Failed to ensure indexes after sources reload: %v", err)
		}
		for _, key := range keys {
			circularService.InvalidateSource(key)
		}
	})

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	sourceHandler := handlers.NewSourceHandler(registry)
	circularHandler := handlers.NewCircularHandler(circularService, detailService)
	searchHandler := handlers.NewSearchHandler(searchService)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RegDesk v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // read-mostly API, nothing large comes in
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("regdesk")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	// Rate limiting
	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Printf("🛡️  [RATE-LIMIT] Global=%d/min, Read=%d/min, Search=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.ReadMax, rateLimitConfig.SearchMax)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	authRequired := middleware.AuthMiddleware(verifier)
	readLimiter := middleware.ReadRateLimiter(rateLimitConfig)
	searchLimiter := middleware.SearchRateLimiter(rateLimitConfig)

	api.Get("/sources", authRequired, readLimiter, sourceHandler.List)
	api.Get("/search", authRequired, searchLimiter, searchHandler.Handle)
	api.Get("/circulars/:source", authRequired, readLimiter, circularHandler.List)
	api.Get("/circulars/:source/:id", authRequired, readLimiter, circularHandler.Detail)
	api.Post("/cache/circulars/:source/invalidate", authRequired, circularHandler.InvalidateSource)
	api.Post("/cache/circulars/:source/:id/invalidate", authRequired, circularHandler.InvalidateDetail)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📄 Circulars: http://localhost:%s/api/circulars/{source}?page=1", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
