package main

import (
	"context"
	"log"
	"time"

	"github.com/DIPEDEV/batalla-numeros/config"
	"github.com/DIPEDEV/batalla-numeros/handlers"
	"github.com/DIPEDEV/batalla-numeros/middleware"
	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/routes"
	"github.com/DIPEDEV/batalla-numeros/services"
	"github.com/DIPEDEV/batalla-numeros/storage"
	"github.com/DIPEDEV/batalla-numeros/store"

	"github.com/gin-gonic/gin"
)

const (
	anonymousIdleTTL = 30 * 24 * time.Hour
	cleanupInterval  = 24 * time.Hour
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Username{},
		&models.MatchRecord{},
		&models.MatchResult{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Shared match state and host leases
	var (
		matchStore store.Store
		locker     store.Locker
	)
	switch cfg.StoreBackend {
	case "memory":
		log.Printf("Using in-memory match store (single instance only)")
		matchStore = store.NewMemoryStore()
		locker = store.NewMemoryLocker()
	default:
		redisClient := config.InitRedis(cfg)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		matchStore = store.NewRedisStore(redisClient, cfg.MatchTTL)
		locker = store.NewRedisLocker(redisClient)
	}

	media, err := storage.NewDiskStore(cfg.MediaDir)
	if err != nil {
		log.Fatal("Failed to open media store:", err)
	}

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret, config.GoogleOAuth(cfg))
	statsService := services.NewStatsService(db)
	mediaService := services.NewMediaService(db, media, "/media")
	matchService := services.NewMatchService(matchStore, authService, statsService)

	scheduler := services.NewScheduler(matchService, locker, cfg.InstanceID, services.DefaultSchedulerConfig)
	defer scheduler.Stop()
	matchService.SetRunner(scheduler)

	// Initialize WebSocket hub
	hub := services.NewHub(matchService)
	hub.SetWatcher(services.NewOrchestrator(matchStore, hub, scheduler))
	go hub.Run()

	go cleanupAnonymousUsers(authService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, routes.Handlers{
		Auth:  handlers.NewAuthHandler(authService),
		Match: handlers.NewMatchHandler(matchService, authService, hub),
		Stats: handlers.NewStatsHandler(statsService),
		Media: handlers.NewMediaHandler(mediaService),
	}, authService)

	// Start server
	log.Printf("Server %s starting on %s:%s", cfg.InstanceID, cfg.BindAddress, cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func cleanupAnonymousUsers(auth *services.AuthService) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := auth.CleanupAnonymous(context.Background(), anonymousIdleTTL); err != nil {
			log.Printf("Anonymous cleanup failed: %v", err)
		}
	}
}
