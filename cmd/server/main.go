package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/bounty-flow-api/internal/auth"
	"github.com/yukikurage/bounty-flow-api/internal/config"
	"github.com/yukikurage/bounty-flow-api/internal/constants"
	"github.com/yukikurage/bounty-flow-api/internal/database"
	"github.com/yukikurage/bounty-flow-api/internal/handlers"
	"github.com/yukikurage/bounty-flow-api/internal/logging"
	"github.com/yukikurage/bounty-flow-api/internal/middleware"
	"github.com/yukikurage/bounty-flow-api/internal/repository"
	"github.com/yukikurage/bounty-flow-api/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.GinMode, cfg.LogLevel)
	slog.SetDefault(logger)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger))

	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Initialize services and handlers
	repos := repository.NewStore(database.GetDB())
	authService := services.NewAuthService(repos.Users())
	bountyService := services.NewBountyService(repos, auth.NewContextGuard(), aiService)

	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(bountyService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Bounty Flow API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Task routes: queries are public, transitions require a session
		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", middleware.RequireTaskID(), taskHandler.GetTask)
			tasks.GET("/:id/detail", middleware.RequireTaskID(), taskHandler.GetTaskDetail)

			tasks.POST("", middleware.RequireAuth(), taskHandler.CreateTask)
			tasks.POST("/drafts", middleware.RequireAuth(), taskHandler.DraftTasks)
			tasks.POST("/:id/submit", middleware.RequireAuth(), middleware.RequireTaskID(), taskHandler.SubmitWork)
			tasks.POST("/:id/release", middleware.RequireAuth(), middleware.RequireTaskID(), taskHandler.ReleaseFunds)
		}
	}

	// Start server
	addr := ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if cfg.SessionStore == "cookie" {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	} else {
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		secret := []byte(cfg.SessionSecret)
		rs, err := redisStore.NewStore(
			10,        // Redis pool size
			"tcp",     // network type
			redisAddr, // Redis address from config
			"",        // password (empty = no password)
			secret,    // authentication key
		)
		if err != nil {
			return nil, err
		}
		store = rs
	}

	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	return store, nil
}
