package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thecueroom/backend/internal/auth"
	"github.com/thecueroom/backend/internal/cache"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/handlers"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/metrics"
	"github.com/thecueroom/backend/internal/middleware"
	"github.com/thecueroom/backend/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// .env is optional, system environment is enough
	}

	// Initialize structured logging
	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Close()

	logger.Log.Info("=== TheCueRoom server starting ===")

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis is optional: without it, reaction counts are computed per request
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.Log.Warn("Redis unavailable, reaction count caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Prometheus metrics
	metrics.Initialize()

	// Auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}
	authService := auth.NewService(jwtSecret)

	// WebSocket hub and handler
	wsHub := websocket.NewHub()
	wsHandler := websocket.NewHandler(wsHub, jwtSecret)
	wsHandler.RegisterDefaultHandlers()
	go wsHub.Run()

	// HTTP handlers
	h := handlers.NewHandlers(authService)
	h.SetWebSocketHandler(wsHandler)
	if redisClient != nil {
		h.SetRedisClient(redisClient)
	}

	// Setup Gin router
	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS middleware
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"} // Configure properly for production
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(config))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		if err := database.Health(); err != nil {
			dbStatus = "unavailable"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"database":  dbStatus,
			"timestamp": time.Now().UTC(),
			"service":   "thecueroom-backend",
		})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	r.GET("/ws", wsHandler.HandleWebSocket)
	r.GET("/ws/metrics", wsHandler.HandleMetrics)

	// API routes
	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", h.AuthMiddleware(), h.Me)
		}

		posts := api.Group("/posts")
		{
			// Public reads
			posts.GET("", h.ListPosts)
			posts.GET("/:id", h.GetPost)
			posts.GET("/:id/reactions", h.GetReactions)
			posts.GET("/:id/comments", h.GetComments)

			// Authenticated writes
			posts.POST("", h.AuthMiddleware(), h.CreatePost)
			posts.DELETE("/:id", h.AuthMiddleware(), h.DeletePost)
			posts.POST("/:id/react", h.AuthMiddleware(), h.React)
			posts.DELETE("/:id/react", h.AuthMiddleware(), h.RemoveReaction)
			posts.POST("/:id/comments", h.AuthMiddleware(), h.CreateComment)
		}

		comments := api.Group("/comments")
		{
			comments.DELETE("/:id", h.AuthMiddleware(), h.DeleteComment)
		}
	}

	// HTTP server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("🚀 Server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Server failed", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.FatalWithFields("Server forced to shutdown", err)
	}
	if err := database.Close(); err != nil {
		logger.Log.Warn("Database close failed", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
