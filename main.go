package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anikettagor2/eco-submit/config"
	"github.com/anikettagor2/eco-submit/handler"
	"github.com/anikettagor2/eco-submit/middleware"
	"github.com/anikettagor2/eco-submit/pkg/coverpage"
	"github.com/anikettagor2/eco-submit/pkg/logger"
	"github.com/anikettagor2/eco-submit/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	geminiSvc := service.NewGeminiService(&cfg.Gemini)

	// Load persisted admin settings
	settingsStore := service.NewSettingsStore(minioSvc)
	if err := settingsStore.Load(context.Background()); err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	// Initialize stores; evicted submissions get their blob artifacts
	// removed through the MinIO service
	service.InitSubmissionStore(&cfg.Store, minioSvc)
	subjectStore := service.NewSubjectStore()

	// Template rasterizer is optional; without it previews serve the
	// original document
	var renderer *coverpage.Renderer
	if cfg.Render.Enabled {
		ras, err := coverpage.NewChromeRasterizer(cfg.Render.BrowserBin)
		if err != nil {
			slog.Warn("headless browser unavailable, template pages disabled", "error", err)
		} else {
			defer ras.Close()
			renderer = coverpage.NewRenderer(ras)
			slog.Info("template rasterizer ready")
		}
	}

	pipeline := service.NewPipelineService(minioSvc, renderer)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	submissionHandler := handler.NewSubmissionHandler(minioSvc, geminiSvc, settingsStore, subjectStore, cfg)
	reviewHandler := handler.NewReviewHandler(minioSvc, pipeline, geminiSvc, settingsStore, subjectStore)
	adminHandler := handler.NewAdminHandler(settingsStore, subjectStore)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.GET("/subjects", adminHandler.ListSubjects)

		students := protected.Group("/submissions", middleware.RequireRole(middleware.RoleStudent))
		{
			students.POST("/upload", submissionHandler.Upload)
			students.POST("/capture", submissionHandler.Capture)
			students.POST("/topic-check", submissionHandler.TopicCheck)
			students.GET("/mine", submissionHandler.ListMine)
			students.GET("/mine/:id/download", submissionHandler.Download)
		}

		reviews := protected.Group("/reviews", middleware.RequireRole(middleware.RoleProfessor, middleware.RoleAdmin))
		{
			reviews.GET("", reviewHandler.List)
			reviews.GET("/:id", reviewHandler.Get)
			reviews.GET("/:id/preview", reviewHandler.Preview)
			reviews.GET("/:id/download", reviewHandler.Download)
			reviews.POST("/:id/insights", reviewHandler.Insights)
			reviews.POST("/:id/grade", reviewHandler.Grade)
		}

		admin := protected.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.POST("/subjects", adminHandler.CreateSubject)
			admin.PUT("/subjects/:id", adminHandler.UpdateSubject)
			admin.DELETE("/subjects/:id", adminHandler.DeleteSubject)
		}
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
