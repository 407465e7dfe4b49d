package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Pixelkingsa/consultant-connect/internal/api"
	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/events"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/payfast"
	"github.com/Pixelkingsa/consultant-connect/internal/services"
	"github.com/Pixelkingsa/consultant-connect/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Ensure all log output goes to stdout so the platform captures it in Application Logs
	log.SetOutput(os.Stdout)

	log.Printf("Consultant Connect starting (GIT_SHA=%s BUILD_TIME=%s)", os.Getenv("GIT_SHA"), os.Getenv("BUILD_TIME"))

	cfg := config.Load()
	ctx := context.Background()

	// Initialize database connection (non-fatal to allow liveness health checks)
	var store api.Store
	database, err := db.NewDatabase()
	if err != nil {
		log.Printf("[WARN] Database initialization failed at startup: %v", err)
	}
	if database != nil {
		defer database.Close()
		store = database
		seedPlan(ctx, database, cfg.PlanFile)
	}

	uploader, err := storage.NewS3Uploader(ctx, cfg.Storage)
	if err != nil {
		log.Printf("[WARN] S3 disabled, storing uploads locally: %v", err)
		uploader = nil
	}
	images := storage.New(uploader, cfg.Storage)

	notifier, err := services.NewNotifier(ctx, cfg.Notify, cfg.Currency)
	if err != nil {
		log.Printf("[WARN] Notifications disabled: %v", err)
		notifier = nil
	}

	handler := api.NewHandler(store, cfg, images, notifier, payfast.NewClient(cfg.PayFast), events.NewBroker(16))

	var cleanup *services.CleanupService
	if database != nil && cfg.Maintenance.Interval > 0 {
		cleanup = services.NewCleanupService(database, cfg.Maintenance)
		cleanup.Start()
	}

	router := setupRouter(handler, cfg, images)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting consultant-connect on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down consultant-connect...")
	if cleanup != nil {
		cleanup.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] Graceful shutdown failed: %v", err)
	}
}

// seedPlan inserts the default compensation plan when the ranks table is empty.
func seedPlan(ctx context.Context, database *db.Database, path string) {
	plan, err := config.LoadPlan(path)
	if err != nil {
		log.Printf("[WARN] Compensation plan not loaded from %s: %v", path, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	n, err := database.SeedRanks(ctx, plan)
	if err != nil {
		log.Printf("[WARN] Failed to seed ranks: %v", err)
		return
	}
	if n > 0 {
		logging.LogKV("info", "seeded compensation plan", map[string]interface{}{"ranks": n, "file": path})
	}
}

func setupRouter(handler *api.Handler, cfg config.Config, images *storage.Store) *gin.Engine {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	// Locally stored uploads; S3 serves them otherwise
	if dir := images.LocalDir(); dir != "" {
		router.Static("/uploads", dir)
	}

	// Health and readiness endpoints
	router.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/ready", handler.Ready)
	// Keep /health as liveness-only for platform health checks
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	handler.RegisterRoutes(router)

	// Root endpoint for basic info
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "consultant-connect",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	return router
}
