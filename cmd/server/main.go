package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/atelier-backend/config"
	"github.com/ikkim/atelier-backend/internal/app/controller"
	"github.com/ikkim/atelier-backend/internal/app/repository"
	"github.com/ikkim/atelier-backend/internal/app/service"
	"github.com/ikkim/atelier-backend/internal/cart"
	"github.com/ikkim/atelier-backend/internal/db"
	"github.com/ikkim/atelier-backend/internal/middleware"
	"github.com/ikkim/atelier-backend/internal/router"
	"github.com/ikkim/atelier-backend/internal/scheduler"
	"github.com/ikkim/atelier-backend/internal/storage"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"github.com/ikkim/atelier-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel, logFormat := "info", "json"
	if cfg.Server.Environment == "development" {
		logLevel, logFormat = "debug", "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting Atelier Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	ctx := context.Background()

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Token blacklist, a no-op without Redis
	blacklist := redis.NewTokenBlacklist(nil)
	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, signed-out tokens stay valid until they expire", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			blacklist = redis.NewTokenBlacklist(client)
		}
	}
	defer func() {
		if err := blacklist.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	contactRepo := repository.NewContactRepository(db.GetDB())

	// Carts follow the signed-in identity
	identities := service.NewIdentityBroadcaster()
	registry := cart.NewRegistry(
		repository.NewCartStore(cartRepo, productRepo),
		cart.WithMaxQuantity(cfg.Cart.MaxQuantity),
	)
	stopWatching := registry.Watch(identities)
	defer stopWatching()

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		identities,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(registry)
	contactService := service.NewContactService(contactRepo)

	// Image uploads go straight to the bucket
	var images controller.ImageRemover
	var uploadController *controller.UploadController
	if cfg.S3.Bucket != "" {
		s3Storage := storage.NewS3Storage(ctx, &cfg.S3)
		images = s3Storage
		uploadController = controller.NewUploadController(s3Storage)
	} else {
		logger.Warn("AWS_S3_BUCKET is empty, image uploads are disabled")
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService, images, cartService)
	cartController := controller.NewCartController(cartService)
	contactController := controller.NewContactController(contactService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		contactController,
		uploadController,
		authMiddleware,
		cfg,
	)

	cartScheduler := scheduler.NewCartScheduler(registry, cartRepo, cfg.Cart.IdleTTL, cfg.Cart.StaleAfter)
	if err := cartScheduler.Start(); err != nil {
		logger.Fatal("Failed to start cart scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	cartScheduler.Stop()

	logger.Info("Server stopped successfully")
}
