package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"voxnote/config"
	_ "voxnote/docs"
	"voxnote/handlers"
	"voxnote/internal/app"
	"voxnote/middleware"
	"voxnote/utils"
)

const maxUploadSize = 50 * 1024 * 1024

// @title voxnote API
// @version 1.0
// @description Audio upload, transcription and summary history behind Supabase auth.
// @host localhost:3000
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		config.InitLogger("info").WithError(err).Fatal("Failed to load configuration")
	}
	logger := config.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer services.Close()

	h := handlers.NewApplicationHandler(services.Auth, services.Pipeline, services.History, services.AIClient, logger)

	fiberApp := fiber.New(fiber.Config{
		AppName:      "voxnote gateway",
		BodyLimit:    maxUploadSize,
		ErrorHandler: errorHandler,
	})

	// Middleware
	fiberApp.Use(recover.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AppURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	fiberApp.Use(middleware.RequestLogger(logger))

	h.RegisterRoutes(fiberApp)
	fiberApp.Get("/swagger/*", fiberSwagger.WrapHandler)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gateway")
		if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Starting voxnote gateway")
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		logger.WithError(err).Error("Server stopped")
	}
}

// errorHandler renders errors that escape handlers in the standard envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An unexpected error occurred. Please try again."

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	return utils.RespondWithError(c, code, message)
}
