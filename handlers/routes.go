package handlers

import (
	"github.com/gofiber/fiber/v2"

	"voxnote/middleware"
)

// RegisterRoutes mounts the health, auth, audio and transcript routes on app.
func (h *ApplicationHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/status", h.Status)

	requireAuth := middleware.RequireAuth(h.Auth)

	// Auth routes
	authGroup := apiV1.Group("/auth")
	authGroup.Post("/signup", h.SignUp)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/reset-password", h.ResetPassword)
	authGroup.Post("/resend-confirmation", h.ResendConfirmation)
	authGroup.Post("/logout", requireAuth, h.Logout)
	authGroup.Post("/update-password", requireAuth, h.UpdatePassword)
	authGroup.Get("/me", requireAuth, h.Me)

	// Audio processing
	apiV1.Post("/audio/process", requireAuth, h.ProcessAudio)

	// Transcript history
	transcripts := apiV1.Group("/transcripts", requireAuth)
	transcripts.Get("", h.ListTranscripts)
	transcripts.Get("/:id", h.GetTranscript)
	transcripts.Delete("/:id", h.DeleteTranscript)
}
