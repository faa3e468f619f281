package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"voxnote/internal/auth"
	"voxnote/middleware"
	"voxnote/models"
	"voxnote/utils"
)

const signUpConfirmMessage = "Account created! Please check your email to verify your account before signing in."

// LoginRequest defines the expected request body for signing in.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// EmailRequest is the body of the password-reset and resend-confirmation endpoints.
type EmailRequest struct {
	Email string `json:"email" form:"email"`
}

// UpdatePasswordRequest defines the expected request body for changing the password.
type UpdatePasswordRequest struct {
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// SignUpData is returned after registration.
type SignUpData struct {
	Session              *models.Session `json:"session"`
	ConfirmationRequired bool            `json:"confirmation_required"`
	Message              string          `json:"message,omitempty"`
}

// SessionSuccessResponse wraps a session in the standard envelope.
type SessionSuccessResponse struct {
	Status string         `json:"status"`
	Data   models.Session `json:"data"`
}

// SignUpSuccessResponse wraps SignUpData in the standard envelope.
type SignUpSuccessResponse struct {
	Status string     `json:"status"`
	Data   SignUpData `json:"data"`
}

// MessageResponse is a success envelope carrying only a message.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse defines a common structure for error responses.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FieldErrorResponse is returned when form validation fails.
type FieldErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// SignUp godoc
// @Summary Register a new account
// @Description Validates the sign-up form and registers the user. When email confirmation is enabled no access token is returned.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   form body auth.SignUpForm true "Registration form"
// @Success 201 {object} SignUpSuccessResponse
// @Failure 400 {object} FieldErrorResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /auth/signup [post]
func (h *ApplicationHandler) SignUp(c *fiber.Ctx) error {
	var form auth.SignUpForm
	if err := c.BodyParser(&form); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse sign-up form")
	}
	form.Email = utils.SanitizeInput(form.Email)

	if verr := form.Validate(); verr != nil {
		return utils.RespondWithFieldErrors(c, verr.Message, verr.Fields)
	}

	result, err := h.Auth.SignUp(c.UserContext(), form.Email, form.Password, form.Metadata())
	if err != nil {
		return respondWithAuthError(c, err)
	}

	data := SignUpData{Session: result.Session, ConfirmationRequired: result.ConfirmationRequired}
	if result.ConfirmationRequired {
		data.Message = signUpConfirmMessage
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, data)
}

// Login godoc
// @Summary Sign in with email and password
// @Description Returns the session for a confirmed account.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   credentials body LoginRequest true "Credentials"
// @Success 200 {object} SessionSuccessResponse
// @Failure 400 {object} FieldErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Email not confirmed"
// @Router /auth/login [post]
func (h *ApplicationHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse login request")
	}
	req.Email = utils.SanitizeInput(req.Email)

	if msg := auth.ValidateEmail(req.Email); msg != "" {
		return utils.RespondWithFieldErrors(c, msg, map[string]string{"email": msg})
	}
	if req.Password == "" {
		return utils.RespondWithFieldErrors(c, "Password is required", map[string]string{"password": "Password is required"})
	}

	session, err := h.Auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondWithAuthError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, session)
}

// Logout godoc
// @Summary Sign out
// @Description Revokes the current access token.
// @Tags auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *ApplicationHandler) Logout(c *fiber.Ctx) error {
	if err := h.Auth.SignOut(c.UserContext(), middleware.AccessToken(c)); err != nil {
		return respondWithAuthError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(MessageResponse{Status: "success", Message: "Signed out"})
}

// ResetPassword godoc
// @Summary Request a password reset email
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body EmailRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} FieldErrorResponse
// @Router /auth/reset-password [post]
func (h *ApplicationHandler) ResetPassword(c *fiber.Ctx) error {
	email, ok := h.parseEmail(c)
	if !ok {
		return nil
	}
	if err := h.Auth.ResetPassword(c.UserContext(), email); err != nil {
		return respondWithAuthError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(MessageResponse{
		Status:  "success",
		Message: "Check your email for a link to reset your password.",
	})
}

// UpdatePassword godoc
// @Summary Change the password of the signed-in user
// @Tags auth
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body UpdatePasswordRequest true "New password"
// @Success 200 {object} SessionSuccessResponse
// @Failure 400 {object} FieldErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/update-password [post]
func (h *ApplicationHandler) UpdatePassword(c *fiber.Ctx) error {
	var req UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse password update")
	}
	if msg := auth.ValidatePassword(req.Password); msg != "" {
		return utils.RespondWithFieldErrors(c, msg, map[string]string{"password": msg})
	}
	if req.Password != req.ConfirmPassword {
		return utils.RespondWithFieldErrors(c, "Passwords do not match", map[string]string{"confirm_password": "Passwords do not match"})
	}

	session, err := h.Auth.UpdatePassword(c.UserContext(), middleware.AccessToken(c), req.Password)
	if err != nil {
		return respondWithAuthError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, session)
}

// ResendConfirmation godoc
// @Summary Resend the sign-up confirmation email
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body EmailRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} FieldErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/resend-confirmation [post]
func (h *ApplicationHandler) ResendConfirmation(c *fiber.Ctx) error {
	email, ok := h.parseEmail(c)
	if !ok {
		return nil
	}
	if err := h.Auth.ResendConfirmation(c.UserContext(), email); err != nil {
		return respondWithAuthError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(MessageResponse{
		Status:  "success",
		Message: "Confirmation email sent. Please check your inbox.",
	})
}

// Me godoc
// @Summary Current session
// @Tags auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} SessionSuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *ApplicationHandler) Me(c *fiber.Ctx) error {
	session := middleware.Session(c)
	if session == nil {
		return utils.RespondWithError(c, fiber.StatusUnauthorized, "Please log in to continue")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, session)
}

// parseEmail reads an EmailRequest and validates the address. When ok is false
// the error response has already been written.
func (h *ApplicationHandler) parseEmail(c *fiber.Ctx) (email string, ok bool) {
	var req EmailRequest
	if err := c.BodyParser(&req); err != nil {
		_ = utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse request body")
		return "", false
	}
	email = utils.SanitizeInput(req.Email)
	if msg := auth.ValidateEmail(email); msg != "" {
		_ = utils.RespondWithFieldErrors(c, msg, map[string]string{"email": msg})
		return "", false
	}
	return email, true
}

// authStatus maps an identity error kind to an HTTP status.
func authStatus(kind auth.ErrorKind) int {
	switch kind {
	case auth.KindAlreadyRegistered:
		return fiber.StatusConflict
	case auth.KindWeakPassword, auth.KindInvalidEmail:
		return fiber.StatusBadRequest
	case auth.KindInvalidCredentials, auth.KindSessionMissing:
		return fiber.StatusUnauthorized
	case auth.KindEmailNotConfirmed:
		return fiber.StatusForbidden
	case auth.KindRateLimited:
		return fiber.StatusTooManyRequests
	case auth.KindProvider:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondWithAuthError(c *fiber.Ctx, err error) error {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return utils.RespondWithError(c, authStatus(authErr.Kind), authErr.Message())
	}
	return utils.RespondWithError(c, fiber.StatusInternalServerError, "An unexpected error occurred. Please try again.")
}
