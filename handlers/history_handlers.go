package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"voxnote/internal/history"
	"voxnote/middleware"
	"voxnote/models"
	"voxnote/utils"
)

// TranscriptListSuccessResponse defines the response when listing transcripts.
type TranscriptListSuccessResponse struct {
	Status string              `json:"status"`
	Data   []models.Transcript `json:"data"`
}

// ListTranscripts godoc
// @Summary List the user's transcripts
// @Description Returns transcripts with their summaries, newest first.
// @Tags transcripts
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} TranscriptListSuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /transcripts [get]
func (h *ApplicationHandler) ListTranscripts(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	transcripts, err := h.History.List(c.UserContext(), userID)
	if err != nil {
		h.Logger.WithField("user_id", userID).WithError(err).Error("Failed to load history")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not load your history")
	}
	if transcripts == nil {
		transcripts = []models.Transcript{}
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, transcripts)
}

// GetTranscript godoc
// @Summary Show one transcript as a processing result
// @Tags transcripts
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "Transcript ID"
// @Success 200 {object} ProcessResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /transcripts/{id} [get]
func (h *ApplicationHandler) GetTranscript(c *fiber.Ctx) error {
	result, err := h.History.Result(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return h.respondWithHistoryError(c, err, "Could not load transcript")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, result)
}

// DeleteTranscript godoc
// @Summary Delete a transcript and its summaries
// @Tags transcripts
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "Transcript ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse "Transcript belongs to another user"
// @Failure 404 {object} ErrorResponse
// @Router /transcripts/{id} [delete]
func (h *ApplicationHandler) DeleteTranscript(c *fiber.Ctx) error {
	if err := h.History.Delete(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return h.respondWithHistoryError(c, err, "Failed to delete transcript")
	}
	return c.Status(fiber.StatusOK).JSON(MessageResponse{Status: "success", Message: "Transcript deleted"})
}

func (h *ApplicationHandler) respondWithHistoryError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, history.ErrUnauthorized):
		return utils.RespondWithError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, history.ErrNotFound):
		return utils.RespondWithError(c, fiber.StatusNotFound, "Transcript not found")
	default:
		h.Logger.WithField("transcript_id", c.Params("id")).WithError(err).Error("History operation failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fallback)
	}
}
