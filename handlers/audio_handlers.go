package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"voxnote/internal/aiclient"
	"voxnote/internal/pipeline"
	"voxnote/internal/storage"
	"voxnote/middleware"
	"voxnote/models"
	"voxnote/utils"
)

// ProcessResultResponse wraps a processing result in the standard envelope.
type ProcessResultResponse struct {
	Status string                  `json:"status"`
	Data   models.ProcessingResult `json:"data"`
}

// ProcessAudio godoc
// @Summary Upload and process an audio file
// @Description Stores the audio, signs a short-lived URL for it and asks the processing backend for a transcript and summary.
// @Tags audio
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file formData file true "Audio file (webm, mp3, wav, ogg, m4a)"
// @Param   language formData string false "Output language" Enums(auto, te, en)
// @Param   max_length formData int false "Maximum summary length" default(120)
// @Param   min_length formData int false "Minimum summary length" default(20)
// @Success 200 {object} ProcessResultResponse
// @Failure 400 {object} ErrorResponse "Missing or unsupported file, or invalid options"
// @Failure 409 {object} ErrorResponse "Another recording is being processed"
// @Failure 502 {object} ErrorResponse "Storage or backend failure"
// @Router /audio/process [post]
func (h *ApplicationHandler) ProcessAudio(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return utils.RespondWithError(c, fiber.StatusUnauthorized, "Please log in to upload audio")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Please select a file")
	}
	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if err := pipeline.ValidateAudioFile(fileHeader.Filename, contentType); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	opts, err := processingOptions(c)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.Logger.WithError(err).Error("Failed to open uploaded file")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not read uploaded file")
	}
	defer file.Close()

	result, err := h.Pipeline.UploadAndProcess(c.UserContext(), storage.File{
		Name:        fileHeader.Filename,
		ContentType: contentType,
		Body:        file,
	}, userID, opts)
	if err != nil {
		return h.respondWithPipelineError(c, err)
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, result)
}

// processingOptions reads the optional language and length fields. Language
// "auto" or an empty value lets the backend detect it.
func processingOptions(c *fiber.Ctx) (models.ProcessingOptions, error) {
	opts := models.ProcessingOptions{
		ForceOutputLanguage: strings.ToLower(strings.TrimSpace(c.FormValue("language"))),
	}
	if opts.ForceOutputLanguage != "" && !models.IsOutputLanguage(opts.ForceOutputLanguage) {
		return opts, errors.New("language must be one of " + strings.Join(models.OutputLanguages, ", "))
	}

	var err error
	if opts.MaxLength, err = formInt(c, "max_length"); err != nil {
		return opts, err
	}
	if opts.MinLength, err = formInt(c, "min_length"); err != nil {
		return opts, err
	}
	return opts, nil
}

func formInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func (h *ApplicationHandler) respondWithPipelineError(c *fiber.Ctx, err error) error {
	var backendErr *aiclient.BackendError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, pipeline.ErrAlreadyProcessing):
		return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErrs):
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(utils.FormatValidationErrors(err), ", "))
	case errors.As(err, &backendErr):
		return utils.RespondWithError(c, fiber.StatusBadGateway, backendErr.Error())
	case errors.Is(err, storage.ErrUploadFailed), errors.Is(err, storage.ErrSignFailed):
		return utils.RespondWithError(c, fiber.StatusBadGateway, err.Error())
	default:
		h.Logger.WithFields(logrus.Fields{
			"request_id": middleware.RequestID(c),
			"user_id":    middleware.UserID(c),
		}).WithError(err).Error("Audio processing failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to process audio. Please try again.")
	}
}
