package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"safetyagent/internal/http/middleware"
	"safetyagent/internal/service"
)

type proposeRequest struct {
	Text string `json:"text" validate:"required,max=100000"`
}

// UploadDocument stores a multipart file, extracts its text and submits a pending proposal.
//
// @Summary Upload a document and propose changes
// @Tags agent
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document (PDF, DOCX or text)"
// @Param notes formData string false "Reviewer notes appended to the description"
// @Success 201 {object} successPayload{data=service.ProposeResult}
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Router /api/safety/agent/upload [post]
func UploadDocument(agent service.AgentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required (multipart/form-data)")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		res, err := agent.ProposeFromDocument(c.UserContext(), middleware.ActorFromCtx(c), service.UploadInput{
			Reader:   f,
			FileName: fh.Filename,
			MimeType: ct,
			Notes:    c.FormValue("notes"),
		})
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusCreated, res)
	}
}

// ProposeFromText classifies free text and submits a pending proposal.
//
// @Summary Propose changes from free text
// @Tags agent
// @Accept json
// @Produce json
// @Param body body proposeRequest true "Text to classify"
// @Success 201 {object} successPayload{data=service.ProposeResult}
// @Failure 400 {object} errorPayload
// @Router /api/safety/agent/propose [post]
func ProposeFromText(agent service.AgentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req proposeRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
		}

		res, err := agent.ProposeFromText(c.UserContext(), middleware.ActorFromCtx(c), req.Text)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusCreated, res)
	}
}
