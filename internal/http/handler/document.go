package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"safetyagent/internal/allowlist"
	"safetyagent/internal/model"
	"safetyagent/internal/service"
)

type documentResponse struct {
	Document *model.Document `json:"document"`
	FileURL  string          `json:"file_url,omitempty"`
}

// GetDocument returns document metadata with a pre-signed download URL.
//
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} successPayload{data=documentResponse}
// @Failure 404 {object} errorPayload
// @Router /api/safety/agent/documents/{id} [get]
func GetDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		u, err := svc.FileURL(c.UserContext(), doc)
		if err != nil {
			log.Warn("presign_failed", zap.Int64("document_id", id), zap.Error(err))
		}
		return writeData(c, fiber.StatusOK, documentResponse{Document: doc, FileURL: u})
	}
}

// DownloadDocument streams the stored file.
//
// @Summary Download a document
// @Tags documents
// @Produce octet-stream
// @Param id path int true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /api/safety/agent/documents/{id}/content [get]
func DownloadDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, doc, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}

		if doc.MimeType != "" {
			c.Set(fiber.HeaderContentType, doc.MimeType)
		}
		name := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(doc.FileName)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))

		// fasthttp closes rc once the body is written.
		size := int(doc.Size)
		if size <= 0 {
			size = -1
		}
		return c.SendStream(rc, size)
	}
}

// ListCollections returns the approvable collections and their permitted fields.
//
// @Summary Approvable collections
// @Tags proposals
// @Produce json
// @Success 200 {object} successPayload{data=map[string][]string}
// @Router /api/safety/agent/collections [get]
func ListCollections(allow *allowlist.AllowList) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return writeData(c, fiber.StatusOK, allow.Collections())
	}
}
