package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docchat/backend/internal/ingestion"
	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/internal/storage/models"
	"github.com/docchat/backend/pkg/logger"
)

type DocumentHandler struct {
	pipeline *ingestion.Pipeline
	registry DocumentLister
}

// DocumentLister exposes the ingested-document registry to the API.
type DocumentLister interface {
	ListDocuments(limit int) ([]models.DocumentRecord, error)
}

func NewDocumentHandler(pipeline *ingestion.Pipeline, registry DocumentLister) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline, registry: registry}
}

// UploadDocument ingests a multipart file upload.
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file upload is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	result, err := h.pipeline.Ingest(c.Context(), content, fileHeader.Filename, mimeType)
	if err != nil {
		if errors.Is(err, rag.ErrUnsupportedContent) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported file type: " + mimeType,
			})
		}
		logger.Error("Failed to ingest document",
			zap.String("source", fileHeader.Filename),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process document",
		})
	}

	return c.JSON(result)
}

// IngestText ingests raw text under a source label.
func (h *DocumentHandler) IngestText(c *fiber.Ctx) error {
	var req struct {
		Text   string `json:"text"`
		Source string `json:"source"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Text is required",
		})
	}

	result, err := h.pipeline.IngestRawText(c.Context(), req.Text, req.Source)
	if err != nil {
		logger.Error("Failed to ingest text", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process text",
		})
	}

	return c.JSON(result)
}

// ListDocuments returns the most recently ingested documents.
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)

	docs, err := h.registry.ListDocuments(limit)
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	return c.JSON(fiber.Map{
		"documents": docs,
	})
}
