package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docchat/backend/internal/retrieval"
	"github.com/docchat/backend/pkg/logger"
)

type ChatHandler struct {
	pipeline *retrieval.Pipeline
}

func NewChatHandler(pipeline *retrieval.Pipeline) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

// HandleChat answers a question against the ingested corpus.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	answer, err := h.pipeline.Answer(c.Context(), req.Question, req.TopK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(answer)
}
