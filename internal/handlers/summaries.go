package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-summary/internal/storage"
)

// SummaryStore reads archived summaries
type SummaryStore interface {
	ListSummaries(limit int) ([]storage.Record, error)
	GetSummary(summaryID string) (*storage.Record, error)
}

// SummaryHandler serves the summary archive
type SummaryHandler struct {
	store SummaryStore
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(store SummaryStore) *SummaryHandler {
	return &SummaryHandler{store: store}
}

// List returns the newest summaries
func (h *SummaryHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	summaries, err := h.store.ListSummaries(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(summaries)
}

// Get returns one summary including its document
func (h *SummaryHandler) Get(c *fiber.Ctx) error {
	rec, err := h.store.GetSummary(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Summary not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rec)
}
