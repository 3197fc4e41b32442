package handlers

import (
	"encoding/json"
	"log"

	"plan-service/internal/common/apperror"
	"plan-service/internal/exporter/service"
	"plan-service/internal/planner/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Export Handler
// ============================================================

type ExportHandler struct {
	exporter *service.Exporter
}

func NewExportHandler(exporter *service.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

type exportRequest struct {
	Plan       *models.Plan `json:"plan"`
	Formats    []string     `json:"formats"`
	FloorIndex int          `json:"floorIndex"`
	Scale      float64      `json:"scale"`
}

// Export выгружает один этаж плана в DXF (и DWG по запросу).
func (h *ExportHandler) Export(c fiber.Ctx) error {
	log.Printf("[EXPORT] Export request, body: %d bytes", len(c.Body()))

	var req exportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.Respond(c, apperror.New(
			apperror.KindStructural, fiber.StatusBadRequest, "invalid JSON payload"))
	}

	result, err := h.exporter.Export(c.Context(), req.Plan, service.ExportOptions{
		Formats:    req.Formats,
		FloorIndex: req.FloorIndex,
		Scale:      req.Scale,
	})
	if err != nil {
		log.Printf("[EXPORT] Export error: %v", err)
		return apperror.Respond(c, err)
	}

	return c.JSON(result)
}
