package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"plan-service/internal/common/apperror"
	"plan-service/internal/planner/geometry"
	"plan-service/internal/planner/models"
	"plan-service/internal/planner/repository"
	"plan-service/internal/planner/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Plan Handlers
// ============================================================

type PlanHandler struct {
	generator *service.Generator
	validator *geometry.Validator
	repo      *repository.Repository
}

func NewPlanHandler(generator *service.Generator, validator *geometry.Validator, repo *repository.Repository) *PlanHandler {
	return &PlanHandler{
		generator: generator,
		validator: validator,
		repo:      repo,
	}
}

type generateRequest struct {
	Prompt string      `json:"prompt"`
	Meta   models.Meta `json:"meta"`
}

// Generate запускает цикл генерации плана по prompt.
func (h *PlanHandler) Generate(c fiber.Ctx) error {
	log.Printf("[PLANNER] Generate request, body: %d bytes", len(c.Body()))

	var req generateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.Respond(c, apperror.New(
			apperror.KindStructural, fiber.StatusBadRequest, "invalid JSON payload"))
	}

	result, err := h.generator.Generate(context.WithoutCancel(c.Context()), req.Prompt, req.Meta)
	if err != nil {
		log.Printf("[PLANNER] Generate error: %v", err)
		return apperror.Respond(c, err)
	}

	return c.JSON(result)
}

type validateRequest struct {
	Plan *models.Plan `json:"plan"`
}

// Validate выполняет геометрическую проверку готового плана.
func (h *PlanHandler) Validate(c fiber.Ctx) error {
	var req validateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Plan == nil {
		return apperror.Respond(c, apperror.New(
			apperror.KindStructural, fiber.StatusBadRequest, "plan is required"))
	}

	return c.JSON(h.validator.Validate(req.Plan))
}

// GetPlan возвращает сохраненный план по id.
func (h *PlanHandler) GetPlan(c fiber.Ctx) error {
	id := c.Params("id")

	rec, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "plan not found"})
		}
		log.Printf("[PLANNER] Get plan %s: %v", id, err)
		return apperror.Respond(c, err)
	}

	return c.JSON(rec)
}

// ListPlans возвращает последние сохраненные планы.
func (h *PlanHandler) ListPlans(c fiber.Ctx) error {
	records, err := h.repo.List(c.Context(), 50)
	if err != nil {
		log.Printf("[PLANNER] List plans: %v", err)
		return apperror.Respond(c, err)
	}
	if records == nil {
		records = []repository.PlanRecord{}
	}
	return c.JSON(records)
}
