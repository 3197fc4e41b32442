package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"plan-service/internal/common/apperror"
	"plan-service/internal/planner/geometry"
	"plan-service/internal/planner/llm"
	"plan-service/internal/planner/models"
	"plan-service/internal/planner/normalize"
	"plan-service/internal/planner/repository"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ============================================================
// Plan Generator
// ============================================================

// systemPrompt — фиксированная инструкция провайдеру: ответ строго JSON
// в форме плана этажей.
const systemPrompt = "You are an architectural assistant. " +
	"Respond with a single JSON object describing a building floor plan: " +
	"buildingType, totalArea, buildingDimensions {width, depth} in feet, and floors, " +
	"each floor with level, totalArea and rooms " +
	"(id, name, type, areaSqft, dimensions {length, width}, position {x, y}, doors, windows). " +
	"Rooms must not overlap and must stay inside the building dimensions."

// Provider — внешний генеративный провайдер (см. internal/planner/llm).
type Provider interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// History сохраняет принятые планы; может отсутствовать (nil).
type History interface {
	Save(ctx context.Context, rec repository.PlanRecord) error
}

// GeneratorConfig — политика повторов и кэширования генерации.
type GeneratorConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Temperature float64
	MaxTokens   int
	CacheSize   int
	CacheTTL    time.Duration
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Temperature: 0.7,
		MaxTokens:   4000,
		CacheSize:   100,
		CacheTTL:    5 * time.Minute,
	}
}

// Result — итог генерации: план, расход токенов и, для плана, принятого
// на последней попытке, список геометрических предупреждений.
type Result struct {
	PlanID             string            `json:"planId"`
	Plan               *models.Plan      `json:"plan"`
	Usage              models.TokenUsage `json:"usage"`
	ValidationWarnings []string          `json:"validationWarnings,omitempty"`
	Cached             bool              `json:"cached,omitempty"`
}

// Generator ведет цикл генерации: кэш → провайдер → нормализация →
// геометрическая проверка → принять / повторить / отказать.
type Generator struct {
	provider  Provider
	validator *geometry.Validator
	history   History
	cache     *resultCache
	cfg       GeneratorConfig
}

func NewGenerator(provider Provider, validator *geometry.Validator, history History, cfg GeneratorConfig) *Generator {
	return &Generator{
		provider:  provider,
		validator: validator,
		history:   history,
		cache:     newResultCache(cfg.CacheSize, cfg.CacheTTL),
		cfg:       cfg,
	}
}

// Generate выполняет до MaxAttempts последовательных попыток.
// Попытки строго последовательны: каждая зависит от исхода проверки
// предыдущей, а провайдер ограничен по rate limit.
func (g *Generator) Generate(ctx context.Context, prompt string, meta models.Meta) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, apperror.New(apperror.KindStructural, fiber.StatusBadRequest, "prompt is required")
	}

	key := generationKey(prompt, meta)
	if cached, ok := g.cache.get(key); ok {
		log.Printf("[PLANNER] Cache hit for prompt (%d chars)", len(prompt))
		cached.Cached = true
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		log.Printf("[PLANNER] Attempt %d/%d", attempt, g.cfg.MaxAttempts)

		resp, err := g.provider.Complete(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			UserPrompt:   buildUserPrompt(prompt, meta),
			Temperature:  g.cfg.Temperature,
			MaxTokens:    g.cfg.MaxTokens,
			JSONMode:     true,
		})
		if err != nil {
			if !llm.IsTransient(err) {
				return Result{}, providerError(err)
			}
			lastErr = err
			log.Printf("[PLANNER] Provider error (attempt %d): %v", attempt, err)
			if attempt < g.cfg.MaxAttempts {
				if err := g.backoff(ctx, attempt); err != nil {
					return Result{}, err
				}
			}
			continue
		}

		if strings.TrimSpace(resp.Content) == "" {
			lastErr = llm.NewTransientError(llm.CodeProvider, fmt.Errorf("empty response body"))
			log.Printf("[PLANNER] Empty response (attempt %d)", attempt)
			if attempt < g.cfg.MaxAttempts {
				if err := g.backoff(ctx, attempt); err != nil {
					return Result{}, err
				}
			}
			continue
		}

		plan, err := normalize.Normalize([]byte(llm.ExtractJSON(resp.Content)), meta)
		if err != nil {
			// структурно негодный ответ не повторяем
			return Result{}, apperror.New(apperror.KindStructural, fiber.StatusBadGateway, err.Error())
		}

		report := g.validator.Validate(plan)
		if !report.Valid && attempt < g.cfg.MaxAttempts {
			log.Printf("[PLANNER] Geometry violations (attempt %d): %d", attempt, len(report.Errors))
			if err := g.backoff(ctx, attempt); err != nil {
				return Result{}, err
			}
			continue
		}

		result := Result{
			PlanID: uuid.NewString(),
			Plan:   plan,
			Usage:  resp.Usage,
		}
		if !report.Valid {
			// последняя попытка: план принимается, нарушения — предупреждения
			result.ValidationWarnings = report.Errors
			log.Printf("[PLANNER] Accepting plan with %d warnings", len(report.Errors))
		}

		g.saveHistory(ctx, prompt, result)
		g.cache.put(key, result)
		return result, nil
	}

	return Result{}, exhaustedError(lastErr)
}

// backoff ждет baseDelay × attempt, уважая отмену контекста.
func (g *Generator) backoff(ctx context.Context, attempt int) error {
	delay := g.cfg.BaseDelay * time.Duration(attempt)
	select {
	case <-ctx.Done():
		return apperror.New(apperror.KindInternal, fiber.StatusInternalServerError, "request cancelled")
	case <-time.After(delay):
		return nil
	}
}

func (g *Generator) saveHistory(ctx context.Context, prompt string, result Result) {
	if g.history == nil {
		return
	}

	planJSON, err := json.Marshal(result.Plan)
	if err != nil {
		log.Printf("[PLANNER] Marshal plan for history: %v", err)
		return
	}
	rec := repository.PlanRecord{
		ID:           result.PlanID,
		Prompt:       prompt,
		BuildingType: result.Plan.BuildingType,
		PlanJSON:     string(planJSON),
	}
	if err := g.history.Save(ctx, rec); err != nil {
		// история не критична для ответа
		log.Printf("[PLANNER] Save plan history: %v", err)
	}
}

// providerError переводит фатальную ошибку провайдера в ошибку границы.
func providerError(err error) error {
	switch llm.ErrorCode(err) {
	case llm.CodeQuotaExceeded:
		return apperror.New(apperror.KindQuotaExceeded, fiber.StatusPaymentRequired, "generation quota exhausted")
	case llm.CodeContextTooLong:
		return apperror.New(apperror.KindContextTooLong, fiber.StatusBadRequest, "prompt is too long for the model")
	default:
		return apperror.New(apperror.KindProvider, fiber.StatusBadGateway, "generation provider rejected the request")
	}
}

// exhaustedError — бюджет попыток исчерпан временными ошибками.
func exhaustedError(lastErr error) error {
	if llm.ErrorCode(lastErr) == llm.CodeRateLimited {
		return apperror.New(apperror.KindRateLimited, fiber.StatusTooManyRequests, "provider rate limit: too many requests")
	}
	return apperror.New(apperror.KindProvider, fiber.StatusServiceUnavailable, "generation provider unavailable")
}

func buildUserPrompt(prompt string, meta models.Meta) string {
	var b strings.Builder
	b.WriteString(prompt)

	var hints []string
	if meta.BuildingType != "" {
		hints = append(hints, "building type: "+meta.BuildingType)
	}
	if meta.TotalArea > 0 {
		hints = append(hints, fmt.Sprintf("total area: %.0f sqft", meta.TotalArea))
	}
	if meta.FloorCount > 0 {
		hints = append(hints, fmt.Sprintf("floors: %d", meta.FloorCount))
	}
	if meta.Style != "" {
		hints = append(hints, "style: "+meta.Style)
	}
	if len(hints) > 0 {
		b.WriteString("\n\nRequirements: ")
		b.WriteString(strings.Join(hints, "; "))
	}
	return b.String()
}
