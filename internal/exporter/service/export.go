package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"plan-service/internal/common/apperror"
	"plan-service/internal/exporter/convert"
	"plan-service/internal/exporter/dxf"
	"plan-service/internal/planner/models"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ============================================================
// CAD Export Orchestrator
// ============================================================

// Converter — цепочка конвертации DXF → DWG (см. internal/exporter/convert).
type Converter interface {
	Convert(ctx context.Context, dxf []byte) convert.Result
}

// ExporterConfig — масштаб по умолчанию и политика кэша экспортов.
type ExporterConfig struct {
	DefaultScale float64
	CacheSize    int
	CacheTTL     time.Duration
}

func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		DefaultScale: 10,
		CacheSize:    50,
		CacheTTL:     5 * time.Minute,
	}
}

// ExportOptions — параметры запроса экспорта.
type ExportOptions struct {
	Formats    []string `json:"formats"`
	FloorIndex int      `json:"floorIndex"`
	Scale      float64  `json:"scale"`
}

// ExportFile — один файл результата. DXF идет текстом, DWG — base64.
type ExportFile struct {
	Filename      string `json:"filename"`
	Format        string `json:"format"`
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"contentBase64,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// ExportMetadata описывает, что и когда было выгружено.
type ExportMetadata struct {
	ExportID     string    `json:"exportId"`
	BuildingType string    `json:"buildingType"`
	FloorLevel   string    `json:"floorLevel"`
	FloorArea    float64   `json:"floorArea"`
	RoomCount    int       `json:"roomCount"`
	Scale        float64   `json:"scale"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

type ExportResult struct {
	Files    []ExportFile   `json:"files"`
	Metadata ExportMetadata `json:"metadata"`
	Warnings []string       `json:"warnings,omitempty"`
	Cached   bool           `json:"cached,omitempty"`
}

// Exporter связывает энкодер, цепочку конвертации, кэш и хранилище.
type Exporter struct {
	encoder *dxf.Encoder
	chain   Converter
	storage *Storage
	cache   *exportCache
	cfg     ExporterConfig
}

func NewExporter(chain Converter, storage *Storage, cfg ExporterConfig) *Exporter {
	return &Exporter{
		encoder: dxf.NewEncoder(),
		chain:   chain,
		storage: storage,
		cache:   newExportCache(cfg.CacheSize, cfg.CacheTTL),
		cfg:     cfg,
	}
}

// Export выгружает один этаж: DXF всегда, DWG — по запросу через
// цепочку конвертации. Отказ конвертации не валит экспорт, а
// добавляет предупреждение.
func (e *Exporter) Export(ctx context.Context, plan *models.Plan, opts ExportOptions) (ExportResult, error) {
	if problems := structuralProblems(plan); len(problems) > 0 {
		return ExportResult{}, apperror.WithDetails(
			apperror.KindInvalidPlan, fiber.StatusBadRequest,
			"plan failed structural validation", problems)
	}

	if opts.Scale <= 0 {
		opts.Scale = e.cfg.DefaultScale
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{"dxf"}
	}

	key := exportKey(plan, opts.FloorIndex, opts.Scale)
	if cached, ok := e.cache.get(key); ok {
		log.Printf("[EXPORT] Cache hit for floor %d", opts.FloorIndex)
		cached.Cached = true
		return cached, nil
	}

	drawing, err := e.encoder.Encode(plan, opts.FloorIndex, opts.Scale)
	if err != nil {
		if errors.Is(err, dxf.ErrFloorNotFound) {
			return ExportResult{}, apperror.New(
				apperror.KindFloorNotFound, fiber.StatusBadRequest,
				fmt.Sprintf("floor %d does not exist", opts.FloorIndex))
		}
		return ExportResult{}, apperror.New(
			apperror.KindInternal, fiber.StatusInternalServerError, "drawing encoding failed")
	}

	floor := plan.Floors[opts.FloorIndex]
	result := ExportResult{
		Files: []ExportFile{{
			Filename: fmt.Sprintf("floor-%d.dxf", opts.FloorIndex),
			Format:   "dxf",
			Content:  drawing,
		}},
		Metadata: ExportMetadata{
			ExportID:     uuid.NewString(),
			BuildingType: plan.BuildingType,
			FloorLevel:   floor.Level,
			FloorArea:    floor.TotalArea,
			RoomCount:    len(floor.Rooms),
			Scale:        opts.Scale,
			GeneratedAt:  time.Now().UTC(),
		},
	}

	if wantsFormat(opts.Formats, "dwg") {
		conv := e.chain.Convert(ctx, []byte(drawing))
		if conv.Fallback {
			result.Warnings = append(result.Warnings, conv.Warning)
		} else {
			result.Files = append(result.Files, ExportFile{
				Filename:      fmt.Sprintf("floor-%d.dwg", opts.FloorIndex),
				Format:        conv.Format,
				ContentBase64: base64.StdEncoding.EncodeToString(conv.Data),
			})
		}
	}

	e.saveArtifacts(result)
	e.cache.put(key, result)
	return result, nil
}

// structuralProblems — структурная проверка формы плана (не геометрии):
// все проблемы собираются в один список.
func structuralProblems(plan *models.Plan) []string {
	if plan == nil {
		return []string{"plan is required"}
	}

	var problems []string
	if len(plan.Floors) == 0 {
		problems = append(problems, "plan has no floors")
	}
	for i, floor := range plan.Floors {
		if len(floor.Rooms) == 0 {
			problems = append(problems, fmt.Sprintf("floor %d has no rooms", i))
		}
	}
	return problems
}

func (e *Exporter) saveArtifacts(result ExportResult) {
	if e.storage == nil {
		return
	}
	if err := e.storage.SaveExport(result.Metadata.ExportID, result.Files); err != nil {
		// диск не критичен для ответа
		log.Printf("[EXPORT] Save artifacts: %v", err)
	}
}

func wantsFormat(formats []string, format string) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}
