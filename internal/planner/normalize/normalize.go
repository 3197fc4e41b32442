package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"plan-service/internal/planner/models"
)

// ============================================================
// Plan Normalizer
// ============================================================

// ParseError — структурная ошибка: ответ не декодируется, нет этажей
// или этаж без комнат. Всё остальное нормализатор дозаполняет сам.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse plan: " + e.Reason
}

// rawPlan повторяет форму ответа провайдера; указатели отличают
// отсутствующее поле от нулевого.
type rawPlan struct {
	BuildingType       string               `json:"buildingType"`
	TotalArea          float64              `json:"totalArea"`
	BuildingDimensions *models.Dimensions2D `json:"buildingDimensions"`
	Floors             []rawFloor           `json:"floors"`
	Exterior           map[string]any       `json:"exterior"`
	Compliance         map[string]any       `json:"compliance"`
	FireSafety         map[string]any       `json:"fireSafety"`
}

type rawFloor struct {
	Level     string    `json:"level"`
	TotalArea float64   `json:"totalArea"`
	Rooms     []rawRoom `json:"rooms"`
}

type rawRoom struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	AreaSqft   float64                `json:"areaSqft"`
	Dimensions *models.RoomDimensions `json:"dimensions"`
	Position   *models.Position       `json:"position"`
	Doors      []models.Opening       `json:"doors"`
	Windows    []models.Opening       `json:"windows"`
}

// roomTypeKeywords — таблица вывода типа комнаты из названия.
// Порядок важен: первый совпавший выигрывает.
var roomTypeKeywords = []struct {
	Keyword string
	Type    string
}{
	{"bed", "bedroom"},
	{"bath", "bathroom"},
	{"toilet", "bathroom"},
	{"kitchen", "kitchen"},
	{"living", "living"},
	{"lounge", "living"},
	{"dining", "dining"},
	{"office", "office"},
	{"study", "office"},
	{"hall", "corridor"},
	{"corridor", "corridor"},
	{"stair", "staircase"},
	{"storage", "storage"},
	{"closet", "storage"},
	{"pantry", "storage"},
	{"garage", "garage"},
	{"balcony", "outdoor"},
	{"terrace", "outdoor"},
	{"patio", "outdoor"},
}

const (
	defaultBuildingType = "Residential"
	minBuildingSideFt   = 20.0
)

// Normalize декодирует сырой план и дозаполняет производные поля:
// идентификаторы, имена, типы, площади, габариты, позиции.
// Вход не мутируется — собирается новый валидированный план.
func Normalize(data []byte, meta models.Meta) (*models.Plan, error) {
	var raw rawPlan
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return normalizeRaw(raw, meta)
}

func normalizeRaw(raw rawPlan, meta models.Meta) (*models.Plan, error) {
	if len(raw.Floors) == 0 {
		return nil, &ParseError{Reason: "plan has no floors"}
	}

	plan := &models.Plan{
		BuildingType: raw.BuildingType,
		TotalArea:    raw.TotalArea,
		Exterior:     raw.Exterior,
		Compliance:   raw.Compliance,
		FireSafety:   raw.FireSafety,
	}
	if plan.BuildingType == "" {
		plan.BuildingType = meta.BuildingType
	}
	if plan.BuildingType == "" {
		plan.BuildingType = defaultBuildingType
	}
	if raw.BuildingDimensions != nil {
		plan.BuildingDimensions = *raw.BuildingDimensions
	}

	for floorIdx, rf := range raw.Floors {
		if len(rf.Rooms) == 0 {
			return nil, &ParseError{Reason: fmt.Sprintf("floor %d has no rooms", floorIdx)}
		}

		floor := models.Floor{
			Level:     rf.Level,
			TotalArea: rf.TotalArea,
		}
		if floor.Level == "" {
			if floorIdx == 0 {
				floor.Level = "Ground"
			} else {
				floor.Level = fmt.Sprintf("Floor %d", floorIdx)
			}
		}

		for roomIdx, rr := range rf.Rooms {
			floor.Rooms = append(floor.Rooms, normalizeRoom(rr, floorIdx, roomIdx))
		}

		if floor.TotalArea == 0 {
			for _, r := range floor.Rooms {
				floor.TotalArea += r.AreaSqft
			}
		}

		plan.Floors = append(plan.Floors, floor)
	}

	if plan.BuildingDimensions.Width == 0 || plan.BuildingDimensions.Depth == 0 {
		plan.BuildingDimensions = boundingDimensions(plan.Floors[0])
	}

	if plan.TotalArea == 0 {
		for _, f := range plan.Floors {
			plan.TotalArea += f.TotalArea
		}
	}

	return plan, nil
}

func normalizeRoom(raw rawRoom, floorIdx, roomIdx int) models.Room {
	room := models.Room{
		ID:       raw.ID,
		Name:     raw.Name,
		Type:     raw.Type,
		AreaSqft: raw.AreaSqft,
		Doors:    raw.Doors,
		Windows:  raw.Windows,
	}

	if room.ID == "" {
		room.ID = fmt.Sprintf("f%d-r%d", floorIdx, roomIdx)
	}
	if room.Name == "" {
		if room.Type != "" {
			room.Name = room.Type
		} else {
			room.Name = fmt.Sprintf("Room %d", roomIdx+1)
		}
	}
	if room.Type == "" {
		room.Type = inferRoomType(room.Name)
	}

	if raw.Dimensions != nil {
		room.Dimensions = *raw.Dimensions
	}
	if room.AreaSqft == 0 && room.Dimensions.Length > 0 && room.Dimensions.Width > 0 {
		room.AreaSqft = math.Round(room.Dimensions.Length * room.Dimensions.Width)
	}
	if (room.Dimensions.Length == 0 || room.Dimensions.Width == 0) && room.AreaSqft > 0 {
		side := math.Round(math.Sqrt(room.AreaSqft))
		room.Dimensions = models.RoomDimensions{Length: side, Width: side}
	}

	if raw.Position != nil {
		room.Position = *raw.Position
	}
	if room.Doors == nil {
		room.Doors = []models.Opening{}
	}
	if room.Windows == nil {
		room.Windows = []models.Opening{}
	}

	return room
}

// inferRoomType выводит тип комнаты из имени по таблице ключевых слов.
func inferRoomType(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range roomTypeKeywords {
		if strings.Contains(lower, entry.Keyword) {
			return entry.Type
		}
	}
	return "room"
}

// boundingDimensions — габариты здания как bounding box комнат первого
// этажа, но не меньше 20×20 футов.
func boundingDimensions(ground models.Floor) models.Dimensions2D {
	dims := models.Dimensions2D{Width: minBuildingSideFt, Depth: minBuildingSideFt}
	for _, r := range ground.Rooms {
		if right := r.Right(); right > dims.Width {
			dims.Width = right
		}
		if bottom := r.Bottom(); bottom > dims.Depth {
			dims.Depth = bottom
		}
	}
	return dims
}
