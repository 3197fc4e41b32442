package models

// ============================================================
// Floor Plan Model
// ============================================================

type Plan struct {
	BuildingType       string         `json:"buildingType"`
	TotalArea          float64        `json:"totalArea"`
	BuildingDimensions Dimensions2D   `json:"buildingDimensions"`
	Floors             []Floor        `json:"floors"`
	Exterior           map[string]any `json:"exterior,omitempty"`
	Compliance         map[string]any `json:"compliance,omitempty"`
	FireSafety         map[string]any `json:"fireSafety,omitempty"`
}

// Dimensions2D — габариты здания в футах.
type Dimensions2D struct {
	Width float64 `json:"width"`
	Depth float64 `json:"depth"`
}

type Floor struct {
	Level     string  `json:"level"`
	TotalArea float64 `json:"totalArea"`
	Rooms     []Room  `json:"rooms"`
}

type Room struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	AreaSqft   float64        `json:"areaSqft"`
	Dimensions RoomDimensions `json:"dimensions"`
	Position   Position       `json:"position"`
	Doors      []Opening      `json:"doors"`
	Windows    []Opening      `json:"windows"`
}

type RoomDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// Position — координаты комнаты относительно левого верхнего угла этажа.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Opening представляет дверь или окно на одной из четырех стен.
// Position отсчитывается от левого опорного угла стены.
type Opening struct {
	Wall     string  `json:"wall"` // north, south, east, west
	Position float64 `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height,omitempty"`
	Type     string  `json:"type,omitempty"`
}

// ============================================================
// Generation metadata
// ============================================================

// Meta — подсказки генерации, приходящие вместе с prompt.
type Meta struct {
	BuildingType string  `json:"buildingType,omitempty"`
	TotalArea    float64 `json:"totalArea,omitempty"`
	FloorCount   int     `json:"floorCount,omitempty"`
	Style        string  `json:"style,omitempty"`
}

// TokenUsage — расход токенов провайдера за один запрос.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ============================================================
// Geometry helpers
// ============================================================

// Left/Right/Top/Bottom — границы комнаты в координатах этажа.
// Width тянется по X, Length по Y.

func (r Room) Left() float64   { return r.Position.X }
func (r Room) Right() float64  { return r.Position.X + r.Dimensions.Width }
func (r Room) Top() float64    { return r.Position.Y }
func (r Room) Bottom() float64 { return r.Position.Y + r.Dimensions.Length }
