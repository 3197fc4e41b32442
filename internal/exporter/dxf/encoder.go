package dxf

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"plan-service/internal/planner/models"
)

// ============================================================
// DXF Encoder
// ============================================================

// ErrFloorNotFound возвращается при floorIndex вне диапазона плана.
var ErrFloorNotFound = errors.New("floor not found")

// windowOffsetFactor — половина толщины оконного символа в долях scale.
const windowOffsetFactor = 0.15

// layerDef — слой чертежа: цвет ACI и толщина линии (сотые мм).
type layerDef struct {
	Name       string
	Color      int
	LineWeight int
}

// Фиксированный набор слоев. Порядок объявления фиксирован:
// вывод обязан быть байт-в-байт воспроизводимым для кэша.
var layers = []layerDef{
	{"WALLS", 7, 50},
	{"WALLS_INTERIOR", 8, 35},
	{"DOORS", 30, 25},
	{"WINDOWS", 5, 25},
	{"ROOM_AREAS", 3, 18},
	{"TEXT_LABELS", 2, 18},
	{"DIMENSIONS", 4, 13},
	{"FURNITURE", 6, 13},
	{"GRID", 9, 5},
	{"TITLE_BLOCK", 7, 35},
}

// Encoder сериализует один этаж плана в ASCII DXF.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode строит DXF-документ для этажа floorIndex в масштабе scale
// (чертежных единиц на фут). Одинаковый вход дает одинаковые байты.
func (e *Encoder) Encode(plan *models.Plan, floorIndex int, scale float64) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("%w: plan is nil", ErrFloorNotFound)
	}
	if floorIndex < 0 || floorIndex >= len(plan.Floors) {
		return "", fmt.Errorf("%w: index %d of %d floors", ErrFloorNotFound, floorIndex, len(plan.Floors))
	}
	floor := plan.Floors[floorIndex]

	w := &writer{depth: plan.BuildingDimensions.Depth, scale: scale}

	e.writeHeader(w, plan)
	e.writeTables(w)
	e.writeBlocks(w)
	e.writeEntities(w, plan, floor)

	w.tag(0, "EOF")
	return w.String(), nil
}

// ============================================================
// Sections
// ============================================================

func (e *Encoder) writeHeader(w *writer, plan *models.Plan) {
	w.tag(0, "SECTION")
	w.tag(2, "HEADER")

	w.tag(9, "$ACADVER")
	w.tag(1, "AC1015")

	w.tag(9, "$INSUNITS")
	w.tag(70, "2") // feet

	w.tag(9, "$EXTMIN")
	w.coord(0, 0)
	w.tag(9, "$EXTMAX")
	w.num(10, plan.BuildingDimensions.Width*w.scale)
	w.num(20, plan.BuildingDimensions.Depth*w.scale)

	w.tag(0, "ENDSEC")
}

func (e *Encoder) writeTables(w *writer) {
	w.tag(0, "SECTION")
	w.tag(2, "TABLES")

	// единственный тип линии
	w.tag(0, "TABLE")
	w.tag(2, "LTYPE")
	w.tag(70, "1")
	w.tag(0, "LTYPE")
	w.tag(2, "CONTINUOUS")
	w.tag(70, "0")
	w.tag(3, "Solid line")
	w.tag(72, "65")
	w.tag(73, "0")
	w.num(40, 0)
	w.tag(0, "ENDTAB")

	w.tag(0, "TABLE")
	w.tag(2, "LAYER")
	w.tag(70, fmt.Sprintf("%d", len(layers)))
	for _, layer := range layers {
		w.tag(0, "LAYER")
		w.tag(2, layer.Name)
		w.tag(70, "0")
		w.tag(62, fmt.Sprintf("%d", layer.Color))
		w.tag(6, "CONTINUOUS")
		w.tag(370, fmt.Sprintf("%d", layer.LineWeight))
	}
	w.tag(0, "ENDTAB")

	// единственный текстовый стиль
	w.tag(0, "TABLE")
	w.tag(2, "STYLE")
	w.tag(70, "1")
	w.tag(0, "STYLE")
	w.tag(2, "STANDARD")
	w.tag(70, "0")
	w.num(40, 0)
	w.num(41, 1)
	w.num(50, 0)
	w.tag(71, "0")
	w.tag(0, "ENDTAB")

	w.tag(0, "ENDSEC")
}

// writeBlocks — пустая секция, зарезервирована под символы мебели.
func (e *Encoder) writeBlocks(w *writer) {
	w.tag(0, "SECTION")
	w.tag(2, "BLOCKS")
	w.tag(0, "ENDSEC")
}

func (e *Encoder) writeEntities(w *writer, plan *models.Plan, floor models.Floor) {
	w.tag(0, "SECTION")
	w.tag(2, "ENTITIES")

	dims := plan.BuildingDimensions
	if dims.Width > 0 && dims.Depth > 0 {
		e.writeBuildingOutline(w, dims)
	}

	for _, room := range floor.Rooms {
		e.writeRoom(w, room)
	}

	e.writeTitleBlock(w, plan, floor)

	w.tag(0, "ENDSEC")
}

func (e *Encoder) writeBuildingOutline(w *writer, dims models.Dimensions2D) {
	w.polyline("WALLS",
		point{0, dims.Depth},
		point{dims.Width, dims.Depth},
		point{dims.Width, 0},
		point{0, 0},
	)
}

func (e *Encoder) writeRoom(w *writer, room models.Room) {
	// контур комнаты
	w.polyline("WALLS_INTERIOR",
		point{room.Left(), room.Top()},
		point{room.Right(), room.Top()},
		point{room.Right(), room.Bottom()},
		point{room.Left(), room.Bottom()},
	)

	cx := (room.Left() + room.Right()) / 2
	cy := (room.Top() + room.Bottom()) / 2
	textHeight := 0.1 * w.scale

	// имя, габариты и площадь по центру комнаты
	w.text("TEXT_LABELS", cx, cy-0.15*minSide(room), textHeight, room.Name)
	w.text("DIMENSIONS", cx, cy, textHeight*0.8,
		fmt.Sprintf("%s' x %s'", trimFloat(room.Dimensions.Length), trimFloat(room.Dimensions.Width)))
	w.text("ROOM_AREAS", cx, cy+0.15*minSide(room), textHeight*0.8,
		fmt.Sprintf("%s sqft", trimFloat(room.AreaSqft)))

	for _, door := range room.Doors {
		e.writeDoor(w, room, door)
	}
	for _, window := range room.Windows {
		e.writeWindow(w, room, window)
	}
}

// writeDoor — проем, четверть-дуга распашки и полотно двери.
// Квадрант дуги зависит от ориентации стены.
func (e *Encoder) writeDoor(w *writer, room models.Room, door models.Opening) {
	hinge, end, ok := wallSegment(room, door)
	if !ok {
		return
	}

	w.line("DOORS", hinge, end)

	var startAngle, endAngle, leafAngle float64
	switch door.Wall {
	case "north":
		startAngle, endAngle, leafAngle = 0, 90, 90
	case "south":
		startAngle, endAngle, leafAngle = 270, 360, 270
	case "west":
		startAngle, endAngle, leafAngle = 0, 90, 0
	case "east":
		startAngle, endAngle, leafAngle = 90, 180, 180
	}

	w.arc("DOORS", hinge, door.Width, startAngle, endAngle)

	// полотно: отрезок от петли перпендикулярно стене
	rad := leafAngle * math.Pi / 180
	leaf := point{
		X: hinge.X + door.Width*math.Cos(rad),
		Y: hinge.Y - door.Width*math.Sin(rad), // plan Y растет вниз
	}
	w.line("DOORS", hinge, leaf)
}

// writeWindow — двойная линия с торцевыми заглушками и средником.
func (e *Encoder) writeWindow(w *writer, room models.Room, window models.Opening) {
	start, end, ok := wallSegment(room, window)
	if !ok {
		return
	}

	// нормаль к стене в координатах плана
	var nx, ny float64
	switch window.Wall {
	case "north", "south":
		nx, ny = 0, 1
	case "west", "east":
		nx, ny = 1, 0
	}
	offset := windowOffsetFactor // в футах до масштабирования: 0.15×scale после

	a1 := point{start.X + nx*offset, start.Y + ny*offset}
	b1 := point{end.X + nx*offset, end.Y + ny*offset}
	a2 := point{start.X - nx*offset, start.Y - ny*offset}
	b2 := point{end.X - nx*offset, end.Y - ny*offset}

	w.line("WINDOWS", a1, b1) // внешняя линия
	w.line("WINDOWS", a2, b2) // внутренняя линия
	w.line("WINDOWS", a1, a2) // торец
	w.line("WINDOWS", b1, b2) // торец
	mid1 := point{(a1.X + b1.X) / 2, (a1.Y + b1.Y) / 2}
	mid2 := point{(a2.X + b2.X) / 2, (a2.Y + b2.Y) / 2}
	w.line("WINDOWS", mid1, mid2) // средник
}

func (e *Encoder) writeTitleBlock(w *writer, plan *models.Plan, floor models.Floor) {
	dims := plan.BuildingDimensions
	margin := 0.02 * dims.Width
	x := dims.Width - margin
	textHeight := 0.12 * w.scale

	w.textRight("TITLE_BLOCK", x, margin, textHeight, plan.BuildingType)
	w.textRight("TITLE_BLOCK", x, margin+0.4, textHeight*0.8,
		fmt.Sprintf("%s - %s sqft", floor.Level, trimFloat(floor.TotalArea)))
}

// wallSegment возвращает отрезок проема на стене комнаты в координатах
// плана: от опорного угла стены со смещением position на длину width.
func wallSegment(room models.Room, opening models.Opening) (point, point, bool) {
	switch opening.Wall {
	case "north":
		start := point{room.Left() + opening.Position, room.Top()}
		return start, point{start.X + opening.Width, start.Y}, true
	case "south":
		start := point{room.Left() + opening.Position, room.Bottom()}
		return start, point{start.X + opening.Width, start.Y}, true
	case "west":
		start := point{room.Left(), room.Top() + opening.Position}
		return start, point{start.X, start.Y + opening.Width}, true
	case "east":
		start := point{room.Right(), room.Top() + opening.Position}
		return start, point{start.X, start.Y + opening.Width}, true
	default:
		return point{}, point{}, false
	}
}

func minSide(room models.Room) float64 {
	if room.Dimensions.Length < room.Dimensions.Width {
		return room.Dimensions.Length
	}
	return room.Dimensions.Width
}

// trimFloat печатает число без хвостовых нулей (168, 12.5).
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ============================================================
// Low-level writer
// ============================================================

type point struct {
	X, Y float64
}

// writer пишет пары "групповой код / значение" и переводит координаты
// плана (Y вниз от верхнего левого угла) в координаты DXF (Y вверх).
type writer struct {
	b     strings.Builder
	depth float64
	scale float64
}

func (w *writer) String() string {
	return w.b.String()
}

func (w *writer) tag(code int, value string) {
	fmt.Fprintf(&w.b, "%d\n%s\n", code, value)
}

// num печатает числовое значение с фиксированной точностью 4 знака.
func (w *writer) num(code int, value float64) {
	fmt.Fprintf(&w.b, "%d\n%.4f\n", code, value)
}

func (w *writer) coord(x, y float64) {
	w.num(10, x)
	w.num(20, y)
}

// dx/dy — перевод координат плана в чертежные.
func (w *writer) dx(x float64) float64 { return x * w.scale }
func (w *writer) dy(y float64) float64 { return (w.depth - y) * w.scale }

func (w *writer) line(layer string, from, to point) {
	w.tag(0, "LINE")
	w.tag(8, layer)
	w.num(10, w.dx(from.X))
	w.num(20, w.dy(from.Y))
	w.num(11, w.dx(to.X))
	w.num(21, w.dy(to.Y))
}

func (w *writer) polyline(layer string, points ...point) {
	w.tag(0, "LWPOLYLINE")
	w.tag(8, layer)
	w.tag(90, fmt.Sprintf("%d", len(points)))
	w.tag(70, "1") // closed
	for _, p := range points {
		w.num(10, w.dx(p.X))
		w.num(20, w.dy(p.Y))
	}
}

func (w *writer) arc(layer string, center point, radiusFt, startAngle, endAngle float64) {
	w.tag(0, "ARC")
	w.tag(8, layer)
	w.num(10, w.dx(center.X))
	w.num(20, w.dy(center.Y))
	w.num(40, radiusFt*w.scale)
	w.num(50, startAngle)
	w.num(51, endAngle)
}

// text — надпись с центрированием по точке (x, y) в координатах плана.
func (w *writer) text(layer string, x, y, height float64, value string) {
	w.writeText(layer, x, y, height, value, 1)
}

// textRight — надпись, выровненная вправо.
func (w *writer) textRight(layer string, x, y, height float64, value string) {
	w.writeText(layer, x, y, height, value, 2)
}

func (w *writer) writeText(layer string, x, y, height float64, value string, hAlign int) {
	w.tag(0, "TEXT")
	w.tag(8, layer)
	w.num(10, w.dx(x))
	w.num(20, w.dy(y))
	w.num(40, height)
	w.tag(1, value)
	w.tag(72, fmt.Sprintf("%d", hAlign))
	w.num(11, w.dx(x))
	w.num(21, w.dy(y))
}
