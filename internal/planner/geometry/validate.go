package geometry

import (
	"fmt"
	"strings"

	"plan-service/internal/planner/models"
)

// ============================================================
// Geometry Validator
// ============================================================

// Tolerances — геометрические допуски в футах.
// Смежные комнаты делят общую стену (нулевой зазор), поэтому
// проверка пересечений терпит до 0.5 фута погрешности округления.
type Tolerances struct {
	Overlap float64 // допуск пересечения комнат
	Bounds  float64 // допуск выхода за габариты здания
}

// DefaultTolerances возвращает допуски, совместимые с исходной системой.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Overlap: 0.5,
		Bounds:  1.0,
	}
}

// Report — результат проверки. Всегда возвращается, никогда не паникует;
// вызывающий сам решает, фатальны ли нарушения.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// minimumAreas — минимальные площади по типу комнаты (sqft).
// Подстрочное сравнение, первый совпавший выигрывает.
var minimumAreas = []struct {
	Keyword string
	MinSqft float64
}{
	{"bedroom", 70},
	{"bathroom", 35},
	{"kitchen", 50},
	{"living", 120},
	{"dining", 80},
	{"office", 64},
}

type Validator struct {
	tol Tolerances
}

func NewValidator(tol Tolerances) *Validator {
	return &Validator{tol: tol}
}

// Validate проверяет план: выход за габариты, пересечения комнат,
// минимальные площади. Каждая пара комнат проверяется один раз (i<j).
func (v *Validator) Validate(plan *models.Plan) Report {
	report := Report{Valid: true, Errors: []string{}}
	if plan == nil {
		report.Valid = false
		report.Errors = append(report.Errors, "plan is nil")
		return report
	}

	for _, floor := range plan.Floors {
		for i, room := range floor.Rooms {
			v.checkBounds(&report, floor.Level, room, plan.BuildingDimensions)
			v.checkMinimumArea(&report, floor.Level, room)

			for j := i + 1; j < len(floor.Rooms); j++ {
				other := floor.Rooms[j]
				if v.RoomsOverlap(room, other) {
					report.Errors = append(report.Errors, fmt.Sprintf(
						"floor %s: rooms %q and %q overlap",
						floor.Level, room.Name, other.Name))
				}
			}
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// RoomsOverlap сообщает, пересекаются ли две комнаты.
// Комнаты не пересекаются, если разведены хотя бы по одной оси
// с учетом допуска Overlap.
func (v *Validator) RoomsOverlap(a, b models.Room) bool {
	separated := a.Right() <= b.Left()+v.tol.Overlap ||
		a.Left() >= b.Right()-v.tol.Overlap ||
		a.Bottom() <= b.Top()+v.tol.Overlap ||
		a.Top() >= b.Bottom()-v.tol.Overlap
	return !separated
}

func (v *Validator) checkBounds(report *Report, level string, room models.Room, dims models.Dimensions2D) {
	if room.Position.X < 0 || room.Position.Y < 0 {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"floor %s: room %q has negative position (%.1f, %.1f)",
			level, room.Name, room.Position.X, room.Position.Y))
	}

	if dims.Width > 0 && room.Right() > dims.Width+v.tol.Bounds {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"floor %s: room %q extends beyond building width (%.1f > %.1f)",
			level, room.Name, room.Right(), dims.Width))
	}
	if dims.Depth > 0 && room.Bottom() > dims.Depth+v.tol.Bounds {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"floor %s: room %q extends beyond building depth (%.1f > %.1f)",
			level, room.Name, room.Bottom(), dims.Depth))
	}
}

func (v *Validator) checkMinimumArea(report *Report, level string, room models.Room) {
	roomType := strings.ToLower(room.Type)
	for _, entry := range minimumAreas {
		if !strings.Contains(roomType, entry.Keyword) {
			continue
		}
		if room.AreaSqft < entry.MinSqft {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"floor %s: room %q is %.0f sqft, below the %.0f sqft minimum for %s",
				level, room.Name, room.AreaSqft, entry.MinSqft, entry.Keyword))
		}
		return // первый совпавший тип решает
	}
}
