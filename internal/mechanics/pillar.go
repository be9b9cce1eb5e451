package mechanics

import (
	"math/rand"

	"raid-server/internal/domain"
)

// Параметры фазы колонн
const (
	ParamSafeRadius = "safe_radius"

	DefaultPillarSafeRadius = 1
)

// PillarPhaseData - данные фазы колонн. Создаются при активации и не меняются до ее конца.
type PillarPhaseData struct {
	Pillars     []domain.Position `json:"pillars"`
	SafeRadius  int               `json:"safeRadius"`
	PillarCount int               `json:"pillarCount"`
}

// pillarGeometry: опасно всё, кроме квадратов Чебышёва вокруг четырех угловых колонн.
type pillarGeometry struct {
	grid domain.Grid
	data PillarPhaseData
}

// buildPillarPhase ставит колонны строго в углы сетки. Расстановка детерминирована.
func buildPillarPhase(grid domain.Grid, def Definition, _ *rand.Rand) Geometry {
	corners := grid.Corners()
	pillars := make([]domain.Position, len(corners))
	copy(pillars, corners[:])

	return &pillarGeometry{
		grid: grid,
		data: PillarPhaseData{
			Pillars:     pillars,
			SafeRadius:  def.Params.Int(ParamSafeRadius, DefaultPillarSafeRadius),
			PillarCount: len(pillars),
		},
	}
}

// IsSafe: безопасно, если до ближайшей колонны не больше SafeRadius по Чебышёву.
// Манхэттен или евклид превратили бы квадрат в ромб или круг.
func (g *pillarGeometry) IsSafe(p domain.Position) bool {
	for _, pillar := range g.data.Pillars {
		if p.ChebyshevTo(pillar) <= g.data.SafeRadius {
			return true
		}
	}
	return false
}

// SafePositions перечисляет квадрат каждой колонны, обрезанный по сетке.
// Пересечения квадратов НЕ схлопываются - вызывающий дедуплицирует сам (см. Mechanic.SafeSet).
func (g *pillarGeometry) SafePositions() []domain.Position {
	var cells []domain.Position
	for _, pillar := range g.data.Pillars {
		cells = append(cells, g.grid.Square(pillar, g.data.SafeRadius)...)
	}
	return cells
}

func (g *pillarGeometry) Data() any {
	data := g.data
	data.Pillars = copyPositions(g.data.Pillars)
	return data
}

// PillarsOf возвращает колонны текущей фазы, если механика - фаза колонн с построенной геометрией.
func PillarsOf(m *Mechanic) []domain.Position {
	data, ok := m.GetData().Data.(PillarPhaseData)
	if !ok {
		return nil
	}
	return data.Pillars
}
