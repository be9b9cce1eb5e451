package mechanics

import (
	"math/rand"

	"raid-server/internal/domain"
)

// Geometry - неизменяемый снимок опасной зоны одной активации.
// Строится целиком до публикации и больше не меняется,
// поэтому читается из любых горутин без блокировок.
type Geometry interface {
	// IsSafe - предикат выживания для клетки внутри сетки.
	IsSafe(p domain.Position) bool
	// SafePositions перечисляет безопасные клетки так, как их видит вариант.
	// Повторы не удаляются: пересекающиеся зоны дают дубликаты.
	SafePositions() []domain.Position
	// Data возвращает копию параметров варианта (для телеметрии и рендера).
	Data() any
}

// HazardGeometry - стратегия построения опасной зоны для конкретного варианта механики.
type HazardGeometry interface {
	Build(grid domain.Grid, def Definition, rng *rand.Rand) Geometry
}

// GeometryFunc позволяет использовать обычную функцию как HazardGeometry.
type GeometryFunc func(grid domain.Grid, def Definition, rng *rand.Rand) Geometry

func (f GeometryFunc) Build(grid domain.Grid, def Definition, rng *rand.Rand) Geometry {
	return f(grid, def, rng)
}

// Registry связывает ID механики с ее геометрией.
// Новая механика - это строка в таблице плюс запись здесь.
type Registry map[string]HazardGeometry

// DefaultRegistry возвращает встроенные варианты.
func DefaultRegistry() Registry {
	return Registry{
		PillarPhaseID:  GeometryFunc(buildPillarPhase),
		MeteorStrikeID: GeometryFunc(buildMeteorStrike),
		LavaWaveID:     GeometryFunc(buildLavaWave),
		ShockwaveID:    GeometryFunc(buildShockwave),
	}
}

// Lookup ищет геометрию по ID.
func (r Registry) Lookup(id string) (HazardGeometry, bool) {
	g, ok := r[id]
	return g, ok
}

// filterCells возвращает клетки сетки, для которых keep == true.
func filterCells(grid domain.Grid, keep func(domain.Position) bool) []domain.Position {
	var cells []domain.Position
	for _, c := range grid.Cells() {
		if keep(c) {
			cells = append(cells, c)
		}
	}
	return cells
}

func copyPositions(src []domain.Position) []domain.Position {
	if src == nil {
		return nil
	}
	dst := make([]domain.Position, len(src))
	copy(dst, src)
	return dst
}
