package mechanics

import (
	"math/rand"

	"raid-server/internal/domain"
)

// Параметры метеоритного удара
const (
	ParamImpacts     = "impacts"
	ParamBlastRadius = "blast_radius"

	DefaultMeteorImpacts     = 5
	DefaultMeteorBlastRadius = 1
)

// MeteorStrikeData - точки падения и радиус взрыва.
type MeteorStrikeData struct {
	Impacts     []domain.Position `json:"impacts"`
	BlastRadius int               `json:"blastRadius"`
}

type meteorGeometry struct {
	grid domain.Grid
	data MeteorStrikeData
}

// buildMeteorStrike выбирает различные клетки падения случайно.
func buildMeteorStrike(grid domain.Grid, def Definition, rng *rand.Rand) Geometry {
	count := def.Params.Int(ParamImpacts, DefaultMeteorImpacts)
	if count > grid.Size() {
		count = grid.Size()
	}
	if count < 0 {
		count = 0
	}

	cells := grid.Cells()
	impacts := make([]domain.Position, 0, count)
	for _, idx := range rng.Perm(len(cells))[:count] {
		impacts = append(impacts, cells[idx])
	}

	return &meteorGeometry{
		grid: grid,
		data: MeteorStrikeData{
			Impacts:     impacts,
			BlastRadius: def.Params.Int(ParamBlastRadius, DefaultMeteorBlastRadius),
		},
	}
}

// IsSafe: опасно в радиусе взрыва любого метеорита.
func (g *meteorGeometry) IsSafe(p domain.Position) bool {
	for _, impact := range g.data.Impacts {
		if p.ChebyshevTo(impact) <= g.data.BlastRadius {
			return false
		}
	}
	return true
}

func (g *meteorGeometry) SafePositions() []domain.Position {
	return filterCells(g.grid, g.IsSafe)
}

func (g *meteorGeometry) Data() any {
	data := g.data
	data.Impacts = copyPositions(g.data.Impacts)
	return data
}
