package mechanics

import (
	"math/rand"

	"raid-server/internal/domain"
)

// Параметры ударной волны
const (
	ParamInnerRadius = "inner_radius"
	ParamOuterRadius = "outer_radius"

	DefaultShockwaveInnerRadius = 2
	DefaultShockwaveOuterRadius = 3
)

// ShockwaveData - кольцо вокруг босса (центр арены).
type ShockwaveData struct {
	Origin      domain.Position `json:"origin"`
	InnerRadius int             `json:"innerRadius"`
	OuterRadius int             `json:"outerRadius"`
}

type shockwaveGeometry struct {
	grid domain.Grid
	data ShockwaveData
}

func buildShockwave(grid domain.Grid, def Definition, _ *rand.Rand) Geometry {
	return &shockwaveGeometry{
		grid: grid,
		data: ShockwaveData{
			Origin:      grid.Center(),
			InnerRadius: def.Params.Int(ParamInnerRadius, DefaultShockwaveInnerRadius),
			OuterRadius: def.Params.Int(ParamOuterRadius, DefaultShockwaveOuterRadius),
		},
	}
}

// IsSafe: опасно в кольце InnerRadius <= d <= OuterRadius.
func (g *shockwaveGeometry) IsSafe(p domain.Position) bool {
	d := p.ChebyshevTo(g.data.Origin)
	return d < g.data.InnerRadius || d > g.data.OuterRadius
}

func (g *shockwaveGeometry) SafePositions() []domain.Position {
	return filterCells(g.grid, g.IsSafe)
}

func (g *shockwaveGeometry) Data() any {
	return g.data
}
