package mechanics

import (
	"math/rand"
	"sort"

	"raid-server/internal/domain"
)

// Параметры лавовой волны
const (
	ParamSafeLanes = "safe_lanes"
	ParamLaneWidth = "lane_width"

	DefaultLavaSafeLanes = 2
	DefaultLavaLaneWidth = 1
)

// Направление волны
const (
	LavaAxisRows    = "rows"
	LavaAxisColumns = "columns"
)

// LavaWaveData - ось затопления и уцелевшие полосы.
// Полоса k покрывает координаты [k, k+LaneWidth-1] по выбранной оси.
type LavaWaveData struct {
	Axis      string `json:"axis"`
	SafeLanes []int  `json:"safeLanes"`
	LaneWidth int    `json:"laneWidth"`
}

type lavaGeometry struct {
	grid domain.Grid
	data LavaWaveData
}

func buildLavaWave(grid domain.Grid, def Definition, rng *rand.Rand) Geometry {
	axis, span := LavaAxisRows, grid.Height
	if rng.Intn(2) == 1 {
		axis, span = LavaAxisColumns, grid.Width
	}

	lanes := def.Params.Int(ParamSafeLanes, DefaultLavaSafeLanes)
	if lanes > span {
		lanes = span
	}
	if lanes < 0 {
		lanes = 0
	}
	width := def.Params.Int(ParamLaneWidth, DefaultLavaLaneWidth)
	if width < 1 {
		width = 1
	}

	safe := append([]int(nil), rng.Perm(span)[:lanes]...)
	sort.Ints(safe)

	return &lavaGeometry{
		grid: grid,
		data: LavaWaveData{Axis: axis, SafeLanes: safe, LaneWidth: width},
	}
}

// IsSafe: безопасно только внутри уцелевших полос.
func (g *lavaGeometry) IsSafe(p domain.Position) bool {
	coord := p.Y
	if g.data.Axis == LavaAxisColumns {
		coord = p.X
	}
	for _, lane := range g.data.SafeLanes {
		if coord >= lane && coord < lane+g.data.LaneWidth {
			return true
		}
	}
	return false
}

func (g *lavaGeometry) SafePositions() []domain.Position {
	return filterCells(g.grid, g.IsSafe)
}

func (g *lavaGeometry) Data() any {
	data := g.data
	data.SafeLanes = append([]int(nil), g.data.SafeLanes...)
	return data
}
