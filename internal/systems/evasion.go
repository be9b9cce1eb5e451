package systems

import (
	"raid-server/internal/domain"

	"github.com/zyedidia/generic/mapset"
)

// ComputeEvasion решает, куда шагнуть, чтобы выйти из-под механики.
// Возвращает MOVE с шагом или WAIT, если игрок уже в безопасности или бежать некуда.
func ComputeEvasion(pos domain.Position, grid domain.Grid, safe mapset.Set[domain.Position]) (action domain.ActionType, dx, dy int) {
	if safe.Size() == 0 || safe.Has(pos) {
		return domain.ActionWait, 0, 0
	}

	target, ok := NearestSafe(pos, grid, safe)
	if !ok {
		return domain.ActionWait, 0, 0
	}

	dx, dy = StepToward(pos, target)
	if dx == 0 && dy == 0 {
		return domain.ActionWait, 0, 0
	}
	return domain.ActionMove, dx, dy
}

// NearestSafe ищет ближайшую (по Чебышеву) безопасную клетку сетки.
// При равенстве побеждает первая клетка в построчном порядке.
func NearestSafe(from domain.Position, grid domain.Grid, safe mapset.Set[domain.Position]) (domain.Position, bool) {
	best := domain.Position{}
	bestDist := -1

	for _, c := range grid.Cells() {
		if !safe.Has(c) {
			continue
		}
		d := from.ChebyshevTo(c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist >= 0
}

// StepToward - один шаг (в том числе по диагонали) в сторону цели.
func StepToward(from, to domain.Position) (int, int) {
	return sign(to.X - from.X), sign(to.Y - from.Y)
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}
