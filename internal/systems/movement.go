package systems

import (
	"raid-server/internal/domain"
)

// MovementResult - результат вычисления движения
type MovementResult struct {
	NewPos   domain.Position
	HasMoved bool
	IsEdge   bool // Шаг за пределы арены
}

// CalculateMove вычисляет новую позицию. Не меняет состояние боя!
// Игроки могут стоять в одной клетке: механики бьют по площади, тела не блокируют.
func CalculateMove(p *domain.Player, dx, dy int, grid domain.Grid) MovementResult {
	targetPos := p.Pos.Shift(dx, dy)

	res := MovementResult{NewPos: targetPos}

	if !grid.Contains(targetPos) {
		res.NewPos = p.Pos
		res.IsEdge = true
		return res
	}

	res.HasMoved = targetPos != p.Pos
	return res
}
