package domain

// Position - клетка сетки. Значимый тип, равенство по координатам.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ChebyshevTo возвращает расстояние Чебышёва: max(|dx|, |dy|).
// Соседние клетки (включая диагональ) находятся на расстоянии 1.
func (p Position) ChebyshevTo(other Position) int {
	dx := abs(p.X - other.X)
	dy := abs(p.Y - other.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// Shift возвращает новую позицию со смещением, не меняя текущую.
func (p Position) Shift(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
