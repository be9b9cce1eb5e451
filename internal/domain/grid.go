package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidGrid - размеры арены меньше минимально допустимых.
var ErrInvalidGrid = errors.New("invalid grid dimensions")

// Grid - неявная прямоугольная область. Состояние клеток не хранится,
// опасность вычисляется по запросу из геометрии механики.
type Grid struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// NewGrid проверяет размеры и создает сетку.
func NewGrid(width, height int) (Grid, error) {
	if width < MinGridSide || height < MinGridSide {
		return Grid{}, fmt.Errorf("%w: %dx%d (min %d)", ErrInvalidGrid, width, height, MinGridSide)
	}
	return Grid{Width: width, Height: height}, nil
}

// DefaultGrid возвращает арену стандартного размера.
func DefaultGrid() Grid {
	return Grid{Width: GridWidth, Height: GridHeight}
}

// Contains проверяет, лежит ли позиция внутри сетки.
func (g Grid) Contains(p Position) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Index возвращает линейный индекс клетки. Ключ: Y * Width + X
func (g Grid) Index(p Position) int {
	return p.Y*g.Width + p.X
}

// Size - количество клеток.
func (g Grid) Size() int {
	return g.Width * g.Height
}

// Cells перечисляет все клетки построчно.
func (g Grid) Cells() []Position {
	cells := make([]Position, 0, g.Size())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			cells = append(cells, Position{X: x, Y: y})
		}
	}
	return cells
}

// Corners возвращает четыре угла: (0,0), (W-1,0), (0,H-1), (W-1,H-1).
func (g Grid) Corners() [4]Position {
	return [4]Position{
		{X: 0, Y: 0},
		{X: g.Width - 1, Y: 0},
		{X: 0, Y: g.Height - 1},
		{X: g.Width - 1, Y: g.Height - 1},
	}
}

// Center возвращает центральную клетку (при четном размере - левую верхнюю из центральных).
func (g Grid) Center() Position {
	return Position{X: (g.Width - 1) / 2, Y: (g.Height - 1) / 2}
}

// Clamp прижимает позицию к границам сетки.
func (g Grid) Clamp(p Position) Position {
	return Position{X: clamp(p.X, 0, g.Width-1), Y: clamp(p.Y, 0, g.Height-1)}
}

// Square возвращает клетки квадрата [c-r, c+r] x [c-r, c+r], пересеченного с сеткой.
func (g Grid) Square(center Position, radius int) []Position {
	if radius < 0 {
		return nil
	}
	minX, maxX := max(center.X-radius, 0), min(center.X+radius, g.Width-1)
	minY, maxY := max(center.Y-radius, 0), min(center.Y+radius, g.Height-1)
	if minX > maxX || minY > maxY {
		return nil
	}

	cells := make([]Position, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			cells = append(cells, Position{X: x, Y: y})
		}
	}
	return cells
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
