package arena

import (
	"math/rand"

	"raid-server/internal/domain"
)

// Builder расставляет участников боя по арене.
// Стартовые клетки уникальны, пока на сетке есть свободное место.
type Builder struct {
	grid     domain.Grid
	rng      *rand.Rand
	occupied map[domain.Position]bool
	players  []*domain.Player
}

// NewArena создает builder для сетки.
func NewArena(grid domain.Grid, rng *rand.Rand) *Builder {
	return &Builder{
		grid:     grid,
		rng:      rng,
		occupied: make(map[domain.Position]bool),
		players:  make([]*domain.Player, 0),
	}
}

// Occupy помечает клетку как занятую (уже стоящий игрок).
func (b *Builder) Occupy(pos domain.Position) *Builder {
	if b.grid.Contains(pos) {
		b.occupied[pos] = true
	}
	return b
}

// SpawnPlayer добавляет игрока на свободную клетку.
func (b *Builder) SpawnPlayer(id, name string) *Builder {
	pos := b.nextSpawn()
	b.occupied[pos] = true
	b.players = append(b.players, CreatePlayer(id, name, pos))
	return b
}

// Build возвращает расставленных игроков в порядке добавления.
func (b *Builder) Build() []*domain.Player {
	return b.players
}

// nextSpawn: сначала случайная свободная клетка, при полной сетке - центр.
func (b *Builder) nextSpawn() domain.Position {
	cells := b.grid.Cells()
	for _, i := range b.rng.Perm(len(cells)) {
		if !b.occupied[cells[i]] {
			return cells[i]
		}
	}
	return b.grid.Center()
}
