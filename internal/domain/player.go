package domain

// Player - участник боя. Сервер авторитетен над его позицией и здоровьем.
type Player struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Pos    Position `json:"pos"`
	HP     int      `json:"hp"`
	MaxHP  int      `json:"maxHp"`
	IsDead bool     `json:"isDead"`
}

// NewPlayer создает игрока с полным здоровьем.
func NewPlayer(id, name string, pos Position) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Pos:   pos,
		HP:    PlayerMaxHP,
		MaxHP: PlayerMaxHP,
	}
}

// TakeDamage наносит урон. Возвращает true, если игрок погиб от этого удара.
func (p *Player) TakeDamage(amount int) bool {
	if p.IsDead {
		return false
	}
	if amount < 0 {
		amount = 0
	}

	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		p.IsDead = true
		return true
	}
	return false
}
