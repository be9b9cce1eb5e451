package arena

import (
	"raid-server/internal/domain"
)

// CreatePlayer создает рейдера с полным здоровьем.
// Пустое имя заменяется коротким префиксом ID.
func CreatePlayer(id, name string, pos domain.Position) *domain.Player {
	if name == "" {
		short := id
		if len(short) > 4 {
			short = short[:4] // Берем первые 4 символа ID для краткости
		}
		name = "Рейдер " + short
	}
	return domain.NewPlayer(id, name, pos)
}
