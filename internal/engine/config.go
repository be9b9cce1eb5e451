package engine

import (
	"time"

	"raid-server/internal/domain"
	"raid-server/internal/mechanics"
)

// DefaultCooldown - пауза между механиками босса.
const DefaultCooldown = 2 * time.Second

// DefaultSessionID - бой, в который попадают клиенты без явного выбора.
const DefaultSessionID = "raid-1"

// Config хранит параметры запуска движка
type Config struct {
	// Seed - мастер-зерно. От него зависят все бои.
	// Seed боя = Seed ^ hash(SessionID)
	Seed int64

	Grid     domain.Grid
	Table    mechanics.Table
	Registry mechanics.Registry

	// Cooldown - пауза после завершения механики до следующего предупреждения.
	Cooldown time.Duration

	Clock mechanics.Clock
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return Config{
		Seed:     time.Now().UnixNano(),
		Grid:     domain.DefaultGrid(),
		Table:    mechanics.DefaultTable(),
		Registry: mechanics.DefaultRegistry(),
		Cooldown: DefaultCooldown,
		Clock:    time.Now,
	}
}
