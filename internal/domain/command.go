package domain

import "encoding/json"

// InternalCommand - оптимизированная команда для движка.
// Использует ActionType вместо string.
type InternalCommand struct {
	Action    ActionType      // Число! Быстро и безопасно.
	SessionID string          // Бой, в котором находится игрок
	PlayerID  string          // Кто шлет команду
	Payload   json.RawMessage // Сырые данные (парсятся хендлером)
}
