package handlers

import (
	"encoding/json"

	"raid-server/internal/domain"
)

// Context передает хендлеру состояние боя.
// Мы передаем ссылки, чтобы хендлер мог менять состояние (мутировать данные).
type Context struct {
	Grid    domain.Grid
	Players []*domain.Player // Все участники боя
	Actor   *domain.Player   // Тот, кто выполняет команду
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет в логи сессии напрямую, он возвращает данные.
type Result struct {
	Msg     string // Текст лога
	MsgType string // Тип лога (INFO, COMBAT, ERROR)
	Private bool   // Лог только для самого актора

	// Moved - актор сменил клетку, сессия должна пересудить его позицию.
	Moved bool
}

// HandlerFunc - это контракт для любой команды (MOVE, WAIT, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}
