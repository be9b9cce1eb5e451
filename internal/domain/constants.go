package domain

// Размер арены. Общий контракт сервера и клиента:
// начало координат в левом верхнем углу, X вправо, Y вниз.
const (
	GridWidth  = 8
	GridHeight = 8
)

// Минимальная арена, на которой у каждого угла есть своя клетка.
const MinGridSide = 2

// Параметры игрока по умолчанию
const (
	PlayerMaxHP = 100
)

// Типы записей в логе (чате)
const (
	LogTypeInfo    = "INFO"
	LogTypeWarning = "WARNING"
	LogTypeCombat  = "COMBAT"
	LogTypeError   = "ERROR"
)
