package api

import (
	"encoding/json"
)

// Типы сообщений сервер -> клиент.
const (
	MsgState            = "STATE"
	MsgMechanicWarning  = "MECHANIC_WARNING"
	MsgMechanicStarted  = "MECHANIC_STARTED"
	MsgMechanicResolved = "MECHANIC_RESOLVED"
	MsgPlayerHit        = "PLAYER_HIT"
	MsgPlayerDied       = "PLAYER_DIED"
	MsgError            = "ERROR"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// ServerMessage это корневой объект, который сервер отправляет клиенту.
// Снимок арены плюс, если есть, состояние текущей механики босса.
type ServerMessage struct {
	// Type один из Msg* выше.
	Type string `json:"type"`

	// SessionID идентификатор боя.
	SessionID string `json:"sessionId"`

	// TimestampMs серверное время отправки (Unix milliseconds).
	TimestampMs int64 `json:"timestampMs"`

	// MyPlayerID ID игрока, которым управляет данный клиент.
	MyPlayerID string `json:"myPlayerId,omitempty"`

	// Grid метаданные о размере арены.
	Grid *GridMeta `json:"grid,omitempty"`

	// Players все участники боя, включая погибших.
	Players []PlayerView `json:"players,omitempty"`

	// Mechanic активная механика. Отсутствует, если босс ничего не кастует.
	Mechanic *MechanicView `json:"mechanic,omitempty"`

	// Logs новые сообщения с прошлой рассылки.
	Logs []LogEntry `json:"logs,omitempty"`
}

// GridMeta содержит размеры арены, чтобы клиент знал,
// какую сетку для рендеринга нужно подготовить.
type GridMeta struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// PositionView - клетка арены.
type PositionView struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PlayerView это DTO для участника боя.
type PlayerView struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Pos    PositionView `json:"pos"`
	HP     int          `json:"hp"`
	MaxHP  int          `json:"maxHp"`
	IsDead bool         `json:"isDead"`
}

// MechanicView описывает механику так, как ее видит клиент.
// Affected и Safe заполняются только в фазах WARNING и EXECUTING.
type MechanicView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	State       string         `json:"state"`
	Message     string         `json:"message,omitempty"`
	Affected    []PositionView `json:"affected,omitempty"`
	Safe        []PositionView `json:"safe,omitempty"`
	DurationMs  int            `json:"durationMs"`
	RemainingMs int64          `json:"remainingMs"`

	// Survivors и Casualties заполняются в MECHANIC_RESOLVED.
	Survivors  []string `json:"survivors,omitempty"`
	Casualties []string `json:"casualties,omitempty"`

	// Data сырые данные геометрии (позиции столбов, точки падения и т.п.).
	Data any `json:"data,omitempty"`
}

// LogEntry представляет одну запись в боевом логе.
type LogEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`      // INFO, WARNING, COMBAT, ERROR
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Token ID игрока для переподключения.
	// Читается только из первого сообщения (INIT), дальше ID берется из соединения.
	Token string `json:"token,omitempty"`

	// Action название действия: INIT, MOVE, WAIT.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// DirectionPayload используется для MOVE.
type DirectionPayload struct {
	Dx int `json:"dx"` // Смещение по X (-1, 0, 1)
	Dy int `json:"dy"` // Смещение по Y (-1, 0, 1)
}

// JoinPayload - данные первого сообщения INIT. Оба поля необязательны.
type JoinPayload struct {
	Name    string `json:"name,omitempty"`
	Session string `json:"session,omitempty"` // Бой; пустой - бой по умолчанию
}
