package domain

import "strings"

// EventType - Внутренний числовой идентификатор события боя
type EventType uint8

const (
	EventUnknown EventType = iota
	EventMechanicWarning
	EventMechanicStarted
	EventMechanicResolved
	EventPlayerHit
	EventPlayerDied
)

// Маппинг для конвертации JSON -> Domain
var eventStringToType = map[string]EventType{
	"MECHANIC_WARNING":  EventMechanicWarning,
	"MECHANIC_STARTED":  EventMechanicStarted,
	"MECHANIC_RESOLVED": EventMechanicResolved,
	"PLAYER_HIT":        EventPlayerHit,
	"PLAYER_DIED":       EventPlayerDied,
}

// Маппинг для логов Domain -> String
var eventTypeToString = map[EventType]string{
	EventMechanicWarning:  "MECHANIC_WARNING",
	EventMechanicStarted:  "MECHANIC_STARTED",
	EventMechanicResolved: "MECHANIC_RESOLVED",
	EventPlayerHit:        "PLAYER_HIT",
	EventPlayerDied:       "PLAYER_DIED",
}

// ParseEvent конвертирует строку из JSON в EventType
func ParseEvent(s string) EventType {
	if val, ok := eventStringToType[strings.ToUpper(s)]; ok {
		return val
	}
	return EventUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (e EventType) String() string {
	if val, ok := eventTypeToString[e]; ok {
		return val
	}
	return "UNKNOWN"
}
