package domain

import "encoding/json"

// JournalRecord - одно событие боя (старт/завершение механики, урон, смерть)
type JournalRecord struct {
	AtMs       int64           `json:"atMs"` // Смещение от начала боя
	Event      EventType       `json:"event"`
	MechanicID string          `json:"mechanicId"`
	PlayerID   string          `json:"playerId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// EncounterJournal - полная запись боя
type EncounterJournal struct {
	SessionID string          `json:"sessionId"`
	Seed      int64           `json:"seed"` // Зерно выбора механик и их геометрии
	Timestamp int64           `json:"timestamp"`
	Grid      Grid            `json:"grid"`
	Records   []JournalRecord `json:"records"`
}
