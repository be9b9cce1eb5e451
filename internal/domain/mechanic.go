package domain

// MechanicState - стадия жизненного цикла механики.
// Переходы только вперед (Inactive -> Warning -> Executing -> Resolved) или сброс в Inactive.
type MechanicState uint8

const (
	MechanicInactive MechanicState = iota
	MechanicWarning
	MechanicExecuting
	MechanicResolved
)

var mechanicStateToString = map[MechanicState]string{
	MechanicInactive:  "INACTIVE",
	MechanicWarning:   "WARNING",
	MechanicExecuting: "EXECUTING",
	MechanicResolved:  "RESOLVED",
}

// String реализует интерфейс Stringer (для логов и DTO)
func (s MechanicState) String() string {
	if val, ok := mechanicStateToString[s]; ok {
		return val
	}
	return "UNKNOWN"
}

// MechanicResult - результат активации или запроса к механике.
// Не хранится, создается заново на каждый вызов.
type MechanicResult struct {
	MechanicID        string     `json:"mechanicId"`
	Success           bool       `json:"success"`
	Message           string     `json:"message"`
	AffectedPositions []Position `json:"affectedPositions,omitempty"`
}

// MarshalText сериализует стадию строкой ("EXECUTING"), а не числом.
func (s MechanicState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
