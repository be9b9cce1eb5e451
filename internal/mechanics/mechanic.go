package mechanics

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"raid-server/internal/domain"
	"raid-server/pkg/logger"
)

// ErrOutOfBounds - запрос позиции вне сетки. Значит, состояние игрока где-то выше уже сломано.
var ErrOutOfBounds = errors.New("position out of grid bounds")

// Clock - источник времени (подменяется в тестах).
type Clock func() time.Time

// phase - неизменяемое состояние механики. Публикуется одной атомарной записью,
// поэтому читатель никогда не увидит наполовину обновленную геометрию.
type phase struct {
	state      domain.MechanicState
	geometry   Geometry
	warnedAt   time.Time
	startedAt  time.Time
	resolvedAt time.Time
}

func (p *phase) executing() bool {
	return p.state == domain.MechanicExecuting && p.geometry != nil
}

// Mechanic - универсальный исполнитель механики босса.
// Вариант задается стратегией HazardGeometry и строкой таблицы Definition.
type Mechanic struct {
	def    Definition
	grid   domain.Grid
	hazard HazardGeometry
	clock  Clock

	mu  sync.Mutex // сериализует переходы стадий
	rng *rand.Rand // используется только под mu

	current atomic.Pointer[phase]
}

// Option настраивает Mechanic при создании.
type Option func(*Mechanic)

// WithClock подменяет источник времени.
func WithClock(c Clock) Option {
	return func(m *Mechanic) { m.clock = c }
}

// WithRand задает генератор для случайной геометрии.
func WithRand(rng *rand.Rand) Option {
	return func(m *Mechanic) { m.rng = rng }
}

// New создает механику в стадии Inactive. Размер сетки передается явно.
func New(def Definition, grid domain.Grid, hazard HazardGeometry, opts ...Option) *Mechanic {
	m := &Mechanic{
		def:    def,
		grid:   grid,
		hazard: hazard,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.current.Store(&phase{state: domain.MechanicInactive})
	return m
}

func (m *Mechanic) ID() string             { return m.def.ID }
func (m *Mechanic) Definition() Definition { return m.def }
func (m *Mechanic) Grid() domain.Grid      { return m.grid }

// State возвращает текущую стадию.
func (m *Mechanic) State() domain.MechanicState {
	return m.current.Load().state
}

// IsExecuting - true строго в стадии Executing.
func (m *Mechanic) IsExecuting() bool {
	return m.current.Load().executing()
}

func (m *Mechanic) log() *logrus.Entry {
	return logger.Log.WithField("mechanic", m.def.ID)
}

// Warn переводит механику в стадию Warning и сразу строит геометрию,
// чтобы предупреждение могло показать опасные клетки. Урон в этой стадии не засчитывается.
func (m *Mechanic) Warn() domain.MechanicResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current.Load()
	if prev.state == domain.MechanicWarning || prev.state == domain.MechanicExecuting {
		return m.reject(prev.state)
	}

	next := &phase{
		state:    domain.MechanicWarning,
		geometry: m.hazard.Build(m.grid, m.def, m.rng),
		warnedAt: m.clock(),
	}
	m.current.Store(next)

	m.log().WithField("warning_ms", m.def.WarningMs).Info("Mechanic warning")
	return domain.MechanicResult{
		MechanicID:        m.def.ID,
		Success:           true,
		Message:           m.GetWarningMessage(),
		AffectedPositions: m.unsafeCells(next.geometry),
	}
}

// Activate переводит механику в Executing и фиксирует startedAt.
// Из Warning используется уже построенная геометрия, иначе строится новая.
// Повторная активация во время Executing ничего не меняет и возвращает Success=false.
func (m *Mechanic) Activate() domain.MechanicResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current.Load()
	if prev.state == domain.MechanicExecuting {
		return m.reject(prev.state)
	}

	next := &phase{
		state:     domain.MechanicExecuting,
		geometry:  prev.geometry,
		warnedAt:  prev.warnedAt,
		startedAt: m.clock(),
	}
	if prev.state != domain.MechanicWarning || next.geometry == nil {
		next.geometry = m.hazard.Build(m.grid, m.def, m.rng)
		next.warnedAt = time.Time{}
	}
	m.current.Store(next)

	affected := m.unsafeCells(next.geometry)
	m.log().WithFields(logrus.Fields{
		"from":        prev.state.String(),
		"affected":    len(affected),
		"duration_ms": m.def.DurationMs,
	}).Info("Mechanic activated")

	return domain.MechanicResult{
		MechanicID:        m.def.ID,
		Success:           true,
		Message:           m.activationMessage(),
		AffectedPositions: affected,
	}
}

// Deactivate завершает механику и отпускает геометрию. Executing -> Resolved.
// Снятое предупреждение (Warning) возвращает механику в Inactive: Resolved без Executing не бывает.
// Безопасен в любой момент: таймеров механика не держит.
func (m *Mechanic) Deactivate() domain.MechanicResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current.Load()
	switch prev.state {
	case domain.MechanicWarning:
		m.current.Store(&phase{state: domain.MechanicInactive})
		m.log().Info("Mechanic warning cancelled")
		return domain.MechanicResult{
			MechanicID: m.def.ID,
			Success:    true,
			Message:    fmt.Sprintf("%s was called off.", m.def.DisplayName),
		}
	case domain.MechanicExecuting:
	default:
		return domain.MechanicResult{
			MechanicID: m.def.ID,
			Message:    fmt.Sprintf("%s is not active.", m.def.DisplayName),
		}
	}

	m.current.Store(&phase{
		state:      domain.MechanicResolved,
		warnedAt:   prev.warnedAt,
		startedAt:  prev.startedAt,
		resolvedAt: m.clock(),
	})

	m.log().WithField("from", prev.state.String()).Info("Mechanic resolved")
	return domain.MechanicResult{
		MechanicID: m.def.ID,
		Success:    true,
		Message:    fmt.Sprintf("%s is over.", m.def.DisplayName),
	}
}

// Reset возвращает механику в Inactive для следующего появления.
func (m *Mechanic) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Store(&phase{state: domain.MechanicInactive})
}

func (m *Mechanic) reject(state domain.MechanicState) domain.MechanicResult {
	m.log().WithField("state", state.String()).Debug("Mechanic transition rejected")
	return domain.MechanicResult{
		MechanicID: m.def.ID,
		Message:    fmt.Sprintf("%s is already in progress (%s).", m.def.DisplayName, state),
	}
}

// --- ЗАПРОСЫ (без блокировок) ---

// CheckPlayerPosition: true = безопасно. Вне Executing механика безопасна всегда.
// Во время Executing клетка вне сетки считается опасной.
func (m *Mechanic) CheckPlayerPosition(pos domain.Position) bool {
	return m.checkAgainst(m.current.Load(), pos)
}

// JudgePosition отвечает так же, как CheckPlayerPosition, но сообщает о позиции вне сетки ошибкой.
func (m *Mechanic) JudgePosition(pos domain.Position) (bool, error) {
	ph := m.current.Load()
	safe := m.checkAgainst(ph, pos)
	if !m.grid.Contains(pos) {
		return safe, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.X, pos.Y)
	}
	return safe, nil
}

func (m *Mechanic) checkAgainst(ph *phase, pos domain.Position) bool {
	if !ph.executing() {
		return true
	}
	if !m.grid.Contains(pos) {
		return false
	}
	return ph.geometry.IsSafe(pos)
}

// GetAffectedPositions перебирает всю сетку. Это производное представление, а не кэш:
// оно всегда согласовано с текущей геометрией.
func (m *Mechanic) GetAffectedPositions() []domain.Position {
	ph := m.current.Load()
	affected := make([]domain.Position, 0)
	for _, c := range m.grid.Cells() {
		if !m.checkAgainst(ph, c) {
			affected = append(affected, c)
		}
	}
	return affected
}

// GetSafePositions возвращает безопасные клетки варианта (в Warning и Executing).
// Повторы сохраняются; для множества есть SafeSet.
func (m *Mechanic) GetSafePositions() []domain.Position {
	ph := m.current.Load()
	if ph.geometry == nil {
		return nil
	}
	return ph.geometry.SafePositions()
}

// SafeSet - дедуплицированные безопасные клетки.
func (m *Mechanic) SafeSet() mapset.Set[domain.Position] {
	set := mapset.New[domain.Position]()
	for _, p := range m.GetSafePositions() {
		set.Put(p)
	}
	return set
}

// GetWarningMessage - текст предупреждения перед активацией.
func (m *Mechanic) GetWarningMessage() string {
	return m.def.WarningMessage()
}

func (m *Mechanic) activationMessage() string {
	if m.def.Description == "" {
		return fmt.Sprintf("%s has begun!", m.def.DisplayName)
	}
	return fmt.Sprintf("%s! %s", m.def.DisplayName, m.def.Description)
}

// PreviewAffected - клетки, опасные по текущей геометрии, без учета стадии.
// В Warning это то, что ударит при активации. Без геометрии - nil.
func (m *Mechanic) PreviewAffected() []domain.Position {
	ph := m.current.Load()
	if ph.geometry == nil {
		return nil
	}
	return m.unsafeCells(ph.geometry)
}

// unsafeCells - опасные клетки геометрии без учета стадии.
func (m *Mechanic) unsafeCells(g Geometry) []domain.Position {
	cells := make([]domain.Position, 0)
	for _, c := range m.grid.Cells() {
		if !g.IsSafe(c) {
			cells = append(cells, c)
		}
	}
	return cells
}

// --- ТАЙМЕРЫ ---

// StartedAt - момент входа в Executing (нулевое время, если механика не запускалась).
func (m *Mechanic) StartedAt() time.Time {
	return m.current.Load().startedAt
}

// Elapsed - сколько механика уже исполняется.
func (m *Mechanic) Elapsed(now time.Time) time.Duration {
	ph := m.current.Load()
	if ph.state != domain.MechanicExecuting {
		return 0
	}
	return now.Sub(ph.startedAt)
}

// Remaining - сколько осталось до конца Executing.
func (m *Mechanic) Remaining(now time.Time) time.Duration {
	ph := m.current.Load()
	if ph.state != domain.MechanicExecuting {
		return 0
	}
	left := m.def.Duration() - now.Sub(ph.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired - окно механики истекло, оркестратор должен ее завершить.
func (m *Mechanic) Expired(now time.Time) bool {
	ph := m.current.Load()
	return ph.state == domain.MechanicExecuting && now.Sub(ph.startedAt) >= m.def.Duration()
}

// WarningOver - предупреждение отыграло, пора активировать.
func (m *Mechanic) WarningOver(now time.Time) bool {
	ph := m.current.Load()
	return ph.state == domain.MechanicWarning && now.Sub(ph.warnedAt) >= m.def.WarningDuration()
}

// Deadline - следующий момент, когда механике нужно внимание оркестратора.
func (m *Mechanic) Deadline() (time.Time, bool) {
	ph := m.current.Load()
	switch ph.state {
	case domain.MechanicWarning:
		return ph.warnedAt.Add(m.def.WarningDuration()), true
	case domain.MechanicExecuting:
		return ph.startedAt.Add(m.def.Duration()), true
	default:
		return time.Time{}, false
	}
}

// --- СНИМОК ---

// Snapshot - копия состояния механики только для чтения.
type Snapshot struct {
	ID          string               `json:"id"`
	DisplayName string               `json:"displayName"`
	State       domain.MechanicState `json:"state"`
	DurationMs  int                  `json:"durationMs"`
	WarningMs   int                  `json:"warningMs"`
	Weight      int                  `json:"weight"`
	WarnedAt    time.Time            `json:"warnedAt,omitempty"`
	StartedAt   time.Time            `json:"startedAt,omitempty"`
	ResolvedAt  time.Time            `json:"resolvedAt,omitempty"`
	Data        any                  `json:"data,omitempty"`
}

// GetData возвращает снимок. Data - копия данных варианта, а не живой объект.
func (m *Mechanic) GetData() Snapshot {
	ph := m.current.Load()
	snap := Snapshot{
		ID:          m.def.ID,
		DisplayName: m.def.DisplayName,
		State:       ph.state,
		DurationMs:  m.def.DurationMs,
		WarningMs:   m.def.WarningMs,
		Weight:      m.def.Weight,
		WarnedAt:    ph.warnedAt,
		StartedAt:   ph.startedAt,
		ResolvedAt:  ph.resolvedAt,
	}
	if ph.geometry != nil {
		snap.Data = ph.geometry.Data()
	}
	return snap
}
