package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"raid-server/internal/domain"
	"raid-server/internal/engine/handlers"
	"raid-server/internal/mechanics"
	"raid-server/internal/systems"
	"raid-server/pkg/api"
	"raid-server/pkg/arena"
	"raid-server/pkg/logger"
	"raid-server/pkg/utils"
)

// ErrUnknownPlayer - команда от игрока, которого нет в бою.
var ErrUnknownPlayer = errors.New("player is not in session")

// idleRecheck - как часто смотреть на пустой бой.
const idleRecheck = 1 * time.Second

// Publisher - куда сессия отправляет сообщения игрокам. network.Broadcaster реализует его.
type Publisher interface {
	SendTo(playerID string, msg api.ServerMessage)
	HasSubscriber(playerID string) bool
}

// Session - один бой с боссом: арена, игроки и ротация механик.
// Одновременно исполняется не больше одной механики.
type Session struct {
	ID   string
	Seed int64
	Grid domain.Grid

	mu sync.Mutex

	players map[string]*domain.Player
	order   []string // порядок входа, чтобы рассылка и суд были детерминированы

	mechanics []*mechanics.Mechanic // неизменяем после NewSession
	active    *mechanics.Mechanic
	lastID    string
	hits      mapset.Set[string] // кто уже получил урон за текущую активацию

	nextMechanicAt time.Time
	cooldown       time.Duration

	rng   *rand.Rand
	clock mechanics.Clock
	hub   Publisher

	Logs      []api.LogEntry // Логи с прошлой рассылки
	logSeq    int
	journal   *domain.EncounterJournal
	startedAt time.Time
}

// NewSession собирает бой из таблицы механик. Строки без зарегистрированной геометрии пропускаются.
func NewSession(id string, cfg Config, hub Publisher) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	now := clock()

	seed := cfg.Seed ^ utils.StringToSeed(id)
	rng := rand.New(rand.NewSource(seed))

	s := &Session{
		ID:             id,
		Seed:           seed,
		Grid:           cfg.Grid,
		players:        make(map[string]*domain.Player),
		order:          make([]string, 0),
		hits:           mapset.New[string](),
		nextMechanicAt: now.Add(cfg.Cooldown),
		cooldown:       cfg.Cooldown,
		rng:            rng,
		clock:          clock,
		hub:            hub,
		Logs:           []api.LogEntry{},
		startedAt:      now,
		journal: &domain.EncounterJournal{
			SessionID: id,
			Seed:      seed,
			Timestamp: now.Unix(),
			Grid:      cfg.Grid,
			Records:   make([]domain.JournalRecord, 0),
		},
	}

	for _, def := range cfg.Table.Mechanics {
		hazard, ok := cfg.Registry.Lookup(def.ID)
		if !ok {
			s.log().WithField("mechanic", def.ID).Warn("No geometry registered for mechanic, skipped")
			continue
		}
		// Каждой механике свой генератор, выведенный из зерна боя
		m := mechanics.New(def, cfg.Grid, hazard,
			mechanics.WithClock(clock),
			mechanics.WithRand(rand.New(rand.NewSource(rng.Int63()))),
		)
		s.mechanics = append(s.mechanics, m)
	}

	s.log().WithFields(logrus.Fields{
		"seed":      seed,
		"mechanics": len(s.mechanics),
		"grid":      fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
	}).Info("Session created")
	return s
}

func (s *Session) log() *logrus.Entry {
	return logger.Session(s.ID)
}

// --- ИГРОКИ ---

// Join добавляет игрока или возвращает уже стоящего в бою (переподключение).
func (s *Session) Join(playerID, name string) *domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[playerID]; ok {
		if name != "" {
			p.Name = name
		}
		return p
	}

	// Стартовая клетка зависит только от боя и ID игрока
	b := arena.NewArena(s.Grid, rand.New(rand.NewSource(s.Seed^utils.StringToSeed(playerID))))
	for _, p := range s.players {
		b.Occupy(p.Pos)
	}
	p := b.SpawnPlayer(playerID, name).Build()[0]

	s.players[playerID] = p
	s.order = append(s.order, playerID)

	s.log().WithFields(logrus.Fields{
		"player_id": playerID,
		"pos":       fmt.Sprintf("%d,%d", p.Pos.X, p.Pos.Y),
	}).Info("Player joined")
	s.addLog(fmt.Sprintf("%s входит на арену.", p.Name), domain.LogTypeInfo)

	// Вошедший посреди механики судится сразу
	s.judge(p, s.clock())
	return p
}

// Leave убирает игрока из боя.
func (s *Session) Leave(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return
	}
	delete(s.players, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.log().WithField("player_id", playerID).Info("Player left")
	s.addLog(fmt.Sprintf("%s покидает арену.", p.Name), domain.LogTypeInfo)
}

// Players возвращает копии игроков в порядке входа.
func (s *Session) Players() []domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.players[id])
	}
	return out
}

func (s *Session) playerList() []*domain.Player {
	out := make([]*domain.Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

func (s *Session) aliveCount() int {
	n := 0
	for _, p := range s.players {
		if !p.IsDead {
			n++
		}
	}
	return n
}

// --- КОМАНДЫ ---

// Execute выполняет хендлер от имени игрока и рассылает новое состояние.
func (s *Session) Execute(handler handlers.HandlerFunc, cmd domain.InternalCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.players[cmd.PlayerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, cmd.PlayerID)
	}

	ctx := handlers.Context{
		Grid:    s.Grid,
		Players: s.playerList(),
		Actor:   actor,
	}

	result, err := handler(ctx, cmd.Payload)
	if err != nil {
		s.log().WithFields(logrus.Fields{
			"player_id": actor.ID,
			"action":    cmd.Action.String(),
		}).WithError(err).Warn("Command rejected")
		s.sendError(actor.ID, err)
		return err
	}

	var private []api.LogEntry
	if result.Msg != "" {
		msgType := result.MsgType
		if msgType == "" {
			msgType = domain.LogTypeInfo
		}
		if result.Private {
			private = append(private, s.newLog(result.Msg, msgType))
		} else {
			s.addLog(result.Msg, msgType)
		}
	}

	if result.Moved {
		s.judge(actor, s.clock())
	}

	s.publishState(actor.ID, private)
	return nil
}

// --- ЦИКЛ МЕХАНИК ---

// Tick продвигает ротацию механик к моменту now и возвращает время следующего тика.
func (s *Session) Tick(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		switch s.active.State() {
		case domain.MechanicWarning:
			if s.active.WarningOver(now) {
				s.start(now)
			}
		case domain.MechanicExecuting:
			if s.active.Expired(now) {
				s.resolve(now, true)
			}
		default:
			s.active = nil
		}
	}

	if s.active == nil && !now.Before(s.nextMechanicAt) && s.aliveCount() > 0 {
		s.begin(now)
	}

	if len(s.Logs) > 0 {
		s.publishState("", nil)
	}
	return s.nextDeadline(now)
}

// PublishState рассылает состояние всем игрокам (после входа или выхода).
func (s *Session) PublishState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishState("", nil)
}

// CancelActive досрочно завершает текущую механику (без финального суда).
func (s *Session) CancelActive() domain.MechanicResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return domain.MechanicResult{Message: "No active mechanic."}
	}
	return s.resolve(s.clock(), false)
}

func (s *Session) nextDeadline(now time.Time) time.Time {
	if s.active != nil {
		if d, ok := s.active.Deadline(); ok {
			return d
		}
	}
	if s.aliveCount() > 0 && s.nextMechanicAt.After(now) {
		return s.nextMechanicAt
	}
	return now.Add(idleRecheck)
}

// pick - взвешенный выбор. Последняя механика не повторяется, если есть из чего выбирать.
func (s *Session) pick() *mechanics.Mechanic {
	weights := make([]int, len(s.mechanics))
	candidates := 0
	for i, m := range s.mechanics {
		if w := m.Definition().Weight; w > 0 {
			weights[i] = w
			candidates++
		}
	}
	if candidates > 1 {
		for i, m := range s.mechanics {
			if m.ID() == s.lastID {
				weights[i] = 0
			}
		}
	}

	idx := utils.WeightedIndex(s.rng, weights)
	if idx < 0 {
		return nil
	}
	return s.mechanics[idx]
}

// begin: Inactive -> Warning (или сразу Executing, если предупреждения нет).
func (s *Session) begin(now time.Time) {
	m := s.pick()
	if m == nil {
		s.log().Debug("No mechanic to pick")
		s.nextMechanicAt = now.Add(s.cooldown)
		return
	}

	m.Reset()
	res := m.Warn()
	if !res.Success {
		s.log().WithField("mechanic", m.ID()).Warn(res.Message)
		s.nextMechanicAt = now.Add(s.cooldown)
		return
	}

	s.active = m
	s.lastID = m.ID()
	s.hits = mapset.New[string]()

	view := s.mechanicView(now, res.Message, res.AffectedPositions)
	s.addLog(res.Message, domain.LogTypeWarning)
	s.record(now, domain.EventMechanicWarning, m.ID(), "", view)
	s.publish(api.MsgMechanicWarning, view)

	if m.Definition().WarningMs <= 0 {
		s.start(now)
	}
}

// start: Warning -> Executing, затем суд над всеми.
func (s *Session) start(now time.Time) {
	m := s.active
	res := m.Activate()
	if !res.Success {
		s.log().WithField("mechanic", m.ID()).Warn(res.Message)
		return
	}

	view := s.mechanicView(now, res.Message, res.AffectedPositions)
	s.addLog(res.Message, domain.LogTypeWarning)
	s.record(now, domain.EventMechanicStarted, m.ID(), "", view)
	s.publish(api.MsgMechanicStarted, view)

	s.judgeAll(now)
}

// resolve: финальный суд (если finalJudge), Deactivate и итог.
func (s *Session) resolve(now time.Time, finalJudge bool) domain.MechanicResult {
	if finalJudge {
		s.judgeAll(now)
	}

	m := s.active
	executed := m.IsExecuting()
	res := m.Deactivate()

	view := s.mechanicView(now, res.Message, nil)
	if executed {
		view.Survivors, view.Casualties = s.outcome()
		s.addLog(fmt.Sprintf("%s: выжили %d, пострадали %d.", m.Definition().DisplayName,
			len(view.Survivors), len(view.Casualties)), domain.LogTypeInfo)
	} else {
		// Отмена до удара: итога нет, клиент только снимает предупреждение
		s.addLog(res.Message, domain.LogTypeInfo)
	}
	s.record(now, domain.EventMechanicResolved, m.ID(), "", view)
	s.publish(api.MsgMechanicResolved, view)

	s.active = nil
	s.nextMechanicAt = now.Add(s.cooldown)
	return res
}

// outcome: пострадавшие - получившие урон за активацию, выжившие - остальные живые.
func (s *Session) outcome() (survivors, casualties []string) {
	survivors = make([]string, 0)
	casualties = make([]string, 0)
	for _, id := range s.order {
		p := s.players[id]
		switch {
		case s.hits.Has(id):
			casualties = append(casualties, id)
		case !p.IsDead:
			survivors = append(survivors, id)
		}
	}
	return survivors, casualties
}

func (s *Session) judgeAll(now time.Time) {
	for _, id := range s.order {
		s.judge(s.players[id], now)
	}
}

// judge наносит урон игроку на опасной клетке. Не больше одного удара за активацию.
func (s *Session) judge(p *domain.Player, now time.Time) {
	m := s.active
	if m == nil || !m.IsExecuting() || p.IsDead || s.hits.Has(p.ID) {
		return
	}

	safe, err := m.JudgePosition(p.Pos)
	if err != nil {
		s.log().WithField("player_id", p.ID).WithError(err).Warn("Player judged outside the grid")
	}
	if safe {
		return
	}

	s.hits.Put(p.ID)
	def := m.Definition()
	hit := systems.ApplyHazardDamage(p, def.DisplayName, def.Damage)
	s.addLog(hit.Msg, domain.LogTypeCombat)

	payload := hitPayload{Damage: hit.Damage, HP: p.HP, Pos: api.PositionView{X: p.Pos.X, Y: p.Pos.Y}}
	s.record(now, domain.EventPlayerHit, def.ID, p.ID, payload)
	view := s.mechanicView(now, "", m.GetAffectedPositions())
	s.publish(api.MsgPlayerHit, view)

	if hit.Died {
		s.record(now, domain.EventPlayerDied, def.ID, p.ID, payload)
		s.publish(api.MsgPlayerDied, view)
	}
}

type hitPayload struct {
	Damage int              `json:"damage"`
	HP     int              `json:"hp"`
	Pos    api.PositionView `json:"pos"`
}

// --- ЖУРНАЛ ---

func (s *Session) record(now time.Time, event domain.EventType, mechanicID, playerID string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.log().WithError(err).Warn("Failed to encode journal payload")
		} else {
			raw = b
		}
	}

	s.journal.Records = append(s.journal.Records, domain.JournalRecord{
		AtMs:       now.Sub(s.startedAt).Milliseconds(),
		Event:      event,
		MechanicID: mechanicID,
		PlayerID:   playerID,
		Payload:    raw,
	})
}

// Journal возвращает копию журнала боя.
func (s *Session) Journal() domain.EncounterJournal {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := *s.journal
	j.Records = append([]domain.JournalRecord(nil), s.journal.Records...)
	return j
}

// --- ОТЛАДКА ---

// SessionSummary - краткое состояние боя для /debug.
type SessionSummary struct {
	ID             string `json:"id"`
	Players        int    `json:"players"`
	Alive          int    `json:"alive"`
	Active         string `json:"active,omitempty"`
	State          string `json:"state"`
	LastMechanic   string `json:"lastMechanic,omitempty"`
	NextMechanicAt int64  `json:"nextMechanicAt"`
	Records        int    `json:"records"`
}

func (s *Session) Summary() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := SessionSummary{
		ID:             s.ID,
		Players:        len(s.players),
		Alive:          s.aliveCount(),
		State:          domain.MechanicInactive.String(),
		LastMechanic:   s.lastID,
		NextMechanicAt: s.nextMechanicAt.UnixMilli(),
		Records:        len(s.journal.Records),
	}
	if s.active != nil {
		sum.Active = s.active.ID()
		sum.State = s.active.State().String()
	}
	return sum
}

// MechanicSnapshots читает механики без блокировки боя: их состояние атомарно.
func (s *Session) MechanicSnapshots() []mechanics.Snapshot {
	out := make([]mechanics.Snapshot, 0, len(s.mechanics))
	for _, m := range s.mechanics {
		out = append(out, m.GetData())
	}
	return out
}
