package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"raid-server/internal/domain"
	"raid-server/internal/engine/handlers"
	"raid-server/internal/engine/handlers/actions"
	"raid-server/internal/network"
	"raid-server/pkg/api"
	"raid-server/pkg/logger"
)

var (
	// ErrUnknownAction - клиент прислал действие, которого нет в протоколе.
	ErrUnknownAction = errors.New("unknown action")
	// ErrServiceStopped - цикл сервиса уже завершился.
	ErrServiceStopped = errors.New("service stopped")
)

// JoinRequest - вход игрока в бой. Ответ приходит копией игрока.
type JoinRequest struct {
	SessionID string
	PlayerID  string
	Name      string
	Reply     chan domain.Player
}

// LeaveRequest - выход игрока (обрыв соединения).
type LeaveRequest struct {
	SessionID string
	PlayerID  string
}

// GameService владеет боями и хабом. Все изменения боев идут через один цикл Run.
type GameService struct {
	cfg Config
	Hub *network.Broadcaster

	mu       sync.RWMutex // sessions и schedule (читаются из /debug)
	sessions map[string]*Session
	schedule *Schedule

	CommandChan chan domain.InternalCommand
	JoinChan    chan JoinRequest
	LeaveChan   chan LeaveRequest
	CancelChan  chan string

	done chan struct{}

	actionHandlers map[domain.ActionType]handlers.HandlerFunc
}

func NewService(cfg Config) *GameService {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &GameService{
		cfg:            cfg,
		Hub:            network.NewBroadcaster(),
		sessions:       make(map[string]*Session),
		schedule:       NewSchedule(),
		CommandChan:    make(chan domain.InternalCommand, 100),
		JoinChan:       make(chan JoinRequest, 10),
		LeaveChan:      make(chan LeaveRequest, 10),
		CancelChan:     make(chan string, 10),
		done:           make(chan struct{}),
		actionHandlers: make(map[domain.ActionType]handlers.HandlerFunc),
	}

	s.registerHandlers()
	return s
}

func (s *GameService) registerHandlers() {
	s.actionHandlers[domain.ActionInit] = handlers.WithPayload(actions.HandleInit)
	s.actionHandlers[domain.ActionMove] = handlers.WithPayload(actions.HandleMove)
	s.actionHandlers[domain.ActionWait] = handlers.WithEmptyPayload(actions.HandleWait)
}

// Config возвращает параметры, с которыми запущен сервис.
func (s *GameService) Config() Config {
	return s.cfg
}

// --- ВХОД ИЗ ВНЕШНЕГО МИРА ---

// ProcessCommand принимает команду от внешнего мира (WebSocket или бот).
// playerID берется из соединения, а не из сообщения.
func (s *GameService) ProcessCommand(sessionID, playerID string, externalCmd api.ClientCommand) error {
	actionType := domain.ParseAction(externalCmd.Action)
	if actionType == domain.ActionUnknown {
		logger.Log.WithField("action", externalCmd.Action).Warn("Unknown action")
		return fmt.Errorf("%w: %q", ErrUnknownAction, externalCmd.Action)
	}

	cmd := domain.InternalCommand{
		Action:    actionType,
		SessionID: sessionID,
		PlayerID:  playerID,
		Payload:   externalCmd.Payload,
	}

	select {
	case s.CommandChan <- cmd:
		return nil
	case <-s.done:
		return ErrServiceStopped
	}
}

// Join ставит игрока в бой (создавая бой при необходимости) и ждет ответа цикла.
func (s *GameService) Join(ctx context.Context, sessionID, playerID, name string) (domain.Player, error) {
	req := JoinRequest{
		SessionID: sessionID,
		PlayerID:  playerID,
		Name:      name,
		Reply:     make(chan domain.Player, 1),
	}

	select {
	case s.JoinChan <- req:
	case <-ctx.Done():
		return domain.Player{}, ctx.Err()
	case <-s.done:
		return domain.Player{}, ErrServiceStopped
	}

	select {
	case p := <-req.Reply:
		return p, nil
	case <-ctx.Done():
		return domain.Player{}, ctx.Err()
	case <-s.done:
		return domain.Player{}, ErrServiceStopped
	}
}

// Leave сообщает циклу, что игрок ушел. Не блокирует после остановки сервиса.
func (s *GameService) Leave(sessionID, playerID string) {
	select {
	case s.LeaveChan <- LeaveRequest{SessionID: sessionID, PlayerID: playerID}:
	case <-s.done:
	}
}

// CancelActive просит цикл досрочно завершить механику боя.
func (s *GameService) CancelActive(sessionID string) {
	select {
	case s.CancelChan <- sessionID:
	case <-s.done:
	}
}

// --- ЦИКЛ ---

// Run - единственный цикл, который меняет бои. Завершается по ctx.
func (s *GameService) Run(ctx context.Context) error {
	defer close(s.done)
	logger.Log.Info("Service loop started")

	// Один таймер на весь цикл, перезаводится на каждой итерации
	timer := time.NewTimer(idleRecheck)
	defer timer.Stop()

	for {
		resetTimer(timer, s.untilNext(s.cfg.Clock()))

		select {
		case <-ctx.Done():
			logger.Log.Info("Service loop stopped")
			return nil

		case req := <-s.JoinChan:
			s.handleJoin(req)

		case req := <-s.LeaveChan:
			s.handleLeave(req)

		case cmd := <-s.CommandChan:
			s.dispatch(cmd)

		case id := <-s.CancelChan:
			s.handleCancel(id)

		case <-timer.C:
			s.tickDue(s.cfg.Clock())
		}
	}
}

// resetTimer перезаводит таймер, сливая несработавшее значение из канала.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (s *GameService) untilNext(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.schedule.PeekNext()
	if item == nil {
		return idleRecheck
	}
	if d := item.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// tickDue тикает все бои с наступившим дедлайном. Каждый не больше одного раза за вызов.
func (s *GameService) tickDue(now time.Time) {
	s.mu.RLock()
	due := make([]*Session, 0)
	for _, item := range s.schedule.queue {
		if !item.Deadline.After(now) {
			due = append(due, s.sessions[item.SessionID])
		}
	}
	s.mu.RUnlock()

	for _, sess := range due {
		next := sess.Tick(now)
		s.mu.Lock()
		s.schedule.Set(sess.ID, next)
		s.mu.Unlock()
	}
}

// getOrCreate возвращает бой, создавая его при первом входе.
func (s *GameService) getOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := NewSession(id, s.cfg, s.Hub)
	s.sessions[id] = sess
	return sess
}

func (s *GameService) wake(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Set(id, s.cfg.Clock())
}

func (s *GameService) handleJoin(req JoinRequest) {
	sess := s.getOrCreate(req.SessionID)
	p := sess.Join(req.PlayerID, req.Name)
	req.Reply <- *p

	sess.PublishState()
	s.wake(sess.ID)
}

func (s *GameService) handleLeave(req LeaveRequest) {
	sess, ok := s.Session(req.SessionID)
	if !ok {
		return
	}
	sess.Leave(req.PlayerID)
	sess.PublishState()
}

func (s *GameService) handleCancel(id string) {
	sess, ok := s.Session(id)
	if !ok {
		return
	}
	res := sess.CancelActive()
	logger.Session(id).WithField("success", res.Success).Info("Cancel requested")
	s.wake(id)
}

// dispatch выполняет команду в контексте ее боя
func (s *GameService) dispatch(cmd domain.InternalCommand) {
	handler, ok := s.actionHandlers[cmd.Action]
	if !ok {
		return
	}

	sess, ok := s.Session(cmd.SessionID)
	if !ok {
		logger.Log.WithFields(logrus.Fields{
			"session":   cmd.SessionID,
			"player_id": cmd.PlayerID,
		}).Warn("Command for unknown session")
		return
	}

	if err := sess.Execute(handler, cmd); err != nil {
		logger.Session(sess.ID).WithError(err).Debug("Command failed")
	}
}

// --- ЧТЕНИЕ (debug, shutdown) ---

func (s *GameService) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Sessions возвращает сводку по всем боям, отсортированную по ID.
func (s *GameService) Sessions() []SessionSummary {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	out := make([]SessionSummary, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScheduleDump - снимок очереди тиков.
func (s *GameService) ScheduleDump() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule.DebugDump()
}

// Journals собирает журналы всех боев (для сохранения при остановке).
func (s *GameService) Journals() []domain.EncounterJournal {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	out := make([]domain.EncounterJournal, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.Journal())
	}
	return out
}
