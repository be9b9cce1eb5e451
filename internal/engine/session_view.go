package engine

import (
	"fmt"
	"time"

	"raid-server/internal/domain"
	"raid-server/internal/mechanics"
	"raid-server/pkg/api"
	"raid-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// publish рассылает событие механики всем игрокам боя.
func (s *Session) publish(msgType string, view *api.MechanicView) {
	logs := s.takeLogs()
	for _, id := range s.order {
		if !s.hub.HasSubscriber(id) {
			continue
		}
		s.hub.SendTo(id, s.buildMessage(msgType, id, view, logs))
	}
}

// publishState рассылает актуальное состояние. private уходит только игроку privateTo.
func (s *Session) publishState(privateTo string, private []api.LogEntry) {
	logs := s.takeLogs()
	view := s.currentView(s.clock())

	for _, id := range s.order {
		if !s.hub.HasSubscriber(id) {
			continue
		}
		own := logs
		if id == privateTo && len(private) > 0 {
			own = append(append(make([]api.LogEntry, 0, len(logs)+len(private)), logs...), private...)
		}
		s.hub.SendTo(id, s.buildMessage(api.MsgState, id, view, own))
	}
}

func (s *Session) sendError(playerID string, err error) {
	s.hub.SendTo(playerID, api.ServerMessage{
		Type:        api.MsgError,
		SessionID:   s.ID,
		TimestampMs: s.clock().UnixMilli(),
		MyPlayerID:  playerID,
		Logs:        []api.LogEntry{s.newLog(err.Error(), domain.LogTypeError)},
	})
}

// buildMessage создает персональный снимок боя для игрока observerID.
func (s *Session) buildMessage(msgType, observerID string, view *api.MechanicView, logs []api.LogEntry) api.ServerMessage {
	players := make([]api.PlayerView, 0, len(s.order))
	for _, id := range s.order {
		players = append(players, toPlayerView(s.players[id]))
	}

	return api.ServerMessage{
		Type:        msgType,
		SessionID:   s.ID,
		TimestampMs: s.clock().UnixMilli(),
		MyPlayerID:  observerID,
		Grid:        &api.GridMeta{Width: s.Grid.Width, Height: s.Grid.Height},
		Players:     players,
		Mechanic:    view,
		Logs:        logs,
	}
}

// currentView - вид активной механики или nil, если босс ничего не кастует.
func (s *Session) currentView(now time.Time) *api.MechanicView {
	if s.active == nil {
		return nil
	}
	var affected []domain.Position
	switch s.active.State() {
	case domain.MechanicExecuting:
		affected = s.active.GetAffectedPositions()
	case domain.MechanicWarning:
		affected = s.active.PreviewAffected()
	}
	return s.mechanicView(now, "", affected)
}

// mechanicView собирает DTO активной механики.
func (s *Session) mechanicView(now time.Time, message string, affected []domain.Position) *api.MechanicView {
	m := s.active
	if m == nil {
		return nil
	}
	def := m.Definition()
	snap := m.GetData()

	view := &api.MechanicView{
		ID:         def.ID,
		Name:       def.DisplayName,
		State:      snap.State.String(),
		Message:    message,
		Affected:   toPositionViews(affected),
		Safe:       toPositionViews(safeCells(m)),
		DurationMs: def.DurationMs,
		Data:       snap.Data,
	}
	if deadline, ok := m.Deadline(); ok {
		if left := deadline.Sub(now); left > 0 {
			view.RemainingMs = left.Milliseconds()
		}
	}
	return view
}

// safeCells - безопасные клетки без повторов, в построчном порядке.
func safeCells(m *mechanics.Mechanic) []domain.Position {
	set := m.SafeSet()
	if set.Size() == 0 {
		return nil
	}
	out := make([]domain.Position, 0, set.Size())
	for _, c := range m.Grid().Cells() {
		if set.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func toPlayerView(p *domain.Player) api.PlayerView {
	return api.PlayerView{
		ID:     p.ID,
		Name:   p.Name,
		Pos:    api.PositionView{X: p.Pos.X, Y: p.Pos.Y},
		HP:     p.HP,
		MaxHP:  p.MaxHP,
		IsDead: p.IsDead,
	}
}

func toPositionViews(cells []domain.Position) []api.PositionView {
	if len(cells) == 0 {
		return nil
	}
	out := make([]api.PositionView, 0, len(cells))
	for _, c := range cells {
		out = append(out, api.PositionView{X: c.X, Y: c.Y})
	}
	return out
}

// --- ЛОГИ ---

func (s *Session) newLog(text, logType string) api.LogEntry {
	now := s.clock()
	s.logSeq++
	return api.LogEntry{
		ID:        fmt.Sprintf("%s_%d_%d", s.ID, now.UnixNano(), s.logSeq),
		Text:      text,
		Type:      logType,
		Timestamp: now.UnixMilli(),
	}
}

// addLog добавляет лог в историю боя
func (s *Session) addLog(text, logType string) {
	s.Logs = append(s.Logs, s.newLog(text, logType))
	logger.Log.WithFields(logrus.Fields{
		"session":   s.ID,
		"component": "game_log",
		"log_type":  logType,
	}).Info(text)
}

// takeLogs забирает накопленные логи. Копия, чтобы не было гонки данных с подписчиками.
func (s *Session) takeLogs() []api.LogEntry {
	if len(s.Logs) == 0 {
		return nil
	}
	logs := make([]api.LogEntry, len(s.Logs))
	copy(logs, s.Logs)
	s.Logs = []api.LogEntry{}
	return logs
}
