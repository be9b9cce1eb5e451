package agent

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"raid-server/internal/domain"
	"raid-server/internal/engine"
	"raid-server/internal/systems"
	"raid-server/pkg/api"
	"raid-server/pkg/logger"
)

// Bot представляет собой "Игрока-компьютера" (Headless Agent).
// Он получает те же сообщения, что и клиент по WebSocket, и по ним решает,
// куда отойти от механики босса.
//
// Жизненный цикл:
//  1. NewBot -> Регистрация в хабе сервера, получение личного канала (Inbox).
//  2. Run -> Вход в бой и цикл по Inbox. Запускается в горутине.
//  3. На каждое сообщение с активной механикой бот ищет ближайшую безопасную клетку
//     и делает к ней шаг. Если уже в безопасности, ничего не шлет.
type Bot struct {
	PlayerID  string
	SessionID string
	Name      string
	Service   *engine.GameService // Прямая ссылка на движок (для простоты в этом проекте)
	Inbox     chan api.ServerMessage
}

func NewBot(playerID, sessionID, name string, service *engine.GameService) *Bot {
	b := &Bot{
		PlayerID:  playerID,
		SessionID: sessionID,
		Name:      name,
		Service:   service,
		// Бот регистрируется в хабе как обычный клиент и получает свой канал для обновлений.
		Inbox: service.Hub.Register(playerID),
	}
	b.log().Info("[BOT] Agent created")
	return b
}

func (b *Bot) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"session":   b.SessionID,
		"player_id": b.PlayerID,
		"component": "bot",
	})
}

// Run входит в бой и реагирует на обновления до отмены ctx или закрытия Inbox.
func (b *Bot) Run(ctx context.Context) error {
	defer b.Service.Hub.UnregisterChan(b.PlayerID, b.Inbox)

	if _, err := b.Service.Join(ctx, b.SessionID, b.PlayerID, b.Name); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			b.log().Info("[BOT] Agent shut down")
			return nil
		case msg, ok := <-b.Inbox:
			if !ok {
				b.log().Info("[BOT] Inbox closed")
				return nil
			}
			if action, dx, dy, act := b.Decide(msg); act {
				b.send(action, dx, dy)
			}
		}
	}
}

// Decide - мозг бота. act=false значит "стоять и ничего не слать".
func (b *Bot) Decide(msg api.ServerMessage) (action domain.ActionType, dx, dy int, act bool) {
	switch msg.Type {
	case api.MsgMechanicWarning, api.MsgMechanicStarted, api.MsgState:
	default:
		return domain.ActionWait, 0, 0, false
	}
	if msg.Mechanic == nil || msg.Grid == nil || len(msg.Mechanic.Safe) == 0 {
		return domain.ActionWait, 0, 0, false
	}

	me := b.findSelf(msg)
	if me == nil || me.IsDead {
		return domain.ActionWait, 0, 0, false // Мертвые не ходят
	}

	// Восстанавливаем множество безопасных клеток из DTO
	safe := mapset.New[domain.Position]()
	for _, c := range msg.Mechanic.Safe {
		safe.Put(domain.Position{X: c.X, Y: c.Y})
	}

	grid := domain.Grid{Width: msg.Grid.Width, Height: msg.Grid.Height}
	pos := domain.Position{X: me.Pos.X, Y: me.Pos.Y}

	action, dx, dy = systems.ComputeEvasion(pos, grid, safe)
	return action, dx, dy, action == domain.ActionMove
}

func (b *Bot) findSelf(msg api.ServerMessage) *api.PlayerView {
	for i := range msg.Players {
		if msg.Players[i].ID == b.PlayerID {
			return &msg.Players[i]
		}
	}
	return nil
}

// --- Хелперы для отправки команд на сервер ---

func (b *Bot) send(action domain.ActionType, dx, dy int) {
	cmd := api.ClientCommand{Action: action.String()}

	if action == domain.ActionMove {
		payload, err := json.Marshal(api.DirectionPayload{Dx: dx, Dy: dy})
		if err != nil {
			b.log().WithError(err).Error("[BOT] Error marshalling payload")
			return
		}
		cmd.Payload = payload
	}

	if err := b.Service.ProcessCommand(b.SessionID, b.PlayerID, cmd); err != nil {
		b.log().WithError(err).Debug("[BOT] Command rejected")
	}
}
