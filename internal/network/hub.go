package network

import (
	"sync"

	"raid-server/pkg/api"
	"raid-server/pkg/logger"
)

// Broadcaster занимается только рассылкой сообщений подписчикам
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: PlayerID -> Личный канал
	subscribers map[string]chan api.ServerMessage
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan api.ServerMessage),
	}
}

// Register создает личный канал для игрока (человека или бота)
func (b *Broadcaster) Register(playerID string) chan api.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был (переподключение), закрываем
	if old, ok := b.subscribers[playerID]; ok {
		close(old)
	}

	ch := make(chan api.ServerMessage, 100)
	b.subscribers[playerID] = ch
	return ch
}

// Unregister удаляет подписчика
func (b *Broadcaster) Unregister(playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[playerID]; ok {
		close(ch)
		delete(b.subscribers, playerID)
	}
}

// UnregisterChan удаляет подписчика, только если его канал все еще ch.
// Старое соединение не должно отписать новое после переподключения.
// Возвращает false, если канал уже заменен.
func (b *Broadcaster) UnregisterChan(playerID string, ch chan api.ServerMessage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.subscribers[playerID]; ok && cur == ch {
		close(cur)
		delete(b.subscribers, playerID)
		return true
	}
	return false
}

// SendTo отправляет сообщение конкретному ID (Unicast)
func (b *Broadcaster) SendTo(playerID string, msg api.ServerMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.subscribers[playerID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.WithField("player_id", playerID).Debug("Hub: channel full, message dropped")
		}
	}
}

// HasSubscriber проверяет, подключен ли игрок. Бой не собирает сообщения для отключенных.
func (b *Broadcaster) HasSubscriber(playerID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[playerID]
	return ok
}
