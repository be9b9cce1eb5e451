package engine

import (
	"container/heap"
	"time"

	"raid-server/pkg/logger"
)

// ScheduleItem обертка для элемента очереди приоритетов
type ScheduleItem struct {
	SessionID string    // Бой, которому нужно внимание
	Deadline  time.Time // Приоритет. Чем раньше, тем раньше тик.
	Index     int       // Индекс в куче (нужен для update)
}

// deadlineQueue реализует heap.Interface и хранит ScheduleItems
type deadlineQueue []*ScheduleItem

func (pq deadlineQueue) Len() int { return len(pq) }

func (pq deadlineQueue) Less(i, j int) bool {
	// MinHeap по дедлайну; при равенстве порядок по ID для детерминизма
	if pq[i].Deadline.Equal(pq[j].Deadline) {
		return pq[i].SessionID < pq[j].SessionID
	}
	return pq[i].Deadline.Before(pq[j].Deadline)
}

func (pq deadlineQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *deadlineQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*ScheduleItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *deadlineQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // избегаем утечки памяти
	item.Index = -1 // для безопасности
	*pq = old[0 : n-1]
	return item
}

// Schedule - очередь боев по времени следующего тика.
// Один бой присутствует в очереди не более одного раза.
type Schedule struct {
	queue   deadlineQueue
	itemMap map[string]*ScheduleItem
}

func NewSchedule() *Schedule {
	return &Schedule{
		queue:   make(deadlineQueue, 0),
		itemMap: make(map[string]*ScheduleItem),
	}
}

// Set добавляет бой или переносит его дедлайн.
func (s *Schedule) Set(sessionID string, deadline time.Time) {
	if item, ok := s.itemMap[sessionID]; ok {
		item.Deadline = deadline
		heap.Fix(&s.queue, item.Index)
		return
	}

	item := &ScheduleItem{SessionID: sessionID, Deadline: deadline}
	heap.Push(&s.queue, item)
	s.itemMap[sessionID] = item

	logger.Log.WithField("session_id", sessionID).Debug("Session added to schedule")
}

// PeekNext возвращает ближайший дедлайн, не удаляя его.
func (s *Schedule) PeekNext() *ScheduleItem {
	if s.queue.Len() == 0 {
		return nil
	}
	return s.queue[0]
}

// Remove убирает бой из очереди (бой закрыт).
func (s *Schedule) Remove(sessionID string) {
	if item, ok := s.itemMap[sessionID]; ok {
		heap.Remove(&s.queue, item.Index)
		delete(s.itemMap, sessionID)
	}
}

func (s *Schedule) Len() int {
	return s.queue.Len()
}

// DebugDump возвращает снимок очереди для отладки
func (s *Schedule) DebugDump() []map[string]interface{} {
	// Инициализируем как пустой слайс, а не nil. Тогда в JSON это будет "[]", а не "null"
	result := make([]map[string]interface{}, 0)

	for _, item := range s.queue {
		result = append(result, map[string]interface{}{
			"session":  item.SessionID,
			"deadline": item.Deadline.UnixMilli(),
			"index":    item.Index,
		})
	}
	return result
}
