package engine

import (
	"container/heap"
	"testing"
	"time"
)

func TestDeadlineQueue(t *testing.T) {
	base := time.Unix(1000, 0)
	pq := make(deadlineQueue, 0)
	heap.Init(&pq)

	heap.Push(&pq, &ScheduleItem{SessionID: "s1", Deadline: base.Add(10 * time.Millisecond)})
	heap.Push(&pq, &ScheduleItem{SessionID: "s2", Deadline: base.Add(5 * time.Millisecond)})
	heap.Push(&pq, &ScheduleItem{SessionID: "s3", Deadline: base.Add(20 * time.Millisecond)})

	if pq.Len() != 3 {
		t.Errorf("Expected length 3, got %d", pq.Len())
	}

	// First pop should be s2 (5ms)
	first := heap.Pop(&pq).(*ScheduleItem)
	if first.SessionID != "s2" {
		t.Errorf("Expected s2, got %s", first.SessionID)
	}
	if first.Index != -1 {
		t.Errorf("Popped item must have index -1, got %d", first.Index)
	}
}

func TestSchedule_SetMovesDeadline(t *testing.T) {
	base := time.Unix(1000, 0)
	s := NewSchedule()
	s.Set("a", base.Add(10*time.Millisecond))
	s.Set("b", base.Add(20*time.Millisecond))

	if next := s.PeekNext(); next.SessionID != "a" {
		t.Fatalf("Expected a first, got %s", next.SessionID)
	}

	// Переносим a позже b
	s.Set("a", base.Add(30*time.Millisecond))
	if s.Len() != 2 {
		t.Errorf("Set must not duplicate sessions, len=%d", s.Len())
	}
	if next := s.PeekNext(); next.SessionID != "b" {
		t.Errorf("Expected b after reschedule, got %s", next.SessionID)
	}
}

func TestSchedule_TieBreakByID(t *testing.T) {
	at := time.Unix(1000, 0)
	s := NewSchedule()
	s.Set("zeta", at)
	s.Set("alpha", at)

	if next := s.PeekNext(); next.SessionID != "alpha" {
		t.Errorf("Expected alpha on equal deadlines, got %s", next.SessionID)
	}
}

func TestSchedule_Remove(t *testing.T) {
	s := NewSchedule()
	s.Set("a", time.Unix(1, 0))
	s.Set("b", time.Unix(2, 0))

	s.Remove("a")
	s.Remove("missing")

	if s.Len() != 1 {
		t.Fatalf("Expected 1 item, got %d", s.Len())
	}
	if next := s.PeekNext(); next.SessionID != "b" {
		t.Errorf("Expected b, got %s", next.SessionID)
	}

	s.Remove("b")
	if s.PeekNext() != nil {
		t.Error("Expected empty schedule")
	}
	if dump := s.DebugDump(); dump == nil || len(dump) != 0 {
		t.Errorf("Expected empty non-nil dump, got %v", dump)
	}
}
