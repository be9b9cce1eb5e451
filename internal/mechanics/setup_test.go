package mechanics

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"raid-server/internal/domain"
	"raid-server/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize the global logger before running any tests
	logger.Init()

	os.Exit(m.Run())
}

// fakeClock - ручные часы для проверки таймеров.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestMechanic собирает встроенную механику на сетке width x height.
func newTestMechanic(t *testing.T, id string, width, height int, clock *fakeClock) *Mechanic {
	t.Helper()
	grid, err := domain.NewGrid(width, height)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	hazard, ok := DefaultRegistry().Lookup(id)
	if !ok {
		t.Fatalf("no geometry registered for %s", id)
	}
	def, ok := DefaultTable().Find(id)
	if !ok {
		t.Fatalf("no definition for %s", id)
	}
	return New(def, grid, hazard, WithClock(clock.Now), WithRand(rand.New(rand.NewSource(42))))
}

func positionSet(ps []domain.Position) map[domain.Position]int {
	set := make(map[domain.Position]int, len(ps))
	for _, p := range ps {
		set[p]++
	}
	return set
}
