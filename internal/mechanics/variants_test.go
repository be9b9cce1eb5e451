package mechanics

import (
	"testing"

	"raid-server/internal/domain"
)

// Каждая геометрия делит сетку на безопасные и опасные клетки без пересечений.
func TestVariants_PartitionGrid(t *testing.T) {
	for _, id := range DefaultTable().IDs() {
		t.Run(id, func(t *testing.T) {
			m := newTestMechanic(t, id, 8, 8, newFakeClock())
			m.Activate()

			affected := positionSet(m.GetAffectedPositions())
			safe := m.SafeSet()
			for _, p := range m.Grid().Cells() {
				_, unsafe := affected[p]
				if unsafe == safe.Has(p) {
					t.Errorf("cell %v: unsafe=%v safe=%v", p, unsafe, safe.Has(p))
				}
			}
		})
	}
}

func TestMeteorStrike_ImpactsAreUnsafe(t *testing.T) {
	m := newTestMechanic(t, MeteorStrikeID, 8, 8, newFakeClock())
	m.Activate()

	data := m.GetData().Data.(MeteorStrikeData)
	if len(data.Impacts) != DefaultMeteorImpacts {
		t.Fatalf("Expected %d impacts, got %d", DefaultMeteorImpacts, len(data.Impacts))
	}
	if len(positionSet(data.Impacts)) != len(data.Impacts) {
		t.Error("Impacts should be distinct cells")
	}
	for _, impact := range data.Impacts {
		for _, p := range m.Grid().Square(impact, data.BlastRadius) {
			if m.CheckPlayerPosition(p) {
				t.Errorf("cell %v inside blast of %v judged safe", p, impact)
			}
		}
	}
}

func TestMeteorStrike_ImpactCountCapped(t *testing.T) {
	grid, _ := domain.NewGrid(2, 2)
	def := DefaultTable().Lookup(MeteorStrikeID)
	def.Params = Params{ParamImpacts: 50, ParamBlastRadius: 0}

	m := New(def, grid, DefaultRegistry()[MeteorStrikeID])
	m.Activate()

	if got := len(m.GetAffectedPositions()); got != 4 {
		t.Errorf("Expected every cell hit, got %d", got)
	}
}

func TestLavaWave_LanesAreSafe(t *testing.T) {
	m := newTestMechanic(t, LavaWaveID, 8, 8, newFakeClock())
	m.Activate()

	data := m.GetData().Data.(LavaWaveData)
	if len(data.SafeLanes) != DefaultLavaSafeLanes {
		t.Fatalf("Expected %d lanes, got %v", DefaultLavaSafeLanes, data.SafeLanes)
	}
	if data.Axis != LavaAxisRows && data.Axis != LavaAxisColumns {
		t.Fatalf("Unexpected axis %q", data.Axis)
	}

	for _, p := range m.Grid().Cells() {
		coord := p.Y
		if data.Axis == LavaAxisColumns {
			coord = p.X
		}
		inLane := false
		for _, lane := range data.SafeLanes {
			if coord >= lane && coord < lane+data.LaneWidth {
				inLane = true
			}
		}
		if m.CheckPlayerPosition(p) != inLane {
			t.Errorf("cell %v: safe=%v, inLane=%v", p, m.CheckPlayerPosition(p), inLane)
		}
	}

	// 2 полосы по 8 клеток
	if got := len(m.GetAffectedPositions()); got != 64-16 {
		t.Errorf("Expected 48 flooded cells, got %d", got)
	}
}

func TestShockwave_Ring(t *testing.T) {
	m := newTestMechanic(t, ShockwaveID, 8, 8, newFakeClock())
	m.Activate()

	data := m.GetData().Data.(ShockwaveData)
	if data.Origin != (domain.Position{X: 3, Y: 3}) {
		t.Errorf("Origin = %v, want (3,3)", data.Origin)
	}

	cases := []struct {
		pos  domain.Position
		safe bool
	}{
		{domain.Position{X: 3, Y: 3}, true},  // под боссом
		{domain.Position{X: 4, Y: 4}, true},  // d=1
		{domain.Position{X: 5, Y: 3}, false}, // d=2
		{domain.Position{X: 0, Y: 0}, false}, // d=3
		{domain.Position{X: 7, Y: 0}, true},  // d=4, за кольцом
	}
	for _, tc := range cases {
		if got := m.CheckPlayerPosition(tc.pos); got != tc.safe {
			t.Errorf("CheckPlayerPosition(%v) = %v, want %v", tc.pos, got, tc.safe)
		}
	}
}
