package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"raid-server/internal/domain"
	"raid-server/internal/engine/handlers"
	"raid-server/internal/engine/handlers/actions"
	"raid-server/internal/mechanics"
	"raid-server/pkg/api"
)

func TestSession_PillarLifecycle(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()
	t0 := clock.Now()
	s := NewSession("raid-test", pillarOnlyConfig(clock), rec)

	s.Join("p1", "Tank")
	s.Join("p2", "Healer")
	s.players["p1"].Pos = domain.Position{X: 0, Y: 0} // у колонны
	s.players["p2"].Pos = domain.Position{X: 3, Y: 3} // центр, далеко от колонн

	// 1. Кулдаун еще идет
	next := s.Tick(clock.Now())
	if !next.Equal(t0.Add(time.Second)) {
		t.Fatalf("Expected first mechanic at +1s, got %v", next.Sub(t0))
	}
	if s.Summary().State != "INACTIVE" {
		t.Fatalf("Expected INACTIVE, got %s", s.Summary().State)
	}

	// 2. Предупреждение. Урона еще нет.
	clock.Advance(time.Second)
	next = s.Tick(clock.Now())
	if s.Summary().State != "WARNING" {
		t.Fatalf("Expected WARNING, got %s", s.Summary().State)
	}
	if !next.Equal(t0.Add(4 * time.Second)) {
		t.Errorf("Expected activation at +4s, got %v", next.Sub(t0))
	}
	warn, ok := rec.last("p2", api.MsgMechanicWarning)
	if !ok {
		t.Fatal("Expected MECHANIC_WARNING")
	}
	if warn.Mechanic == nil || warn.Mechanic.ID != mechanics.PillarPhaseID {
		t.Fatalf("Warning must describe pillar_phase, got %+v", warn.Mechanic)
	}
	if len(warn.Mechanic.Affected) != 48 || len(warn.Mechanic.Safe) != 16 {
		t.Errorf("Expected 48 affected / 16 safe in preview, got %d / %d",
			len(warn.Mechanic.Affected), len(warn.Mechanic.Safe))
	}
	if warn.Mechanic.RemainingMs != 3000 {
		t.Errorf("Expected 3000ms to activation, got %d", warn.Mechanic.RemainingMs)
	}
	if s.players["p2"].HP != domain.PlayerMaxHP {
		t.Fatal("Warning must not deal damage")
	}

	// 3. Активация: p2 получает урон, p1 нет
	clock.Advance(3 * time.Second)
	next = s.Tick(clock.Now())
	if s.Summary().State != "EXECUTING" {
		t.Fatalf("Expected EXECUTING, got %s", s.Summary().State)
	}
	if !next.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("Expected resolve at +10s, got %v", next.Sub(t0))
	}
	if got := s.players["p2"].HP; got != domain.PlayerMaxHP-60 {
		t.Errorf("Expected p2 HP %d, got %d", domain.PlayerMaxHP-60, got)
	}
	if got := s.players["p1"].HP; got != domain.PlayerMaxHP {
		t.Errorf("p1 at a pillar must be safe, HP=%d", got)
	}
	if types := rec.types("p1"); !contains(types, api.MsgMechanicStarted) || !contains(types, api.MsgPlayerHit) {
		t.Errorf("Expected STARTED and PLAYER_HIT broadcast, got %v", types)
	}

	// 4. Повторный шаг по опасной зоне за ту же активацию не бьет
	move := handlers.WithPayload(actions.HandleMove)
	payload, _ := json.Marshal(api.DirectionPayload{Dx: 1, Dy: 0})
	if err := s.Execute(move, domain.InternalCommand{Action: domain.ActionMove, PlayerID: "p2", Payload: payload}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := s.players["p2"].HP; got != domain.PlayerMaxHP-60 {
		t.Errorf("Second hit in one activation, HP=%d", got)
	}

	// 5. Завершение
	clock.Advance(6 * time.Second)
	next = s.Tick(clock.Now())
	if s.Summary().Active != "" {
		t.Fatalf("Expected no active mechanic, got %s", s.Summary().Active)
	}
	if !next.Equal(t0.Add(11 * time.Second)) {
		t.Errorf("Expected next mechanic at +11s, got %v", next.Sub(t0))
	}
	res, ok := rec.last("p1", api.MsgMechanicResolved)
	if !ok {
		t.Fatal("Expected MECHANIC_RESOLVED")
	}
	if len(res.Mechanic.Survivors) != 1 || res.Mechanic.Survivors[0] != "p1" {
		t.Errorf("Expected survivors [p1], got %v", res.Mechanic.Survivors)
	}
	if len(res.Mechanic.Casualties) != 1 || res.Mechanic.Casualties[0] != "p2" {
		t.Errorf("Expected casualties [p2], got %v", res.Mechanic.Casualties)
	}
	if len(res.Mechanic.Affected) != 0 || len(res.Mechanic.Safe) != 0 {
		t.Error("Resolved mechanic must not report geometry")
	}

	// 6. Второй цикл (одна механика в таблице - повтор разрешен): p2 погибает
	s.players["p2"].Pos = domain.Position{X: 3, Y: 3}
	rec.reset()
	clock.Advance(time.Second)
	s.Tick(clock.Now())
	clock.Advance(3 * time.Second)
	s.Tick(clock.Now())

	if !s.players["p2"].IsDead {
		t.Fatalf("Expected p2 to die, HP=%d", s.players["p2"].HP)
	}
	if !contains(rec.types("p1"), api.MsgPlayerDied) {
		t.Errorf("Expected PLAYER_DIED broadcast, got %v", rec.types("p1"))
	}
}

func TestSession_NoPlayersNoMechanics(t *testing.T) {
	clock := newFakeClock()
	s := NewSession("empty", pillarOnlyConfig(clock), newRecorder())

	clock.Advance(10 * time.Second)
	next := s.Tick(clock.Now())

	if s.Summary().Active != "" {
		t.Error("Mechanic must not start without live players")
	}
	if !next.Equal(clock.Now().Add(idleRecheck)) {
		t.Errorf("Expected idle recheck, got %v", next.Sub(clock.Now()))
	}
}

func TestSession_NeverRepeatsLastMechanic(t *testing.T) {
	clock := newFakeClock()
	table := mechanics.DefaultTable()
	for i := range table.Mechanics {
		table.Mechanics[i].Damage = 0 // игроки не должны умирать по ходу теста
	}
	cfg := Config{
		Seed:     7,
		Grid:     domain.DefaultGrid(),
		Table:    table,
		Registry: mechanics.DefaultRegistry(),
		Cooldown: 0,
		Clock:    clock.Now,
	}
	rec := newRecorder()
	s := NewSession("rotation", cfg, rec)
	s.Join("p1", "")

	var order []string
	seen := make(map[string]bool)
	next := s.Tick(clock.Now())
	for i := 0; i < 400; i++ {
		clock.Advance(next.Sub(clock.Now()))
		next = s.Tick(clock.Now())
	}

	rec.mu.Lock()
	for _, m := range rec.msgs["p1"] {
		if m.Type == api.MsgMechanicWarning {
			order = append(order, m.Mechanic.ID)
			seen[m.Mechanic.ID] = true
		}
	}
	rec.mu.Unlock()

	if len(order) < 20 {
		t.Fatalf("Expected many activations, got %d", len(order))
	}
	for i := 1; i < len(order); i++ {
		if order[i] == order[i-1] {
			t.Fatalf("Mechanic %s repeated at position %d", order[i], i)
		}
	}
	if len(seen) != len(table.Mechanics) {
		t.Errorf("Expected all %d mechanics to appear, got %v", len(table.Mechanics), seen)
	}
}

func TestSession_ZeroWeightNeverPicked(t *testing.T) {
	clock := newFakeClock()
	table := mechanics.DefaultTable()
	for i := range table.Mechanics {
		table.Mechanics[i].Damage = 0
		if table.Mechanics[i].ID == mechanics.MeteorStrikeID {
			table.Mechanics[i].Weight = 0
		}
	}
	cfg := Config{Seed: 3, Grid: domain.DefaultGrid(), Table: table, Registry: mechanics.DefaultRegistry(), Clock: clock.Now}
	s := NewSession("weights", cfg, newRecorder())
	s.Join("p1", "")

	for i := 0; i < 50; i++ {
		s.mu.Lock()
		m := s.pick()
		s.lastID = m.ID()
		s.mu.Unlock()
		if m.ID() == mechanics.MeteorStrikeID {
			t.Fatal("Zero-weight mechanic was picked")
		}
	}
}

func TestSession_CancelActive(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()
	s := NewSession("cancel", pillarOnlyConfig(clock), rec)
	s.Join("p1", "")

	if res := s.CancelActive(); res.Success {
		t.Error("Cancel without active mechanic must fail")
	}

	clock.Advance(time.Second)
	s.Tick(clock.Now())
	if s.Summary().State != "WARNING" {
		t.Fatalf("Expected WARNING, got %s", s.Summary().State)
	}

	res := s.CancelActive()
	if !res.Success {
		t.Fatalf("Cancel failed: %s", res.Message)
	}
	if s.Summary().Active != "" {
		t.Error("Expected empty active slot after cancel")
	}
	msg, ok := rec.last("p1", api.MsgMechanicResolved)
	if !ok {
		t.Fatal("Cancel must broadcast MECHANIC_RESOLVED")
	}
	// Механика не исполнялась: ни выживших, ни пострадавших
	if msg.Mechanic.Survivors != nil || msg.Mechanic.Casualties != nil {
		t.Errorf("Cancelled warning reported outcome: %v / %v", msg.Mechanic.Survivors, msg.Mechanic.Casualties)
	}
	if msg.Mechanic.State != domain.MechanicInactive.String() {
		t.Errorf("Expected INACTIVE in resolved view, got %s", msg.Mechanic.State)
	}
	for _, snap := range s.MechanicSnapshots() {
		if snap.State != domain.MechanicInactive {
			t.Errorf("Mechanic %s is %s after cancelled warning", snap.ID, snap.State)
		}
	}
}

func TestSession_CancelWhileExecutingReportsOutcome(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()
	s := NewSession("cancel-exec", pillarOnlyConfig(clock), rec)
	s.Join("p1", "")
	s.players["p1"].Pos = domain.Position{X: 0, Y: 0}

	clock.Advance(time.Second)
	s.Tick(clock.Now())
	clock.Advance(3 * time.Second)
	s.Tick(clock.Now())
	if s.Summary().State != "EXECUTING" {
		t.Fatalf("Expected EXECUTING, got %s", s.Summary().State)
	}

	s.CancelActive()
	msg, ok := rec.last("p1", api.MsgMechanicResolved)
	if !ok {
		t.Fatal("Expected MECHANIC_RESOLVED")
	}
	if len(msg.Mechanic.Survivors) != 1 || msg.Mechanic.Survivors[0] != "p1" {
		t.Errorf("Survivors = %v, want [p1]", msg.Mechanic.Survivors)
	}
}

// Во время Warning каждое STATE показывает ту же опасную зону, что и предупреждение,
// даже если безопасных клеток нет.
func TestSession_WarningStateShowsDangerWithoutSafeCells(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()

	def, _ := mechanics.DefaultTable().Find(mechanics.LavaWaveID)
	def.Params = mechanics.Params{mechanics.ParamSafeLanes: 0}
	cfg := pillarOnlyConfig(clock)
	cfg.Table = mechanics.Table{Mechanics: []mechanics.Definition{def}}

	s := NewSession("no-safe", cfg, rec)
	s.Join("p1", "")

	clock.Advance(time.Second)
	s.Tick(clock.Now())

	warn, ok := rec.last("p1", api.MsgMechanicWarning)
	if !ok {
		t.Fatal("Expected MECHANIC_WARNING")
	}
	if len(warn.Mechanic.Affected) != 64 {
		t.Fatalf("Warning affected %d cells, want 64", len(warn.Mechanic.Affected))
	}

	s.PublishState()
	state, ok := rec.last("p1", api.MsgState)
	if !ok || state.Mechanic == nil {
		t.Fatal("Expected STATE with mechanic")
	}
	if len(state.Mechanic.Affected) != 64 {
		t.Errorf("STATE affected %d cells, want 64", len(state.Mechanic.Affected))
	}
	if len(state.Mechanic.Safe) != 0 {
		t.Errorf("Expected no safe cells, got %d", len(state.Mechanic.Safe))
	}
}

func TestSession_ZeroWarningActivatesAtOnce(t *testing.T) {
	clock := newFakeClock()
	cfg := pillarOnlyConfig(clock)
	cfg.Table.Mechanics[0].WarningMs = 0
	s := NewSession("instant", cfg, newRecorder())
	s.Join("p1", "")
	s.players["p1"].Pos = domain.Position{X: 3, Y: 3}

	clock.Advance(time.Second)
	s.Tick(clock.Now())

	if s.Summary().State != "EXECUTING" {
		t.Fatalf("Expected EXECUTING right away, got %s", s.Summary().State)
	}
	if s.players["p1"].HP == domain.PlayerMaxHP {
		t.Error("Expected immediate judgement")
	}
}

func TestSession_Journal(t *testing.T) {
	clock := newFakeClock()
	s := NewSession("journal", pillarOnlyConfig(clock), newRecorder())
	s.Join("p1", "")
	s.players["p1"].Pos = domain.Position{X: 3, Y: 3}

	clock.Advance(time.Second)
	s.Tick(clock.Now())
	clock.Advance(3 * time.Second)
	s.Tick(clock.Now())
	clock.Advance(6 * time.Second)
	s.Tick(clock.Now())

	j := s.Journal()
	want := []domain.EventType{
		domain.EventMechanicWarning,
		domain.EventMechanicStarted,
		domain.EventPlayerHit,
		domain.EventMechanicResolved,
	}
	if len(j.Records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(j.Records))
	}
	for i, ev := range want {
		if j.Records[i].Event != ev {
			t.Errorf("Record %d: expected %s, got %s", i, ev, j.Records[i].Event)
		}
	}
	if j.Records[0].AtMs != 1000 || j.Records[3].AtMs != 10000 {
		t.Errorf("Unexpected offsets: %d, %d", j.Records[0].AtMs, j.Records[3].AtMs)
	}
	if j.Records[2].PlayerID != "p1" {
		t.Errorf("Hit must reference p1, got %q", j.Records[2].PlayerID)
	}
	if j.SessionID != "journal" || j.Grid != domain.DefaultGrid() {
		t.Errorf("Unexpected journal header: %+v", j)
	}
}

func TestSession_Execute(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()
	s := NewSession("exec", pillarOnlyConfig(clock), rec)
	s.Join("p1", "")
	s.players["p1"].Pos = domain.Position{X: 0, Y: 0}

	move := handlers.WithPayload(actions.HandleMove)

	err := s.Execute(move, domain.InternalCommand{Action: domain.ActionMove, PlayerID: "ghost", Payload: json.RawMessage(`{"dx":1}`)})
	if !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}

	err = s.Execute(move, domain.InternalCommand{Action: domain.ActionMove, PlayerID: "p1", Payload: json.RawMessage(`{"dx":5}`)})
	if err == nil {
		t.Error("Expected validation error")
	}
	if _, ok := rec.last("p1", api.MsgError); !ok {
		t.Error("Expected ERROR message to the actor")
	}

	// Шаг за край: позиция не меняется, лог только актору
	if err := s.Execute(move, domain.InternalCommand{Action: domain.ActionMove, PlayerID: "p1", Payload: json.RawMessage(`{"dx":-1}`)}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.players["p1"].Pos != (domain.Position{X: 0, Y: 0}) {
		t.Errorf("Player left the grid: %+v", s.players["p1"].Pos)
	}
	state, ok := rec.last("p1", api.MsgState)
	if !ok || len(state.Logs) == 0 || state.Logs[len(state.Logs)-1].Type != domain.LogTypeError {
		t.Errorf("Expected private edge log, got %+v", state.Logs)
	}

	if err := s.Execute(move, domain.InternalCommand{Action: domain.ActionMove, PlayerID: "p1", Payload: json.RawMessage(`{"dx":1,"dy":1}`)}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.players["p1"].Pos != (domain.Position{X: 1, Y: 1}) {
		t.Errorf("Expected (1,1), got %+v", s.players["p1"].Pos)
	}
}

func TestSession_JoinIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := NewSession("rejoin", pillarOnlyConfig(clock), newRecorder())

	first := s.Join("p1", "")
	again := s.Join("p1", "Renamed")

	if first != again {
		t.Error("Rejoin must return the same player")
	}
	if again.Name != "Renamed" {
		t.Errorf("Expected rename on rejoin, got %q", again.Name)
	}
	if len(s.Players()) != 1 {
		t.Errorf("Expected 1 player, got %d", len(s.Players()))
	}

	s.Leave("p1")
	s.Leave("p1")
	if len(s.Players()) != 0 {
		t.Errorf("Expected 0 players after leave, got %d", len(s.Players()))
	}
}

func TestSession_SkipsPlayersWithoutSubscriber(t *testing.T) {
	clock := newFakeClock()
	rec := newRecorder()
	s := NewSession("offline", pillarOnlyConfig(clock), rec)
	s.Join("p1", "")
	s.Join("p2", "")
	rec.disconnect("p2")
	rec.reset()

	clock.Advance(time.Second)
	s.Tick(clock.Now())
	s.PublishState()

	if _, ok := rec.last("p1", api.MsgMechanicWarning); !ok {
		t.Error("Connected player must get the warning")
	}
	if _, ok := rec.last("p1", api.MsgState); !ok {
		t.Error("Connected player must get STATE")
	}
	rec.mu.Lock()
	n := len(rec.msgs["p2"])
	rec.mu.Unlock()
	if n != 0 {
		t.Errorf("Disconnected player got %d messages", n)
	}
}
