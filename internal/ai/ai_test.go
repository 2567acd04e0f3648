package ai

import (
	"testing"

	"ravaged-planets/internal/game"
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/world"
)

const testTemplates = `
entity {
	name = "scout",
	health = 30,
	components = {
		{ "Position", { sit_on_terrain = true } },
		{ "Ownable", {} },
		{ "Selectable", { selection_radius = 1.5 } },
		{ "Damageable", {} },
		{ "Orderable", {} },
		{ "Moveable", { speed = 4, turn_rate = 4, avoid_collisions = false } },
	},
}
`

func newTestSim(t *testing.T) *game.Simulation {
	t.Helper()
	terrain, err := world.NewTerrain(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	reg := game.NewTemplateRegistry()
	if err := reg.LoadSource(testTemplates); err != nil {
		t.Fatal(err)
	}
	return game.NewSimulation(game.SimConfig{
		TickRate:      5,
		TurnDelay:     2,
		Seed:          1,
		LocalPlayerNo: 1,
	}, world.NewWorld("test", terrain), reg)
}

func TestTimerFiresOnSimClock(t *testing.T) {
	sim := newTestSim(t)
	script := `
fired = 0
timer(0.5, function() fired = fired + 1 end)
timer(10, function() fired = fired + 100 end)
`
	p, err := New(sim, 2, "bot", vector.PlayerPalette[1], script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	sim.AddPlayer(p)

	// 0.5 s at 5 Hz is 3 ticks (dt accumulates at 0.2 per tick).
	for i := 0; i < 3; i++ {
		sim.Tick()
	}
	if got := p.L.GetGlobal("fired").String(); got != "1" {
		t.Errorf("fired = %s after 0.6 s, want 1 (late timer must not run)", got)
	}
}

func TestIssueOrderPostsThroughPipeline(t *testing.T) {
	sim := newTestSim(t)
	unit, err := sim.Entities().CreateEntity("scout", game.MakeEntityID(2, 1))
	if err != nil {
		t.Fatal(err)
	}

	// The unit id goes in as a Lua global rather than string formatting.
	p, err := New(sim, 2, "bot", vector.PlayerPalette[1], `
timer(0.1, function()
	issue_order({ unit_id }, "move", { goal = { x = 30, y = 0, z = 30 } })
end)
`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	p.SetGlobalInt("unit_id", int64(uint32(unit.ID())))
	sim.AddPlayer(p)

	// Timer fires on the first tick; the order command executes K turns
	// after the tick that posted it.
	for i := 0; i < 6; i++ {
		sim.Tick()
	}
	if goal, ok := game.MoveableOf(unit).Goal(); !ok || goal != vector.V3(30, 0, 30) {
		t.Fatalf("unit goal = %v, %v — order never executed", goal, ok)
	}
}

func TestScriptErrorDoesNotAbortSimulation(t *testing.T) {
	sim := newTestSim(t)
	p, err := New(sim, 2, "bot", vector.PlayerPalette[1], `
timer(0.1, function() error("deliberate script failure") end)
timer(0.5, function() survived = true end)
`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	sim.AddPlayer(p)

	for i := 0; i < 4; i++ {
		sim.Tick()
	}
	if got := p.L.GetGlobal("survived").String(); got != "true" {
		t.Errorf("later timer did not run after script error (survived = %s)", got)
	}
	if sim.FatalError() != nil {
		t.Error("script error must never be fatal to the simulation")
	}
}

func TestEventFiresOnUnitCreated(t *testing.T) {
	sim := newTestSim(t)
	p, err := New(sim, 2, "bot", vector.PlayerPalette[1], `
seen = 0
event("unit_created", function(id, template) seen = seen + 1 end)
`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	sim.AddPlayer(p)

	if _, err := sim.Entities().CreateEntity("scout", game.MakeEntityID(1, 1)); err != nil {
		t.Fatal(err)
	}
	if got := p.L.GetGlobal("seen").String(); got != "1" {
		t.Errorf("seen = %s, want 1", got)
	}
}

func TestSimRandomIsSeeded(t *testing.T) {
	build := func() string {
		sim := newTestSim(t)
		p, err := New(sim, 2, "bot", vector.PlayerPalette[1], `r = sim.random()`)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer p.Close()
		return p.L.GetGlobal("r").String()
	}
	if a, b := build(), build(); a != b {
		t.Errorf("seeded PRNG differs across identically seeded runs: %s vs %s", a, b)
	}
}

func TestCompileErrorSurfaces(t *testing.T) {
	sim := newTestSim(t)
	if _, err := New(sim, 2, "bot", vector.PlayerPalette[1], `this is not lua`); err == nil {
		t.Fatal("broken script must fail at construction")
	}
}
