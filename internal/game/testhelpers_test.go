package game

import (
	"testing"

	"ravaged-planets/internal/world"
)

// testTemplates is the fixture roster: a factory that builds scouts, a
// turret firing ballistic shells, and a few support templates.
const testTemplates = `
entity {
	name = "factory",
	health = 100,
	components = {
		{ "Position", { sit_on_terrain = true } },
		{ "Ownable", {} },
		{ "Selectable", { selection_radius = 2 } },
		{ "Damageable", {} },
		{ "Orderable", {} },
		{ "Builder", {} },
	},
}

entity {
	name = "scout",
	health = 30,
	time_to_build = 6,
	components = {
		{ "Position", { sit_on_terrain = true } },
		{ "Ownable", {} },
		{ "Selectable", { selection_radius = 1.5 } },
		{ "Damageable", { explosion = "explosion" } },
		{ "Orderable", {} },
		{ "Moveable", { speed = 4, turn_rate = 4, avoid_collisions = false } },
	},
}

entity {
	name = "rover",
	health = 30,
	components = {
		{ "Position", { sit_on_terrain = true } },
		{ "Ownable", {} },
		{ "Selectable", { selection_radius = 1.5 } },
		{ "Damageable", {} },
		{ "Orderable", {} },
		{ "Pathing", {} },
		{ "Moveable", { speed = 4, turn_rate = 4 } },
	},
}

entity {
	name = "turret",
	health = 80,
	components = {
		{ "Position", { sit_on_terrain = true } },
		{ "Ownable", {} },
		{ "Selectable", { selection_radius = 2 } },
		{ "Damageable", {} },
		{ "Orderable", {} },
		{ "Weapon", { projectile = "shell", range = 20, fire_interval = 5, fire_offset = vec(0, 1, 1) } },
	},
}

entity {
	name = "shell",
	health = 1,
	components = {
		{ "Position", {} },
		{ "Projectile", { behavior = "ballistic", speed = 10, damage = 30 } },
		{ "Damageable", {} },
	},
}

entity {
	name = "explosion",
	components = {
		{ "Position", { sit_on_terrain = true } },
		{ "ParticleEffect", { effect = "boom", lifetime = 1 } },
		{ "Audio", { explode = "explosion_cue" } },
	},
}
`

func testRegistry(t *testing.T) *TemplateRegistry {
	t.Helper()
	reg := NewTemplateRegistry()
	if err := reg.LoadSource(testTemplates); err != nil {
		t.Fatalf("loading test templates: %v", err)
	}
	return reg
}

func flatWorld(t *testing.T) *world.World {
	t.Helper()
	terrain, err := world.NewTerrain(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	return world.NewWorld("test", terrain)
}

// newTestSim builds a simulation with one locally hosted player (1) and
// no network, ready for manual Tick stepping.
func newTestSim(t *testing.T, seed int64) *Simulation {
	t.Helper()
	sim := NewSimulation(SimConfig{
		TickRate:      5,
		TurnDelay:     2,
		Seed:          seed,
		LocalPlayerNo: 1,
	}, flatWorld(t), testRegistry(t))
	sim.AddPlayer(NewLocalPlayer(1, 100, "alice", 0xff0000ff))
	return sim
}

// step advances the simulation n ticks.
func step(sim *Simulation, n int) {
	for i := 0; i < n; i++ {
		sim.Tick()
	}
}

// mustCreate builds an entity from a template at an allocated id.
func mustCreate(t *testing.T, sim *Simulation, template string, playerNo uint8) *Entity {
	t.Helper()
	id, err := sim.Entities().AllocateID(playerNo)
	if err != nil {
		t.Fatalf("allocate id: %v", err)
	}
	e, err := sim.Entities().CreateEntity(template, id)
	if err != nil {
		t.Fatalf("create %q: %v", template, err)
	}
	return e
}
