package game

import (
	"testing"

	"ravaged-planets/internal/vector"
)

func TestLoadSourceParsesTemplates(t *testing.T) {
	reg := NewTemplateRegistry()
	err := reg.LoadSource(`
entity {
	name = "tank",
	health = 50,
	armor = "heavy",
	rally = vec(1, 2, 3),
	components = {
		{ "Position", { sit_on_terrain = true, orient_to_terrain = true } },
		{ "Moveable", { speed = 2.5 } },
		{ "Selectable", { selection_radius = 2 } },
	},
}
`)
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}

	tmpl := reg.Get("tank")
	if tmpl == nil {
		t.Fatal("template not registered")
	}

	// Component order is the declaration order.
	wantOrder := []string{"Position", "Moveable", "Selectable"}
	if len(tmpl.Components) != len(wantOrder) {
		t.Fatalf("components = %d, want %d", len(tmpl.Components), len(wantOrder))
	}
	for i, want := range wantOrder {
		if tmpl.Components[i].Name != want {
			t.Errorf("component[%d] = %q, want %q", i, tmpl.Components[i].Name, want)
		}
	}

	if got := tmpl.Components[0].Params.Bool("sit_on_terrain", false); !got {
		t.Error("sit_on_terrain lost")
	}
	if got := tmpl.Components[1].Params.Float("speed", 0); got != 2.5 {
		t.Errorf("speed = %g", got)
	}

	// Top-level scalars land in the attribute table.
	if got := tmpl.Attributes["health"].AsFloat(); got != 50 {
		t.Errorf("health = %g", got)
	}
	if got := tmpl.Attributes["armor"].AsString(); got != "heavy" {
		t.Errorf("armor = %q", got)
	}
	if got := tmpl.Attributes["rally"].AsVector(); got != vector.V3(1, 2, 3) {
		t.Errorf("rally = %v", got)
	}
}

func TestLoadSourceRejectsNamelessEntity(t *testing.T) {
	reg := NewTemplateRegistry()
	if err := reg.LoadSource(`entity { health = 1 }`); err == nil {
		t.Fatal("nameless template must fail")
	}
}

func TestLoadSourceRejectsBrokenLua(t *testing.T) {
	reg := NewTemplateRegistry()
	if err := reg.LoadSource(`entity { name = `); err == nil {
		t.Fatal("syntax error must fail")
	}
}

func TestAttributesCopiedToEntity(t *testing.T) {
	sim := newTestSim(t, 1)
	e := mustCreate(t, sim, "scout", 1)
	if a, ok := e.Attribute("health"); !ok || a.AsFloat() != 30 {
		t.Errorf("health attribute = %+v, %v", a, ok)
	}
	if a, ok := e.Attribute("time_to_build"); !ok || a.AsFloat() != 6 {
		t.Errorf("time_to_build attribute = %+v, %v", a, ok)
	}
}

func TestAttributeWatchers(t *testing.T) {
	sim := newTestSim(t, 1)
	e := mustCreate(t, sim, "scout", 1)

	var seen []float32
	e.WatchAttribute("health", func(a Attribute) {
		seen = append(seen, a.AsFloat())
	})
	e.SetAttribute("health", FloatAttr(12))
	e.SetAttribute("health", FloatAttr(3))
	if len(seen) != 2 || seen[0] != 12 || seen[1] != 3 {
		t.Errorf("watcher saw %v", seen)
	}
}

func TestDuplicateComponentRejected(t *testing.T) {
	reg := NewTemplateRegistry()
	err := reg.LoadSource(`
entity {
	name = "twins",
	components = {
		{ "Position", {} },
		{ "Position", {} },
	},
}
`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w := flatWorld(t)
	mgr := NewEntityManager(w, reg)
	if _, err := mgr.CreateEntity("twins", MakeEntityID(1, 1)); err == nil {
		t.Fatal("duplicate component kind must be rejected at instantiation")
	}
}
