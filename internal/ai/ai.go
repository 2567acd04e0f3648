// Package ai hosts scripted players. An AiPlayer embeds a Lua
// interpreter whose script drives units through exactly the same command
// pipeline as a human: issue_order posts an OrderCommand and the script's
// intent executes on every peer K turns later.
//
// Determinism rules for scripts: no wall clock, no ambient randomness.
// The host exposes sim.time() (simulation seconds) and sim.random() (a
// PRNG seeded identically on every peer) instead.
package ai

import (
	"log"
	"math/rand"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/game"
	"ravaged-planets/internal/vector"
)

// AiPlayer is a script-driven player. It satisfies game.Player; IsLocal
// is true because the script runs in this process and its commands are
// posted here.
type AiPlayer struct {
	game.BasePlayer

	sim *game.Simulation
	L   *lua.LState
	rng *rand.Rand

	simTime float64
	timers  []scriptTimer
	nextID  int
	events  map[string][]*lua.LFunction
}

type scriptTimer struct {
	fireAt float64
	seq    int // insertion order breaks fire-time ties deterministically
	fn     *lua.LFunction
}

// New compiles the script and returns the ready player. The script runs
// once at construction (match start) to register its timers and event
// handlers.
func New(sim *game.Simulation, no uint8, name string, color vector.Color, script string) (*AiPlayer, error) {
	p := &AiPlayer{
		BasePlayer: game.BasePlayer{
			PlayerNo:    no,
			DisplayName: name,
			PlayerColor: color,
			Ready:       true,
		},
		sim:    sim,
		rng:    rand.New(rand.NewSource(sim.Config().Seed + int64(no))),
		events: make(map[string][]*lua.LFunction),
	}

	p.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	p.register()

	if err := p.L.DoString(script); err != nil {
		p.L.Close()
		return nil, errs.Wrap(errs.KindScript, err, "ai player %d script", no)
	}

	// The script acts through the simulation like anyone else.
	sim.OnEntityCreated(func(e *game.Entity) {
		p.fireEvent("unit_created", lua.LNumber(uint32(e.ID())), lua.LString(e.Template()))
	})
	sim.OnEntityDestroyed(func(id game.EntityID) {
		p.fireEvent("unit_destroyed", lua.LNumber(uint32(id)))
	})
	return p, nil
}

// SetGlobalInt exposes a numeric value to the script, e.g. the ids of
// the units the AI starts with.
func (p *AiPlayer) SetGlobalInt(name string, v int64) {
	p.L.SetGlobal(name, lua.LNumber(v))
}

// Close releases the interpreter.
func (p *AiPlayer) Close() {
	if p.L != nil {
		p.L.Close()
		p.L = nil
	}
}

func (p *AiPlayer) IsLocal() bool { return true }

// Update advances the script clock and fires due timers. A script error
// kills its callback, never the simulation.
func (p *AiPlayer) Update(sim *game.Simulation, dt float32) {
	p.simTime += float64(dt)

	// Timers fire in (time, registration) order so every run agrees.
	sort.SliceStable(p.timers, func(i, j int) bool {
		if p.timers[i].fireAt != p.timers[j].fireAt {
			return p.timers[i].fireAt < p.timers[j].fireAt
		}
		return p.timers[i].seq < p.timers[j].seq
	})
	n := 0
	for _, t := range p.timers {
		if t.fireAt <= p.simTime {
			p.protectedCall(t.fn)
		} else {
			p.timers[n] = t
			n++
		}
	}
	p.timers = p.timers[:n]
}

// fireEvent invokes every handler subscribed to the named event.
func (p *AiPlayer) fireEvent(name string, args ...lua.LValue) {
	for _, fn := range p.events[name] {
		p.protectedCall(fn, args...)
	}
}

// protectedCall isolates one script callback: exceptions are caught and
// logged as script errors, and the simulation carries on.
func (p *AiPlayer) protectedCall(fn *lua.LFunction, args ...lua.LValue) {
	if p.L == nil {
		return
	}
	err := p.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if err != nil {
		log.Printf("ai: player %d callback: %v", p.PlayerNo, errs.Wrap(errs.KindScript, err, "script"))
	}
}

// register installs the host API: timer, event, issue_order, and the
// deterministic sim.time/sim.random pair.
func (p *AiPlayer) register() {
	L := p.L

	L.SetGlobal("timer", L.NewFunction(func(L *lua.LState) int {
		seconds := float64(L.CheckNumber(1))
		fn := L.CheckFunction(2)
		p.timers = append(p.timers, scriptTimer{fireAt: p.simTime + seconds, seq: p.nextID, fn: fn})
		p.nextID++
		return 0
	}))

	L.SetGlobal("event", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		p.events[name] = append(p.events[name], fn)
		return 0
	}))

	L.SetGlobal("issue_order", L.NewFunction(func(L *lua.LState) int {
		units := L.CheckTable(1)
		kind := L.CheckString(2)
		params := L.OptTable(3, L.NewTable())

		if _, err := p.buildOrder(kind, params); err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		units.ForEach(func(_, v lua.LValue) {
			num, ok := v.(lua.LNumber)
			if !ok {
				return
			}
			// One command per unit; each carries its own order copy.
			o, _ := p.buildOrder(kind, params)
			p.sim.PostCommandFrom(p.PlayerNo, &game.OrderCommand{
				Entity: game.EntityID(uint32(num)),
				Order:  o,
			})
		})
		return 0
	}))

	simTbl := L.NewTable()
	simTbl.RawSetString("time", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(p.simTime))
		return 1
	}))
	simTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(p.rng.Float64()))
		return 1
	}))
	L.SetGlobal("sim", simTbl)
}

// buildOrder translates a script order kind and parameter table into a
// real order.
func (p *AiPlayer) buildOrder(kind string, params *lua.LTable) (game.Order, error) {
	switch kind {
	case "move":
		return &game.MoveOrder{Goal: vecFromLua(params)}, nil
	case "attack":
		target, ok := params.RawGetString("target").(lua.LNumber)
		if !ok {
			return nil, errs.New(errs.KindScript, "attack order needs a target id")
		}
		return &game.AttackOrder{Target: game.EntityID(uint32(target))}, nil
	case "build":
		tmpl := lua.LVAsString(params.RawGetString("template"))
		if tmpl == "" {
			return nil, errs.New(errs.KindScript, "build order needs a template name")
		}
		return &game.BuildOrder{Template: tmpl}, nil
	default:
		return nil, errs.New(errs.KindScript, "unknown order kind %q", kind)
	}
}

func vecFromLua(t *lua.LTable) vector.Vec3 {
	get := func(key string) float32 {
		if n, ok := t.RawGetString(key).(lua.LNumber); ok {
			return float32(n)
		}
		return 0
	}
	if goal, ok := t.RawGetString("goal").(*lua.LTable); ok {
		t = goal
		return vecFromLua(t)
	}
	return vector.V3(get("x"), get("y"), get("z"))
}
