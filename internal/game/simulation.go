package game

import (
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"ravaged-planets/internal/debug"
	"ravaged-planets/internal/game/pathfind"
	"ravaged-planets/internal/net"
	"ravaged-planets/internal/wire"
	"ravaged-planets/internal/world"
)

// SimConfig configures a simulation instance.
type SimConfig struct {
	// TickRate is simulation ticks per second. The default is 5 (200 ms
	// per tick).
	TickRate int

	// TurnDelay is K: the number of turns between posting a command and
	// executing it. Every peer must agree; the host announces it in the
	// join response.
	TurnDelay uint32

	// Seed feeds the simulation PRNG. Identical on every peer.
	Seed int64

	// LocalPlayerNo is the number of the player this process represents.
	LocalPlayerNo uint8
}

// DefaultSimConfig returns the standard 5 Hz, K=2 configuration.
func DefaultSimConfig() SimConfig {
	return SimConfig{TickRate: 5, TurnDelay: 2, Seed: 1}
}

// Simulation is the lockstep driver. It advances game state in discrete
// turns on a dedicated goroutine: drain the network, execute the turn's
// commands, update the players and every entity, then flush the commands
// posted this tick to turn current+K locally and on every peer.
//
// State is single-writer: only the simulation goroutine touches the
// entity store. Everything another thread needs goes through PostCommand,
// Defer, or the published snapshot.
type Simulation struct {
	cfg SimConfig

	world  *world.World
	mgr    *EntityManager
	worker *pathfind.Worker
	host   *net.Host
	net    *netGlue

	players []Player // ascending player number

	turn      uint32
	started   bool
	stopFlag  bool
	fatalErr  error
	rng       *rand.Rand
	snapshots *SnapshotPool
	eventLog  *EventLog

	postedMu sync.Mutex
	posted   []Command

	deferredMu sync.Mutex
	deferred   []func()

	scheduled map[uint32][]Command

	createdHooks   []func(*Entity)
	destroyedHooks []func(EntityID)
	chatHooks      []func(playerNo uint8, message string)

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	runMu    sync.Mutex
}

// NewSimulation builds a simulation over a loaded world and template set.
// The pathfinder worker is created but not started; Run starts it, or
// call StartPathfinder yourself when driving ticks manually.
func NewSimulation(cfg SimConfig, w *world.World, templates *TemplateRegistry) *Simulation {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 5
	}
	if cfg.TurnDelay == 0 {
		cfg.TurnDelay = 2
	}
	sim := &Simulation{
		cfg:       cfg,
		world:     w,
		mgr:       NewEntityManager(w, templates),
		worker:    pathfind.NewWorker(pathfind.New(w.Collision)),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		snapshots: NewSnapshotPool(),
		eventLog:  NewEventLog(),
		scheduled: make(map[uint32][]Command),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
	sim.mgr.sim = sim
	return sim
}

// Entities returns the entity store.
func (s *Simulation) Entities() *EntityManager { return s.mgr }

// World returns the spatial model.
func (s *Simulation) World() *world.World { return s.world }

// Pathfinder returns the async path worker.
func (s *Simulation) Pathfinder() *pathfind.Worker { return s.worker }

// EventLog returns the audit log.
func (s *Simulation) EventLog() *EventLog { return s.eventLog }

// Config returns the simulation configuration.
func (s *Simulation) Config() SimConfig { return s.cfg }

// Turn returns the current turn number.
func (s *Simulation) Turn() uint32 { return s.turn }

// Rand returns the deterministic simulation PRNG. Simulation code must
// draw randomness only from here.
func (s *Simulation) Rand() *rand.Rand { return s.rng }

// TickInterval returns the wall-clock duration of one tick.
func (s *Simulation) TickInterval() time.Duration {
	return time.Second / time.Duration(s.cfg.TickRate)
}

// Started reports whether the match is underway (after which joins are
// refused).
func (s *Simulation) Started() bool { return s.started }

// StartMatch flips the simulation into the running-match state.
func (s *Simulation) StartMatch() { s.started = true }

// FatalError returns the invariant failure that aborted the simulation,
// if any.
func (s *Simulation) FatalError() error { return s.fatalErr }

// AddPlayer inserts a player, keeping the list in ascending player-number
// order. Pre-game only; the caller enforces the late-join rule.
func (s *Simulation) AddPlayer(p Player) {
	i := sort.Search(len(s.players), func(i int) bool { return s.players[i].No() >= p.No() })
	s.players = append(s.players, nil)
	copy(s.players[i+1:], s.players[i:])
	s.players[i] = p
}

// RemovePlayer drops a player by number. Their entities stay; the game
// continues without them.
func (s *Simulation) RemovePlayer(no uint8) {
	for i, p := range s.players {
		if p.No() == no {
			s.players = append(s.players[:i], s.players[i+1:]...)
			log.Printf("game: lost player %d (%s)", no, p.Name())
			return
		}
	}
}

// Players returns the players in ascending number order.
func (s *Simulation) Players() []Player {
	return append([]Player(nil), s.players...)
}

// PlayerByNo returns the player with the given number, or nil.
func (s *Simulation) PlayerByNo(no uint8) Player {
	for _, p := range s.players {
		if p.No() == no {
			return p
		}
	}
	return nil
}

// IsLocallyHosted reports whether the numbered player runs in this
// process — the human at the keyboard or an AI — and therefore emits
// commands here.
func (s *Simulation) IsLocallyHosted(no uint8) bool {
	if no == s.cfg.LocalPlayerNo {
		return true
	}
	p := s.PlayerByNo(no)
	return p != nil && p.IsLocal()
}

// PostCommand schedules a command from the local player. Safe from any
// thread; the command executes on every peer at turn current+K.
func (s *Simulation) PostCommand(c Command) {
	s.PostCommandFrom(s.cfg.LocalPlayerNo, c)
}

// PostCommandFrom schedules a command on behalf of a locally hosted
// player (the local human or an AI).
func (s *Simulation) PostCommandFrom(playerNo uint8, c Command) {
	c.SetPlayer(playerNo)
	s.postedMu.Lock()
	s.posted = append(s.posted, c)
	s.postedMu.Unlock()
}

// EnqueueCommand schedules a command for a specific turn. Used by the
// network drain when a remote batch arrives; simulation thread only.
func (s *Simulation) EnqueueCommand(c Command, turn uint32) {
	if turn <= s.turn {
		// A command for a turn already executed can only mean the peer
		// and we disagree on the schedule. Surface it loudly.
		log.Printf("game: command %v for past turn %d (now %d), dropping", c, turn, s.turn)
		return
	}
	s.scheduled[turn] = append(s.scheduled[turn], c)
}

// Defer runs fn on the simulation goroutine at the start of the next
// tick. Safe from any thread; the bridge for callbacks that finish on
// other goroutines (rendezvous confirmations, chat hooks).
func (s *Simulation) Defer(fn func()) {
	s.deferredMu.Lock()
	s.deferred = append(s.deferred, fn)
	s.deferredMu.Unlock()
}

// OnEntityCreated registers a hook run whenever an entity joins the
// store. Hooks run on the simulation goroutine.
func (s *Simulation) OnEntityCreated(fn func(*Entity)) {
	s.createdHooks = append(s.createdHooks, fn)
}

// OnEntityDestroyed registers a hook run when an entity is removed.
func (s *Simulation) OnEntityDestroyed(fn func(EntityID)) {
	s.destroyedHooks = append(s.destroyedHooks, fn)
}

// OnChat registers a hook for inbound chat messages.
func (s *Simulation) OnChat(fn func(playerNo uint8, message string)) {
	s.chatHooks = append(s.chatHooks, fn)
}

func (s *Simulation) entityCreated(e *Entity) {
	s.eventLog.Emit(Event{Turn: s.turn, Type: EventEntityCreated, Entity: uint32(e.ID()), Detail: e.Template()})
	for _, fn := range s.createdHooks {
		fn(e)
	}
}

func (s *Simulation) entityDestroyed(id EntityID) {
	s.eventLog.Emit(Event{Turn: s.turn, Type: EventEntityDestroyed, Entity: uint32(id)})
	for _, fn := range s.destroyedHooks {
		fn(id)
	}
}

// markPlayerConnected handles a ConnectPlayerCommand reaching its turn.
func (s *Simulation) markPlayerConnected(no uint8) {
	if p := s.PlayerByNo(no); p != nil {
		p.SetReady(true)
	}
}

// Fatalf records an invariant failure and aborts the simulation: the
// error is logged, the audit log flushed, and the run loop told to stop.
func (s *Simulation) Fatalf(format string, args ...interface{}) {
	log.Printf("game: FATAL: "+format, args...)
	if s.fatalErr == nil {
		s.fatalErr = &invariantFailure{}
	}
	s.eventLog.Stop()
	s.requestStop()
}

type invariantFailure struct{}

func (e *invariantFailure) Error() string { return "simulation invariant violated" }

// Tick advances the simulation one turn. Exported so tests and headless
// drivers can step manually; Run calls it on the tick timer.
func (s *Simulation) Tick() {
	start := time.Now()
	dt := float32(1) / float32(s.cfg.TickRate)

	// 1. Pull inbound peer events and adopt accepted joiners.
	if s.net != nil {
		s.net.drain()
	}
	s.drainDeferred()

	// 2. Complete last tick's deferred destroys before anything runs.
	s.mgr.FlushDestroyed()

	// 3. Execute this turn's commands: ascending issuing player, arrival
	// order within a player — the cross-peer determinism rule.
	if cmds := s.scheduled[s.turn]; len(cmds) > 0 {
		delete(s.scheduled, s.turn)
		sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Player() < cmds[j].Player() })
		for _, c := range cmds {
			s.eventLog.Emit(Event{Turn: s.turn, Type: EventCommand, PlayerNo: c.Player(), Detail: c.String()})
			debug.CountCommand()
			c.Execute(s)
		}
	}

	// 4. Per-player tick hooks, ascending player number.
	for _, p := range s.players {
		p.Update(s, dt)
	}

	// 5. Entity updates in id order, component-kind order within each.
	s.mgr.UpdateAll(dt)

	// 6. Flush the batch posted during this tick: schedule locally at
	// current+K and hand the same turn tag to every peer.
	s.postedMu.Lock()
	batch := s.posted
	s.posted = nil
	s.postedMu.Unlock()

	if len(batch) > 0 {
		target := s.turn + s.cfg.TurnDelay
		for _, c := range batch {
			s.EnqueueCommand(c, target)
		}
		if s.host != nil {
			s.broadcastBatch(batch, target)
		}
	}

	// 7. Publish the renderer's snapshot and advance the turn.
	s.publishSnapshot()
	s.turn++

	debug.RecordTick(time.Since(start))
	debug.SetEntityCount(s.mgr.Count())
	debug.SetPathQueueDepth(s.worker.QueueDepth())
}

func (s *Simulation) drainDeferred() {
	s.deferredMu.Lock()
	fns := s.deferred
	s.deferred = nil
	s.deferredMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Simulation) broadcastBatch(batch []Command, turn uint32) {
	pkt := &net.CommandBatch{Turn: turn}
	for _, c := range batch {
		pkt.Commands = append(pkt.Commands, net.WireCommand{
			PlayerNo: c.Player(),
			Data:     EncodeCommand(c),
		})
	}
	s.host.Broadcast(pkt, 0, true)
}

// StartPathfinder launches the path worker without the run loop, for
// headless drivers that call Tick themselves.
func (s *Simulation) StartPathfinder() { s.worker.Start() }

// Run starts the dedicated simulation goroutine at the configured tick
// rate and blocks until Stop. Network receive is drained with zero
// timeout inside the tick; sends never block the loop.
func (s *Simulation) Run() {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.runMu.Unlock()

	s.worker.Start()
	ticker := time.NewTicker(s.TickInterval())
	defer ticker.Stop()
	defer close(s.doneChan)

	log.Printf("game: simulation running at %d ticks/s, turn delay %d", s.cfg.TickRate, s.cfg.TurnDelay)
	for {
		select {
		case <-ticker.C:
			s.Tick()
			if s.stopFlag {
				return
			}
		case <-s.stopChan:
			// Cooperative stop: finish the current tick boundary and go.
			return
		}
	}
}

func (s *Simulation) requestStop() {
	s.stopFlag = true
}

// Stop asks the simulation goroutine to exit after its current tick and
// shuts the path worker down.
func (s *Simulation) Stop() {
	s.runMu.Lock()
	running := s.running
	s.running = false
	s.runMu.Unlock()

	if running {
		close(s.stopChan)
		<-s.doneChan
	}
	s.worker.Stop()
	s.eventLog.Stop()
}

// SerializeState writes the turn number and the full entity state dump.
func (s *Simulation) SerializeState(w *wire.Writer) {
	w.PutU32(s.turn)
	s.mgr.SerializeState(w)
}
