// Command server runs a headless Ravaged Planets game host: it logs in
// to the rendezvous service, loads (or generates) a map, listens for
// peers, and drives the lockstep simulation without any renderer
// attached. Match options come from the environment so the same binary
// slots into scripts and CI.
package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"ravaged-planets/internal/ai"
	"ravaged-planets/internal/config"
	"ravaged-planets/internal/debug"
	"ravaged-planets/internal/game"
	"ravaged-planets/internal/net"
	"ravaged-planets/internal/session"
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/world"
)

func main() {
	if err := godotenv.Load(".env"); err == nil {
		log.Println("loaded environment from .env")
	}

	settings, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if settings.DebugLogfile != "" {
		f, err := os.OpenFile(settings.DebugLogfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("debug logfile %s: %v", settings.DebugLogfile, err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
		log.Printf("debug log: %s (attach this file to bug reports)", settings.DebugLogfile)
	}

	log.Println("================================")
	log.Println("  RAVAGED PLANETS - HEADLESS HOST")
	log.Println("================================")

	mapName := getEnvWithDefault("RP_MAP", "Island2")
	w, err := loadOrGenerateWorld(settings.DataPath, mapName)
	if err != nil {
		log.Fatalf("world: %v", err)
	}
	log.Printf("map %q: %dx%d terrain, %d player starts",
		w.Name, w.Terrain.Width, w.Terrain.Length, len(w.Desc.Players.Players))

	templates := game.NewTemplateRegistry()
	tmplDir := filepath.Join(settings.DataPath, "entities")
	if err := templates.LoadDir(tmplDir); err != nil {
		log.Fatalf("entity templates: %v", err)
	}
	log.Printf("loaded %d entity templates from %s", len(templates.Names()), tmplDir)

	host := net.NewHost()
	port, err := host.ListenRange(settings.ListenPortLo, settings.ListenPortHi)
	if err != nil {
		log.Fatalf("net: %v", err)
	}
	log.Printf("listening for peers on port %d", port)

	sess := session.New(settings.ServerURL)
	defer sess.Stop()

	userName := getEnvWithDefault("RP_USER", "host")
	sess.Login(userName, os.Getenv("RP_PASSWORD"), port, func(err error) {
		if err != nil {
			log.Printf("rendezvous login failed: %v (continuing offline)", err)
			return
		}
		log.Printf("logged in as %q, user id %d", userName, sess.UserID())
		sess.CreateGame(func(gameID uint64, err error) {
			if err != nil {
				log.Printf("create-game failed: %v", err)
				return
			}
			log.Printf("created game %d", gameID)
		})
	})

	simCfg := game.SimConfig{
		TickRate:      settings.TickRate,
		TurnDelay:     uint32(settings.TurnDelay),
		Seed:          getEnvInt64("RP_SEED", 1),
		LocalPlayerNo: 1,
	}
	sim := game.NewSimulation(simCfg, w, templates)
	sim.AttachNetwork(host, sess, mapName)

	local := game.NewLocalPlayer(1, sess.UserID(), userName, vector.PlayerPalette[0])
	sim.AddPlayer(local)

	var aiPlayers []*ai.AiPlayer
	if scriptPath := os.Getenv("RP_AI_SCRIPT"); scriptPath != "" {
		src, err := os.ReadFile(scriptPath)
		if err != nil {
			log.Fatalf("ai script %s: %v", scriptPath, err)
		}
		aiPlayer, err := ai.New(sim, 2, "ai-2", vector.PlayerPalette[1], string(src))
		if err != nil {
			log.Fatalf("ai script %s: %v", scriptPath, err)
		}
		sim.AddPlayer(aiPlayer)
		aiPlayers = append(aiPlayers, aiPlayer)
		log.Printf("ai player 2 running %s", scriptPath)
	}

	if logPath := getEnvWithDefault("RP_EVENT_LOG", "events.jsonl"); logPath != "" {
		if err := sim.EventLog().Start(logPath); err != nil {
			log.Printf("event log disabled: %v", err)
		} else {
			log.Printf("event log: %s", logPath)
		}
	}

	debugCfg := debug.DefaultConfig()
	debugCfg.ListenAddr = settings.DebugListenAddr
	debug.StartServer(debugCfg, func() map[string]interface{} {
		snap := sim.Snapshot()
		return map[string]interface{}{
			"turn":     snap.Turn,
			"entities": len(snap.Entities),
			"players":  len(snap.Players),
			"session":  sess.State().String(),
		}
	})

	// Place the host's starting units at this map's player-1 start.
	seedStartingUnits(sim, w)
	sim.AnnounceReady()

	go sim.Run()
	log.Printf("simulation started at %d ticks/s (turn delay %d)", simCfg.TickRate, simCfg.TurnDelay)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	sim.Stop()
	for _, p := range aiPlayers {
		p.Close()
	}
	host.Stop()
	if settings.DebugLogfile != "" {
		log.Printf("debug log written to %s", settings.DebugLogfile)
	}
}

// loadOrGenerateWorld reads the map directory if it exists, otherwise
// generates a deterministic rolling terrain so the host can run without
// any data files.
func loadOrGenerateWorld(dataPath, mapName string) (*world.World, error) {
	dir := filepath.Join(dataPath, "maps", mapName)
	if _, err := os.Stat(dir); err == nil {
		return world.LoadMap(dir)
	}
	log.Printf("map dir %s not found, generating terrain", dir)
	t, err := world.NewTerrain(256, 256)
	if err != nil {
		return nil, err
	}
	world.GenerateRolling(t, 1, 2)
	w := world.NewWorld(mapName, t)
	w.Desc.Players.Players = []world.MapPlayer{
		{No: 1, Start: "32 32"},
		{No: 2, Start: "224 224"},
	}
	return w, nil
}

// seedStartingUnits creates the local player's factory at its start
// position via the command pipeline so every peer agrees.
func seedStartingUnits(sim *game.Simulation, w *world.World) {
	for _, p := range w.Desc.Players.Players {
		if uint8(p.No) != sim.Config().LocalPlayerNo {
			continue
		}
		x, z, err := p.StartPosition()
		if err != nil {
			log.Printf("bad start position for player %d: %v", p.No, err)
			return
		}
		id, err := sim.Entities().AllocateID(uint8(p.No))
		if err != nil {
			log.Printf("allocating start unit id: %v", err)
			return
		}
		sim.PostCommand(&game.CreateEntityCommand{
			ID:       id,
			Template: "factory",
			Pos:      vector.V3(x, 0, z),
			Goal:     vector.V3(x, 0, z),
		})
	}
}

func getEnvWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
