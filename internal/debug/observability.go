// Package debug hosts the localhost-only observability server and the
// simulation metrics it serves: pprof, Prometheus metrics, and a small
// status endpoint. It must never be exposed beyond loopback.
package debug

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality — no per-entity or per-player labels.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.2},
	})

	entityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_entity_count",
		Help: "Live entities in the store",
	})

	commandsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_commands_executed_total",
		Help: "Commands executed by the lockstep schedule",
	})

	peerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "net_peer_count",
		Help: "Connected peers",
	})

	pathQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathfind_queue_depth",
		Help: "Requests waiting for the pathfinder worker",
	})
)

// RecordTick observes one tick's duration.
func RecordTick(d time.Duration) { tickDuration.Observe(d.Seconds()) }

// SetEntityCount updates the live entity gauge.
func SetEntityCount(n int) { entityCount.Set(float64(n)) }

// CountCommand increments the executed-command counter.
func CountCommand() { commandsExecuted.Inc() }

// SetPeerCount updates the connected peer gauge.
func SetPeerCount(n int) { peerCount.Set(float64(n)) }

// SetPathQueueDepth updates the pathfinder inbox gauge.
func SetPathQueueDepth(n int) { pathQueueDepth.Set(float64(n)) }

// Config configures the debug server.
type Config struct {
	Enabled    bool
	ListenAddr string // must stay on loopback
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// StatusFunc supplies the /status payload.
type StatusFunc func() map[string]interface{}

// StartServer launches the debug server in the background. The listen
// address is forced to loopback unless explicitly overridden via env.
func StartServer(cfg Config, status StatusFunc) error {
	if !cfg.Enabled {
		log.Println("debug: server disabled")
		return nil
	}
	if !strings.HasPrefix(cfg.ListenAddr, "127.0.0.1:") && !strings.HasPrefix(cfg.ListenAddr, "localhost:") {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("debug: server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]interface{}{}
		if status != nil {
			payload = status()
		}
		json.NewEncoder(w).Encode(payload)
	})

	go func() {
		log.Printf("debug: server on http://%s (pprof, /metrics, /status)", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
			log.Printf("debug: server error: %v", err)
		}
	}()
	return nil
}
