// Package config loads the game settings. One Settings object is
// populated from, in order (later wins): built-in defaults, the system
// config at /etc/ravaged-planets.conf, the per-user config at
// $HOME/.ravaged-planets/config, and finally command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"ravaged-planets/internal/errs"
)

const (
	systemConfigPath = "/etc/ravaged-planets.conf"
	userConfigDir    = ".ravaged-planets"
	userConfigName   = "config"
)

// Settings is the one configuration object the rest of the game reads.
type Settings struct {
	DataPath     string
	DebugLogfile string

	// ListenPortLo..ListenPortHi is the range the peer host tries to
	// bind, first free wins.
	ListenPortLo int
	ListenPortHi int

	ServerURL string
	Lang      string

	TickRate  int
	TurnDelay int

	DebugListenAddr string

	// Bindings maps action names to key combos, from bind.<action> keys.
	Bindings map[string]string
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		DataPath:        "data",
		DebugLogfile:    "",
		ListenPortLo:    9347,
		ListenPortHi:    9357,
		ServerURL:       "http://ravaged-planets.codeka.com",
		Lang:            "en",
		TickRate:        5,
		TurnDelay:       2,
		DebugListenAddr: "127.0.0.1:6060",
		Bindings:        map[string]string{},
	}
}

// Load builds the settings from the full chain. args are the raw
// command-line arguments (without the program name).
func Load(args []string) (*Settings, error) {
	s := Defaults()

	v := viper.New()
	v.SetConfigType("properties")

	for _, path := range configFiles() {
		f, err := os.Open(path)
		if err != nil {
			continue // missing config files are fine
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, err, "config %s", path)
		}
	}
	s.applyViper(v)

	if err := s.applyFlags(args); err != nil {
		return nil, err
	}
	return s, nil
}

// configFiles lists the config paths in merge order.
func configFiles() []string {
	paths := []string{systemConfigPath}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, userConfigDir, userConfigName))
	}
	return paths
}

func (s *Settings) applyViper(v *viper.Viper) {
	if v.IsSet("data-path") {
		s.DataPath = v.GetString("data-path")
	}
	if v.IsSet("debug-logfile") {
		s.DebugLogfile = v.GetString("debug-logfile")
	}
	if v.IsSet("listen-port") {
		if lo, hi, err := parsePortRange(v.GetString("listen-port")); err == nil {
			s.ListenPortLo, s.ListenPortHi = lo, hi
		}
	}
	if v.IsSet("server-url") {
		s.ServerURL = v.GetString("server-url")
	}
	if v.IsSet("lang") {
		s.Lang = v.GetString("lang")
	}
	if v.IsSet("sim.tick-rate") {
		s.TickRate = v.GetInt("sim.tick-rate")
	}
	if v.IsSet("sim.turn-delay") {
		s.TurnDelay = v.GetInt("sim.turn-delay")
	}
	if v.IsSet("debug.listen-addr") {
		s.DebugListenAddr = v.GetString("debug.listen-addr")
	}
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, "bind.") {
			s.Bindings[strings.TrimPrefix(key, "bind.")] = v.GetString(key)
		}
	}
}

// applyFlags parses command-line overrides, the last link in the chain.
func (s *Settings) applyFlags(args []string) error {
	fs := flag.NewFlagSet("ravaged-planets", flag.ContinueOnError)

	dataPath := fs.String("data-path", s.DataPath, "path to game data")
	logfile := fs.String("debug-logfile", s.DebugLogfile, "write the debug log here")
	listen := fs.String("listen-port", fmt.Sprintf("%d-%d", s.ListenPortLo, s.ListenPortHi), "peer listen port or range a-b")
	serverURL := fs.String("server-url", s.ServerURL, "rendezvous server URL")
	lang := fs.String("lang", s.Lang, "display language")
	tickRate := fs.Int("tick-rate", s.TickRate, "simulation ticks per second")
	turnDelay := fs.Int("turn-delay", s.TurnDelay, "lockstep turn delay K")
	debugAddr := fs.String("debug-listen-addr", s.DebugListenAddr, "debug server address (loopback only)")

	if err := fs.Parse(args); err != nil {
		return errs.Wrap(errs.KindParse, err, "command line")
	}

	s.DataPath = *dataPath
	s.DebugLogfile = *logfile
	s.ServerURL = *serverURL
	s.Lang = *lang
	s.TickRate = *tickRate
	s.TurnDelay = *turnDelay
	s.DebugListenAddr = *debugAddr

	lo, hi, err := parsePortRange(*listen)
	if err != nil {
		return err
	}
	s.ListenPortLo, s.ListenPortHi = lo, hi
	return nil
}

// parsePortRange accepts "port" or "a-b".
func parsePortRange(spec string) (lo, hi int, err error) {
	parts := strings.SplitN(spec, "-", 2)
	lo, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, errs.Wrap(errs.KindParse, err, "listen-port %q", spec)
	}
	hi = lo
	if len(parts) == 2 {
		hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, errs.Wrap(errs.KindParse, err, "listen-port %q", spec)
		}
	}
	if hi < lo {
		return 0, 0, errs.New(errs.KindParse, "listen-port range %q is backwards", spec)
	}
	return lo, hi, nil
}
