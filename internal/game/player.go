package game

import (
	"ravaged-planets/internal/net"
	"ravaged-planets/internal/vector"
)

// Player is one participant in a game. The three variants — local,
// remote, AI — differ only in what their per-tick hook does; commands
// from all of them flow through the same lockstep pipeline.
type Player interface {
	// No returns the player number, 1..255, unique within a game.
	No() uint8
	// UserID is the rendezvous identity (0 for AI players).
	UserID() uint64
	// Name is the display name from the rendezvous service.
	Name() string
	// Color is the player's assigned color.
	Color() vector.Color
	// IsReady reports whether the player has loaded the map.
	IsReady() bool
	// SetReady flips the ready flag.
	SetReady(ready bool)
	// IsLocal reports whether this player is hosted in this process and
	// therefore emits commands here.
	IsLocal() bool
	// Update is the per-tick hook: input sampling for the local player,
	// script evaluation for AI, nothing for remotes (their traffic is
	// handled by the network drain).
	Update(sim *Simulation, dt float32)
}

// BasePlayer carries the fields every player variant shares. Embed it and
// implement IsLocal/Update.
type BasePlayer struct {
	PlayerNo    uint8
	PlayerUID   uint64
	DisplayName string
	PlayerColor vector.Color
	Ready       bool
}

func (p *BasePlayer) No() uint8           { return p.PlayerNo }
func (p *BasePlayer) UserID() uint64      { return p.PlayerUID }
func (p *BasePlayer) Name() string        { return p.DisplayName }
func (p *BasePlayer) Color() vector.Color { return p.PlayerColor }
func (p *BasePlayer) IsReady() bool       { return p.Ready }
func (p *BasePlayer) SetReady(ready bool) { p.Ready = ready }

// LocalPlayer is the human at this machine. Input arrives through the UI
// calling PostCommand / IssueOrder directly, so the tick hook is empty.
type LocalPlayer struct {
	BasePlayer
}

// NewLocalPlayer creates the local human player.
func NewLocalPlayer(no uint8, userID uint64, name string, color vector.Color) *LocalPlayer {
	return &LocalPlayer{BasePlayer{
		PlayerNo:    no,
		PlayerUID:   userID,
		DisplayName: name,
		PlayerColor: color,
	}}
}

func (p *LocalPlayer) IsLocal() bool { return true }

func (p *LocalPlayer) Update(sim *Simulation, dt float32) {}

// RemotePlayer wraps a peer connection. Its inbound commands arrive via
// the network drain; outbound batches are broadcast by the driver — the
// tick hook has nothing left to do.
type RemotePlayer struct {
	BasePlayer

	peer *net.Peer
}

// NewRemotePlayer creates a player backed by a live peer connection.
func NewRemotePlayer(no uint8, userID uint64, name string, color vector.Color, peer *net.Peer) *RemotePlayer {
	return &RemotePlayer{
		BasePlayer: BasePlayer{
			PlayerNo:    no,
			PlayerUID:   userID,
			DisplayName: name,
			PlayerColor: color,
		},
		peer: peer,
	}
}

// Peer returns the transport connection behind this player.
func (p *RemotePlayer) Peer() *net.Peer { return p.peer }

func (p *RemotePlayer) IsLocal() bool { return false }

func (p *RemotePlayer) Update(sim *Simulation, dt float32) {}
