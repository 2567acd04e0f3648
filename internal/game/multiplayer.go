package game

import (
	"log"

	"golang.org/x/time/rate"

	"ravaged-planets/internal/debug"
	"ravaged-planets/internal/net"
	"ravaged-planets/internal/session"
	"ravaged-planets/internal/vector"
)

// netGlue wires a Simulation to its transport host and rendezvous
// session: the join handshake on both sides, chat, start-of-game
// signaling, and command batch exchange. All handlers run on the
// simulation goroutine; rendezvous confirmations complete on the session
// goroutine and hop back via Defer.
type netGlue struct {
	sim     *Simulation
	host    *net.Host
	sess    *session.Session
	mapName string

	// Inbound chat is rate limited per game, not per peer — a chat flood
	// must not eat the tick budget.
	chatLimiter *rate.Limiter
}

// AttachNetwork connects the simulation to a listening host and a logged
// in rendezvous session. mapName is what joiners are told to load.
func (s *Simulation) AttachNetwork(host *net.Host, sess *session.Session, mapName string) {
	s.host = host
	s.net = &netGlue{
		sim:         s,
		host:        host,
		sess:        sess,
		mapName:     mapName,
		chatLimiter: rate.NewLimiter(10, 20),
	}
}

// SendChat relays a chat line to every peer.
func (s *Simulation) SendChat(message string) {
	if s.host != nil {
		s.host.Broadcast(&net.Chat{Message: message}, 0, true)
	}
}

// AnnounceReady tells every peer we have loaded the map: immediately via
// the StartGame packet, and through the lockstep schedule itself with a
// ConnectPlayerCommand so the turn the player entered the game is part
// of shared state.
func (s *Simulation) AnnounceReady() {
	if p := s.PlayerByNo(s.cfg.LocalPlayerNo); p != nil {
		p.SetReady(true)
	}
	s.PostCommand(&ConnectPlayerCommand{})
	if s.host != nil {
		s.host.Broadcast(&net.StartGame{}, 0, true)
	}
	s.maybeStartMatch()
}

// maybeStartMatch flips into the running state once every player is
// ready. After this point joins are refused.
func (s *Simulation) maybeStartMatch() {
	if s.started || len(s.players) == 0 {
		return
	}
	for _, p := range s.players {
		if !p.IsReady() {
			return
		}
	}
	s.StartMatch()
	log.Printf("game: all %d players ready, match started", len(s.players))
}

// drain pulls transport events without blocking. Called once per tick.
func (g *netGlue) drain() {
	for _, ev := range g.host.Update() {
		switch ev.Type {
		case net.EventConnected:
			log.Printf("game: peer connected from %s", ev.Peer.Addr())
		case net.EventDisconnected:
			g.peerLost(ev.Peer)
		case net.EventReceived:
			g.handlePacket(ev)
		}
	}
	debug.SetPeerCount(len(g.host.Peers()))
}

// peerLost removes the player behind a dead connection. Commands the
// peer already delivered for future turns still execute; the game goes
// on without them.
func (g *netGlue) peerLost(peer *net.Peer) {
	no := peer.PlayerNo()
	if no == 0 {
		return // handshake never finished
	}
	g.sim.RemovePlayer(no)
	g.sim.eventLog.Emit(Event{Turn: g.sim.turn, Type: EventPlayerLost, PlayerNo: no})
}

func (g *netGlue) handlePacket(ev net.Event) {
	switch pkt := ev.Packet.(type) {
	case *net.JoinRequest:
		g.handleJoinRequest(ev.Peer, pkt)
	case *net.JoinResponse:
		g.handleJoinResponse(ev.Peer, pkt)
	case *net.Chat:
		g.handleChat(ev.Peer, pkt)
	case *net.StartGame:
		if p := g.sim.PlayerByNo(ev.Peer.PlayerNo()); p != nil {
			p.SetReady(true)
		}
		g.sim.maybeStartMatch()
	case *net.CommandBatch:
		g.handleCommandBatch(pkt)
	}
}

// handleJoinRequest runs the host side of the handshake. The rendezvous
// confirmation is asynchronous; the reply happens on a later tick via
// Defer. A join after the match started is a protocol violation and the
// connection is closed.
func (g *netGlue) handleJoinRequest(peer *net.Peer, req *net.JoinRequest) {
	if g.sim.Started() {
		log.Printf("game: rejecting join from %s: match already started", peer.Addr())
		peer.Close()
		return
	}
	if g.sess == nil {
		peer.Close()
		return
	}
	userID := req.UserID
	wantColor := req.Color
	g.sess.ConfirmPlayer(userID, func(cp session.ConfirmedPlayer, err error) {
		g.sim.Defer(func() {
			g.finishJoin(peer, userID, wantColor, cp, err)
		})
	})
}

func (g *netGlue) finishJoin(peer *net.Peer, userID uint64, wantColor vector.Color, cp session.ConfirmedPlayer, err error) {
	if err != nil || !cp.Confirmed {
		log.Printf("game: join from %s not confirmed by rendezvous: %v", peer.Addr(), err)
		peer.Close()
		return
	}
	if g.sim.Started() {
		// The match began while the confirmation was in flight.
		peer.Close()
		return
	}

	color := g.resolveColor(wantColor)
	player := NewRemotePlayer(cp.PlayerNo, userID, cp.DisplayName, color, peer)
	g.sim.AddPlayer(player)
	peer.Tag(userID, cp.PlayerNo)
	g.sim.eventLog.Emit(Event{Turn: g.sim.turn, Type: EventPlayerJoined, PlayerNo: cp.PlayerNo})

	// Tell the joiner the map, the agreed turn delay, its seat, and the
	// user ids of everyone else so it can confirm and dial them.
	resp := &net.JoinResponse{
		MapName:   g.mapName,
		TurnDelay: uint8(g.sim.cfg.TurnDelay),
		PlayerNo:  cp.PlayerNo,
		Color:     color,
	}
	for _, p := range g.sim.players {
		if p.No() != cp.PlayerNo && p.UserID() != 0 {
			resp.Peers = append(resp.Peers, p.UserID())
		}
	}
	if err := peer.SendPacket(resp, 0, true); err != nil {
		log.Printf("game: join response to %s failed: %v", peer.Addr(), err)
		peer.Close()
	}
}

// resolveColor grants the requested color unless a player already holds
// it, in which case the first free palette entry wins.
func (g *netGlue) resolveColor(want vector.Color) vector.Color {
	taken := func(c vector.Color) bool {
		for _, p := range g.sim.players {
			if p.Color() == c {
				return true
			}
		}
		return false
	}
	if want != 0 && !taken(want) {
		return want
	}
	for _, c := range vector.PlayerPalette {
		if !taken(c) {
			return c
		}
	}
	return vector.PlayerPalette[0]
}

// handleJoinResponse runs the joiner side: adopt the agreed turn delay,
// record the host as a player, then confirm and dial every other peer.
func (g *netGlue) handleJoinResponse(peer *net.Peer, resp *net.JoinResponse) {
	g.sim.cfg.TurnDelay = uint32(resp.TurnDelay)
	g.sim.cfg.LocalPlayerNo = resp.PlayerNo
	g.mapName = resp.MapName

	for _, uid := range resp.Peers {
		userID := uid
		g.sess.ConfirmPlayer(userID, func(cp session.ConfirmedPlayer, err error) {
			g.sim.Defer(func() {
				g.adoptConfirmedPeer(peer, userID, cp, err)
			})
		})
	}
}

// adoptConfirmedPeer connects to a confirmed peer (unless it is the host
// we are already talking to) and registers it as a remote player.
func (g *netGlue) adoptConfirmedPeer(hostPeer *net.Peer, userID uint64, cp session.ConfirmedPlayer, err error) {
	if err != nil || !cp.Confirmed {
		log.Printf("game: peer %d not confirmed by rendezvous: %v", userID, err)
		return
	}
	if g.sim.PlayerByNo(cp.PlayerNo) != nil {
		return
	}

	peer := hostPeer
	if cp.Addr != "" && cp.Addr != hostPeer.Addr() {
		dialed, derr := g.host.Connect(cp.Addr)
		if derr != nil {
			log.Printf("game: dialing peer %d at %s: %v", cp.PlayerNo, cp.Addr, derr)
			return
		}
		peer = dialed
		peer.SendPacket(&net.JoinRequest{UserID: g.sess.UserID()}, 0, true)
	}
	peer.Tag(userID, cp.PlayerNo)
	g.sim.AddPlayer(NewRemotePlayer(cp.PlayerNo, userID, cp.DisplayName, g.resolveColor(0), peer))
	g.sim.eventLog.Emit(Event{Turn: g.sim.turn, Type: EventPlayerJoined, PlayerNo: cp.PlayerNo})
}

func (g *netGlue) handleChat(peer *net.Peer, pkt *net.Chat) {
	if !g.chatLimiter.Allow() {
		return
	}
	no := peer.PlayerNo()
	g.sim.eventLog.Emit(Event{Turn: g.sim.turn, Type: EventChat, PlayerNo: no, Detail: pkt.Message})
	for _, fn := range g.sim.chatHooks {
		fn(no, pkt.Message)
	}
}

func (g *netGlue) handleCommandBatch(pkt *net.CommandBatch) {
	for _, wc := range pkt.Commands {
		cmd, err := DecodeCommand(wc.Data)
		if err != nil {
			log.Printf("game: bad command in batch for turn %d: %v", pkt.Turn, err)
			continue
		}
		cmd.SetPlayer(wc.PlayerNo)
		g.sim.EnqueueCommand(cmd, pkt.Turn)
	}
}
