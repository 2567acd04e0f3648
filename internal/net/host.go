package net

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"ravaged-planets/internal/errs"
)

const (
	// MaxPacketSize caps a single packet on the wire.
	MaxPacketSize = 256 * 1024

	// eventBufferSize bounds the inbound event queue. The simulation
	// drains it every tick; overflow means a peer is flooding us and the
	// excess is dropped with a log line.
	eventBufferSize = 4096

	peerPath     = "/peer"
	writeTimeout = 5 * time.Second
)

// EventType classifies a host event.
type EventType int

const (
	EventConnected EventType = iota
	EventReceived
	EventDisconnected
)

// Event is one transport occurrence, drained by Host.Update.
type Event struct {
	Type    EventType
	Peer    *Peer
	Packet  Packet // set for EventReceived
	Channel uint8  // set for EventReceived
}

// Host is the datagram endpoint a game client runs: it listens for
// incoming peers, dials outgoing ones, and turns socket activity into an
// event stream the simulation drains non-blocking each tick.
//
// The transport delivers both the reliable and unreliable channel classes
// reliably; the flag is carried per send so the packet layer keeps its
// declared semantics.
type Host struct {
	mu       sync.Mutex
	peers    []*Peer
	events   chan Event
	server   *http.Server
	listenOn int

	// Inbound joins are rate limited per host; a flood of handshake
	// attempts must not starve the tick budget.
	joinLimiter *rate.Limiter

	upgrader websocket.Upgrader
	stopped  bool
}

// NewHost creates an idle host. Call Listen and/or Connect to go live.
func NewHost() *Host {
	return &Host{
		events:      make(chan Event, eventBufferSize),
		joinLimiter: rate.NewLimiter(10, 20),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Peers are other game clients, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Listen starts accepting peers on the given port.
func (h *Host) Listen(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc(peerPath, h.handleUpgrade)

	h.mu.Lock()
	h.listenOn = port
	h.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	srv := h.server
	h.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	// Give the listener a moment to fail on a busy port so ListenRange
	// can move on to the next candidate.
	select {
	case err := <-errc:
		return errs.Wrap(errs.KindNetwork, err, "listen on port %d", port)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// ListenRange tries each port in [lo, hi] until one binds.
func (h *Host) ListenRange(lo, hi int) (int, error) {
	for port := lo; port <= hi; port++ {
		if err := h.Listen(port); err == nil {
			return port, nil
		}
	}
	return 0, errs.New(errs.KindNetwork, "no free port in %d-%d", lo, hi)
}

// ListenPort returns the bound port, or 0 when not listening.
func (h *Host) ListenPort() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listenOn
}

func (h *Host) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !h.joinLimiter.Allow() {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("v")); err != nil || uint16(v) != ProtocolVersion {
		// Mismatched peers must disconnect before the handshake starts.
		http.Error(w, "protocol version mismatch", http.StatusUpgradeRequired)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("net: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	h.adopt(conn, r.RemoteAddr)
}

// Connect dials a peer at host:port and returns it once the transport is
// up. The join handshake is the caller's business.
func (h *Host) Connect(addr string) (*Peer, error) {
	url := fmt.Sprintf("ws://%s%s?v=%d", addr, peerPath, ProtocolVersion)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUpgradeRequired {
			return nil, errs.New(errs.KindProtocol, "peer %s: protocol version mismatch", addr)
		}
		return nil, errs.Wrap(errs.KindNetwork, err, "connect %s", addr)
	}
	return h.adopt(conn, addr), nil
}

// adopt wraps a live socket in a Peer, registers it, and starts its read
// pump.
func (h *Host) adopt(conn *websocket.Conn, addr string) *Peer {
	p := &Peer{host: h, conn: conn, addr: addr}
	conn.SetReadLimit(MaxPacketSize)

	h.mu.Lock()
	h.peers = append(h.peers, p)
	h.mu.Unlock()

	h.emit(Event{Type: EventConnected, Peer: p})
	go p.readPump()
	return p
}

// Update drains pending events without blocking. The simulation calls it
// once per tick.
func (h *Host) Update() []Event {
	var out []Event
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Peers returns a snapshot of the current peer list.
func (h *Host) Peers() []*Peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Peer(nil), h.peers...)
}

// Broadcast sends a packet to every connected peer.
func (h *Host) Broadcast(p Packet, channel uint8, reliable bool) {
	for _, peer := range h.Peers() {
		if err := peer.SendPacket(p, channel, reliable); err != nil {
			log.Printf("net: broadcast to %s failed: %v", peer.Addr(), err)
		}
	}
}

// Stop closes every peer and the listener.
func (h *Host) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	peers := append([]*Peer(nil), h.peers...)
	srv := h.server
	h.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
	if srv != nil {
		srv.Close()
	}
}

func (h *Host) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
		log.Printf("net: event queue full, dropping %d from %v", ev.Type, ev.Peer.Addr())
	}
}

func (h *Host) drop(p *Peer) {
	h.mu.Lock()
	for i, got := range h.peers {
		if got == p {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			break
		}
	}
	stopped := h.stopped
	h.mu.Unlock()

	if !stopped {
		h.emit(Event{Type: EventDisconnected, Peer: p})
	}
}
