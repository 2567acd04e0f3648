package net

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ravaged-planets/internal/errs"
)

// frame header: channel byte plus flag byte ahead of the packet bytes.
const (
	frameHeaderSize = 2
	flagReliable    = 0x01
)

// Peer is one remote game client. Sends are safe from any goroutine;
// receives surface through the owning host's event queue.
type Peer struct {
	host *Host
	conn *websocket.Conn
	addr string

	sendMu sync.Mutex

	mu       sync.Mutex
	userID   uint64
	playerNo uint8
	closed   bool
}

// Addr returns the remote address the peer was reached at.
func (p *Peer) Addr() string { return p.addr }

// Tag records the rendezvous identity once the handshake resolves it.
func (p *Peer) Tag(userID uint64, playerNo uint8) {
	p.mu.Lock()
	p.userID = userID
	p.playerNo = playerNo
	p.mu.Unlock()
}

// UserID returns the tagged rendezvous user id (0 before the handshake).
func (p *Peer) UserID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID
}

// PlayerNo returns the tagged player number (0 before the handshake).
func (p *Peer) PlayerNo() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerNo
}

// Send transmits raw packet bytes on a channel. The reliable flag rides
// in the frame header; the websocket transport delivers both classes
// reliably, so the flag only preserves the packet layer's semantics.
// Send never blocks past the write timeout.
func (p *Peer) Send(data []byte, channel uint8, reliable bool) error {
	if len(data)+frameHeaderSize > MaxPacketSize {
		return errs.New(errs.KindNetwork, "packet of %d bytes exceeds limit", len(data))
	}
	frame := make([]byte, frameHeaderSize+len(data))
	frame[0] = channel
	if reliable {
		frame[1] = flagReliable
	}
	copy(frame[frameHeaderSize:], data)

	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errs.Wrap(errs.KindNetwork, err, "send to %s", p.addr)
	}
	return nil
}

// SendPacket encodes and transmits a packet.
func (p *Peer) SendPacket(pkt Packet, channel uint8, reliable bool) error {
	return p.Send(Encode(pkt), channel, reliable)
}

// Close tears the connection down. The read pump notices and emits the
// Disconnected event.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.conn.Close()
}

// readPump turns inbound frames into Received events until the socket
// dies, then reports the disconnect.
func (p *Peer) readPump() {
	defer func() {
		p.conn.Close()
		p.host.drop(p)
	}()
	for {
		kind, frame, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage || len(frame) < frameHeaderSize {
			// Not ours; a protocol violation ends the connection.
			return
		}
		pkt, err := Decode(frame[frameHeaderSize:])
		if err != nil {
			// Treat undecodable traffic as a peer protocol failure.
			return
		}
		p.host.emit(Event{
			Type:    EventReceived,
			Peer:    p,
			Packet:  pkt,
			Channel: frame[0],
		})
	}
}
