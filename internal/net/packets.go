// Package net implements lockstep peer networking: a datagram-style host
// with reliable and unreliable channels over websocket transport, and the
// fixed little-endian packet codec all peers speak.
package net

import (
	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/wire"
)

// ProtocolVersion is implicit in the build; peers with a different version
// are disconnected at the transport layer.
const ProtocolVersion uint16 = 1

// Packet identifiers. The u16 id prefixes every encoded packet.
const (
	PacketJoinRequest  uint16 = 1
	PacketJoinResponse uint16 = 2
	PacketChat         uint16 = 3
	PacketStartGame    uint16 = 4
	PacketCommandBatch uint16 = 5
)

// Packet is one wire message. Marshal and Unmarshal cover the body only;
// the id prefix is handled by Encode/Decode.
type Packet interface {
	PacketID() uint16
	Marshal(w *wire.Writer)
	Unmarshal(r *wire.Reader) error
}

// JoinRequest opens the handshake: the joiner identifies itself by the
// user id it got from the rendezvous service and asks for a color.
type JoinRequest struct {
	UserID uint64
	Color  vector.Color
}

func (p *JoinRequest) PacketID() uint16 { return PacketJoinRequest }

func (p *JoinRequest) Marshal(w *wire.Writer) {
	w.PutU64(p.UserID)
	w.PutColor(p.Color)
}

func (p *JoinRequest) Unmarshal(r *wire.Reader) error {
	p.UserID = r.U64()
	p.Color = r.Color()
	return r.Err()
}

// JoinResponse is the host's reply: the map to load, the agreed turn
// delay, the joiner's assigned number and color, and the user ids of all
// other peers already in the game (which the joiner confirms through the
// rendezvous service and dials in turn).
type JoinResponse struct {
	MapName   string
	TurnDelay uint8
	PlayerNo  uint8
	Color     vector.Color
	Peers     []uint64
}

func (p *JoinResponse) PacketID() uint16 { return PacketJoinResponse }

func (p *JoinResponse) Marshal(w *wire.Writer) {
	w.PutString(p.MapName)
	w.PutU8(p.TurnDelay)
	w.PutU8(p.PlayerNo)
	w.PutColor(p.Color)
	w.PutU16(uint16(len(p.Peers)))
	for _, id := range p.Peers {
		w.PutU64(id)
	}
}

func (p *JoinResponse) Unmarshal(r *wire.Reader) error {
	p.MapName = r.String()
	p.TurnDelay = r.U8()
	p.PlayerNo = r.U8()
	p.Color = r.Color()
	n := int(r.U16())
	p.Peers = nil
	for i := 0; i < n; i++ {
		p.Peers = append(p.Peers, r.U64())
	}
	return r.Err()
}

// Chat is a UTF-8 message relayed to every peer.
type Chat struct {
	Message string
}

func (p *Chat) PacketID() uint16 { return PacketChat }

func (p *Chat) Marshal(w *wire.Writer) {
	w.PutString(p.Message)
}

func (p *Chat) Unmarshal(r *wire.Reader) error {
	p.Message = r.String()
	return r.Err()
}

// StartGame announces that the sending peer has loaded the map and is
// ready. Once the host has seen it from everyone the game begins and
// late joins are refused.
type StartGame struct{}

func (p *StartGame) PacketID() uint16 { return PacketStartGame }

func (p *StartGame) Marshal(w *wire.Writer) {}

func (p *StartGame) Unmarshal(r *wire.Reader) error { return r.Err() }

// WireCommand is one command inside a batch: the issuing player and the
// opaque command body (id byte plus fields), decoded by the command
// factory on the simulation side.
type WireCommand struct {
	PlayerNo uint8
	Data     []byte
}

// CommandBatch carries every command a peer posted during one tick,
// tagged with the future turn they execute on.
type CommandBatch struct {
	Turn     uint32
	Commands []WireCommand
}

func (p *CommandBatch) PacketID() uint16 { return PacketCommandBatch }

func (p *CommandBatch) Marshal(w *wire.Writer) {
	w.PutU32(p.Turn)
	w.PutU16(uint16(len(p.Commands)))
	for _, c := range p.Commands {
		w.PutU8(c.PlayerNo)
		w.PutBytes(c.Data)
	}
}

func (p *CommandBatch) Unmarshal(r *wire.Reader) error {
	p.Turn = r.U32()
	n := int(r.U16())
	p.Commands = nil
	for i := 0; i < n; i++ {
		c := WireCommand{PlayerNo: r.U8()}
		// Copy out of the receive buffer: commands outlive the packet.
		c.Data = append([]byte(nil), r.Bytes()...)
		p.Commands = append(p.Commands, c)
	}
	return r.Err()
}

// packetFactory rehydrates an empty packet by id.
var packetFactory = map[uint16]func() Packet{
	PacketJoinRequest:  func() Packet { return &JoinRequest{} },
	PacketJoinResponse: func() Packet { return &JoinResponse{} },
	PacketChat:         func() Packet { return &Chat{} },
	PacketStartGame:    func() Packet { return &StartGame{} },
	PacketCommandBatch: func() Packet { return &CommandBatch{} },
}

// Encode serializes a packet with its u16 id prefix.
func Encode(p Packet) []byte {
	w := wire.NewWriter()
	w.PutU16(p.PacketID())
	p.Marshal(w)
	return w.Bytes()
}

// Decode parses a received buffer into a packet. Unknown ids and short
// bodies are protocol errors.
func Decode(data []byte) (Packet, error) {
	r := wire.NewReader(data)
	id := r.U16()
	if r.Err() != nil {
		return nil, errs.Wrap(errs.KindProtocol, r.Err(), "packet id")
	}
	build, ok := packetFactory[id]
	if !ok {
		return nil, errs.New(errs.KindProtocol, "unknown packet id %d", id)
	}
	p := build()
	if err := p.Unmarshal(r); err != nil {
		return nil, errs.Wrap(errs.KindProtocol, err, "packet %d body", id)
	}
	return p, nil
}
