package net

import (
	"fmt"
	"testing"
	"time"
)

// loopbackPair binds a listening host on a free port and dials it from a
// second host, returning both plus the dialing peer.
func loopbackPair(t *testing.T) (server, client *Host, clientPeer *Peer) {
	t.Helper()
	server = NewHost()
	port, err := server.ListenRange(20000, 20100)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(server.Stop)

	client = NewHost()
	t.Cleanup(client.Stop)
	clientPeer, err = client.Connect(fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return server, client, clientPeer
}

// waitEvents polls Update until the predicate yields or the deadline
// passes; the simulation does the same drain non-blocking every tick.
func waitEvents(t *testing.T, h *Host, deadline time.Duration, pred func(Event) bool) Event {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		for _, ev := range h.Update() {
			if pred(ev) {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected event never arrived")
	return Event{}
}

func TestConnectAndExchange(t *testing.T) {
	server, _, clientPeer := loopbackPair(t)

	ev := waitEvents(t, server, 2*time.Second, func(ev Event) bool {
		return ev.Type == EventConnected
	})
	serverPeer := ev.Peer

	// Client -> server.
	if err := clientPeer.SendPacket(&Chat{Message: "hello"}, 1, true); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := waitEvents(t, server, 2*time.Second, func(ev Event) bool {
		return ev.Type == EventReceived
	})
	chat, ok := got.Packet.(*Chat)
	if !ok || chat.Message != "hello" {
		t.Fatalf("got %+v", got.Packet)
	}
	if got.Channel != 1 {
		t.Errorf("channel = %d, want 1", got.Channel)
	}

	// Server -> client, on the unreliable channel for coverage.
	if err := serverPeer.SendPacket(&StartGame{}, 0, false); err != nil {
		t.Fatalf("reply: %v", err)
	}
}

func TestDisconnectSurfaces(t *testing.T) {
	server, _, clientPeer := loopbackPair(t)

	waitEvents(t, server, 2*time.Second, func(ev Event) bool {
		return ev.Type == EventConnected
	})

	clientPeer.Close()
	waitEvents(t, server, 2*time.Second, func(ev Event) bool {
		return ev.Type == EventDisconnected
	})
	if n := len(server.Peers()); n != 0 {
		t.Errorf("server still tracks %d peers", n)
	}
}

func TestBroadcastReachesAllPeers(t *testing.T) {
	server := NewHost()
	port, err := server.ListenRange(20200, 20300)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(server.Stop)

	clients := make([]*Host, 3)
	for i := range clients {
		clients[i] = NewHost()
		t.Cleanup(clients[i].Stop)
		if _, err := clients[i].Connect(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
			t.Fatal(err)
		}
	}

	// Wait for all three to register server-side.
	end := time.Now().Add(2 * time.Second)
	for len(server.Peers()) < 3 && time.Now().Before(end) {
		server.Update()
		time.Sleep(5 * time.Millisecond)
	}
	if len(server.Peers()) != 3 {
		t.Fatalf("server sees %d peers", len(server.Peers()))
	}

	server.Broadcast(&Chat{Message: "all"}, 0, true)
	for i, c := range clients {
		ev := waitEvents(t, c, 2*time.Second, func(ev Event) bool {
			return ev.Type == EventReceived
		})
		if chat, ok := ev.Packet.(*Chat); !ok || chat.Message != "all" {
			t.Errorf("client %d got %+v", i, ev.Packet)
		}
	}
}

func TestListenRangeSkipsBusyPorts(t *testing.T) {
	first := NewHost()
	port, err := first.ListenRange(20400, 20410)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(first.Stop)

	second := NewHost()
	port2, err := second.ListenRange(port, port+10)
	if err != nil {
		t.Fatalf("second host found no port: %v", err)
	}
	t.Cleanup(second.Stop)
	if port2 == port {
		t.Errorf("both hosts claim port %d", port)
	}
}

func TestPeerTagging(t *testing.T) {
	_, _, clientPeer := loopbackPair(t)
	if clientPeer.PlayerNo() != 0 {
		t.Error("untagged peer must report player 0")
	}
	clientPeer.Tag(55, 4)
	if clientPeer.UserID() != 55 || clientPeer.PlayerNo() != 4 {
		t.Errorf("tag lost: %d/%d", clientPeer.UserID(), clientPeer.PlayerNo())
	}
}
