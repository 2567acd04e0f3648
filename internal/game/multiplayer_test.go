package game

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"ravaged-planets/internal/net"
	"ravaged-planets/internal/session"
	"ravaged-planets/internal/vector"
)

// fakeRendezvous answers login and confirm-player for two known
// accounts: alice (1001, seat 1) and bob (1002, seat 2).
func fakeRendezvous(t *testing.T) *httptest.Server {
	t.Helper()
	userRe := regexp.MustCompile(`user="(\d+)"`)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session/new", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "alice":
			fmt.Fprint(w, `<success sessionId="sa" userId="1001"/>`)
		case "bob":
			fmt.Fprint(w, `<success sessionId="sb" userId="1002"/>`)
		default:
			fmt.Fprint(w, `<error msg="unknown account"/>`)
		}
	})
	mux.HandleFunc("/game/confirm-player.php", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		m := userRe.FindSubmatch(body)
		user := ""
		if m != nil {
			user = string(m[1])
		}
		switch user {
		case "1001":
			fmt.Fprint(w, `<success confirmed="true" addr="" user="alice" playerNo="1"/>`)
		case "1002":
			fmt.Fprint(w, `<success confirmed="true" addr="" user="bob" playerNo="2"/>`)
		default:
			fmt.Fprint(w, `<success confirmed="false"/>`)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, name string) *session.Session {
	t.Helper()
	s := session.New(srv.URL)
	t.Cleanup(s.Stop)
	done := make(chan error, 1)
	s.Login(name, "pw", 0, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return s
}

// twoPeerGame stands up host A (alice, seat 1) with a listening
// transport, connects B (bob) to it, and completes the join handshake by
// ticking both simulations in lockstep.
func twoPeerGame(t *testing.T) (simA, simB *Simulation, hostA, hostB *net.Host) {
	t.Helper()
	rv := fakeRendezvous(t)
	sessA := login(t, rv, "alice")
	sessB := login(t, rv, "bob")

	hostA = net.NewHost()
	port, err := hostA.ListenRange(21000, 21100)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(hostA.Stop)

	simA = NewSimulation(SimConfig{TickRate: 5, TurnDelay: 2, Seed: 5, LocalPlayerNo: 1}, flatWorld(t), testRegistry(t))
	simA.AttachNetwork(hostA, sessA, "Island2")
	simA.AddPlayer(NewLocalPlayer(1, sessA.UserID(), "alice", vector.PlayerPalette[0]))

	hostB = net.NewHost()
	t.Cleanup(hostB.Stop)
	simB = NewSimulation(SimConfig{TickRate: 5, TurnDelay: 2, Seed: 5}, flatWorld(t), testRegistry(t))
	simB.AttachNetwork(hostB, sessB, "")

	peerToA, err := hostB.Connect(fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatal(err)
	}
	if err := peerToA.SendPacket(&net.JoinRequest{UserID: sessB.UserID()}, 0, true); err != nil {
		t.Fatal(err)
	}

	// Tick both sides in step until the handshake lands on both.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		simA.Tick()
		simB.Tick()
		if simA.PlayerByNo(2) != nil && simB.PlayerByNo(1) != nil && simB.Config().LocalPlayerNo == 2 {
			// B also adds its own local player once it knows its seat.
			if simB.PlayerByNo(2) == nil {
				simB.AddPlayer(NewLocalPlayer(2, sessB.UserID(), "bob", vector.PlayerPalette[1]))
			}
			return simA, simB, hostA, hostB
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("join handshake never completed")
	return nil, nil, nil, nil
}

func stepBoth(a, b *Simulation, n int) {
	for i := 0; i < n; i++ {
		a.Tick()
		b.Tick()
		time.Sleep(10 * time.Millisecond) // let websocket deliveries land
	}
}

// Lockstep two-peer command: a create command posted on A lands on both
// peers and leaves the new unit at the same position on each.
func TestTwoPeerLockstepCommand(t *testing.T) {
	simA, simB, _, _ := twoPeerGame(t)

	id, err := simA.Entities().AllocateID(1)
	if err != nil {
		t.Fatal(err)
	}
	simA.PostCommand(&CreateEntityCommand{
		ID:       id,
		Template: "scout",
		Pos:      vector.V3(10, 0, 10),
		Goal:     vector.V3(10, 0, 10),
	})

	stepBoth(simA, simB, 10)

	ea := simA.Entities().Get(id)
	eb := simB.Entities().Get(id)
	if ea == nil {
		t.Fatal("entity missing on A")
	}
	if eb == nil {
		t.Fatal("entity never reached B")
	}
	if PositionOf(ea).Get() != PositionOf(eb).Get() {
		t.Fatalf("peers disagree: %v vs %v", PositionOf(ea).Get(), PositionOf(eb).Get())
	}
}

// Late join rejected: once the match started, a join request is answered
// by closing the connection.
func TestLateJoinRejected(t *testing.T) {
	simA, simB, hostA, _ := twoPeerGame(t)

	simA.StartMatch()

	hostC := net.NewHost()
	t.Cleanup(hostC.Stop)
	peer, err := hostC.Connect(fmt.Sprintf("127.0.0.1:%d", hostA.ListenPort()))
	if err != nil {
		t.Fatal(err)
	}
	peer.SendPacket(&net.JoinRequest{UserID: 9999}, 0, true)

	sawDisconnect := false
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !sawDisconnect {
		simA.Tick()
		simB.Tick()
		for _, ev := range hostC.Update() {
			if ev.Type == net.EventDisconnected {
				sawDisconnect = true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !sawDisconnect {
		t.Fatal("late joiner was not disconnected")
	}
	if simA.PlayerByNo(2) == nil {
		t.Error("existing players must survive a rejected join")
	}
	if simA.FatalError() != nil {
		t.Error("late join must not be fatal")
	}
}

// Peer disconnect: B vanishes mid-game; A's roster drops B once the
// transport reports the loss, the simulation keeps advancing, and
// commands B had already delivered for future turns still execute.
func TestPeerDisconnectMidGame(t *testing.T) {
	simA, simB, _, hostB := twoPeerGame(t)
	simA.StartMatch()
	simB.StartMatch()

	// B posts a command, ticks once so the batch leaves its queue, then
	// drops off the network.
	id := MakeEntityID(2, 900)
	simB.PostCommandFrom(2, &CreateEntityCommand{
		ID:       id,
		Template: "scout",
		Pos:      vector.V3(30, 0, 30),
		Goal:     vector.V3(30, 0, 30),
	})
	simB.Tick()
	time.Sleep(20 * time.Millisecond) // batch in flight
	hostB.Stop()

	turnBefore := simA.Turn()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && simA.PlayerByNo(2) != nil {
		simA.Tick()
		time.Sleep(5 * time.Millisecond)
	}
	if simA.PlayerByNo(2) != nil {
		t.Fatal("lost peer still in the player list")
	}

	// The game continues and B's in-flight command still lands.
	for i := 0; i < 10; i++ {
		simA.Tick()
	}
	if simA.Turn() <= turnBefore {
		t.Error("simulation stalled after the disconnect")
	}
	if simA.Entities().Get(id) == nil {
		t.Error("command B had already sent must still execute")
	}
}
