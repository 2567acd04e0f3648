// Package session talks to the rendezvous service: login, game listing,
// and out-of-band player identity confirmation.
//
// All calls are dispatched serially through a single-slot queue, so at
// most one HTTP request is in flight per session and state transitions
// happen in the order the calls were made. Completion handlers run on the
// session's dispatch goroutine; callers that need the result on another
// thread hand it across themselves.
package session

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ravaged-planets/internal/errs"
)

// State tracks where the session is in its lifecycle.
type State int

const (
	Disconnected State = iota
	LoggingIn
	LoggedIn
	JoiningLobby
	InGame
	InError
)

// String names the state for the log.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case LoggingIn:
		return "logging-in"
	case LoggedIn:
		return "logged-in"
	case JoiningLobby:
		return "joining-lobby"
	case InGame:
		return "in-game"
	case InError:
		return "in-error"
	default:
		return "unknown"
	}
}

// GameInfo is one entry from list-games.
type GameInfo struct {
	ID          uint64
	DisplayName string
	OwnerUser   uint64
	OwnerAddr   string
}

// JoinInfo is the result of join-game: the number we were assigned and
// where to find the host.
type JoinInfo struct {
	PlayerNo   uint8
	ServerAddr string
}

// ConfirmedPlayer is the result of confirm-player: whether the queried
// user id is a real logged-in account, its display name, where it can be
// reached, and the player number the game assigned it.
type ConfirmedPlayer struct {
	Confirmed   bool
	Addr        string
	DisplayName string
	PlayerNo    uint8
}

const dispatchQueueSize = 32

// Session is one client's connection to the rendezvous service.
type Session struct {
	baseURL    string
	client     *http.Client
	instanceID string

	mu        sync.Mutex
	state     State
	lastError string
	userID    uint64
	sessionID string

	calls chan func()
	done  chan struct{}
	once  sync.Once
}

// New creates a session against the given server URL and starts its
// dispatch goroutine.
func New(serverURL string) *Session {
	s := &Session{
		baseURL:    strings.TrimRight(serverURL, "/"),
		client:     &http.Client{Timeout: 30 * time.Second},
		instanceID: uuid.NewString(),
		state:      Disconnected,
		calls:      make(chan func(), dispatchQueueSize),
		done:       make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Stop shuts the dispatch goroutine down. Pending calls are abandoned.
func (s *Session) Stop() {
	s.once.Do(func() { close(s.done) })
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the server message that moved the session to InError.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// UserID returns the id the server assigned at login.
func (s *Session) UserID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// InstanceID identifies this process for the log; unique per run.
func (s *Session) InstanceID() string { return s.instanceID }

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = InError
	s.lastError = err.Error()
	s.mu.Unlock()
}

func (s *Session) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case call := <-s.calls:
			call()
		}
	}
}

// enqueue hands a call to the dispatch goroutine. Subsequent calls queue
// behind it; nothing runs concurrently.
func (s *Session) enqueue(call func()) {
	select {
	case s.calls <- call:
	case <-s.done:
	}
}

// Login creates a new session on the server. listenPort tells other
// players where our host accepts peers.
func (s *Session) Login(name, password string, listenPort int, done func(error)) {
	s.setState(LoggingIn)
	s.enqueue(func() {
		q := url.Values{}
		q.Set("name", name)
		q.Set("password", password)
		q.Set("listenPort", strconv.Itoa(listenPort))
		doc, err := s.do(http.MethodPut, "/api/session/new?"+q.Encode(), "")
		if err != nil {
			s.fail(err)
			complete(done, err)
			return
		}
		s.mu.Lock()
		s.sessionID = doc.SessionID
		s.userID = doc.UserID
		s.state = LoggedIn
		s.mu.Unlock()
		complete(done, nil)
	})
}

// Logout deletes the session server-side.
func (s *Session) Logout(done func(error)) {
	s.enqueue(func() {
		s.mu.Lock()
		id := s.sessionID
		s.mu.Unlock()
		_, err := s.do(http.MethodDelete, "/api/session/"+id, "")
		if err != nil {
			s.fail(err)
			complete(done, err)
			return
		}
		s.mu.Lock()
		s.sessionID = ""
		s.userID = 0
		s.state = Disconnected
		s.mu.Unlock()
		complete(done, nil)
	})
}

// CreateGame registers a new game owned by this session.
func (s *Session) CreateGame(done func(gameID uint64, err error)) {
	s.enqueue(func() {
		s.mu.Lock()
		body := fmt.Sprintf(`<game sessionId=%q/>`, s.sessionID)
		s.mu.Unlock()
		doc, err := s.do(http.MethodPost, "/game/create-game.php", body)
		if err != nil {
			s.fail(err)
			if done != nil {
				done(0, err)
			}
			return
		}
		s.setState(InGame)
		if done != nil {
			done(doc.GameID, nil)
		}
	})
}

// ListGames fetches the joinable game list.
func (s *Session) ListGames(done func([]GameInfo, error)) {
	s.enqueue(func() {
		s.mu.Lock()
		body := fmt.Sprintf(`<games sessionId=%q/>`, s.sessionID)
		s.mu.Unlock()
		games, err := s.doList(body)
		if err != nil {
			s.fail(err)
		}
		if done != nil {
			done(games, err)
		}
	})
}

// JoinGame asks the server for a seat in the given game.
func (s *Session) JoinGame(gameID uint64, done func(JoinInfo, error)) {
	s.setState(JoiningLobby)
	s.enqueue(func() {
		s.mu.Lock()
		body := fmt.Sprintf(`<game sessionId=%q id="%d"/>`, s.sessionID, gameID)
		s.mu.Unlock()
		doc, err := s.do(http.MethodPost, "/game/join-game.php", body)
		if err != nil {
			s.fail(err)
			if done != nil {
				done(JoinInfo{}, err)
			}
			return
		}
		s.setState(InGame)
		if done != nil {
			done(JoinInfo{PlayerNo: doc.PlayerNo, ServerAddr: doc.ServerAddr}, nil)
		}
	})
}

// ConfirmPlayer verifies that a user id seen on the wire belongs to a
// real logged-in account and learns its address and display name.
func (s *Session) ConfirmPlayer(userID uint64, done func(ConfirmedPlayer, error)) {
	s.enqueue(func() {
		s.mu.Lock()
		body := fmt.Sprintf(`<player sessionId=%q user="%d"/>`, s.sessionID, userID)
		s.mu.Unlock()
		doc, err := s.do(http.MethodPost, "/game/confirm-player.php", body)
		if err != nil {
			if done != nil {
				done(ConfirmedPlayer{}, err)
			}
			return
		}
		if done != nil {
			done(ConfirmedPlayer{
				Confirmed:   doc.Confirmed == "true",
				Addr:        doc.Addr,
				DisplayName: doc.User,
				PlayerNo:    doc.PlayerNo,
			}, nil)
		}
	})
}

func complete(done func(error), err error) {
	if done != nil {
		done(err)
	}
}

// successDoc is the union of every attribute the server's <success>
// replies may carry.
type successDoc struct {
	XMLName    xml.Name
	SessionID  string `xml:"sessionId,attr"`
	UserID     uint64 `xml:"userId,attr"`
	GameID     uint64 `xml:"gameId,attr"`
	PlayerNo   uint8  `xml:"playerNo,attr"`
	ServerAddr string `xml:"serverAddr,attr"`
	Confirmed  string `xml:"confirmed,attr"`
	Addr       string `xml:"addr,attr"`
	User       string `xml:"user,attr"`
	Msg        string `xml:"msg,attr"`
}

type gamesDoc struct {
	XMLName xml.Name  `xml:"games"`
	Games   []gameDoc `xml:"game"`
}

type gameDoc struct {
	ID          uint64 `xml:"id,attr"`
	DisplayName string `xml:"displayName,attr"`
	OwnerUser   uint64 `xml:"ownerUser,attr"`
	OwnerAddr   string `xml:"ownerAddr,attr"`
}

// do performs one HTTP exchange and parses the <success>/<error> reply.
// Rendezvous calls are never retried; the caller surfaces the error.
func (s *Session) do(method, path, body string) (*successDoc, error) {
	data, err := s.exchange(method, path, body)
	if err != nil {
		return nil, err
	}
	var doc successDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "%s %s", method, path)
	}
	switch doc.XMLName.Local {
	case "success":
		return &doc, nil
	case "error":
		return nil, errs.New(errs.KindNetwork, "server: %s", doc.Msg)
	default:
		return nil, errs.New(errs.KindProtocol, "%s %s: unexpected document <%s>", method, path, doc.XMLName.Local)
	}
}

func (s *Session) doList(body string) ([]GameInfo, error) {
	data, err := s.exchange(http.MethodPost, "/game/list-games.php", body)
	if err != nil {
		return nil, err
	}
	var doc gamesDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		// Could be an <error> document instead.
		var e successDoc
		if xml.Unmarshal(data, &e) == nil && e.XMLName.Local == "error" {
			return nil, errs.New(errs.KindNetwork, "server: %s", e.Msg)
		}
		return nil, errs.Wrap(errs.KindParse, err, "list-games")
	}
	games := make([]GameInfo, 0, len(doc.Games))
	for _, g := range doc.Games {
		games = append(games, GameInfo{
			ID:          g.ID,
			DisplayName: g.DisplayName,
			OwnerUser:   g.OwnerUser,
			OwnerAddr:   g.OwnerAddr,
		})
	}
	return games, nil
}

func (s *Session) exchange(method, path, body string) ([]byte, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err, "%s %s", method, path)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/xml")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err, "%s %s body", method, path)
	}
	return data, nil
}
