package signal

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
)

type State string

const (
	StateConnected State = "connected"
	StateJoined    State = "joined"
	StateClosed    State = "closed"
)

// session is the per-connection lifecycle record. Joined-ness is not stored
// here: the registry is authoritative, so a connection superseded by a newer
// join of the same identity falls back to connected on its own.
type session struct {
	cid  domain.ConnectionID
	conn *WsSignalConn
	ws   WSConn

	mu     sync.Mutex
	pinned *domain.Identity
	closed bool
}

func newSession(conn *WsSignalConn, ws WSConn, pinned *domain.Identity) *session {
	return &session{
		cid:    domain.NewConnectionID(),
		conn:   conn,
		ws:     ws,
		pinned: pinned,
	}
}

func (s *session) identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned == nil {
		return domain.Identity{}, false
	}
	return *s.pinned, true
}

func (s *session) pin(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = &id
}

func (s *session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (ctl *SignalWSController) state(s *session) State {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.conn.isClosed() {
		return StateClosed
	}
	if _, ok := ctl.Registry.Lookup(s.cid); ok {
		return StateJoined
	}
	return StateConnected
}
