package app

import (
	"context"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type hubEntry struct {
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Hub tracks every live transport connection, joined or not.
// The adapter that accepts a connection attaches it and detaches it on close.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*hubEntry
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.ConnectionID]*hubEntry)}
}

func (h *Hub) Attach(cid domain.ConnectionID, conn core.SignalConnection, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[cid] = &hubEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.hub").Str("cid", string(cid)).Msg("attached connection")
}

func (h *Hub) Detach(cid domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, cid)
	log.Info().Str("module", "app.hub").Str("cid", string(cid)).Msg("detached connection")
}

func (h *Hub) Get(cid domain.ConnectionID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.conns[cid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Kick closes the transport and cancels its pumps. The adapter's
// normal disconnect path takes care of membership cleanup.
func (h *Hub) Kick(cid domain.ConnectionID) bool {
	h.mu.RLock()
	e, ok := h.conns[cid]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	e.Conn.Close()
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Warn().Str("module", "app.hub").Str("cid", string(cid)).Msg("kicked connection")
	return true
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
