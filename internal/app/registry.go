package app

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Binding is what the registry remembers about a joined connection.
type Binding struct {
	Identity  domain.Identity
	MeetingID domain.MeetingID
}

// Registry maps connection IDs to the meeting they joined.
// Only the orchestrator mutates it; everyone else reads.
type Registry struct {
	mu       sync.RWMutex
	bindings map[domain.ConnectionID]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[domain.ConnectionID]Binding)}
}

func (r *Registry) Bind(cid domain.ConnectionID, id domain.Identity, meeting domain.MeetingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[cid] = Binding{Identity: id, MeetingID: meeting}
	log.Debug().Str("module", "app.registry").Str("cid", string(cid)).Str("meeting", string(meeting)).Msg("bound connection")
}

func (r *Registry) Lookup(cid domain.ConnectionID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[cid]
	return b, ok
}

// Unbind removes the entry and returns it. A second call is a no-op.
func (r *Registry) Unbind(cid domain.ConnectionID) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[cid]
	if !ok {
		return Binding{}, false
	}
	delete(r.bindings, cid)
	log.Debug().Str("module", "app.registry").Str("cid", string(cid)).Str("meeting", string(b.MeetingID)).Msg("unbound connection")
	return b, true
}

// InMeeting reports whether cid is currently bound to meeting.
func (r *Registry) InMeeting(cid domain.ConnectionID, meeting domain.MeetingID) bool {
	b, ok := r.Lookup(cid)
	return ok && b.MeetingID == meeting
}

func (r *Registry) ConnectionsOf(meeting domain.MeetingID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnectionID, 0)
	for cid, b := range r.bindings {
		if b.MeetingID == meeting {
			out = append(out, cid)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
