package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// memoryStore is a threadsafe in-memory meeting store.
// It never touches transport resources.
type memoryStore struct {
	mu       sync.RWMutex
	meetings map[domain.MeetingID]*domain.Meeting
	now      func() time.Time
}

func NewMemoryStore() MeetingStore {
	return &memoryStore{
		meetings: make(map[domain.MeetingID]*domain.Meeting),
		now:      time.Now,
	}
}

func (s *memoryStore) Get(id domain.MeetingID) (domain.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.Meeting{}, ErrMeetingNotFound
	}
	return m.Clone(), nil
}

func (s *memoryStore) Create(id domain.MeetingID, host domain.Identity) (domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[id]; ok {
		return domain.Meeting{}, ErrMeetingExists
	}
	m := domain.NewMeeting(id, host, s.now().UTC())
	s.meetings[id] = &m
	log.Info().Str("module", "core.store").Str("meeting", string(id)).Str("host", string(host.ID)).Msg("meeting created")
	return m.Clone(), nil
}

func (s *memoryStore) MutateParticipants(id domain.MeetingID, fn func(*domain.Meeting) error) (domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.Meeting{}, ErrMeetingNotFound
	}
	work := m.Clone()
	if err := fn(&work); err != nil {
		return m.Clone(), err
	}
	// Metadata is not for fn to change.
	m.Participants = work.Participants
	return m.Clone(), nil
}

func (s *memoryStore) SetActive(id domain.MeetingID, active bool) (domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return domain.Meeting{}, ErrMeetingNotFound
	}
	m.IsActive = active
	log.Info().Str("module", "core.store").Str("meeting", string(id)).Bool("active", active).Msg("meeting state changed")
	return m.Clone(), nil
}

func (s *memoryStore) List() []MeetingInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MeetingInfo, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, MeetingInfo{
			ID:               m.ID,
			HostName:         m.HostName,
			ParticipantCount: len(m.Participants),
			IsActive:         m.IsActive,
			CreatedAt:        m.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
