package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var host = domain.Identity{ID: "h1", Name: "Host", Role: domain.RoleHost}

func TestMemoryStoreCreateGet(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrMeetingNotFound)

	m, err := s.Create("m1", host)
	require.NoError(t, err)
	assert.Equal(t, domain.IdentityID("h1"), m.HostID)
	assert.Equal(t, "Host", m.HostName)
	assert.True(t, m.IsActive)
	assert.NotNil(t, m.Participants)

	_, err = s.Create("m1", host)
	assert.ErrorIs(t, err, ErrMeetingExists)

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMemoryStoreReadsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Create("m1", host)
	require.NoError(t, err)

	m, err := s.Get("m1")
	require.NoError(t, err)
	m.Participants = append(m.Participants, domain.NewParticipant(host, "c1"))
	m.IsActive = false

	again, err := s.Get("m1")
	require.NoError(t, err)
	assert.Empty(t, again.Participants)
	assert.True(t, again.IsActive)
}

func TestMemoryStoreMutateIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Create("m1", host)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.MutateParticipants("m1", func(m *domain.Meeting) error {
		m.Upsert(domain.NewParticipant(host, "c1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	m, err := s.Get("m1")
	require.NoError(t, err)
	assert.Empty(t, m.Participants)

	m, err = s.MutateParticipants("m1", func(m *domain.Meeting) error {
		m.Upsert(domain.NewParticipant(host, "c1"))
		m.HostName = "ignored"
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, m.Participants, 1)
	assert.Equal(t, "Host", m.HostName)

	_, err = s.MutateParticipants("missing", func(*domain.Meeting) error { return nil })
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestMemoryStoreConcurrentMutations(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Create("m1", host)
	require.NoError(t, err)

	var wg conc.WaitGroup
	for i := 0; i < 50; i++ {
		cid := domain.ConnectionID(fmt.Sprintf("c%d", i))
		id := domain.Identity{ID: domain.IdentityID(cid), Name: "p", Role: domain.RoleGuest}
		wg.Go(func() {
			_, err := s.MutateParticipants("m1", func(m *domain.Meeting) error {
				m.Upsert(domain.NewParticipant(id, cid))
				return nil
			})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	m, err := s.Get("m1")
	require.NoError(t, err)
	assert.Len(t, m.Participants, 50)
}

func TestMemoryStoreSetActiveAndList(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Create("m1", host)
	require.NoError(t, err)
	_, err = s.Create("m2", host)
	require.NoError(t, err)

	m, err := s.SetActive("m1", false)
	require.NoError(t, err)
	assert.False(t, m.IsActive)

	_, err = s.SetActive("missing", false)
	assert.ErrorIs(t, err, ErrMeetingNotFound)

	list := s.List()
	require.Len(t, list, 2)
	active := map[domain.MeetingID]bool{}
	for _, info := range list {
		active[info.ID] = info.IsActive
	}
	assert.False(t, active["m1"])
	assert.True(t, active["m2"])
}
