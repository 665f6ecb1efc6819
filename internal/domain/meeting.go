package domain

import (
	"time"

	"github.com/google/uuid"
)

type MeetingID string

func NewMeetingID() MeetingID { return MeetingID(uuid.NewString()) }

// Meeting holds at most one participant per identity ID, in join order.
type Meeting struct {
	ID           MeetingID     `json:"id"`
	HostID       IdentityID    `json:"hostId"`
	HostName     string        `json:"hostName"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
	IsActive     bool          `json:"isActive"`
}

func NewMeeting(id MeetingID, host Identity, now time.Time) Meeting {
	return Meeting{
		ID:           id,
		HostID:       host.ID,
		HostName:     host.Name,
		Participants: []Participant{},
		CreatedAt:    now,
		IsActive:     true,
	}
}

func (m Meeting) Clone() Meeting {
	out := m
	out.Participants = make([]Participant, len(m.Participants))
	copy(out.Participants, m.Participants)
	return out
}

// Upsert drops any record with the same identity ID and appends p.
// It returns the record it dropped, if any.
func (m *Meeting) Upsert(p Participant) (Participant, bool) {
	var (
		old   Participant
		found bool
	)
	kept := m.Participants[:0]
	for _, cur := range m.Participants {
		if cur.ID == p.ID {
			old, found = cur, true
			continue
		}
		kept = append(kept, cur)
	}
	m.Participants = append(kept, p)
	return old, found
}

// RemoveConnection deletes the record bound to cid only.
// A newer record of the same identity on another connection is left alone.
func (m *Meeting) RemoveConnection(cid ConnectionID) (Participant, bool) {
	for i, cur := range m.Participants {
		if cur.ConnectionID == cid {
			m.Participants = append(m.Participants[:i], m.Participants[i+1:]...)
			return cur, true
		}
	}
	return Participant{}, false
}

func (m Meeting) ByConnection(cid ConnectionID) (Participant, bool) {
	for _, cur := range m.Participants {
		if cur.ConnectionID == cid {
			return cur, true
		}
	}
	return Participant{}, false
}

func (m Meeting) IsHostedBy(id IdentityID) bool { return m.HostID == id }
