package core

import (
	"errors"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrMeetingExists   = errors.New("meeting already exists")
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []domain.ConnectionID
}

func (r *PublishResult) Merge(o PublishResult) {
	r.SentTo += o.SentTo
	r.Dropped = append(r.Dropped, o.Dropped...)
}

type MeetingInfo struct {
	ID               domain.MeetingID `json:"id"`
	HostName         string           `json:"hostName"`
	ParticipantCount int              `json:"participantCount"`
	IsActive         bool             `json:"isActive"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// MeetingStore is the only owner of meeting records.
// Every read returns a copy; a mutation is applied as a whole or not at all.
type MeetingStore interface {
	Get(id domain.MeetingID) (domain.Meeting, error)
	Create(id domain.MeetingID, host domain.Identity) (domain.Meeting, error)
	// MutateParticipants runs fn under the store lock on a working copy.
	// The copy is committed only when fn returns nil.
	MutateParticipants(id domain.MeetingID, fn func(*domain.Meeting) error) (domain.Meeting, error)
	SetActive(id domain.MeetingID, active bool) (domain.Meeting, error)
	List() []MeetingInfo
}
