// Package orch owns every membership transition. Each transition updates the
// meeting store and the connection registry together under one lock, then
// hands the result to the Announcer before the lock is released.
package orch

import (
	"errors"
	"sync"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrMeetingInactive = errors.New("meeting is not active")
	ErrNotHost         = errors.New("only hosts can create meetings")
	ErrNotMeetingHost  = errors.New("only the meeting host can do this")
)

type JoinResult struct {
	MeetingID    domain.MeetingID
	Joined       domain.Participant
	Participants []domain.Participant
	// Superseded is the earlier record of the same identity on another
	// connection, already unbound by this join.
	Superseded *domain.Participant
	Created    bool
}

type LeaveResult struct {
	MeetingID domain.MeetingID
	Left      domain.Participant
	Remaining []domain.Participant
}

// Announcer is called with the lock held, in mutation order.
// Implementations may only enqueue; they must not call back into the Orchestrator.
type Announcer interface {
	AnnounceJoin(JoinResult)
	AnnounceLeave(LeaveResult)
	AnnounceEnded(meeting domain.MeetingID, evicted []domain.Participant)
}

type Orchestrator struct {
	Registry  *app.Registry
	Meetings  core.MeetingStore
	Announcer Announcer
	// AutoCreate makes Join create unknown meetings with the joiner as host.
	AutoCreate bool

	mu sync.Mutex
}

func New(reg *app.Registry, meetings core.MeetingStore) *Orchestrator {
	return &Orchestrator{Registry: reg, Meetings: meetings}
}
