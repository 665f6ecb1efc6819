package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// Join binds cid to meetingID as identity. Any earlier record of the same
// identity is replaced, so the last join wins. A connection already bound
// elsewhere leaves that meeting first.
func (o *Orchestrator) Join(meetingID domain.MeetingID, identity domain.Identity, cid domain.ConnectionID) (JoinResult, error) {
	if err := identity.Validate(); err != nil {
		telemetry.Membership("join", "invalid")
		return JoinResult{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	created, err := o.ensureMeeting(meetingID, identity)
	if err != nil {
		telemetry.Membership("join", "rejected")
		return JoinResult{}, err
	}

	if b, ok := o.Registry.Lookup(cid); ok && (b.MeetingID != meetingID || b.Identity.ID != identity.ID) {
		o.leaveLocked(cid)
	}

	joined := domain.NewParticipant(identity, cid)
	var (
		old      domain.Participant
		replaced bool
	)
	m, err := o.Meetings.MutateParticipants(meetingID, func(m *domain.Meeting) error {
		old, replaced = m.Upsert(joined)
		return nil
	})
	if err != nil {
		telemetry.Membership("join", "rejected")
		return JoinResult{}, err
	}

	res := JoinResult{
		MeetingID:    meetingID,
		Joined:       joined,
		Participants: m.Participants,
		Created:      created,
	}
	if replaced && old.ConnectionID != cid {
		o.Registry.Unbind(old.ConnectionID)
		res.Superseded = &old
	}
	o.Registry.Bind(cid, identity, meetingID)
	if !replaced {
		telemetry.ParticipantAdded()
	}
	telemetry.Membership("join", "ok")

	l := log.Info().Str("module", "app.orch").Str("meeting", string(meetingID)).Str("cid", string(cid)).Str("identity", string(identity.ID))
	if res.Superseded != nil {
		l = l.Str("superseded", string(res.Superseded.ConnectionID))
	}
	l.Int("participants", len(m.Participants)).Msg("joined meeting")

	if o.Announcer != nil {
		o.Announcer.AnnounceJoin(res)
	}
	return res, nil
}

// Leave removes the record bound to cid, if any. It reports false when
// there was nothing to remove, which makes repeated cleanup harmless.
func (o *Orchestrator) Leave(cid domain.ConnectionID) (LeaveResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.leaveLocked(cid)
}

func (o *Orchestrator) leaveLocked(cid domain.ConnectionID) (LeaveResult, bool) {
	b, ok := o.Registry.Lookup(cid)
	if !ok {
		return LeaveResult{}, false
	}

	var (
		left    domain.Participant
		removed bool
	)
	m, err := o.Meetings.MutateParticipants(b.MeetingID, func(m *domain.Meeting) error {
		left, removed = m.RemoveConnection(cid)
		return nil
	})
	o.Registry.Unbind(cid)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("cid", string(cid)).Str("meeting", string(b.MeetingID)).Msg("leave on missing meeting")
		return LeaveResult{}, false
	}
	if !removed {
		return LeaveResult{}, false
	}
	telemetry.ParticipantRemoved()
	telemetry.Membership("leave", "ok")

	res := LeaveResult{MeetingID: b.MeetingID, Left: left, Remaining: m.Participants}
	log.Info().Str("module", "app.orch").Str("meeting", string(b.MeetingID)).Str("cid", string(cid)).Str("identity", string(left.ID)).Int("participants", len(m.Participants)).Msg("left meeting")

	if o.Announcer != nil {
		o.Announcer.AnnounceLeave(res)
	}
	return res, true
}

func (o *Orchestrator) ensureMeeting(id domain.MeetingID, joiner domain.Identity) (bool, error) {
	m, err := o.Meetings.Get(id)
	if err == nil {
		if !m.IsActive {
			return false, ErrMeetingInactive
		}
		return false, nil
	}
	if !errors.Is(err, core.ErrMeetingNotFound) || !o.AutoCreate {
		return false, err
	}
	if _, err := o.Meetings.Create(id, joiner); err != nil && !errors.Is(err, core.ErrMeetingExists) {
		return false, err
	}
	log.Info().Str("module", "app.orch").Str("meeting", string(id)).Str("host", string(joiner.ID)).Msg("auto-created meeting")
	return true, nil
}
