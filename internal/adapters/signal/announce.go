package signal

import (
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// The orchestrator calls these with its lock held; they only enqueue.

func (ctl *SignalWSController) AnnounceJoin(r orch.JoinResult) {
	var res core.PublishResult
	res.Merge(ctl.Relay.BroadcastToMeeting(r.MeetingID, r.Joined.ConnectionID, relay.KindParticipantJoined, relay.NewUserJoined(r.MeetingID, r.Joined)))
	res.Merge(ctl.Relay.SendToConnection(r.Joined.ConnectionID, relay.NewParticipantsList(r.MeetingID, r.Participants)))
	res.Merge(ctl.Relay.BroadcastMembershipSnapshot(r.MeetingID))
	if r.Superseded != nil {
		res.Merge(ctl.Relay.SendToConnection(r.Superseded.ConnectionID, relay.NewSessionReplaced(r.MeetingID)))
	}
	ctl.deliver(res)
}

func (ctl *SignalWSController) AnnounceLeave(r orch.LeaveResult) {
	var res core.PublishResult
	res.Merge(ctl.Relay.BroadcastToMeeting(r.MeetingID, r.Left.ConnectionID, relay.KindParticipantLeft, relay.NewUserLeft(r.MeetingID, r.Left)))
	res.Merge(ctl.Relay.BroadcastMembershipSnapshot(r.MeetingID))
	ctl.deliver(res)
}

func (ctl *SignalWSController) AnnounceEnded(meeting domain.MeetingID, evicted []domain.Participant) {
	for _, p := range evicted {
		ctl.deliver(ctl.Relay.SendToConnection(p.ConnectionID, relay.NewMeetingEnded(meeting)))
	}
}
