// Package relay delivers signaling messages to live connections. It reads
// membership but never changes it.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/telemetry"
	"github.com/rs/zerolog/log"
)

var ErrStaleTarget = errors.New("target connection is not in the meeting")

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

func ParseSignalKind(s string) (SignalKind, bool) {
	switch k := SignalKind(s); k {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return k, true
	}
	return "", false
}

type EventKind string

const (
	KindParticipantJoined  EventKind = "participant-joined"
	KindParticipantLeft    EventKind = "participant-left"
	KindMembershipSnapshot EventKind = "membership-snapshot"
	KindChatMessage        EventKind = "chat-message"
	KindPresenceToggle     EventKind = "presence-toggle"
)

// ReachesOrigin reports whether the connection that caused the event
// receives it as well.
func (k EventKind) ReachesOrigin() bool {
	return k == KindChatMessage || k == KindMembershipSnapshot
}

type Relay struct {
	Hub      *app.Hub
	Registry *app.Registry
	Meetings core.MeetingStore
}

func New(hub *app.Hub, reg *app.Registry, meetings core.MeetingStore) *Relay {
	return &Relay{Hub: hub, Registry: reg, Meetings: meetings}
}

// RelayToTarget forwards payload untouched to target alone. A target that is
// gone or bound to another meeting yields ErrStaleTarget and nothing is sent.
func (r *Relay) RelayToTarget(meeting domain.MeetingID, sender, target domain.ConnectionID, kind SignalKind, payload json.RawMessage) (core.PublishResult, error) {
	res := core.PublishResult{}
	conn, live := r.Hub.Get(target)
	if !live || !r.Registry.InMeeting(target, meeting) {
		telemetry.RelayStale(string(kind))
		log.Debug().Str("module", "app.relay").Str("meeting", string(meeting)).Str("from", string(sender)).Str("to", string(target)).Str("kind", string(kind)).Msg("stale target")
		return res, ErrStaleTarget
	}

	frame, err := json.Marshal(NewNegotiation(kind, sender, payload))
	if err != nil {
		return res, fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := conn.TrySend(frame); err != nil {
		res.Dropped = append(res.Dropped, target)
	} else {
		res.SentTo++
	}
	telemetry.Relayed(string(kind), res.SentTo, len(res.Dropped))
	log.Debug().Str("module", "app.relay").Str("meeting", string(meeting)).Str("from", string(sender)).Str("to", string(target)).Str("kind", string(kind)).Int("sent_to", res.SentTo).Msg("relayed")
	return res, nil
}

// BroadcastToMeeting sends msg to every connection of the meeting, skipping
// origin unless kind reaches the origin too.
func (r *Relay) BroadcastToMeeting(meeting domain.MeetingID, origin domain.ConnectionID, kind EventKind, msg any) core.PublishResult {
	m, err := r.Meetings.Get(meeting)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("meeting", string(meeting)).Msg("broadcast to unknown meeting")
		return core.PublishResult{}
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("kind", string(kind)).Msg("broadcast marshal")
		return core.PublishResult{}
	}

	res := core.PublishResult{}
	for _, p := range m.Participants {
		if p.ConnectionID == origin && !kind.ReachesOrigin() {
			continue
		}
		r.sendFrame(p.ConnectionID, meeting, frame, &res)
	}
	telemetry.Relayed(string(kind), res.SentTo, len(res.Dropped))
	log.Debug().Str("module", "app.relay").Str("meeting", string(meeting)).Str("from", string(origin)).Str("kind", string(kind)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// BroadcastMembershipSnapshot sends the current participant list to everyone in the meeting.
func (r *Relay) BroadcastMembershipSnapshot(meeting domain.MeetingID) core.PublishResult {
	m, err := r.Meetings.Get(meeting)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("meeting", string(meeting)).Msg("snapshot of unknown meeting")
		return core.PublishResult{}
	}
	return r.BroadcastToMeeting(meeting, "", KindMembershipSnapshot, NewParticipantsUpdated(meeting, m.Participants))
}

// SendToConnection delivers msg to one live connection, joined or not.
func (r *Relay) SendToConnection(cid domain.ConnectionID, msg any) core.PublishResult {
	res := core.PublishResult{}
	conn, ok := r.Hub.Get(cid)
	if !ok {
		return res
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("cid", string(cid)).Msg("send marshal")
		return res
	}
	if err := conn.TrySend(frame); err != nil {
		res.Dropped = append(res.Dropped, cid)
		return res
	}
	res.SentTo++
	return res
}

func (r *Relay) sendFrame(cid domain.ConnectionID, meeting domain.MeetingID, frame core.Frame, res *core.PublishResult) {
	if !r.Registry.InMeeting(cid, meeting) {
		return
	}
	conn, ok := r.Hub.Get(cid)
	if !ok {
		return
	}
	if err := conn.TrySend(frame); err != nil {
		res.Dropped = append(res.Dropped, cid)
		return
	}
	res.SentTo++
}
