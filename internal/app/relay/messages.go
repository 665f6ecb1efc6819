package relay

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

// Server to client message types.
const (
	TypeConnected           = "connected"
	TypeParticipantsList    = "participants-list"
	TypeUserJoined          = "user-joined"
	TypeUserLeft            = "user-left"
	TypeParticipantsUpdated = "participants-updated"
	TypeChatMessage         = "chat-message"
	TypePresenceToggle      = "presence-toggle"
	TypeSessionReplaced     = "session-replaced"
	TypeMeetingEnded        = "meeting-ended"
	TypeLeft                = "left"
	TypePong                = "pong"
	TypeWhoAmI              = "whoami"
	TypeError               = "error"
)

// Error codes carried by TypeError.
const (
	CodeBadPayload      = "bad-payload"
	CodeUnknownType     = "unknown-type"
	CodeUnauthorized    = "unauthorized"
	CodeMeetingNotFound = "meeting-not-found"
	CodeMeetingInactive = "meeting-inactive"
	CodeNotJoined       = "not-joined"
	CodeMessageTooLong  = "message-too-long"
	CodeRateLimited     = "rate-limited"
	CodeInternal        = "internal"
)

type Connected struct {
	Type         string              `json:"type"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

func NewConnected(cid domain.ConnectionID) Connected {
	return Connected{Type: TypeConnected, ConnectionID: cid}
}

type ParticipantList struct {
	Type         string               `json:"type"`
	MeetingID    domain.MeetingID     `json:"meetingId"`
	Participants []domain.Participant `json:"participants"`
}

func NewParticipantsList(id domain.MeetingID, ps []domain.Participant) ParticipantList {
	return ParticipantList{Type: TypeParticipantsList, MeetingID: id, Participants: nonNil(ps)}
}

func NewParticipantsUpdated(id domain.MeetingID, ps []domain.Participant) ParticipantList {
	return ParticipantList{Type: TypeParticipantsUpdated, MeetingID: id, Participants: nonNil(ps)}
}

type ParticipantEvent struct {
	Type        string             `json:"type"`
	MeetingID   domain.MeetingID   `json:"meetingId"`
	Participant domain.Participant `json:"participant"`
}

func NewUserJoined(id domain.MeetingID, p domain.Participant) ParticipantEvent {
	return ParticipantEvent{Type: TypeUserJoined, MeetingID: id, Participant: p}
}

func NewUserLeft(id domain.MeetingID, p domain.Participant) ParticipantEvent {
	return ParticipantEvent{Type: TypeUserLeft, MeetingID: id, Participant: p}
}

// Negotiation carries one opaque offer, answer or candidate. Exactly one
// payload field is set, matching Type.
type Negotiation struct {
	Type               string              `json:"type"`
	SenderConnectionID domain.ConnectionID `json:"senderConnectionId"`
	Offer              json.RawMessage     `json:"offer,omitempty"`
	Answer             json.RawMessage     `json:"answer,omitempty"`
	Candidate          json.RawMessage     `json:"candidate,omitempty"`
}

func NewNegotiation(kind SignalKind, sender domain.ConnectionID, payload json.RawMessage) Negotiation {
	n := Negotiation{Type: string(kind), SenderConnectionID: sender}
	switch kind {
	case SignalOffer:
		n.Offer = payload
	case SignalAnswer:
		n.Answer = payload
	case SignalICECandidate:
		n.Candidate = payload
	}
	return n
}

type ChatMessage struct {
	Type      string           `json:"type"`
	ID        string           `json:"id"`
	MeetingID domain.MeetingID `json:"meetingId"`
	Message   string           `json:"message"`
	Identity  domain.Identity  `json:"identity"`
	Timestamp time.Time        `json:"timestamp"`
}

type PresenceToggle struct {
	Type      string           `json:"type"`
	MeetingID domain.MeetingID `json:"meetingId"`
	Kind      string           `json:"kind"`
	Identity  domain.Identity  `json:"identity"`
}

func NewPresenceToggle(id domain.MeetingID, kind string, who domain.Identity) PresenceToggle {
	return PresenceToggle{Type: TypePresenceToggle, MeetingID: id, Kind: kind, Identity: who}
}

type MeetingNotice struct {
	Type      string           `json:"type"`
	MeetingID domain.MeetingID `json:"meetingId,omitempty"`
}

func NewSessionReplaced(id domain.MeetingID) MeetingNotice {
	return MeetingNotice{Type: TypeSessionReplaced, MeetingID: id}
}

func NewMeetingEnded(id domain.MeetingID) MeetingNotice {
	return MeetingNotice{Type: TypeMeetingEnded, MeetingID: id}
}

func NewLeft(id domain.MeetingID) MeetingNotice {
	return MeetingNotice{Type: TypeLeft, MeetingID: id}
}

func NewPong() MeetingNotice { return MeetingNotice{Type: TypePong} }

type ErrorMessage struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

func NewError(code, msg string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Error: msg}
}

func nonNil(ps []domain.Participant) []domain.Participant {
	if ps == nil {
		return []domain.Participant{}
	}
	return ps
}
