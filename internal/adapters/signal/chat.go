package signal

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type chatPayload struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	Message   string           `json:"message"`
}

// handleChat broadcasts to the whole meeting, sender included. The author
// is the identity the connection joined with, whatever the client claims.
func (ctl *SignalWSController) handleChat(s *session, data []byte) {
	b, ok := ctl.Registry.Lookup(s.cid)
	if !ok {
		ctl.protocolViolation(s, msgChatMessage, "not joined")
		return
	}

	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("bad chat payload")
		ctl.replyError(s, relay.CodeBadPayload, "bad chat payload")
		return
	}
	if strings.TrimSpace(p.Message) == "" {
		ctl.replyError(s, relay.CodeBadPayload, "message is empty")
		return
	}
	if ctl.opts.ChatMaxLength > 0 && utf8.RuneCountInString(p.Message) > ctl.opts.ChatMaxLength {
		ctl.replyError(s, relay.CodeMessageTooLong, "message too long")
		return
	}
	if p.MeetingID != "" && p.MeetingID != b.MeetingID {
		ctl.protocolViolation(s, msgChatMessage, "meeting mismatch")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(b.Identity.ID) {
		ctl.replyError(s, relay.CodeRateLimited, "too many messages")
		return
	}

	msg := relay.ChatMessage{
		Type:      relay.TypeChatMessage,
		ID:        uuid.NewString(),
		MeetingID: b.MeetingID,
		Message:   p.Message,
		Identity:  b.Identity,
		Timestamp: time.Now().UTC(),
	}
	ctl.deliver(ctl.Relay.BroadcastToMeeting(b.MeetingID, s.cid, relay.KindChatMessage, msg))
}

type presencePayload struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	Kind      string           `json:"kind"`
}

// handlePresence tells everyone else about a presence change such as a
// screen share. legacyKind is set for the screen-share-start/stop messages.
func (ctl *SignalWSController) handlePresence(s *session, data []byte, legacyKind string) {
	b, ok := ctl.Registry.Lookup(s.cid)
	if !ok {
		ctl.protocolViolation(s, msgPresenceToggle, "not joined")
		return
	}

	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("bad presence payload")
		ctl.replyError(s, relay.CodeBadPayload, "bad presence payload")
		return
	}
	kind := p.Kind
	if legacyKind != "" {
		kind = legacyKind
	}
	if kind == "" || len(kind) > 64 {
		ctl.replyError(s, relay.CodeBadPayload, "presence kind is required")
		return
	}

	if p.MeetingID != "" && p.MeetingID != b.MeetingID {
		ctl.protocolViolation(s, msgPresenceToggle, "meeting mismatch")
		return
	}
	ctl.deliver(ctl.Relay.BroadcastToMeeting(b.MeetingID, s.cid, relay.KindPresenceToggle, relay.NewPresenceToggle(b.MeetingID, kind, b.Identity)))
}
