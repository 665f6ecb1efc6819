package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type negotiationPayload struct {
	MeetingID domain.MeetingID    `json:"meetingId"`
	Target    domain.ConnectionID `json:"targetConnectionId"`
	Offer     json.RawMessage     `json:"offer"`
	Answer    json.RawMessage     `json:"answer"`
	Candidate json.RawMessage     `json:"candidate"`
}

func (p negotiationPayload) body(kind relay.SignalKind) json.RawMessage {
	switch kind {
	case relay.SignalOffer:
		return p.Offer
	case relay.SignalAnswer:
		return p.Answer
	default:
		return p.Candidate
	}
}

// handleNegotiation forwards an offer, answer or candidate to exactly one
// connection of the sender's meeting. The payload is never inspected.
func (ctl *SignalWSController) handleNegotiation(s *session, kind relay.SignalKind, data []byte) {
	b, ok := ctl.Registry.Lookup(s.cid)
	if !ok {
		ctl.protocolViolation(s, string(kind), "not joined")
		return
	}

	var p negotiationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Str("type", string(kind)).Msg("bad negotiation payload")
		ctl.replyError(s, relay.CodeBadPayload, "bad "+string(kind)+" payload")
		return
	}
	body := p.body(kind)
	if p.Target == "" || len(body) == 0 {
		ctl.replyError(s, relay.CodeBadPayload, string(kind)+" needs targetConnectionId and a payload")
		return
	}

	if p.MeetingID != "" && p.MeetingID != b.MeetingID {
		ctl.protocolViolation(s, string(kind), "meeting mismatch")
		return
	}

	res, err := ctl.Relay.RelayToTarget(b.MeetingID, s.cid, p.Target, kind, body)
	if errors.Is(err, relay.ErrStaleTarget) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("relay failed")
		return
	}
	ctl.deliver(res)
}
