package signal

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	errUnauthorized    = errors.New("unauthorized")
	errMissingIdentity = errors.New("identity or token is required")
)

type joinPayload struct {
	MeetingID domain.MeetingID `json:"meetingId"`
	Identity  *domain.Identity `json:"identity,omitempty"`
	Token     string           `json:"token,omitempty"`
}

func (ctl *SignalWSController) handleJoin(s *session, data []byte) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("bad join payload")
		ctl.replyError(s, relay.CodeBadPayload, "bad join payload")
		return
	}
	if p.MeetingID == "" {
		ctl.replyError(s, relay.CodeBadPayload, "meetingId is required")
		return
	}

	id, err := ctl.resolveIdentity(s, p)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("join without usable identity")
		if errors.Is(err, errUnauthorized) {
			ctl.replyError(s, relay.CodeUnauthorized, "Unauthorized")
		} else {
			ctl.replyError(s, relay.CodeBadPayload, err.Error())
		}
		return
	}

	// Announcements to the joiner and the meeting are sent by the orchestrator.
	_, err = ctl.Orch.Join(p.MeetingID, id, s.cid)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrMeetingNotFound):
		ctl.replyError(s, relay.CodeMeetingNotFound, "Meeting not found")
	case errors.Is(err, orch.ErrMeetingInactive):
		ctl.replyError(s, relay.CodeMeetingInactive, "Meeting is not active")
	case errors.Is(err, orch.ErrInvalidIdentity):
		ctl.replyError(s, relay.CodeBadPayload, err.Error())
	default:
		log.Error().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Str("meeting", string(p.MeetingID)).Msg("join failed")
		ctl.replyError(s, relay.CodeInternal, "join failed")
	}
}

// resolveIdentity prefers, in order: the identity pinned at upgrade, a token
// in the payload, and a bare identity when tokens are optional.
func (ctl *SignalWSController) resolveIdentity(s *session, p joinPayload) (domain.Identity, error) {
	if id, ok := s.identity(); ok {
		return id, nil
	}
	if p.Token != "" {
		if ctl.Verifier == nil {
			return domain.Identity{}, errUnauthorized
		}
		id, err := ctl.Verifier.Verify(p.Token)
		if err != nil {
			return domain.Identity{}, errors.Join(errUnauthorized, err)
		}
		s.pin(id)
		return id, nil
	}
	if ctl.opts.RequireToken {
		return domain.Identity{}, errUnauthorized
	}
	if p.Identity == nil {
		return domain.Identity{}, errMissingIdentity
	}
	id := *p.Identity
	id.Name = strings.TrimSpace(id.Name)
	id.Role = domain.ParseRole(string(id.Role))
	return id, nil
}

// handleLeave leaves the current meeting; the connection stays open.
func (ctl *SignalWSController) handleLeave(s *session) {
	res, ok := ctl.Orch.Leave(s.cid)
	if ok {
		log.Info().Str("module", "signal").Str("cid", string(s.cid)).Str("meeting", string(res.MeetingID)).Msg("leave")
	}
	ctl.reply(s, relay.NewLeft(res.MeetingID))
}
