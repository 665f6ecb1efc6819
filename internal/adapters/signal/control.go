package signal

import (
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *SignalWSController) handlePing(s *session) {
	ctl.reply(s, relay.NewPong())
}

func (ctl *SignalWSController) handleWhoAmI(s *session) {
	resp := struct {
		Type         string              `json:"type"`
		ConnectionID domain.ConnectionID `json:"connectionId"`
		State        State               `json:"state"`
		Identity     *domain.Identity    `json:"identity,omitempty"`
		MeetingID    domain.MeetingID    `json:"meetingId,omitempty"`
	}{
		Type:         relay.TypeWhoAmI,
		ConnectionID: s.cid,
		State:        ctl.state(s),
	}
	if b, ok := ctl.Registry.Lookup(s.cid); ok {
		resp.Identity = &b.Identity
		resp.MeetingID = b.MeetingID
	} else if id, ok := s.identity(); ok {
		resp.Identity = &id
	}
	ctl.reply(s, resp)
}
