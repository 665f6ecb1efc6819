package orch

import (
	"fmt"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) CreateMeeting(host domain.Identity) (domain.Meeting, error) {
	if err := host.Validate(); err != nil {
		return domain.Meeting{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if !host.IsHost() {
		return domain.Meeting{}, ErrNotHost
	}
	return o.Meetings.Create(domain.NewMeetingID(), host)
}

// EndMeeting marks the meeting inactive and evicts everyone still in it.
// Only the identity that created the meeting may end it.
func (o *Orchestrator) EndMeeting(id domain.MeetingID, by domain.Identity) (domain.Meeting, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, err := o.Meetings.Get(id)
	if err != nil {
		return domain.Meeting{}, err
	}
	if !m.IsHostedBy(by.ID) {
		return domain.Meeting{}, ErrNotMeetingHost
	}
	if m, err = o.Meetings.SetActive(id, false); err != nil {
		return domain.Meeting{}, err
	}

	evicted := make([]domain.Participant, 0, len(m.Participants))
	for _, p := range m.Participants {
		if res, ok := o.leaveLocked(p.ConnectionID); ok {
			evicted = append(evicted, res.Left)
		}
	}
	log.Info().Str("module", "app.orch").Str("meeting", string(id)).Int("evicted", len(evicted)).Msg("meeting ended")

	if o.Announcer != nil {
		o.Announcer.AnnounceEnded(id, evicted)
	}
	return o.Meetings.Get(id)
}
