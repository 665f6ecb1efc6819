package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/identity"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch   *orch.Orchestrator
	issuer *identity.Issuer
}

// GET /api/meetings
func (h *handlers) listMeetings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"meetings": h.orch.Meetings.List()})
}

// POST /api/meetings, hosts only
func (h *handlers) createMeeting(c *gin.Context) {
	id, _ := currentIdentity(c)
	m, err := h.orch.CreateMeeting(id)
	switch {
	case errors.Is(err, orch.ErrNotHost):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create meeting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetingId": m.ID, "meeting": m})
}

// GET /api/meetings/:id
func (h *handlers) getMeeting(c *gin.Context) {
	m, err := h.orch.Meetings.Get(domain.MeetingID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// POST /api/meetings/:id/join only checks that a join would be accepted;
// membership itself is established over the signaling socket.
func (h *handlers) joinMeeting(c *gin.Context) {
	id, _ := currentIdentity(c)
	m, err := h.orch.Meetings.Get(domain.MeetingID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		return
	}
	if !m.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Meeting is not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": m, "user": id})
}

// POST /api/meetings/:id/end
func (h *handlers) endMeeting(c *gin.Context) {
	id, _ := currentIdentity(c)
	m, err := h.orch.EndMeeting(domain.MeetingID(c.Param("id")), id)
	switch {
	case errors.Is(err, core.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		return
	case errors.Is(err, orch.ErrNotMeetingHost):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("end meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not end meeting"})
		return
	}
	c.JSON(http.StatusOK, m)
}
