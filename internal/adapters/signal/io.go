package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client to server message types.
const (
	msgJoinMeeting      = "join-meeting"
	msgLeaveMeeting     = "leave-meeting"
	msgOffer            = "offer"
	msgAnswer           = "answer"
	msgICECandidate     = "ice-candidate"
	msgChatMessage      = "chat-message"
	msgPresenceToggle   = "presence-toggle"
	msgScreenShareStart = "screen-share-start"
	msgScreenShareStop  = "screen-share-stop"
	msgPing             = "ping"
	msgWhoAmI           = "whoami"
)

func (ctl *SignalWSController) writePump(ctx context.Context, s *session) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("cid", string(s.cid)).Msg("writePump ctx done")
			return
		case data, ok := <-s.conn.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("cid", string(s.cid)).Msg("writePump channel closed")
				return
			}
			if err := s.ws.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("writePump set deadline")
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, s *session) {
	defer func() {
		log.Debug().Str("module", "signal").Str("cid", string(s.cid)).Msg("readPump closing")
		s.conn.Close()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	if ctl.opts.ReadLimit > 0 {
		s.ws.SetReadLimit(ctl.opts.ReadLimit)
	}
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("readPump read error")
			}
			return
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(s, data)
	}
}

// handleSignal dispatches one inbound frame. Nothing that happens here may
// take the connection down, let alone another one.
func (ctl *SignalWSController) handleSignal(s *session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").Str("cid", string(s.cid)).Msg("handler panic")
			ctl.replyError(s, relay.CodeInternal, "internal error")
		}
	}()

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(s.cid)).Msg("bad json")
		ctl.replyError(s, relay.CodeBadPayload, "message must be a JSON object with a type")
		return
	}

	switch env.Type {
	case msgJoinMeeting:
		ctl.handleJoin(s, data)
	case msgLeaveMeeting:
		ctl.handleLeave(s)
	case msgOffer, msgAnswer, msgICECandidate:
		kind, _ := relay.ParseSignalKind(env.Type)
		ctl.handleNegotiation(s, kind, data)
	case msgChatMessage:
		ctl.handleChat(s, data)
	case msgPresenceToggle:
		ctl.handlePresence(s, data, "")
	case msgScreenShareStart, msgScreenShareStop:
		ctl.handlePresence(s, data, env.Type)
	case msgPing:
		ctl.handlePing(s)
	case msgWhoAmI:
		ctl.handleWhoAmI(s)
	default:
		log.Warn().Str("module", "signal").Str("cid", string(s.cid)).Str("type", env.Type).Msg("unknown signal")
		ctl.replyError(s, relay.CodeUnknownType, "unknown message type "+env.Type)
	}
}

func (ctl *SignalWSController) reply(s *session, v any) {
	ctl.deliver(ctl.Relay.SendToConnection(s.cid, v))
}

func (ctl *SignalWSController) replyError(s *session, code, msg string) {
	ctl.reply(s, relay.NewError(code, msg))
}

func (ctl *SignalWSController) protocolViolation(s *session, typ, reason string) {
	log.Warn().Str("module", "signal").Str("cid", string(s.cid)).Str("type", typ).Str("reason", reason).Msg("protocol violation ignored")
}

// deliver applies the backpressure policy to every connection that missed a message.
func (ctl *SignalWSController) deliver(res core.PublishResult) {
	seen := make(map[domain.ConnectionID]struct{}, len(res.Dropped))
	for _, cid := range res.Dropped {
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		action := ctl.Policy.OnBackpressure(cid)
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Str("action", action.String()).Msg("send queue full")
		if action == app.KickMember {
			ctl.Hub.Kick(cid)
		}
	}
}
