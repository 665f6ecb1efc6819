package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// ContextIdentityKey is where the HTTP layer leaves a verified identity.
const ContextIdentityKey = "identity"

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	WriteControl(mt int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type Options struct {
	SendBuffer     int
	ReadLimit      int64
	PingPeriod     time.Duration
	WriteWait      time.Duration
	RequireToken   bool
	AllowedOrigins []string
	ChatMaxLength  int
	ChatRateLimit  int
	ChatRateEvery  time.Duration
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Relay    *relay.Relay
	Hub      *app.Hub
	Registry *app.Registry
	Verifier TokenVerifier
	Policy   app.Policy
	Limiter  *RoomRateLimiter

	opts     Options
	upgrader websocket.Upgrader
}

// NewSignalWSController also installs the controller as o's Announcer.
func NewSignalWSController(o *orch.Orchestrator, r *relay.Relay, v TokenVerifier, policy app.Policy, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	if policy == nil {
		policy = app.SimplePolicy{Action: app.DropMessage}
	}
	ctl := &SignalWSController{
		Orch:     o,
		Relay:    r,
		Hub:      r.Hub,
		Registry: o.Registry,
		Verifier: v,
		Policy:   policy,
		Limiter:  NewRoomRateLimiter(opts.ChatRateLimit, opts.ChatRateEvery),
		opts:     opts,
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	o.Announcer = ctl
	return ctl
}

func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	if len(ctl.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := strings.TrimSuffix(r.Header.Get("Origin"), "/")
	if origin == "" {
		return true
	}
	for _, allowed := range ctl.opts.AllowedOrigins {
		if strings.EqualFold(origin, strings.TrimSuffix(allowed, "/")) {
			return true
		}
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("rejected origin")
	return false
}

type WsSignalConn struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func NewWsSignalConn(conn WSConn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: conn, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close drops whatever is still queued.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *WsSignalConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	var pinned *domain.Identity
	if v, ok := c.Get(ContextIdentityKey); ok {
		if id, ok := v.(domain.Identity); ok {
			pinned = &id
		}
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ctl.Serve(ctx, ws, pinned)
}

// Serve runs one connection until it closes. pinned, when set, is the
// identity every join on this connection uses.
func (ctl *SignalWSController) Serve(ctx context.Context, ws WSConn, pinned *domain.Identity) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(NewWsSignalConn(ws, ctl.opts.SendBuffer), ws, pinned)
	ctl.Hub.Attach(s.cid, s.conn, cancel)
	telemetry.ConnectionOpened()
	log.Info().Str("module", "signal").Str("cid", string(s.cid)).Bool("pinned", pinned != nil).Msg("new WS connection")

	ctl.reply(s, relay.NewConnected(s.cid))

	var wg conc.WaitGroup
	wg.Go(func() { ctl.writePump(ctx, s) })
	wg.Go(func() { ctl.readPump(ctx, s) })
	wg.Wait()

	ctl.disconnect(s)
}

func (ctl *SignalWSController) disconnect(s *session) {
	s.conn.Close()
	ctl.Hub.Detach(s.cid)
	if res, ok := ctl.Orch.Leave(s.cid); ok {
		log.Info().Str("module", "signal").Str("cid", string(s.cid)).Str("meeting", string(res.MeetingID)).Msg("left on disconnect")
	}
	s.markClosed()
	telemetry.ConnectionClosed()
	log.Info().Str("module", "signal").Str("cid", string(s.cid)).Msg("WS connection closed")
}
