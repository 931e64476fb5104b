// Websocket endpoint.
//
// GET /ws runs the handshake gate before upgrading: an unauthenticated
// request gets 401 and never becomes a websocket. An admitted connection is
// registered under its identity, greeted with a connected event and its
// current conversation list, and then serves inbound events one at a time
// until the peer goes away, at which point it is unregistered.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
)

const defaultOpTimeout = 10 * time.Second

// ListRefresher pushes fresh conversation lists to online users.
type ListRefresher interface {
	Refresh(ctx context.Context, userIDs ...string) int
}

// WSDeps configures the websocket endpoint.
type WSDeps struct {
	Gate     middleware.Authenticator
	Registry *realtime.Registry
	Relay    MessageRelay
	Reads    ReadTracker
	Lists    ListRefresher
	// Names receives the token's name claim; nil skips it.
	Names    middleware.NameAdopter

	// Conn tunes every accepted connection.
	Conn realtime.Options
	// OpTimeout bounds one send-message or mark-read.
	OpTimeout time.Duration
	// AllowedOrigins restricts browser origins; empty allows any.
	AllowedOrigins []string
}

// WSHandler serves GET /ws.
type WSHandler struct {
	gate      middleware.Authenticator
	registry  *realtime.Registry
	relay     MessageRelay
	reads     ReadTracker
	lists     ListRefresher
	names     middleware.NameAdopter
	opts      realtime.Options
	opTimeout time.Duration
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// NewWSHandler builds the websocket endpoint.
func NewWSHandler(d WSDeps) *WSHandler {
	timeout := d.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &WSHandler{
		gate:      d.Gate,
		registry:  d.Registry,
		relay:     d.Relay,
		reads:     d.Reads,
		lists:     d.Lists,
		names:     d.Names,
		opts:      d.Conn,
		opTimeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(d.AllowedOrigins),
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and, when origins are configured, browsers on the allowlist.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Serve godoc
// @ID          websocket
// @Summary     Open the realtime channel
// @Description Upgrades to a websocket after authenticating the handshake (bearer token, token/userId query parameter or X-User-ID header).
// @Description Frames are JSON envelopes {"type": ..., "data": ...}. Inbound: send-message, mark-read. Outbound: connected, new-message, message-read, conversation-list-update, error.
// @Tags        Realtime
//
// @Param       token   query  string  false  "Bearer token"
// @Param       userId  query  string  false  "Claimed user id (when enabled)"
//
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	id, err := h.gate.Authenticate(c.Request)
	if err != nil {
		c.Header("WWW-Authenticate", `Bearer realm="chat"`)
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	middleware.SetUserID(c, id.UserID)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		h.log.Debug().Err(err).Str("user_id", id.UserID).Msg("upgrade failed")
		return
	}

	conn := realtime.NewConnection(id.UserID, ws, h.opts)
	h.registry.Register(id.UserID, conn)
	defer h.registry.Unregister(id.UserID, conn.ID())
	go conn.WriteLoop()

	ctx := c.Request.Context()
	if id.Name != "" && h.names != nil {
		if err := h.names.AdoptName(ctx, id.UserID, id.Name); err != nil {
			h.log.Warn().Err(err).Str("user_id", id.UserID).Msg("display name not recorded")
		}
	}
	_ = h.registry.Deliver(conn, realtime.Connected{UserID: id.UserID, ConnectionID: conn.ID()})
	h.lists.Refresh(ctx, id.UserID)

	h.log.Info().Str("user_id", id.UserID).Str("conn_id", conn.ID()).Msg("connection opened")
	conn.ReadLoop(func(raw []byte) { h.dispatch(ctx, conn, raw) })
	h.log.Info().Str("user_id", id.UserID).Str("conn_id", conn.ID()).Msg("connection closed")
}

// dispatch handles one inbound frame. It runs on the connection's read
// goroutine, so events from one connection are processed in arrival order.
// Service failures are reported to conn by the services themselves; decode
// failures and panics are reported here.
func (h *WSHandler) dispatch(parent context.Context, conn realtime.Conn, raw []byte) {
	evType := "unknown"
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("user_id", conn.UserID()).
				Str("event", evType).
				Msg("panic in event handler")
			realtime.ObserveInbound(evType, "error")
			_ = h.registry.Deliver(conn, realtime.ErrorEvent{Message: "internal error"})
		}
	}()

	in, err := realtime.DecodeInbound(raw)
	if err != nil {
		realtime.ObserveInbound(evType, "rejected")
		msg := realtime.ErrMalformedEvent.Error()
		if errors.Is(err, realtime.ErrUnknownEvent) {
			msg = realtime.ErrUnknownEvent.Error()
		}
		_ = h.registry.Deliver(conn, realtime.ErrorEvent{Message: msg})
		return
	}
	evType = realtime.InboundType(in)

	ctx, cancel := context.WithTimeout(parent, h.opTimeout)
	defer cancel()

	switch ev := in.(type) {
	case realtime.SendMessage:
		_, err = h.relay.Send(ctx, conn.UserID(), conn, ev)
	case realtime.MarkRead:
		_, err = h.reads.MarkRead(ctx, conn.UserID(), conn, ev)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		h.log.Debug().Err(err).Str("user_id", conn.UserID()).Str("event", evType).Msg("event failed")
	}
	realtime.ObserveInbound(evType, outcome)
}
