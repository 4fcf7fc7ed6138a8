package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"heist/server/internal/geom"
	"heist/server/internal/net/grant"
	"heist/server/internal/net/proto"
	"heist/server/internal/skills"
	"heist/server/internal/telemetry"
	"heist/server/logging"
	"heist/server/logging/network"
)

// Controls is the input surface of one attached player.
type Controls interface {
	SetDirection(dir geom.Vec2) bool
	RequestSkill(req skills.Request) bool
	CancelSkill() bool
	// Detach releases the seat. A player detached mid-match is taken over by
	// a bot.
	Detach()
}

// Attacher binds an authenticated player to its match.
type Attacher interface {
	Attach(matchID, playerID string, out Outbox) (Controls, error)
}

type HandlerConfig struct {
	Issuer    *grant.Issuer
	Attacher  Attacher
	Logger    telemetry.Logger
	Publisher logging.Publisher

	MessageRate  rate.Limit
	MessageBurst int
	SendBuffer   int
	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
}

func (c HandlerConfig) normalized() HandlerConfig {
	if c.Logger == nil {
		c.Logger = telemetry.LoggerFunc(nil)
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher()
	}
	if c.MessageRate <= 0 {
		c.MessageRate = 30
	}
	if c.MessageBurst <= 0 {
		c.MessageBurst = 60
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 4096
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

// Handler upgrades authenticated join requests to websocket sessions.
type Handler struct {
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		cfg: cfg.normalized(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func grantToken(r *http.Request) string {
	if token := r.URL.Query().Get("grant"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	remote := r.RemoteAddr

	codec, ok := proto.CodecByName(r.URL.Query().Get("codec"))
	if !ok {
		http.Error(w, "unsupported codec", http.StatusBadRequest)
		return
	}
	if h.cfg.Issuer == nil || h.cfg.Attacher == nil {
		http.Error(w, "matchmaking unavailable", http.StatusServiceUnavailable)
		return
	}
	claims, err := h.cfg.Issuer.Verify(grantToken(r))
	if err != nil {
		reason := "invalid grant"
		if errors.Is(err, grant.ErrExpiredGrant) {
			reason = "expired grant"
		}
		network.ClientRejected(ctx, h.cfg.Publisher, logging.EntityRef{Kind: logging.EntityKindPlayer}, network.ConnectionPayload{Remote: remote, Reason: reason}, nil)
		http.Error(w, reason, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Printf("upgrade failed for %s: %v", claims.PlayerID, err)
		return
	}

	sess := newSession(conn, codec, claims.PlayerID, h.cfg, h.cfg.Logger)
	controls, err := h.cfg.Attacher.Attach(claims.MatchID, claims.PlayerID, sess)
	if err != nil {
		h.cfg.Logger.Printf("attach %s to %s failed: %v", claims.PlayerID, claims.MatchID, err)
		network.ClientRejected(ctx, h.cfg.Publisher, logging.PlayerRef(claims.PlayerID, false), network.ConnectionPayload{Remote: remote, Codec: codec.Name(), Reason: err.Error()}, map[string]any{"matchId": claims.MatchID})
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(h.cfg.WriteWait))
		conn.Close()
		return
	}

	actor := logging.PlayerRef(claims.PlayerID, false)
	extra := map[string]any{"matchId": claims.MatchID}
	network.ClientConnected(ctx, h.cfg.Publisher, 0, actor, network.ConnectionPayload{Remote: remote, Codec: codec.Name()}, extra)

	go sess.writeLoop()
	reason := h.readLoop(ctx, sess, controls, actor)

	controls.Detach()
	sess.Close(reason)
	network.ClientDisconnected(ctx, h.cfg.Publisher, 0, actor, network.ConnectionPayload{Remote: remote, Codec: codec.Name(), Reason: reason}, extra)
}

// readLoop decodes client messages until the connection fails and returns
// the disconnect reason.
func (h *Handler) readLoop(ctx context.Context, sess *session, controls Controls, actor logging.EntityRef) string {
	conn := sess.conn
	conn.SetReadLimit(h.cfg.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})
	limiter := rate.NewLimiter(h.cfg.MessageRate, h.cfg.MessageBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "client closed"
			}
			select {
			case <-sess.done:
				return sess.closeReason()
			default:
			}
			return "read failed"
		}
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		if !limiter.Allow() {
			network.MessageRejected(ctx, h.cfg.Publisher, 0, actor, network.MessagePayload{Reason: "rate_limited"}, nil)
			continue
		}

		msg, err := sess.codec.Decode(data)
		if err != nil {
			network.MessageRejected(ctx, h.cfg.Publisher, 0, actor, network.MessagePayload{Reason: "malformed"}, nil)
			code := "bad_message"
			if errors.Is(err, proto.ErrUnsupportedVersion) {
				code = "unsupported_version"
			}
			sess.Send(proto.Error(code, err.Error()))
			continue
		}
		h.dispatch(ctx, sess, controls, actor, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess *session, controls Controls, actor logging.EntityRef, msg proto.ClientMessage) {
	switch msg.Type {
	case proto.TypeMove:
		controls.SetDirection(msg.Direction())
	case proto.TypeSkill:
		req, ok := msg.Request()
		if !ok {
			network.MessageRejected(ctx, h.cfg.Publisher, 0, actor, network.MessagePayload{MessageType: msg.Type, Reason: "unknown_skill"}, nil)
			sess.Send(proto.Error("unknown_skill", "unknown skill or missing target"))
			return
		}
		controls.RequestSkill(req)
	case proto.TypeCancel:
		controls.CancelSkill()
	case proto.TypePing:
		sess.Send(proto.Pong(msg.SentAt))
	default:
		network.MessageRejected(ctx, h.cfg.Publisher, 0, actor, network.MessagePayload{MessageType: msg.Type, Reason: "unknown_type"}, nil)
		sess.Send(proto.Error("unknown_type", "unsupported message type"))
	}
}
