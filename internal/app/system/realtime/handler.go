package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/dalemusser/teamhub/internal/app/system/notify"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	readLimit    = 64 << 10
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Authenticator resolves a handshake credential to a user.
type Authenticator interface {
	Resolve(ctx context.Context, token string) (*auth.SessionUser, error)
}

// Authorizer checks project access for join_project.
type Authorizer interface {
	Authorize(ctx context.Context, userID, projectID primitive.ObjectID, required models.Role) (projectpolicy.Access, error)
}

// Presence records online state.
type Presence interface {
	SetPresence(ctx context.Context, userID primitive.ObjectID, online bool, at time.Time) error
}

// Handler upgrades /ws requests and runs the connection until it closes.
type Handler struct {
	router   *Router
	auth     Authenticator
	policy   Authorizer
	presence Presence
	log      *zap.Logger

	// OriginPatterns are passed to websocket.Accept. Empty means same-origin only.
	OriginPatterns []string

	stop     chan struct{}
	stopOnce sync.Once
}

func NewHandler(router *Router, authn Authenticator, policy Authorizer, presence Presence, log *zap.Logger) *Handler {
	return &Handler{
		router:   router,
		auth:     authn,
		policy:   policy,
		presence: presence,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Shutdown ends every open connection. Hijacked connections are not closed
// by http.Server.Shutdown, so the server calls this explicitly.
func (h *Handler) Shutdown() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// ServeHTTP accepts the upgrade first so that credential failures can be
// reported as close frames the client can read.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"bearer"},
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		h.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	user, err := h.auth.Resolve(r.Context(), token)
	if err != nil {
		h.reject(conn, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-h.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	c := NewClient(user, DefaultSendBuffer)
	if h.router.hub.Add(c) {
		h.setPresence(user.ID, true)
	}
	log := h.log.With(zap.String("conn_id", c.ID()), zap.String("user_id", user.ID.Hex()))
	log.Debug("realtime client connected")

	go h.writeLoop(ctx, cancel, conn, c)
	h.readLoop(ctx, conn, c, log)

	cancel()
	if h.router.hub.Remove(c) {
		h.setPresence(user.ID, false)
	}
	select {
	case <-h.stop:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		conn.Close(websocket.StatusNormalClosure, "")
	}
	log.Debug("realtime client disconnected")
}

// reject closes the connection with one of three distinct reasons.
func (h *Handler) reject(conn *websocket.Conn, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		metrics.RealtimeAuthFailures.WithLabelValues("missing").Inc()
		conn.Close(websocket.StatusPolicyViolation, auth.ErrTokenMissing.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		metrics.RealtimeAuthFailures.WithLabelValues("user_not_found").Inc()
		conn.Close(websocket.StatusPolicyViolation, auth.ErrUserNotFound.Error())
	case errors.Is(err, auth.ErrTokenInvalid):
		metrics.RealtimeAuthFailures.WithLabelValues("invalid").Inc()
		conn.Close(websocket.StatusPolicyViolation, auth.ErrTokenInvalid.Error())
	default:
		h.log.Error("realtime: resolve user", zap.Error(err))
		conn.Close(websocket.StatusInternalError, "internal error")
	}
}

func (h *Handler) setPresence(userID primitive.ObjectID, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	err := h.presence.SetPresence(ctx, userID, online, time.Now().UTC())
	notify.BestEffort(h.log, "realtime.presence", err, zap.String("user_id", userID.Hex()))
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *Client) {
	defer cancel()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Messages():
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			wcancel()
			if err != nil {
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, c *Client, log *zap.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.replyError(c, apperr.Validation(apperr.FieldError{Field: "message", Message: "malformed JSON"}))
			continue
		}
		h.dispatch(ctx, c, in, log)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Client, in inbound, log *zap.Logger) {
	switch in.Event {
	case MsgJoinProject, MsgLeaveProject, MsgTypingStart, MsgTypingStop:
	default:
		if !mirrored[in.Event] {
			log.Debug("realtime: unknown client event", zap.String("event", in.Event))
			return
		}
	}

	var ref projectRef
	if len(in.Data) > 0 {
		_ = json.Unmarshal(in.Data, &ref)
	}
	pid, err := primitive.ObjectIDFromHex(ref.ProjectID)
	if err != nil {
		h.replyError(c, apperr.Validation(apperr.FieldError{Field: "project_id", Message: "must be a valid id"}))
		return
	}
	room := ProjectRoom(pid)

	switch {
	case in.Event == MsgJoinProject:
		actx, cancel := context.WithTimeout(ctx, timeouts.Short())
		_, err := h.policy.Authorize(actx, c.UserID(), pid, models.RoleViewer)
		cancel()
		if err != nil {
			h.replyError(c, err)
			return
		}
		h.router.hub.Join(c, room)
		h.reply(c, Envelope{Event: EventJoinedProject, ProjectID: &pid})

	case in.Event == MsgLeaveProject:
		h.router.hub.Leave(c, room)

	case in.Event == MsgTypingStart || in.Event == MsgTypingStop:
		if !h.router.hub.InRoom(c, room) {
			return
		}
		actor := c.User().Public()
		h.router.route(ctx, []string{room}, c.ID(), Envelope{
			Event:     EventUserTyping,
			ProjectID: &pid,
			Actor:     &actor,
			Data: map[string]any{
				"task_id":   ref.TaskID,
				"is_typing": in.Event == MsgTypingStart,
			},
		})

	case mirrored[in.Event]:
		if !h.router.hub.InRoom(c, room) {
			return
		}
		actor := c.User().Public()
		h.router.route(ctx, []string{room}, c.ID(), Envelope{
			Event:     in.Event,
			ProjectID: &pid,
			Actor:     &actor,
			Mirrored:  true,
			Data:      in.Data,
		})
	}
}

func (h *Handler) reply(c *Client, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.enqueue(msg)
}

func (h *Handler) replyError(c *Client, err error) {
	e := apperr.As(err)
	data := map[string]any{"code": e.Kind, "message": e.Message}
	if e.Kind == apperr.KindInternal {
		data["message"] = "internal error"
		h.log.Error("realtime: internal error", zap.Error(err))
	}
	h.reply(c, Envelope{Event: EventError, Data: data})
}
