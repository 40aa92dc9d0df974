package realtime

import (
	"context"
	"encoding/json"

	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/dalemusser/teamhub/internal/app/system/notify"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MemberSource resolves the current members of a project.
type MemberSource interface {
	MemberIDs(ctx context.Context, projectID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// Delivery is a routed message, as handed to the relay. A delivery that
// carries Evict removes clients from a room instead of sending Payload.
type Delivery struct {
	Origin  string          `json:"origin"`
	Rooms   []string        `json:"rooms,omitempty"`
	Except  string          `json:"except,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Evict   *Eviction       `json:"evict,omitempty"`
}

// Eviction names a project room and the user whose clients must leave it.
// A blank UserID empties the room.
type Eviction struct {
	Room   string `json:"room"`
	UserID string `json:"user_id,omitempty"`
}

// Relay forwards deliveries to other processes.
type Relay interface {
	Publish(ctx context.Context, d Delivery) error
}

// Router is the fan-out entry point used by request handlers. It never
// returns errors: delivery is best-effort and must not fail the mutation
// that triggered it.
type Router struct {
	hub     *Hub
	members MemberSource
	log     *zap.Logger
	origin  string
	relay   Relay
}

func NewRouter(hub *Hub, members MemberSource, log *zap.Logger) *Router {
	return &Router{hub: hub, members: members, log: log, origin: uuid.NewString()}
}

// SetRelay enables cross-process delivery. Call before serving traffic.
func (r *Router) SetRelay(relay Relay) { r.relay = relay }

// Origin identifies this process on the relay.
func (r *Router) Origin() string { return r.origin }

// Hub returns the router's hub.
func (r *Router) Hub() *Hub { return r.hub }

// Broadcast delivers a project event to the project room and to the personal
// room of every current member, so members elsewhere in the app see it too.
// If the member list cannot be resolved only the project room is reached.
func (r *Router) Broadcast(ctx context.Context, event string, projectID primitive.ObjectID, actor *models.PublicUser, data any) {
	rooms := []string{ProjectRoom(projectID)}
	ids, err := r.members.MemberIDs(ctx, projectID)
	if notify.BestEffort(r.log, "realtime.resolve_members", err, zap.String("project_id", projectID.Hex())) {
		for _, id := range ids {
			rooms = append(rooms, UserRoom(id))
		}
	}
	pid := projectID
	r.route(ctx, rooms, "", Envelope{Event: event, ProjectID: &pid, Actor: actor, Data: data})
}

// BroadcastTo is Broadcast with an explicit recipient list, for events whose
// audience is no longer resolvable from the store (a deleted project, a
// removed member).
func (r *Router) BroadcastTo(ctx context.Context, event string, projectID primitive.ObjectID, userIDs []primitive.ObjectID, actor *models.PublicUser, data any) {
	rooms := []string{ProjectRoom(projectID)}
	for _, id := range userIDs {
		rooms = append(rooms, UserRoom(id))
	}
	pid := projectID
	r.route(ctx, rooms, "", Envelope{Event: event, ProjectID: &pid, Actor: actor, Data: data})
}

// NotifyUser delivers payload to the user's personal room.
func (r *Router) NotifyUser(ctx context.Context, userID primitive.ObjectID, event string, payload any) {
	r.route(ctx, []string{UserRoom(userID)}, "", Envelope{Event: event, Data: payload})
}

// Evict takes the user's connections out of the project room on every
// process. Their personal room is untouched, so events addressed to them
// still arrive.
func (r *Router) Evict(ctx context.Context, projectID, userID primitive.ObjectID) {
	r.evict(ctx, Eviction{Room: ProjectRoom(projectID), UserID: userID.Hex()})
}

// CloseProject empties the project room on every process.
func (r *Router) CloseProject(ctx context.Context, projectID primitive.ObjectID) {
	r.evict(ctx, Eviction{Room: ProjectRoom(projectID)})
}

// DeliverRemote hands a relayed delivery from another process to local clients.
func (r *Router) DeliverRemote(d Delivery) {
	if d.Origin == r.origin {
		return
	}
	if d.Evict != nil {
		r.applyEviction(*d.Evict)
		return
	}
	r.hub.Deliver(d.Rooms, d.Payload, d.Except)
}

func (r *Router) evict(ctx context.Context, ev Eviction) {
	r.applyEviction(ev)
	if r.relay == nil {
		return
	}
	if err := r.relay.Publish(ctx, Delivery{Origin: r.origin, Evict: &ev}); err != nil {
		metrics.RealtimeRelayErrors.Inc()
		notify.BestEffort(r.log, "realtime.relay_evict", err, zap.String("room", ev.Room))
	}
}

func (r *Router) applyEviction(ev Eviction) {
	if ev.UserID == "" {
		r.hub.CloseRoom(ev.Room)
		return
	}
	uid, err := primitive.ObjectIDFromHex(ev.UserID)
	if err != nil {
		r.log.Warn("realtime: bad eviction user id", zap.String("user_id", ev.UserID))
		return
	}
	r.hub.LeaveUser(uid, ev.Room)
}

func (r *Router) route(ctx context.Context, rooms []string, except string, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		r.log.Error("realtime: marshal envelope", zap.String("event", env.Event), zap.Error(err))
		return
	}
	r.hub.Deliver(rooms, msg, except)

	if r.relay == nil {
		return
	}
	err = r.relay.Publish(ctx, Delivery{Origin: r.origin, Rooms: rooms, Except: except, Payload: msg})
	if err != nil {
		metrics.RealtimeRelayErrors.Inc()
		notify.BestEffort(r.log, "realtime.relay_publish", err, zap.String("event", env.Event))
	}
}
