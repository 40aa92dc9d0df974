package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type staticMembers struct {
	ids []primitive.ObjectID
	err error
}

func (s staticMembers) MemberIDs(context.Context, primitive.ObjectID) ([]primitive.ObjectID, error) {
	return s.ids, s.err
}

type recordingRelay struct {
	mu   sync.Mutex
	sent []Delivery
}

func (r *recordingRelay) Publish(_ context.Context, d Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, d)
	return nil
}

func decode(t *testing.T, msg []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

// A task broadcast reaches the socket viewing the project and every member's
// personal room, including members not viewing it.
func TestRouter_Broadcast_ProjectRoomAndEveryMember(t *testing.T) {
	pid := primitive.NewObjectID()
	viewerID, elsewhereID, outsiderID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	hub := NewHub()
	router := NewRouter(hub, staticMembers{ids: []primitive.ObjectID{viewerID, elsewhereID}}, zap.NewNop())

	viewing := newTestClient(viewerID)
	elsewhere := newTestClient(elsewhereID)
	outsider := newTestClient(outsiderID)
	hub.Add(viewing)
	hub.Add(elsewhere)
	hub.Add(outsider)
	hub.Join(viewing, ProjectRoom(pid))

	actor := &models.PublicUser{ID: viewerID.Hex(), Name: "Vi", Username: "vi"}
	router.Broadcast(context.Background(), EventTaskMoved, pid, actor, map[string]string{"column": "doing"})

	got := drain(viewing)
	assert.Len(t, got, 2, "project room plus personal room")
	env := decode(t, got[0])
	assert.Equal(t, EventTaskMoved, env.Event)
	require.NotNil(t, env.Actor)
	assert.Equal(t, "vi", env.Actor.Username)
	assert.Equal(t, pid, *env.ProjectID)

	assert.Len(t, drain(elsewhere), 1, "personal room only")
	assert.Empty(t, drain(outsider))
}

func TestRouter_Broadcast_MemberLookupFailureFallsBackToRoom(t *testing.T) {
	pid := primitive.NewObjectID()
	hub := NewHub()
	router := NewRouter(hub, staticMembers{err: errors.New("store down")}, zap.NewNop())

	inRoom := newTestClient(primitive.NewObjectID())
	member := newTestClient(primitive.NewObjectID())
	hub.Add(inRoom)
	hub.Add(member)
	hub.Join(inRoom, ProjectRoom(pid))

	router.Broadcast(context.Background(), EventNoteCreated, pid, nil, nil)

	assert.Len(t, drain(inRoom), 1)
	assert.Empty(t, drain(member))
}

func TestRouter_RelayAndRemote(t *testing.T) {
	uid := primitive.NewObjectID()
	hub := NewHub()
	relay := &recordingRelay{}
	router := NewRouter(hub, staticMembers{}, zap.NewNop())
	router.SetRelay(relay)

	c := newTestClient(uid)
	hub.Add(c)

	router.NotifyUser(context.Background(), uid, "notification_received", map[string]string{"id": "1"})
	require.Len(t, relay.sent, 1)
	assert.Equal(t, router.Origin(), relay.sent[0].Origin)
	assert.Equal(t, []string{UserRoom(uid)}, relay.sent[0].Rooms)
	assert.Len(t, drain(c), 1)

	// Our own echo from the relay is ignored; another origin is delivered.
	router.DeliverRemote(relay.sent[0])
	assert.Empty(t, drain(c))

	foreign := relay.sent[0]
	foreign.Origin = "other-process"
	router.DeliverRemote(foreign)
	assert.Len(t, drain(c), 1)
}

// Once a member is removed and evicted, project broadcasts stop reaching the
// socket they had open on the project.
func TestRouter_Evict_RemovedMemberStopsReceivingProjectEvents(t *testing.T) {
	pid := primitive.NewObjectID()
	stayID, removedID := primitive.NewObjectID(), primitive.NewObjectID()

	hub := NewHub()
	// The store already reflects the removal.
	router := NewRouter(hub, staticMembers{ids: []primitive.ObjectID{stayID}}, zap.NewNop())

	stay := newTestClient(stayID)
	removed := newTestClient(removedID)
	hub.Add(stay)
	hub.Add(removed)
	hub.Join(stay, ProjectRoom(pid))
	hub.Join(removed, ProjectRoom(pid))

	router.Evict(context.Background(), pid, removedID)
	router.Broadcast(context.Background(), EventTaskCreated, pid, nil, map[string]string{"title": "secret"})

	assert.Empty(t, drain(removed))
	assert.Len(t, drain(stay), 2)

	// Personal events still reach the removed user.
	router.NotifyUser(context.Background(), removedID, "notification_received", nil)
	assert.Len(t, drain(removed), 1)
}

func TestRouter_CloseProject(t *testing.T) {
	pid := primitive.NewObjectID()
	hub := NewHub()
	router := NewRouter(hub, staticMembers{}, zap.NewNop())

	c := newTestClient(primitive.NewObjectID())
	hub.Add(c)
	hub.Join(c, ProjectRoom(pid))

	router.CloseProject(context.Background(), pid)
	router.Broadcast(context.Background(), EventNoteCreated, pid, nil, nil)

	assert.Empty(t, drain(c))
}

func TestRouter_Evict_TravelsOverRelay(t *testing.T) {
	pid := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	relay := &recordingRelay{}
	here := NewRouter(NewHub(), staticMembers{}, zap.NewNop())
	here.SetRelay(relay)

	hub := NewHub()
	there := NewRouter(hub, staticMembers{}, zap.NewNop())
	c := newTestClient(uid)
	hub.Add(c)
	hub.Join(c, ProjectRoom(pid))

	here.Evict(context.Background(), pid, uid)
	require.Len(t, relay.sent, 1)
	require.NotNil(t, relay.sent[0].Evict)
	assert.Equal(t, ProjectRoom(pid), relay.sent[0].Evict.Room)

	// Round-trip through JSON as the Redis relay does.
	b, err := json.Marshal(relay.sent[0])
	require.NoError(t, err)
	var d Delivery
	require.NoError(t, json.Unmarshal(b, &d))

	there.DeliverRemote(d)
	assert.False(t, hub.InRoom(c, ProjectRoom(pid)))
	assert.True(t, hub.InRoom(c, UserRoom(uid)))
}
