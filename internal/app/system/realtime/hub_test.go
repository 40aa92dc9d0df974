package realtime

import (
	"testing"

	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(uid primitive.ObjectID) *Client {
	return NewClient(&auth.SessionUser{ID: uid, Name: "Test", Username: "test"}, 8)
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestHub_AddRemove_FirstAndLast(t *testing.T) {
	h := NewHub()
	uid := primitive.NewObjectID()
	a, b := newTestClient(uid), newTestClient(uid)

	assert.True(t, h.Add(a), "first connection")
	assert.False(t, h.Add(b), "second connection")
	assert.True(t, h.Online(uid))
	assert.Equal(t, 2, h.RoomSize(UserRoom(uid)))

	assert.False(t, h.Remove(a))
	assert.True(t, h.Remove(b), "last connection")
	assert.False(t, h.Online(uid))
	assert.Equal(t, 0, h.RoomSize(UserRoom(uid)))

	assert.False(t, h.Remove(b), "double remove is a no-op")
}

func TestHub_Deliver_DuplicatesAcrossRoomsAndSkipsSender(t *testing.T) {
	h := NewHub()
	uid := primitive.NewObjectID()
	pid := primitive.NewObjectID()
	viewer := newTestClient(uid)
	sender := newTestClient(primitive.NewObjectID())
	h.Add(viewer)
	h.Add(sender)
	h.Join(viewer, ProjectRoom(pid))
	h.Join(sender, ProjectRoom(pid))

	n := h.Deliver([]string{ProjectRoom(pid), UserRoom(uid)}, []byte("x"), sender.ID())

	assert.Equal(t, 2, n)
	assert.Len(t, drain(viewer), 2, "room copy and personal copy")
	assert.Empty(t, drain(sender))
}

func TestHub_LeavePersonalRoomIgnored(t *testing.T) {
	h := NewHub()
	uid := primitive.NewObjectID()
	c := newTestClient(uid)
	h.Add(c)
	pid := primitive.NewObjectID()
	h.Join(c, ProjectRoom(pid))

	h.Leave(c, UserRoom(uid))
	h.Leave(c, ProjectRoom(pid))

	assert.True(t, h.InRoom(c, UserRoom(uid)))
	assert.False(t, h.InRoom(c, ProjectRoom(pid)))
}

func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub()
	uid := primitive.NewObjectID()
	c := NewClient(&auth.SessionUser{ID: uid}, 1)
	h.Add(c)

	require.Equal(t, 1, h.Deliver([]string{UserRoom(uid)}, []byte("1"), ""))
	assert.Equal(t, 0, h.Deliver([]string{UserRoom(uid)}, []byte("2"), ""))
}

func TestHub_LeaveUser_OnlyThatUsersClients(t *testing.T) {
	h := NewHub()
	pid := primitive.NewObjectID()
	gone, stays := primitive.NewObjectID(), primitive.NewObjectID()
	tab1, tab2, other := newTestClient(gone), newTestClient(gone), newTestClient(stays)
	for _, c := range []*Client{tab1, tab2, other} {
		h.Add(c)
		h.Join(c, ProjectRoom(pid))
	}

	assert.Equal(t, 2, h.LeaveUser(gone, ProjectRoom(pid)))
	assert.False(t, h.InRoom(tab1, ProjectRoom(pid)))
	assert.False(t, h.InRoom(tab2, ProjectRoom(pid)))
	assert.True(t, h.InRoom(other, ProjectRoom(pid)))
	assert.True(t, h.InRoom(tab1, UserRoom(gone)), "personal room kept")

	assert.Zero(t, h.LeaveUser(gone, UserRoom(gone)))
	assert.True(t, h.InRoom(tab1, UserRoom(gone)))
}

func TestHub_CloseRoom(t *testing.T) {
	h := NewHub()
	pid := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	a, b := newTestClient(uid), newTestClient(primitive.NewObjectID())
	h.Add(a)
	h.Add(b)
	h.Join(a, ProjectRoom(pid))
	h.Join(b, ProjectRoom(pid))

	assert.Equal(t, 2, h.CloseRoom(ProjectRoom(pid)))
	assert.Equal(t, 0, h.RoomSize(ProjectRoom(pid)))

	assert.Zero(t, h.CloseRoom(UserRoom(uid)), "personal rooms cannot be closed")
	assert.True(t, h.InRoom(a, UserRoom(uid)))
}
