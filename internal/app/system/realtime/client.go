package realtime

import (
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSendBuffer is the per-connection queue length.
const DefaultSendBuffer = 64

// Client is one live connection. rooms is guarded by the owning Hub's lock.
type Client struct {
	id    string
	user  *auth.SessionUser
	send  chan []byte
	rooms map[string]struct{}
}

// NewClient creates a client for user with a send queue of size buffer.
func NewClient(user *auth.SessionUser, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		id:    uuid.NewString(),
		user:  user,
		send:  make(chan []byte, buffer),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) ID() string { return c.id }
func (c *Client) UserID() primitive.ObjectID { return c.user.ID }
func (c *Client) User() *auth.SessionUser { return c.user }

// Messages exposes the send queue to the connection writer.
func (c *Client) Messages() <-chan []byte { return c.send }

// enqueue never blocks; a slow client loses messages rather than stalling fan-out.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		metrics.RealtimeDropped.Inc()
		return false
	}
}
