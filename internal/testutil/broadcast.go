package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SentEvent is one fan-out call captured by RecordingBroadcaster.
type SentEvent struct {
	Event     string
	ProjectID primitive.ObjectID
	UserIDs   []primitive.ObjectID // explicit audience for BroadcastTo and NotifyUser
	Actor     *models.PublicUser
	Data      any
}

// RecordingBroadcaster stands in for the real-time router in handler tests.
type RecordingBroadcaster struct {
	mu        sync.Mutex
	events    []SentEvent
	evictions []SentEvent
}

func (b *RecordingBroadcaster) add(e SentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *RecordingBroadcaster) Broadcast(_ context.Context, event string, projectID primitive.ObjectID, actor *models.PublicUser, data any) {
	b.add(SentEvent{Event: event, ProjectID: projectID, Actor: actor, Data: data})
}

func (b *RecordingBroadcaster) BroadcastTo(_ context.Context, event string, projectID primitive.ObjectID, userIDs []primitive.ObjectID, actor *models.PublicUser, data any) {
	b.add(SentEvent{Event: event, ProjectID: projectID, UserIDs: userIDs, Actor: actor, Data: data})
}

func (b *RecordingBroadcaster) NotifyUser(_ context.Context, userID primitive.ObjectID, event string, payload any) {
	b.add(SentEvent{Event: event, UserIDs: []primitive.ObjectID{userID}, Data: payload})
}

// Evict records a project-room eviction of one user.
func (b *RecordingBroadcaster) Evict(_ context.Context, projectID, userID primitive.ObjectID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictions = append(b.evictions, SentEvent{ProjectID: projectID, UserIDs: []primitive.ObjectID{userID}})
}

// CloseProject records a whole-room eviction; UserIDs is empty.
func (b *RecordingBroadcaster) CloseProject(_ context.Context, projectID primitive.ObjectID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictions = append(b.evictions, SentEvent{ProjectID: projectID})
}

// Evictions returns the recorded room evictions, kept apart from Events.
func (b *RecordingBroadcaster) Evictions() []SentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentEvent(nil), b.evictions...)
}

// Events returns a copy of everything sent so far.
func (b *RecordingBroadcaster) Events() []SentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentEvent(nil), b.events...)
}

// Names returns the event names in send order.
func (b *RecordingBroadcaster) Names() []string {
	var names []string
	for _, e := range b.Events() {
		names = append(names, e.Event)
	}
	return names
}
