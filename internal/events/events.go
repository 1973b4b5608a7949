// Package events publishes domain events after successful mutations.
// Publishing is best effort: a broker outage never fails the request that
// produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	UserRegistered  Type = "user.registered"
	UserLoggedIn    Type = "user.logged_in"
	UserLoggedOut   Type = "user.logged_out"
	BookmarkCreated Type = "bookmark.created"
	BookmarkUpdated Type = "bookmark.updated"
	BookmarkDeleted Type = "bookmark.deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

func New(t Type, userID string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
