// Package events carries change notifications from writers to
// subscribers. An event is a signal to re-fetch, not a diff.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeCollectionChanged  = "collection.changed"
)

// Topic helpers. Subscribers join rooms named by these.
func OutletTopic(id string) string { return "outlet:" + id }
func OrderTopic(id string) string { return "order:" + id }
func CollectionTopic(name string) string { return "collection:" + name }

type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Topics  []string        `json:"topics"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Time    time.Time       `json:"time"`
}

// New builds an event with a fresh id. payload may be nil.
func New(typ string, payload interface{}, topics ...string) (Event, error) {
	e := Event{ID: uuid.NewString(), Type: typ, Topics: topics, Time: time.Now().UTC()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = b
	}
	return e, nil
}

// CollectionChanged is published after a successful write to a collection.
type CollectionChanged struct {
	Collection string `json:"collection"`
	ID         string `json:"id,omitempty"`
	OutletID   string `json:"outletId,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi delivers each event to every publisher, even when one fails.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnlyTypes forwards events whose type starts with one of the prefixes.
func OnlyTypes(p Publisher, prefixes ...string) Publisher {
	return PublisherFunc(func(ctx context.Context, e Event) error {
		for _, prefix := range prefixes {
			if strings.HasPrefix(e.Type, prefix) {
				return p.Publish(ctx, e)
			}
		}
		return nil
	})
}
