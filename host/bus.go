package host

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/anvil-platform/forge/internal/funcid"
)

// Event is the envelope delivered to bus subscribers.
type Event struct {
	ID      string
	Topic   string
	Payload any
}

// EventHandler receives published events. A panicking handler is
// isolated and reported on TopicError.
type EventHandler func(e Event)

type busEntry struct {
	id   funcid.ID
	fn   EventHandler
	once bool
}

// Bus is the synchronous notification bus shared by the host and the
// lifecycle manager. Fan-out runs on the publisher's stack; there is no
// background delivery.
type Bus struct {
	log      logr.Logger
	ids      *funcid.Registry
	handlers map[string][]*busEntry
}

func newBus(log logr.Logger, ids *funcid.Registry) *Bus {
	return &Bus{
		log:      log,
		ids:      ids,
		handlers: make(map[string][]*busEntry),
	}
}

// Subscribe registers fn on topic. Subscribing the same handler to the
// same topic twice is a no-op.
func (b *Bus) Subscribe(topic string, fn EventHandler) {
	b.subscribe(topic, fn, false)
}

// Once registers fn on topic for a single delivery.
func (b *Bus) Once(topic string, fn EventHandler) {
	b.subscribe(topic, fn, true)
}

func (b *Bus) subscribe(topic string, fn EventHandler, once bool) {
	id := b.ids.Identify(fn)
	for _, e := range b.handlers[topic] {
		if e.id == id {
			return
		}
	}
	b.handlers[topic] = append(b.handlers[topic], &busEntry{id: id, fn: fn, once: once})
}

// Unsubscribe removes fn from topic if present.
func (b *Bus) Unsubscribe(topic string, fn EventHandler) {
	id := b.ids.Identify(fn)
	entries := b.handlers[topic]
	for i, e := range entries {
		if e.id == id {
			b.handlers[topic] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic, in
// subscription order. Once-subscribers are dropped before delivery so a
// handler republishing the topic cannot run itself again.
func (b *Bus) Publish(topic string, payload any) {
	entries := b.handlers[topic]
	if len(entries) == 0 {
		return
	}
	kept := entries[:0:0]
	run := make([]*busEntry, 0, len(entries))
	for _, e := range entries {
		run = append(run, e)
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(b.handlers, topic)
	} else {
		b.handlers[topic] = kept
	}

	ev := Event{ID: uuid.NewString(), Topic: topic, Payload: payload}
	busEventsPublished.WithLabelValues(topic).Inc()
	for _, e := range run {
		b.deliver(e, ev)
	}
}

func (b *Bus) deliver(e *busEntry, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("bus handler panic on %s: %v", ev.Topic, p)
			b.log.Error(err, "event handler failed", "topic", ev.Topic)
			if ev.Topic != TopicError {
				b.Publish(TopicError, err)
			}
		}
	}()
	e.fn(ev)
}
