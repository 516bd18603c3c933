/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Playback engine events
	EventPlaybackStarted  EventType = "playback.started"
	EventPlaybackAdvanced EventType = "playback.advanced"
	EventPlaybackFinished EventType = "playback.finished"
	EventPlaybackStopped  EventType = "playback.stopped"
	EventPlaybackNotice   EventType = "playback.notice"
	EventBoundaryReached  EventType = "playback.boundary"
	EventPlayerReady      EventType = "player.ready"
	EventPlayerError      EventType = "player.error"
	EventPlayerMountLost  EventType = "player.mount_lost"
	EventPlayerMountReady EventType = "player.mount_ready"

	// Store change events
	EventProjectCreated EventType = "store.project_created"
	EventProjectDeleted EventType = "store.project_deleted"
	EventSegmentCreated EventType = "store.segment_created"
	EventSegmentUpdated EventType = "store.segment_updated"
	EventSegmentDeleted EventType = "store.segment_deleted"
	EventQueueUpdated   EventType = "store.queue_updated"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Publishing never blocks: a
// subscriber that falls behind loses events rather than stalling the engine.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers of eventType.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
