/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors in-process engine events onto external brokers so
// companion services (overlays, dashboards) can follow playback without
// linking against the engine.
package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seguemedia/segue/internal/events"
)

// mirroredTypes is the set of event types forwarded to external brokers.
var mirroredTypes = []events.EventType{
	events.EventPlaybackStarted,
	events.EventPlaybackAdvanced,
	events.EventPlaybackFinished,
	events.EventPlaybackStopped,
	events.EventPlaybackNotice,
	events.EventBoundaryReached,
	events.EventPlayerReady,
	events.EventPlayerError,
	events.EventQueueUpdated,
}

// Publisher sends one serialized event to an external broker.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType events.EventType, data []byte) error
	Close() error
}

// Mirror subscribes to the in-process bus and forwards events to a Publisher.
type Mirror struct {
	bus    *events.Bus
	pub    Publisher
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	subs   map[events.EventType]events.Subscriber
	done   sync.WaitGroup
}

// NewMirror creates a mirror over the given publisher.
func NewMirror(bus *events.Bus, pub Publisher, logger zerolog.Logger) *Mirror {
	return &Mirror{
		bus:    bus,
		pub:    pub,
		logger: logger.With().Str("component", "eventbus").Logger(),
		subs:   make(map[events.EventType]events.Subscriber),
	}
}

// Start begins forwarding. One goroutine per mirrored type keeps a slow
// broker from delaying unrelated event types.
func (m *Mirror) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	for _, et := range mirroredTypes {
		sub := m.bus.Subscribe(et)
		m.subs[et] = sub
		m.done.Add(1)
		go m.forward(ctx, et, sub)
	}
	m.mu.Unlock()
}

func (m *Mirror) forward(ctx context.Context, et events.EventType, sub events.Subscriber) {
	defer m.done.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(payload)
			if err != nil {
				m.logger.Warn().Err(err).Str("event", string(et)).Msg("marshal event")
				continue
			}
			if err := m.pub.PublishEvent(ctx, et, data); err != nil {
				m.logger.Warn().Err(err).Str("event", string(et)).Msg("mirror publish failed")
			}
		}
	}
}

// Close stops forwarding and closes the publisher.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	for et, sub := range m.subs {
		m.bus.Unsubscribe(et, sub)
	}
	m.subs = make(map[events.EventType]events.Subscriber)
	m.mu.Unlock()
	m.done.Wait()
	return m.pub.Close()
}
