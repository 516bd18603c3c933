/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/seguemedia/segue/internal/events"
)

// defaultStreamTypes is what an /events client receives when it does not
// narrow the subscription with ?types=.
var defaultStreamTypes = []events.EventType{
	events.EventPlaybackStarted,
	events.EventPlaybackAdvanced,
	events.EventPlaybackFinished,
	events.EventPlaybackStopped,
	events.EventPlaybackNotice,
	events.EventPlayerReady,
	events.EventPlayerError,
	events.EventQueueUpdated,
}

// handleEventStream streams engine events over SSE. Overlay pages use this
// to show notices and react to queue advancement.
func (a *API) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	types := parseEventTypes(r.URL.Query().Get("types"))
	if len(types) == 0 {
		types = defaultStreamTypes
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	merged := make(chan streamEvent, 32)
	subs := make(map[events.EventType]events.Subscriber, len(types))
	for _, et := range types {
		sub := a.bus.Subscribe(et)
		subs[et] = sub
		go func(et events.EventType, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- streamEvent{Type: et, Payload: payload}:
				default:
				}
			}
		}(et, sub)
	}
	defer func() {
		for et, sub := range subs {
			a.bus.Unsubscribe(et, sub)
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-merged:
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

type streamEvent struct {
	Type    events.EventType
	Payload events.Payload
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}
