/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/seguemedia/segue/internal/events"
	"github.com/seguemedia/segue/internal/playback"
	"github.com/seguemedia/segue/internal/player/bridge"
	"github.com/seguemedia/segue/internal/store"
	"github.com/seguemedia/segue/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	store       *store.Service
	coordinator *playback.Coordinator
	bridge      *bridge.Bridge
	bus         *events.Bus
	logger      zerolog.Logger
}

// New creates the API router wrapper.
func New(storeSvc *store.Service, coordinator *playback.Coordinator, playerBridge *bridge.Bridge, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		store:       storeSvc,
		coordinator: coordinator,
		bridge:      playerBridge,
		bus:         bus,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", a.handleProjectsList)
			r.Post("/", a.handleProjectsCreate)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", a.handleProjectsGet)
				r.Patch("/", a.handleProjectsUpdate)
				r.Delete("/", a.handleProjectsDelete)

				r.Route("/segments", func(r chi.Router) {
					r.Get("/", a.handleSegmentsList)
					r.Post("/", a.handleSegmentsCreate)
				})

				r.Route("/queue", func(r chi.Router) {
					r.Get("/", a.handleQueueList)
					r.Post("/", a.handleQueueAdd)
					r.Put("/order", a.handleQueueReorder)
					r.Delete("/", a.handleQueueClear)
				})

				r.Route("/playback", func(r chi.Router) {
					r.Post("/queue", a.handlePlayQueue)
					r.Post("/index/{index}", a.handlePlayIndex)
				})
			})
		})

		r.Route("/segments/{segmentID}", func(r chi.Router) {
			r.Get("/", a.handleSegmentsGet)
			r.Patch("/", a.handleSegmentsUpdate)
			r.Delete("/", a.handleSegmentsDelete)
			r.Post("/play", a.handlePlaySegment)
		})

		r.Delete("/queue/items/{itemID}", a.handleQueueRemove)

		r.Route("/playback", func(r chi.Router) {
			r.Get("/status", a.handlePlaybackStatus)
			r.Post("/next", a.handlePlayNext)
			r.Post("/previous", a.handlePlayPrevious)
			r.Post("/pause", a.handlePause)
			r.Post("/resume", a.handleResume)
			r.Post("/stop", a.handleStop)
		})

		r.Get("/events", a.handleEventStream)
	})

	r.Get("/ws/player", a.bridge.ServeWS)
}

// handleHealth reports service liveness.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
