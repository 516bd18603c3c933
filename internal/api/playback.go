/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seguemedia/segue/internal/playback"
	"github.com/seguemedia/segue/internal/store"
)

// Playback control handlers

// handlePlayQueue starts queue playback for a project.
func (a *API) handlePlayQueue(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	err := a.coordinator.PlayQueue(r.Context(), projectID)
	switch {
	case errors.Is(err, playback.ErrQueueEmpty):
		writeError(w, http.StatusConflict, "queue_empty")
		return
	case errors.Is(err, playback.ErrSettling):
		writeError(w, http.StatusConflict, "player_settling")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("play queue failed")
		writeError(w, http.StatusInternalServerError, "play_queue_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handlePlayIndex jumps to a specific queue position.
func (a *API) handlePlayIndex(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid_index")
		return
	}

	err = a.coordinator.PlayIndex(r.Context(), projectID, index)
	switch {
	case errors.Is(err, playback.ErrSettling):
		writeError(w, http.StatusConflict, "player_settling")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("project_id", projectID).Int("index", index).Msg("play index failed")
		writeError(w, http.StatusInternalServerError, "play_index_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handlePlayNext advances to the next queue item.
func (a *API) handlePlayNext(w http.ResponseWriter, r *http.Request) {
	err := a.coordinator.PlayNext(r.Context())
	switch {
	case errors.Is(err, playback.ErrSettling):
		writeError(w, http.StatusConflict, "player_settling")
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("play next failed")
		writeError(w, http.StatusInternalServerError, "play_next_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handlePlayPrevious steps back one queue item.
func (a *API) handlePlayPrevious(w http.ResponseWriter, r *http.Request) {
	err := a.coordinator.PlayPrevious(r.Context())
	switch {
	case errors.Is(err, playback.ErrAtStart):
		writeError(w, http.StatusConflict, "at_first_item")
		return
	case errors.Is(err, playback.ErrSettling):
		writeError(w, http.StatusConflict, "player_settling")
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("play previous failed")
		writeError(w, http.StatusInternalServerError, "play_previous_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handlePlaySegment previews one segment outside the queue.
func (a *API) handlePlaySegment(w http.ResponseWriter, r *http.Request) {
	segmentID := chi.URLParam(r, "segmentID")
	seg, err := a.store.GetSegment(r.Context(), segmentID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "segment_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("segment_id", segmentID).Msg("get segment failed")
		writeError(w, http.StatusInternalServerError, "get_segment_failed")
		return
	}

	err = a.coordinator.PlaySegment(r.Context(), *seg)
	switch {
	case errors.Is(err, playback.ErrSettling):
		writeError(w, http.StatusConflict, "player_settling")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("segment_id", segmentID).Msg("play segment failed")
		writeError(w, http.StatusInternalServerError, "play_segment_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handlePlaybackStatus returns the coordinator snapshot.
func (a *API) handlePlaybackStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handlePause pauses the player.
func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.coordinator.Pause()
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handleResume resumes the player.
func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.coordinator.Resume()
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// handleStop halts queue playback.
func (a *API) handleStop(w http.ResponseWriter, r *http.Request) {
	a.coordinator.Stop()
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}
