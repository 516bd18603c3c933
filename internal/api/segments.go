/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seguemedia/segue/internal/models"
	"github.com/seguemedia/segue/internal/store"
)

// Segment API handlers

type segmentRequest struct {
	VideoID     string  `json:"video_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Position    int     `json:"position"`
}

// handleSegmentsList returns a project's segments.
func (a *API) handleSegmentsList(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	segments, err := a.store.ListSegments(r.Context(), projectID)
	if err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("list segments failed")
		writeError(w, http.StatusInternalServerError, "list_segments_failed")
		return
	}
	writeJSON(w, http.StatusOK, segments)
}

// handleSegmentsCreate creates a segment under a project.
func (a *API) handleSegmentsCreate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "video_id_required")
		return
	}

	seg := &models.Segment{
		ProjectID:   projectID,
		VideoID:     req.VideoID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Position:    req.Position,
	}
	err := a.store.CreateSegment(r.Context(), seg)
	if errors.Is(err, store.ErrInvalidTimeRange) {
		writeError(w, http.StatusBadRequest, "invalid_time_range")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("create segment failed")
		writeError(w, http.StatusInternalServerError, "create_segment_failed")
		return
	}
	writeJSON(w, http.StatusCreated, seg)
}

// handleSegmentsGet returns one segment.
func (a *API) handleSegmentsGet(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, seg)
}

// handleSegmentsUpdate updates a segment.
func (a *API) handleSegmentsUpdate(w http.ResponseWriter, r *http.Request) {
	segmentID := chi.URLParam(r, "segmentID")
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	seg := &models.Segment{
		ID:          segmentID,
		VideoID:     req.VideoID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Position:    req.Position,
	}
	err := a.store.UpdateSegment(r.Context(), seg)
	switch {
	case errors.Is(err, store.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "segment_not_found")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("segment_id", segmentID).Msg("update segment failed")
		writeError(w, http.StatusInternalServerError, "update_segment_failed")
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

// handleSegmentsDelete removes a segment. Queue items keep referencing it
// and resolve as missing on playback.
func (a *API) handleSegmentsDelete(w http.ResponseWriter, r *http.Request) {
	segmentID := chi.URLParam(r, "segmentID")
	err := a.store.DeleteSegment(r.Context(), segmentID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "segment_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("segment_id", segmentID).Msg("delete segment failed")
		writeError(w, http.StatusInternalServerError, "delete_segment_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
