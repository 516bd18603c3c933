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

// Queue API handlers

type queueAddRequest struct {
	Kind        string  `json:"kind"`
	SegmentID   *string `json:"segment_id,omitempty"`
	Description string  `json:"description,omitempty"`
}

type queueReorderRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// handleQueueList returns the resolved queue for a project. Items whose
// segment has been deleted carry a null segment.
func (a *API) handleQueueList(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	resolved, err := a.store.Queue(r.Context(), projectID)
	if err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("read queue failed")
		writeError(w, http.StatusInternalServerError, "read_queue_failed")
		return
	}

	result := make([]map[string]any, len(resolved))
	for i, item := range resolved {
		entry := map[string]any{
			"id":       item.Item.ID,
			"kind":     string(item.Item.Kind),
			"position": item.Item.Position,
		}
		switch item.Item.Kind {
		case models.QueueItemDescription:
			entry["description"] = item.Item.Description
		default:
			entry["segment_id"] = item.Item.SegmentID
			entry["segment"] = item.Segment
			entry["missing"] = item.Segment == nil
		}
		result[i] = entry
	}
	writeJSON(w, http.StatusOK, result)
}

// handleQueueAdd appends an item to a project's queue.
func (a *API) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req queueAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	kind := models.QueueItemKind(req.Kind)
	switch kind {
	case models.QueueItemSegment:
		if req.SegmentID == nil || *req.SegmentID == "" {
			writeError(w, http.StatusBadRequest, "segment_id_required")
			return
		}
	case models.QueueItemDescription:
		if req.Description == "" {
			writeError(w, http.StatusBadRequest, "description_required")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_kind")
		return
	}

	item := &models.QueueItem{
		ProjectID:   projectID,
		Kind:        kind,
		SegmentID:   req.SegmentID,
		Description: req.Description,
	}
	if err := a.store.AddQueueItem(r.Context(), item); err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("add queue item failed")
		writeError(w, http.StatusInternalServerError, "add_queue_item_failed")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleQueueReorder rewrites queue positions to match the given order.
func (a *API) handleQueueReorder(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req queueReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := a.store.ReorderQueue(r.Context(), projectID, req.ItemIDs); err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("reorder queue failed")
		writeError(w, http.StatusInternalServerError, "reorder_queue_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleQueueRemove deletes one queue item.
func (a *API) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	err := a.store.RemoveQueueItem(r.Context(), itemID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "queue_item_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("item_id", itemID).Msg("remove queue item failed")
		writeError(w, http.StatusInternalServerError, "remove_queue_item_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleQueueClear empties a project's queue.
func (a *API) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := a.store.ClearQueue(r.Context(), projectID); err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("clear queue failed")
		writeError(w, http.StatusInternalServerError, "clear_queue_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
