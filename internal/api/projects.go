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

// Project API handlers

type projectRequest struct {
	Name          string  `json:"name"`
	VideoID       string  `json:"video_id"`
	VideoTitle    string  `json:"video_title"`
	VideoDuration float64 `json:"video_duration"`
}

// handleProjectsList returns all projects.
func (a *API) handleProjectsList(w http.ResponseWriter, r *http.Request) {
	projects, err := a.store.ListProjects(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list projects failed")
		writeError(w, http.StatusInternalServerError, "list_projects_failed")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// handleProjectsCreate creates a project.
func (a *API) handleProjectsCreate(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	project := &models.Project{
		Name:          req.Name,
		VideoID:       req.VideoID,
		VideoTitle:    req.VideoTitle,
		VideoDuration: req.VideoDuration,
	}
	if err := a.store.CreateProject(r.Context(), project); err != nil {
		a.logger.Error().Err(err).Msg("create project failed")
		writeError(w, http.StatusInternalServerError, "create_project_failed")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// handleProjectsGet returns one project.
func (a *API) handleProjectsGet(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	project, err := a.store.GetProject(r.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("get project failed")
		writeError(w, http.StatusInternalServerError, "get_project_failed")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// handleProjectsUpdate updates a project.
func (a *API) handleProjectsUpdate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	project := &models.Project{
		ID:            projectID,
		Name:          req.Name,
		VideoID:       req.VideoID,
		VideoTitle:    req.VideoTitle,
		VideoDuration: req.VideoDuration,
	}
	err := a.store.UpdateProject(r.Context(), project)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("update project failed")
		writeError(w, http.StatusInternalServerError, "update_project_failed")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// handleProjectsDelete removes a project and its segments and queue.
func (a *API) handleProjectsDelete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	err := a.store.DeleteProject(r.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("project_id", projectID).Msg("delete project failed")
		writeError(w, http.StatusInternalServerError, "delete_project_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
