/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store provides persistence for projects, segments and the playback
// queue. Deleting a segment never cascades into the queue: a queue item may
// outlive the segment it references, and queue reads resolve such references
// to nil rather than failing.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seguemedia/segue/internal/events"
	"github.com/seguemedia/segue/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTimeRange indicates a segment's start/end times are unusable.
	ErrInvalidTimeRange = errors.New("segment end time must be after start time")
)

// ResolvedItem is a queue item joined with its segment, when it still exists.
type ResolvedItem struct {
	Item    models.QueueItem
	Segment *models.Segment
}

// Service implements project, segment and queue persistence.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates the store service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Projects

// CreateProject persists a new project.
func (s *Service) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	s.bus.Publish(events.EventProjectCreated, events.Payload{"project_id": p.ID})
	return nil
}

// GetProject fetches a project by ID.
func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := s.db.WithContext(ctx).Order("created_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// UpdateProject saves changes to a project.
func (s *Service) UpdateProject(ctx context.Context, p *models.Project) error {
	res := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":           p.Name,
		"video_id":       p.VideoID,
		"video_title":    p.VideoTitle,
		"video_duration": p.VideoDuration,
	})
	if res.Error != nil {
		return fmt.Errorf("update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project together with its segments and queue.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.QueueItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Segment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	s.bus.Publish(events.EventProjectDeleted, events.Payload{"project_id": id})
	return nil
}

// Segments

// validateTimeRange checks a segment's bounds: ordered, non-negative, and
// within the project's source video when its duration is known. A zero
// VideoDuration means the source length was never probed and only the
// ordering check applies.
func (s *Service) validateTimeRange(ctx context.Context, projectID string, seg *models.Segment) error {
	if seg.EndTime <= seg.StartTime || seg.StartTime < 0 {
		return ErrInvalidTimeRange
	}
	if projectID == "" {
		return nil
	}
	var proj models.Project
	err := s.db.WithContext(ctx).Select("video_duration").First(&proj, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load project for segment validation: %w", err)
	}
	if proj.VideoDuration > 0 && seg.EndTime > proj.VideoDuration {
		return ErrInvalidTimeRange
	}
	return nil
}

// CreateSegment persists a new segment after validating its time range.
func (s *Service) CreateSegment(ctx context.Context, seg *models.Segment) error {
	if err := s.validateTimeRange(ctx, seg.ProjectID, seg); err != nil {
		return err
	}
	if seg.ID == "" {
		seg.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(seg).Error; err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	s.bus.Publish(events.EventSegmentCreated, events.Payload{"segment_id": seg.ID, "project_id": seg.ProjectID})
	return nil
}

// GetSegment fetches a segment by ID.
func (s *Service) GetSegment(ctx context.Context, id string) (*models.Segment, error) {
	var seg models.Segment
	err := s.db.WithContext(ctx).First(&seg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return &seg, nil
}

// ListSegments returns a project's segments in position order.
func (s *Service) ListSegments(ctx context.Context, projectID string) ([]models.Segment, error) {
	var out []models.Segment
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position, created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return out, nil
}

// UpdateSegment saves changes to a segment after validating its time range.
func (s *Service) UpdateSegment(ctx context.Context, seg *models.Segment) error {
	current, err := s.GetSegment(ctx, seg.ID)
	if err != nil {
		return err
	}
	if err := s.validateTimeRange(ctx, current.ProjectID, seg); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Segment{}).Where("id = ?", seg.ID).Updates(map[string]any{
		"video_id":    seg.VideoID,
		"title":       seg.Title,
		"description": seg.Description,
		"start_time":  seg.StartTime,
		"end_time":    seg.EndTime,
		"position":    seg.Position,
	})
	if res.Error != nil {
		return fmt.Errorf("update segment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.bus.Publish(events.EventSegmentUpdated, events.Payload{"segment_id": seg.ID})
	return nil
}

// DeleteSegment removes a segment. Queue items referencing it are kept;
// playback resolves them to missing and skips.
func (s *Service) DeleteSegment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Segment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete segment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.bus.Publish(events.EventSegmentDeleted, events.Payload{"segment_id": id})
	return nil
}

// Queue

// AddQueueItem appends an item to the end of a project's queue.
func (s *Service) AddQueueItem(ctx context.Context, item *models.QueueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var max int
		row := tx.Model(&models.QueueItem{}).
			Where("project_id = ?", item.ProjectID).
			Select("COALESCE(MAX(position), -1)").Row()
		if err := row.Scan(&max); err != nil {
			return err
		}
		item.Position = max + 1
		return tx.Create(item).Error
	})
	if err != nil {
		return fmt.Errorf("add queue item: %w", err)
	}
	s.publishQueueUpdated(item.ProjectID)
	return nil
}

// RemoveQueueItem deletes a queue item and compacts positions after it.
func (s *Service) RemoveQueueItem(ctx context.Context, id string) error {
	var projectID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.QueueItem
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		projectID = item.ProjectID
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		return tx.Model(&models.QueueItem{}).
			Where("project_id = ? AND position > ?", item.ProjectID, item.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove queue item: %w", err)
	}
	s.publishQueueUpdated(projectID)
	return nil
}

// ReorderQueue rewrites a project's queue positions to match the given item
// ID order. IDs missing from the list keep their relative order after the
// listed ones.
func (s *Service) ReorderQueue(ctx context.Context, projectID string, itemIDs []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.QueueItem
		if err := tx.Where("project_id = ?", projectID).Order("position").Find(&items).Error; err != nil {
			return err
		}
		rank := make(map[string]int, len(itemIDs))
		for i, id := range itemIDs {
			rank[id] = i
		}
		next := len(itemIDs)
		for i := range items {
			pos, ok := rank[items[i].ID]
			if !ok {
				pos = next
				next++
			}
			if err := tx.Model(&models.QueueItem{}).
				Where("id = ?", items[i].ID).
				UpdateColumn("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reorder queue: %w", err)
	}
	s.publishQueueUpdated(projectID)
	return nil
}

// ClearQueue removes all queue items for a project.
func (s *Service) ClearQueue(ctx context.Context, projectID string) error {
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.QueueItem{}).Error; err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	s.publishQueueUpdated(projectID)
	return nil
}

// Queue returns a project's queue in position order, each item resolved
// against the segment table. A nil Segment on a segment-kind item means the
// segment has been deleted since the item was queued.
func (s *Service) Queue(ctx context.Context, projectID string) ([]ResolvedItem, error) {
	var items []models.QueueItem
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}

	segIDs := make([]string, 0, len(items))
	for _, item := range items {
		if item.SegmentID != nil {
			segIDs = append(segIDs, *item.SegmentID)
		}
	}
	segments := make(map[string]models.Segment, len(segIDs))
	if len(segIDs) > 0 {
		var segs []models.Segment
		if err := s.db.WithContext(ctx).Where("id IN ?", segIDs).Find(&segs).Error; err != nil {
			return nil, fmt.Errorf("resolve queue segments: %w", err)
		}
		for _, seg := range segs {
			segments[seg.ID] = seg
		}
	}

	out := make([]ResolvedItem, 0, len(items))
	for _, item := range items {
		resolved := ResolvedItem{Item: item}
		if item.SegmentID != nil {
			if seg, ok := segments[*item.SegmentID]; ok {
				segCopy := seg
				resolved.Segment = &segCopy
			}
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (s *Service) publishQueueUpdated(projectID string) {
	s.bus.Publish(events.EventQueueUpdated, events.Payload{"project_id": projectID})
}
