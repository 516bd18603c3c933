/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seguemedia/segue/internal/events"
	"github.com/seguemedia/segue/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Project{}, &models.Segment{}, &models.QueueItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, events.NewBus(), zerolog.Nop())
}

func mustProject(t *testing.T, svc *Service) *models.Project {
	t.Helper()
	p := &models.Project{Name: "talk", VideoID: "vid-src", VideoDuration: 600}
	if err := svc.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func mustSegment(t *testing.T, svc *Service, projectID string, start, end float64) *models.Segment {
	t.Helper()
	seg := &models.Segment{ProjectID: projectID, VideoID: "vid-src", Title: "part", StartTime: start, EndTime: end}
	if err := svc.CreateSegment(context.Background(), seg); err != nil {
		t.Fatalf("create segment: %v", err)
	}
	return seg
}

func TestProjectLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := mustProject(t, svc)
	if p.ID == "" {
		t.Fatal("project id not assigned")
	}

	fetched, err := svc.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if fetched.Name != "talk" {
		t.Fatalf("name = %q, want talk", fetched.Name)
	}

	fetched.Name = "keynote"
	if err := svc.UpdateProject(ctx, fetched); err != nil {
		t.Fatalf("update project: %v", err)
	}
	again, err := svc.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if again.Name != "keynote" {
		t.Fatalf("name after update = %q, want keynote", again.Name)
	}

	if err := svc.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := svc.GetProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted project = %v, want ErrNotFound", err)
	}
}

func TestSegmentTimeRangeValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc)

	cases := []struct {
		name       string
		start, end float64
	}{
		{"end equals start", 10, 10},
		{"end before start", 20, 10},
		{"negative start", -1, 10},
		{"end past source duration", 590, 601},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seg := &models.Segment{ProjectID: p.ID, VideoID: "vid-src", StartTime: tc.start, EndTime: tc.end}
			if err := svc.CreateSegment(ctx, seg); !errors.Is(err, ErrInvalidTimeRange) {
				t.Fatalf("create = %v, want ErrInvalidTimeRange", err)
			}
		})
	}

	seg := mustSegment(t, svc, p.ID, 5, 25)
	seg.EndTime = 4
	if err := svc.UpdateSegment(ctx, seg); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("update = %v, want ErrInvalidTimeRange", err)
	}
	seg.EndTime = 650
	if err := svc.UpdateSegment(ctx, seg); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("update past source duration = %v, want ErrInvalidTimeRange", err)
	}
}

func TestSegmentBoundsUncheckedWithoutSourceDuration(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := &models.Project{Name: "raw", VideoID: "vid-raw"}
	if err := svc.CreateProject(ctx, p); err != nil {
		t.Fatalf("create project: %v", err)
	}

	// Duration was never probed; any ordered range is accepted.
	seg := &models.Segment{ProjectID: p.ID, VideoID: "vid-raw", StartTime: 0, EndTime: 9000}
	if err := svc.CreateSegment(ctx, seg); err != nil {
		t.Fatalf("create segment without known duration: %v", err)
	}
}

func TestQueuePositionsAppendAndCompact(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc)
	seg := mustSegment(t, svc, p.ID, 0, 30)

	items := make([]*models.QueueItem, 3)
	for i := range items {
		items[i] = &models.QueueItem{ProjectID: p.ID, Kind: models.QueueItemSegment, SegmentID: &seg.ID}
		if err := svc.AddQueueItem(ctx, items[i]); err != nil {
			t.Fatalf("add item %d: %v", i, err)
		}
		if items[i].Position != i {
			t.Fatalf("item %d position = %d, want %d", i, items[i].Position, i)
		}
	}

	if err := svc.RemoveQueueItem(ctx, items[1].ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}

	queue, err := svc.Queue(ctx, p.ID)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(queue))
	}
	for i, item := range queue {
		if item.Item.Position != i {
			t.Fatalf("position %d = %d after compaction", i, item.Item.Position)
		}
	}
}

func TestQueueResolvesDeletedSegmentToNil(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc)
	keep := mustSegment(t, svc, p.ID, 0, 30)
	doomed := mustSegment(t, svc, p.ID, 30, 60)

	for _, id := range []string{keep.ID, doomed.ID} {
		segID := id
		item := &models.QueueItem{ProjectID: p.ID, Kind: models.QueueItemSegment, SegmentID: &segID}
		if err := svc.AddQueueItem(ctx, item); err != nil {
			t.Fatalf("add item: %v", err)
		}
	}

	if err := svc.DeleteSegment(ctx, doomed.ID); err != nil {
		t.Fatalf("delete segment: %v", err)
	}

	queue, err := svc.Queue(ctx, p.ID)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("queue length = %d, want 2: deleting a segment must not shrink the queue", len(queue))
	}
	if queue[0].Segment == nil {
		t.Fatal("intact segment resolved to nil")
	}
	if queue[1].Segment != nil {
		t.Fatal("deleted segment still resolved")
	}
	if queue[1].Item.SegmentID == nil || *queue[1].Item.SegmentID != doomed.ID {
		t.Fatal("dangling item lost its segment reference")
	}
}

func TestReorderQueue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc)

	ids := make([]string, 3)
	for i := range ids {
		item := &models.QueueItem{ProjectID: p.ID, Kind: models.QueueItemDescription, Description: "card"}
		if err := svc.AddQueueItem(ctx, item); err != nil {
			t.Fatalf("add item: %v", err)
		}
		ids[i] = item.ID
	}

	if err := svc.ReorderQueue(ctx, p.ID, []string{ids[2], ids[0], ids[1]}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	queue, err := svc.Queue(ctx, p.ID)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	want := []string{ids[2], ids[0], ids[1]}
	for i, item := range queue {
		if item.Item.ID != want[i] {
			t.Fatalf("queue[%d] = %s, want %s", i, item.Item.ID, want[i])
		}
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc)
	seg := mustSegment(t, svc, p.ID, 0, 30)
	item := &models.QueueItem{ProjectID: p.ID, Kind: models.QueueItemSegment, SegmentID: &seg.ID}
	if err := svc.AddQueueItem(ctx, item); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := svc.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	if _, err := svc.GetSegment(ctx, seg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("segment survived project deletion: %v", err)
	}
	queue, err := svc.Queue(ctx, p.ID)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("queue length = %d after project deletion, want 0", len(queue))
	}
}

func TestQueueUpdatePublishesEvent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Project{}, &models.Segment{}, &models.QueueItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	svc := NewService(db, bus, zerolog.Nop())

	sub := bus.Subscribe(events.EventQueueUpdated)
	defer bus.Unsubscribe(events.EventQueueUpdated, sub)

	p := mustProject(t, svc)
	item := &models.QueueItem{ProjectID: p.ID, Kind: models.QueueItemDescription, Description: "card"}
	if err := svc.AddQueueItem(context.Background(), item); err != nil {
		t.Fatalf("add item: %v", err)
	}

	select {
	case payload := <-sub:
		if payload["project_id"] != p.ID {
			t.Fatalf("event project_id = %v, want %s", payload["project_id"], p.ID)
		}
	default:
		t.Fatal("queue update event not published")
	}
}
