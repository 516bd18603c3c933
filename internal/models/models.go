/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Project groups the segments carved out of one source video together with
// the playback queue built from them.
type Project struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Name          string `gorm:"index"`
	VideoID       string `gorm:"index"`
	VideoTitle    string
	VideoDuration float64 // seconds; 0 when the source duration is unknown
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Segment is a bounded time range within the source video.
// StartTime < EndTime always holds for persisted rows; both are seconds.
type Segment struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	ProjectID   string `gorm:"type:uuid;index"`
	VideoID     string `gorm:"index"`
	Title       string
	Description string  `gorm:"type:text"`
	StartTime   float64 `gorm:"not null"`
	EndTime     float64 `gorm:"not null"`
	Position    int     `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Duration returns the playable length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// QueueItemKind tags the queue item variant.
type QueueItemKind string

const (
	QueueItemSegment     QueueItemKind = "segment"
	QueueItemDescription QueueItemKind = "description"
)

// QueueItem is one position in a project's playback queue. A segment-kind
// item keeps its SegmentID even after the segment is deleted; a dangling
// reference is an expected state, resolved (or not) at read time.
type QueueItem struct {
	ID          string        `gorm:"type:uuid;primaryKey"`
	ProjectID   string        `gorm:"type:uuid;index"`
	Kind        QueueItemKind `gorm:"type:varchar(16)"`
	SegmentID   *string       `gorm:"type:uuid"`
	Description string        `gorm:"type:text"`
	Position    int           `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
