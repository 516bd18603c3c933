/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notify

import (
	"github.com/rs/zerolog"

	"github.com/seguemedia/segue/internal/events"
)

// Severity grades a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the engine's one-way status channel. Implementations may be a
// UI toast, a structured log, or anything else that can render two strings.
type Notifier interface {
	Notify(title, description string, severity Severity)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(title, description string, severity Severity) {
	var evt *zerolog.Event
	switch severity {
	case SeverityError:
		evt = n.logger.Error()
	case SeverityWarning:
		evt = n.logger.Warn()
	default:
		evt = n.logger.Info()
	}
	evt.Str("description", description).Msg(title)
}

// BusNotifier publishes notifications on the event bus so connected UIs can
// surface them as toasts.
type BusNotifier struct {
	bus *events.Bus
}

// NewBusNotifier creates a bus-backed notifier.
func NewBusNotifier(bus *events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

// Notify implements Notifier.
func (n *BusNotifier) Notify(title, description string, severity Severity) {
	n.bus.Publish(events.EventPlaybackNotice, events.Payload{
		"title":       title,
		"description": description,
		"severity":    string(severity),
	})
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(title, description string, severity Severity) {
	for _, n := range m {
		n.Notify(title, description, severity)
	}
}
