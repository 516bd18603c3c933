/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/seguemedia/segue/internal/events"
)

// NATSPublisher forwards events to NATS subjects under segue.events.*.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("segue-engine"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// PublishEvent sends data on the subject for eventType.
func (p *NATSPublisher) PublishEvent(_ context.Context, eventType events.EventType, data []byte) error {
	return p.conn.Publish("segue.events."+string(eventType), data)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
