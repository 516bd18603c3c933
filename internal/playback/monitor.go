/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seguemedia/segue/internal/player"
)

// Monitor detects, once per armed segment, the moment playback position
// crosses the transition trigger point. The external player exposes no
// "segment ended" event, so the edge is derived by sampling the position on
// a fixed period and comparing it against endTime minus the fade lead.
//
// The monitor deactivates itself before delivering the signal, so delivery
// is at most once even if a late tick would also satisfy the condition.
type Monitor struct {
	adapter  *player.Adapter
	interval time.Duration
	lead     float64
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel chan struct{}
}

// NewMonitor creates a boundary monitor sampling the adapter.
func NewMonitor(adapter *player.Adapter, interval time.Duration, lead float64, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		adapter:  adapter,
		interval: interval,
		lead:     lead,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// Arm starts watching for endTime and fires exactly once when the trigger
// point is crossed. Any previously armed watch is cancelled first; at most
// one watch is alive at a time.
func (m *Monitor) Arm(endTime float64, fire func()) {
	m.Cancel()

	stop := make(chan struct{})
	m.mu.Lock()
	m.cancel = stop
	m.mu.Unlock()

	trigger := endTime - m.lead
	m.logger.Debug().Float64("end", endTime).Float64("trigger", trigger).Msg("boundary monitor armed")
	go m.watch(stop, trigger, fire)
}

// Cancel stops the active watch, if any.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	if m.cancel != nil {
		close(m.cancel)
		m.cancel = nil
	}
	m.mu.Unlock()
}

// Armed reports whether a watch is active.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) watch(stop chan struct{}, trigger float64, fire func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("boundary monitor halted by panic")
		}
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pos, err := m.adapter.CurrentTime()
			if err != nil {
				// Handle vanished mid-tick. Stop sampling; the coordinator
				// recovers on its own.
				m.logger.Warn().Err(err).Msg("position sample failed, stopping monitor")
				m.disarm(stop)
				return
			}
			// A zero read is a stale/uninitialized position immediately
			// after a load, never a boundary.
			if pos <= 0 || pos < trigger {
				continue
			}
			if !m.disarm(stop) {
				return
			}
			fire()
			return
		}
	}
}

// disarm clears the watch if stop is still the active one. It reports
// whether this watch won the disarm, i.e. whether it may fire.
func (m *Monitor) disarm(stop chan struct{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != stop {
		return false
	}
	m.cancel = nil
	return true
}
