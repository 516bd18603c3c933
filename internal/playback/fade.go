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

// FadeConfig tunes the volume ramp. Defaults give a ~3s fade each way.
type FadeConfig struct {
	StepSize     int           // volume points per step
	StepInterval time.Duration // delay between steps
	SettleDelay  time.Duration // pause at the midpoint before fading back in
}

// DefaultFadeConfig returns the standard ramp timing.
func DefaultFadeConfig() FadeConfig {
	return FadeConfig{
		StepSize:     5,
		StepInterval: 150 * time.Millisecond,
		SettleDelay:  300 * time.Millisecond,
	}
}

// Fader performs the audible crossfade between two playback contexts: ramp
// the volume to zero, hand control to the midpoint callback (which performs
// the actual item switch), wait for the new media to settle, ramp back up.
//
// At most one ramp is in flight at any instant; a request to fade while
// fading is dropped silently. Volume calls no-op through the adapter when
// the handle has been destroyed mid-fade, so a torn-down player never makes
// a ramp step fail.
type Fader struct {
	adapter *player.Adapter
	cfg     FadeConfig
	logger  zerolog.Logger

	mu     sync.Mutex
	fading bool
}

// NewFader creates a fade controller over the adapter.
func NewFader(adapter *player.Adapter, cfg FadeConfig, logger zerolog.Logger) *Fader {
	if cfg.StepSize <= 0 {
		cfg.StepSize = 5
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = 150 * time.Millisecond
	}
	return &Fader{
		adapter: adapter,
		cfg:     cfg,
		logger:  logger.With().Str("component", "fader").Logger(),
	}
}

// Active reports whether a ramp is currently in flight.
func (f *Fader) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fading
}

// Fade starts the fade-out / midpoint / fade-in sequence asynchronously.
// It reports whether the fade was started; false means one was already in
// progress and the request was dropped.
func (f *Fader) Fade(midpoint func()) bool {
	f.mu.Lock()
	if f.fading {
		f.mu.Unlock()
		f.logger.Debug().Msg("fade already in progress, dropping request")
		return false
	}
	f.fading = true
	f.mu.Unlock()

	go f.run(midpoint)
	return true
}

func (f *Fader) run(midpoint func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).Msg("fade aborted by panic")
		}
		f.mu.Lock()
		f.fading = false
		f.mu.Unlock()
	}()

	f.ramp(100, 0)

	if midpoint != nil {
		midpoint()
	}

	// Let the freshly loaded media start before becoming audible again.
	time.Sleep(f.cfg.SettleDelay)

	f.ramp(0, 100)
}

// ramp walks the volume from one level to another at the configured cadence.
func (f *Fader) ramp(from, to int) {
	ticker := time.NewTicker(f.cfg.StepInterval)
	defer ticker.Stop()

	step := f.cfg.StepSize
	if from > to {
		step = -step
	}

	for v := from + step; ; v += step {
		if (step < 0 && v < to) || (step > 0 && v > to) {
			v = to
		}
		<-ticker.C
		f.adapter.SetVolume(v)
		if v == to {
			return
		}
	}
}
