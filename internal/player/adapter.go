/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInitializing indicates a construction is already in flight;
	// re-entrant loads are rejected rather than racing constructors.
	ErrInitializing = errors.New("player construction already in progress")

	// ErrMountTimeout indicates the mount point never appeared.
	ErrMountTimeout = errors.New("player mount point did not appear in time")
)

// Callbacks are the adapter's normalized event surface. Unset callbacks are
// simply skipped.
type Callbacks struct {
	OnReady       func(duration float64, title string)
	OnStateChange func(playing bool)
	OnError       func(message string)
}

// AdapterConfig tunes construction waits and the duration safety margin.
type AdapterConfig struct {
	MountWaitInterval    time.Duration
	MountWaitTimeout     time.Duration
	DurationSafetyMargin float64
}

// DefaultAdapterConfig returns the adapter's standard timing.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		MountWaitInterval:    100 * time.Millisecond,
		MountWaitTimeout:     5 * time.Second,
		DurationSafetyMargin: 1.0,
	}
}

// Adapter owns the single external player handle and normalizes its async
// surface into plain calls plus three callbacks. At most one widget instance
// exists at a time; no other component ever holds a direct reference to it.
type Adapter struct {
	factory Factory
	cfg     AdapterConfig
	cb      Callbacks
	logger  zerolog.Logger

	mu           sync.Mutex
	widget       Widget
	ready        bool
	currentID    string
	initializing bool
	lastDuration float64
	lastTitle    string
}

// NewAdapter creates an adapter around a widget factory.
func NewAdapter(factory Factory, cfg AdapterConfig, cb Callbacks, logger zerolog.Logger) *Adapter {
	if cfg.MountWaitInterval <= 0 {
		cfg.MountWaitInterval = 100 * time.Millisecond
	}
	if cfg.MountWaitTimeout <= 0 {
		cfg.MountWaitTimeout = 5 * time.Second
	}
	return &Adapter{
		factory: factory,
		cfg:     cfg,
		cb:      cb,
		logger:  logger.With().Str("component", "player").Logger(),
	}
}

// LoadVideo loads videoID at start seconds, optionally autoplaying.
//
// With a ready handle on the same video it only seeks; reconstruction is
// expensive and visibly reloads the embed, so it is avoided whenever the
// widget can be reused. A reused handle fires no ready event of its own, so
// the cached one is replayed before returning; callers see an OnReady for
// every load regardless of path. A different video id is loaded in place
// when the widget supports it, otherwise the handle is destroyed and
// recreated.
func (a *Adapter) LoadVideo(ctx context.Context, videoID string, start float64, autoplay bool) error {
	a.mu.Lock()
	if a.initializing {
		a.mu.Unlock()
		return ErrInitializing
	}

	if a.widget != nil && a.ready {
		w := a.widget
		if a.currentID == videoID {
			duration, title := a.lastDuration, a.lastTitle
			a.mu.Unlock()
			if err := w.SeekTo(start); err != nil {
				return fmt.Errorf("seek to %.1f: %w", start, err)
			}
			if autoplay {
				if err := w.PlayVideo(); err != nil {
					return err
				}
			}
			if a.cb.OnReady != nil {
				a.cb.OnReady(duration, title)
			}
			return nil
		}

		if loader, ok := w.(InPlaceLoader); ok {
			a.currentID = videoID
			a.ready = false
			a.mu.Unlock()
			a.logger.Debug().Str("video_id", videoID).Msg("loading video in place")
			if err := loader.LoadVideoByID(videoID, start, autoplay); err != nil {
				return fmt.Errorf("load video in place: %w", err)
			}
			return nil
		}

		// Widget cannot swap videos; fall back to a full rebuild.
		a.mu.Unlock()
		a.Destroy()
		a.mu.Lock()
	}

	// A handle that never became ready is unusable; tear it down rather
	// than orphaning it behind the replacement.
	if a.widget != nil {
		a.mu.Unlock()
		a.Destroy()
		a.mu.Lock()
	}

	a.initializing = true
	a.mu.Unlock()

	err := a.construct(ctx, videoID, start, autoplay)

	a.mu.Lock()
	a.initializing = false
	a.mu.Unlock()

	if err != nil {
		a.fireError(err.Error())
		return err
	}
	return nil
}

func (a *Adapter) construct(ctx context.Context, videoID string, start float64, autoplay bool) error {
	if err := a.waitForMount(ctx); err != nil {
		return err
	}

	ev := Events{
		OnReady:       func(duration float64, title string) { a.handleReady(duration, title) },
		OnStateChange: func(playing bool) { a.fireStateChange(playing) },
		OnError:       func(code int) { a.fireError(errorMessage(code)) },
	}

	w, err := a.factory.New(Options{VideoID: videoID, Start: start, Autoplay: autoplay, Inline: true}, ev)
	if err != nil {
		return fmt.Errorf("construct player: %w", err)
	}

	a.mu.Lock()
	a.widget = w
	a.currentID = videoID
	a.ready = false
	a.mu.Unlock()

	a.logger.Debug().Str("video_id", videoID).Float64("start", start).Msg("player constructed")
	return nil
}

// waitForMount polls until the mount point exists or the wait times out.
func (a *Adapter) waitForMount(ctx context.Context) error {
	mount := a.factory.Mount()
	if mount == nil || mount.Available() {
		return nil
	}

	deadline := time.Now().Add(a.cfg.MountWaitTimeout)
	ticker := time.NewTicker(a.cfg.MountWaitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if mount.Available() {
				return nil
			}
			if time.Now().After(deadline) {
				return ErrMountTimeout
			}
		}
	}
}

func (a *Adapter) handleReady(duration float64, title string) {
	// Shave a safety margin off the reported duration so callers never seek
	// past the true end of media.
	duration -= a.cfg.DurationSafetyMargin
	if duration < 0 {
		duration = 0
	}

	a.mu.Lock()
	a.ready = true
	a.lastDuration = duration
	a.lastTitle = title
	a.mu.Unlock()

	a.logger.Debug().Float64("duration", duration).Str("title", title).Msg("player ready")
	if a.cb.OnReady != nil {
		a.cb.OnReady(duration, title)
	}
}

func (a *Adapter) fireStateChange(playing bool) {
	if a.cb.OnStateChange != nil {
		a.cb.OnStateChange(playing)
	}
}

func (a *Adapter) fireError(message string) {
	a.logger.Warn().Str("error", message).Msg("player error")
	if a.cb.OnError != nil {
		a.cb.OnError(message)
	}
}

// readyWidget returns the widget when one exists and is ready, else nil.
func (a *Adapter) readyWidget() Widget {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.widget == nil || !a.ready {
		return nil
	}
	return a.widget
}

// SeekTo seeks the current video. No-op without a ready handle.
func (a *Adapter) SeekTo(seconds float64) {
	if w := a.readyWidget(); w != nil {
		_ = w.SeekTo(seconds)
	}
}

// Play resumes playback. No-op without a ready handle.
func (a *Adapter) Play() {
	if w := a.readyWidget(); w != nil {
		_ = w.PlayVideo()
	}
}

// Pause pauses playback. No-op without a ready handle.
func (a *Adapter) Pause() {
	if w := a.readyWidget(); w != nil {
		_ = w.PauseVideo()
	}
}

// SetVolume sets the player volume, clamped to 0..100. No-op without a
// ready handle.
func (a *Adapter) SetVolume(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	if w := a.readyWidget(); w != nil {
		_ = w.SetVolume(level)
	}
}

// CurrentTime reports the playback position in seconds. Without a ready
// handle it reports 0 with no error; a widget-side failure is returned so
// samplers can stop cleanly.
func (a *Adapter) CurrentTime() (float64, error) {
	w := a.readyWidget()
	if w == nil {
		return 0, nil
	}
	return w.GetCurrentTime()
}

// Ready reports whether a ready handle exists.
func (a *Adapter) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.widget != nil && a.ready
}

// CurrentVideoID returns the id of the loaded video, or "" when none.
func (a *Adapter) CurrentVideoID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentID
}

// Destroy tears down the handle and resets all adapter state. Widget APIs
// can throw during teardown, so failures and panics are swallowed.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	w := a.widget
	a.widget = nil
	a.ready = false
	a.currentID = ""
	a.initializing = false
	a.lastDuration = 0
	a.lastTitle = ""
	a.mu.Unlock()

	if w == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug().Interface("panic", r).Msg("widget panicked during teardown")
		}
	}()
	if err := w.Destroy(); err != nil {
		a.logger.Debug().Err(err).Msg("widget teardown failed")
	}
}
