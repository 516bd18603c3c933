/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seguemedia/segue/internal/events"
	"github.com/seguemedia/segue/internal/models"
	"github.com/seguemedia/segue/internal/notify"
	"github.com/seguemedia/segue/internal/player"
	"github.com/seguemedia/segue/internal/telemetry"
)

var (
	// ErrInvalidTransition indicates an invalid state transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrQueueEmpty indicates PlayQueue was called with nothing to play.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrSettling indicates a dispatch was suppressed while the player mount
	// is being rebuilt.
	ErrSettling = errors.New("player is settling after a mount change")

	// ErrAtStart indicates PlayPrevious was called on the first item.
	ErrAtStart = errors.New("already at the first queue item")
)

// State enumerates coordinator states.
type State string

const (
	StateIdle          State = "idle"
	StateInitializing  State = "initializing"
	StatePlaying       State = "playing"
	StateTransitioning State = "transitioning"
	StateSettling      State = "settling"
)

// Entry is one resolved queue position as the engine sees it. A segment-kind
// entry whose Segment is nil references a segment that no longer exists;
// that is an expected state, handled by skip-and-continue.
type Entry struct {
	ItemID      string
	Kind        models.QueueItemKind
	Description string
	Segment     *models.Segment
}

// Source supplies the queue. The coordinator re-reads it on every dispatch,
// so edits made during playback (shrinking, reordering) take effect on the
// next advance instead of corrupting a cursor mid-flight.
type Source interface {
	Entries(ctx context.Context, projectID string) ([]Entry, error)
}

// Options tunes the coordinator's timing contract.
type Options struct {
	FadeLeadSeconds  float64       // boundary trigger = segment end minus this
	MonitorInterval  time.Duration // boundary poll period
	DescriptionDwell time.Duration // how long a description card stays up
	SkipDelay        time.Duration // pause before skipping an unplayable item
	SettlingGrace    time.Duration // dispatch suppression after a mount change
	Fade             FadeConfig
}

// DefaultOptions returns the standard engine timing.
func DefaultOptions() Options {
	return Options{
		FadeLeadSeconds:  3.0,
		MonitorInterval:  time.Second,
		DescriptionDwell: 3 * time.Second,
		SkipDelay:        time.Second,
		SettlingGrace:    2 * time.Second,
		Fade:             DefaultFadeConfig(),
	}
}

// Coordinator drives the single player through an ordered queue of
// heterogeneous items: playable segments, segments whose data has been
// deleted out from under the queue, and timed text blocks. It owns the
// player adapter, the fade controller and the boundary monitor, and is the
// only component that commands them.
type Coordinator struct {
	source   Source
	adapter  *player.Adapter
	fader    *Fader
	monitor  *Monitor
	notifier notify.Notifier
	bus      *events.Bus
	opts     Options
	logger   zerolog.Logger

	mu          sync.Mutex
	state       State
	projectID   string
	index       int
	queueActive bool
	playing     bool
	gen         uint64
	current     *Entry
	pending     *time.Timer
	settle      *time.Timer
}

// NewCoordinator creates the playback coordinator. The player adapter is
// constructed internally so its event surface stays wired to the state
// machine; no other component ever reaches the widget directly.
func NewCoordinator(source Source, factory player.Factory, adapterCfg player.AdapterConfig, opts Options, notifier notify.Notifier, bus *events.Bus, logger zerolog.Logger) *Coordinator {
	c := &Coordinator{
		source:   source,
		notifier: notifier,
		bus:      bus,
		opts:     opts,
		logger:   logger.With().Str("component", "coordinator").Logger(),
		state:    StateIdle,
		index:    -1,
	}

	c.adapter = player.NewAdapter(factory, adapterCfg, player.Callbacks{
		OnReady:       c.handleReady,
		OnStateChange: c.handleStateChange,
		OnError:       c.handlePlayerError,
	}, logger)
	c.fader = NewFader(c.adapter, opts.Fade, logger)
	c.monitor = NewMonitor(c.adapter, opts.MonitorInterval, opts.FadeLeadSeconds, logger)

	return c
}

// Adapter exposes the owned player adapter for transport passthrough
// (pause/resume/seek from the control API).
func (c *Coordinator) Adapter() *player.Adapter { return c.adapter }

// State machine

var validTransitions = map[State][]State{
	StateIdle:          {StateInitializing, StatePlaying, StateSettling},
	StateInitializing:  {StateInitializing, StatePlaying, StateIdle, StateSettling},
	StatePlaying:       {StatePlaying, StateInitializing, StateTransitioning, StateIdle, StateSettling},
	StateTransitioning: {StateInitializing, StatePlaying, StateIdle, StateSettling},
	StateSettling:      {StateIdle, StateSettling},
}

func (c *Coordinator) isValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (c *Coordinator) setStateLocked(to State) error {
	if c.state == to {
		return nil
	}
	if !c.isValidTransition(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
	}
	c.logger.Debug().Str("from", string(c.state)).Str("to", string(to)).Msg("state transition")
	c.state = to
	return nil
}

// Status is a snapshot of the coordinator for the control API.
type Status struct {
	State       State  `json:"state"`
	ProjectID   string `json:"project_id,omitempty"`
	Index       int    `json:"index"`
	QueueActive bool   `json:"queue_active"`
	Playing     bool   `json:"playing"`
	VideoID     string `json:"video_id,omitempty"`
}

// Status reports the current playback state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:       c.state,
		ProjectID:   c.projectID,
		Index:       c.index,
		QueueActive: c.queueActive,
		Playing:     c.playing,
		VideoID:     c.adapter.CurrentVideoID(),
	}
}

// Operations

// PlayQueue starts queue playback for a project from the first item. An
// empty queue is reported and no action is taken.
func (c *Coordinator) PlayQueue(ctx context.Context, projectID string) error {
	entries, err := c.source.Entries(ctx, projectID)
	if err != nil {
		return fmt.Errorf("read queue: %w", err)
	}
	if len(entries) == 0 {
		c.notifier.Notify("Queue is empty", "Add segments or descriptions to the queue first.", notify.SeverityWarning)
		return ErrQueueEmpty
	}

	c.mu.Lock()
	if c.state == StateSettling {
		c.mu.Unlock()
		return ErrSettling
	}
	c.projectID = projectID
	c.queueActive = true
	c.mu.Unlock()

	c.bus.Publish(events.EventPlaybackStarted, events.Payload{"project_id": projectID, "items": len(entries)})
	return c.dispatch(ctx, 0)
}

// PlayIndex jumps directly to a queue position and dispatches on it.
// Natural boundary advancement afterwards still requires the queue-active
// flag set by PlayQueue.
func (c *Coordinator) PlayIndex(ctx context.Context, projectID string, index int) error {
	if index < 0 {
		return fmt.Errorf("queue index %d out of range", index)
	}

	c.mu.Lock()
	if c.state == StateSettling {
		c.mu.Unlock()
		return ErrSettling
	}
	c.projectID = projectID
	c.mu.Unlock()

	return c.dispatch(ctx, index)
}

// PlayNext advances the cursor. Past the last item it reports completion
// and returns the coordinator to idle.
func (c *Coordinator) PlayNext(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSettling {
		c.mu.Unlock()
		return ErrSettling
	}
	projectID := c.projectID
	next := c.index + 1
	c.mu.Unlock()

	entries, err := c.source.Entries(ctx, projectID)
	if err != nil {
		return fmt.Errorf("read queue: %w", err)
	}
	if next >= len(entries) {
		c.finish()
		return nil
	}
	return c.dispatch(ctx, next)
}

// PlayPrevious steps the cursor back one position.
func (c *Coordinator) PlayPrevious(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSettling {
		c.mu.Unlock()
		return ErrSettling
	}
	if c.index <= 0 {
		c.mu.Unlock()
		return ErrAtStart
	}
	prev := c.index - 1
	c.mu.Unlock()

	return c.dispatch(ctx, prev)
}

// PlaySegment plays one segment outside of queue context. Queue advancement
// is disarmed first so a preview can never continue auto-advancing the
// queue, and any boundary signal from the previous segment is ignored.
func (c *Coordinator) PlaySegment(ctx context.Context, seg models.Segment) error {
	c.mu.Lock()
	if c.state == StateSettling {
		c.mu.Unlock()
		return ErrSettling
	}
	c.queueActive = false
	c.gen++
	c.cancelTimersLocked()
	c.current = nil
	if err := c.setStateLocked(StateInitializing); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if err := c.adapter.LoadVideo(ctx, seg.VideoID, seg.StartTime, true); err != nil {
		c.toIdle()
		return err
	}
	return nil
}

// Pause pauses the underlying player without touching the queue cursor.
func (c *Coordinator) Pause() { c.adapter.Pause() }

// Resume resumes the underlying player.
func (c *Coordinator) Resume() { c.adapter.Play() }

// Stop halts queue playback: every pending timer and the boundary monitor
// are cancelled so no ghost advance can fire against a torn-down player.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.gen++
	c.cancelTimersLocked()
	c.queueActive = false
	c.current = nil
	_ = c.setStateLocked(StateIdle)
	c.mu.Unlock()

	c.adapter.Pause()
	c.bus.Publish(events.EventPlaybackStopped, events.Payload{})
}

// Close stops playback and destroys the player handle.
func (c *Coordinator) Close() {
	c.Stop()
	c.adapter.Destroy()
}

// EnterSettling suppresses dispatches and boundary reactions for a grace
// window while the surrounding UI tears down and remounts the player, so a
// stale boundary signal can never race a reconstruction.
func (c *Coordinator) EnterSettling() {
	c.mu.Lock()
	c.gen++
	c.cancelTimersLocked()
	c.current = nil
	_ = c.setStateLocked(StateSettling)
	if c.settle != nil {
		c.settle.Stop()
	}
	c.settle = time.AfterFunc(c.opts.SettlingGrace, c.leaveSettling)
	c.mu.Unlock()

	c.adapter.Destroy()
	c.logger.Debug().Dur("grace", c.opts.SettlingGrace).Msg("entered settling window")
}

func (c *Coordinator) leaveSettling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSettling {
		_ = c.setStateLocked(StateIdle)
	}
}

// Dispatch

// dispatch enters a queue position: load a playable segment, skip past a
// dangling reference, or show a description block for its dwell time.
func (c *Coordinator) dispatch(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.state == StateSettling {
		c.mu.Unlock()
		return ErrSettling
	}
	c.gen++
	gen := c.gen
	c.cancelTimersLocked()
	c.index = index
	projectID := c.projectID
	c.mu.Unlock()

	telemetry.QueuePosition.Set(float64(index))

	entries, err := c.source.Entries(ctx, projectID)
	if err != nil {
		return fmt.Errorf("read queue: %w", err)
	}
	if index >= len(entries) {
		// The queue shrank while the cursor was mid-flight.
		c.finish()
		return nil
	}
	entry := entries[index]

	c.mu.Lock()
	if gen != c.gen {
		// A newer dispatch, stop or settling won the race while the queue
		// was being read.
		c.mu.Unlock()
		return nil
	}
	c.current = &entry
	queueActive := c.queueActive
	c.mu.Unlock()

	telemetry.DispatchTotal.WithLabelValues(string(entry.Kind)).Inc()
	c.bus.Publish(events.EventPlaybackAdvanced, events.Payload{
		"project_id": projectID,
		"index":      index,
		"item_id":    entry.ItemID,
		"kind":       string(entry.Kind),
	})

	switch {
	case entry.Kind == models.QueueItemDescription:
		return c.dispatchDescription(entry, gen, queueActive)
	case entry.Segment == nil:
		return c.dispatchMissing(gen, queueActive)
	default:
		return c.dispatchSegment(ctx, entry)
	}
}

func (c *Coordinator) dispatchSegment(ctx context.Context, entry Entry) error {
	c.mu.Lock()
	if err := c.setStateLocked(StateInitializing); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	seg := entry.Segment
	if err := c.adapter.LoadVideo(ctx, seg.VideoID, seg.StartTime, true); err != nil {
		c.toIdle()
		return err
	}
	return nil
}

func (c *Coordinator) dispatchMissing(gen uint64, queueActive bool) error {
	telemetry.SkipsTotal.Inc()
	c.notifier.Notify("Cannot play this item", "The referenced segment no longer exists. Skipping.", notify.SeverityWarning)

	if !queueActive {
		c.toIdle()
		return nil
	}

	// The short delay lets the notice render before the queue moves on.
	c.schedule(c.opts.SkipDelay, gen, func() {
		if err := c.PlayNext(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("skip advance failed")
		}
	})
	return nil
}

func (c *Coordinator) dispatchDescription(entry Entry, gen uint64, queueActive bool) error {
	c.mu.Lock()
	if err := c.setStateLocked(StatePlaying); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.notifier.Notify("Interlude", entry.Description, notify.SeverityInfo)

	if queueActive {
		c.schedule(c.opts.DescriptionDwell, gen, func() {
			if err := c.PlayNext(context.Background()); err != nil {
				c.logger.Warn().Err(err).Msg("description advance failed")
			}
		})
	}
	return nil
}

// finish ends queue playback after the last item.
func (c *Coordinator) finish() {
	c.mu.Lock()
	c.gen++
	c.cancelTimersLocked()
	c.queueActive = false
	c.current = nil
	_ = c.setStateLocked(StateIdle)
	c.mu.Unlock()

	c.notifier.Notify("Queue finished", "Reached the end of the playback queue.", notify.SeverityInfo)
	c.bus.Publish(events.EventPlaybackFinished, events.Payload{})
}

func (c *Coordinator) toIdle() {
	c.mu.Lock()
	_ = c.setStateLocked(StateIdle)
	c.mu.Unlock()
}

// Player adapter callbacks

func (c *Coordinator) handleReady(duration float64, title string) {
	c.mu.Lock()
	gen := c.gen
	entry := c.current
	queueActive := c.queueActive
	if c.state == StateInitializing || c.state == StateTransitioning {
		_ = c.setStateLocked(StatePlaying)
	}
	c.mu.Unlock()

	c.notifier.Notify("Video loaded", title, notify.SeverityInfo)
	c.bus.Publish(events.EventPlayerReady, events.Payload{"duration": duration, "title": title})

	// The monitor may only run while queue playback is active and the
	// cursor points at a resolvable segment.
	if queueActive && entry != nil && entry.Kind == models.QueueItemSegment && entry.Segment != nil {
		end := entry.Segment.EndTime
		c.monitor.Arm(end, func() { c.handleBoundary(gen) })
	}
}

func (c *Coordinator) handleStateChange(playing bool) {
	c.mu.Lock()
	c.playing = playing
	c.mu.Unlock()
}

func (c *Coordinator) handlePlayerError(message string) {
	telemetry.PlayerErrorsTotal.Inc()
	c.notifier.Notify("Playback error", message, notify.SeverityError)
	c.bus.Publish(events.EventPlayerError, events.Payload{"message": message})

	// Abandon the current item but keep the cursor so a manual retry can
	// re-dispatch it.
	c.mu.Lock()
	c.gen++
	c.cancelTimersLocked()
	_ = c.setStateLocked(StateIdle)
	c.mu.Unlock()
}

func (c *Coordinator) handleBoundary(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.queueActive {
		c.mu.Unlock()
		c.logger.Debug().Msg("stale boundary signal ignored")
		return
	}
	if err := c.setStateLocked(StateTransitioning); err != nil {
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("boundary in unexpected state")
		return
	}
	c.mu.Unlock()

	telemetry.FadesTotal.Inc()
	c.bus.Publish(events.EventBoundaryReached, events.Payload{})

	c.fader.Fade(func() {
		c.mu.Lock()
		stale := gen != c.gen
		c.mu.Unlock()
		if stale {
			return
		}
		if err := c.PlayNext(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("boundary advance failed")
		}
	})
}

// Timer plumbing

// schedule arms the single pending timer. The callback is dropped when the
// generation has moved on (stop, re-dispatch, settling, manual play) and
// never lets a panic escape into the runtime timer goroutine.
func (c *Coordinator) schedule(d time.Duration, gen uint64, fn func()) {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending = time.AfterFunc(d, func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().Interface("panic", r).Msg("scheduled advance panicked")
			}
		}()
		c.mu.Lock()
		stale := gen != c.gen
		c.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
	c.mu.Unlock()
}

// cancelTimersLocked stops the boundary monitor and any pending advance.
// Callers must hold c.mu.
func (c *Coordinator) cancelTimersLocked() {
	c.monitor.Cancel()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
