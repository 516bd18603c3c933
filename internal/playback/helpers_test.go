/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seguemedia/segue/internal/notify"
	"github.com/seguemedia/segue/internal/player"
)

// fakeWidget is a controllable in-memory player widget. Position is set by
// the test; ready events fire asynchronously after each load when autoReady
// is on, mimicking the real embed's callback timing.
type fakeWidget struct {
	factory *fakeFactory
	ev      player.Events

	mu        sync.Mutex
	videoID   string
	position  float64
	duration  float64
	title     string
	playing   bool
	destroyed bool
	seeks     []float64
	volumes   []int
	loads     []string
	timeErr   error
}

func (w *fakeWidget) setPosition(pos float64) {
	w.mu.Lock()
	w.position = pos
	w.mu.Unlock()
}

func (w *fakeWidget) setTimeError(err error) {
	w.mu.Lock()
	w.timeErr = err
	w.mu.Unlock()
}

func (w *fakeWidget) fireReady() {
	if w.ev.OnReady != nil {
		w.mu.Lock()
		d, t := w.duration, w.title
		w.mu.Unlock()
		w.ev.OnReady(d, t)
	}
}

func (w *fakeWidget) SeekTo(seconds float64) error {
	w.mu.Lock()
	w.seeks = append(w.seeks, seconds)
	w.position = seconds
	w.mu.Unlock()
	return nil
}

func (w *fakeWidget) GetCurrentTime() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position, w.timeErr
}

func (w *fakeWidget) GetDuration() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duration, nil
}

func (w *fakeWidget) SetVolume(level int) error {
	w.mu.Lock()
	w.volumes = append(w.volumes, level)
	w.mu.Unlock()
	return nil
}

func (w *fakeWidget) PlayVideo() error {
	w.mu.Lock()
	w.playing = true
	w.mu.Unlock()
	if w.ev.OnStateChange != nil {
		w.ev.OnStateChange(true)
	}
	return nil
}

func (w *fakeWidget) PauseVideo() error {
	w.mu.Lock()
	w.playing = false
	w.mu.Unlock()
	if w.ev.OnStateChange != nil {
		w.ev.OnStateChange(false)
	}
	return nil
}

func (w *fakeWidget) GetVideoData() player.VideoData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return player.VideoData{Title: w.title}
}

func (w *fakeWidget) LoadVideoByID(videoID string, start float64, autoplay bool) error {
	w.mu.Lock()
	w.videoID = videoID
	w.position = start
	w.loads = append(w.loads, videoID)
	auto := w.factory.autoReady
	w.mu.Unlock()
	if auto {
		go func() {
			time.Sleep(5 * time.Millisecond)
			w.fireReady()
		}()
	}
	return nil
}

func (w *fakeWidget) Destroy() error {
	w.mu.Lock()
	w.destroyed = true
	w.mu.Unlock()
	return nil
}

// fakeFactory builds fakeWidgets and counts constructions.
type fakeFactory struct {
	autoReady bool
	duration  float64
	title     string

	mu          sync.Mutex
	available   bool
	constructed int
	widget      *fakeWidget
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{available: true, duration: 120, title: "clip"}
}

func (f *fakeFactory) Mount() player.Mount { return f }

func (f *fakeFactory) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeFactory) New(opts player.Options, ev player.Events) (player.Widget, error) {
	w := &fakeWidget{
		factory:  f,
		ev:       ev,
		videoID:  opts.VideoID,
		position: opts.Start,
		duration: f.duration,
		title:    f.title,
	}
	f.mu.Lock()
	f.constructed++
	f.widget = w
	f.mu.Unlock()
	if f.autoReady {
		go func() {
			time.Sleep(5 * time.Millisecond)
			w.fireReady()
		}()
	}
	return w, nil
}

func (f *fakeFactory) current() *fakeWidget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.widget
}

func (f *fakeFactory) constructions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.constructed
}

// stubSource serves a fixed set of entries, editable mid-test.
type stubSource struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *stubSource) set(entries []Entry) {
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

func (s *stubSource) Entries(ctx context.Context, projectID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// recordingNotifier captures notices for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (n *recordingNotifier) Notify(title, description string, severity notify.Severity) {
	n.mu.Lock()
	n.notices = append(n.notices, title)
	n.mu.Unlock()
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notices))
	copy(out, n.notices)
	return out
}

func (n *recordingNotifier) has(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.notices {
		if t == title {
			return true
		}
	}
	return false
}

// testLogger discards output.
func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
