/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubWidget records calls. It optionally supports in-place loading.
type stubWidget struct {
	mu       sync.Mutex
	ev       Events
	videoID  string
	position float64
	seeks    []float64
	plays    int
	loads    []string
	destroys int
	inPlace  bool
}

func (w *stubWidget) SeekTo(seconds float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seeks = append(w.seeks, seconds)
	w.position = seconds
	return nil
}

func (w *stubWidget) GetCurrentTime() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position, nil
}

func (w *stubWidget) GetDuration() (float64, error) { return 300, nil }

func (w *stubWidget) SetVolume(level int) error { return nil }

func (w *stubWidget) PlayVideo() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.plays++
	return nil
}

func (w *stubWidget) PauseVideo() error { return nil }

func (w *stubWidget) GetVideoData() VideoData { return VideoData{Title: "stub"} }

func (w *stubWidget) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroys++
	return nil
}

// inPlaceWidget adds LoadVideoByID on top of stubWidget.
type inPlaceWidget struct {
	*stubWidget
}

func (w *inPlaceWidget) LoadVideoByID(videoID string, start float64, autoplay bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loads = append(w.loads, videoID)
	w.videoID = videoID
	w.position = start
	return nil
}

// stubMount toggles availability.
type stubMount struct {
	mu        sync.Mutex
	available bool
}

func (m *stubMount) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *stubMount) setAvailable(v bool) {
	m.mu.Lock()
	m.available = v
	m.mu.Unlock()
}

// stubFactory counts constructions.
type stubFactory struct {
	mount   *stubMount
	inPlace bool

	mu          sync.Mutex
	constructed int
	widget      Widget
	lastEvents  Events
}

func (f *stubFactory) Mount() Mount { return f.mount }

func (f *stubFactory) New(opts Options, ev Events) (Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructed++
	f.lastEvents = ev
	base := &stubWidget{ev: ev, videoID: opts.VideoID, position: opts.Start}
	if f.inPlace {
		f.widget = &inPlaceWidget{stubWidget: base}
	} else {
		f.widget = base
	}
	return f.widget, nil
}

func (f *stubFactory) constructions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.constructed
}

func (f *stubFactory) fireReady(duration float64, title string) {
	f.mu.Lock()
	ev := f.lastEvents
	f.mu.Unlock()
	ev.OnReady(duration, title)
}

func newTestAdapter(factory Factory, cb Callbacks) *Adapter {
	cfg := AdapterConfig{
		MountWaitInterval:    time.Millisecond,
		MountWaitTimeout:     30 * time.Millisecond,
		DurationSafetyMargin: 1.0,
	}
	return NewAdapter(factory, cfg, cb, zerolog.Nop())
}

func TestLoadSameVideoOnlySeeks(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}}
	adapter := newTestAdapter(factory, Callbacks{})

	if err := adapter.LoadVideo(t.Context(), "vid-1", 10, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	factory.fireReady(300, "stub")

	if err := adapter.LoadVideo(t.Context(), "vid-1", 42, true); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := factory.constructions(); got != 1 {
		t.Fatalf("widget constructed %d times, want 1", got)
	}
	w := factory.widget.(*stubWidget)
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.seeks) != 1 || w.seeks[0] != 42 {
		t.Fatalf("seeks = %v, want [42]", w.seeks)
	}
	if w.plays != 1 {
		t.Fatalf("plays = %d, want 1 (autoplay)", w.plays)
	}
	if w.destroys != 0 {
		t.Fatalf("destroys = %d, want 0", w.destroys)
	}
}

func TestLoadSameVideoReplaysReady(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}}
	var (
		mu        sync.Mutex
		durations []float64
		titles    []string
	)
	adapter := newTestAdapter(factory, Callbacks{
		OnReady: func(duration float64, title string) {
			mu.Lock()
			durations = append(durations, duration)
			titles = append(titles, title)
			mu.Unlock()
		},
	})

	if err := adapter.LoadVideo(t.Context(), "vid-1", 10, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	factory.fireReady(300, "stub")

	// A reused handle never emits its own ready event, so the adapter must
	// replay the cached one or downstream ready handlers never run.
	if err := adapter.LoadVideo(t.Context(), "vid-1", 42, true); err != nil {
		t.Fatalf("second load: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(durations) != 2 {
		t.Fatalf("OnReady fired %d times, want 2 (one per load)", len(durations))
	}
	if durations[1] != 299 || titles[1] != "stub" {
		t.Fatalf("replayed ready = (%v, %q), want (299, %q)", durations[1], titles[1], "stub")
	}
}

func TestLoadDifferentVideoInPlace(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}, inPlace: true}
	adapter := newTestAdapter(factory, Callbacks{})

	if err := adapter.LoadVideo(t.Context(), "vid-1", 0, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	factory.fireReady(300, "stub")

	if err := adapter.LoadVideo(t.Context(), "vid-2", 7, true); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := factory.constructions(); got != 1 {
		t.Fatalf("widget constructed %d times, want 1", got)
	}
	w := factory.widget.(*inPlaceWidget)
	w.mu.Lock()
	loads := append([]string(nil), w.loads...)
	destroys := w.destroys
	w.mu.Unlock()
	if len(loads) != 1 || loads[0] != "vid-2" {
		t.Fatalf("in-place loads = %v, want [vid-2]", loads)
	}
	if destroys != 0 {
		t.Fatalf("destroys = %d, want 0", destroys)
	}
	if adapter.Ready() {
		t.Fatal("adapter ready before the reload's ready event")
	}
	if adapter.CurrentVideoID() != "vid-2" {
		t.Fatalf("current video = %q, want vid-2", adapter.CurrentVideoID())
	}
}

func TestLoadDifferentVideoRebuildsWithoutInPlace(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}}
	adapter := newTestAdapter(factory, Callbacks{})

	if err := adapter.LoadVideo(t.Context(), "vid-1", 0, false); err != nil {
		t.Fatalf("first load: %v", err)
	}
	factory.fireReady(300, "stub")
	first := factory.widget.(*stubWidget)

	if err := adapter.LoadVideo(t.Context(), "vid-2", 0, false); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := factory.constructions(); got != 2 {
		t.Fatalf("widget constructed %d times, want 2", got)
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first.destroys != 1 {
		t.Fatalf("old widget destroyed %d times, want 1", first.destroys)
	}
}

func TestMountTimeout(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: false}}

	var errMsg string
	var mu sync.Mutex
	adapter := newTestAdapter(factory, Callbacks{
		OnError: func(message string) {
			mu.Lock()
			errMsg = message
			mu.Unlock()
		},
	})

	err := adapter.LoadVideo(t.Context(), "vid-1", 0, false)
	if !errors.Is(err, ErrMountTimeout) {
		t.Fatalf("load with absent mount = %v, want ErrMountTimeout", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if errMsg == "" {
		t.Fatal("mount timeout did not reach the error callback")
	}
}

func TestMountAppearsDuringWait(t *testing.T) {
	mount := &stubMount{available: false}
	factory := &stubFactory{mount: mount}
	adapter := newTestAdapter(factory, Callbacks{})

	go func() {
		time.Sleep(5 * time.Millisecond)
		mount.setAvailable(true)
	}()

	if err := adapter.LoadVideo(t.Context(), "vid-1", 0, false); err != nil {
		t.Fatalf("load with late mount: %v", err)
	}
	if got := factory.constructions(); got != 1 {
		t.Fatalf("widget constructed %d times, want 1", got)
	}
}

func TestDurationSafetyMargin(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}}

	var got float64
	var mu sync.Mutex
	adapter := newTestAdapter(factory, Callbacks{
		OnReady: func(duration float64, title string) {
			mu.Lock()
			got = duration
			mu.Unlock()
		},
	})

	if err := adapter.LoadVideo(t.Context(), "vid-1", 0, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	factory.fireReady(120, "stub")

	mu.Lock()
	defer mu.Unlock()
	if got != 119 {
		t.Fatalf("reported duration = %v, want 119", got)
	}
}

func TestTransportNoOpsWithoutHandle(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}}
	adapter := newTestAdapter(factory, Callbacks{})

	// None of these may panic or construct anything.
	adapter.SeekTo(10)
	adapter.Play()
	adapter.Pause()
	adapter.SetVolume(50)
	adapter.Destroy()

	pos, err := adapter.CurrentTime()
	if err != nil || pos != 0 {
		t.Fatalf("CurrentTime without handle = (%v, %v), want (0, nil)", pos, err)
	}
	if factory.constructions() != 0 {
		t.Fatal("transport call constructed a widget")
	}
}

func TestDestroyResetsState(t *testing.T) {
	factory := &stubFactory{mount: &stubMount{available: true}}
	adapter := newTestAdapter(factory, Callbacks{})

	if err := adapter.LoadVideo(t.Context(), "vid-1", 0, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	factory.fireReady(300, "stub")

	adapter.Destroy()

	if adapter.Ready() {
		t.Fatal("adapter ready after destroy")
	}
	if adapter.CurrentVideoID() != "" {
		t.Fatalf("current video = %q after destroy, want empty", adapter.CurrentVideoID())
	}

	// A fresh load reconstructs.
	if err := adapter.LoadVideo(t.Context(), "vid-1", 0, false); err != nil {
		t.Fatalf("load after destroy: %v", err)
	}
	if got := factory.constructions(); got != 2 {
		t.Fatalf("widget constructed %d times, want 2", got)
	}
}
