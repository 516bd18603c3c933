/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

// VideoData carries the metadata a widget can report about its loaded video.
type VideoData struct {
	Title string
}

// Widget is the imperative surface of one embedded player instance. All
// methods address the instance that was constructed by a Factory; once
// Destroy has been called the instance must not be used again.
type Widget interface {
	SeekTo(seconds float64) error
	GetCurrentTime() (float64, error)
	GetDuration() (float64, error)
	SetVolume(level int) error
	PlayVideo() error
	PauseVideo() error
	GetVideoData() VideoData
	Destroy() error
}

// InPlaceLoader is implemented by widgets that can switch to another video
// without tearing the instance down. The adapter probes for it and falls
// back to destroy-and-recreate when it is absent.
type InPlaceLoader interface {
	LoadVideoByID(videoID string, start float64, autoplay bool) error
}

// Events are the callbacks a widget fires, each at most once per lifecycle
// event: ready after a (re)load completes, state changes on play/pause, and
// numeric error codes on failure.
type Events struct {
	OnReady       func(duration float64, title string)
	OnStateChange func(playing bool)
	OnError       func(code int)
}

// Options configures widget construction.
type Options struct {
	VideoID  string
	Start    float64
	Autoplay bool
	Inline   bool
}

// Mount reports whether the widget's mount point currently exists in the
// surrounding UI. Construction must wait for it.
type Mount interface {
	Available() bool
}

// Factory constructs widgets against a mount point.
type Factory interface {
	Mount() Mount
	New(opts Options, ev Events) (Widget, error)
}

// Known widget failure codes, matching the embed API the bridge fronts.
const (
	errCodeInvalidParam   = 2
	errCodeHTML5          = 5
	errCodeNotFound       = 100
	errCodeNotEmbeddable  = 101
	errCodeNotEmbeddable2 = 150
)

// errorMessage maps a widget failure code to user-facing text.
func errorMessage(code int) string {
	switch code {
	case errCodeInvalidParam:
		return "This video id is invalid."
	case errCodeHTML5:
		return "The player failed to load this video."
	case errCodeNotFound:
		return "This video was not found. It may have been removed."
	case errCodeNotEmbeddable, errCodeNotEmbeddable2:
		return "The video owner does not allow embedded playback."
	default:
		return "Playback failed with an unknown error."
	}
}
