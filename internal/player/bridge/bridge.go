/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package bridge fronts the real embedded player widget running in a
// browser. The page embeds the player, connects over a websocket, and acts
// as the mount point: commands flow out as JSON, ready/state/error/time
// events flow back. One client at a time; a new connection replaces the old.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/seguemedia/segue/internal/player"
)

// ErrNotConnected indicates no browser client is attached.
var ErrNotConnected = errors.New("player bridge: no client connected")

const writeTimeout = 5 * time.Second

// command is the wire format for adapter-to-browser messages.
type command struct {
	Cmd      string  `json:"cmd"`
	VideoID  string  `json:"video_id,omitempty"`
	Position float64 `json:"position,omitempty"`
	Autoplay bool    `json:"autoplay,omitempty"`
	Inline   bool    `json:"inline,omitempty"`
	Level    int     `json:"level,omitempty"`
}

// clientEvent is the wire format for browser-to-adapter messages.
type clientEvent struct {
	Event    string  `json:"event"`
	Duration float64 `json:"duration,omitempty"`
	Title    string  `json:"title,omitempty"`
	Playing  bool    `json:"playing,omitempty"`
	Code     int     `json:"code,omitempty"`
	Position float64 `json:"position,omitempty"`
}

// Bridge relays between the player Adapter and a connected browser page.
// It implements player.Factory and player.Mount.
type Bridge struct {
	logger zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	widget   *bridgeWidget
	onAttach func()
	onDetach func()
}

// New creates a bridge.
func New(logger zerolog.Logger) *Bridge {
	return &Bridge{logger: logger.With().Str("component", "player-bridge").Logger()}
}

// OnAttach registers a hook fired when a client connects.
func (b *Bridge) OnAttach(fn func()) { b.mu.Lock(); b.onAttach = fn; b.mu.Unlock() }

// OnDetach registers a hook fired when the client goes away. The playback
// coordinator uses this to enter its settling window.
func (b *Bridge) OnDetach(fn func()) { b.mu.Lock(); b.onDetach = fn; b.mu.Unlock() }

// Mount implements player.Factory.
func (b *Bridge) Mount() player.Mount { return b }

// Available reports whether a client is connected. Implements player.Mount.
func (b *Bridge) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// New constructs a widget over the connected client. Implements
// player.Factory.
func (b *Bridge) New(opts player.Options, ev player.Events) (player.Widget, error) {
	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return nil, ErrNotConnected
	}
	w := &bridgeWidget{bridge: b, ev: ev}
	b.widget = w
	b.mu.Unlock()

	err := b.send(command{
		Cmd:      "create",
		VideoID:  opts.VideoID,
		Position: opts.Start,
		Autoplay: opts.Autoplay,
		Inline:   opts.Inline,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ServeWS upgrades the request and runs the client read loop until the
// socket closes.
func (b *Bridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		_ = b.conn.Close(websocket.StatusPolicyViolation, "replaced by new client")
	}
	b.conn = conn
	attach := b.onAttach
	b.mu.Unlock()

	b.logger.Info().Str("remote", r.RemoteAddr).Msg("player client attached")
	if attach != nil {
		attach()
	}

	b.readLoop(r.Context(), conn)

	b.mu.Lock()
	detach := b.onDetach
	if b.conn == conn {
		b.conn = nil
		b.widget = nil
	} else {
		// Already replaced; the newer client keeps its hooks.
		detach = nil
	}
	b.mu.Unlock()

	b.logger.Info().Msg("player client detached")
	if detach != nil {
		detach()
	}
}

func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Debug().Err(err).Msg("discarding malformed client event")
			continue
		}
		b.dispatch(ev)
	}
}

func (b *Bridge) dispatch(ev clientEvent) {
	b.mu.Lock()
	w := b.widget
	b.mu.Unlock()
	if w == nil {
		return
	}

	switch ev.Event {
	case "ready":
		w.setMedia(ev.Duration, ev.Title)
		if w.ev.OnReady != nil {
			w.ev.OnReady(ev.Duration, ev.Title)
		}
	case "state":
		w.setPlaying(ev.Playing)
		if w.ev.OnStateChange != nil {
			w.ev.OnStateChange(ev.Playing)
		}
	case "error":
		if w.ev.OnError != nil {
			w.ev.OnError(ev.Code)
		}
	case "time":
		w.setPosition(ev.Position)
	default:
		b.logger.Debug().Str("event", ev.Event).Msg("unknown client event")
	}
}

func (b *Bridge) send(cmd command) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, cmd)
}

// Close drops the connected client, if any.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.widget = nil
	b.mu.Unlock()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "server shutting down")
	}
	return nil
}

// bridgeWidget is the remote widget handle. Position and duration are fed
// by periodic "time" events from the page, so reads never round-trip.
type bridgeWidget struct {
	bridge *Bridge
	ev     player.Events

	mu       sync.Mutex
	position float64
	duration float64
	title    string
	playing  bool
	detached bool
}

var _ player.InPlaceLoader = (*bridgeWidget)(nil)

func (w *bridgeWidget) setMedia(duration float64, title string) {
	w.mu.Lock()
	w.duration = duration
	w.title = title
	w.mu.Unlock()
}

func (w *bridgeWidget) setPlaying(playing bool) {
	w.mu.Lock()
	w.playing = playing
	w.mu.Unlock()
}

func (w *bridgeWidget) setPosition(pos float64) {
	w.mu.Lock()
	w.position = pos
	w.mu.Unlock()
}

func (w *bridgeWidget) live() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detached {
		return ErrNotConnected
	}
	return nil
}

// LoadVideoByID switches the embed to another video without reconstruction.
func (w *bridgeWidget) LoadVideoByID(videoID string, start float64, autoplay bool) error {
	if err := w.live(); err != nil {
		return err
	}
	return w.bridge.send(command{Cmd: "load", VideoID: videoID, Position: start, Autoplay: autoplay})
}

func (w *bridgeWidget) SeekTo(seconds float64) error {
	if err := w.live(); err != nil {
		return err
	}
	w.setPosition(seconds)
	return w.bridge.send(command{Cmd: "seek", Position: seconds})
}

func (w *bridgeWidget) GetCurrentTime() (float64, error) {
	if err := w.live(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position, nil
}

func (w *bridgeWidget) GetDuration() (float64, error) {
	if err := w.live(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duration, nil
}

func (w *bridgeWidget) SetVolume(level int) error {
	if err := w.live(); err != nil {
		return err
	}
	return w.bridge.send(command{Cmd: "volume", Level: level})
}

func (w *bridgeWidget) PlayVideo() error {
	if err := w.live(); err != nil {
		return err
	}
	return w.bridge.send(command{Cmd: "play"})
}

func (w *bridgeWidget) PauseVideo() error {
	if err := w.live(); err != nil {
		return err
	}
	return w.bridge.send(command{Cmd: "pause"})
}

func (w *bridgeWidget) GetVideoData() player.VideoData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return player.VideoData{Title: w.title}
}

func (w *bridgeWidget) Destroy() error {
	w.mu.Lock()
	if w.detached {
		w.mu.Unlock()
		return nil
	}
	w.detached = true
	w.mu.Unlock()
	return w.bridge.send(command{Cmd: "destroy"})
}
