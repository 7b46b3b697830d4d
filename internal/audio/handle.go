package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"
)

// LoadState tracks how far a handle has progressed toward being playable.
type LoadState int

const (
	Unloaded LoadState = iota // no load attempted yet
	Loading                   // decode in progress (or failed; see Err)
	Loaded                    // ready to play
)

// String returns a human-readable representation of the LoadState.
func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Callbacks are lifecycle notifications fired by a Handle. All fields are
// optional. OnEnd is delivered on its own goroutine; the rest are called
// synchronously from whichever call triggered the transition, with no locks
// held.
type Callbacks struct {
	OnPlay  func() // playback started or resumed
	OnLoad  func() // decode finished, handle is ready
	OnEnd   func() // track drained naturally
	OnPause func() // playback paused
	OnStop  func() // playback stopped and rewound
	OnSeek  func() // position changed
}

// Handle is the per-track playback object. It is created lazily by the
// transport controller on first play of a track and persists for the session;
// skipping away stops it but does not destroy it.
type Handle struct {
	engine    *Engine
	sources   []string
	streaming bool
	cb        Callbacks
	logger    zerolog.Logger

	mu       sync.Mutex
	state    LoadState
	loadErr  error
	wantPlay bool // play requested while still loading
	playing  bool
	armed    bool // chain currently owned by the output mixer
	closed   bool
	level    float64

	file     *os.File
	closer   beep.StreamSeekCloser
	streamer beep.StreamSeeker
	format   beep.Format
	vol      *effects.Volume
	ctrl     *beep.Ctrl
}

// Play starts or resumes playback. On an unloaded handle it kicks off the
// decode and begins playing as soon as the load completes. Calling Play on a
// handle that is already playing is a no-op.
func (h *Handle) Play() {
	h.mu.Lock()
	switch h.state {
	case Unloaded:
		h.state = Loading
		h.wantPlay = true
		h.mu.Unlock()
		go h.load()
		return
	case Loading:
		h.wantPlay = true
		h.mu.Unlock()
		return
	}

	// Loaded
	if h.playing || h.closed {
		h.mu.Unlock()
		return
	}
	h.playing = true
	wasArmed := h.armed
	h.armed = true
	h.mu.Unlock()

	out := h.engine.out
	out.Lock()
	if wasArmed {
		h.ctrl.Paused = false
	} else {
		h.armLocked()
	}
	out.Unlock()

	h.fire(h.cb.OnPlay)
}

// Pause pauses playback, keeping the current position.
func (h *Handle) Pause() {
	h.mu.Lock()
	if h.state != Loaded || !h.playing {
		h.mu.Unlock()
		return
	}
	h.playing = false
	h.mu.Unlock()

	out := h.engine.out
	out.Lock()
	h.ctrl.Paused = true
	out.Unlock()

	h.fire(h.cb.OnPause)
}

// Stop halts playback and rewinds to the start. The handle stays loaded and
// can be played again. Stopping a handle that is still loading cancels the
// pending auto-play.
func (h *Handle) Stop() {
	h.mu.Lock()
	if h.state != Loaded {
		h.wantPlay = false
		h.mu.Unlock()
		return
	}
	h.playing = false
	wasArmed := h.armed
	h.mu.Unlock()

	out := h.engine.out
	out.Lock()
	if wasArmed {
		h.ctrl.Paused = true
	}
	if err := h.streamer.Seek(0); err != nil {
		h.logger.Debug().Err(err).Msg("Rewind failed on stop")
	}
	out.Unlock()

	h.fire(h.cb.OnStop)
}

// Seek moves playback to the given position.
func (h *Handle) Seek(pos time.Duration) error {
	h.mu.Lock()
	if h.state != Loaded {
		h.mu.Unlock()
		return fmt.Errorf("track not loaded")
	}
	h.mu.Unlock()

	out := h.engine.out
	out.Lock()
	n := h.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if max := h.streamer.Len(); n > max {
		n = max
	}
	err := h.streamer.Seek(n)
	out.Unlock()
	if err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}

	h.fire(h.cb.OnSeek)
	return nil
}

// Position returns the current playback position, or 0 when unavailable.
func (h *Handle) Position() time.Duration {
	h.mu.Lock()
	if h.state != Loaded {
		h.mu.Unlock()
		return 0
	}
	h.mu.Unlock()

	out := h.engine.out
	out.Lock()
	defer out.Unlock()
	return h.format.SampleRate.D(h.streamer.Position())
}

// Duration returns the track's total length, or 0 when unavailable.
func (h *Handle) Duration() time.Duration {
	h.mu.Lock()
	if h.state != Loaded {
		h.mu.Unlock()
		return 0
	}
	h.mu.Unlock()

	out := h.engine.out
	out.Lock()
	defer out.Unlock()
	return h.format.SampleRate.D(h.streamer.Len())
}

// Playing reports whether the handle is actively producing audio.
func (h *Handle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == Loaded && h.playing
}

// State returns the handle's load state.
func (h *Handle) State() LoadState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the load error, if any. A handle whose load failed stays in
// Loading; the error is surfaced here for callers that ask.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadErr
}

// Close releases the handle's decoder resources. Not safe to call while the
// handle is armed in the mixer; the engine clears the output first.
func (h *Handle) Close() {
	h.mu.Lock()
	h.closed = true
	h.playing = false
	h.armed = false
	closer, file := h.closer, h.file
	h.closer, h.file = nil, nil
	h.mu.Unlock()

	if closer != nil {
		closer.Close()
	}
	if file != nil {
		file.Close()
	}
}

// load opens and decodes the first usable source, then starts playback if one
// was requested while loading. Runs on its own goroutine. A failed load is
// logged and leaves the handle in Loading: the caller-visible behavior is a
// track that never reaches playing.
func (h *Handle) load() {
	file, streamer, format, err := h.openSource()
	if err != nil {
		h.mu.Lock()
		h.loadErr = err
		h.mu.Unlock()
		h.logger.Warn().Err(err).Strs("sources", h.sources).Msg("Track failed to load")
		return
	}

	var seeker beep.StreamSeeker = streamer
	var closer beep.StreamSeekCloser = streamer
	if !h.streaming {
		// Fully buffer, then drop the file handles.
		buf := beep.NewBuffer(format)
		buf.Append(streamer)
		streamer.Close()
		file.Close()
		seeker = buf.Streamer(0, buf.Len())
		closer = nil
		file = nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		if closer != nil {
			closer.Close()
		}
		if file != nil {
			file.Close()
		}
		return
	}
	h.file = file
	h.closer = closer
	h.streamer = seeker
	h.format = format
	h.state = Loaded
	wantPlay := h.wantPlay
	h.wantPlay = false
	h.mu.Unlock()

	h.logger.Debug().
		Int("rate", int(format.SampleRate)).
		Dur("duration", format.SampleRate.D(seeker.Len())).
		Bool("streaming", h.streaming).
		Msg("Track loaded")

	h.fire(h.cb.OnLoad)
	if wantPlay {
		h.Play()
	}
}

// openSource tries each source candidate in order and returns the first that
// opens and decodes.
func (h *Handle) openSource() (*os.File, beep.StreamSeekCloser, beep.Format, error) {
	var lastErr error
	for _, src := range h.sources {
		f, err := os.Open(src)
		if err != nil {
			lastErr = err
			continue
		}
		streamer, format, err := decode(src, f)
		if err != nil {
			f.Close()
			lastErr = fmt.Errorf("%s: %w", src, err)
			continue
		}
		return f, streamer, format, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no sources given")
	}
	return nil, nil, beep.Format{}, fmt.Errorf("no playable source: %w", lastErr)
}

// decode picks a decoder by file extension.
func decode(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
}

// armLocked builds the streamer chain from the current position and hands it
// to the output mixer. Must be called with the output locked.
func (h *Handle) armLocked() {
	var s beep.Streamer = h.streamer
	if h.format.SampleRate != h.engine.rate {
		s = beep.Resample(resampleQuality, h.format.SampleRate, h.engine.rate, s)
	}
	h.vol = &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   levelToGain(h.level),
		Silent:   h.level == 0,
	}
	h.ctrl = &beep.Ctrl{Streamer: h.vol}
	h.engine.out.Play(beep.Seq(h.ctrl, beep.Callback(h.finished)))
}

// finished runs when the track drains naturally. The mixer invokes it while
// holding the output lock, so it must not touch the output itself; the
// streamer rewind is safe because the chain has already drained.
func (h *Handle) finished() {
	h.mu.Lock()
	h.playing = false
	h.armed = false
	h.mu.Unlock()

	if err := h.streamer.Seek(0); err != nil {
		h.logger.Debug().Err(err).Msg("Rewind failed after track end")
	}

	if h.cb.OnEnd != nil {
		go h.cb.OnEnd()
	}
}

// applyVolume sets this handle's gain to the given master level.
func (h *Handle) applyVolume(level float64) {
	h.mu.Lock()
	h.level = level
	vol := h.vol
	h.mu.Unlock()

	if vol == nil {
		return // not armed yet; picked up by the next armLocked
	}
	out := h.engine.out
	out.Lock()
	vol.Volume = levelToGain(level)
	vol.Silent = level == 0
	out.Unlock()
}

// fire invokes a callback if set. Never called with locks held.
func (h *Handle) fire(f func()) {
	if f != nil {
		f()
	}
}
