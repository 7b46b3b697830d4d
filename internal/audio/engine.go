package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultSampleRate is the fixed mixer rate; tracks decoded at other
	// rates are resampled to it.
	DefaultSampleRate = beep.SampleRate(44100)

	// SpeakerBufferSize is the speaker buffer length.
	SpeakerBufferSize = 100 * time.Millisecond

	resampleQuality = 4

	// volumeCurveExponent and minVolumeDB shape the perceived-loudness
	// curve mapping a [0,1] level onto the dB gain of effects.Volume.
	volumeCurveExponent = 0.5
	minVolumeDB         = -10.0
)

// Engine owns the shared audio output and the master volume applied to every
// handle it has produced. One Engine serves the whole session.
type Engine struct {
	mu      sync.Mutex
	out     Output
	rate    beep.SampleRate
	level   float64 // master volume in [0,1]
	handles []*Handle
	logger  zerolog.Logger
}

// NewEngine creates an Engine on the given output. The output is initialized
// eagerly so the first Play does not pay the device setup cost.
func NewEngine(out Output, logger zerolog.Logger) (*Engine, error) {
	rate := DefaultSampleRate
	if err := out.Init(rate, rate.N(SpeakerBufferSize)); err != nil {
		return nil, fmt.Errorf("failed to initialize audio output: %w", err)
	}
	return &Engine{
		out:    out,
		rate:   rate,
		level:  1.0,
		logger: logger.With().Str("component", "audio").Logger(),
	}, nil
}

// Open constructs a playback handle for a track. Sources are ordered format
// variants of the same recording; the first one that opens and decodes wins.
// When streaming is true the track is decoded lazily from disk, otherwise it
// is fully buffered in memory after decode.
func (e *Engine) Open(sources []string, streaming bool, cb Callbacks) *Handle {
	h := &Handle{
		engine:    e,
		sources:   sources,
		streaming: streaming,
		cb:        cb,
		logger:    e.logger,
	}
	e.mu.Lock()
	h.level = e.level
	e.handles = append(e.handles, h)
	e.mu.Unlock()
	return h
}

// SetVolume sets the master output level in [0,1] on all handles, current
// and future. Values outside the range are clamped.
func (e *Engine) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	e.mu.Lock()
	e.level = level
	handles := make([]*Handle, len(e.handles))
	copy(handles, e.handles)
	e.mu.Unlock()

	for _, h := range handles {
		h.applyVolume(level)
	}
	e.logger.Debug().Float64("level", level).Msg("Master volume set")
}

// Volume returns the current master level.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// Close stops all playback and releases every handle's resources.
func (e *Engine) Close() {
	e.out.Clear()

	e.mu.Lock()
	handles := e.handles
	e.handles = nil
	e.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

// levelToGain maps a linear [0,1] level onto the dB exponent used by
// effects.Volume (base 2). Zero maps to the floor; the caller sets Silent.
func levelToGain(level float64) float64 {
	if level <= 0 {
		return minVolumeDB
	}
	if level >= 1 {
		return 0
	}
	adjusted := math.Pow(level, volumeCurveExponent)
	return (1.0 - adjusted) * minVolumeDB
}
