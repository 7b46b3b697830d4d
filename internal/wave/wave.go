// Package wave renders a decorative animated waveform for the player UI.
// The animation is parametric (speed, amplitude, frequency), not derived
// from the audio signal.
package wave

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

// Params shape the animation.
type Params struct {
	Speed     float64 // phase advance per frame, radians
	Amplitude float64 // fraction of half-height the wave swings over, [0,1]
	Frequency float64 // horizontal wave cycles across the full width
}

// DefaultParams returns the stock animation shape.
func DefaultParams() Params {
	return Params{Speed: 0.35, Amplitude: 0.8, Frequency: 2.5}
}

const frameInterval = 80 * time.Millisecond

// Animator is a self-driving waveform animation. Start drives frames onto
// the supplied sink until the context is cancelled or Stop is called;
// dimensions can be recomputed at any time via Resize.
type Animator struct {
	mu     sync.Mutex
	width  int
	height int
	params Params
	phase  float64
	cancel context.CancelFunc

	onFrame func(frame string)
}

// New creates an Animator of the given cell dimensions. onFrame receives
// each rendered frame; it must not block.
func New(width, height int, params Params, onFrame func(frame string)) *Animator {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Animator{
		width:   width,
		height:  height,
		params:  params,
		onFrame: onFrame,
	}
}

// Start begins the animation loop. Calling Start on a running animator
// restarts it.
func (a *Animator) Start(ctx context.Context) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	go a.run(ctx)
}

// Stop halts the animation loop. The last rendered frame stays on screen.
func (a *Animator) Stop() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
}

// Resize recomputes the animation dimensions, e.g. on terminal resize.
func (a *Animator) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	a.mu.Lock()
	a.width = width
	a.height = height
	a.mu.Unlock()
}

func (a *Animator) run(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := a.Advance()
			if a.onFrame != nil {
				a.onFrame(frame)
			}
		}
	}
}

// Advance steps the phase and renders the next frame.
func (a *Animator) Advance() string {
	a.mu.Lock()
	a.phase += a.params.Speed
	if a.phase > 2*math.Pi {
		a.phase -= 2 * math.Pi
	}
	a.mu.Unlock()
	return a.Frame()
}

// Frame renders the waveform at the current phase as height lines of width
// runes each.
func (a *Animator) Frame() string {
	a.mu.Lock()
	width, height := a.width, a.height
	params := a.params
	phase := a.phase
	a.mu.Unlock()

	mid := float64(height-1) / 2
	half := mid * params.Amplitude

	// Column heights from a two-harmonic composite; the second harmonic
	// drifts against the first so the shape never repeats exactly.
	levels := make([]float64, width)
	for x := 0; x < width; x++ {
		t := float64(x) / float64(width) * params.Frequency * 2 * math.Pi
		v := math.Sin(t+phase) + 0.4*math.Sin(2.3*t-1.7*phase)
		levels[x] = mid + half*v/1.4
	}

	var sb strings.Builder
	sb.Grow((width + 1) * height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Fill between the wave line and the midline.
			lo, hi := levels[x], mid
			if lo > hi {
				lo, hi = hi, lo
			}
			fy := float64(y)
			switch {
			case fy >= lo-0.5 && fy <= hi+0.5:
				sb.WriteRune('█')
			default:
				sb.WriteRune(' ')
			}
		}
		if y < height-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}
