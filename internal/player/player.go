package player

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spindleaudio/spindle/internal/audio"
	"github.com/spindleaudio/spindle/internal/playlist"
)

// Direction selects which neighbouring track Skip moves to.
type Direction int

const (
	Next Direction = iota
	Prev
)

// TransportState is the coarse playback state the display reflects in its
// transport controls.
type TransportState int

const (
	TransportLoading TransportState = iota // handle not ready yet
	TransportReady                         // loaded, not playing
	TransportPlaying
	TransportPaused
)

// Handle is the per-track playback surface the controller drives. Satisfied
// by *audio.Handle; tests substitute fakes.
type Handle interface {
	Play()
	Pause()
	Stop()
	Seek(pos time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	Playing() bool
	State() audio.LoadState
}

// Provider constructs playback handles and owns the master volume.
type Provider interface {
	Open(sources []string, streaming bool, cb audio.Callbacks) Handle
	SetVolume(level float64)
}

// Display receives controller state transitions and reflects them into
// whatever UI is attached. Implementations must be cheap and non-blocking;
// they are called from playback callbacks.
type Display interface {
	ShowTrack(index int, track playlist.Track)
	ShowTransport(state TransportState)
	ShowProgress(fraction float64, elapsed, duration time.Duration)
	ShowVolume(level float64)
}

// Config holds controller settings.
type Config struct {
	// AudioDir is the directory track file references resolve against.
	AudioDir string

	// Formats are the candidate extensions probed per track, in preference
	// order. Defaults to mp3 then ogg.
	Formats []string

	// Streaming selects lazy decode from disk over full in-memory
	// buffering.
	Streaming bool

	// ProgressInterval is the progress loop tick. Defaults to 250ms.
	ProgressInterval time.Duration
}

// Player is the transport controller: it owns the current-track index,
// creates playback handles lazily, and mediates between input events, the
// audio engine, and the display.
type Player struct {
	cfg      Config
	reg      *playlist.Registry
	provider Provider
	display  Display
	logger   zerolog.Logger

	mu             sync.Mutex
	current        int
	handles        []Handle
	progressCancel context.CancelFunc
	trackStart     func(index int, track playlist.Track)
}

// New creates a Player over the given registry. The display is required; use
// a no-op implementation if no UI is attached.
func New(cfg Config, reg *playlist.Registry, provider Provider, display Display, logger zerolog.Logger) *Player {
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{".mp3", ".ogg"}
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 250 * time.Millisecond
	}
	return &Player{
		cfg:      cfg,
		reg:      reg,
		provider: provider,
		display:  display,
		logger:   logger.With().Str("component", "player").Logger(),
		handles:  make([]Handle, reg.Len()),
	}
}

// OnTrackStart registers a hook invoked when playback of a track begins
// (not on resume). Used for play-history recording.
func (p *Player) OnTrackStart(fn func(index int, track playlist.Track)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trackStart = fn
}

// Current returns the selected track index and its descriptor.
func (p *Player) Current() (int, playlist.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.reg.At(p.current)
}

// Registry returns the track registry the controller plays from.
func (p *Player) Registry() *playlist.Registry {
	return p.reg
}

// Play starts or resumes playback. With no argument it targets the current
// track; with an index it selects that track first. The handle is created on
// first play of each track and persists for the session.
func (p *Player) Play(index ...int) {
	p.mu.Lock()
	i := p.current
	if len(index) > 0 {
		i = index[0]
	}
	if !p.reg.Valid(i) {
		p.mu.Unlock()
		p.logger.Error().Int("index", i).Msg("Play called with invalid index")
		return
	}

	track := p.reg.At(i)
	newTrack := i != p.current
	p.current = i

	h := p.handles[i]
	created := h == nil
	if created {
		h = p.provider.Open(p.sources(track), p.cfg.Streaming, p.callbacksFor(i))
		p.handles[i] = h
	}
	hook := p.trackStart
	p.mu.Unlock()

	p.display.ShowTrack(i, track)

	if hook != nil && (created || newTrack) {
		hook(i, track)
	}

	p.logger.Info().Int("index", i).Str("title", track.Title).Msg("Play")
	h.Play()

	// Transport visibility follows handle readiness: a handle still loading
	// shows the loading indicator until its on-play callback lands.
	if h.Playing() {
		p.display.ShowTransport(TransportPlaying)
	} else if h.State() == audio.Loaded {
		p.display.ShowTransport(TransportReady)
	} else {
		p.display.ShowTransport(TransportLoading)
	}
}

// Pause pauses the current track. No-op when its handle does not exist yet.
func (p *Player) Pause() {
	p.mu.Lock()
	h := p.handles[p.current]
	p.mu.Unlock()

	if h == nil {
		p.logger.Debug().Msg("Pause with no handle, ignoring")
		return
	}
	h.Pause()
}

// Skip moves one track forward or back, wrapping at either end.
func (p *Player) Skip(dir Direction) {
	p.mu.Lock()
	var target int
	if dir == Next {
		target = p.reg.Next(p.current)
	} else {
		target = p.reg.Prev(p.current)
	}
	p.mu.Unlock()
	p.SkipTo(target)
}

// SkipTo stops whatever is playing and starts the given track. The stopped
// handle is kept for the session; only its playback halts.
func (p *Player) SkipTo(index int) {
	p.mu.Lock()
	cur := p.handles[p.current]
	p.mu.Unlock()

	if cur != nil {
		cur.Stop()
	}
	p.Play(index)
}

// Volume sets the master output level, clamped to [0,1].
func (p *Player) Volume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	p.provider.SetVolume(level)
	p.display.ShowVolume(level)
}

// Seek jumps to the given fraction of the current track's duration. Seeking
// is deliberately a no-op unless the track is playing.
func (p *Player) Seek(fraction float64) {
	p.mu.Lock()
	h := p.handles[p.current]
	p.mu.Unlock()

	if h == nil || !h.Playing() {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	dur := h.Duration()
	if dur <= 0 {
		return
	}
	if err := h.Seek(time.Duration(fraction * float64(dur))); err != nil {
		p.logger.Warn().Err(err).Msg("Seek failed")
	}
}

// Stop halts playback of the current track and cancels the progress loop.
func (p *Player) Stop() {
	p.mu.Lock()
	h := p.handles[p.current]
	p.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Close cancels the progress loop. Handle teardown belongs to the engine.
func (p *Player) Close() {
	p.stopProgress()
}

// sources returns the ordered format-variant candidates for a track.
func (p *Player) sources(track playlist.Track) []string {
	out := make([]string, 0, len(p.cfg.Formats))
	for _, ext := range p.cfg.Formats {
		out = append(out, filepath.Join(p.cfg.AudioDir, track.File+ext))
	}
	return out
}

// callbacksFor wires a track's lifecycle callbacks to display updates and the
// progress loop. Every callback guards against the handle no longer being
// current: a stopped previous track may still deliver events.
func (p *Player) callbacksFor(index int) audio.Callbacks {
	return audio.Callbacks{
		OnLoad: func() {
			if !p.isCurrent(index) {
				return
			}
			p.display.ShowTransport(TransportReady)
		},
		OnPlay: func() {
			if !p.isCurrent(index) {
				return
			}
			p.display.ShowTransport(TransportPlaying)
			p.startProgress(index)
		},
		OnPause: func() {
			if !p.isCurrent(index) {
				return
			}
			p.stopProgress()
			p.display.ShowTransport(TransportPaused)
		},
		OnStop: func() {
			if !p.isCurrent(index) {
				return
			}
			p.stopProgress()
			p.display.ShowTransport(TransportReady)
			p.display.ShowProgress(0, 0, 0)
		},
		OnSeek: func() {
			if !p.isCurrent(index) {
				return
			}
			p.pushProgress(index)
		},
		OnEnd: func() {
			p.trackEnded(index)
		},
	}
}

func (p *Player) isCurrent(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return index == p.current
}

// trackEnded advances to the next track when the current one drains.
func (p *Player) trackEnded(index int) {
	p.mu.Lock()
	if index != p.current {
		p.mu.Unlock()
		return
	}
	next := p.reg.Next(index)
	p.mu.Unlock()

	p.stopProgress()
	p.logger.Info().Int("index", index).Int("next", next).Msg("Track ended, advancing")
	p.Play(next)
}

// startProgress replaces any running progress loop with one for the given
// track. The loop is an explicitly cancellable ticker: cancelled on
// pause/stop/end rather than checked implicitly each frame.
func (p *Player) startProgress(index int) {
	p.mu.Lock()
	if p.progressCancel != nil {
		p.progressCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.progressCancel = cancel
	h := p.handles[index]
	p.mu.Unlock()

	go p.progressLoop(ctx, index, h)
}

func (p *Player) stopProgress() {
	p.mu.Lock()
	if p.progressCancel != nil {
		p.progressCancel()
		p.progressCancel = nil
	}
	p.mu.Unlock()
}

// progressLoop pushes elapsed/fraction updates to the display while the
// track plays. It self-terminates when the handle stops reporting playing,
// and is re-armed by the on-play callback.
func (p *Player) progressLoop(ctx context.Context, index int, h Handle) {
	ticker := time.NewTicker(p.cfg.ProgressInterval)
	defer ticker.Stop()

	p.pushProgress(index)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.Playing() {
				return
			}
			p.pushProgress(index)
		}
	}
}

// pushProgress sends one progress sample for the given track to the display.
// Position defaults to 0 when unavailable; fraction is 0 while duration is
// unknown.
func (p *Player) pushProgress(index int) {
	p.mu.Lock()
	h := p.handles[index]
	p.mu.Unlock()
	if h == nil {
		return
	}

	pos := h.Position()
	dur := h.Duration()
	frac := 0.0
	if dur > 0 {
		frac = float64(pos) / float64(dur)
	}
	p.display.ShowProgress(frac, pos, dur)
}

// FormatTime renders a non-negative duration as m:ss with unpadded minutes
// and zero-padded seconds.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
