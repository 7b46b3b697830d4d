package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/spindleaudio/spindle/internal/player"
	"github.com/spindleaudio/spindle/internal/playlist"
	"github.com/spindleaudio/spindle/internal/wave"
)

// panelHideDelay is how long a toggled-off panel lingers dimmed before it
// is removed from the layout. Showing is always immediate.
const panelHideDelay = 500 * time.Millisecond

const (
	// volumeBarScale is the fraction of the panel width the thumb travels
	// over.
	volumeBarScale = 0.9

	// volumeClampScale bounds the thumb offset at the high end.
	volumeClampScale = 0.95

	// volumeThumbCells is the rendered thumb width in cells.
	volumeThumbCells = 2

	seekStep   = 0.05
	volumeStep = 0.05
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 250 * time.Millisecond,
	}
}

// App is the terminal UI for the playlist player. It implements
// player.Display: the transport controller pushes state transitions in, and
// a single refresh ticker renders them out.
type App struct {
	app *tview.Application

	nowPlaying *tview.TextView
	waveform   *tview.TextView
	progress   *tview.TextView
	playlist   *tview.TextView
	volume     *tview.TextView
	status     *tview.TextView

	root      *tview.Flex
	bottomRow *tview.Flex

	config Config
	ctrl   *player.Player
	anim   *wave.Animator

	// Mutex protects shared state accessed by the Display methods (called
	// from playback callbacks), the animator goroutine, and the ticker
	// goroutine.
	mu sync.Mutex

	// Current state (guarded by mu)
	trackIndex int
	track      playlist.Track
	haveTrack  bool
	transport  player.TransportState
	fraction   float64
	elapsed    time.Duration
	duration   time.Duration
	level      float64
	waveFrame  string

	// Panel visibility (guarded by mu). The hide timers implement the
	// deferred-hide fade; re-showing cancels them.
	playlistVisible bool
	volumeVisible   bool
	playlistHide    *time.Timer
	volumeHide      *time.Timer

	// Last-rendered content for change detection
	lastNowPlaying string
	lastWave       string
	lastProgress   string
	lastPlaylist   string
	lastVolume     string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	// Context cancel function
	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New() *App {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
		level:  1.0,
	}
	a.anim = wave.New(60, 5, wave.DefaultParams(), a.onWaveFrame)
	a.setupUI()
	return a
}

// SetController attaches the transport controller driven by key input.
// Must be called before Run.
func (a *App) SetController(ctrl *player.Player) {
	a.ctrl = ctrl
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	// Now playing panel
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	// Waveform animation
	a.waveform = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.waveform.SetBorder(true)

	// Progress bar
	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	// Playlist panel (toggleable)
	a.playlist = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.playlist.SetBorder(true).
		SetTitle(" Playlist ").
		SetTitleAlign(tview.AlignLeft)

	// Volume panel (toggleable)
	a.volume = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.volume.SetBorder(true).
		SetTitle(" Volume ").
		SetTitleAlign(tview.AlignLeft)

	// Status bar
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  space:play/pause  n:next  p:prev  ←→:seek  l:playlist  v:volume  1-9:track[-]")

	// Create layout
	// Top row: now playing (takes most space)
	// Middle rows: waveform, progress bar
	// Bottom row: playlist panel, zero-height until toggled
	// Volume panel above the footer, also zero-height until toggled
	a.bottomRow = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.playlist, 0, 1, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.waveform, 7, 1, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(a.bottomRow, 0, 0, false).
		AddItem(a.volume, 0, 0, false).
		AddItem(a.status, 1, 1, false)

	// Handle keyboard input
	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(a.root, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	if a.ctrl == nil {
		return event
	}

	switch event.Key() {
	case tcell.KeyLeft:
		a.seekBy(-seekStep)
		return nil
	case tcell.KeyRight:
		a.seekBy(seekStep)
		return nil
	}

	r := event.Rune()
	switch {
	case r == 'q' || r == 'Q':
		a.Stop()
		return nil
	case r == ' ':
		a.togglePlayPause()
		return nil
	case r == 'n' || r == 'N':
		a.ctrl.Skip(player.Next)
		return nil
	case r == 'p' || r == 'P':
		a.ctrl.Skip(player.Prev)
		return nil
	case r == 'l' || r == 'L':
		a.togglePlaylist()
		return nil
	case r == 'v' || r == 'V':
		a.toggleVolume()
		return nil
	case r == '+' || r == '=':
		a.nudgeVolume(volumeStep)
		return nil
	case r == '-' || r == '_':
		a.nudgeVolume(-volumeStep)
		return nil
	case r >= '1' && r <= '9':
		index := int(r - '1')
		if a.ctrl.Registry().Valid(index) {
			a.ctrl.SkipTo(index)
		}
		return nil
	}
	return event
}

func (a *App) togglePlayPause() {
	a.mu.Lock()
	playing := a.transport == player.TransportPlaying
	a.mu.Unlock()

	if playing {
		a.ctrl.Pause()
	} else {
		a.ctrl.Play()
	}
}

func (a *App) seekBy(delta float64) {
	a.mu.Lock()
	target := a.fraction + delta
	a.mu.Unlock()

	if target < 0 {
		target = 0
	}
	if target > 1 {
		target = 1
	}
	a.ctrl.Seek(target)
}

// nudgeVolume adjusts the master volume. Active only while the volume panel
// is open: opening the panel is the engage gesture, the nudge keys are the
// drag.
func (a *App) nudgeVolume(delta float64) {
	a.mu.Lock()
	active := a.volumeVisible
	target := a.level + delta
	a.mu.Unlock()

	if !active {
		return
	}
	a.ctrl.Volume(target)
}

// togglePlaylist flips the playlist panel. Showing is immediate; hiding
// dims the border, waits out the fade delay, then removes the panel.
// Re-showing during the fade cancels it.
func (a *App) togglePlaylist() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.playlistVisible {
		a.playlistVisible = false
		a.playlist.SetBorderColor(tcell.ColorGray)
		a.playlistHide = time.AfterFunc(panelHideDelay, func() {
			a.app.QueueUpdateDraw(func() {
				a.mu.Lock()
				defer a.mu.Unlock()
				if !a.playlistVisible {
					a.root.ResizeItem(a.bottomRow, 0, 0)
				}
			})
		})
		return
	}

	if a.playlistHide != nil {
		a.playlistHide.Stop()
		a.playlistHide = nil
	}
	a.playlistVisible = true
	a.playlist.SetBorderColor(tview.Styles.BorderColor)
	a.root.ResizeItem(a.bottomRow, 0, 2)
}

// toggleVolume flips the volume panel with the same show/hide asymmetry as
// the playlist panel.
func (a *App) toggleVolume() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.volumeVisible {
		a.volumeVisible = false
		a.volume.SetBorderColor(tcell.ColorGray)
		a.volumeHide = time.AfterFunc(panelHideDelay, func() {
			a.app.QueueUpdateDraw(func() {
				a.mu.Lock()
				defer a.mu.Unlock()
				if !a.volumeVisible {
					a.root.ResizeItem(a.volume, 0, 0)
				}
			})
		})
		return
	}

	if a.volumeHide != nil {
		a.volumeHide.Stop()
		a.volumeHide = nil
	}
	a.volumeVisible = true
	a.volume.SetBorderColor(tview.Styles.BorderColor)
	a.root.ResizeItem(a.volume, 3, 0)
}

// ShowTrack implements player.Display.
func (a *App) ShowTrack(index int, track playlist.Track) {
	a.mu.Lock()
	a.trackIndex = index
	a.track = track
	a.haveTrack = true
	a.mu.Unlock()
}

// ShowTransport implements player.Display. Entering the playing state
// starts the waveform animation; every other state stops it on its last
// frame.
func (a *App) ShowTransport(state player.TransportState) {
	a.mu.Lock()
	a.transport = state
	a.mu.Unlock()

	if state == player.TransportPlaying {
		a.anim.Start(context.Background())
	} else {
		a.anim.Stop()
	}
}

// ShowProgress implements player.Display.
func (a *App) ShowProgress(fraction float64, elapsed, duration time.Duration) {
	a.mu.Lock()
	a.fraction = fraction
	a.elapsed = elapsed
	a.duration = duration
	a.mu.Unlock()
}

// ShowVolume implements player.Display.
func (a *App) ShowVolume(level float64) {
	a.mu.Lock()
	a.level = level
	a.mu.Unlock()
}

// onWaveFrame stores an animator frame for the next refresh. Runs on the
// animator goroutine, so it must not block.
func (a *App) onWaveFrame(frame string) {
	a.mu.Lock()
	a.waveFrame = frame
	a.mu.Unlock()
}

// Run starts the TUI and blocks until quit
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	// Single refresh ticker: the only source of redraws
	go a.refreshLoop(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (a *App) refreshLoop(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 250 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateWaveform()
		a.updateProgress()
		a.updatePlaylist()
		a.updateVolume()
	})
}

// updateNowPlaying updates the now playing panel.
// Must be called with a.mu held.
func (a *App) updateNowPlaying() {
	var text string

	if !a.haveTrack {
		text = "\n\n[gray]No track selected[-]"
	} else {
		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(a.track.Title)))

		meta := make([]string, 0, 3)
		if a.track.Number != "" {
			meta = append(meta, a.track.Number)
		}
		if a.track.Model != "" {
			meta = append(meta, a.track.Model)
		}
		if a.track.Designer != "" {
			meta = append(meta, a.track.Designer)
		}
		if len(meta) > 0 {
			sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(strings.Join(meta, " · "))))
		}
		if a.track.Artist != "" {
			sb.WriteString(fmt.Sprintf("[gray]%s[-]\n", tview.Escape(a.track.Artist)))
		}
		if a.track.Note != "" {
			sb.WriteString(fmt.Sprintf("[gray]%s[-]\n", tview.Escape(a.track.Note)))
		}

		sb.WriteString(fmt.Sprintf("\n%s", a.transportIndicator()))
		text = sb.String()
	}

	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

// transportIndicator returns the state glyph for the now playing panel.
// Must be called with a.mu held.
func (a *App) transportIndicator() string {
	switch a.transport {
	case player.TransportPlaying:
		return "[green]▶[-]"
	case player.TransportPaused:
		return "[yellow]⏸[-]"
	case player.TransportLoading:
		return "[gray]loading...[-]"
	default:
		return "[gray]■[-]"
	}
}

// updateWaveform renders the latest animation frame and keeps the animator
// sized to the panel. Must be called with a.mu held.
func (a *App) updateWaveform() {
	_, _, width, height := a.waveform.GetInnerRect()
	if width > 0 && height > 0 {
		a.anim.Resize(width, height)
	}

	if a.waveFrame != a.lastWave {
		a.lastWave = a.waveFrame
		a.waveform.SetText("[green]" + a.waveFrame + "[-]")
	}
}

// updateProgress updates the progress bar row.
// Must be called with a.mu held.
func (a *App) updateProgress() {
	var text string

	if a.haveTrack {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		// Only update cached width when GetInnerRect returns a positive value,
		// avoiding flicker from transient zero-width during layout.
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		bar := buildProgressBar(a.fraction, a.lastBarWidth)
		text = fmt.Sprintf("%s %s %s",
			player.FormatTime(a.elapsed), bar, player.FormatTime(a.duration))
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updatePlaylist renders the track list with the current row highlighted.
// Must be called with a.mu held.
func (a *App) updatePlaylist() {
	if !a.playlistVisible || a.ctrl == nil {
		return
	}

	_, _, width, _ := a.playlist.GetInnerRect()
	titleWidth := width - 8
	if titleWidth < 8 {
		titleWidth = 8
	}

	var sb strings.Builder
	for i, track := range a.ctrl.Registry().All() {
		if i > 0 {
			sb.WriteString("\n")
		}
		title := runewidth.Truncate(track.Title, titleWidth, "…")
		if i == a.trackIndex {
			sb.WriteString(fmt.Sprintf("[green]▶[-] [white::b]%2d  %s[-:-:-]", i+1, tview.Escape(title)))
		} else {
			sb.WriteString(fmt.Sprintf("  %2d  %s", i+1, tview.Escape(title)))
		}
	}

	text := sb.String()
	if text != a.lastPlaylist {
		a.lastPlaylist = text
		a.playlist.SetText(text)
	}
}

// updateVolume renders the volume slider.
// Must be called with a.mu held.
func (a *App) updateVolume() {
	if !a.volumeVisible {
		return
	}

	_, _, width, _ := a.volume.GetInnerRect()
	if width < 10 {
		width = 10
	}
	// Leave room for the percentage readout.
	width -= 5

	offset := volumeThumbOffset(a.level, width)
	barWidth := int(float64(width) * volumeBarScale)
	rest := barWidth - offset - volumeThumbCells
	if rest < 0 {
		rest = 0
	}

	text := fmt.Sprintf("[gray]%s[-][white]%s[-][gray]%s[-] %3.0f%%",
		strings.Repeat("─", offset),
		strings.Repeat("●", volumeThumbCells),
		strings.Repeat("─", rest),
		a.level*100)

	if text != a.lastVolume {
		a.lastVolume = text
		a.volume.SetText(text)
	}
}

// volumeThumbOffset maps a volume level in [0,1] onto the thumb's cell
// offset. Travel is scaled to 90% of the panel width and the result is
// clamped to [0, width*0.95 - thumb] so the thumb never leaves the bar.
func volumeThumbOffset(level float64, width int) int {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	offset := int(level * float64(width) * volumeBarScale)
	max := int(float64(width)*volumeClampScale) - volumeThumbCells
	if max < 0 {
		max = 0
	}
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}

	filled := int(fraction * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

// Stop stops the TUI application
func (a *App) Stop() {
	a.anim.Stop()
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}
