package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"
)

// testOutput is a manual Output: samples are pulled on demand via Advance so
// playback can be driven deterministically without an audio device.
type testOutput struct {
	mu        sync.Mutex
	streamers []beep.Streamer
}

func (o *testOutput) Init(rate beep.SampleRate, bufferSize int) error { return nil }

func (o *testOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamers = append(o.streamers, s)
}

func (o *testOutput) Lock()   { o.mu.Lock() }
func (o *testOutput) Unlock() { o.mu.Unlock() }

func (o *testOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamers = nil
}

// Advance pulls n samples from every mixed streamer, dropping drained ones.
func (o *testOutput) Advance(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	buf := make([][2]float64, 512)
	var alive []beep.Streamer
	for _, s := range o.streamers {
		remaining := n
		ok := true
		for remaining > 0 && ok {
			chunk := buf
			if remaining < len(chunk) {
				chunk = chunk[:remaining]
			}
			var got int
			got, ok = s.Stream(chunk)
			remaining -= got
			if got == 0 && !ok {
				break
			}
		}
		if ok {
			alive = append(alive, s)
		}
	}
	o.streamers = alive
}

// writeWAV writes a 16-bit stereo PCM WAV of the given sample count at the
// engine's mixer rate and returns its path.
func writeWAV(t *testing.T, dir, name string, samples int) string {
	t.Helper()

	const (
		channels = 2
		bits     = 16
		rate     = int(DefaultSampleRate)
	)
	dataSize := samples * channels * bits / 8

	var hdr []byte
	hdr = append(hdr, "RIFF"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(36+dataSize))
	hdr = append(hdr, "WAVE"...)
	hdr = append(hdr, "fmt "...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 16)
	hdr = binary.LittleEndian.AppendUint16(hdr, 1) // PCM
	hdr = binary.LittleEndian.AppendUint16(hdr, channels)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(rate))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(rate*channels*bits/8))
	hdr = binary.LittleEndian.AppendUint16(hdr, channels*bits/8)
	hdr = binary.LittleEndian.AppendUint16(hdr, bits)
	hdr = append(hdr, "data"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(dataSize))

	path := filepath.Join(dir, name)
	data := append(hdr, make([]byte, dataSize)...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func newTestEngine(t *testing.T) (*Engine, *testOutput) {
	t.Helper()
	out := &testOutput{}
	eng, err := NewEngine(out, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type callbackCounts struct {
	play, load, end, pause, stop, seek atomic.Int32
}

func (c *callbackCounts) callbacks() Callbacks {
	return Callbacks{
		OnPlay:  func() { c.play.Add(1) },
		OnLoad:  func() { c.load.Add(1) },
		OnEnd:   func() { c.end.Add(1) },
		OnPause: func() { c.pause.Add(1) },
		OnStop:  func() { c.stop.Add(1) },
		OnSeek:  func() { c.seek.Add(1) },
	}
}

func TestHandleSourceFallback(t *testing.T) {
	eng, _ := newTestEngine(t)
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "track.wav", int(DefaultSampleRate)) // 1 second

	var counts callbackCounts
	h := eng.Open([]string{filepath.Join(dir, "track.mp3"), wavPath}, true, counts.callbacks())

	if got := h.State(); got != Unloaded {
		t.Fatalf("initial state = %v, want unloaded", got)
	}

	h.Play()
	waitFor(t, "handle to play", h.Playing)

	if got := h.State(); got != Loaded {
		t.Errorf("state = %v, want loaded", got)
	}
	if got := h.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
	if counts.load.Load() != 1 {
		t.Errorf("OnLoad fired %d times, want 1", counts.load.Load())
	}
	if counts.play.Load() != 1 {
		t.Errorf("OnPlay fired %d times, want 1", counts.play.Load())
	}

	// Play on an already-playing handle is a no-op.
	h.Play()
	if counts.play.Load() != 1 {
		t.Errorf("OnPlay fired again on redundant Play")
	}
}

func TestHandleLoadFailureStaysLoading(t *testing.T) {
	eng, _ := newTestEngine(t)
	dir := t.TempDir()

	var counts callbackCounts
	h := eng.Open([]string{filepath.Join(dir, "missing.mp3"), filepath.Join(dir, "missing.ogg")}, true, counts.callbacks())
	h.Play()

	waitFor(t, "load error", func() bool { return h.Err() != nil })

	// The handle never reaches playing; it sits in Loading indefinitely.
	if got := h.State(); got != Loading {
		t.Errorf("state = %v, want loading", got)
	}
	if h.Playing() {
		t.Error("handle reports playing after failed load")
	}
	if counts.play.Load() != 0 || counts.load.Load() != 0 {
		t.Error("lifecycle callbacks fired for failed load")
	}
}

func TestHandleEndOfTrack(t *testing.T) {
	eng, out := newTestEngine(t)
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "track.wav", 1000)

	var counts callbackCounts
	h := eng.Open([]string{wavPath}, true, counts.callbacks())
	h.Play()
	waitFor(t, "handle to play", h.Playing)

	// Drain the whole track plus slack.
	out.Advance(2000)

	waitFor(t, "end callback", func() bool { return counts.end.Load() == 1 })
	if h.Playing() {
		t.Error("handle reports playing after natural end")
	}
	if got := h.Position(); got != 0 {
		t.Errorf("Position after end = %v, want rewound to 0", got)
	}

	// The handle can be replayed after a natural end.
	h.Play()
	waitFor(t, "handle to replay", h.Playing)
	out.Advance(500)
	if got := h.Position(); got == 0 {
		t.Error("Position did not advance on replay")
	}
}

func TestHandlePauseResume(t *testing.T) {
	eng, out := newTestEngine(t)
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "track.wav", int(DefaultSampleRate))

	var counts callbackCounts
	h := eng.Open([]string{wavPath}, true, counts.callbacks())
	h.Play()
	waitFor(t, "handle to play", h.Playing)

	out.Advance(4410) // 100ms
	h.Pause()

	if h.Playing() {
		t.Error("handle reports playing while paused")
	}
	if counts.pause.Load() != 1 {
		t.Errorf("OnPause fired %d times, want 1", counts.pause.Load())
	}
	pos := h.Position()
	if pos != DefaultSampleRate.D(4410) {
		t.Errorf("Position = %v, want %v", pos, DefaultSampleRate.D(4410))
	}

	// Paused chain produces silence but stays in the mixer; position holds.
	out.Advance(4410)
	if got := h.Position(); got != pos {
		t.Errorf("Position moved while paused: %v", got)
	}

	h.Play()
	if !h.Playing() {
		t.Error("handle not playing after resume")
	}
	out.Advance(4410)
	if got := h.Position(); got <= pos {
		t.Errorf("Position did not advance after resume: %v", got)
	}
}

func TestHandleStopRewinds(t *testing.T) {
	eng, out := newTestEngine(t)
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "track.wav", int(DefaultSampleRate))

	var counts callbackCounts
	h := eng.Open([]string{wavPath}, true, counts.callbacks())
	h.Play()
	waitFor(t, "handle to play", h.Playing)
	out.Advance(4410)

	h.Stop()
	if h.Playing() {
		t.Error("handle reports playing after stop")
	}
	if counts.stop.Load() != 1 {
		t.Errorf("OnStop fired %d times, want 1", counts.stop.Load())
	}
	if got := h.Position(); got != 0 {
		t.Errorf("Position after stop = %v, want 0", got)
	}

	// Stopped handles stay loaded and restart from the top.
	h.Play()
	if got := h.State(); got != Loaded {
		t.Errorf("state after restart = %v, want loaded", got)
	}
}

func TestHandleSeek(t *testing.T) {
	eng, _ := newTestEngine(t)
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "track.wav", int(DefaultSampleRate))

	var counts callbackCounts
	h := eng.Open([]string{wavPath}, true, counts.callbacks())

	// Seeking before load is an error.
	if err := h.Seek(time.Millisecond); err == nil {
		t.Error("expected error seeking unloaded handle")
	}

	h.Play()
	waitFor(t, "handle to play", h.Playing)

	if err := h.Seek(500 * time.Millisecond); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := h.Position(); got != 500*time.Millisecond {
		t.Errorf("Position = %v, want 500ms", got)
	}
	if counts.seek.Load() != 1 {
		t.Errorf("OnSeek fired %d times, want 1", counts.seek.Load())
	}

	// Past-the-end seeks clamp to the track length.
	if err := h.Seek(time.Hour); err != nil {
		t.Fatalf("Seek past end: %v", err)
	}
	if got := h.Position(); got != time.Second {
		t.Errorf("Position = %v, want clamped to 1s", got)
	}
}

func TestHandleBuffered(t *testing.T) {
	eng, out := newTestEngine(t)
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "track.wav", 1000)

	var counts callbackCounts
	h := eng.Open([]string{wavPath}, false, counts.callbacks())
	h.Play()
	waitFor(t, "handle to play", h.Playing)

	if got := h.Duration(); got != DefaultSampleRate.D(1000) {
		t.Errorf("Duration = %v, want %v", got, DefaultSampleRate.D(1000))
	}
	out.Advance(2000)
	waitFor(t, "end callback", func() bool { return counts.end.Load() == 1 })
}

func TestEngineVolumeClamp(t *testing.T) {
	eng, _ := newTestEngine(t)

	eng.SetVolume(-0.5)
	if got := eng.Volume(); got != 0 {
		t.Errorf("Volume after SetVolume(-0.5) = %v, want 0", got)
	}
	eng.SetVolume(1.5)
	if got := eng.Volume(); got != 1 {
		t.Errorf("Volume after SetVolume(1.5) = %v, want 1", got)
	}
}

func TestLevelToGain(t *testing.T) {
	if got := levelToGain(0); got != minVolumeDB {
		t.Errorf("levelToGain(0) = %v, want %v", got, minVolumeDB)
	}
	if got := levelToGain(1); got != 0 {
		t.Errorf("levelToGain(1) = %v, want 0", got)
	}
	mid := levelToGain(0.5)
	if mid >= 0 || mid <= minVolumeDB {
		t.Errorf("levelToGain(0.5) = %v, want within (%v, 0)", mid, minVolumeDB)
	}
}
