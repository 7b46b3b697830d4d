package audio

import (
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the audio sink handles play through. The production
// implementation wraps the beep speaker; tests substitute a manual pump so
// playback can be driven deterministically without an audio device.
type Output interface {
	// Init prepares the sink for the given sample rate. Safe to call more
	// than once with the same rate.
	Init(rate beep.SampleRate, bufferSize int) error

	// Play adds a streamer to the sink's mixer.
	Play(s beep.Streamer)

	// Lock and Unlock guard all mutation of streamers the sink is driving.
	Lock()
	Unlock()

	// Clear drops every streamer from the mixer.
	Clear()
}

type speakerOutput struct {
	initialized bool
	rate        beep.SampleRate
}

// NewSpeakerOutput returns an Output backed by the system speaker.
func NewSpeakerOutput() Output {
	return &speakerOutput{}
}

func (s *speakerOutput) Init(rate beep.SampleRate, bufferSize int) error {
	if s.initialized && rate == s.rate {
		return nil
	}
	if err := speaker.Init(rate, bufferSize); err != nil {
		return err
	}
	s.initialized = true
	s.rate = rate
	return nil
}

func (s *speakerOutput) Play(st beep.Streamer) { speaker.Play(st) }
func (s *speakerOutput) Lock()                 { speaker.Lock() }
func (s *speakerOutput) Unlock()               { speaker.Unlock() }
func (s *speakerOutput) Clear()                { speaker.Clear() }
