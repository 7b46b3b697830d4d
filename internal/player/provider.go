package player

import "github.com/spindleaudio/spindle/internal/audio"

// EngineProvider adapts *audio.Engine to the Provider interface.
type EngineProvider struct {
	Engine *audio.Engine
}

func (p EngineProvider) Open(sources []string, streaming bool, cb audio.Callbacks) Handle {
	return p.Engine.Open(sources, streaming, cb)
}

func (p EngineProvider) SetVolume(level float64) {
	p.Engine.SetVolume(level)
}
