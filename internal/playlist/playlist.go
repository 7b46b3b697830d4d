package playlist

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

// Track describes a single playlist entry. All fields are static display
// metadata; File is the base path of the backing media without extension
// (the audio engine resolves the actual format variant).
type Track struct {
	Title    string `yaml:"title"`
	File     string `yaml:"file"`
	Number   string `yaml:"number"`
	Model    string `yaml:"model"`
	Designer string `yaml:"designer"`
	Artist   string `yaml:"artist"`
	Note     string `yaml:"note"`
}

// Registry is an ordered, fixed-length track list. Length and order are fixed
// at load time and never mutated afterwards.
type Registry struct {
	tracks []Track
}

type manifest struct {
	Tracks []Track `yaml:"tracks"`
}

// Load reads a YAML manifest from r and builds a Registry.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return parse(data)
}

// LoadFile reads a YAML manifest from the given path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default builds the Registry from the embedded manifest.
func Default() *Registry {
	reg, err := parse(defaultManifest)
	if err != nil {
		// The embedded manifest is validated by tests; a parse failure here
		// is a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded manifest invalid: %v", err))
	}
	return reg
}

func parse(data []byte) (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Tracks) == 0 {
		return nil, fmt.Errorf("manifest contains no tracks")
	}
	for i, t := range m.Tracks {
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("track %d: missing title", i)
		}
		if strings.TrimSpace(t.File) == "" {
			return nil, fmt.Errorf("track %d (%s): missing file", i, t.Title)
		}
	}
	return &Registry{tracks: m.Tracks}, nil
}

// Len returns the number of tracks.
func (r *Registry) Len() int {
	return len(r.tracks)
}

// At returns the track at index i. The index must be valid.
func (r *Registry) At(i int) Track {
	return r.tracks[i]
}

// All returns a copy of the track list.
func (r *Registry) All() []Track {
	out := make([]Track, len(r.tracks))
	copy(out, r.tracks)
	return out
}

// Next returns the index after i, wrapping to 0 past the end.
func (r *Registry) Next(i int) int {
	return (i + 1) % len(r.tracks)
}

// Prev returns the index before i, wrapping to the last track before 0.
func (r *Registry) Prev(i int) int {
	n := len(r.tracks)
	return (i - 1 + n) % n
}

// Valid reports whether i is a usable track index.
func (r *Registry) Valid(i int) bool {
	return i >= 0 && i < len(r.tracks)
}
