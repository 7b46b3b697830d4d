package tui

import (
	"strings"
	"testing"
)

func TestVolumeThumbOffset(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		width int
		want  int
	}{
		{"zero level", 0, 100, 0},
		{"mid level", 0.5, 100, 45},
		{"full level clamps to bar end", 1.0, 100, 93},
		{"negative level clamps to zero", -0.3, 100, 0},
		{"overdriven level clamps to bar end", 1.7, 100, 93},
		{"tiny width never goes negative", 1.0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := volumeThumbOffset(tt.level, tt.width); got != tt.want {
				t.Errorf("volumeThumbOffset(%v, %d) = %d, want %d", tt.level, tt.width, got, tt.want)
			}
		})
	}
}

func TestVolumeThumbStaysOnBar(t *testing.T) {
	for width := 1; width <= 200; width++ {
		for _, level := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
			offset := volumeThumbOffset(level, width)
			if offset < 0 {
				t.Fatalf("offset %d negative at level %v width %d", offset, level, width)
			}
			if max := int(float64(width)*volumeClampScale) - volumeThumbCells; max > 0 && offset > max {
				t.Fatalf("offset %d past %d at level %v width %d", offset, max, level, width)
			}
		}
	}
}

func TestBuildProgressBar(t *testing.T) {
	bar := buildProgressBar(0.5, 10)
	if got := strings.Count(bar, "█"); got != 5 {
		t.Errorf("half progress filled %d cells, want 5", got)
	}
	if got := strings.Count(bar, "░"); got != 5 {
		t.Errorf("half progress left %d empty cells, want 5", got)
	}

	if got := strings.Count(buildProgressBar(2.0, 10), "█"); got != 10 {
		t.Errorf("overdriven fraction filled %d cells, want 10", got)
	}
	if got := strings.Count(buildProgressBar(-1.0, 10), "█"); got != 0 {
		t.Errorf("negative fraction filled %d cells, want 0", got)
	}
	if buildProgressBar(0.5, 0) != "" {
		t.Error("zero width bar not empty")
	}
}
