//go:build integration

package main

import (
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestTracksCommand lists the built-in playlist through the real binary
func TestTracksCommand(t *testing.T) {
	// Build the binary first
	buildCmd := exec.Command("go", "build", "-o", "spindle_test", ".")
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v", err)
	}
	defer os.Remove("spindle_test")

	cmd := exec.Command("./spindle_test", "tracks")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("tracks command failed: %v\nOutput: %s", err, output)
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) == 0 {
		t.Fatal("tracks command produced no output")
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "1") {
		t.Errorf("first line not numbered: %q", lines[0])
	}
}

// TestTracksFormatTemplate exercises the --format flag end to end
func TestTracksFormatTemplate(t *testing.T) {
	buildCmd := exec.Command("go", "build", "-o", "spindle_test", ".")
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v", err)
	}
	defer os.Remove("spindle_test")

	cmd := exec.Command("./spindle_test", "tracks", "--format", "{{.File}}")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("tracks command failed: %v\nOutput: %s", err, output)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if strings.ContainsAny(line, " \t") {
			t.Errorf("file reference contains whitespace: %q", line)
		}
	}
}

// TestHistoryCommandEmpty runs history against a fresh data directory
func TestHistoryCommandEmpty(t *testing.T) {
	buildCmd := exec.Command("go", "build", "-o", "spindle_test", ".")
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v", err)
	}
	defer os.Remove("spindle_test")

	tmpDir := t.TempDir()
	cmd := exec.Command("./spindle_test", "history", "--data-dir", tmpDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("history command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "No play history") {
		t.Errorf("unexpected output for empty history: %s", output)
	}
}
