package deps

import (
	"os"
	"path/filepath"
	"testing"

	"av1watch/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	names := func(reqs []Requirement) map[string]Requirement {
		out := make(map[string]Requirement, len(reqs))
		for _, r := range reqs {
			out[r.Name] = r
		}
		return out
	}

	got := names(Requirements(&cfg))
	for _, want := range []string{"av1an", "MediaInfo", "FFmpeg", "mkvmerge"} {
		if _, ok := got[want]; !ok {
			t.Fatalf("expected %s in default requirements, got %v", want, got)
		}
	}
	if got["FFmpeg"].Optional {
		t.Fatal("ffmpeg is required while crop detection is enabled")
	}

	cfg.Probe.Backend = config.ProbeBackendFFprobe
	cfg.Crop.Enabled = false
	cfg.Encoder.Concat = "ffmpeg"
	got = names(Requirements(&cfg))
	if _, ok := got["FFprobe"]; !ok {
		t.Fatal("expected ffprobe requirement for ffprobe backend")
	}
	if _, ok := got["MediaInfo"]; ok {
		t.Fatal("mediainfo should not be required for ffprobe backend")
	}
	if _, ok := got["mkvmerge"]; ok {
		t.Fatal("mkvmerge should not be required for ffmpeg concat")
	}
	if !got["FFmpeg"].Optional {
		t.Fatal("ffmpeg should be optional when crop detection is disabled")
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "ok", Available: true},
		{Name: "optional", Optional: true},
		{Name: "required"},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "required" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}
