package crop

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestFFmpegRunnerArgs(t *testing.T) {
	args := FFmpegRunner{}.Args("/in/movie.mkv", 12.5, 3000)
	got := strings.Join(args, " ")
	want := "-hide_banner -nostats -ss 12.500 -i /in/movie.mkv -frames:v 3000 -vf cropdetect -f null -"
	if got != want {
		t.Fatalf("args mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFFmpegRunnerSample(t *testing.T) {
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
	t.Cleanup(func() { commandContext = exec.CommandContext })

	runner := FFmpegRunner{Binary: "ffmpeg"}
	output, err := runner.Sample(context.Background(), "/in/movie.mkv", 10, 3000)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if rect, ok := LastCrop(output); !ok || rect.String() != "1920:800:0:140" {
		t.Fatalf("unexpected output %q", output)
	}

	_, err = runner.Sample(context.Background(), "/in/corrupt.mkv", 10, 3000)
	if err == nil || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "corrupt") {
		fmt.Fprintln(os.Stderr, "/in/corrupt.mkv: Invalid data found when processing input")
		os.Exit(1)
	}
	fmt.Fprint(os.Stderr, cropdetectLine("1920:1072:0:4"))
	fmt.Fprint(os.Stderr, cropdetectLine("1920:800:0:140"))
	os.Exit(0)
}
