package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type level string

const (
	levelInfo  level = "INFO"
	levelOK    level = "OK"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

var levelColors = map[level]string{
	levelInfo:  "\x1b[34m",
	levelOK:    "\x1b[32m",
	levelWarn:  "\x1b[33m",
	levelError: "\x1b[31m",
}

const (
	colorReset = "\x1b[0m"
	labelWidth = 20
)

// statusReport accumulates sectioned, optionally colored status lines.
type statusReport struct {
	color bool
	lines []string
}

func (r *statusReport) paint(c, text string) string {
	if !r.color || c == "" {
		return text
	}
	return c + text + colorReset
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	heading := "== " + strings.TrimSpace(title) + " =="
	r.lines = append(r.lines,
		r.paint(levelColors[levelInfo], heading),
		r.paint(levelColors[levelInfo], strings.Repeat("-", len(heading))),
	)
}

func (r *statusReport) add(label string, lvl level, message string) {
	tag := "[" + string(lvl) + "]"
	if message != "" {
		tag += " " + message
	}
	r.lines = append(r.lines, r.paint(levelColors[lvl], fmt.Sprintf("  %-*s %s", labelWidth, label+":", tag)))
}

func (r *statusReport) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintln(w, strings.Join(r.lines, "\n"))
	return int64(n), err
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
