// Package format turns raw git outcomes into the one-line summaries each
// subcommand prints. All formatters are pure functions over runner.Outcome.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/githerd/githerd/internal/runner"
)

// firstLine returns the first non-empty line, trimmed.
func firstLine(b []byte) string {
	for line := range strings.Lines(string(b)) {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// failure summarizes a non-zero exit: the exit code plus whatever git said,
// stderr first since that is where git complains.
func failure(o runner.Outcome) string {
	msg := firstLine(o.Stderr)
	if msg == "" {
		msg = firstLine(o.Stdout)
	}
	if msg == "" {
		return fmt.Sprintf("exit %d", o.ExitCode)
	}
	return fmt.Sprintf("exit %d: %s", o.ExitCode, msg)
}

// Pull summarizes git pull: its verdict is the first stdout line, e.g.
// "Already up to date." or "Updating 1a2b3c..4d5e6f".
func Pull(o runner.Outcome) string {
	if o.ExitCode != 0 {
		return failure(o)
	}
	if s := firstLine(o.Stdout); s != "" {
		return s
	}
	if s := firstLine(o.Stderr); s != "" {
		return s
	}
	return "done"
}

// Fetch summarizes git fetch, which is silent when nothing changed and
// reports new refs on stderr.
func Fetch(o runner.Outcome) string {
	if o.ExitCode != 0 {
		return failure(o)
	}
	if s := firstLine(o.Stderr); s != "" {
		return s
	}
	return "up to date"
}

// Status summarizes git status --porcelain output: clean, or the number of
// paths with pending changes.
func Status(o runner.Outcome) string {
	if o.ExitCode != 0 {
		return failure(o)
	}
	n := 0
	for _, line := range bytes.Split(o.Stdout, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	if n == 0 {
		return "clean"
	}
	return fmt.Sprintf("%d change(s)", n)
}

// Passthrough reports the first line any arbitrary git subcommand produced.
func Passthrough(o runner.Outcome) string {
	if o.ExitCode != 0 {
		return failure(o)
	}
	if s := firstLine(o.Stdout); s != "" {
		return s
	}
	if s := firstLine(o.Stderr); s != "" {
		return s
	}
	return "done"
}
