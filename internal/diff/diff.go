// Package diff implements the diff sink contract: an additive
// presentation layer for before/after text blobs produced by modules
// during check-mode or verbose runs. The sink never decides whether a
// module has a diff to report; it only renders one.
package diff

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Sink receives before/after text pairs from modules. Both arguments
// are opaque text blobs; the sink's only job is presentation.
type Sink interface {
	Diff(before, after string)
}

// NopSink discards every diff. It is the default for non-diff runs.
type NopSink struct{}

// Diff implements Sink by doing nothing.
func (NopSink) Diff(before, after string) {}

// UnifiedSink writes a unified-diff-style block to W, line by line,
// colorized when W is a terminal.
type UnifiedSink struct {
	W     io.Writer
	Color bool
}

// NewUnifiedSink returns a UnifiedSink writing to w, auto-detecting
// color support via isatty unless the config disables it.
func NewUnifiedSink(w io.Writer, colorEnabled bool) *UnifiedSink {
	isTTY := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		isTTY = isatty.IsTerminal(f.Fd())
	}
	return &UnifiedSink{W: w, Color: colorEnabled && isTTY}
}

// Diff renders a minimal unified-style diff of before/after: lines only
// in before are prefixed `-`, lines only in after are prefixed `+`,
// and shared lines are not printed. All removed lines come first, then
// all added lines, each side in its original order. This is a line-set
// diff, not an LCS-based diff: good enough for the short config blobs
// modules emit.
func (s *UnifiedSink) Diff(before, after string) {
	if before == after {
		return
	}

	bw := bufio.NewWriter(s.W)
	defer bw.Flush()

	removed, added := lineDiff(before, after)

	fmt.Fprintln(bw, "--- before")
	fmt.Fprintln(bw, "+++ after")
	for _, line := range removed {
		s.writeLine(bw, "-", line, color.FgRed)
	}
	for _, line := range added {
		s.writeLine(bw, "+", line, color.FgGreen)
	}
}

func (s *UnifiedSink) writeLine(w io.Writer, prefix, line string, attr color.Attribute) {
	text := prefix + line
	if s.Color {
		c := color.New(attr)
		c.Fprintln(w, text)
		return
	}
	fmt.Fprintln(w, text)
}

// lineDiff returns the lines present only in before (removed) and only
// in after (added), each in its original relative order.
func lineDiff(before, after string) (removed, added []string) {
	beforeLines := splitLines(before)
	afterLines := splitLines(after)

	afterSet := make(map[string]int, len(afterLines))
	for _, l := range afterLines {
		afterSet[l]++
	}
	beforeSet := make(map[string]int, len(beforeLines))
	for _, l := range beforeLines {
		beforeSet[l]++
	}

	for _, l := range beforeLines {
		if afterSet[l] > 0 {
			afterSet[l]--
			continue
		}
		removed = append(removed, l)
	}
	for _, l := range afterLines {
		if beforeSet[l] > 0 {
			beforeSet[l]--
			continue
		}
		added = append(added, l)
	}
	return removed, added
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
