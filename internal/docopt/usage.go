package docopt

import (
	"regexp"
	"strings"
)

var usageOneLineRe = regexp.MustCompile(`(?i)usage:\s*(.+)`)

// ExtractUsage locates the `Usage:` section of the help text
// case-insensitively. If `Usage:` stands alone on its own line, every
// following indented, non-blank line up to the next unindented line
// is a raw usage (common indentation stripped). Otherwise the text
// following `Usage:` on the same line is the sole raw usage.
func ExtractUsage(helpText string) []string {
	if usages, ok := extractMultilineUsage(helpText); ok {
		return usages
	}
	return extractOneLineUsage(helpText)
}

func extractMultilineUsage(helpText string) ([]string, bool) {
	lines := strings.Split(helpText, "\n")
	idx := -1
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), "usage:") {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}

	var out []string
	for _, line := range lines[idx+1:] {
		if strings.TrimSpace(line) == "" {
			break
		}
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == line {
			break
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func extractOneLineUsage(helpText string) []string {
	for _, line := range strings.Split(helpText, "\n") {
		if m := usageOneLineRe.FindStringSubmatch(line); m != nil {
			return []string{strings.TrimSpace(m[1])}
		}
	}
	return nil
}
