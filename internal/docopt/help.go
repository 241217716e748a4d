// Package docopt resolves a script's command-line interface from its
// own shebang-comment header: extracting the help text, the usage
// patterns, and the options table, then matching argv against the
// expanded usage set to produce an initial variable context.
package docopt

import (
	"regexp"
	"strings"
)

var commentLineRe = regexp.MustCompile(`#(.*)`)

// ExtractHelp strips the shebang line and collects the following run
// of `#` comment lines, dropping one leading space per line, then
// appends the fixed footer describing how script options must be
// separated from rash's own flags.
func ExtractHelp(script string) string {
	lines := strings.Split(script, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	var collected []string
	for _, line := range lines {
		m := commentLineRe.FindStringSubmatch(line)
		if m == nil {
			break
		}
		content := m[1]
		if strings.HasPrefix(content, "!") {
			continue
		}
		collected = append(collected, strings.TrimPrefix(content, " "))
	}

	collected = append(collected,
		"",
		"Options must be separated from rash's own flags with `--`:",
		"  rash <script> [rash-options] -- [script-options]",
	)
	return strings.Join(collected, "\n")
}
