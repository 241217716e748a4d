package docopt

import (
	"regexp"
	"strings"
)

var (
	parenGroupRe      = regexp.MustCompile(`\(([^()]*)\)(\.\.\.)?`)
	bracketGroupRe    = regexp.MustCompile(`\[([^\[\]]*)\]`)
	repeatableTokenRe = regexp.MustCompile(`(\S+)\s*\.\.\.`)
)

// ExpandUsages converts each raw usage into its set of fully expanded
// literal usages by repeatedly applying the smallest matching
// expansion rule (alternation split, optional-bracket split,
// repetition replication, top-level alternation split) until none
// apply. The result contains no parentheses, brackets, or `|`.
func ExpandUsages(usages []string, argsLen, optsLen int) []string {
	seen := map[string]bool{}
	var result []string
	queue := append([]string{}, usages...)

	for len(queue) > 0 {
		usage := queue[0]
		queue = queue[1:]
		if seen[usage] {
			continue
		}

		if loc := parenGroupRe.FindStringSubmatchIndex(usage); loc != nil {
			full := usage[loc[0]:loc[1]]
			inner := usage[loc[2]:loc[3]]
			hasEllipsis := loc[4] != -1
			if hasEllipsis {
				queue = append(queue, repeatUntilFill(usage, full, inner, argsLen, optsLen))
				continue
			}
			if strings.Contains(inner, "|") {
				for _, alt := range strings.Split(inner, "|") {
					queue = append(queue, replaceOnce(usage, full, strings.TrimSpace(alt)))
				}
				continue
			}
			// a bare grouped sequence with no alternation or
			// repetition: unwrap it in place.
			queue = append(queue, replaceOnce(usage, full, inner))
			continue
		}

		if loc := bracketGroupRe.FindStringSubmatchIndex(usage); loc != nil {
			full := usage[loc[0]:loc[1]]
			inner := usage[loc[2]:loc[3]]
			queue = append(queue, normalizeSpaces(replaceOnce(usage, full, inner)))
			queue = append(queue, normalizeSpaces(replaceOnce(usage, full, "")))
			continue
		}

		if loc := repeatableTokenRe.FindStringSubmatchIndex(usage); loc != nil {
			full := usage[loc[0]:loc[1]]
			pattern := usage[loc[2]:loc[3]]
			queue = append(queue, repeatUntilFill(usage, full, pattern, argsLen, optsLen))
			continue
		}

		if idx := topLevelAltIndex(usage); idx != -1 {
			left, right := splitAdjacentWords(usage, idx)
			queue = append(queue, left, right)
			continue
		}

		seen[usage] = true
		result = append(result, normalizeSpaces(usage))
	}
	return result
}

func replaceOnce(usage, old, new string) string {
	return strings.Replace(usage, old, new, 1)
}

func normalizeSpaces(usage string) string {
	return strings.Join(strings.Fields(usage), " ")
}

func topLevelAltIndex(usage string) int {
	return strings.Index(usage, "|")
}

// splitAdjacentWords handles a bare top-level `A | B` by splitting on
// the immediately adjacent words around the `|`, leaving the rest of
// the usage untouched.
func splitAdjacentWords(usage string, pipeIdx int) (left, right string) {
	before := usage[:pipeIdx]
	after := usage[pipeIdx+1:]

	beforeTrimmed := strings.TrimRight(before, " ")
	afterTrimmed := strings.TrimLeft(after, " ")

	leftWordStart := strings.LastIndexByte(beforeTrimmed, ' ') + 1
	leftWord := beforeTrimmed[leftWordStart:]

	rightWordEnd := strings.IndexByte(afterTrimmed, ' ')
	var rightWord, afterRest string
	if rightWordEnd == -1 {
		rightWord = afterTrimmed
		afterRest = ""
	} else {
		rightWord = afterTrimmed[:rightWordEnd]
		afterRest = afterTrimmed[rightWordEnd:]
	}

	prefix := beforeTrimmed[:leftWordStart]
	left = normalizeSpaces(prefix + leftWord + afterRest)
	right = normalizeSpaces(prefix + rightWord + afterRest)
	return left, right
}

// repeatUntilFill replaces `full` (the matched "X ..." or "(X)..."
// span) in usage with enough copies of pattern's tokens, each marked
// as an accumulator with a trailing `+`, to consume the remaining
// argv slots. Repetition count follows spec's tie-break formula:
// floor((argsLen - fixedPositionals - optsLen) / patternSize), never
// negative.
func repeatUntilFill(usage, full, pattern string, argsLen, optsLen int) string {
	withoutMatch := strings.Replace(usage, full, "", 1)
	fixedPositionals := countPositionalTokens(withoutMatch)
	patternTokens := strings.Fields(pattern)
	patternSize := len(patternTokens)
	if patternSize == 0 {
		return normalizeSpaces(withoutMatch)
	}

	repetitions := (argsLen - fixedPositionals - optsLen) / patternSize
	if repetitions < 0 {
		repetitions = 0
	}

	if repetitions == 0 {
		return normalizeSpaces(withoutMatch)
	}

	var marked []string
	for _, t := range patternTokens {
		if !strings.HasSuffix(t, "+") {
			t += "+"
		}
		marked = append(marked, t)
	}
	unit := strings.Join(marked, " ")

	var reps []string
	for i := 0; i < repetitions; i++ {
		reps = append(reps, unit)
	}
	replacement := strings.Join(reps, " ")
	return normalizeSpaces(strings.Replace(usage, full, replacement, 1))
}

func countPositionalTokens(usage string) int {
	fields := strings.Fields(usage)
	n := 0
	for i, w := range fields {
		if i == 0 {
			continue // script name token
		}
		if strings.HasPrefix(w, "-") {
			continue
		}
		n++
	}
	return n
}
