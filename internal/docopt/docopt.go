package docopt

import (
	"regexp"
	"strings"

	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// Parse resolves a script's CLI: it extracts the help text and usage
// patterns from the script's comment header, expands every usage
// into its literal slot form, matches argv against them, and returns
// the resulting variable context. If argv resolves to a `help`
// request, it returns a GracefulExit error carrying the help text.
func Parse(script string, argv []string) (*vars.Context, error) {
	helpText := ExtractHelp(script)

	rawUsages := ExtractUsage(helpText)
	if len(rawUsages) == 0 {
		return vars.New(), nil
	}

	opts := ParseOptions(helpText)

	expandedArgs := opts.ExpandArgs(argv)
	optsLen := 0
	for _, a := range expandedArgs {
		if strings.HasPrefix(a, "-") {
			optsLen++
		}
	}

	normalized := make([]string, len(rawUsages))
	for i, u := range rawUsages {
		normalized[i] = normalizeOptionOccurrences(opts.ExpandOptionsPlaceholder(u), opts)
	}

	expandedUsages := ExpandUsages(normalized, len(expandedArgs), optsLen)
	if len(expandedUsages) == 0 {
		return nil, rerr.InvalidDataf("%s", helpText)
	}

	counters := literalMultiplicity(expandedUsages)
	alwaysArray := globalAccumulatorNames(expandedUsages)

	result := vars.New()
	for k, v := range opts.InitialVars() {
		result.Insert(k, v)
	}
	for name, isCounter := range counters {
		if isCounter {
			result.Insert(name, int64(0))
		} else {
			result.Insert(name, false)
		}
	}
	// every literal, counter or not, needs a seed default so names
	// from unmatched alternatives are always present.
	for _, usage := range expandedUsages {
		for _, tok := range slotTokens(usage) {
			kind, name, _ := classifySlot(tok)
			if kind == slotLiteral {
				if _, ok := result.Get(name); !ok {
					result.Insert(name, false)
				}
			}
		}
	}

	var matched *matchResult
	for _, usage := range expandedUsages {
		if m, ok := tryMatch(usage, expandedArgs, opts, alwaysArray); ok {
			matched = &m
			break
		}
	}
	if matched == nil {
		return nil, rerr.InvalidDataf("%s", helpText)
	}

	for name, n := range matched.literals {
		if counters[name] {
			result.Insert(name, int64(n))
		} else {
			result.Insert(name, n > 0)
		}
	}
	for k, v := range matched.values {
		if arr, ok := v.([]string); ok {
			anyArr := make([]any, len(arr))
			for i, s := range arr {
				anyArr[i] = s
			}
			result.Insert(k, anyArr)
		} else {
			result.Insert(k, v)
		}
	}

	if help, ok := result.Get("help"); ok {
		if b, ok := help.(bool); ok && b {
			return nil, rerr.NewGracefulExit(helpText)
		}
	}

	return result, nil
}

var inlineValueRe = regexp.MustCompile(`(-{1,2}[A-Za-z][\w-]*)=([^\s\]\)|]+)`)

// normalizeOptionOccurrences splits any remaining `flag=value` usage
// text (e.g. `--speed=<kn>` written directly in a Usage: line rather
// than via `[options]`) into two space-separated slots: the flag and
// a `%flag` value marker, so it matches the two argv tokens argv
// normalization produces for the same occurrence.
func normalizeOptionOccurrences(usage string, opts OptionList) string {
	return inlineValueRe.ReplaceAllStringFunc(usage, func(m string) string {
		sub := inlineValueRe.FindStringSubmatch(m)
		flag := sub[1]
		if opts.find(flag) == nil {
			return m
		}
		return flag + " %" + flag
	})
}
