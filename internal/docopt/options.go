package docopt

import (
	"regexp"
	"strings"
)

// Option is one entry of the help text's Options section.
type Option struct {
	Short       string
	Long        string
	Placeholder string
	Default     string
}

// Name returns the canonical key this option is stored under in the
// resulting variable context: the long flag if present, else the
// short flag.
func (o Option) Name() string {
	if o.Long != "" {
		return o.Long
	}
	return o.Short
}

// token renders the option (and, if it carries a placeholder, a
// trailing `%flag` value marker) as a usage-pattern fragment, for
// substitution into `[options]`. The marker ties the value slot back
// to its owning flag for classifySlot.
func (o Option) token() string {
	flag := o.Short
	if flag == "" {
		flag = o.Long
	}
	if o.Placeholder != "" {
		return flag + " %" + flag
	}
	return flag
}

func (o Option) matchesFlag(flag string) bool {
	return (o.Short != "" && o.Short == flag) || (o.Long != "" && o.Long == flag)
}

// OptionList is the set of options declared in a help text.
type OptionList []Option

func (ol OptionList) find(flag string) *Option {
	for i := range ol {
		if ol[i].matchesFlag(flag) {
			return &ol[i]
		}
	}
	return nil
}

var defaultRe = regexp.MustCompile(`(?i)\[default:\s*([^\]]*)\]`)
var upperTokenRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

func isPlaceholderToken(s string) bool {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return true
	}
	return upperTokenRe.MatchString(s)
}

// ParseOptions scans the help text for option declaration lines: a
// leading `-x`, `--xxx`, or both (comma- or space-separated),
// optionally followed by a value placeholder, followed by a
// description that may carry a `[default: VALUE]` tag.
func ParseOptions(helpText string) OptionList {
	var opts OptionList
	for _, line := range strings.Split(helpText, "\n") {
		if opt, ok := parseOptionLine(line); ok {
			opts = append(opts, opt)
		}
	}
	return opts
}

func parseOptionLine(line string) (Option, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "-") {
		return Option{}, false
	}

	fields := strings.Fields(trimmed)
	var opt Option
	i := 0
loop:
	for i < len(fields) {
		f := strings.TrimSuffix(fields[i], ",")
		switch {
		case strings.HasPrefix(f, "--"):
			name, placeholder := splitLongFlag(f)
			opt.Long = name
			if placeholder != "" {
				opt.Placeholder = placeholder
			}
			i++
		case strings.HasPrefix(f, "-") && len(f) >= 2:
			opt.Short = f
			i++
		case opt.Placeholder == "" && isPlaceholderToken(f):
			opt.Placeholder = f
			i++
		default:
			break loop
		}
	}

	if opt.Short == "" && opt.Long == "" {
		return Option{}, false
	}

	desc := strings.Join(fields[i:], " ")
	if m := defaultRe.FindStringSubmatch(desc); m != nil {
		opt.Default = strings.TrimSuffix(m[1], ".")
	}
	return opt, true
}

func splitLongFlag(f string) (name, placeholder string) {
	if idx := strings.Index(f, "="); idx >= 0 {
		return f[:idx], f[idx+1:]
	}
	return f, ""
}

// ExpandOptionsPlaceholder replaces a literal `[options]` token in a
// raw usage line with one optional bracket group per declared option,
// so the generic `[ X ]` expansion rule handles each independently.
func (ol OptionList) ExpandOptionsPlaceholder(usage string) string {
	if !strings.Contains(usage, "[options]") {
		return usage
	}
	parts := make([]string, 0, len(ol))
	for _, o := range ol {
		parts = append(parts, "["+o.token()+"]")
	}
	return strings.Replace(usage, "[options]", strings.Join(parts, " "), 1)
}

// ExpandArgs normalizes argv: splits combined short flags (`-qn 10`
// becomes `-q -n 10`), and splits `-o=VAL`/`-oVAL` into separate
// tokens when the option's definition carries a placeholder.
func (ol OptionList) ExpandArgs(argv []string) []string {
	var out []string
	i := 0
	for i < len(argv) {
		a := argv[i]
		if strings.HasPrefix(a, "--") || !strings.HasPrefix(a, "-") || a == "-" {
			out = append(out, a)
			i++
			continue
		}

		body := a[1:]
		if idx := strings.Index(body, "="); idx >= 0 {
			short := "-" + body[:idx]
			out = append(out, short, body[idx+1:])
			i++
			continue
		}

		j := 0
		for j < len(body) {
			short := "-" + string(body[j])
			opt := ol.find(short)
			if opt != nil && opt.Placeholder != "" {
				rest := body[j+1:]
				out = append(out, short)
				if rest != "" {
					out = append(out, rest)
				} else if i+1 < len(argv) {
					i++
					out = append(out, argv[i])
				}
				j = len(body)
			} else {
				out = append(out, short)
				j++
			}
		}
		i++
	}
	return out
}

// InitialVars returns the default value every declared option starts
// with before argv is matched: its `[default: ...]` value if present
// for placeholder options, else false for flag options.
func (ol OptionList) InitialVars() map[string]any {
	out := map[string]any{}
	for _, o := range ol {
		if o.Placeholder != "" {
			if o.Default != "" {
				out[o.Name()] = o.Default
			} else {
				out[o.Name()] = nil
			}
		} else {
			out[o.Name()] = false
		}
	}
	return out
}
