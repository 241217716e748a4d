// Package template implements task parameter rendering: {{ expr }}
// substitution with dotted path resolution, JSON rendering, truthiness
// evaluation, and the omit_param sentinel.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/rash-sh/rash-go/internal/vars"
)

// ErrOmitParam is the sentinel the renderer returns when an expression
// resolves to the `omit` keyword; the executor drops the owning
// key/value pair from the rendered params map.
var ErrOmitParam = errors.New("omit_param")

// Renderer evaluates template expressions against a variable context.
type Renderer interface {
	Render(expr string, v *vars.Context) (string, error)
	RenderAsJSON(expr string, v *vars.Context) (string, error)
	IsTruthy(expr string, v *vars.Context) (bool, error)
}

// Jinjaish is the concrete renderer: a small {{ expr | filter(args) }}
// engine over dotted variable paths.
type Jinjaish struct{}

// New returns the default renderer.
func New() *Jinjaish { return &Jinjaish{} }

var exprPattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// Render evaluates every {{ ... }} occurrence in expr and stringifies
// the result, concatenating with any surrounding literal text.
func (j *Jinjaish) Render(expr string, v *vars.Context) (string, error) {
	var outErr error
	result := exprPattern.ReplaceAllStringFunc(expr, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-2])
		val, err := j.eval(inner, v)
		if err != nil {
			if errors.Is(err, ErrOmitParam) {
				outErr = err
				return ""
			}
			outErr = err
			return ""
		}
		return stringify(val)
	})
	if outErr != nil {
		return "", outErr
	}
	return result, nil
}

// RenderAsJSON evaluates expr and renders the result as a JSON
// literal. Used for `loop` sources that must become arrays.
func (j *Jinjaish) RenderAsJSON(expr string, v *vars.Context) (string, error) {
	trimmed := strings.TrimSpace(expr)
	if m := exprPattern.FindStringSubmatch(trimmed); m != nil && m[0] == trimmed {
		val, err := j.eval(m[1], v)
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("render_as_json: %w", err)
		}
		return string(b), nil
	}
	// Mixed content: render to string first; if that string happens to
	// already be valid JSON it is used verbatim by the caller.
	return j.Render(expr, v)
}

// IsTruthy evaluates expr and interprets the result as a boolean per
// spec §4.4: the literal false, the string "false", and the empty
// string are false; everything else is true.
func (j *Jinjaish) IsTruthy(expr string, v *vars.Context) (bool, error) {
	trimmed := strings.TrimSpace(expr)
	if m := exprPattern.FindStringSubmatch(trimmed); m != nil && m[0] == trimmed {
		val, err := j.eval(m[1], v)
		if err != nil {
			return false, err
		}
		return truthy(val), nil
	}
	rendered, err := j.Render(expr, v)
	if err != nil {
		return false, err
	}
	return truthy(rendered), nil
}

func truthy(val any) bool {
	switch t := val.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	case nil:
		return false
	default:
		return true
	}
}

// eval evaluates a single expression body (without the surrounding {{ }}),
// applying any `| filter(args)` pipeline.
func (j *Jinjaish) eval(body string, v *vars.Context) (any, error) {
	parts := splitPipeline(body)
	path := strings.TrimSpace(parts[0])

	var val any
	var err error
	if path == "" {
		val = ""
	} else if path == "omit" {
		return nil, ErrOmitParam
	} else {
		val, err = resolvePath(path, v)
		if err != nil {
			val = nil // allow filters like `default` to recover
		}
	}

	for _, f := range parts[1:] {
		val, err = applyFilter(strings.TrimSpace(f), val, err)
		if err != nil {
			return nil, err
		}
	}

	if err != nil {
		return nil, err
	}
	return val, nil
}

func splitPipeline(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, body[start:])
	return parts
}

func applyFilter(filter string, val any, priorErr error) (any, error) {
	name, arg, hasArg := parseFilter(filter)
	switch name {
	case "default":
		if priorErr != nil || val == nil || val == "" {
			if !hasArg {
				return nil, fmt.Errorf("default filter requires an argument")
			}
			if arg == "omit" {
				return nil, ErrOmitParam
			}
			return stripQuotes(arg), nil
		}
		return val, nil
	case "length":
		if priorErr != nil {
			return nil, priorErr
		}
		return lengthOf(val), nil
	case "upper":
		if priorErr != nil {
			return nil, priorErr
		}
		return strings.ToUpper(stringify(val)), nil
	case "lower":
		if priorErr != nil {
			return nil, priorErr
		}
		return strings.ToLower(stringify(val)), nil
	case "bool":
		if priorErr != nil {
			return nil, priorErr
		}
		return truthy(val), nil
	case "int":
		if priorErr != nil {
			return nil, priorErr
		}
		n, err := strconv.Atoi(strings.TrimSpace(stringify(val)))
		if err != nil {
			return nil, fmt.Errorf("int filter: %w", err)
		}
		return n, nil
	default:
		if priorErr != nil {
			return nil, priorErr
		}
		return nil, fmt.Errorf("unknown filter: %s", name)
	}
}

func parseFilter(filter string) (name, arg string, hasArg bool) {
	open := strings.Index(filter, "(")
	if open == -1 {
		return strings.TrimSpace(filter), "", false
	}
	close := strings.LastIndex(filter, ")")
	if close == -1 || close < open {
		return strings.TrimSpace(filter), "", false
	}
	return strings.TrimSpace(filter[:open]), strings.TrimSpace(filter[open+1 : close]), true
}

func stripQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func lengthOf(val any) int {
	switch t := val.(type) {
	case string:
		return len(t)
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	default:
		rv := reflect.ValueOf(val)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return rv.Len()
		default:
			return 0
		}
	}
}

// resolvePath resolves a dotted path (e.g. "item.name" or "r.extra.count")
// against the variable context.
func resolvePath(path string, v *vars.Context) (any, error) {
	parts := strings.Split(path, ".")
	root := parts[0]
	val, ok := v.Get(root)
	if !ok {
		return nil, fmt.Errorf("undefined variable: %s", root)
	}
	for _, p := range parts[1:] {
		switch m := val.(type) {
		case map[string]any:
			next, ok := m[p]
			if !ok {
				return nil, fmt.Errorf("field %q not found", p)
			}
			val = next
		default:
			return nil, fmt.Errorf("cannot access field %q on non-object value", p)
		}
	}
	return val, nil
}

// stringify renders a value as the text the task-render step should
// substitute, JSON-encoding non-scalar leaves so callers never see
// Go's default `map[...]` formatting.
func stringify(val any) string {
	switch t := val.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
