// Package task implements the two-stage type-state task builder: a
// RawTask (unparsed YAML mapping) validates its attribute set into a
// ValidatedTask, which in turn builds an executable Task once global
// defaults are applied. The Go type system enforces the stage order:
// Build is only reachable through a ValidatedTask, which is only
// reachable through RawTask.ValidateAttrs.
package task

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/rerr"
)

// reservedAttrs is the closed set of task attribute keys. Any other
// key in a raw task mapping must be exactly one registered module name.
var reservedAttrs = map[string]bool{
	"name":          true,
	"when":          true,
	"loop":          true,
	"register":      true,
	"changed_when":  true,
	"ignore_errors": true,
	"become":        true,
	"become_user":   true,
	"check_mode":    true,
}

// RawTask holds one task entry exactly as decoded from YAML, before any
// attribute validation.
type RawTask struct {
	raw map[string]any
}

// ParseRawTask wraps a decoded YAML mapping as a RawTask.
func ParseRawTask(raw map[string]any) *RawTask {
	return &RawTask{raw: raw}
}

// ValidatedTask holds a RawTask whose attribute set has been checked:
// exactly one module key, every other key a recognized attribute.
// Fields that carry a global default (become, become_user, check_mode)
// are nil when absent from the raw mapping, so Build can tell "unset"
// from "explicitly false".
type ValidatedTask struct {
	module string
	params any

	name         string
	when         any
	loop         any
	register     string
	changedWhen  any
	ignoreErrors bool

	become     *bool
	becomeUser *string
	checkMode  *bool
}

// ValidateAttrs checks the raw mapping against the closed attribute
// set and the registered module names in knownModules. It fails with
// InvalidData naming the offending key if zero or more than one module
// key is present, or if any key is neither a recognized attribute nor
// a known module.
func (r *RawTask) ValidateAttrs(knownModules map[string]bool) (*ValidatedTask, error) {
	var moduleKeys []string
	for key := range r.raw {
		if reservedAttrs[key] {
			continue
		}
		if knownModules[key] {
			moduleKeys = append(moduleKeys, key)
			continue
		}
		return nil, rerr.InvalidDataf("task has unrecognized key %q: not a task attribute or registered module", key)
	}

	switch len(moduleKeys) {
	case 0:
		return nil, rerr.InvalidDataf("task has no module key: exactly one of the registered module names is required")
	case 1:
		// fall through
	default:
		sort.Strings(moduleKeys)
		return nil, rerr.InvalidDataf("task has multiple module keys: %s", strings.Join(moduleKeys, ", "))
	}

	v := &ValidatedTask{
		module: moduleKeys[0],
		params: r.raw[moduleKeys[0]],
	}

	name, err := stringAttr(r.raw, "name")
	if err != nil {
		return nil, err
	}
	v.name = name

	v.when = r.raw["when"]
	v.loop = r.raw["loop"]
	v.changedWhen = r.raw["changed_when"]

	register, err := stringAttr(r.raw, "register")
	if err != nil {
		return nil, err
	}
	v.register = register

	if val, ok := r.raw["ignore_errors"]; ok {
		b, ok := val.(bool)
		if !ok {
			return nil, rerr.InvalidDataf("task attribute %q must be a boolean", "ignore_errors")
		}
		v.ignoreErrors = b
	}

	if val, ok := r.raw["become"]; ok {
		b, ok := val.(bool)
		if !ok {
			return nil, rerr.InvalidDataf("task attribute %q must be a boolean", "become")
		}
		v.become = &b
	}

	if val, ok := r.raw["become_user"]; ok {
		s, ok := val.(string)
		if !ok {
			return nil, rerr.InvalidDataf("task attribute %q must be a string", "become_user")
		}
		v.becomeUser = &s
	}

	if val, ok := r.raw["check_mode"]; ok {
		b, ok := val.(bool)
		if !ok {
			return nil, rerr.InvalidDataf("task attribute %q must be a boolean", "check_mode")
		}
		v.checkMode = &b
	}

	return v, nil
}

func stringAttr(raw map[string]any, key string) (string, error) {
	val, ok := raw[key]
	if !ok {
		return "", nil
	}
	s, ok := val.(string)
	if !ok {
		return "", rerr.InvalidDataf("task attribute %q must be a string", key)
	}
	return s, nil
}

// Task is one fully built, executable unit. name, when, loop, and
// changed_when remain unrendered template expressions: the executor
// evaluates them lazily, once per iteration, never at construction.
type Task struct {
	Module string
	Params any

	Name         string
	When         []string
	Loop         any
	Register     string
	ChangedWhen  []string
	IgnoreErrors bool

	Become     bool
	BecomeUser string
	CheckMode  bool
}

// ModuleName returns the single module key this task validated
// against, for callers that need to look the module up (e.g. to read
// its ForceStringOnParams capability) before calling Build.
func (v *ValidatedTask) ModuleName() string {
	return v.module
}

// Build applies global defaults for become/become_user/check_mode
// wherever the raw task left them unset, and coerces a scalar
// when/changed_when expression into a single-element slice so the
// executor always evaluates a list of expressions ("all must be true"
// semantics collapse to one check in the common case). When
// forceString is true (the dispatch module's ForceStringOnParams()),
// every scalar leaf of the task's params is stringified before the
// executor ever renders it, since that module's placeholders are
// always docopt-sourced strings.
func (v *ValidatedTask) Build(defaults config.DefaultsConfig, forceString bool) (*Task, error) {
	when, err := coerceExprList(v.when, "when")
	if err != nil {
		return nil, err
	}
	changedWhen, err := coerceExprList(v.changedWhen, "changed_when")
	if err != nil {
		return nil, err
	}

	params := v.params
	if forceString {
		params = stringifyLeaves(params)
	}

	t := &Task{
		Module:       v.module,
		Params:       params,
		Name:         v.name,
		When:         when,
		Loop:         v.loop,
		Register:     v.register,
		ChangedWhen:  changedWhen,
		IgnoreErrors: v.ignoreErrors,
		Become:       defaults.Become,
		BecomeUser:   defaults.BecomeUser,
		CheckMode:    defaults.CheckMode,
	}

	if v.become != nil {
		t.Become = *v.become
	}
	if v.becomeUser != nil {
		t.BecomeUser = *v.becomeUser
	}
	if v.checkMode != nil {
		t.CheckMode = *v.checkMode
	}

	return t, nil
}

// stringifyLeaves recursively converts every scalar leaf of val (bool,
// int, float64, nil) to its string form, leaving strings, maps, and
// slices to recurse structurally. Used when a module's
// ForceStringOnParams reports true.
func stringifyLeaves(val any) any {
	switch t := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = stringifyLeaves(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = stringifyLeaves(elem)
		}
		return out
	case string:
		return t
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// coerceExprList normalizes a when/changed_when attribute: absent
// becomes an empty slice, a scalar string becomes a one-element slice,
// and an existing list of strings passes through verified.
func coerceExprList(val any, attr string) ([]string, error) {
	switch t := val.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, rerr.InvalidDataf("task attribute %q: element %d is not a string", attr, i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, rerr.InvalidDataf("task attribute %q must be a string or list of strings, got %T", attr, val)
	}
}

// String returns a human-readable identity for logging: Name followed
// by the module name in parentheses, or the module name alone when
// Name is empty. Name is shown as written, unrendered.
func (t *Task) String() string {
	if t.Name != "" {
		return fmt.Sprintf("%s (%s)", t.Name, t.Module)
	}
	return t.Module
}
