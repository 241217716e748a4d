// Package executor runs a parsed task list against a variable context,
// in strict sequential order: no concurrency in the core beyond the
// two points that must block (module execution itself, and the
// privilege fork/IPC round trip for become).
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/diff"
	"github.com/rash-sh/rash-go/internal/logging"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/privilege"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/task"
	"github.com/rash-sh/rash-go/internal/template"
	"github.com/rash-sh/rash-go/internal/vars"
)

// Executor runs tasks in order, dispatching each to its module either
// in-process or across a become fork/IPC boundary.
type Executor struct {
	Registry *module.Registry
	Renderer template.Renderer
	Config   *config.Config
	Logger   *slog.Logger
	Diff     diff.Sink

	// ExePath is the rash binary path used to re-exec a become child.
	// Defaults to os.Executable() when empty.
	ExePath string

	// Trace collects one TraceEntry per task execution, consumed by
	// --verbose logging. Never persisted across runs.
	Trace *module.TraceRing

	// getuid is overridable in tests so "become same user" short
	// circuits deterministically without depending on the test runner's uid.
	getuid func() int
}

// New returns an Executor with the given collaborators. logger and
// sink may be nil; a discard logger and NopSink are substituted.
func New(registry *module.Registry, renderer template.Renderer, cfg *config.Config, logger *slog.Logger, sink diff.Sink) *Executor {
	if logger == nil {
		logger = logging.NewForTest()
	}
	if sink == nil {
		sink = diff.NopSink{}
	}
	return &Executor{
		Registry: registry,
		Renderer: renderer,
		Config:   cfg,
		Logger:   logger,
		Diff:     sink,
		Trace:    module.NewTraceRing(0),
		getuid:   os.Getuid,
	}
}

// Run executes every task in order against v, returning the final
// context. A task's own failure aborts the run unless ignore_errors is
// set; a GracefulExit always aborts regardless.
func (e *Executor) Run(ctx context.Context, tasks []*task.Task, v *vars.Context) (*vars.Context, error) {
	runID := module.NewRunID()
	current := v
	for _, t := range tasks {
		next, err := e.runTask(ctx, runID, t, current)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

func (e *Executor) runTask(ctx context.Context, runID uuid.UUID, t *task.Task, v *vars.Context) (*vars.Context, error) {
	items, looped, err := e.expandLoop(t, v)
	if err != nil {
		return v, err
	}
	if !looped {
		return e.runIteration(ctx, runID, t, v, nil, false)
	}

	current := v
	for _, item := range items {
		next, err := e.runIteration(ctx, runID, t, current, item, true)
		if err != nil {
			return current, err
		}
		current = next
	}
	return current, nil
}

// expandLoop renders t.Loop: a literal array iterates directly; a
// string is rendered and, if the render result parses as a JSON array,
// that array is used; anything else fails NotFound.
func (e *Executor) expandLoop(t *task.Task, v *vars.Context) (items []any, looped bool, err error) {
	if t.Loop == nil {
		return nil, false, nil
	}

	switch val := t.Loop.(type) {
	case []any:
		return val, true, nil
	case string:
		rendered, err := e.Renderer.RenderAsJSON(val, v)
		if err != nil {
			return nil, false, err
		}
		var arr []any
		if err := json.Unmarshal([]byte(rendered), &arr); err != nil {
			return nil, false, rerr.NotFoundf("loop is not iterable")
		}
		return arr, true, nil
	default:
		return nil, false, rerr.NotFoundf("loop is not iterable")
	}
}

func (e *Executor) runIteration(ctx context.Context, runID uuid.UUID, t *task.Task, v *vars.Context, item any, looped bool) (*vars.Context, error) {
	iterVars := v
	if looped {
		iterVars = v.Clone()
		iterVars.Insert("item", item)
	}

	log := logging.WithTask(e.Logger, t.Name, t.Module)
	start := time.Now()

	ok, err := e.evalAll(t.When, iterVars)
	if err != nil {
		return v, err
	}
	if !ok {
		logging.LogOutcome(log, logging.OutcomeSkipping, t.String())
		return v, nil
	}

	renderedParams, err := e.renderParams(t.Params, iterVars)
	if err != nil {
		return v, err
	}

	result, delta, execErr := e.dispatch(ctx, t, renderedParams, iterVars)
	if execErr != nil {
		e.recordTrace(runID, t, false, start)
		if t.IgnoreErrors && !rerr.IsGracefulExit(execErr) {
			logging.LogOutcome(log, logging.OutcomeIgnoring, t.String(), "error", execErr.Error())
			return e.register(t, iterVars, module.Result{}, nil, true), nil
		}
		return v, execErr
	}

	out := e.register(t, iterVars, result, delta, false)

	changed := result.Changed
	if t.ChangedWhen != nil {
		changed, err = e.evalAll(t.ChangedWhen, out)
		if err != nil {
			return v, err
		}
	}
	e.recordTrace(runID, t, changed, start)
	if changed {
		logging.LogOutcome(log, logging.OutcomeChanged, t.String())
	} else {
		logging.LogOutcome(log, logging.OutcomeOK, t.String())
	}

	return out, nil
}

// recordTrace appends a TraceEntry for this task's execution, consumed
// by --verbose logging. A nil ring (zero-value Executor) is a no-op.
func (e *Executor) recordTrace(runID uuid.UUID, t *task.Task, changed bool, start time.Time) {
	if e.Trace == nil {
		return
	}
	e.Trace.Record(module.TraceEntry{
		RunID:      runID,
		TaskName:   t.Name,
		Module:     t.Module,
		Changed:    changed,
		DurationMS: module.Since(start),
	})
}

// evalAll evaluates a when/changed_when-style expression list: empty
// is vacuously true, non-empty is a logical AND of each expression's
// truthiness.
func (e *Executor) evalAll(exprs []string, v *vars.Context) (bool, error) {
	if len(exprs) == 0 {
		return true, nil
	}
	for _, expr := range exprs {
		truthy, err := e.Renderer.IsTruthy(expr, v)
		if err != nil {
			return false, err
		}
		if !truthy {
			return false, nil
		}
	}
	return true, nil
}

// renderParams walks a task's params value, rendering every string
// leaf through the template engine. A dropped key (ErrOmitParam) is
// removed from its owning map entirely.
func (e *Executor) renderParams(val any, v *vars.Context) (any, error) {
	switch typed := val.(type) {
	case string:
		rendered, err := e.Renderer.Render(typed, v)
		if err != nil {
			return nil, err
		}
		return rendered, nil
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, elem := range typed {
			rendered, err := e.renderParams(elem, v)
			if errors.Is(err, template.ErrOmitParam) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(typed))
		for _, elem := range typed {
			rendered, err := e.renderParams(elem, v)
			if errors.Is(err, template.ErrOmitParam) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, rendered)
		}
		return out, nil
	default:
		return val, nil
	}
}

// dispatch sends the rendered task to its module, either in-process or
// across the become fork/IPC boundary.
func (e *Executor) dispatch(ctx context.Context, t *task.Task, params any, v *vars.Context) (module.Result, *module.Delta, error) {
	if t.Module == "command" && isTransferPid(params) {
		argv, env := commandArgv(params)
		err := privilege.TransferExec(t.BecomeUser, argv, env)
		// TransferExec only returns on failure; success replaces the process.
		return module.Result{}, nil, err
	}

	if !t.Become {
		return e.execInProcess(ctx, t, params, v)
	}

	targetUID, _, err := privilege.ResolveUser(t.BecomeUser)
	if err != nil {
		return module.Result{}, nil, err
	}
	if targetUID == e.getuid() {
		return e.execInProcess(ctx, t, params, v)
	}

	return e.execViaFork(ctx, t, params, v)
}

func (e *Executor) execInProcess(ctx context.Context, t *task.Task, params any, v *vars.Context) (module.Result, *module.Delta, error) {
	mod, err := e.Registry.Lookup(t.Module)
	if err != nil {
		return module.Result{}, nil, err
	}
	return mod.Exec(ctx, e.Config, params, v, t.CheckMode)
}

func (e *Executor) execViaFork(ctx context.Context, t *task.Task, params any, v *vars.Context) (module.Result, *module.Delta, error) {
	exePath := e.ExePath
	if exePath == "" {
		var err error
		exePath, err = os.Executable()
		if err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "resolving rash executable for become")
		}
	}

	varsJSON, err := v.ToJSONObject()
	if err != nil {
		return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "serializing vars for become")
	}

	req := privilege.ChildRequest{
		Module:     t.Module,
		Params:     params,
		Vars:       varsJSON,
		CheckMode:  t.CheckMode,
		BecomeUser: t.BecomeUser,
		Config:     e.Config,
	}

	resp, err := privilege.Escalate(ctx, exePath, req)
	if err != nil {
		return module.Result{}, nil, err
	}
	if resp.ErrorKind != "" {
		return module.Result{}, nil, rerr.New(rerr.ErrorKind(resp.ErrorKind), resp.ErrorMsg)
	}

	result := module.Result{Changed: resp.Changed, Output: resp.Output, Extra: resp.Extra}
	var delta *module.Delta
	if resp.Delta != nil {
		delta = &module.Delta{Values: resp.Delta}
	}
	return result, delta, nil
}

// register inserts the task's result record under t.Register: changed,
// failed, and output (if present) plus the module's raw Extra payload
// stored under "extra" — map-shaped Extra is also hoisted field-by-field
// to the top level so both `r.extra.foo` and `r.foo` resolve.
func (e *Executor) register(t *task.Task, v *vars.Context, result module.Result, delta *module.Delta, failed bool) *vars.Context {
	out := v
	if delta != nil {
		out = out.Clone()
		out.Extend(vars.FromMap(delta.Values))
	}

	if t.Register == "" {
		return out
	}

	out = out.Clone()
	record := map[string]any{
		"changed": result.Changed,
		"failed":  failed,
	}
	if result.Output != nil {
		record["output"] = *result.Output
	}
	if result.Extra != nil {
		record["extra"] = result.Extra
	}
	if extra, ok := result.Extra.(map[string]any); ok {
		for k, val := range extra {
			record[k] = val
		}
	}
	out.Insert(t.Register, record)
	return out
}

func isTransferPid(params any) bool {
	m, ok := params.(map[string]any)
	if !ok {
		return false
	}
	v, ok := m["transfer_pid"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func commandArgv(params any) (argv, env []string) {
	m, _ := params.(map[string]any)
	cmd, _ := m["cmd"].(string)
	argv = []string{"/bin/sh", "-c", cmd}
	env = os.Environ()
	return argv, env
}
