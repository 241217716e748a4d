// Package module defines the uniform module dispatch contract every
// rash module implements: parameter deserialization, check-mode
// semantics, a structured result, and registry lookup.
package module

import (
	"context"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/vars"
)

// Result is the structured record returned by every module invocation.
type Result struct {
	// Changed is a statement of fact: did anything on the system
	// actually change.
	Changed bool
	// Output is one line for the operator log.
	Output *string
	// Extra is the module-specific structured payload stored under
	// `register` when the task requests it.
	Extra any
}

// Delta is a patch merged into the caller's variable context after a
// module runs. Most modules return nil; a few expose computed values
// this way.
type Delta struct {
	Values map[string]any
}

// Module is the contract every module implements.
type Module interface {
	// Name returns the module's unique registry key.
	Name() string
	// Exec performs (or, in check mode, simulates) the module's
	// operation. params is the task's already-rendered, module-specific
	// parameter value (typically a map[string]any decoded from YAML).
	Exec(ctx context.Context, global *config.Config, params any, v *vars.Context, checkMode bool) (Result, *Delta, error)
	// ForceStringOnParams reports whether every scalar leaf of the raw
	// params should be stringified before Exec is called. Needed by
	// modules whose placeholders are always docopt-sourced strings.
	ForceStringOnParams() bool
}

// SchemaModule is implemented by modules that expose a JSON schema of
// their parameters, for documentation generation.
type SchemaModule interface {
	Module
	JSONSchema() any
}
