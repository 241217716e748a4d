// Package modules implements rash's concrete module set: the handful
// of built-in dispatch targets a task's module key can name. Each
// module implements the internal/module.Module contract.
package modules

import (
	"encoding/json"

	"github.com/rash-sh/rash-go/internal/rerr"
)

// decodeParams re-marshals the executor's already-rendered params
// value (typically a map[string]any decoded from YAML) into dst, a
// pointer to a module's own Params struct. This is the Go analogue of
// the Rust original's serde-driven parse_params: one generic
// deserialization step per module instead of a hand-written
// field-by-field copy.
func decodeParams(params any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return rerr.Wrapf(rerr.InvalidData, err, "encoding module params")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return rerr.Wrapf(rerr.InvalidData, err, "invalid params for module")
	}
	return nil
}

func stringOutput(s string) *string { return &s }
