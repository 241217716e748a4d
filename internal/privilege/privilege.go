// Package privilege implements the fork+IPC primitive for
// become/become_user. Go has no fork() that is safe to call alongside
// the runtime's goroutine scheduler, so the "fork" here is an os/exec
// re-exec of the rash binary itself with a hidden --become-child flag:
// the parent writes the task's rendered module+params+vars as JSON to
// the child's stdin, the child drops privileges (gid before uid),
// executes the module in-process, and writes its result back as JSON
// on stdout for the parent to read after Wait.
package privilege

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// BecomeChildFlag is the hidden flag cmd/rash recognizes to enter
// child mode instead of normal script execution.
const BecomeChildFlag = "--become-child"

// ResolveUser resolves a become_user value to a uid/gid pair. Named
// user lookup always precedes numeric uid parsing, so a user literally
// named "0" still resolves by name first.
func ResolveUser(name string) (uid int, gid int, err error) {
	if u, lookErr := user.Lookup(name); lookErr == nil {
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return 0, 0, rerr.Otherf("become_user %q has non-numeric uid %q", name, u.Uid)
		}
		gid, err = strconv.Atoi(u.Gid)
		if err != nil {
			return 0, 0, rerr.Otherf("become_user %q has non-numeric gid %q", name, u.Gid)
		}
		return uid, gid, nil
	}

	n, convErr := strconv.Atoi(name)
	if convErr != nil {
		return 0, 0, rerr.NotFoundf("unknown become_user %q", name)
	}
	gid = 0
	if u, lookErr := user.LookupId(name); lookErr == nil {
		if g, gerr := strconv.Atoi(u.Gid); gerr == nil {
			gid = g
		}
	}
	return n, gid, nil
}

// DropTo sets the process's gid then uid: dropping gid after uid would
// fail once the process no longer holds the privilege to change it.
func DropTo(uid, gid int) error {
	if err := syscall.Setgid(gid); err != nil {
		return rerr.Wrapf(rerr.Other, err, "failed to set gid %d", gid)
	}
	if err := syscall.Setuid(uid); err != nil {
		return rerr.Wrapf(rerr.Other, err, "failed to set uid %d", uid)
	}
	return nil
}

// ChildRequest is the JSON payload the parent writes to the re-exec'd
// child's stdin.
type ChildRequest struct {
	Module     string         `json:"module"`
	Params     any            `json:"params"`
	Vars       map[string]any `json:"vars"`
	CheckMode  bool           `json:"check_mode"`
	BecomeUser string         `json:"become_user"`
	Config     *config.Config `json:"config"`
}

// ChildResponse is the JSON payload the child writes to its stdout
// after the module runs, whether it succeeded or failed.
type ChildResponse struct {
	Changed   bool           `json:"changed"`
	Output    *string        `json:"output,omitempty"`
	Extra     any            `json:"extra,omitempty"`
	Delta     map[string]any `json:"delta,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
	ErrorMsg  string         `json:"error_msg,omitempty"`
}

// Escalate spawns exePath as a child with BecomeChildFlag, feeds it req
// as JSON on stdin, and decodes its stdout as a ChildResponse. The
// parent never shares memory with the child; everything crosses the
// fork boundary through this one JSON round trip.
func Escalate(ctx context.Context, exePath string, req ChildRequest) (*ChildResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, rerr.Wrapf(rerr.Other, err, "marshaling become request")
	}

	cmd := exec.CommandContext(ctx, exePath, BecomeChildFlag)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			if exitErr.ProcessState.ExitCode() < 0 {
				return nil, rerr.SubprocessSignaled()
			}
			return nil, rerr.SubprocessFailf(stderr.String(), exitErr.ProcessState.ExitCode())
		}
		return nil, rerr.Wrapf(rerr.Other, runErr, "spawning become child")
	}

	var resp ChildResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, rerr.Wrapf(rerr.Other, err, "decoding become child response")
	}
	return &resp, nil
}

// RunChild is the child-side entry point, invoked by cmd/rash when it
// is re-exec'd with BecomeChildFlag. It reads a ChildRequest from r,
// drops privileges, executes the named module, and writes a
// ChildResponse to w. RunChild never returns an error from the module
// itself: module failures are reported inside the ChildResponse so the
// parent can distinguish "IPC broke" from "the module failed".
func RunChild(ctx context.Context, r []byte, w io.Writer, registry *module.Registry) error {
	var req ChildRequest
	if err := json.Unmarshal(r, &req); err != nil {
		return rerr.Wrapf(rerr.Other, err, "decoding become request")
	}

	resp := ChildResponse{}

	uid, gid, err := ResolveUser(req.BecomeUser)
	if err != nil {
		resp.ErrorKind = string(rerr.KindOf(err))
		resp.ErrorMsg = err.Error()
		return writeResponse(w, resp)
	}
	if err := DropTo(uid, gid); err != nil {
		resp.ErrorKind = string(rerr.KindOf(err))
		resp.ErrorMsg = err.Error()
		return writeResponse(w, resp)
	}

	mod, err := registry.Lookup(req.Module)
	if err != nil {
		resp.ErrorKind = string(rerr.KindOf(err))
		resp.ErrorMsg = err.Error()
		return writeResponse(w, resp)
	}

	v := vars.FromMap(req.Vars)
	cfg := req.Config
	if cfg == nil {
		cfg = config.Default()
	}

	result, delta, execErr := mod.Exec(ctx, cfg, req.Params, v, req.CheckMode)
	if execErr != nil {
		resp.ErrorKind = string(rerr.KindOf(execErr))
		if resp.ErrorKind == "" {
			resp.ErrorKind = string(rerr.Other)
		}
		resp.ErrorMsg = execErr.Error()
		return writeResponse(w, resp)
	}

	resp.Changed = result.Changed
	resp.Output = result.Output
	resp.Extra = result.Extra
	if delta != nil {
		resp.Delta = delta.Values
	}
	return writeResponse(w, resp)
}

func writeResponse(w io.Writer, resp ChildResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return rerr.Wrapf(rerr.Other, err, "encoding become child response")
	}
	_, err = w.Write(payload)
	return err
}

// TransferExec honors transfer_pid: true for the command module. It
// drops privileges in the current process, then replaces the process
// image via syscall.Exec, so the spawned command inherits the engine's
// own pid instead of running as a child of a forked helper. There is
// no IPC round trip and no return on success, since the process image
// is gone.
func TransferExec(becomeUser string, argv, env []string) error {
	uid, gid, err := ResolveUser(becomeUser)
	if err != nil {
		return err
	}
	if err := DropTo(uid, gid); err != nil {
		return err
	}
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return rerr.NotFoundf("transfer_pid target %q not found on PATH", argv[0])
	}
	if err := syscall.Exec(bin, argv, env); err != nil {
		return rerr.Wrapf(rerr.Other, err, "exec-replacing for transfer_pid")
	}
	return nil
}
