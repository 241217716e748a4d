package modules

import (
	"context"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// DockerImageParams narrows original_source/rash_core/src/modules/docker_image.rs's
// Params to the pull/remove lifecycle; build/push/source=local are not
// carried — see DESIGN.md.
type DockerImageParams struct {
	Name  string `json:"name"`
	Tag   string `json:"tag,omitempty"`
	State string `json:"state,omitempty"` // present (default) or absent
}

// DockerImageModule is the "docker_image" dispatch target.
type DockerImageModule struct{}

func NewDockerImageModule() *DockerImageModule { return &DockerImageModule{} }

func (m *DockerImageModule) Name() string { return "docker_image" }

func (m *DockerImageModule) ForceStringOnParams() bool { return false }

func (m *DockerImageModule) Exec(ctx context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p DockerImageParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Name == "" {
		return module.Result{}, nil, rerr.InvalidDataf("docker_image: name is required")
	}
	if p.Tag == "" {
		p.Tag = "latest"
	}
	if p.State == "" {
		p.State = "present"
	}
	ref := p.Name + ":" + p.Tag

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_image: connecting to docker daemon")
	}
	defer cli.Close()

	_, _, inspectErr := cli.ImageInspectWithRaw(ctx, ref)
	exists := inspectErr == nil
	if inspectErr != nil && !client.IsErrNotFound(inspectErr) {
		return module.Result{}, nil, rerr.Wrapf(rerr.Other, inspectErr, "docker_image: inspecting %s", ref)
	}

	switch p.State {
	case "absent":
		if !exists {
			return module.Result{Changed: false, Output: stringOutput(ref)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(ref)}, nil, nil
		}
		if _, err := cli.ImageRemove(ctx, ref, image.RemoveOptions{Force: true}); err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_image: removing %s", ref)
		}
		return module.Result{Changed: true, Output: stringOutput(ref)}, nil, nil

	case "present":
		if exists {
			return module.Result{Changed: false, Output: stringOutput(ref)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(ref)}, nil, nil
		}
		if err := pullImageIfMissing(ctx, cli, ref); err != nil {
			return module.Result{}, nil, err
		}
		return module.Result{Changed: true, Output: stringOutput(ref)}, nil, nil

	default:
		return module.Result{}, nil, rerr.InvalidDataf("docker_image: unknown state %q", p.State)
	}
}
