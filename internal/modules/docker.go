package modules

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// DockerContainerParams mirrors
// original_source/rash_core/src/modules/docker_container.rs's Params,
// narrowed to the fields a declarative container lifecycle needs:
// name, image, desired state, published ports, environment, and
// volume binds. healthcheck/memory/cpu_shares/networks from the Rust
// original are not carried — see DESIGN.md.
type DockerContainerParams struct {
	Name    string            `json:"name"`
	Image   string            `json:"image,omitempty"`
	State   string            `json:"state,omitempty"` // present, started (default), stopped, absent
	Ports   []string          `json:"ports,omitempty"`  // "host:container[/proto]"
	Env     map[string]string `json:"env,omitempty"`
	Volumes []string          `json:"volumes,omitempty"` // "host:container"
	Command []string          `json:"command,omitempty"`
}

// DockerContainerModule is the "docker_container" dispatch target. It
// talks to the Docker Engine API directly through
// github.com/docker/docker/client rather than shelling out to the
// docker CLI, unlike the Rust original's std::process::Command
// wrapper — see DESIGN.md for the rationale.
type DockerContainerModule struct{}

func NewDockerContainerModule() *DockerContainerModule { return &DockerContainerModule{} }

func (m *DockerContainerModule) Name() string { return "docker_container" }

func (m *DockerContainerModule) ForceStringOnParams() bool { return false }

func (m *DockerContainerModule) Exec(ctx context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p DockerContainerParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Name == "" {
		return module.Result{}, nil, rerr.InvalidDataf("docker_container: name is required")
	}
	if p.State == "" {
		p.State = "started"
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_container: connecting to docker daemon")
	}
	defer cli.Close()

	info, inspectErr := cli.ContainerInspect(ctx, p.Name)
	exists := inspectErr == nil
	if inspectErr != nil && !client.IsErrNotFound(inspectErr) {
		return module.Result{}, nil, rerr.Wrapf(rerr.Other, inspectErr, "docker_container: inspecting %s", p.Name)
	}

	if p.State == "absent" {
		if !exists {
			return module.Result{Changed: false, Output: stringOutput(p.Name)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil
		}
		if err := cli.ContainerRemove(ctx, p.Name, container.RemoveOptions{Force: true}); err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_container: removing %s", p.Name)
		}
		return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil
	}

	if !exists {
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil
		}
		if err := pullImageIfMissing(ctx, cli, p.Image); err != nil {
			return module.Result{}, nil, err
		}
		if err := createContainer(ctx, cli, p); err != nil {
			return module.Result{}, nil, err
		}
		if p.State == "started" {
			if err := cli.ContainerStart(ctx, p.Name, container.StartOptions{}); err != nil {
				return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_container: starting %s", p.Name)
			}
		}
		return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil
	}

	running := info.State != nil && info.State.Running
	switch p.State {
	case "started":
		if running {
			return module.Result{Changed: false, Output: stringOutput(p.Name)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil
		}
		if err := cli.ContainerStart(ctx, p.Name, container.StartOptions{}); err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_container: starting %s", p.Name)
		}
		return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil

	case "stopped":
		if !running {
			return module.Result{Changed: false, Output: stringOutput(p.Name)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil
		}
		if err := cli.ContainerStop(ctx, p.Name, container.StopOptions{}); err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.Other, err, "docker_container: stopping %s", p.Name)
		}
		return module.Result{Changed: true, Output: stringOutput(p.Name)}, nil, nil

	case "present":
		return module.Result{Changed: false, Output: stringOutput(p.Name)}, nil, nil

	default:
		return module.Result{}, nil, rerr.InvalidDataf("docker_container: unknown state %q", p.State)
	}
}

func pullImageIfMissing(ctx context.Context, cli *client.Client, ref string) error {
	if ref == "" {
		return nil
	}
	if _, _, err := cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}
	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return rerr.Wrapf(rerr.Other, err, "docker_container: pulling %s", ref)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return rerr.Wrapf(rerr.Other, err, "docker_container: pulling %s", ref)
	}
	return nil
}

func createContainer(ctx context.Context, cli *client.Client, p DockerContainerParams) error {
	exposed, bindings, err := parsePortSpecs(p.Ports)
	if err != nil {
		return rerr.Wrapf(rerr.InvalidData, err, "docker_container: parsing ports")
	}

	var env []string
	for k, v := range p.Env {
		env = append(env, k+"="+v)
	}

	cfg := &container.Config{
		Image:        p.Image,
		Env:          env,
		Cmd:          p.Command,
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Binds:        p.Volumes,
	}

	_, err = cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, p.Name)
	if err != nil {
		return rerr.Wrapf(rerr.Other, err, "docker_container: creating %s", p.Name)
	}
	return nil
}

// parsePortSpecs turns "host:container[/proto]" entries into the
// nat.PortSet/nat.PortMap pair ContainerCreate expects, the same shape
// Aureuma-si's docker client builds its own forwarded-port maps with.
func parsePortSpecs(specs []string) (nat.PortSet, nat.PortMap, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, spec := range specs {
		host, containerPort, proto, err := splitPortSpec(spec)
		if err != nil {
			return nil, nil, err
		}
		key := nat.Port(fmt.Sprintf("%s/%s", containerPort, proto))
		exposed[key] = struct{}{}
		bindings[key] = append(bindings[key], nat.PortBinding{HostIP: "0.0.0.0", HostPort: host})
	}
	return exposed, bindings, nil
}

func splitPortSpec(spec string) (host, containerPort, proto string, err error) {
	proto = "tcp"
	if idx := strings.LastIndex(spec, "/"); idx != -1 {
		proto = spec[idx+1:]
		spec = spec[:idx]
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", "", "", rerr.InvalidDataf("docker_container: invalid port spec %q", spec)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return "", "", "", rerr.InvalidDataf("docker_container: invalid host port in %q", spec)
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return "", "", "", rerr.InvalidDataf("docker_container: invalid container port in %q", spec)
	}
	return parts[0], parts[1], proto, nil
}
