package docker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/tamzrod/hlsfleet/internal/runtime"
)

// ManagedLabel marks containers created by this adapter.
// Identity still comes from the container name only.
const ManagedLabel = "io.hlsfleet.managed"

type Config struct {
	Host    string // empty => DOCKER_HOST / default socket
	Image   string
	Network string
}

// Runtime runs workers as detached Docker containers.
type Runtime struct {
	cli     client.APIClient
	image   string
	network string
	log     *zap.Logger
}

var _ runtime.Runtime = (*Runtime)(nil)

// New connects to the Docker daemon. The connection is lazy: no request is
// made until the first call.
func New(cfg Config, log *zap.Logger, extra ...client.Opt) (*Runtime, error) {
	if cfg.Image == "" {
		return nil, errors.New("runtime docker: image required")
	}

	if log == nil {
		log = zap.NewNop()
	}

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	opts = append(opts, extra...)

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime docker: client: %w", err)
	}

	return &Runtime{
		cli:     cli,
		image:   cfg.Image,
		network: cfg.Network,
		log:     log.Named("docker"),
	}, nil
}

func (r *Runtime) Close() error { return r.cli.Close() }

// Create creates and starts one container. A container that was created but
// failed to start is removed again so the name is free for the next attempt.
func (r *Runtime) Create(ctx context.Context, name string, env map[string]string) (string, error) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]string, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, k+"="+env[k])
	}

	hostCfg := &container.HostConfig{}
	if r.network != "" {
		hostCfg.NetworkMode = container.NetworkMode(r.network)
	}

	created, err := r.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:  r.image,
			Env:    vars,
			Labels: map[string]string{ManagedLabel: "true"},
		},
		hostCfg,
		nil,
		nil,
		name,
	)
	if err != nil {
		return "", fmt.Errorf("runtime docker: create %s: %w", name, err)
	}

	if err := r.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		if rmErr := r.Remove(ctx, created.ID); rmErr != nil {
			r.log.Warn("cleanup after failed start failed",
				zap.String("worker", name),
				zap.Error(rmErr),
			)
		}
		return "", fmt.Errorf("runtime docker: start %s: %w", name, err)
	}

	return created.ID, nil
}

// List returns every container, running or stopped, whose name starts with prefix.
func (r *Runtime) List(ctx context.Context, prefix string) ([]runtime.Instance, error) {
	args := filters.NewArgs()
	if prefix != "" {
		args.Add("name", prefix)
	}

	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("runtime docker: list %s: %w", prefix, err)
	}

	out := make([]runtime.Instance, 0, len(containers))
	for _, c := range containers {
		name := primaryName(c.Names)
		// the daemon's name filter is a substring match
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, runtime.Instance{
			Handle:  c.ID,
			Name:    name,
			State:   c.State,
			Running: c.State == "running",
		})
	}
	return out, nil
}

// Remove force-removes one container, running or not.
func (r *Runtime) Remove(ctx context.Context, handle string) error {
	if err := r.cli.ContainerRemove(ctx, handle, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("runtime docker: remove %s: %w", handle, err)
	}
	return nil
}

// primaryName strips the leading slash the daemon puts on container names.
// Linked containers carry extra "/a/b" names; the first plain one wins.
func primaryName(names []string) string {
	for _, n := range names {
		n = strings.TrimPrefix(n, "/")
		if !strings.Contains(n, "/") {
			return n
		}
	}
	return ""
}
