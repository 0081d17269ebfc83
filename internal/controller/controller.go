// Package controller keeps the worker fleet in step with the registry.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"

	"github.com/tamzrod/hlsfleet/internal/metrics"
	"github.com/tamzrod/hlsfleet/internal/registry"
	"github.com/tamzrod/hlsfleet/internal/runtime"
)

// ErrRuntimeAction marks a failed create or remove. It is transient: the
// next pass re-diffs and retries implicitly.
var ErrRuntimeAction = errors.New("runtime action failed")

// Registry is the read side of registry.Client the controller needs.
type Registry interface {
	Channels(ctx context.Context) ([]registry.Channel, error)
}

type Config struct {
	Interval time.Duration

	// RegistryURL is forwarded to every worker as REGISTRY_URL.
	RegistryURL string

	// WorkerEnv is added to every worker's environment.
	WorkerEnv map[string]string
}

type Controller struct {
	cfg     Config
	reg     Registry
	rt      runtime.Runtime
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Controller

	mu      sync.Mutex
	created map[int]string // channel id -> handle
}

// New creates a controller. clk, log and m may be nil.
func New(cfg Config, reg Registry, rt runtime.Runtime, clk clock.Clock, log *zap.Logger, m *metrics.Controller) (*Controller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("controller: interval must be > 0")
	}
	if reg == nil {
		return nil, errors.New("controller: registry required")
	}
	if rt == nil {
		return nil, errors.New("controller: runtime required")
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewController(nil)
	}

	return &Controller{
		cfg:     cfg,
		reg:     reg,
		rt:      rt,
		clock:   clk,
		log:     log,
		metrics: m,
		created: make(map[int]string),
	}, nil
}

// Reconcile performs exactly one pass and returns the plan it executed.
// A registry or listing failure skips the pass with an empty plan.
// Otherwise the error joins every failed action; each wraps ErrRuntimeAction.
func (c *Controller) Reconcile(ctx context.Context) (Plan, error) {
	desired, err := c.reg.Channels(ctx)
	if err != nil {
		c.metrics.Reconciles.WithLabelValues("skipped").Inc()
		return Plan{}, fmt.Errorf("controller: fetch desired channels: %w", err)
	}
	desired = c.sanitize(desired)

	actual, err := c.actual(ctx)
	if err != nil {
		c.metrics.Reconciles.WithLabelValues("skipped").Inc()
		return Plan{}, fmt.Errorf("controller: list workers: %w", err)
	}

	c.metrics.Workers.WithLabelValues("desired").Set(float64(len(desired)))
	c.metrics.Workers.WithLabelValues("actual").Set(float64(len(actual)))

	plan := ComputePlan(desired, actual)
	if plan.Empty() {
		c.metrics.Reconciles.WithLabelValues("ok").Inc()
		return plan, nil
	}

	c.log.Info("reconcile plan",
		zap.Int("create", len(plan.ToCreate)),
		zap.Int("remove", len(plan.ToRemove)),
	)

	var errs []error

	// Removals first: a stopped worker must free its name before it is recreated.
	for _, w := range plan.ToRemove {
		if err := c.remove(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ch := range plan.ToCreate {
		if err := c.create(ctx, ch); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		c.metrics.Reconciles.WithLabelValues("partial").Inc()
		return plan, errors.Join(errs...)
	}
	c.metrics.Reconciles.WithLabelValues("ok").Inc()
	return plan, nil
}

// Run reconciles immediately, then once per interval until ctx is done.
// Passes never overlap; ticks that fire during a pass are coalesced.
func (c *Controller) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := c.Reconcile(ctx); err != nil {
			c.log.Warn("reconcile pass incomplete", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
	}
}

// Shutdown makes a single best-effort remove attempt for every worker.
// If listing fails it falls back to the workers this controller created.
func (c *Controller) Shutdown(ctx context.Context) error {
	targets, err := c.actual(ctx)
	if err != nil {
		c.log.Warn("shutdown: list workers failed, removing created workers only", zap.Error(err))
		targets = c.createdWorkers()
	}

	var errs []error
	for _, w := range targets {
		if err := c.remove(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}

	c.log.Info("shutdown complete", zap.Int("workers", len(targets)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func (c *Controller) create(ctx context.Context, ch registry.Channel) error {
	name := WorkerName(ch.ID)
	log := c.log.With(zap.Int("channel_id", ch.ID), zap.String("worker", name), zap.String("action", "create"))

	handle, err := c.rt.Create(ctx, name, c.workerEnv(ch))
	if err != nil {
		c.metrics.RuntimeActions.WithLabelValues("create", "error").Inc()
		log.Error("runtime action failed", zap.Error(err))
		return fmt.Errorf("%w: create %s: %w", ErrRuntimeAction, name, err)
	}

	c.mu.Lock()
	c.created[ch.ID] = handle
	c.mu.Unlock()

	c.metrics.RuntimeActions.WithLabelValues("create", "ok").Inc()
	log.Info("worker created", zap.String("handle", handle))
	return nil
}

func (c *Controller) remove(ctx context.Context, w Worker) error {
	log := c.log.With(zap.Int("channel_id", w.ChannelID), zap.String("worker", w.Name), zap.String("action", "remove"))

	if err := c.rt.Remove(ctx, w.Handle); err != nil {
		c.metrics.RuntimeActions.WithLabelValues("remove", "error").Inc()
		log.Error("runtime action failed", zap.Error(err))
		return fmt.Errorf("%w: remove %s: %w", ErrRuntimeAction, w.Name, err)
	}

	c.mu.Lock()
	if c.created[w.ChannelID] == w.Handle {
		delete(c.created, w.ChannelID)
	}
	c.mu.Unlock()

	c.metrics.RuntimeActions.WithLabelValues("remove", "ok").Inc()
	log.Info("worker removed", zap.Bool("was_running", w.Running))
	return nil
}

func (c *Controller) workerEnv(ch registry.Channel) map[string]string {
	env := make(map[string]string, len(c.cfg.WorkerEnv)+3)
	for k, v := range c.cfg.WorkerEnv {
		env[k] = v
	}
	env["CHANNEL_ID"] = strconv.Itoa(ch.ID)
	env["CHANNEL_URL"] = ch.URL
	env["REGISTRY_URL"] = c.cfg.RegistryURL
	return env
}

// actual lists runtime entities and keeps those whose names decode.
func (c *Controller) actual(ctx context.Context) ([]Worker, error) {
	instances, err := c.rt.List(ctx, WorkerPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]Worker, 0, len(instances))
	for _, in := range instances {
		id, ok := ParseChannelID(in.Name)
		if !ok {
			c.log.Warn("ignoring runtime entity with malformed worker name",
				zap.String("worker", in.Name),
				zap.String("handle", in.Handle),
			)
			continue
		}
		out = append(out, Worker{
			ChannelID: id,
			Handle:    in.Handle,
			Name:      in.Name,
			Running:   in.Running,
		})
	}
	return out, nil
}

// sanitize drops ids that cannot name a worker and keeps the first
// record per channel id.
func (c *Controller) sanitize(in []registry.Channel) []registry.Channel {
	seen := make(map[int]struct{}, len(in))
	out := in[:0:0]
	for _, ch := range in {
		if ch.ID <= 0 {
			c.log.Warn("ignoring channel with invalid id", zap.Int("channel_id", ch.ID))
			continue
		}
		if _, dup := seen[ch.ID]; dup {
			c.log.Warn("duplicate channel id in registry", zap.Int("channel_id", ch.ID))
			continue
		}
		seen[ch.ID] = struct{}{}
		out = append(out, ch)
	}
	return out
}

func (c *Controller) createdWorkers() []Worker {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Worker, 0, len(c.created))
	for id, h := range c.created {
		out = append(out, Worker{ChannelID: id, Handle: h, Name: WorkerName(id), Running: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}
