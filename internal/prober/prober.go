package prober

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"

	"github.com/tamzrod/hlsfleet/internal/metrics"
	"github.com/tamzrod/hlsfleet/internal/prober/hls"
)

// Fetcher abstracts the HTTP operations the prober needs.
// hls.Client is the production implementation.
type Fetcher interface {
	Playlist(ctx context.Context, url string) (*hls.Playlist, error)
	Segment(ctx context.Context, url string) error
}

// Config is the minimal runtime config the prober needs.
type Config struct {
	ChannelID    int
	URL          string
	Interval     time.Duration
	CheckSegment bool

	Retry            RetryPolicy
	FailureThreshold int
	Cooldown         time.Duration
}

// Prober owns the health state of exactly one channel.
type Prober struct {
	cfg     Config
	fetch   Fetcher
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Prober

	breaker *Breaker
	probe   ProbeFunc

	mu    sync.Mutex
	state HealthState
}

// New creates a prober with immutable config.
// clk and m may be nil.
func New(cfg Config, fetch Fetcher, clk clock.Clock, log *zap.Logger, m *metrics.Prober) (*Prober, error) {
	if cfg.ChannelID <= 0 {
		return nil, errors.New("prober: channel id must be > 0")
	}
	if cfg.URL == "" {
		return nil, errors.New("prober: url required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("prober: interval must be > 0")
	}
	if fetch == nil {
		return nil, errors.New("prober: fetcher required")
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewProber(nil, strconv.Itoa(cfg.ChannelID))
	}

	b, err := NewBreaker(cfg.FailureThreshold, cfg.Cooldown, clk)
	if err != nil {
		return nil, err
	}

	p := &Prober{
		cfg:     cfg,
		fetch:   fetch,
		clock:   clk,
		log:     log.With(zap.Int("channel_id", cfg.ChannelID)),
		metrics: m,
		breaker: b,
		state:   HealthState{ChannelID: cfg.ChannelID, Phase: PhaseIdle},
	}
	p.probe = WithBreaker(b, WithRetry(cfg.Retry, clk, p.check))
	return p, nil
}

// State returns a copy of the current health state.
func (p *Prober) State() HealthState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ProbeOnce performs exactly one probe cycle (breaker, retries, fetch,
// validate) and returns the resulting state.
func (p *Prober) ProbeOnce(ctx context.Context) HealthState {
	p.mu.Lock()
	p.state.Phase = PhaseProbing
	p.mu.Unlock()

	start := p.clock.Now()
	res := p.probe(ctx)
	p.metrics.Duration.Observe(p.clock.Since(start).Seconds())

	breaker, failures, openedAt := p.breaker.Snapshot()

	p.mu.Lock()
	p.state.Phase = res.Phase
	p.state.Reason = res.Reason
	p.state.LastErr = res.Err
	p.state.Segments = res.Segments
	p.state.ConsecutiveFailures = failures
	p.state.Breaker = breaker
	p.state.BreakerOpenedAt = openedAt
	p.state.LastProbeAt = p.clock.Now()
	st := p.state
	p.mu.Unlock()

	p.metrics.Probes.WithLabelValues(res.Phase.String()).Inc()
	p.metrics.BreakerState.Set(float64(breaker))

	p.logResult(res, st)
	return st
}

func (p *Prober) logResult(res Result, st HealthState) {
	fields := []zap.Field{
		zap.Stringer("phase", res.Phase),
		zap.Stringer("breaker", st.Breaker),
		zap.Int("consecutive_failures", st.ConsecutiveFailures),
		zap.Int("attempts", res.Attempts),
	}

	switch res.Phase {
	case PhaseHealthy:
		p.log.Info("stream healthy",
			append(fields, zap.String("playlist", res.Playlist), zap.Int("segments", res.Segments))...,
		)
	case PhaseDegraded:
		p.log.Warn("stream degraded",
			append(fields, zap.String("reason", res.Reason), zap.Error(res.Err))...,
		)
	default:
		if errors.Is(res.Err, ErrCircuitOpen) {
			p.log.Debug("probe skipped", append(fields, zap.String("reason", res.Reason))...)
			return
		}
		p.log.Warn("stream unavailable",
			append(fields, zap.String("reason", res.Reason), zap.Error(res.Err))...,
		)
	}
}

// check is the raw fetch+validate sequence without retry or breaker.
//
//	FetchManifest -> (master? FetchVariant) -> ValidateSegments -> (CheckSegment)
func (p *Prober) check(ctx context.Context) Result {
	manifest, err := p.fetch.Playlist(ctx, p.cfg.URL)
	if err != nil {
		return failed(err)
	}

	media := manifest
	if manifest.Master {
		if len(manifest.Variants) == 0 {
			return failed(fmt.Errorf("%w: %s: master playlist without variants", ErrParse, p.cfg.URL))
		}

		variantURL, err := manifest.Resolve(manifest.Variants[0])
		if err != nil {
			return failed(err)
		}

		media, err = p.fetch.Playlist(ctx, variantURL)
		if err != nil {
			return failed(err)
		}
		if media.Master {
			return failed(fmt.Errorf("%w: %s: variant is a master playlist", ErrParse, variantURL))
		}
	}

	res := Result{Playlist: media.URL, Segments: len(media.Segments)}

	if len(media.Segments) == 0 {
		res.Phase = PhaseUnavailable
		res.Reason = ReasonNoSegments
		res.Err = ErrNoSegments
		return res
	}

	if p.cfg.CheckSegment {
		last, err := media.Resolve(media.Segments[len(media.Segments)-1])
		if err == nil {
			err = p.fetch.Segment(ctx, last)
		}
		if err != nil {
			res.Phase = PhaseDegraded
			res.Reason = ReasonSegmentUnreachable
			// %v, not %w: a segment failure must not look like a retryable manifest failure
			res.Err = fmt.Errorf("%w: %v", ErrSegment, err)
			return res
		}
	}

	res.Phase = PhaseHealthy
	return res
}

func failed(err error) Result {
	res := Result{Phase: PhaseUnavailable, Err: err}
	switch {
	case errors.Is(err, ErrTransport):
		res.Reason = ReasonTransport
	default:
		res.Reason = ReasonParse
	}
	return res
}
