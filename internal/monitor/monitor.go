// Package monitor drives one channel inside a worker process: the prober
// loop plus the status reporter that publishes its state.
package monitor

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"

	"github.com/tamzrod/hlsfleet/internal/prober"
	"github.com/tamzrod/hlsfleet/internal/status"
	"github.com/tamzrod/hlsfleet/internal/writer"
)

// Source is the part of *prober.Prober the reporter depends on.
type Source interface {
	Run(ctx context.Context, out chan<- prober.HealthState)
	State() prober.HealthState
}

// Run probes until ctx is done. When sw is non-nil every state change and
// every seconds-in-error tick is delivered to it, and the final Stopped
// state is written before Run returns. sw may be nil.
func Run(ctx context.Context, src Source, sw writer.StatusWriter, clk clock.Clock, log *zap.Logger) {
	if clk == nil {
		clk = clock.NewClock()
	}
	if log == nil {
		log = zap.NewNop()
	}

	out := make(chan prober.HealthState)
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Run(ctx, out)
	}()

	tr := status.NewTracker()
	write := func(on string) {
		if sw == nil {
			return
		}
		if err := sw.WriteStatus(tr.Snapshot()); err != nil {
			log.Warn("status write failed", zap.String("on", on), zap.Error(err))
		}
	}

	// Full block on start.
	write("start")

	secTicker := clk.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-done:
			tr.Observe(src.State())
			write("stop")
			return

		case st := <-out:
			if tr.Observe(st) {
				write("change")
			}

		case <-secTicker.C():
			if tr.Tick() {
				write("tick")
			}
		}
	}
}
