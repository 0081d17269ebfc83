package prober

import "context"

// Run probes until ctx is done, emitting every resulting state on out.
// One goroutine per channel. No overlap: the next cycle starts Interval
// after the previous one finished. A nil out is allowed.
//
// On return the state is PhaseStopped.
func (p *Prober) Run(ctx context.Context, out chan<- HealthState) {
	defer p.stop()

	for {
		st := p.ProbeOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		if out != nil {
			select {
			case out <- st:
			case <-ctx.Done():
				return
			}
		}

		timer := p.clock.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
	}
}

func (p *Prober) stop() {
	p.mu.Lock()
	p.state.Phase = PhaseStopped
	p.mu.Unlock()
	p.log.Info("prober stopped")
}
