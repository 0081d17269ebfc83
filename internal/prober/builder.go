package prober

import (
	"strconv"

	"code.cloudfoundry.org/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	cfg "github.com/tamzrod/hlsfleet/internal/config"
	"github.com/tamzrod/hlsfleet/internal/metrics"
	"github.com/tamzrod/hlsfleet/internal/prober/hls"
)

// Build constructs the prober for the configured channel and wires its
// HTTP client. The client is shared by manifest, variant and segment fetches.
func Build(c *cfg.Config, reg prometheus.Registerer, log *zap.Logger) (*Prober, error) {
	pc := c.Prober

	fetch := hls.New(hls.Config{
		Timeout: pc.Timeout(),
	})

	checkSegment := true
	if pc.CheckSegment != nil {
		checkSegment = *pc.CheckSegment
	}

	return New(
		Config{
			ChannelID:    c.Channel.ID,
			URL:          c.Channel.URL,
			Interval:     pc.Interval(),
			CheckSegment: checkSegment,
			Retry: RetryPolicy{
				MaxAttempts: pc.Retry.MaxAttempts,
				BaseDelay:   pc.Retry.BaseDelay.Std(),
				MaxDelay:    pc.Retry.MaxDelay.Std(),
			},
			FailureThreshold: pc.Breaker.FailureThreshold,
			Cooldown:         pc.Breaker.Cooldown(),
		},
		fetch,
		clock.NewClock(),
		log,
		metrics.NewProber(reg, strconv.Itoa(c.Channel.ID)),
	)
}
