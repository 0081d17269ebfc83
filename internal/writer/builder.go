package writer

import (
	cfg "github.com/tamzrod/hlsfleet/internal/config"
	wmodbus "github.com/tamzrod/hlsfleet/internal/writer/modbus"
)

// BuildStatusWriter wires the status block writer for the configured channel.
// ok is false when the status side channel is disabled.
// The endpoint is dialled lazily on the first write.
func BuildStatusWriter(c *cfg.Config, name string) (sw *ChannelStatusWriter, closeFn func() error, ok bool, err error) {
	if !c.Status.Enabled() {
		return nil, nil, false, nil
	}

	cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: c.Status.Endpoint,
		Timeout:  c.Status.Timeout(),
	})
	if err != nil {
		return nil, nil, false, err
	}

	sw, err = NewChannelStatusWriter(StatusPlan{
		Endpoint:  c.Status.Endpoint,
		UnitID:    c.Status.UnitID,
		ChannelID: c.Channel.ID,
		Name:      name,
	}, cli)
	if err != nil {
		_ = cli.Close()
		return nil, nil, false, err
	}

	return sw, cli.Close, true, nil
}
