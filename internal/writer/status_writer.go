package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/hlsfleet/internal/status"
)

// StatusWriter is the delivery-only contract for channel status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusPlan places one channel's block on a status endpoint.
type StatusPlan struct {
	Endpoint  string
	UnitID    uint8
	ChannelID int
	Name      string
}

// ChannelStatusWriter writes one channel's status block.
type ChannelStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16
	nameRegs []uint16
}

var liveSlots = []struct {
	slot int
	name string
}{
	{status.SlotHealthCode, "health"},
	{status.SlotReasonCode, "reason"},
	{status.SlotSecondsInError, "seconds_in_error"},
	{status.SlotConsecutiveFailures, "failures"},
	{status.SlotBreakerState, "breaker"},
}

func NewChannelStatusWriter(plan StatusPlan, cli endpointClient) (*ChannelStatusWriter, error) {
	if cli == nil {
		return nil, fmt.Errorf("status writer: missing client for endpoint %s", plan.Endpoint)
	}
	if plan.ChannelID <= 0 {
		return nil, fmt.Errorf("status writer: channel id %d out of range", plan.ChannelID)
	}
	if (plan.ChannelID+1)*status.SlotsPerChannel-1 > 0xFFFF {
		return nil, fmt.Errorf("status writer: channel id %d does not fit the register space", plan.ChannelID)
	}

	return &ChannelStatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true,
		nameRegs: encodeNameRegs(plan.Name),
	}, nil
}

// WriteStatus delivers a snapshot into the channel's block.
// The first call and the first call after any failure write the full block;
// otherwise only changed slots are written.
func (sw *ChannelStatusWriter) WriteStatus(s status.Snapshot) error {
	regs := status.Encode(s)
	base := sw.baseAddr()

	if sw.needFull {
		for i := 0; i < status.SlotNameSlots; i++ {
			regs[status.SlotNameStart+i] = sw.nameRegs[i]
		}

		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string
	for _, ls := range liveSlots {
		v := regs[ls.slot]
		if sw.last[ls.slot] == v {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base+uint16(ls.slot), []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", ls.slot, ls.name, err))
			continue
		}
		sw.last[ls.slot] = v
	}

	if len(errs) > 0 {
		// Partial failure: re-assert the whole block on the next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *ChannelStatusWriter) baseAddr() uint16 {
	return uint16(sw.plan.ChannelID * status.SlotsPerChannel)
}

// encodeNameRegs packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big-endian.
func encodeNameRegs(name string) []uint16 {
	out := make([]uint16, status.SlotNameSlots)

	b := []byte(name)
	if len(b) > status.NameMaxChars {
		b = b[:status.NameMaxChars]
	}

	for i := range b {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < status.NameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
