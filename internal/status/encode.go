package status

// Encode converts a Snapshot into the live part of a channel status block.
// Reserved and name slots are left zero.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerChannel)

	regs[SlotHealthCode] = s.Health
	regs[SlotReasonCode] = s.ReasonCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotConsecutiveFailures] = s.ConsecutiveFailures
	regs[SlotBreakerState] = s.Breaker

	return regs
}
