package status

// Channel Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerChannel is the fixed number of holding registers per channel.
// A channel's block starts at channelID * SlotsPerChannel.
const SlotsPerChannel = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the channel health code.
const SlotHealthCode = 0

// SlotReasonCode holds the reason of the last non-healthy outcome.
const SlotReasonCode = 1

// SlotSecondsInError holds the duration (in seconds) the channel has been unhealthy.
const SlotSecondsInError = 2

// SlotConsecutiveFailures holds the breaker failure counter (saturating).
const SlotConsecutiveFailures = 3

// SlotBreakerState holds the breaker position.
const SlotBreakerState = 4

// ---- RESERVED RANGE ----

// Slots 5-10 are reserved for future use.
const SlotReservedStart = 5
const SlotReservedEnd = 10

// ---- CHANNEL NAME ----

// SlotNameStart is the first slot used for the channel name.
// The name is always placed at the END of the status block.
const SlotNameStart = 11

// SlotNameSlots is the number of slots reserved for the channel name.
const SlotNameSlots = 8

// SlotNameEnd is the last slot used for the channel name (inclusive).
const SlotNameEnd = SlotNameStart + SlotNameSlots - 1

// ---- LIMITS ----

// NameMaxChars is the maximum number of ASCII characters stored for the name.
const NameMaxChars = 16

// MaxCounter is where 16-bit counters saturate.
const MaxCounter = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents the idle / boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy stream.
const HealthOK uint16 = 1

// HealthUnavailable represents an unavailable stream.
const HealthUnavailable uint16 = 2

// HealthDegraded represents a stream whose playlist is fine but whose segments are not.
const HealthDegraded uint16 = 3

// HealthStopped represents a monitor that has shut down.
const HealthStopped uint16 = 4

// ---- REASON CODES ----

const (
	ReasonNone               uint16 = 0
	ReasonTransport          uint16 = 1
	ReasonParse              uint16 = 2
	ReasonNoSegments         uint16 = 3
	ReasonCircuitOpen        uint16 = 4
	ReasonSegmentUnreachable uint16 = 5
)
