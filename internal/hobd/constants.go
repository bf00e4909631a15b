// Package hobd implements the wire protocol spoken by the HOBD diagnostic
// adapter: stream framing with resynchronization, pluggable checksums, and
// decoding of the payloads the adapter emits.
package hobd

// Stream marker preceding every adapter frame.
const (
	Marker0 = 0xAA
	Marker1 = 0x55
)

// Frame geometry. A complete frame is
// [Marker0, Marker1, type, len, payload..., check].
const (
	HeaderSize   = 4 // marker(2) + type(1) + length(1)
	ChecksumSize = 1
	MinFrameSize = HeaderSize + ChecksumSize
	MaxPayload   = 255 // length is a single byte

	TelemetrySize = 16 // fixed telemetry payload length
)

// Frame types emitted by the adapter.
const (
	TypeTelemetry    = 0x81
	TypeTroubleCodes = 0x82
	TypeAck          = 0x83
	TypeError        = 0x84
)

// Command is a single-byte host-to-adapter request. Commands are written to
// the transport bare, without framing.
type Command byte

const (
	CmdGetTelemetry    Command = 0x01
	CmdGetTroubleCodes Command = 0x02
	CmdReset           Command = 0x03
)

// Error codes carried in TypeError payloads.
const (
	DevErrTelemetry      = 0x01 // live data read failed
	DevErrScan           = 0x02 // trouble code scan failed
	DevErrUnknownCommand = 0xFF
)

// StatusFlags is the packed status bit field from the last telemetry byte.
type StatusFlags uint8

const (
	FlagAC StatusFlags = 1 << iota
	FlagBrake
	FlagVTEC
	FlagMIL
)

func (f StatusFlags) AC() bool    { return f&FlagAC != 0 }
func (f StatusFlags) Brake() bool { return f&FlagBrake != 0 }
func (f StatusFlags) VTEC() bool  { return f&FlagVTEC != 0 }
func (f StatusFlags) MIL() bool   { return f&FlagMIL != 0 }
