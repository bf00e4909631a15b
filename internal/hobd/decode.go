package hobd

import (
	"encoding/binary"
	"fmt"
)

// Telemetry is one decoded live data sample. Temperatures are Celsius, MAP
// is kPa, throttle is percent, battery and O2 are volts.
type Telemetry struct {
	RPM         uint16      `cbor:"rpm"`
	Speed       uint8       `cbor:"speed"`
	CoolantTemp float64     `cbor:"coolant_c"`
	IntakeTemp  float64     `cbor:"intake_c"`
	MAP         float64     `cbor:"map_kpa"`
	Throttle    float64     `cbor:"throttle_pct"`
	Battery     float64     `cbor:"battery_v"`
	O2          float64     `cbor:"o2_v"`
	Flags       StatusFlags `cbor:"flags"`
}

// TroubleCodes is a decoded stored trouble code scan. Truncated is set when
// the frame declared more codes than its payload carried.
type TroubleCodes struct {
	Codes     []byte `cbor:"codes"`
	Truncated bool   `cbor:"truncated,omitempty"`
}

// Ack reports whether the adapter accepted the last command.
type Ack struct {
	OK bool `cbor:"ok"`
}

// DeviceError is an error reported by the adapter itself (DevErr* codes).
type DeviceError struct {
	Code byte `cbor:"code"`
}

// LengthError reports a payload whose length does not match its frame type.
type LengthError struct {
	Type byte
	Want int
	Got  int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("hobd: type 0x%02X payload length %d, want %d", e.Type, e.Got, e.Want)
}

// DecodeTelemetry decodes a fixed 16 byte telemetry payload. All multi-byte
// fields are big-endian; temperatures, MAP and throttle are signed tenths,
// battery is hundredths, O2 is thousandths.
func DecodeTelemetry(payload []byte) (Telemetry, error) {
	if len(payload) != TelemetrySize {
		return Telemetry{}, &LengthError{Type: TypeTelemetry, Want: TelemetrySize, Got: len(payload)}
	}
	return Telemetry{
		RPM:         binary.BigEndian.Uint16(payload[0:2]),
		Speed:       payload[2],
		CoolantTemp: s16(payload[3:5]) / 10,
		IntakeTemp:  s16(payload[5:7]) / 10,
		MAP:         s16(payload[7:9]) / 10,
		Throttle:    s16(payload[9:11]) / 10,
		Battery:     float64(binary.BigEndian.Uint16(payload[11:13])) / 100,
		O2:          float64(binary.BigEndian.Uint16(payload[13:15])) / 1000,
		Flags:       StatusFlags(payload[15]),
	}, nil
}

// s16 reads a big-endian two's-complement value as a float.
func s16(b []byte) float64 { return float64(int16(binary.BigEndian.Uint16(b))) }

// DecodeTroubleCodes decodes [count, code...]. A declared count larger than
// the payload yields the available codes with Truncated set; surplus bytes
// beyond the count are ignored. An empty payload means no codes.
func DecodeTroubleCodes(payload []byte) TroubleCodes {
	if len(payload) == 0 {
		return TroubleCodes{}
	}
	n := int(payload[0])
	avail := len(payload) - 1
	tc := TroubleCodes{}
	if n > avail {
		n = avail
		tc.Truncated = true
	}
	tc.Codes = append([]byte(nil), payload[1:1+n]...)
	return tc
}

// DecodeAck decodes an acknowledgment payload. Only a nonzero first byte
// counts as success; an empty payload is a failure.
func DecodeAck(payload []byte) Ack {
	return Ack{OK: len(payload) > 0 && payload[0] != 0}
}

// DecodeError decodes an adapter error payload. An empty payload maps to
// DevErrUnknownCommand.
func DecodeError(payload []byte) DeviceError {
	if len(payload) == 0 {
		return DeviceError{Code: DevErrUnknownCommand}
	}
	return DeviceError{Code: payload[0]}
}

// Event is a decoded frame with exactly one variant set according to Type.
// Frames of unknown type are surfaced with their raw payload rather than
// dropped.
type Event struct {
	Type         byte          `cbor:"type"`
	Telemetry    *Telemetry    `cbor:"telemetry,omitempty"`
	TroubleCodes *TroubleCodes `cbor:"trouble_codes,omitempty"`
	Ack          *Ack          `cbor:"ack,omitempty"`
	Err          *DeviceError  `cbor:"error,omitempty"`
	Unknown      []byte        `cbor:"raw,omitempty"`
}

// Kind names the event variant for logs and metric labels.
func (e Event) Kind() string {
	switch e.Type {
	case TypeTelemetry:
		return "telemetry"
	case TypeTroubleCodes:
		return "trouble_codes"
	case TypeAck:
		return "ack"
	case TypeError:
		return "device_error"
	default:
		return "unknown"
	}
}

// DecodeEvent decodes a frame into its typed event. The only failure is a
// telemetry payload of the wrong length.
func DecodeEvent(f Frame) (Event, error) {
	ev := Event{Type: f.Type}
	switch f.Type {
	case TypeTelemetry:
		t, err := DecodeTelemetry(f.Payload)
		if err != nil {
			return Event{}, err
		}
		ev.Telemetry = &t
	case TypeTroubleCodes:
		tc := DecodeTroubleCodes(f.Payload)
		ev.TroubleCodes = &tc
	case TypeAck:
		a := DecodeAck(f.Payload)
		ev.Ack = &a
	case TypeError:
		de := DecodeError(f.Payload)
		ev.Err = &de
	default:
		ev.Unknown = f.Payload
	}
	return ev, nil
}
