package hobd

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeTelemetry_Vector(t *testing.T) {
	got, err := DecodeTelemetry(telemetryPayload())
	if err != nil {
		t.Fatalf("DecodeTelemetry: %v", err)
	}
	want := Telemetry{
		RPM:         3000,
		Speed:       50,
		CoolantTemp: -10.0,
		IntakeTemp:  20.0,
		MAP:         100.0,
		Throttle:    0.0,
		Battery:     14.28,
		O2:          0.500,
		Flags:       FlagAC | FlagVTEC,
	}
	if got != want {
		t.Fatalf("telemetry mismatch\n got  %+v\n want %+v", got, want)
	}
	if !got.Flags.AC() || got.Flags.Brake() || !got.Flags.VTEC() || got.Flags.MIL() {
		t.Fatalf("unexpected flag decode: %08b", got.Flags)
	}
}

func TestDecodeTelemetry_BadLength(t *testing.T) {
	for _, n := range []int{0, 15, 17} {
		_, err := DecodeTelemetry(make([]byte, n))
		var le *LengthError
		if !errors.As(err, &le) {
			t.Fatalf("len %d: expected LengthError, got %v", n, err)
		}
		if le.Want != TelemetrySize || le.Got != n {
			t.Fatalf("len %d: unexpected error fields %+v", n, le)
		}
	}
}

func TestDecodeTroubleCodes(t *testing.T) {
	tests := []struct {
		name      string
		payload   []byte
		codes     []byte
		truncated bool
	}{
		{"empty", nil, nil, false},
		{"zeroCount", []byte{0}, nil, false},
		{"two", []byte{2, 0x01, 0x13}, []byte{0x01, 0x13}, false},
		{"truncated", []byte{3, 0x01}, []byte{0x01}, true},
		{"surplusIgnored", []byte{1, 0x07, 0x08}, []byte{0x07}, false},
	}
	for _, tc := range tests {
		got := DecodeTroubleCodes(tc.payload)
		if !bytes.Equal(got.Codes, tc.codes) || got.Truncated != tc.truncated {
			t.Fatalf("%s: got codes=% X truncated=%v, want codes=% X truncated=%v",
				tc.name, got.Codes, got.Truncated, tc.codes, tc.truncated)
		}
	}
}

func TestDecodeAck(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		ok      bool
	}{
		{"empty", nil, false},
		{"zero", []byte{0}, false},
		{"one", []byte{1}, true},
		{"nonzero", []byte{0x42}, true},
	}
	for _, tc := range tests {
		if got := DecodeAck(tc.payload); got.OK != tc.ok {
			t.Fatalf("%s: ok=%v, want %v", tc.name, got.OK, tc.ok)
		}
	}
}

func TestDecodeError(t *testing.T) {
	if got := DecodeError([]byte{DevErrScan}); got.Code != DevErrScan {
		t.Fatalf("code = 0x%02X, want 0x%02X", got.Code, DevErrScan)
	}
	if got := DecodeError(nil); got.Code != DevErrUnknownCommand {
		t.Fatalf("empty payload: code = 0x%02X, want 0x%02X", got.Code, DevErrUnknownCommand)
	}
}

func TestDecodeEvent_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		fr   Frame
		kind string
	}{
		{"telemetry", Frame{Type: TypeTelemetry, Payload: telemetryPayload()}, "telemetry"},
		{"troubleCodes", Frame{Type: TypeTroubleCodes, Payload: []byte{1, 0x07}}, "trouble_codes"},
		{"ack", Frame{Type: TypeAck, Payload: []byte{1}}, "ack"},
		{"deviceError", Frame{Type: TypeError, Payload: []byte{DevErrTelemetry}}, "device_error"},
		{"unknown", Frame{Type: 0x42, Payload: []byte{0xDE, 0xAD}}, "unknown"},
	}
	for _, tc := range tests {
		ev, err := DecodeEvent(tc.fr)
		if err != nil {
			t.Fatalf("%s: DecodeEvent: %v", tc.name, err)
		}
		if ev.Kind() != tc.kind {
			t.Fatalf("%s: kind = %q, want %q", tc.name, ev.Kind(), tc.kind)
		}
		switch tc.fr.Type {
		case TypeTelemetry:
			if ev.Telemetry == nil || ev.Telemetry.RPM != 3000 {
				t.Fatalf("%s: telemetry variant not set", tc.name)
			}
		case TypeTroubleCodes:
			if ev.TroubleCodes == nil || len(ev.TroubleCodes.Codes) != 1 {
				t.Fatalf("%s: trouble code variant not set", tc.name)
			}
		case TypeAck:
			if ev.Ack == nil || !ev.Ack.OK {
				t.Fatalf("%s: ack variant not set", tc.name)
			}
		case TypeError:
			if ev.Err == nil || ev.Err.Code != DevErrTelemetry {
				t.Fatalf("%s: error variant not set", tc.name)
			}
		default:
			if !bytes.Equal(ev.Unknown, tc.fr.Payload) {
				t.Fatalf("%s: unknown payload not surfaced", tc.name)
			}
		}
	}
}

func TestDecodeEvent_BadTelemetryLength(t *testing.T) {
	_, err := DecodeEvent(Frame{Type: TypeTelemetry, Payload: make([]byte, 15)})
	var le *LengthError
	if !errors.As(err, &le) {
		t.Fatalf("expected LengthError, got %v", err)
	}
}
