// Package emulator hosts a fake diagnostic adapter for development and
// tests. The adapter speaks the device side of the wire protocol over any
// byte stream; on linux it usually sits on the master side of a
// pseudo-terminal so the regular serial backend can open the slave path
// without hardware attached.
package emulator

import (
	"context"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"

	"github.com/openhobd/go-hobd-server/internal/hobd"
)

// Adapter answers host commands the way the real firmware does: a telemetry
// frame on CmdGetTelemetry, stored trouble codes on CmdGetTroubleCodes, a
// code clear plus ACK on CmdReset and ERR 0xFF for anything else.
type Adapter struct {
	rw  io.ReadWriter
	sum hobd.Checksum
	rng *rand.Rand

	mu    sync.Mutex
	codes []byte
	state telemetryState
}

// telemetryState holds the drifting sensor values in raw wire units
// (tenths, hundredths, thousandths) so packing is a straight big-endian
// write.
type telemetryState struct {
	rpm      int
	speed    int
	coolant  int // tenths of a degree C
	intake   int // tenths of a degree C
	manifold int // tenths of a kPa
	throttle int // tenths of a percent
	battery  int // hundredths of a volt
	o2       int // thousandths of a volt
	flags    hobd.StatusFlags
	rpmUp    bool
}

type AdapterOption func(*Adapter)

// WithChecksum selects the scheme used to frame replies. Defaults to the
// firmware complement-sum.
func WithChecksum(sum hobd.Checksum) AdapterOption {
	return func(a *Adapter) { a.sum = sum }
}

// WithTroubleCodes seeds the stored trouble codes returned until a reset
// clears them.
func WithTroubleCodes(codes []byte) AdapterOption {
	return func(a *Adapter) { a.codes = append([]byte(nil), codes...) }
}

// WithSeed fixes the jitter source for reproducible runs.
func WithSeed(seed int64) AdapterOption {
	return func(a *Adapter) { a.rng = rand.New(rand.NewSource(seed)) }
}

func NewAdapter(rw io.ReadWriter, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		rw:    rw,
		sum:   hobd.DeviceChecksum,
		rng:   rand.New(rand.NewSource(1)),
		codes: []byte{0x14, 0x29},
		state: telemetryState{
			rpm:      850,
			coolant:  420, // cold start, warms toward operating temp
			intake:   210,
			manifold: 320,
			battery:  1390,
			o2:       450,
			rpmUp:    true,
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run serves commands until ctx is cancelled or the stream errors out.
// Closing the underlying stream is the usual way to stop it.
func (a *Adapter) Run(ctx context.Context) error {
	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := a.rw.Read(buf)
		for _, b := range buf[:n] {
			if werr := a.handle(hobd.Command(b)); werr != nil {
				return werr
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (a *Adapter) handle(cmd hobd.Command) error {
	switch cmd {
	case hobd.CmdGetTelemetry:
		return a.reply(hobd.TypeTelemetry, a.nextTelemetry())
	case hobd.CmdGetTroubleCodes:
		a.mu.Lock()
		p := make([]byte, 1+len(a.codes))
		p[0] = byte(len(a.codes))
		copy(p[1:], a.codes)
		a.mu.Unlock()
		return a.reply(hobd.TypeTroubleCodes, p)
	case hobd.CmdReset:
		a.mu.Lock()
		a.codes = nil
		a.mu.Unlock()
		return a.reply(hobd.TypeAck, []byte{0x01})
	default:
		return a.reply(hobd.TypeError, []byte{hobd.DevErrUnknownCommand})
	}
}

func (a *Adapter) reply(typ byte, payload []byte) error {
	_, err := a.rw.Write(hobd.EncodeFrame(typ, payload, a.sum))
	return err
}

// nextTelemetry advances the drifting state one step and packs it into the
// fixed 16 byte telemetry payload.
func (a *Adapter) nextTelemetry() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &a.state

	// idle-to-redline sweep with a little jitter
	step := 60 + a.rng.Intn(120)
	if s.rpmUp {
		s.rpm += step
	} else {
		s.rpm -= step
	}
	if s.rpm >= 6800 {
		s.rpm = 6800
		s.rpmUp = false
	}
	if s.rpm <= 850 {
		s.rpm = 850
		s.rpmUp = true
	}
	s.speed = s.rpm / 40
	if s.speed > 255 {
		s.speed = 255
	}
	if s.coolant < 920 {
		s.coolant += 3
	}
	s.intake = 210 + a.rng.Intn(30)
	s.throttle = (s.rpm - 850) * 1000 / 5950
	s.manifold = 300 + s.throttle/2
	s.battery = 1380 + a.rng.Intn(40)
	s.o2 = 100 + a.rng.Intn(800)
	if s.rpm >= 5500 {
		s.flags |= hobd.FlagVTEC
	} else {
		s.flags &^= hobd.FlagVTEC
	}
	p := make([]byte, hobd.TelemetrySize)
	binary.BigEndian.PutUint16(p[0:2], uint16(s.rpm))
	p[2] = byte(s.speed)
	binary.BigEndian.PutUint16(p[3:5], uint16(int16(s.coolant)))
	binary.BigEndian.PutUint16(p[5:7], uint16(int16(s.intake)))
	binary.BigEndian.PutUint16(p[7:9], uint16(int16(s.manifold)))
	binary.BigEndian.PutUint16(p[9:11], uint16(int16(s.throttle)))
	binary.BigEndian.PutUint16(p[11:13], uint16(s.battery))
	binary.BigEndian.PutUint16(p[13:15], uint16(s.o2))
	p[15] = byte(s.flags)
	return p
}
