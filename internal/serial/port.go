package serial

import (
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens the adapter device. Bytes the OS queued before we attached are
// flushed so the parser starts on live data instead of stale fragments.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Flush(); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}
