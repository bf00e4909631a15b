//go:build linux

package emulator

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Device is the master end of a pseudo-terminal pair. The fake adapter owns
// the master; the serial backend opens SlavePath like any other tty.
type Device struct {
	master *os.File
	slave  string
}

// OpenPTY allocates a pty pair and puts the master in raw mode so the tty
// layer does not echo or translate protocol bytes.
func OpenPTY() (*Device, error) {
	m, err := os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open ptmx: %w", err)
	}
	fd := int(m.Fd())
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("unlock pty: %w", err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("pty number: %w", err)
	}
	if err := makeRaw(fd); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	return &Device{master: m, slave: fmt.Sprintf("/dev/pts/%d", n)}, nil
}

func makeRaw(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

func (d *Device) Read(p []byte) (int, error)  { return d.master.Read(p) }
func (d *Device) Write(p []byte) (int, error) { return d.master.Write(p) }
func (d *Device) Close() error                { return d.master.Close() }

// SlavePath is the tty path the serial backend should open.
func (d *Device) SlavePath() string { return d.slave }
