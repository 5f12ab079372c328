// Package monitor mirrors APRS-IS traffic to a serial port, so a terminal
// or display on the other end can follow what the station sends and hears.
package monitor

import (
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"go.bug.st/serial"
)

// DefaultBaud is used when no rate is configured.
const DefaultBaud = 115200

// Port is a write-only serial mirror. It is safe for concurrent use.
type Port struct {
	mu     sync.Mutex
	w      io.WriteCloser
	device string
}

// openPort is replaced in tests.
var openPort = func(device string, mode *serial.Mode) (io.WriteCloser, error) {
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	// nothing is read back; a short timeout keeps a stray Read from hanging
	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Open opens device (e.g. /dev/ttyUSB0 or COM3) at baud, 8N1.
func Open(device string, baud int) (*Port, error) {
	if device == "" {
		return nil, errors.NotValidf("empty serial device")
	}
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	w, err := openPort(device, mode)
	if err != nil {
		return nil, errors.Annotatef(err, "open serial port %s", device)
	}
	return &Port{w: w, device: device}, nil
}

// Device is the path the port was opened with.
func (p *Port) Device() string { return p.device }

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == nil {
		return 0, errors.Errorf("serial port %s closed", p.device)
	}
	n, err := p.w.Write(b)
	return n, errors.Trace(err)
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == nil {
		return nil
	}
	err := p.w.Close()
	p.w = nil
	return errors.Trace(err)
}
