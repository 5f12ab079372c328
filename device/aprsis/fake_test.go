package aprsis

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
)

// fakeTransport is an in-memory Transport. Bytes fed to it become
// readable; written lines are recorded.
type fakeTransport struct {
	in       []byte
	writes   []string
	closed   bool
	writeErr error
}

func newFakeTransport(lines ...string) *fakeTransport {
	f := &fakeTransport{}
	for _, l := range lines {
		f.feed(l)
	}
	return f
}

func (f *fakeTransport) feed(line string) {
	f.in = append(f.in, line...)
	f.in = append(f.in, '\r', '\n')
}

func (f *fakeTransport) feedRaw(s string) { f.in = append(f.in, s...) }

func (f *fakeTransport) Connected() bool { return !f.closed }

func (f *fakeTransport) Available() int {
	if f.closed {
		return 0
	}
	return len(f.in)
}

func (f *fakeTransport) ReadByte() (byte, error) {
	if len(f.in) == 0 {
		return 0, errNoData
	}
	b := f.in[0]
	f.in = f.in[1:]
	return b, nil
}

func (f *fakeTransport) ReadLine(time.Duration) (string, error) {
	if f.closed {
		return "", errClosed
	}
	i := bytes.IndexByte(f.in, '\n')
	if i < 0 {
		return "", errors.Timeoutf("greeting")
	}
	line := strings.TrimSuffix(string(f.in[:i]), "\r")
	f.in = f.in[i+1:]
	return line, nil
}

func (f *fakeTransport) WriteLine(line string) error {
	if f.closed {
		return errClosed
	}
	if f.writeErr != nil {
		f.closed = true
		return f.writeErr
	}
	f.writes = append(f.writes, line)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) lastWrite() string {
	if len(f.writes) == 0 {
		return ""
	}
	return f.writes[len(f.writes)-1]
}

// fakeDialer hands out transports in order; a nil entry is a refused
// connection.
type fakeDialer struct {
	transports []*fakeTransport
	dials      int
}

func (d *fakeDialer) Dial(context.Context, string) (Transport, error) {
	d.dials++
	if len(d.transports) == 0 {
		return nil, errors.New("connection refused")
	}
	t := d.transports[0]
	d.transports = d.transports[1:]
	if t == nil {
		return nil, errors.New("connection refused")
	}
	return t, nil
}

type fixedText string

func (s fixedText) Next() (string, error) { return string(s), nil }
