package aprsis

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/juju/errors"
)

// Transport is one TCP session to an APRS-IS server. Connected, Available
// and ReadByte never block; ReadLine blocks at most for its timeout.
type Transport interface {
	Connected() bool
	// Available reports how many received bytes can be read right now.
	Available() int
	ReadByte() (byte, error)
	// ReadLine waits up to timeout for a full line and returns it without
	// the terminator.
	ReadLine(timeout time.Duration) (string, error)
	// WriteLine sends line followed by CRLF.
	WriteLine(line string) error
	Close() error
}

// Dialer opens a fresh Transport.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Transport, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, addr string) (Transport, error)

func (f DialFunc) Dial(ctx context.Context, addr string) (Transport, error) {
	return f(ctx, addr)
}

var (
	errClosed = errors.New("transport closed")
	errNoData = errors.New("no data available")
)

// TCPDialer connects over plain TCP.
type TCPDialer struct {
	Timeout time.Duration
	// PollWait is how long Available waits for bytes when none are buffered.
	PollWait     time.Duration
	WriteTimeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "dial %s", addr)
	}
	pollWait := d.PollWait
	if pollWait <= 0 {
		pollWait = time.Millisecond
	}
	return &tcpTransport{
		conn:         conn,
		scratch:      make([]byte, 4096),
		pollWait:     pollWait,
		writeTimeout: d.WriteTimeout,
	}, nil
}

type tcpTransport struct {
	conn         net.Conn
	buf          []byte // received, not yet consumed
	scratch      []byte
	closed       bool
	pollWait     time.Duration
	writeTimeout time.Duration
}

func (t *tcpTransport) Connected() bool { return !t.closed }

// fill does one read with the given deadline. A timeout leaves the
// transport open; any other error closes it.
func (t *tcpTransport) fill(deadline time.Time) error {
	if t.closed {
		return errClosed
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		t.Close()
		return errors.Trace(err)
	}
	n, err := t.conn.Read(t.scratch)
	t.buf = append(t.buf, t.scratch[:n]...)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return err
		}
		t.Close()
		if err == io.EOF {
			return errors.Annotate(errClosed, "remote closed")
		}
		return errors.Trace(err)
	}
	return nil
}

func (t *tcpTransport) Available() int {
	if len(t.buf) == 0 && !t.closed {
		_ = t.fill(time.Now().Add(t.pollWait))
	}
	return len(t.buf)
}

func (t *tcpTransport) ReadByte() (byte, error) {
	if len(t.buf) == 0 {
		return 0, errNoData
	}
	b := t.buf[0]
	t.buf = t.buf[1:]
	return b, nil
}

func (t *tcpTransport) ReadLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.IndexByte(t.buf, '\n'); i >= 0 {
			line := strings.TrimSuffix(string(t.buf[:i]), "\r")
			t.buf = append(t.buf[:0], t.buf[i+1:]...)
			return line, nil
		}
		if err := t.fill(deadline); err != nil {
			return "", err
		}
	}
}

func (t *tcpTransport) WriteLine(line string) error {
	if t.closed {
		return errClosed
	}
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	if _, err := io.WriteString(t.conn, line+"\r\n"); err != nil {
		t.Close()
		return errors.Annotate(err, "write")
	}
	return nil
}

func (t *tcpTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
