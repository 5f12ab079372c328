package aprsis

import (
	"sagebot/log"
	"strings"
	"time"

	"k8s.io/utils/clock"
)

// maxLineLen bounds the partial-line buffer. A longer run without a line
// feed is handed out as a line of its own.
const maxLineLen = 512

// Reader assembles newline-terminated lines from a Transport without
// blocking. Each ReadLine call consumes at most the bytes available at that
// moment; callers poll it repeatedly.
//
// If no byte arrives for longer than the idle timeout, ReadLine closes the
// transport.
type Reader struct {
	idle         time.Duration
	clock        clock.PassiveClock
	log          log.Logger
	buf          []byte
	lastProgress time.Time
}

func NewReader(idle time.Duration, clk clock.PassiveClock, logger log.Logger) *Reader {
	return &Reader{
		idle:         idle,
		clock:        clk,
		log:          log.OrNop(logger),
		buf:          make([]byte, 0, 128),
		lastProgress: clk.Now(),
	}
}

// Reset drops any partial line and restarts the idle timer.
func (r *Reader) Reset() {
	r.buf = r.buf[:0]
	r.lastProgress = r.clock.Now()
}

// ReadLine returns the next complete line with its terminator stripped, or
// ok=false when no full line is ready. A disconnected transport returns
// ok=false at once and is not counted as idle time.
func (r *Reader) ReadLine(t Transport) (string, bool) {
	if t == nil || !t.Connected() {
		return "", false
	}

	n := t.Available()
	if n == 0 {
		if idle := r.clock.Since(r.lastProgress); r.idle > 0 && idle > r.idle {
			r.log.Warn("APRS-IS idle timeout, closing connection", "idle", idle, "partial", len(r.buf))
			t.Close()
			r.buf = r.buf[:0]
		}
		return "", false
	}

	r.lastProgress = r.clock.Now()
	for i := 0; i < n; i++ {
		b, err := t.ReadByte()
		if err != nil {
			return "", false
		}
		if b == '\n' {
			line := strings.TrimSuffix(string(r.buf), "\r")
			r.buf = r.buf[:0]
			return line, true
		}
		r.buf = append(r.buf, b)
		if len(r.buf) >= maxLineLen {
			line := string(r.buf)
			r.buf = r.buf[:0]
			return line, true
		}
	}
	return "", false
}
