package aprsis

import (
	"strings"
	"time"

	"k8s.io/utils/clock"
)

// DefaultLogonTimeout bounds the wait for the server's logresp line.
const DefaultLogonTimeout = 2 * time.Second

// Credentials identify the station to the server. They are fixed for the
// life of a Client.
type Credentials struct {
	Callsign string // call-SSID
	Passcode string // numeric, "-1" for receive-only
	Software string
	Version  string
	Filter   string // server-side filter, e.g. b/W4KRL-2*
}

// LoginLine builds the APRS-IS login:
//
//	user CALL pass PASSCODE vers SOFTWARE VERSION filter FILTER
func LoginLine(c Credentials) string {
	line := "user " + c.Callsign + " pass " + c.Passcode + " vers " + c.Software + " " + c.Version
	if c.Filter != "" {
		line += " filter " + c.Filter
	}
	return line
}

// maskedLoginLine is LoginLine with the passcode hidden, for logs.
func maskedLoginLine(c Credentials) string {
	c.Passcode = "****"
	return LoginLine(c)
}

// LogonResult is the outcome of one Logon.Poll.
type LogonResult int

const (
	LogonPending LogonResult = iota
	LogonVerified
	LogonRejected
	LogonTimedOut
	LogonDropped
)

func (r LogonResult) String() string {
	switch r {
	case LogonPending:
		return "pending"
	case LogonVerified:
		return "verified"
	case LogonRejected:
		return "unverified"
	case LogonTimedOut:
		return "timed out"
	case LogonDropped:
		return "connection dropped"
	}
	return "unknown"
}

// Logon waits for the server's verdict on a login line already sent. It is
// polled, never blocks, and gives up once the timeout has passed since it
// was created.
type Logon struct {
	reader   *Reader
	timeout  time.Duration
	clock    clock.PassiveClock
	started  time.Time
	response string
	observe  func(line string)
}

// NewLogon starts the verification timer. observe, when not nil, sees
// every line read while waiting.
func NewLogon(reader *Reader, timeout time.Duration, clk clock.PassiveClock, observe func(string)) *Logon {
	if timeout <= 0 {
		timeout = DefaultLogonTimeout
	}
	return &Logon{
		reader:  reader,
		timeout: timeout,
		clock:   clk,
		started: clk.Now(),
		observe: observe,
	}
}

// Response is the last server line that settled the logon, if any.
func (l *Logon) Response() string { return l.response }

// Poll consumes the lines available now and reports progress. Only
// server lines ('#') are considered; a line containing "unverified" is a
// definitive rejection, one containing "verified" is success, anything
// else is skipped.
func (l *Logon) Poll(t Transport) LogonResult {
	if t == nil || !t.Connected() {
		return LogonDropped
	}
	for {
		line, ok := l.reader.ReadLine(t)
		if !ok {
			break
		}
		if l.observe != nil {
			l.observe(line)
		}
		if result := classifyLogresp(line); result != LogonPending {
			l.response = line
			return result
		}
	}
	if !t.Connected() {
		return LogonDropped
	}
	if l.clock.Since(l.started) > l.timeout {
		return LogonTimedOut
	}
	return LogonPending
}

func classifyLogresp(line string) LogonResult {
	if !strings.HasPrefix(line, "#") {
		return LogonPending
	}
	switch {
	case strings.Contains(line, "unverified"):
		return LogonRejected
	case strings.Contains(line, "verified"):
		return LogonVerified
	}
	return LogonPending
}
