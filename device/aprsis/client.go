// Package aprsis is a polled APRS-IS client: it dials a tier-2 server,
// logs in, waits for verification, reads inbound traffic and sends the
// scheduled bulletins. Nothing here blocks for longer than the dial and
// greeting timeouts; the host calls Client.Poll in a loop.
package aprsis

import (
	"context"
	"fmt"
	"io"
	"sagebot/aprs"
	"sagebot/log"
	"sagebot/metrics"
	"sagebot/packet"
	"sagebot/schedule"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/looplab/fsm"
	"k8s.io/utils/clock"
)

// State is the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateLoggedIn     State = "loggedIn"
	StateVerified     State = "verified"
)

var allStates = []string{
	string(StateDisconnected),
	string(StateConnected),
	string(StateLoggedIn),
	string(StateVerified),
}

const (
	eventConnect = "connect"
	eventLogin   = "login"
	eventVerify  = "verify"
	eventDrop    = "drop"
)

const (
	DefaultDialTimeout     = 10 * time.Second
	DefaultGreetingTimeout = time.Second
	DefaultIdleTimeout     = 2 * time.Minute

	// maxLinesPerPoll caps how much inbound traffic one Poll handles.
	maxLinesPerPoll = 32
)

// ErrNotReady is returned by the send methods outside the verified state.
// Nothing is queued.
var ErrNotReady = errors.New("APRS-IS session not ready")

// TextSource supplies bulletin text on demand.
type TextSource interface {
	Next() (string, error)
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	Addr            string // host:port
	DialTimeout     time.Duration
	GreetingTimeout time.Duration
	LogonTimeout    time.Duration
	IdleTimeout     time.Duration

	Dialer Dialer
	Clock  clock.PassiveClock
	Logger log.Logger

	// Tap, when set, receives a copy of every line sent and received.
	Tap io.Writer

	Scheduler *schedule.Scheduler
	Location  *time.Location
	Text      TextSource

	// Beacon is a preformatted position frame sent after each verification.
	Beacon string
}

// Report is what one Poll did.
type Report struct {
	State    State
	Received []*packet.Packet
	Sent     []string
}

// Status is a snapshot for display.
type Status struct {
	State          State
	Since          time.Time
	Connects       int
	Sent           int
	Received       [packet.NumKinds]int
	LastBulletin   string
	LastBulletinAt time.Time
}

// Client owns the session to one APRS-IS server.
type Client struct {
	creds Credentials
	opts  Options
	log   log.Logger
	clock clock.PassiveClock

	fsm       *fsm.FSM
	transport Transport
	reader    *Reader
	logon     *Logon

	since        time.Time
	connects     int
	dialFailures int
	sentCount    int
	received     [packet.NumKinds]int
	lastBulletin string
	lastBullAt   time.Time

	// lines written since the last Poll started
	sent []string
}

// NewClient checks the credentials and fills in default options. It does
// not connect; the first Poll does.
func NewClient(creds Credentials, opts Options) (*Client, error) {
	if creds.Callsign == "" {
		return nil, errors.NotValidf("empty callsign")
	}
	if opts.Addr == "" {
		return nil, errors.NotValidf("empty server address")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.GreetingTimeout <= 0 {
		opts.GreetingTimeout = DefaultGreetingTimeout
	}
	if opts.LogonTimeout <= 0 {
		opts.LogonTimeout = DefaultLogonTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = TCPDialer{Timeout: opts.DialTimeout, WriteTimeout: opts.DialTimeout}
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	c := &Client{
		creds: creds,
		opts:  opts,
		log:   log.OrNop(opts.Logger).WithName("aprsis").WithValues("call", creds.Callsign),
		clock: opts.Clock,
	}
	c.reader = NewReader(opts.IdleTimeout, c.clock, c.log)
	c.since = c.clock.Now()
	c.fsm = fsm.NewFSM(
		string(StateDisconnected),
		fsm.Events{
			{Name: eventConnect, Src: []string{string(StateDisconnected)}, Dst: string(StateConnected)},
			{Name: eventLogin, Src: []string{string(StateConnected)}, Dst: string(StateLoggedIn)},
			{Name: eventVerify, Src: []string{string(StateLoggedIn)}, Dst: string(StateVerified)},
			{Name: eventDrop, Src: []string{string(StateConnected), string(StateLoggedIn), string(StateVerified)}, Dst: string(StateDisconnected)},
		},
		fsm.Callbacks{
			"enter_state":                        c.enterState,
			"enter_" + string(StateDisconnected): c.enterDisconnected,
		},
	)

	metrics.SetState(c.fsm.Current(), allStates...)
	c.checkPasscode()
	return c, nil
}

func (c *Client) checkPasscode() {
	if c.creds.Passcode == strconv.Itoa(aprs.ReadOnlyPasscode) {
		c.log.Info("receive-only passcode, bulletins will not be gated")
		return
	}
	want, err := aprs.CalculatePasscode(c.creds.Callsign)
	if err != nil {
		c.log.Warn("cannot compute passcode for callsign", "reason", err.Error())
		return
	}
	if strconv.Itoa(want) != c.creds.Passcode {
		c.log.Warn("passcode does not match callsign, server will not verify")
	}
}

func (c *Client) enterState(_ context.Context, e *fsm.Event) {
	c.since = c.clock.Now()
	metrics.SetState(e.Dst, allStates...)
	c.log.Debug("state change", "event", e.Event, "from", e.Src, "to", e.Dst)
}

func (c *Client) enterDisconnected(_ context.Context, _ *fsm.Event) {
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	c.logon = nil
	c.reader.Reset()
}

// event fires name and ignores transitions the current state does not
// allow.
func (c *Client) event(ctx context.Context, name string) {
	err := c.fsm.Event(ctx, name)
	if err == nil {
		return
	}
	switch err.(type) {
	case fsm.NoTransitionError, fsm.InvalidEventError:
		c.log.Debug("ignored event", "event", name, "state", c.fsm.Current())
	default:
		c.log.Error(err, "state machine event failed", "event", name)
	}
}

func (c *Client) drop(ctx context.Context, reason string) {
	if c.State() == StateDisconnected {
		return
	}
	c.log.Info("disconnected", "reason", reason, "state", c.fsm.Current())
	c.event(ctx, eventDrop)
}

// State is the current connection state.
func (c *Client) State() State { return State(c.fsm.Current()) }

// Ready reports whether sends are allowed.
func (c *Client) Ready() bool { return c.State() == StateVerified }

// Poll advances the session by at most one state transition, and in the
// verified state also reads inbound traffic and runs the scheduler.
func (c *Client) Poll(ctx context.Context) Report {
	c.sent = c.sent[:0]
	var received []*packet.Packet

	switch c.State() {
	case StateDisconnected:
		_ = c.Connect(ctx)
	case StateConnected:
		c.login(ctx)
	case StateLoggedIn:
		c.verify(ctx)
	case StateVerified:
		received = c.receive(ctx)
		if c.Ready() {
			c.runSchedule()
		}
	}

	return Report{
		State:    c.State(),
		Received: received,
		Sent:     append([]string(nil), c.sent...),
	}
}

// Connect dials the server if not already connected. A greeting
// containing "full" causes one immediate redial; login follows either way.
func (c *Client) Connect(ctx context.Context) error {
	if c.State() != StateDisconnected {
		return nil
	}
	t, err := c.dial(ctx)
	if err != nil {
		return err
	}
	if c.portFull(t) {
		c.log.Info("server port full, redialing")
		t.Close()
		if t, err = c.dial(ctx); err != nil {
			return err
		}
		c.portFull(t)
	}

	c.transport = t
	c.reader.Reset()
	c.connects++
	metrics.ConnectsTotal.Inc()
	c.event(ctx, eventConnect)
	c.log.Info("connected", "addr", c.opts.Addr)
	return nil
}

func (c *Client) dial(ctx context.Context) (Transport, error) {
	t, err := c.opts.Dialer.Dial(ctx, c.opts.Addr)
	if err != nil {
		c.dialFailures++
		if c.dialFailures == 1 {
			c.log.Warn("connect failed, retrying every poll", "addr", c.opts.Addr, "reason", err.Error())
		} else {
			c.log.Debug("connect failed", "addr", c.opts.Addr, "attempt", c.dialFailures, "reason", err.Error())
		}
		return nil, errors.Annotatef(err, "connect %s", c.opts.Addr)
	}
	c.dialFailures = 0
	return t, nil
}

// portFull reads the server greeting and reports whether it says the port
// is full. A missing greeting is not an error.
func (c *Client) portFull(t Transport) bool {
	line, err := t.ReadLine(c.opts.GreetingTimeout)
	if err != nil {
		c.log.Debug("no greeting", "reason", err.Error())
		return false
	}
	c.mirror("RX", line)
	c.log.Info("server greeting", "line", line)
	return strings.Contains(line, "full")
}

func (c *Client) login(ctx context.Context) {
	if c.transport == nil || !c.transport.Connected() {
		c.drop(ctx, "connection lost before login")
		return
	}
	if err := c.transport.WriteLine(LoginLine(c.creds)); err != nil {
		c.log.Error(err, "login write failed")
		c.drop(ctx, "login write failed")
		return
	}
	c.mirror("TX", maskedLoginLine(c.creds))
	c.log.Debug("login sent", "line", maskedLoginLine(c.creds))
	c.logon = NewLogon(c.reader, c.opts.LogonTimeout, c.clock, func(line string) {
		c.mirror("RX", line)
		if strings.HasPrefix(line, "#") {
			c.log.Debug("server", "line", line)
		}
	})
	c.event(ctx, eventLogin)
}

func (c *Client) verify(ctx context.Context) {
	if c.logon == nil {
		c.drop(ctx, "no logon in progress")
		return
	}
	result := c.logon.Poll(c.transport)
	if result != LogonPending {
		metrics.LogonsTotal.WithLabelValues(result.String()).Inc()
	}
	switch result {
	case LogonPending:
		return
	case LogonVerified:
		c.log.Info("logon verified", "response", c.logon.Response())
		c.logon = nil
		c.event(ctx, eventVerify)
		c.sendBeacon()
	default:
		c.log.Warn("logon failed", "result", result.String(), "response", c.logon.Response())
		c.drop(ctx, "logon "+result.String())
	}
}

func (c *Client) sendBeacon() {
	if c.opts.Beacon == "" {
		return
	}
	if err := c.Send(c.opts.Beacon); err != nil {
		c.log.Error(err, "beacon not sent")
	}
}

func (c *Client) receive(ctx context.Context) []*packet.Packet {
	var pkts []*packet.Packet
	for i := 0; i < maxLinesPerPoll; i++ {
		if c.transport == nil {
			break
		}
		line, ok := c.reader.ReadLine(c.transport)
		if !ok {
			break
		}
		pkt := c.handle(line)
		pkts = append(pkts, pkt)
		if !c.Ready() {
			return pkts
		}
	}
	if c.transport == nil || !c.transport.Connected() {
		c.drop(ctx, "connection lost")
	}
	return pkts
}

func (c *Client) handle(line string) *packet.Packet {
	c.mirror("RX", line)
	pkt := aprs.Classify(line)
	c.received[pkt.Kind]++
	metrics.LinesReceivedTotal.WithLabelValues(pkt.Kind.String()).Inc()

	switch pkt.Kind {
	case packet.KindComment:
		c.log.Debug("server", "line", line)
	case packet.KindBulletin:
		c.log.Info("bulletin heard", "from", pkt.Callsign, "text", pkt.MsgBody)
	case packet.KindMessage:
		if strings.EqualFold(pkt.MsgTo, c.creds.Callsign) && pkt.MsgID != "" {
			c.log.Info("message for us", "from", pkt.Callsign, "id", pkt.MsgID, "text", pkt.MsgBody)
			if err := c.SendAck(pkt.Callsign, pkt.MsgID); err != nil {
				c.log.Error(err, "ack not sent", "to", pkt.Callsign)
			}
		}
	}
	return pkt
}

func (c *Client) runSchedule() {
	if c.opts.Scheduler == nil {
		return
	}
	now := c.clock.Now().In(c.opts.Location)
	for _, slot := range c.opts.Scheduler.PollTime(now) {
		if c.opts.Text == nil {
			c.log.Warn("bulletin due but no text source", "slot", slot.Name)
			continue
		}
		text, err := c.opts.Text.Next()
		if err != nil {
			c.log.Error(err, "no bulletin text", "slot", slot.Name)
			continue
		}
		if err := c.SendBulletin(aprs.Bulletin{ID: slot.ID, Text: text}); err != nil {
			c.log.Error(err, "bulletin not sent", "slot", slot.Name)
			continue
		}
		c.log.Info("bulletin sent", "slot", slot.Name, "text", text)
	}
}

// Send writes one preformatted line. A write failure drops the session.
func (c *Client) Send(line string) error {
	if !c.Ready() || c.transport == nil {
		metrics.LinesSentTotal.WithLabelValues("rejected").Inc()
		return ErrNotReady
	}
	if err := c.transport.WriteLine(line); err != nil {
		metrics.LinesSentTotal.WithLabelValues("failed").Inc()
		c.drop(context.Background(), "write failed")
		return errors.Annotate(err, "send")
	}
	metrics.LinesSentTotal.WithLabelValues("success").Inc()
	c.mirror("TX", line)
	c.sentCount++
	c.sent = append(c.sent, line)
	return nil
}

// SendBulletin formats and sends b. Invalid or oversize text is rejected
// before anything is written.
func (c *Client) SendBulletin(b aprs.Bulletin) error {
	frame, err := aprs.FormatBulletin(c.creds.Callsign, b)
	if err != nil {
		return err
	}
	if err := c.Send(frame); err != nil {
		return err
	}
	c.lastBulletin = b.Text
	c.lastBullAt = c.clock.Now()
	return nil
}

// SendAck acknowledges message id from the given station.
func (c *Client) SendAck(to, id string) error {
	if id == "" {
		return errors.NotValidf("empty message id")
	}
	return c.Send(aprs.FormatAck(c.creds.Callsign, to, id))
}

// Status returns counters and state for display.
func (c *Client) Status() Status {
	return Status{
		State:          c.State(),
		Since:          c.since,
		Connects:       c.connects,
		Sent:           c.sentCount,
		Received:       c.received,
		LastBulletin:   c.lastBulletin,
		LastBulletinAt: c.lastBullAt,
	}
}

// Close ends the session. The next Poll reconnects.
func (c *Client) Close() error {
	if c.State() == StateDisconnected {
		return nil
	}
	c.drop(context.Background(), "closed")
	return nil
}

func (c *Client) mirror(dir, line string) {
	if c.opts.Tap == nil {
		return
	}
	if _, err := fmt.Fprintf(c.opts.Tap, "%s %s\r\n", dir, line); err != nil {
		c.log.Debug("tap write failed", "reason", err.Error())
	}
}
