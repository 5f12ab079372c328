package aprsis

import (
	"bytes"
	"context"
	"sagebot/aprs"
	"sagebot/log"
	"sagebot/packet"
	"sagebot/schedule"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	testingclock "k8s.io/utils/clock/testing"
)

const (
	greeting = "# aprsc 2.1.14-g5e22b37"
	logresp  = "# logresp W4KRL-2 verified, server T2TEST"
)

var testCreds = Credentials{
	Callsign: "W4KRL-2",
	Passcode: "9092",
	Software: "SAGEBOT",
	Version:  "1.0",
	Filter:   "b/W4KRL-2*",
}

func newTestClient(t *testing.T, d Dialer, clk *testingclock.FakeClock, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{
		Addr:     "rotate.aprs2.net:14580",
		Dialer:   d,
		Clock:    clk,
		Location: time.UTC,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewClient(testCreds, opts)
	require.NoError(t, err)
	return c
}

// verifiedClient walks a fresh client through connect, login and verify.
func verifiedClient(t *testing.T, clk *testingclock.FakeClock, mutate func(*Options)) (*Client, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport(greeting)
	c := newTestClient(t, &fakeDialer{transports: []*fakeTransport{ft}}, clk, mutate)
	ctx := context.Background()

	assert.Equal(t, StateConnected, c.Poll(ctx).State)
	assert.Equal(t, StateLoggedIn, c.Poll(ctx).State)
	ft.feed(logresp)
	require.Equal(t, StateVerified, c.Poll(ctx).State)
	return c, ft
}

func TestClientHandshake(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	var tap bytes.Buffer
	c, ft := verifiedClient(t, clk, func(o *Options) { o.Tap = &tap })

	require.Len(t, ft.writes, 1)
	assert.Equal(t, "user W4KRL-2 pass 9092 vers SAGEBOT 1.0 filter b/W4KRL-2*", ft.writes[0])
	assert.True(t, c.Ready())

	st := c.Status()
	assert.Equal(t, StateVerified, st.State)
	assert.Equal(t, 1, st.Connects)

	assert.Contains(t, tap.String(), "RX "+greeting+"\r\n")
	assert.Contains(t, tap.String(), "TX user W4KRL-2 pass **** vers")
	assert.NotContains(t, tap.String(), "9092")
	assert.Contains(t, tap.String(), "RX "+logresp+"\r\n")
}

func TestClientConnectFails(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	d := &fakeDialer{}
	c := newTestClient(t, d, clk, nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateDisconnected, c.Poll(context.Background()).State)
	}
	assert.Equal(t, 3, d.dials)
	assert.Error(t, c.Connect(context.Background()))
}

func TestClientConnectIdempotent(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	d := &fakeDialer{transports: []*fakeTransport{newFakeTransport(greeting)}}
	c := newTestClient(t, d, clk, nil)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 1, d.dials)
	assert.Equal(t, StateConnected, c.State())
}

func TestClientPortFullRedials(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	full := newFakeTransport("# port full")
	second := newFakeTransport("# port full")
	d := &fakeDialer{transports: []*fakeTransport{full, second}}
	c := newTestClient(t, d, clk, nil)

	assert.Equal(t, StateConnected, c.Poll(context.Background()).State)
	assert.Equal(t, 2, d.dials, "exactly one redial")
	assert.True(t, full.closed)
	assert.False(t, second.closed, "login proceeds on the second connection")

	assert.Equal(t, StateLoggedIn, c.Poll(context.Background()).State)
	assert.Len(t, second.writes, 1)
	assert.Empty(t, full.writes)
}

func TestClientPortFullRedialFails(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	full := newFakeTransport("# port full")
	d := &fakeDialer{transports: []*fakeTransport{full, nil}}
	c := newTestClient(t, d, clk, nil)

	assert.Equal(t, StateDisconnected, c.Poll(context.Background()).State)
	assert.True(t, full.closed)
}

func TestClientLogonTimeout(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	ft := newFakeTransport(greeting)
	c := newTestClient(t, &fakeDialer{transports: []*fakeTransport{ft}}, clk, nil)
	ctx := context.Background()

	c.Poll(ctx)
	assert.Equal(t, StateLoggedIn, c.Poll(ctx).State)

	clk.Step(time.Second)
	assert.Equal(t, StateLoggedIn, c.Poll(ctx).State)
	clk.Step(1100 * time.Millisecond)
	assert.Equal(t, StateDisconnected, c.Poll(ctx).State)
	assert.True(t, ft.closed)
	assert.False(t, c.Ready())
}

func TestClientLogonRejected(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	ft := newFakeTransport(greeting)
	c := newTestClient(t, &fakeDialer{transports: []*fakeTransport{ft}}, clk, nil)
	ctx := context.Background()

	c.Poll(ctx)
	c.Poll(ctx)
	ft.feed("# logresp W4KRL-2 unverified, server T2TEST")
	assert.Equal(t, StateDisconnected, c.Poll(ctx).State)
}

func TestClientSendNotReady(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	ft := newFakeTransport(greeting)
	c := newTestClient(t, &fakeDialer{transports: []*fakeTransport{ft}}, clk, nil)

	assert.Equal(t, ErrNotReady, c.Send("W4KRL-2>APRS,TCPIP*:>hello"))

	c.Poll(context.Background())
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, ErrNotReady, c.SendBulletin(aprs.Bulletin{ID: 'M', Text: "Keep calm."}))
	assert.Equal(t, ErrNotReady, c.SendAck("KD2YCB", "1"))
	assert.Empty(t, ft.writes)
}

func TestClientSendBulletin(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	c, ft := verifiedClient(t, clk, nil)
	before := len(ft.writes)

	err := c.SendBulletin(aprs.Bulletin{ID: 'M', Text: strings.Repeat("x", aprs.MaxBulletinLen+1)})
	require.Error(t, err)
	assert.Equal(t, aprs.ErrBulletinTooLong, errors.Cause(err))
	assert.Len(t, ft.writes, before, "oversize bulletin is never written")

	require.NoError(t, c.SendBulletin(aprs.Bulletin{ID: 'M', Text: "Keep calm."}))
	require.Len(t, ft.writes, before+1)
	assert.Contains(t, ft.lastWrite(), ":BLNM")
	assert.Equal(t, "W4KRL-2>APRS,TCPIP*::BLNM     :Keep calm.", ft.lastWrite())

	st := c.Status()
	assert.Equal(t, "Keep calm.", st.LastBulletin)
	assert.Equal(t, epoch, st.LastBulletinAt)
	assert.Equal(t, 1, st.Sent)
}

func TestClientWriteFailureDrops(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	c, ft := verifiedClient(t, clk, nil)
	ft.writeErr = errors.New("broken pipe")

	assert.Error(t, c.SendBulletin(aprs.Bulletin{ID: 'E', Text: "Good night."}))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientScheduledBulletins(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	c, ft := verifiedClient(t, clk, func(o *Options) {
		o.Scheduler = schedule.NewDefault()
		o.Text = fixedText("Keep calm.")
	})
	ctx := context.Background()
	written := len(ft.writes)

	// 07:59:30 to 08:01:00 in irregular steps
	var sent []string
	for _, step := range []time.Duration{0, 17 * time.Second, 13 * time.Second, 20 * time.Second, 40 * time.Second} {
		clk.Step(step)
		r := c.Poll(ctx)
		require.Equal(t, StateVerified, r.State)
		sent = append(sent, r.Sent...)
	}
	require.Len(t, sent, 1)
	assert.Equal(t, "W4KRL-2>APRS,TCPIP*::BLNM     :Keep calm.", sent[0])
	assert.Len(t, ft.writes, written+1)

	// keep the link alive until the evening slot
	for clk.Now().Before(time.Date(2026, 10, 19, 20, 0, 30, 0, time.UTC)) {
		clk.Step(30 * time.Second)
		ft.feed("# server keepalive")
		sent = append(sent, c.Poll(ctx).Sent...)
	}
	require.Len(t, sent, 2)
	assert.Equal(t, "W4KRL-2>APRS,TCPIP*::BLNE     :Keep calm.", sent[1])
}

func TestClientAutoAck(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	c, ft := verifiedClient(t, clk, nil)

	ft.feed("KD2YCB-9>APDR16,TCPIP*,qAC,T2X::W4KRL-2  :hello there{17")
	ft.feed("KD2YCB-9>APDR16,TCPIP*,qAC,T2X::N0CALL   :not for us{18")
	ft.feed("KD2YCB>APRS,TCPIP*::BLN1     :Net tonight 8pm")
	r := c.Poll(context.Background())

	require.Len(t, r.Received, 3)
	assert.Equal(t, packet.KindMessage, r.Received[0].Kind)
	assert.Equal(t, packet.KindBulletin, r.Received[2].Kind)
	assert.Equal(t, []string{"W4KRL-2>APRS,TCPIP*::KD2YCB-9 :ack17"}, r.Sent)

	st := c.Status()
	assert.Equal(t, 2, st.Received[packet.KindMessage])
	assert.Equal(t, 1, st.Received[packet.KindBulletin])
	assert.Zero(t, st.Received[packet.KindComment], "logon lines are not counted")
}

func TestClientRemoteDrop(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	ft := newFakeTransport(greeting)
	next := newFakeTransport(greeting)
	d := &fakeDialer{transports: []*fakeTransport{ft, next}}
	c := newTestClient(t, d, clk, nil)
	ctx := context.Background()
	c.Poll(ctx)
	c.Poll(ctx)
	ft.feed(logresp)
	require.Equal(t, StateVerified, c.Poll(ctx).State)

	ft.feed("# last words")
	ft.Close()
	assert.Equal(t, StateDisconnected, c.Poll(ctx).State)

	assert.Equal(t, StateConnected, c.Poll(ctx).State, "reconnects on the next poll")
	assert.Equal(t, 2, c.Status().Connects)
}

func TestClientIdleDrop(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	c, ft := verifiedClient(t, clk, func(o *Options) { o.IdleTimeout = 30 * time.Second })

	clk.Step(31 * time.Second)
	assert.Equal(t, StateDisconnected, c.Poll(context.Background()).State)
	assert.True(t, ft.closed)
}

func TestClientClose(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakeClock(epoch)
	c, ft := verifiedClient(t, clk, nil)
	require.NoError(t, c.Close())
	assert.True(t, ft.closed)
	assert.Equal(t, StateDisconnected, c.State())
	require.NoError(t, c.Close())
}

func TestClientPasscodeWarning(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	creds := testCreds
	creds.Passcode = "1234"
	_, err := NewClient(creds, Options{Addr: "localhost:14580", Logger: log.FromZap(zap.New(core))})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("passcode does not match callsign, server will not verify").Len())

	_, err = NewClient(Credentials{}, Options{Addr: "localhost:14580"})
	assert.True(t, errors.IsNotValid(err))
}
