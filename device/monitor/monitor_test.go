package monitor

import (
	"bytes"
	"io"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type nopCloser struct{ bytes.Buffer }

func (*nopCloser) Close() error { return nil }

func TestOpen(t *testing.T) {
	var gotMode *serial.Mode
	var buf nopCloser
	saved := openPort
	t.Cleanup(func() { openPort = saved })
	openPort = func(device string, mode *serial.Mode) (io.WriteCloser, error) {
		gotMode = mode
		return &buf, nil
	}

	p, err := Open("/dev/ttyUSB0", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaud, gotMode.BaudRate)
	assert.Equal(t, "/dev/ttyUSB0", p.Device())

	_, err = io.WriteString(p, "TX W4KRL-2>APRS,TCPIP*::BLNM     :Keep calm.\r\n")
	require.NoError(t, err)
	assert.Equal(t, "TX W4KRL-2>APRS,TCPIP*::BLNM     :Keep calm.\r\n", buf.String())

	require.NoError(t, p.Close())
	_, err = p.Write([]byte("late"))
	assert.Error(t, err)
	assert.NoError(t, p.Close())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("", 9600)
	assert.True(t, errors.IsNotValid(err))

	saved := openPort
	t.Cleanup(func() { openPort = saved })
	openPort = func(string, *serial.Mode) (io.WriteCloser, error) {
		return nil, errors.New("no such device")
	}
	_, err = Open("/dev/ttyUSB9", 9600)
	assert.ErrorContains(t, err, "open serial port /dev/ttyUSB9")
}
