package aprs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadCall(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "K", "N0CALL", "W4KRL-2", "KD2YCB-15"} {
		out := PadCall(in)
		assert.Len(t, out, 9, "%q", in)
		assert.True(t, strings.HasPrefix(out, in), "%q -> %q", in, out)
		assert.Equal(t, in, strings.TrimRight(out, " "))
	}
	assert.Equal(t, "VERYLONGC", PadCall("VERYLONGCALL-10"))
	assert.Equal(t, "W4KRL-2  ", PadCall("W4KRL-2"))
}

func TestPad(t *testing.T) {
	t.Parallel()
	cases := []struct {
		v     float64
		width int
		want  string
	}{
		{0, 3, "000"},
		{7, 3, "007"},
		{7.49, 3, "007"},
		{7.5, 3, "008"},
		{1013.2, 5, "01013"},
		{12345, 3, "12345"},
		{-4.6, 3, "-05"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Pad(c.v, c.width), "Pad(%v, %d)", c.v, c.width)
	}
}
