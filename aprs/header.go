package aprs

import (
	"strings"

	"github.com/juju/errors"
)

// maxCallLen is the longest source callsign APRS-IS relays, SSID included.
const maxCallLen = 9

// splitHeader splits a TNC2 line CALL>DEST,PATH:payload into the source
// callsign and the payload.
func splitHeader(line string) (string, string, error) {
	separatorIndex := strings.IndexByte(line, ':')
	if separatorIndex == -1 {
		return "", "", errors.NotValidf("line without payload separator")
	}
	headerPart := line[:separatorIndex]
	payload := line[separatorIndex+1:]

	callEndIndex := strings.IndexByte(headerPart, '>')
	if callEndIndex == -1 {
		return "", "", errors.NotValidf("header %q without '>'", headerPart)
	}
	src := headerPart[:callEndIndex]
	if len(src) == 0 || len(src) > maxCallLen {
		return "", "", errors.NotValidf("source callsign %q", src)
	}
	return src, payload, nil
}
