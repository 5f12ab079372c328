package aprs

import (
	"strings"

	"github.com/juju/errors"
)

// ReadOnlyPasscode logs in without transmit rights.
const ReadOnlyPasscode = -1

// CalculatePasscode generates the APRS-IS passcode for a given callsign.
// The SSID does not take part.
func CalculatePasscode(callsign string) (int, error) {
	call := strings.ToUpper(strings.Split(callsign, "-")[0])

	if len(call) > 6 || len(call) < 1 {
		return 0, errors.NotValidf("callsign %q for passcode", callsign)
	}

	hash := 0x73e2
	high := true // alternate between the high and low byte

	for _, char := range call {
		shift := 0
		if high {
			shift = 8
		}
		hash ^= int(char) << shift
		high = !high
	}

	return hash & 0x7fff, nil
}
