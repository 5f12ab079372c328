package aprs

import (
	"fmt"
	"math"
)

// addresseeLen is the fixed width of a message addressee, SSID included.
const addresseeLen = 9

// PadCall left-justifies call in exactly nine characters, padding with
// spaces or truncating.
func PadCall(call string) string {
	return fmt.Sprintf("%-*.*s", addresseeLen, addresseeLen, call)
}

// Pad rounds v half away from zero and zero-pads it to width digits.
// Used for telemetry-style numeric fields.
func Pad(v float64, width int) string {
	return fmt.Sprintf("%0*d", width, int(math.Round(v)))
}
