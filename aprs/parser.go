package aprs

import (
	"sagebot/packet"
	"strings"
)

// APRS data type identifiers we look for (APRS101 p.17).
const (
	idComment  = '#'
	idMessage  = ':'
	idWeather  = '_'
	idPosition = "!=/@"
)

// minPacketLen drops keepalive fragments and other noise.
const minPacketLen = 10

var telemetryKeywords = []string{
	"PARM",
	"UNIT",
	"EQNS",
	"BITS",
}

// isTelemetry checks if a message is an automated telemetry definition:
// self-addressed, or starting with a telemetry keyword.
func isTelemetry(from, to, body string) bool {
	if strings.EqualFold(from, to) {
		return true
	}
	for _, kw := range telemetryKeywords {
		if strings.HasPrefix(body, kw) {
			return true
		}
	}
	return false
}

// Classify sorts one inbound APRS-IS line into a packet.Kind. It only
// detects the markers sagebot reacts to; it never fails, anything it
// cannot place is KindUnknown.
func Classify(line string) *packet.Packet {
	pkt := &packet.Packet{Raw: line, Kind: packet.KindUnknown}

	if len(line) > 0 && line[0] == idComment {
		pkt.Kind = packet.KindComment
		return pkt
	}
	if len(line) <= minPacketLen {
		return pkt
	}

	src, payload, err := splitHeader(line)
	if err != nil || payload == "" {
		return pkt
	}
	pkt.Callsign = src

	switch {
	case payload[0] == idMessage:
		to, body, id, err := parseMessage(payload)
		if err != nil {
			return pkt
		}
		pkt.MsgTo, pkt.MsgBody, pkt.MsgID = to, body, id
		switch {
		case strings.HasPrefix(to, "BLN"):
			pkt.Kind = packet.KindBulletin
		case isTelemetry(src, to, body):
			pkt.Kind = packet.KindTelemetry
		default:
			pkt.Kind = packet.KindMessage
		}

	case strings.HasPrefix(payload, "T#"):
		pkt.Kind = packet.KindTelemetry

	case payload[0] == idWeather:
		pkt.Kind = packet.KindWeather

	case strings.IndexByte(idPosition, payload[0]) >= 0 && isWeatherPosition(payload):
		pkt.Kind = packet.KindWeather
	}
	return pkt
}

// isWeatherPosition reports whether a position payload uses the weather
// station symbol, which means weather data follows the position.
func isWeatherPosition(payload string) bool {
	body := payload[1:]
	if payload[0] == '/' || payload[0] == '@' {
		// skip the HHMMSSz timestamp
		if len(body) < 7 {
			return false
		}
		body = body[7:]
	}
	// DDmm.mmN/DDDmm.mmW_ : the symbol code is the 19th character
	return len(body) >= 19 && body[18] == idWeather
}
