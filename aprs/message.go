package aprs

import (
	"strings"

	"github.com/juju/errors"
)

// FormatAck acknowledges message msgID from recipient:
//
//	CALL>APRS,TCPIP*::RECIPIENT:ackID
func FormatAck(call, recipient, msgID string) string {
	return call + tcpipPath + ":" + PadCall(recipient) + ":ack" + msgID
}

// parseMessage parses a message payload (data type ':').
// Format: :ADDRESSEE:message body{id
func parseMessage(payload string) (to, body, id string, err error) {
	if len(payload) < 12 || payload[0] != ':' {
		return "", "", "", errors.NotValidf("message payload %q", payload)
	}
	s := payload[1:]

	to = strings.TrimSpace(s[:addresseeLen])
	if to == "" {
		return "", "", "", errors.New("message recipient is blank")
	}
	if s[addresseeLen] != ':' {
		return "", "", "", errors.New("missing message body separator ':'")
	}

	bodyPart := s[addresseeLen+1:]
	if idIndex := strings.LastIndex(bodyPart, "{"); idIndex > 0 {
		body = strings.TrimSpace(bodyPart[:idIndex])
		id = strings.TrimSpace(bodyPart[idIndex+1:])
		// reply-ack form {MM}AA: only MM is ours to ack
		if end := strings.IndexByte(id, '}'); end >= 0 {
			id = id[:end]
		}
	} else {
		body = strings.TrimSpace(bodyPart)
	}

	if body == "" {
		return "", "", "", errors.New("message body is blank")
	}
	return to, body, id, nil
}
