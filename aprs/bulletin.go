package aprs

import (
	"strings"

	"github.com/juju/errors"
)

// MaxBulletinLen is the longest bulletin text APRS allows (APRS101 p.83).
const MaxBulletinLen = 67

// tcpipPath is the header every frame we originate on APRS-IS carries.
const tcpipPath = ">APRS,TCPIP*:"

// ErrBulletinTooLong is the cause of any error for text over MaxBulletinLen.
var ErrBulletinTooLong = errors.New("bulletin text exceeds 67 characters")

// Bulletin is one broadcast message slot.
//
// ID is a digit 0-9 for bulletins or an upper-case letter for
// announcements. Text may not contain '|', '~' or '`'.
type Bulletin struct {
	ID   byte
	Text string
}

// IsAnnouncement reports whether b uses a letter ID.
func (b Bulletin) IsAnnouncement() bool {
	return b.ID >= 'A' && b.ID <= 'Z'
}

// Validate checks b without formatting it.
func (b Bulletin) Validate() error {
	if !(b.ID >= '0' && b.ID <= '9') && !b.IsAnnouncement() {
		return errors.NotValidf("bulletin id %q", b.ID)
	}
	if len(b.Text) > MaxBulletinLen {
		return errors.Annotatef(ErrBulletinTooLong, "%d characters", len(b.Text))
	}
	for i := 0; i < len(b.Text); i++ {
		c := b.Text[i]
		if c < 0x20 || c > 0x7e {
			return errors.NotValidf("bulletin byte 0x%02x at %d", c, i)
		}
		if strings.IndexByte("|~`", c) >= 0 {
			return errors.NotValidf("bulletin character %q", c)
		}
	}
	return nil
}

// FormatBulletin renders b as sent by call:
//
//	CALL>APRS,TCPIP*::BLNx     :text
//
// The five spaces after the ID are the unused title field. Text over
// MaxBulletinLen is rejected, never truncated.
func FormatBulletin(call string, b Bulletin) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(call) + len(tcpipPath) + 11 + len(b.Text))
	sb.WriteString(call)
	sb.WriteString(tcpipPath)
	sb.WriteString(":BLN")
	sb.WriteByte(b.ID)
	sb.WriteString("     :")
	sb.WriteString(b.Text)
	return sb.String(), nil
}
