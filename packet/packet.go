package packet

// Kind is the coarse classification of an inbound APRS-IS line.
type Kind int

const (
	KindUnknown   Kind = iota // Unparsed or too short to matter
	KindComment               // Server line starting with '#'
	KindBulletin              // Message addressed to BLNx
	KindWeather               // Carries a weather report
	KindTelemetry             // T# report or PARM/UNIT/EQNS/BITS message
	KindMessage               // Addressed message
	kindCount
)

// NumKinds is the number of distinct kinds, for counters indexed by Kind.
const NumKinds = int(kindCount)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindBulletin:
		return "bulletin"
	case KindWeather:
		return "weather"
	case KindTelemetry:
		return "telemetry"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Packet holds what we care about from one inbound line.
type Packet struct {
	Raw      string // Line as received, terminator stripped
	Callsign string // Source callsign, empty for comments
	Kind     Kind

	// Fields for KindMessage and KindBulletin
	MsgTo   string // Addressee, spaces trimmed
	MsgBody string
	MsgID   string // Empty when the sender wants no ack
}
