// Package schedule decides when the daily bulletins are due.
//
// The Scheduler is polled with wall-clock fields rather than driven by
// timers, so it fires at most once per slot per day no matter how
// irregularly it is polled, as long as it sees every minute at least once.
package schedule

import (
	"time"

	"github.com/juju/errors"
)

// noDay marks that no calendar day has been observed yet.
const noDay = -1

// Slot is one daily send time and the bulletin ID it sends under.
type Slot struct {
	Name   string
	ID     byte
	Hour   int
	Minute int
}

// Default slots: 08:00 morning bulletin "M", 20:00 evening bulletin "E".
var (
	Morning = Slot{Name: "morning", ID: 'M', Hour: 8, Minute: 0}
	Evening = Slot{Name: "evening", ID: 'E', Hour: 20, Minute: 0}
)

// Flags is the scheduler's whole state.
type Flags struct {
	MorningSent  bool
	EveningSent  bool
	LastResetDay int
}

// Scheduler tracks which of the two daily slots already fired today.
type Scheduler struct {
	morning Slot
	evening Slot
	flags   Flags
}

// New returns a Scheduler for the given slots with nothing sent yet.
func New(morning, evening Slot) *Scheduler {
	return &Scheduler{
		morning: morning,
		evening: evening,
		flags:   Flags{LastResetDay: noDay},
	}
}

// NewDefault uses the 08:00 and 20:00 slots.
func NewDefault() *Scheduler {
	return New(Morning, Evening)
}

// Poll reports the slots due at hour:minute on day-of-month day and marks
// them sent. A change of day clears both flags; that check runs after the
// fire checks so a slot in the first minute of a new day is not lost. The
// first day ever observed is only recorded, so a start-up inside a slot
// minute cannot fire it twice.
func (s *Scheduler) Poll(hour, minute, day int) []Slot {
	var due []Slot
	if hour == s.morning.Hour && minute == s.morning.Minute && !s.flags.MorningSent {
		s.flags.MorningSent = true
		due = append(due, s.morning)
	}
	if hour == s.evening.Hour && minute == s.evening.Minute && !s.flags.EveningSent {
		s.flags.EveningSent = true
		due = append(due, s.evening)
	}

	if day != s.flags.LastResetDay {
		first := s.flags.LastResetDay == noDay
		s.flags.LastResetDay = day
		if !first {
			s.flags.MorningSent = false
			s.flags.EveningSent = false
		}
	}
	return due
}

// PollTime is Poll with the fields of t, which must already be in the
// station's local zone.
func (s *Scheduler) PollTime(t time.Time) []Slot {
	return s.Poll(t.Hour(), t.Minute(), t.Day())
}

// Flags returns a copy of the current state.
func (s *Scheduler) Flags() Flags {
	return s.flags
}

// ParseClock parses "HH:MM" into a slot time.
func ParseClock(name string, id byte, hhmm string) (Slot, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return Slot{}, errors.NotValidf("%s time %q", name, hhmm)
	}
	return Slot{Name: name, ID: id, Hour: t.Hour(), Minute: t.Minute()}, nil
}
