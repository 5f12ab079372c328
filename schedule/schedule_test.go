package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorningFiresOnce(t *testing.T) {
	t.Parallel()
	s := NewDefault()
	require.Empty(t, s.Poll(7, 59, 19))

	due := s.Poll(8, 0, 19)
	require.Len(t, due, 1)
	assert.Equal(t, byte('M'), due[0].ID)
	assert.True(t, s.Flags().MorningSent)

	assert.Empty(t, s.Poll(8, 0, 19), "same minute polled again")
	assert.Empty(t, s.Poll(8, 1, 19))
}

func TestEveningFiresOnce(t *testing.T) {
	t.Parallel()
	s := NewDefault()
	s.Poll(12, 0, 19)

	due := s.Poll(20, 0, 19)
	require.Len(t, due, 1)
	assert.Equal(t, Evening, due[0])
	assert.Empty(t, s.Poll(20, 0, 19))
	assert.Equal(t, Flags{EveningSent: true, LastResetDay: 19}, s.Flags())
}

func TestDayChangeClearsFlags(t *testing.T) {
	t.Parallel()
	s := NewDefault()
	s.Poll(8, 0, 19)
	s.Poll(20, 0, 19)
	require.Equal(t, Flags{MorningSent: true, EveningSent: true, LastResetDay: 19}, s.Flags())

	assert.Empty(t, s.Poll(0, 0, 20))
	assert.Equal(t, Flags{LastResetDay: 20}, s.Flags())

	require.Len(t, s.Poll(8, 0, 20), 1)
	require.Len(t, s.Poll(20, 0, 20), 1)
}

func TestDayChangeWithoutSends(t *testing.T) {
	t.Parallel()
	s := NewDefault()
	s.Poll(23, 59, 31)
	s.Poll(0, 0, 1)
	assert.Equal(t, Flags{LastResetDay: 1}, s.Flags())
}

func TestStartupInsideSlotFiresOnce(t *testing.T) {
	t.Parallel()
	s := NewDefault()
	require.Len(t, s.Poll(8, 0, 19), 1)
	assert.Empty(t, s.Poll(8, 0, 19))
	assert.True(t, s.Flags().MorningSent)
}

func TestIrregularPollingSendsOncePerSlot(t *testing.T) {
	t.Parallel()
	s := NewDefault()
	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	sent := map[string]int{}
	// polls every 37 seconds across three days
	for ts := start; ts.Before(start.Add(72 * time.Hour)); ts = ts.Add(37 * time.Second) {
		for _, slot := range s.PollTime(ts) {
			sent[slot.Name+ts.Format("2006-01-02")]++
		}
	}
	assert.Equal(t, map[string]int{
		"morning2026-10-19": 1, "evening2026-10-19": 1,
		"morning2026-10-20": 1, "evening2026-10-20": 1,
		"morning2026-10-21": 1, "evening2026-10-21": 1,
	}, sent)
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	slot, err := ParseClock("morning", 'M', "07:30")
	require.NoError(t, err)
	assert.Equal(t, Slot{Name: "morning", ID: 'M', Hour: 7, Minute: 30}, slot)

	_, err = ParseClock("morning", 'M', "25:00")
	assert.Error(t, err)

	s := New(slot, Evening)
	assert.Empty(t, s.Poll(8, 0, 1))
	assert.Len(t, s.Poll(7, 30, 1), 1)
}
