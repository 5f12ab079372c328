package sidebar

import (
	"sagebot/device/aprsis"
	"sagebot/packet"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRows(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 5, 0, 0, time.UTC)
	st := aprsis.Status{
		State:          aprsis.StateVerified,
		Since:          now.Add(-10 * time.Minute),
		Connects:       2,
		Sent:           1234,
		LastBulletin:   "Keep calm.",
		LastBulletinAt: now.Add(-5 * time.Minute),
	}
	st.Received[packet.KindWeather] = 42

	m := New()
	m.SetStatus(st, now)
	rows := m.rows()

	assert.Equal(t, [2]string{"verified", "10 minutes ago"}, rows[0])
	assert.Equal(t, [2]string{"sent", "1,234"}, rows[2])
	assert.Contains(t, rows, [2]string{"weather", "42"})
	assert.Equal(t, [2]string{"last BLN", "5 minutes ago"}, rows[len(rows)-1])
	assert.Contains(t, m.View(), "Session")
}
