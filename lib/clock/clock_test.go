package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormats(t *testing.T) {
	ts := time.Date(2025, 6, 15, 9, 5, 30, 0, time.UTC)

	assert.Equal(t, "2025-06-15", Day(ts))
	assert.Equal(t, "2025-06-15 09:05", Minute(ts))
}

func TestLastDays(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	days := LastDays(now, 4)
	assert.Equal(t, []string{
		"2025-03-02",
		"2025-03-01",
		"2025-02-28",
		"2025-02-27",
	}, days, "most recent first, month boundary crossed")
}
