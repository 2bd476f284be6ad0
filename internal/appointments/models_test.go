package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOverlapsIsHalfOpen(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := &Appointment{DateTime: start, DurationMinutes: 30}

	// Back-to-back slots share a boundary instant but never overlap.
	require.False(t, appt.Overlaps(start.Add(30*time.Minute), start.Add(60*time.Minute)))
	require.False(t, appt.Overlaps(start.Add(-30*time.Minute), start))

	// One shared minute is a conflict.
	require.True(t, appt.Overlaps(start.Add(29*time.Minute), start.Add(59*time.Minute)))
	require.True(t, appt.Overlaps(start.Add(-29*time.Minute), start.Add(time.Minute)))

	// Containment in either direction.
	require.True(t, appt.Overlaps(start.Add(10*time.Minute), start.Add(20*time.Minute)))
	require.True(t, appt.Overlaps(start.Add(-time.Hour), start.Add(2*time.Hour)))
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{
		"scheduled", "confirmed", "in-progress", "completed",
		"cancelled", "cancelled-no-show", "rescheduled",
	} {
		s, err := ParseStatus(raw)
		require.NoError(t, err)
		require.Equal(t, Status(raw), s)
	}

	for _, raw := range []string{"", "Scheduled", "no-show", "done"} {
		_, err := ParseStatus(raw)
		require.ErrorIs(t, err, ErrInvalidStatus)
	}
}

func TestStatusClassification(t *testing.T) {
	require.True(t, StatusCancelled.Cancelled())
	require.True(t, StatusCancelledNoShow.Cancelled())
	require.False(t, StatusCompleted.Cancelled())

	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusCancelledNoShow.Terminal())
	require.False(t, StatusInProgress.Terminal())

	require.True(t, StatusScheduled.Schedulable())
	require.True(t, StatusConfirmed.Schedulable())
	require.True(t, StatusRescheduled.Schedulable())
	require.False(t, StatusInProgress.Schedulable())
	require.False(t, StatusCancelled.Schedulable())
}
