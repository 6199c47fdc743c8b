package utils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScanTrackerCooldown(t *testing.T) {
	tracker := NewScanTracker(200*time.Millisecond, time.Hour)
	ctx := context.Background()
	session := "session-" + uuid.NewString()
	unit := uuid.NewString()

	require.False(t, tracker.SeenRecently(ctx, session, unit))
	require.True(t, tracker.SeenRecently(ctx, session, unit))

	// A different unit from the same session is not in cooldown.
	require.False(t, tracker.SeenRecently(ctx, session, uuid.NewString()))

	// The same unit from a different session is not in cooldown either.
	require.False(t, tracker.SeenRecently(ctx, "session-"+uuid.NewString(), unit))

	time.Sleep(250 * time.Millisecond)
	require.False(t, tracker.SeenRecently(ctx, session, unit))
}

func TestScanTrackerSubmittedLifecycle(t *testing.T) {
	tracker := NewScanTracker(time.Second, time.Hour)
	ctx := context.Background()
	session := "session-" + uuid.NewString()
	unit := uuid.NewString()

	require.False(t, tracker.AlreadySubmitted(ctx, session, unit))
	tracker.MarkSubmitted(ctx, session, unit)
	require.True(t, tracker.AlreadySubmitted(ctx, session, unit))

	// Scoped to the session, not the unit alone.
	require.False(t, tracker.AlreadySubmitted(ctx, "session-"+uuid.NewString(), unit))
}

func TestScanTrackerPurgeExpired(t *testing.T) {
	tracker := NewScanTracker(50*time.Millisecond, 50*time.Millisecond)
	ctx := context.Background()
	session := "session-" + uuid.NewString()
	unit := uuid.NewString()

	tracker.SeenRecently(ctx, session, unit)
	tracker.MarkSubmitted(ctx, session, unit)

	time.Sleep(80 * time.Millisecond)
	tracker.PurgeExpired()

	require.False(t, tracker.AlreadySubmitted(ctx, session, unit))
}

func TestScanTrackerDefaults(t *testing.T) {
	tracker := NewScanTracker(0, 0)
	require.Equal(t, 5*time.Second, tracker.cooldown)
	require.Equal(t, 24*time.Hour, tracker.sessionTTL)
}
