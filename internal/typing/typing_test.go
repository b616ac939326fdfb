package typing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySelfIgnored(t *testing.T) {
	ind := NewIndicator("me", DefaultTTL, nil)
	ind.Notify("me")
	assert.Equal(t, "", ind.Active())
}

func TestNotifyPeerSetsAndExpires(t *testing.T) {
	ind := NewIndicator("me", 30*time.Millisecond, nil)
	defer ind.Stop()

	ind.Notify("peer")
	require.Equal(t, "peer", ind.Active())

	assert.Eventually(t, func() bool { return ind.Active() == "" },
		time.Second, 5*time.Millisecond)
}

func TestRapidSignalsKeepIndicatorSet(t *testing.T) {
	ind := NewIndicator("me", 60*time.Millisecond, nil)
	defer ind.Stop()

	// Signals arriving well inside the window keep resetting the timer.
	for i := 0; i < 5; i++ {
		ind.Notify("peer")
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, "peer", ind.Active(), "iteration %d", i)
	}

	assert.Eventually(t, func() bool { return ind.Active() == "" },
		time.Second, 5*time.Millisecond)
}

func TestStopCancelsPendingExpiry(t *testing.T) {
	var changes []string
	ind := NewIndicator("me", 20*time.Millisecond, func(name string) {
		changes = append(changes, name)
	})

	ind.Notify("peer")
	ind.Stop()
	assert.Equal(t, "", ind.Active())

	time.Sleep(50 * time.Millisecond)
	// Only the Notify change fired; the expiry callback was cancelled.
	assert.Equal(t, []string{"peer"}, changes)
}

func TestThrottlerAllowsOncePerInterval(t *testing.T) {
	th := NewThrottler(40 * time.Millisecond)

	require.True(t, th.Allow())
	assert.False(t, th.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, th.Allow())
}
