package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	var tm Timer
	t0 := time.Unix(100, 0)
	require.False(t, tm.IsRunning())
	require.False(t, tm.HasExpired(t0, 0))

	tm.Start(t0)
	require.True(t, tm.IsRunning())
	require.False(t, tm.HasExpired(t0.Add(999*time.Millisecond), time.Second))
	require.True(t, tm.HasExpired(t0.Add(time.Second), time.Second))
	require.Equal(t, 400*time.Millisecond, tm.Remaining(t0.Add(600*time.Millisecond), time.Second))
	require.Equal(t, time.Duration(0), tm.Remaining(t0.Add(2*time.Second), time.Second))

	tm.Stop()
	require.Equal(t, time.Duration(0), tm.Elapsed(t0.Add(time.Second)))
	require.False(t, tm.HasExpired(t0.Add(time.Hour), time.Second))
}

func TestTrigger(t *testing.T) {
	g := Trigger{Timeout: 2 * time.Second}
	t0 := time.Unix(100, 0)
	var actions, holds int
	run := func(at time.Duration) {
		g.Run(t0.Add(at), func() { actions++ }, func() { holds++ })
	}

	run(0)
	require.Equal(t, 0, holds)
	g.Fire()
	require.True(t, g.Pending())
	run(time.Second)
	run(2 * time.Second)
	require.Equal(t, 0, actions)
	require.Equal(t, 2, holds)
	run(3 * time.Second)
	require.Equal(t, 1, actions)
	require.Equal(t, 3, holds)
	require.False(t, g.Pending())
	run(10 * time.Second)
	require.Equal(t, 1, actions)
	require.Equal(t, 3, holds)
}
