package loop

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestAC500_Loop_RunsPostedCallbacksInOrder(t *testing.T) {
	l := New(clockwork.NewFakeClock())
	var got []int
	for i := 1; i <= 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	ran := l.RunPending()

	require.Equal(t, 3, ran)
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestAC500_Loop_TasksWaitForTheirDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	fired := false
	l.AfterFunc(500*time.Millisecond, func() { fired = true })

	l.RunPending()
	require.False(t, fired, "task should not fire before its deadline")

	clock.Advance(499 * time.Millisecond)
	l.RunPending()
	require.False(t, fired)

	clock.Advance(time.Millisecond)
	l.RunPending()
	require.True(t, fired, "task should fire once its deadline is reached")
	require.Zero(t, l.Pending())
}

func TestAC500_Loop_TasksFireInDeadlineOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	var got []string
	l.AfterFunc(2*time.Second, func() { got = append(got, "late") })
	l.AfterFunc(time.Second, func() { got = append(got, "early") })
	l.AfterFunc(time.Second, func() { got = append(got, "early-second") })

	clock.Advance(3 * time.Second)
	l.RunPending()

	require.Equal(t, []string{"early", "early-second", "late"}, got)
}

func TestAC501_Task_CancelIsSingleShot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	fired := false
	task := l.AfterFunc(time.Second, func() { fired = true })

	require.True(t, task.Cancel(), "first cancel should unschedule the task")
	require.False(t, task.Cancel(), "second cancel should report nothing to cancel")

	clock.Advance(time.Second)
	l.RunPending()
	require.False(t, fired, "cancelled task must never run")
}

func TestAC501_Task_CancelAfterFireReportsFalse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	task := l.AfterFunc(time.Second, func() {})

	clock.Advance(time.Second)
	l.RunPending()

	require.False(t, task.Cancel())
	var nilTask *Task
	require.False(t, nilTask.Cancel())
}

func TestAC501_Task_CancelKeepsOtherTasksScheduled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	var got []string
	l.AfterFunc(time.Second, func() { got = append(got, "a") })
	b := l.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	l.AfterFunc(3*time.Second, func() { got = append(got, "c") })

	b.Cancel()
	clock.Advance(5 * time.Second)
	l.RunPending()

	require.Equal(t, []string{"a", "c"}, got)
}

func TestAC502_Loop_GoPostsContinuationBackOntoLoop(t *testing.T) {
	l := New(clockwork.NewFakeClock())
	result := ""
	l.Go(func(ctx context.Context) func() {
		value := "fetched"
		return func() { result = value }
	})

	l.Settle()

	require.Equal(t, "fetched", result)
}

func TestAC502_Loop_SettleFollowsChainedJobs(t *testing.T) {
	l := New(clockwork.NewFakeClock())
	steps := 0
	l.Go(func(ctx context.Context) func() {
		return func() {
			steps++
			l.Go(func(ctx context.Context) func() {
				return func() { steps++ }
			})
		}
	})

	l.Settle()

	require.Equal(t, 2, steps)
}

func TestAC502_Loop_CloseCancelsJobContext(t *testing.T) {
	l := New(clockwork.NewFakeClock())
	l.Close()

	var jobErr error
	l.Go(func(ctx context.Context) func() {
		err := ctx.Err()
		return func() { jobErr = err }
	})
	l.Settle()

	require.ErrorIs(t, jobErr, context.Canceled)
}

func TestAC503_Loop_RunStopsOnContextCancel(t *testing.T) {
	l := New(clockwork.NewRealClock())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted callback should run while the loop is running")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run should return after cancel")
	}
}
