package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func counter(n *int32) TaskFn {
	return func(context.Context) error {
		atomic.AddInt32(n, 1)
		return nil
	}
}

func TestAddTicker_Fires(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.AddTicker("tick", 20*time.Millisecond, counter(&count))

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("task", 20*time.Millisecond, counter(&count1))
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("task", 20*time.Millisecond, counter(&count2))
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestRemove(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.AddTicker("task", 20*time.Millisecond, counter(&count))
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	snap := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count), "ticker must stop after Remove")
	assert.Empty(t, s.Tasks())

	s.Remove("nope")
}

func TestStop_StopsAllTasks(t *testing.T) {
	s := New(zap.NewNop())

	var c1, c2 int32
	s.AddTicker("a", 20*time.Millisecond, counter(&c1))
	s.AddTicker("b", 20*time.Millisecond, counter(&c2))
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))

	s.Stop()
}

func TestTasks_SortedWithStats(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	require.Empty(t, s.Tasks())
	s.AddTicker("beta", time.Hour, func(context.Context) error { return errors.New("boom") })
	s.AddTicker("alpha", time.Hour, func(context.Context) error { return nil })

	require.NoError(t, s.RunNow("alpha"))
	require.EqualError(t, s.RunNow("beta"), "boom")

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "alpha", tasks[0].Name)
	assert.Equal(t, time.Hour, tasks[0].Interval)
	assert.Equal(t, int64(1), tasks[0].Runs)
	assert.Zero(t, tasks[0].Failures)
	assert.False(t, tasks[0].LastRun.IsZero())

	assert.Equal(t, "beta", tasks[1].Name)
	assert.Equal(t, int64(1), tasks[1].Failures)
	assert.Equal(t, "boom", tasks[1].LastError)
}

func TestRunNow_Unknown(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()
	assert.ErrorIs(t, s.RunNow("missing"), ErrUnknownTask)
}

func TestRun_PanicIsRecorded(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	s.AddTicker("panic", time.Hour, func(context.Context) error { panic("oops") })
	err := s.RunNow("panic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
	assert.Equal(t, int64(1), s.Tasks()[0].Failures)
}

func TestRun_Timeout(t *testing.T) {
	s := New(zap.NewNop(), WithRunTimeout(20*time.Millisecond))
	defer s.Stop()

	s.AddTicker("slow", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, s.RunNow("slow"), context.DeadlineExceeded)
}
