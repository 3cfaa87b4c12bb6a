package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RunsJobImmediatelyAndOnInterval(t *testing.T) {
	var calls atomic.Int32
	m := NewManager()
	m.Register(Job{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Fn: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	m.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	m.Shutdown(time.Second)

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestManager_ResidentJobStopsOnShutdown(t *testing.T) {
	started := make(chan struct{})
	var stopped atomic.Bool

	m := NewManager()
	m.Register(NewAccountsWatchJob(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		stopped.Store(true)
		return nil
	}))

	m.Start()
	<-started
	m.Shutdown(time.Second)

	assert.True(t, stopped.Load())
}

func TestManager_SurvivesErrorsAndPanics(t *testing.T) {
	var calls atomic.Int32
	m := NewManager()
	m.Register(Job{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Fn: func(context.Context) error {
			if calls.Add(1)%2 == 0 {
				panic("boom")
			}
			return errors.New("failed")
		},
	})

	m.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, 5*time.Millisecond)
	m.Shutdown(time.Second)
}

func TestNewSessionCleanupJob(t *testing.T) {
	var got int
	job := NewSessionCleanupJob(func(context.Context) (int, error) {
		got++
		return 2, nil
	}, 0)

	assert.Equal(t, "session_cleanup", job.Name)
	assert.Equal(t, 15*time.Minute, job.Interval)
	require.NoError(t, job.Fn(context.Background()))
	assert.Equal(t, 1, got)
}

func TestNewSessionCleanupJob_PropagatesError(t *testing.T) {
	job := NewSessionCleanupJob(func(context.Context) (int, error) {
		return 0, errors.New("storage down")
	}, time.Minute)

	assert.EqualError(t, job.Fn(context.Background()), "storage down")
}

func TestNewHealthCheckJob(t *testing.T) {
	job := NewHealthCheckJob(func(context.Context) error { return errors.New("redis down") }, 0)

	assert.Equal(t, time.Minute, job.Interval)
	assert.Error(t, job.Fn(context.Background()))
}

func TestManager_Jobs(t *testing.T) {
	m := NewManager()
	m.Register(NewHealthCheckJob(func(context.Context) error { return nil }, time.Minute))
	m.Register(NewSessionCleanupJob(func(context.Context) (int, error) { return 0, nil }, time.Minute))

	assert.Equal(t, []string{"health_check", "session_cleanup"}, m.Jobs())
}
