package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	scheduler "github.com/wrap-near/guest-relayer/internal/infrastructure/scheduler/gocron"
)

func TestScheduleTask(t *testing.T) {
	svc := scheduler.NewScheduler()

	var immediate, delayed atomic.Int32
	require.NoError(t, svc.ScheduleTask(1, true, func() { immediate.Add(1) }))
	require.NoError(t, svc.ScheduleTask(60, false, func() { delayed.Add(1) }))
	require.Error(t, svc.ScheduleTask(0, true, func() {}))

	svc.Start()
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return immediate.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
	require.Zero(t, delayed.Load())
}
