package trajectory

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrajectory_AppendAndFinish(t *testing.T) {
	traj := New("agent-1", "do the thing")
	traj.Append(NewStep("do the thing"))
	traj.Append(NewStep("do the thing"))
	traj.Finish(true, "done")

	assert.Len(t, traj.Steps, 2)
	assert.True(t, traj.Completed)
	assert.True(t, traj.Success)
	assert.Equal(t, "done", traj.FinalResult)
	assert.False(t, traj.EndTime.IsZero())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestRecorder_ScheduleFlushDebouncesBursts(t *testing.T) {
	traj := New("agent-1", "task")
	sink := &syncBuffer{}
	r := NewRecorder(sink, 30*time.Millisecond, func() *Trajectory { return traj })

	for i := 0; i < 5; i++ {
		traj.Append(NewStep("task"))
		r.ScheduleFlush()
	}
	assert.Equal(t, 0, sink.Len(), "a burst of schedules before the debounce window must not write yet")

	time.Sleep(60 * time.Millisecond)
	require.Greater(t, sink.Len(), 0)

	var written Trajectory
	require.NoError(t, json.Unmarshal(sink.Bytes(), &written))
	assert.Len(t, written.Steps, 5)
}

func TestRecorder_FlushIsImmediateAndCancelsPending(t *testing.T) {
	traj := New("agent-1", "task")
	sink := &syncBuffer{}
	r := NewRecorder(sink, time.Hour, func() *Trajectory { return traj })

	traj.Append(NewStep("task"))
	r.ScheduleFlush()
	require.NoError(t, r.Flush())
	assert.Greater(t, sink.Len(), 0)
}
