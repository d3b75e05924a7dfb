// Package trajectory records the step-by-step execution of an agent
// invocation and flushes it, debounced, to a caller-supplied sink.
package trajectory

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/ashbourne/agentloop/llm"
	"github.com/google/uuid"
)

// Step is one Reason-Act-Observe pass, appended to a Trajectory and
// never mutated afterward.
type Step struct {
	StepID      string          `json:"step_id"`
	Task        string          `json:"task"`
	Messages    []llm.Message   `json:"messages"`
	ToolCalls   []llm.ToolCall  `json:"tool_calls,omitempty"`
	ToolResults []StepResult    `json:"tool_results,omitempty"`
	Completed   bool            `json:"completed"`
	Timestamp   time.Time       `json:"timestamp"`
	Annotations map[string]any  `json:"annotations,omitempty"`
	Content     string          `json:"llm_response_content,omitempty"`
}

// StepResult is the trajectory-facing record of one tool invocation's
// outcome, tagged with the ToolCall it answers.
type StepResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Success    bool   `json:"success"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewStep creates a Step with a fresh id and the current timestamp.
func NewStep(task string) Step {
	return Step{
		StepID:    uuid.NewString(),
		Task:      task,
		Timestamp: time.Now(),
	}
}

// Trajectory is the append-only log of one agent invocation.
type Trajectory struct {
	AgentID     string    `json:"agent_id"`
	Task        string    `json:"task"`
	Steps       []Step    `json:"steps"`
	Completed   bool      `json:"completed"`
	Success     bool      `json:"success"`
	FinalResult string    `json:"final_result,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time,omitempty"`
}

// New starts a Trajectory for agentID and task.
func New(agentID, task string) *Trajectory {
	return &Trajectory{
		AgentID:   agentID,
		Task:      task,
		StartTime: time.Now(),
	}
}

// Append adds step to the trajectory. Steps are ordered by append
// time, which the Base Agent loop guarantees matches timestamp order.
func (t *Trajectory) Append(step Step) {
	t.Steps = append(t.Steps, step)
}

// Finish marks the trajectory terminal. completed must be true
// whenever success is true, per the package invariant; callers pass
// success=false for a graceful-failure exit.
func (t *Trajectory) Finish(success bool, finalResult string) {
	t.Completed = true
	t.Success = success
	t.FinalResult = finalResult
	t.EndTime = time.Now()
}

// Sink is anything a Recorder can flush a serialized Trajectory to.
type Sink = io.Writer

// Recorder debounces writes of a Trajectory to a Sink, collapsing
// bursts of step appends into a single write. It has no Close; Flush
// writes immediately and serves as the final flush.
type Recorder struct {
	mu      sync.Mutex
	sink    Sink
	debounce time.Duration
	timer   *time.Timer
	get     func() *Trajectory
}

// NewRecorder builds a Recorder. debounce defaults to 400ms (within
// the mandated 300-500ms band) when zero.
func NewRecorder(sink Sink, debounce time.Duration, get func() *Trajectory) *Recorder {
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}
	return &Recorder{sink: sink, debounce: debounce, get: get}
}

// ScheduleFlush arranges a debounced write: if one is already pending,
// this call is a no-op (the pending timer will pick up the latest
// trajectory state when it fires).
func (r *Recorder) ScheduleFlush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		return
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		r.mu.Lock()
		r.timer = nil
		r.mu.Unlock()
		_ = r.Flush()
	})
}

// Flush writes the current trajectory state immediately, cancelling
// any pending debounced write.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	data, err := json.Marshal(r.get())
	if err != nil {
		return err
	}
	_, err = r.sink.Write(data)
	return err
}
