// Package plan defines the planning data model (Task, ExecutionPlan,
// ExecutionStrategy) and the Planner Tool that mutates an in-memory
// plan on a model's behalf.
package plan

import (
	"time"

	"github.com/google/uuid"
)

// TaskType classifies a Task's nature.
type TaskType string

const (
	TaskAnalysis   TaskType = "analysis"
	TaskDevelopment TaskType = "development"
	TaskTesting    TaskType = "testing"
	TaskDeployment TaskType = "deployment"
	TaskResearch   TaskType = "research"
	TaskReview     TaskType = "review"
	TaskOther      TaskType = "other"
)

// TaskStatus is a Task's lifecycle state.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskSkipped    TaskStatus = "skipped"
)

// TaskPhase is a lifecycle label independent of status.
type TaskPhase string

const (
	PhaseResearchSetup  TaskPhase = "research_setup"
	PhasePlanning       TaskPhase = "planning"
	PhaseImplementation TaskPhase = "implementation"
	PhaseTesting        TaskPhase = "testing"
	PhaseCompletion     TaskPhase = "completion"
)

// TaskPriority ranks a Task relative to its siblings.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// Task is one unit of work inside an ExecutionPlan.
type Task struct {
	ID                      string       `json:"id"`
	Title                   string       `json:"title"`
	Description             string       `json:"description"`
	Type                    TaskType     `json:"type"`
	Status                  TaskStatus   `json:"status"`
	Phase                   TaskPhase    `json:"phase"`
	Priority                TaskPriority `json:"priority"`
	Dependencies            []string     `json:"dependencies,omitempty"`
	EstimatedDurationMinutes int         `json:"estimated_duration_minutes"`
	CreatedAt               time.Time   `json:"created_at"`
	StartedAt               *time.Time  `json:"started_at,omitempty"`
	CompletedAt             *time.Time  `json:"completed_at,omitempty"`
	Result                  string      `json:"result,omitempty"`
}

// ExecutionStrategy describes how a plan's tasks are to be driven. It
// is stored on every plan; HybridAgent does not read it and applies
// its own ContinueOnError setting instead.
type ExecutionStrategy struct {
	AllowParallel       bool
	MaxParallelTasks    int
	FailureHandling     string // stop | continue | retry | skip
	AutoRetry           bool
	MaxRetries          int
	RetryIntervalSeconds int
	TimeoutMinutes      *int
}

// DefaultStrategy is the strategy a fresh plan is created with.
func DefaultStrategy() ExecutionStrategy {
	return ExecutionStrategy{
		AllowParallel:        false,
		MaxParallelTasks:     1,
		FailureHandling:      "stop",
		AutoRetry:            false,
		MaxRetries:           0,
		RetryIntervalSeconds: 5,
	}
}

// PlanStatus is an ExecutionPlan's lifecycle state.
type PlanStatus string

const (
	PlanPlanning   PlanStatus = "planning"
	PlanReady      PlanStatus = "ready"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanFailed     PlanStatus = "failed"
)

// ExecutionPlan is the dependency-annotated task list a Planner Agent
// produces and a Hybrid Agent consumes.
type ExecutionPlan struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Objective   string            `json:"objective"`
	Status      PlanStatus        `json:"status"`
	Tasks       []Task            `json:"tasks"`
	Strategy    ExecutionStrategy `json:"strategy"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Progress    float64           `json:"progress"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func newPlan(objective string) *ExecutionPlan {
	now := time.Now()
	return &ExecutionPlan{
		ID:        uuid.NewString(),
		Objective: objective,
		Status:    PlanPlanning,
		Tasks:     nil,
		Strategy:  DefaultStrategy(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// recomputeProgress recalculates Progress and, when every task is
// terminal, advances Status to completed. Called after every task
// mutation per the package invariant.
func (p *ExecutionPlan) recomputeProgress() {
	if len(p.Tasks) == 0 {
		p.Progress = 0
		return
	}
	completed := 0
	allTerminal := true
	for _, t := range p.Tasks {
		if t.Status == TaskCompleted {
			completed++
		}
		if t.Status != TaskCompleted && t.Status != TaskFailed && t.Status != TaskSkipped {
			allTerminal = false
		}
	}
	p.Progress = float64(completed) / float64(len(p.Tasks))
	if allTerminal {
		p.Status = PlanCompleted
	} else if p.Status == PlanCompleted {
		// A mutation (e.g. add_task) reopened a previously-completed
		// plan: status = completed iff all tasks terminal, bidirectionally.
		p.Status = PlanInProgress
	}
	p.UpdatedAt = time.Now()
}

func (p *ExecutionPlan) dependenciesSatisfied(t Task) bool {
	byID := make(map[string]Task, len(p.Tasks))
	for _, other := range p.Tasks {
		byID[other.ID] = other
	}
	for _, dep := range t.Dependencies {
		other, ok := byID[dep]
		if !ok || other.Status != TaskCompleted {
			return false
		}
	}
	return true
}
