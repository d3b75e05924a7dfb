package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ashbourne/agentloop/tool"
	"github.com/google/uuid"
)

// Tool is an in-memory holder of at most one active plan, exposing
// plan/task CRUD operations as a tool.Tool a Planner Agent calls.
type Tool struct {
	mu   sync.Mutex
	plan *ExecutionPlan
}

// NewTool builds an empty planner tool, holding no plan until
// create_plan (or create_plan_with_tasks) is called.
func NewTool() *Tool {
	return &Tool{}
}

func (t *Tool) Name() string        { return "planner_tool" }
func (t *Tool) Description() string { return "Creates and mutates the execution plan for the current objective." }

func (t *Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []string{
					"create_plan", "create_plan_with_tasks", "get_plan", "update_plan",
					"delete_plan", "add_task", "add_tasks", "update_task", "get_next_task",
				},
			},
		},
		"required": []string{"operation"},
	}
}

// CurrentPlan returns the tool's plan (nil if none exists yet). It is
// the sole read path external observers (the Planner Agent wrapper)
// should use.
func (t *Tool) CurrentPlan() *ExecutionPlan {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.plan == nil {
		return nil
	}
	cp := *t.plan
	cp.Tasks = append([]Task(nil), t.plan.Tasks...)
	return &cp
}

type taskInput struct {
	Title                   string   `json:"title"`
	Description             string   `json:"description"`
	Type                    string   `json:"type"`
	Phase                   string   `json:"phase"`
	Priority                string   `json:"priority"`
	Dependencies            []string `json:"dependencies"`
	EstimatedDurationMinutes int     `json:"estimated_duration_minutes"`
}

type callArgs struct {
	Operation string            `json:"operation"`
	Objective string            `json:"objective"`
	Title     string            `json:"title"`
	Fields    map[string]any    `json:"fields"`
	Task      *taskInput        `json:"task"`
	Tasks     []taskInput       `json:"tasks"`
	TaskID    string            `json:"task_id"`
}

// payload wraps every Execute result in a tagged shape: exactly one of
// Plan/Task/Tasks/NextTask is populated.
type payload struct {
	Plan     *ExecutionPlan `json:"plan,omitempty"`
	Task     *Task          `json:"task,omitempty"`
	Tasks    []Task         `json:"tasks,omitempty"`
	NextTask *Task          `json:"next_task,omitempty"`
}

func (t *Tool) result(p payload) tool.Result {
	data, err := json.Marshal(p)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error(), ToolName: t.Name()}
	}
	return tool.Result{Success: true, Content: string(data), ToolName: t.Name()}
}

func fail(msg string) (tool.Result, error) {
	return tool.Result{Success: false, Error: msg}, nil
}

func fromInput(in taskInput) Task {
	now := time.Now()
	typ := TaskType(in.Type)
	if typ == "" {
		typ = TaskOther
	}
	phase := TaskPhase(in.Phase)
	if phase == "" {
		phase = PhasePlanning
	}
	priority := TaskPriority(in.Priority)
	if priority == "" {
		priority = PriorityMedium
	}
	dur := in.EstimatedDurationMinutes
	if dur <= 0 {
		dur = 15
	}
	return Task{
		ID:                       uuid.NewString(),
		Title:                    in.Title,
		Description:              in.Description,
		Type:                     typ,
		Status:                   TaskPending,
		Phase:                    phase,
		Priority:                 priority,
		Dependencies:             in.Dependencies,
		EstimatedDurationMinutes: dur,
		CreatedAt:                now,
	}
}

// Execute implements tool.Tool, dispatching on the operation field.
func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a callArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return tool.Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch a.Operation {
	case "create_plan":
		t.plan = newPlan(a.Objective)
		t.plan.Title = a.Title
		return t.result(payload{Plan: t.plan}), nil

	case "create_plan_with_tasks":
		t.plan = newPlan(a.Objective)
		t.plan.Title = a.Title
		for _, in := range a.Tasks {
			t.plan.Tasks = append(t.plan.Tasks, fromInput(in))
		}
		t.plan.recomputeProgress()
		return t.result(payload{Plan: t.plan}), nil

	case "get_plan":
		if t.plan == nil {
			return fail("planner_tool: no active plan")
		}
		return t.result(payload{Plan: t.plan}), nil

	case "update_plan":
		if t.plan == nil {
			return fail("planner_tool: no active plan")
		}
		if title, ok := a.Fields["title"].(string); ok {
			t.plan.Title = title
		}
		if desc, ok := a.Fields["description"].(string); ok {
			t.plan.Description = desc
		}
		if status, ok := a.Fields["status"].(string); ok {
			t.plan.Status = PlanStatus(status)
		}
		t.plan.UpdatedAt = time.Now()
		return t.result(payload{Plan: t.plan}), nil

	case "delete_plan":
		t.plan = nil
		return tool.Result{Success: true, ToolName: t.Name()}, nil

	case "add_task":
		if t.plan == nil {
			return fail("planner_tool: no active plan")
		}
		if a.Task == nil {
			return fail("planner_tool: add_task requires a task payload")
		}
		newTask := fromInput(*a.Task)
		t.plan.Tasks = append(t.plan.Tasks, newTask)
		t.plan.recomputeProgress()
		return t.result(payload{Task: &newTask}), nil

	case "add_tasks":
		if t.plan == nil {
			return fail("planner_tool: no active plan")
		}
		added := make([]Task, 0, len(a.Tasks))
		for _, in := range a.Tasks {
			newTask := fromInput(in)
			t.plan.Tasks = append(t.plan.Tasks, newTask)
			added = append(added, newTask)
		}
		t.plan.recomputeProgress()
		return t.result(payload{Tasks: added}), nil

	case "update_task":
		if t.plan == nil {
			return fail("planner_tool: no active plan")
		}
		if a.TaskID == "" {
			return fail("planner_tool: update_task requires task_id")
		}
		idx := -1
		for i, existing := range t.plan.Tasks {
			if existing.ID == a.TaskID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fail(fmt.Sprintf("planner_tool: task %q not found", a.TaskID))
		}
		updated := t.plan.Tasks[idx]
		if status, ok := a.Fields["status"].(string); ok {
			updated.Status = TaskStatus(status)
			now := time.Now()
			if updated.Status == TaskInProgress {
				updated.StartedAt = &now
			}
			if updated.Status == TaskCompleted {
				updated.CompletedAt = &now
			}
		}
		if result, ok := a.Fields["result"].(string); ok {
			updated.Result = result
		}
		t.plan.Tasks[idx] = updated
		t.plan.recomputeProgress()
		return t.result(payload{Task: &updated}), nil

	case "get_next_task":
		if t.plan == nil {
			return fail("planner_tool: no active plan")
		}
		for _, candidate := range t.plan.Tasks {
			if candidate.Status == TaskPending && t.plan.dependenciesSatisfied(candidate) {
				next := candidate
				return t.result(payload{NextTask: &next}), nil
			}
		}
		return t.result(payload{}), nil

	default:
		return fail(fmt.Sprintf("planner_tool: unknown operation %q", a.Operation))
	}
}
