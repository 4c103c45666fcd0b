package backend

import (
	"context"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCanceled   TaskStatus = "CANCELED"
)

var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskCompleted, TaskCanceled}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Duration    *int       `json:"duration,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewTask is the input to CreateTask. Zero Status and Priority take defaults.
type NewTask struct {
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	DueDate     *time.Time
	// Duration is the planned effort in minutes.
	Duration *int
}

// Normalize applies defaults and validates the input.
func (n NewTask) Normalize() (NewTask, error) {
	n.Title = strings.TrimSpace(n.Title)
	if err := requireText("title", n.Title); err != nil {
		return n, err
	}
	if n.Status == "" {
		n.Status = TaskTodo
	}
	if !n.Status.Valid() {
		return n, invalid("status", "must be one of TODO, IN_PROGRESS, COMPLETED, CANCELED")
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !n.Priority.Valid() {
		return n, invalid("priority", "must be one of LOW, MEDIUM, HIGH, URGENT")
	}
	if n.Duration != nil && *n.Duration < 0 {
		return n, invalid("duration", "must not be negative")
	}
	return n, nil
}

// Pending keeps the tasks that are still TODO, preserving order.
func Pending(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == TaskTodo {
			out = append(out, t)
		}
	}
	return out
}

type TaskService interface {
	CreateTask(ctx context.Context, userID string, in NewTask) (Task, error)
	// ListTasks returns the user's tasks, newest first.
	ListTasks(ctx context.Context, userID string) ([]Task, error)
	UpdateTaskStatus(ctx context.Context, userID, taskID string, status TaskStatus) (Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}
