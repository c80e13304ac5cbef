// Package todo holds the in-memory task board with nested subtasks.
package todo

import (
	"errors"
	"strings"
)

const (
	Pending   Status = "Pending"
	Running   Status = "Running"
	Completed Status = "Completed"
)

type (
	Status string

	SubTask struct {
		ID     string
		Title  string
		Status Status
	}

	Task struct {
		ID       string
		Title    string
		Status   Status
		Subtasks []SubTask
	}
)

var (
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
)

// Statuses lists every status in display order.
var Statuses = []Status{Pending, Running, Completed}

func (s Status) IsValid() bool {
	switch s {
	case Pending, Running, Completed:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts the three labels, ignoring case.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// StatusClass is the badge style for a status: gray, blue or green.
func StatusClass(s Status) string {
	switch s {
	case Running:
		return "badge badge-blue"
	case Completed:
		return "badge badge-green"
	default:
		return "badge badge-gray"
	}
}

// clone deep-copies the subtask slice so callers cannot mutate board state.
func (t Task) clone() Task {
	t.Subtasks = append([]SubTask(nil), t.Subtasks...)
	return t
}
