package todo

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Board is the ordered task list. State lives only in memory.
type Board struct {
	mu    sync.RWMutex
	tasks []Task
	newID func() string
}

func NewBoard() *Board {
	return &Board{newID: uuid.NewString}
}

// NewBoardWithIDs uses gen for task and subtask identifiers.
func NewBoardWithIDs(gen func() string) *Board {
	return &Board{newID: gen}
}

// Tasks returns a deep copy of all tasks in insertion order.
func (b *Board) Tasks() []Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Task, len(b.tasks))
	for i, t := range b.tasks {
		out[i] = t.clone()
	}
	return out
}

// Task returns a copy of the task with the given id.
func (b *Board) Task(id string) (Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexOf(id)
	if i < 0 {
		return Task{}, ErrTaskNotFound
	}
	return b.tasks[i].clone(), nil
}

// Len returns the number of tasks.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// AddTask appends a pending task. Titles are stored trimmed.
func (b *Board) AddTask(title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := Task{ID: b.newID(), Title: title, Status: Pending, Subtasks: []SubTask{}}
	b.tasks = append(b.tasks, t)
	return t.clone(), nil
}

func (b *Board) DeleteTask(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	return nil
}

func (b *Board) RenameTask(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return b.update(id, func(t *Task) error {
		t.Title = title
		return nil
	})
}

func (b *Board) SetTaskStatus(id string, s Status) error {
	if !s.IsValid() {
		return ErrInvalidStatus
	}
	return b.update(id, func(t *Task) error {
		t.Status = s
		return nil
	})
}

func (b *Board) AddSubtask(taskID, title string) (SubTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return SubTask{}, ErrEmptyTitle
	}
	var st SubTask
	err := b.update(taskID, func(t *Task) error {
		st = SubTask{ID: b.newID(), Title: title, Status: Pending}
		t.Subtasks = append(t.Subtasks, st)
		return nil
	})
	return st, err
}

func (b *Board) DeleteSubtask(taskID, subtaskID string) error {
	return b.update(taskID, func(t *Task) error {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
				return nil
			}
		}
		return ErrSubtaskNotFound
	})
}

func (b *Board) SetSubtaskStatus(taskID, subtaskID string, s Status) error {
	if !s.IsValid() {
		return ErrInvalidStatus
	}
	return b.update(taskID, func(t *Task) error {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].Status = s
				return nil
			}
		}
		return ErrSubtaskNotFound
	})
}

// update applies fn to a copy of the task and stores it only if fn succeeds.
func (b *Board) update(id string, fn func(*Task) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	t := b.tasks[i].clone()
	if err := fn(&t); err != nil {
		return err
	}
	b.tasks[i] = t
	return nil
}

func (b *Board) indexOf(id string) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
