package todo

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestAddTask(t *testing.T) {
	b := NewBoardWithIDs(seqIDs())

	task, err := b.AddTask("買い物")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.ID != "id-1" || task.Status != Pending || len(task.Subtasks) != 0 {
		t.Fatalf("unexpected task: %+v", task)
	}

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := b.AddTask(title); !errors.Is(err, ErrEmptyTitle) {
			t.Fatalf("AddTask(%q) err = %v, want ErrEmptyTitle", title, err)
		}
	}
	if b.Len() != 1 {
		t.Fatalf("blank titles must not be added, len = %d", b.Len())
	}

	padded, _ := b.AddTask("  掃除\n")
	if padded.Title != "掃除" {
		t.Fatalf("title = %q, want trimmed", padded.Title)
	}
	if err := b.RenameTask(padded.ID, "\t洗濯 "); err != nil {
		t.Fatalf("RenameTask: %v", err)
	}
	sub, _ := b.AddSubtask(padded.ID, " 干す ")
	got, _ := b.Task(padded.ID)
	if got.Title != "洗濯" || sub.Title != "干す" || got.Subtasks[0].Title != "干す" {
		t.Fatalf("titles not trimmed: %+v", got)
	}
}

func TestTaskLifecycle(t *testing.T) {
	b := NewBoardWithIDs(seqIDs())
	first, _ := b.AddTask("first")
	second, _ := b.AddTask("second")

	if err := b.RenameTask(first.ID, "renamed"); err != nil {
		t.Fatalf("RenameTask: %v", err)
	}
	if err := b.RenameTask(first.ID, " "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("blank rename err = %v", err)
	}
	if err := b.SetTaskStatus(first.ID, Running); err != nil {
		t.Fatalf("SetTaskStatus: %v", err)
	}
	if err := b.SetTaskStatus(first.ID, Status("Done")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("invalid status err = %v", err)
	}

	got, err := b.Task(first.ID)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if got.Title != "renamed" || got.Status != Running {
		t.Fatalf("unexpected task after updates: %+v", got)
	}
	other, _ := b.Task(second.ID)
	if other.Title != "second" || other.Status != Pending {
		t.Fatalf("sibling task changed: %+v", other)
	}

	if err := b.DeleteTask(first.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	tasks := b.Tasks()
	if len(tasks) != 1 || tasks[0].ID != second.ID {
		t.Fatalf("unexpected tasks after delete: %+v", tasks)
	}
}

func TestUnknownIDs(t *testing.T) {
	b := NewBoardWithIDs(seqIDs())
	task, _ := b.AddTask("only")

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"rename", func() error { return b.RenameTask("nope", "x") }, ErrTaskNotFound},
		{"status", func() error { return b.SetTaskStatus("nope", Completed) }, ErrTaskNotFound},
		{"delete", func() error { return b.DeleteTask("nope") }, ErrTaskNotFound},
		{"add subtask", func() error { _, err := b.AddSubtask("nope", "x"); return err }, ErrTaskNotFound},
		{"subtask status", func() error { return b.SetSubtaskStatus(task.ID, "nope", Running) }, ErrSubtaskNotFound},
		{"delete subtask", func() error { return b.DeleteSubtask(task.ID, "nope") }, ErrSubtaskNotFound},
		{"lookup", func() error { _, err := b.Task("nope"); return err }, ErrTaskNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	got, _ := b.Task(task.ID)
	if got.Title != "only" || got.Status != Pending || len(got.Subtasks) != 0 {
		t.Fatalf("task changed by failed operations: %+v", got)
	}
}

func TestSubtasks(t *testing.T) {
	b := NewBoardWithIDs(seqIDs())
	task, _ := b.AddTask("parent")

	a, err := b.AddSubtask(task.ID, "a")
	if err != nil {
		t.Fatalf("AddSubtask: %v", err)
	}
	c, _ := b.AddSubtask(task.ID, "c")
	if _, err := b.AddSubtask(task.ID, "  "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("blank subtask err = %v", err)
	}

	if err := b.SetSubtaskStatus(task.ID, a.ID, Completed); err != nil {
		t.Fatalf("SetSubtaskStatus: %v", err)
	}
	got, _ := b.Task(task.ID)
	if len(got.Subtasks) != 2 || got.Subtasks[0].Status != Completed || got.Subtasks[1].Status != Pending {
		t.Fatalf("unexpected subtasks: %+v", got.Subtasks)
	}
	if got.Status != Pending {
		t.Fatalf("parent status should not follow subtasks, got %s", got.Status)
	}

	if err := b.DeleteSubtask(task.ID, a.ID); err != nil {
		t.Fatalf("DeleteSubtask: %v", err)
	}
	got, _ = b.Task(task.ID)
	if len(got.Subtasks) != 1 || got.Subtasks[0].ID != c.ID {
		t.Fatalf("unexpected subtasks after delete: %+v", got.Subtasks)
	}
}

func TestTasksReturnsCopy(t *testing.T) {
	b := NewBoardWithIDs(seqIDs())
	task, _ := b.AddTask("parent")
	_, _ = b.AddSubtask(task.ID, "child")

	snapshot := b.Tasks()
	snapshot[0].Title = "mutated"
	snapshot[0].Subtasks[0].Title = "mutated"

	got, _ := b.Task(task.ID)
	if got.Title != "parent" || got.Subtasks[0].Title != "child" {
		t.Fatalf("board state leaked through snapshot: %+v", got)
	}
}

func TestBoardConcurrentAdds(t *testing.T) {
	b := NewBoard()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = b.AddTask(fmt.Sprintf("task %d", i))
		}(i)
	}
	wg.Wait()
	if b.Len() != 50 {
		t.Fatalf("expected 50 tasks, got %d", b.Len())
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"Pending", Pending, false},
		{"running", Running, false},
		{" COMPLETED ", Completed, false},
		{"done", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseStatus(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestStatusClass(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Statuses {
		seen[StatusClass(s)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("each status needs its own class, got %v", seen)
	}
	if StatusClass(Running) != "badge badge-blue" {
		t.Fatalf("unexpected running class %q", StatusClass(Running))
	}
}
