package http

import (
	"net/http"

	applog "kakeibo/internal/log"
	"kakeibo/internal/todo"
)

const todoPath = "/todo"

func (s *Server) handleTodo(w http.ResponseWriter, r *http.Request) {
	s.renderTodo(w, r, http.StatusOK, r.URL.Query().Get("edit"), "")
}

func (s *Server) renderTodo(w http.ResponseWriter, r *http.Request, status int, editID, flash string) {
	s.render(w, r, "todo.html", status, todoPage{
		page:   page{Title: "TODO管理アプリ", Nav: "todo", Flash: flash},
		Tasks:  s.board.Tasks(),
		EditID: editID,
	})
}

// todoForm parses the body and runs fn against the board. Every board
// handler shares the same success and failure handling.
func (s *Server) todoForm(w http.ResponseWriter, r *http.Request, op string, fn func(p *RequestBodyParser) (taskID, subtaskID string, err error)) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("リクエストを解析できません").Write(w)
		return
	}

	taskID, subtaskID, err := fn(p)
	if err != nil {
		status, msg := s.classifyWriteError(r, err, applog.ComponentTodo)
		switch {
		case isHTMX(r):
			ErrorResponse(status, msg).
				Retarget("#flash").
				TriggerErrorNotification(msg).
				Write(w)
		case status == http.StatusInternalServerError:
			InternalServerError(msg).Write(w)
		default:
			s.renderTodo(w, r, status, "", msg)
		}
		return
	}

	s.appMetrics.tasksChanged.Add(1)
	eventLog(r.Context()).LogTaskChanged(r.Context(), op, taskID, subtaskID)
	NewHTMXResponse().
		TriggerTaskChanged(taskID).
		Finish(w, r, todoPath)
}

func requireID(p *RequestBodyParser, key string) (string, error) {
	id := p.Get(key)
	if id == "" {
		return "", errMissingID
	}
	return id, nil
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpCreate, func(p *RequestBodyParser) (string, string, error) {
		t, err := s.board.AddTask(p.Get("title"))
		return t.ID, "", err
	})
}

func (s *Server) handleRenameTask(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpUpdate, func(p *RequestBodyParser) (string, string, error) {
		id, err := requireID(p, "id")
		if err != nil {
			return "", "", err
		}
		return id, "", s.board.RenameTask(id, p.Get("title"))
	})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpUpdate, func(p *RequestBodyParser) (string, string, error) {
		id, err := requireID(p, "id")
		if err != nil {
			return "", "", err
		}
		status, err := todo.ParseStatus(p.Get("status"))
		if err != nil {
			return id, "", err
		}
		return id, "", s.board.SetTaskStatus(id, status)
	})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpDelete, func(p *RequestBodyParser) (string, string, error) {
		id, err := requireID(p, "id")
		if err != nil {
			return "", "", err
		}
		return id, "", s.board.DeleteTask(id)
	})
}

func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpCreate, func(p *RequestBodyParser) (string, string, error) {
		taskID, err := requireID(p, "task_id")
		if err != nil {
			return "", "", err
		}
		st, err := s.board.AddSubtask(taskID, p.Get("title"))
		return taskID, st.ID, err
	})
}

func (s *Server) handleSubtaskStatus(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpUpdate, func(p *RequestBodyParser) (string, string, error) {
		taskID, err := requireID(p, "task_id")
		if err != nil {
			return "", "", err
		}
		subtaskID, err := requireID(p, "id")
		if err != nil {
			return taskID, "", err
		}
		status, err := todo.ParseStatus(p.Get("status"))
		if err != nil {
			return taskID, subtaskID, err
		}
		return taskID, subtaskID, s.board.SetSubtaskStatus(taskID, subtaskID, status)
	})
}

func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	s.todoForm(w, r, applog.OpDelete, func(p *RequestBodyParser) (string, string, error) {
		taskID, err := requireID(p, "task_id")
		if err != nil {
			return "", "", err
		}
		subtaskID, err := requireID(p, "id")
		if err != nil {
			return taskID, "", err
		}
		return taskID, subtaskID, s.board.DeleteSubtask(taskID, subtaskID)
	})
}
