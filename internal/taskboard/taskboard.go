// Package taskboard is an in-memory auth/boards/tasks fixture with its own
// tests. It is a validation fixture, not part of the storage and graph
// engine, and no other package in this module imports it.
package taskboard

import (
	"errors"
	"fmt"
	"strings"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is one unit of work on a Board.
type Task struct {
	ID          string
	Title       string
	Description string
	BoardID     string
	Assignee    string
	Status      TaskStatus
}

// CreateTaskRequest carries the fields needed to create a Task.
// CreateTask does not validate that BoardID refers to an existing board;
// callers are responsible for that check.
type CreateTaskRequest struct {
	Title       string
	Description string
	BoardID     string
	Assignee    string
}

// TaskStore is an in-memory collection of tasks.
type TaskStore struct {
	tasks  []Task
	nextID int
}

// NewTaskStore returns an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{nextID: 1}
}

// CreateTask appends a new task in TaskTodo status and returns it.
func (s *TaskStore) CreateTask(req CreateTaskRequest) Task {
	task := Task{
		ID:          fmt.Sprintf("task-%d", s.nextID),
		Title:       req.Title,
		Description: req.Description,
		BoardID:     req.BoardID,
		Assignee:    req.Assignee,
		Status:      TaskTodo,
	}
	s.nextID++
	s.tasks = append(s.tasks, task)
	return task
}

// Get returns the task with id, if any.
func (s *TaskStore) Get(id string) (Task, bool) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// ListByBoard returns every task belonging to boardID.
func (s *TaskStore) ListByBoard(boardID string) []Task {
	var out []Task
	for _, t := range s.tasks {
		if t.BoardID == boardID {
			out = append(out, t)
		}
	}
	return out
}

// UpdateStatus sets the status of the task with id, reporting whether it
// was found.
func (s *TaskStore) UpdateStatus(id string, status TaskStatus) (Task, bool) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Status = status
			return s.tasks[i], true
		}
	}
	return Task{}, false
}

// Delete removes the task with id, reporting whether it was found.
func (s *TaskStore) Delete(id string) bool {
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Board groups tasks under a named set of workflow columns.
type Board struct {
	ID      string
	Name    string
	Owner   string
	Columns []string
}

// CreateBoardRequest carries the fields needed to create a Board. Columns
// defaults to {Todo, In Progress, Done} when empty.
type CreateBoardRequest struct {
	Name    string
	Owner   string
	Columns []string
}

// BoardStore is an in-memory collection of boards.
type BoardStore struct {
	boards []Board
	nextID int
}

// NewBoardStore returns an empty BoardStore.
func NewBoardStore() *BoardStore {
	return &BoardStore{nextID: 1}
}

// Create appends a new board and returns it.
func (s *BoardStore) Create(req CreateBoardRequest) Board {
	columns := req.Columns
	if len(columns) == 0 {
		columns = []string{"Todo", "In Progress", "Done"}
	}
	board := Board{
		ID:      fmt.Sprintf("board-%d", s.nextID),
		Name:    req.Name,
		Owner:   req.Owner,
		Columns: columns,
	}
	s.nextID++
	s.boards = append(s.boards, board)
	return board
}

// Get returns the board with id, if any.
func (s *BoardStore) Get(id string) (Board, bool) {
	for _, b := range s.boards {
		if b.ID == id {
			return b, true
		}
	}
	return Board{}, false
}

// Exists reports whether a board with id has been created.
func (s *BoardStore) Exists(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// List returns every board.
func (s *BoardStore) List() []Board { return s.boards }

// Delete removes the board with id, reporting whether it was found.
func (s *BoardStore) Delete(id string) bool {
	for i, b := range s.boards {
		if b.ID == id {
			s.boards = append(s.boards[:i], s.boards[i+1:]...)
			return true
		}
	}
	return false
}

// TokenExpiry is the maximum lifetime of an auth token.
// CONSTRAINT: must be <= 1 hour.
const TokenExpiry = 3600 // seconds

// UserRole is the access level carried by a token's claims.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
	RoleViewer UserRole = "viewer"
)

// Claims is the decoded content of a validated token.
type Claims struct {
	Subject string
	Issuer  string
	Role    UserRole
}

var (
	ErrEmptyToken    = errors.New("empty token")
	ErrInvalidFormat = errors.New("invalid token format")
)

// ValidateToken is a stub validator: it checks shape only, not a real
// signature, matching the fixture's stated purpose of producing plausible
// auth-shaped test data rather than implementing authentication.
func ValidateToken(token, issuer string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrEmptyToken
	}
	if !strings.HasPrefix(token, "tb_") {
		return Claims{}, ErrInvalidFormat
	}
	return Claims{Subject: "user-1", Issuer: issuer, Role: RoleMember}, nil
}
