package taskboard

import "testing"

func TestCreateTaskDefaultsToTodo(t *testing.T) {
	s := NewTaskStore()
	task := s.CreateTask(CreateTaskRequest{Title: "write tests", BoardID: "board-1"})
	if task.Status != TaskTodo {
		t.Errorf("Status = %q, want %q", task.Status, TaskTodo)
	}
	if task.ID == "" {
		t.Error("expected a generated task id")
	}
}

func TestTaskStoreGetListUpdateDelete(t *testing.T) {
	s := NewTaskStore()
	a := s.CreateTask(CreateTaskRequest{Title: "a", BoardID: "b1"})
	_ = s.CreateTask(CreateTaskRequest{Title: "b", BoardID: "b2"})

	got, ok := s.Get(a.ID)
	if !ok || got.Title != "a" {
		t.Fatalf("Get(%q) = (%+v, %v), want task a", a.ID, got, ok)
	}

	onB1 := s.ListByBoard("b1")
	if len(onB1) != 1 || onB1[0].ID != a.ID {
		t.Fatalf("ListByBoard(b1) = %+v, want just %s", onB1, a.ID)
	}

	updated, ok := s.UpdateStatus(a.ID, TaskDone)
	if !ok || updated.Status != TaskDone {
		t.Fatalf("UpdateStatus = (%+v, %v), want done", updated, ok)
	}

	if !s.Delete(a.ID) {
		t.Fatal("expected Delete to find the task")
	}
	if _, ok := s.Get(a.ID); ok {
		t.Error("expected task to be gone after Delete")
	}
}

func TestBoardStoreDefaultColumns(t *testing.T) {
	s := NewBoardStore()
	board := s.Create(CreateBoardRequest{Name: "Roadmap", Owner: "alice"})
	want := []string{"Todo", "In Progress", "Done"}
	if len(board.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", board.Columns, want)
	}
	for i := range want {
		if board.Columns[i] != want[i] {
			t.Errorf("Columns[%d] = %q, want %q", i, board.Columns[i], want[i])
		}
	}
}

func TestBoardStoreCustomColumns(t *testing.T) {
	s := NewBoardStore()
	board := s.Create(CreateBoardRequest{Name: "Custom", Columns: []string{"Backlog", "Shipped"}})
	if len(board.Columns) != 2 || board.Columns[0] != "Backlog" {
		t.Errorf("Columns = %v, want [Backlog Shipped]", board.Columns)
	}
}

func TestBoardStoreExistsAndDelete(t *testing.T) {
	s := NewBoardStore()
	board := s.Create(CreateBoardRequest{Name: "Temp"})
	if !s.Exists(board.ID) {
		t.Fatal("expected Exists true right after Create")
	}
	if !s.Delete(board.ID) {
		t.Fatal("expected Delete to find the board")
	}
	if s.Exists(board.ID) {
		t.Error("expected Exists false after Delete")
	}
}

func TestValidateTokenRejectsEmpty(t *testing.T) {
	if _, err := ValidateToken("", "issuer"); err != ErrEmptyToken {
		t.Errorf("ValidateToken(\"\") err = %v, want ErrEmptyToken", err)
	}
}

func TestValidateTokenRejectsBadFormat(t *testing.T) {
	if _, err := ValidateToken("not-prefixed", "issuer"); err != ErrInvalidFormat {
		t.Errorf("ValidateToken(bad format) err = %v, want ErrInvalidFormat", err)
	}
}

func TestValidateTokenAcceptsWellFormed(t *testing.T) {
	claims, err := ValidateToken("tb_abc123", "telos")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Issuer != "telos" || claims.Role != RoleMember {
		t.Errorf("claims = %+v, want issuer telos, role member", claims)
	}
}
