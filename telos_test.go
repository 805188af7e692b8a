package telos_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/telos-vcs/telos"
)

func mustInit(t *testing.T) (*telos.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := telos.Init(dir, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return repo, dir
}

func TestInitCreatesLayout(t *testing.T) {
	repo, dir := mustInit(t)

	for _, p := range []string{"HEAD", "objects", filepath.Join("refs", "streams", "main"), "indexes", "config.json"} {
		if _, err := os.Stat(filepath.Join(dir, ".telos", p)); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	head, err := repo.Refs.ReadHead()
	if err != nil {
		t.Fatalf("ReadHead: %v", err)
	}
	if head != "main" {
		t.Errorf("ReadHead = %q, want %q", head, "main")
	}

	current, err := repo.Refs.CurrentStream()
	if err != nil {
		t.Fatalf("CurrentStream: %v", err)
	}
	if current.Tip != nil {
		t.Errorf("expected empty tip on fresh stream, got %v", current.Tip)
	}
}

func TestCreateIntentAdvancesTipAndIndexes(t *testing.T) {
	repo, _ := mustInit(t)
	ctx := context.Background()

	id, err := repo.CreateIntent(ctx, telos.Intent{
		Author:    telos.Author{Name: "a", Email: "a@example.com"},
		Statement: "Add user registration",
		Impacts:   []string{"user-registration"},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if len(id.String()) != 64 {
		t.Errorf("id length = %d, want 64", len(id.String()))
	}

	current, err := repo.Refs.CurrentStream()
	if err != nil {
		t.Fatalf("CurrentStream: %v", err)
	}
	if current.Tip == nil || current.Tip.String() != id.String() {
		t.Errorf("current tip = %v, want %v", current.Tip, id)
	}

	entries := repo.Index.ByImpact("user-registration")
	if len(entries) != 1 {
		t.Fatalf("ByImpact entries = %d, want 1", len(entries))
	}
}

func TestWalkIntentsYieldsTipFirstThenAncestors(t *testing.T) {
	repo, _ := mustInit(t)
	ctx := context.Background()

	a, err := repo.CreateIntent(ctx, telos.Intent{Statement: "A"})
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	b, err := repo.CreateIntent(ctx, telos.Intent{Statement: "B", Parents: []telos.ContentID{a}})
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	c, err := repo.CreateIntent(ctx, telos.Intent{Statement: "C", Parents: []telos.ContentID{b}})
	if err != nil {
		t.Fatalf("create C: %v", err)
	}

	ids, _, err := repo.WalkIntents(c).Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("walked %d ids, want 3", len(ids))
	}
	want := []telos.ContentID{c, b, a}
	for i, id := range ids {
		if id.String() != want[i].String() {
			t.Errorf("ids[%d] = %s, want %s", i, id, want[i])
		}
	}
}

func TestConstraintSupersession(t *testing.T) {
	repo, _ := mustInit(t)
	ctx := context.Background()

	root, err := repo.CreateIntent(ctx, telos.Intent{Statement: "root"})
	if err != nil {
		t.Fatalf("create root intent: %v", err)
	}

	sID, err := repo.CreateConstraint(ctx, telos.Constraint{
		Statement:    "S",
		Severity:     telos.SeverityMust,
		Status:       telos.ConstraintActive,
		SourceIntent: root,
		Impacts:      []string{"security"},
	})
	if err != nil {
		t.Fatalf("create S: %v", err)
	}

	security := "security"
	results, err := telos.QueryConstraints(ctx, repo, &security, string(telos.ConstraintActive))
	if err != nil {
		t.Fatalf("QueryConstraints active: %v", err)
	}
	if len(results) != 1 || results[0].ID.String() != sID.String() {
		t.Fatalf("active security constraints = %+v, want [%s]", results, sID)
	}

	tID, err := repo.CreateConstraint(ctx, telos.Constraint{
		Statement:    "T",
		Severity:     telos.SeverityMust,
		Status:       telos.ConstraintActive,
		SourceIntent: root,
		Impacts:      []string{"security"},
	})
	if err != nil {
		t.Fatalf("create T: %v", err)
	}

	s2ID, err := repo.CreateConstraint(ctx, telos.Constraint{
		Statement:    "S",
		Severity:     telos.SeverityMust,
		Status:       telos.ConstraintSuperseded,
		SourceIntent: root,
		SupersededBy: &tID,
		Impacts:      []string{"security"},
	})
	if err != nil {
		t.Fatalf("re-create S as superseded: %v", err)
	}

	superseded, err := telos.QueryConstraints(ctx, repo, nil, string(telos.ConstraintSuperseded))
	if err != nil {
		t.Fatalf("QueryConstraints superseded: %v", err)
	}
	found := false
	for _, r := range superseded {
		if r.ID.String() == s2ID.String() {
			found = true
		}
	}
	if !found {
		t.Errorf("expected superseded results to contain second write of S (id %s)", s2ID)
	}
}

func TestCodeBindingBridgesToConstraint(t *testing.T) {
	repo, _ := mustInit(t)
	ctx := context.Background()

	root, err := repo.CreateIntent(ctx, telos.Intent{Statement: "root"})
	if err != nil {
		t.Fatalf("create root intent: %v", err)
	}
	x, err := repo.CreateConstraint(ctx, telos.Constraint{
		Statement:    "X",
		Severity:     telos.SeverityShould,
		Status:       telos.ConstraintActive,
		SourceIntent: root,
	})
	if err != nil {
		t.Fatalf("create X: %v", err)
	}

	symbol := "validate"
	if _, err := repo.CreateCodeBinding(ctx, telos.CodeBinding{
		Path:        "src/auth/mod.rs",
		Symbol:      &symbol,
		BindingType: telos.BindingFunction,
		Resolution:  telos.ResolutionResolved,
		BoundObject: x,
	}); err != nil {
		t.Fatalf("create code binding: %v", err)
	}

	byFile, err := telos.QueryConstraintsByFile(ctx, repo, "src/auth/mod.rs")
	if err != nil {
		t.Fatalf("QueryConstraintsByFile: %v", err)
	}
	if len(byFile) != 1 || byFile[0].ID.String() != x.String() {
		t.Fatalf("QueryConstraintsByFile = %+v, want [%s]", byFile, x)
	}

	bySymbol, err := telos.QueryConstraintsBySymbol(ctx, repo, "validate")
	if err != nil {
		t.Fatalf("QueryConstraintsBySymbol: %v", err)
	}
	if len(bySymbol) != 1 || bySymbol[0].ID.String() != x.String() {
		t.Fatalf("QueryConstraintsBySymbol = %+v, want [%s]", bySymbol, x)
	}
}

func TestStreamLifecycle(t *testing.T) {
	repo, _ := mustInit(t)

	if err := repo.Refs.CreateStream(telos.StreamRef{Name: "../evil"}); err == nil {
		t.Fatal("expected InvalidStreamName for \"../evil\"")
	}

	if err := repo.Refs.SetHead("main"); err != nil {
		t.Fatalf("SetHead(main): %v", err)
	}
	if err := repo.Refs.DeleteStream("main"); err == nil {
		t.Fatal("expected error deleting the current HEAD stream")
	}

	if err := repo.Refs.CreateStream(telos.StreamRef{Name: "feature/onboarding"}); err != nil {
		t.Fatalf("CreateStream(feature/onboarding): %v", err)
	}
	names, err := repo.Refs.ListStreams()
	if err != nil {
		t.Fatalf("ListStreams: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "feature/onboarding" {
			found = true
		}
	}
	if !found {
		t.Errorf("ListStreams() = %v, want it to contain feature/onboarding", names)
	}
}
