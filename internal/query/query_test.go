package query

import (
	"context"
	"testing"
	"time"

	"github.com/telos-vcs/telos/internal/index"
	"github.com/telos-vcs/telos/internal/odb"
	"github.com/telos-vcs/telos/internal/types"
)

func newFixture(t *testing.T) (*odb.ObjectDatabase, *index.IndexStore) {
	t.Helper()
	dir := t.TempDir()
	return odb.New(dir+"/objects", nil), index.New(dir+"/indexes", nil)
}

func TestQueryIntentsFiltersByImpactAndSortsDescending(t *testing.T) {
	db, _ := newFixture(t)
	ctx := context.Background()

	older := time.Unix(1000, 0).UTC()
	newer := time.Unix(2000, 0).UTC()

	if _, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "a", Impacts: []string{"auth"}, Timestamp: older}); err != nil {
		t.Fatalf("Write a: %v", err)
	}
	if _, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "b", Impacts: []string{"auth"}, Timestamp: newer}); err != nil {
		t.Fatalf("Write b: %v", err)
	}
	if _, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "c", Impacts: []string{"billing"}, Timestamp: newer}); err != nil {
		t.Fatalf("Write c: %v", err)
	}

	impact := "auth"
	results, err := QueryIntents(ctx, db, &impact, nil)
	if err != nil {
		t.Fatalf("QueryIntents: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("QueryIntents(auth) = %d results, want 2", len(results))
	}
	if results[0].Intent.Statement != "b" || results[1].Intent.Statement != "a" {
		t.Errorf("expected newest-first order [b, a], got [%s, %s]", results[0].Intent.Statement, results[1].Intent.Statement)
	}
}

func TestQueryIntentsConstraintSubstringIsCaseInsensitive(t *testing.T) {
	db, _ := newFixture(t)
	ctx := context.Background()
	if _, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "a", Constraints: []string{"Must handle Rate Limiting"}, Timestamp: time.Unix(0, 0).UTC()}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	needle := "rate limiting"
	results, err := QueryIntents(ctx, db, nil, &needle)
	if err != nil {
		t.Fatalf("QueryIntents: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("QueryIntents constraint substring = %d results, want 1", len(results))
	}
}

func TestQueryConstraintsDefaultsToActiveStatus(t *testing.T) {
	db, _ := newFixture(t)
	ctx := context.Background()

	if _, err := db.Write(ctx, types.TagConstraint, types.Constraint{Statement: "active one", Status: types.ConstraintActive, Severity: types.SeverityMust, Timestamp: time.Unix(0, 0).UTC()}); err != nil {
		t.Fatalf("Write active: %v", err)
	}
	if _, err := db.Write(ctx, types.TagConstraint, types.Constraint{Statement: "deprecated one", Status: types.ConstraintDeprecated, Severity: types.SeverityMust, Timestamp: time.Unix(0, 0).UTC()}); err != nil {
		t.Fatalf("Write deprecated: %v", err)
	}

	results, err := QueryConstraints(ctx, db, nil, "not-a-real-status")
	if err != nil {
		t.Fatalf("QueryConstraints: %v", err)
	}
	if len(results) != 1 || results[0].Constraint.Statement != "active one" {
		t.Fatalf("QueryConstraints with unrecognized status = %+v, want just the active one", results)
	}
}

func TestQueryDecisionsFiltersByIntentIDAndTag(t *testing.T) {
	db, _ := newFixture(t)
	ctx := context.Background()

	intentID, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "root", Timestamp: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("Write intent: %v", err)
	}
	other, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "unrelated", Timestamp: time.Unix(1, 0).UTC()})
	if err != nil {
		t.Fatalf("Write other intent: %v", err)
	}

	if _, err := db.Write(ctx, types.TagDecisionRecord, types.DecisionRecord{IntentID: intentID, Question: "q1", Decision: "d1", Tags: []string{"security"}, Timestamp: time.Unix(0, 0).UTC()}); err != nil {
		t.Fatalf("Write decision 1: %v", err)
	}
	if _, err := db.Write(ctx, types.TagDecisionRecord, types.DecisionRecord{IntentID: other, Question: "q2", Decision: "d2", Tags: []string{"perf"}, Timestamp: time.Unix(1, 0).UTC()}); err != nil {
		t.Fatalf("Write decision 2: %v", err)
	}

	results, err := QueryDecisions(ctx, db, &intentID, nil)
	if err != nil {
		t.Fatalf("QueryDecisions by intent: %v", err)
	}
	if len(results) != 1 || results[0].Decision.Question != "q1" {
		t.Fatalf("QueryDecisions by intent = %+v, want just q1", results)
	}

	tag := "perf"
	results, err = QueryDecisions(ctx, db, nil, &tag)
	if err != nil {
		t.Fatalf("QueryDecisions by tag: %v", err)
	}
	if len(results) != 1 || results[0].Decision.Question != "q2" {
		t.Fatalf("QueryDecisions by tag = %+v, want just q2", results)
	}
}

func TestQueryAgentOperationsFiltersByAgentAndSession(t *testing.T) {
	db, _ := newFixture(t)
	ctx := context.Background()

	if _, err := db.Write(ctx, types.TagAgentOperation, types.AgentOperation{
		AgentID: "agent-a", SessionID: "sess-1",
		Operation: types.OperationType{Kind: types.OpReview}, Result: types.OperationResult{Kind: types.ResultSuccess},
		Summary: "reviewed", Timestamp: time.Unix(0, 0).UTC(),
	}); err != nil {
		t.Fatalf("Write op 1: %v", err)
	}
	if _, err := db.Write(ctx, types.TagAgentOperation, types.AgentOperation{
		AgentID: "agent-b", SessionID: "sess-2",
		Operation: types.OperationType{Kind: types.OpGenerate}, Result: types.OperationResult{Kind: types.ResultSuccess},
		Summary: "generated", Timestamp: time.Unix(1, 0).UTC(),
	}); err != nil {
		t.Fatalf("Write op 2: %v", err)
	}

	agent := "agent-a"
	results, err := QueryAgentOperations(ctx, db, &agent, nil)
	if err != nil {
		t.Fatalf("QueryAgentOperations: %v", err)
	}
	if len(results) != 1 || results[0].Operation.Summary != "reviewed" {
		t.Fatalf("QueryAgentOperations by agent = %+v, want just \"reviewed\"", results)
	}
}

func TestQueryConstraintsByFileBridgesThroughCodeBinding(t *testing.T) {
	db, idx := newFixture(t)
	ctx := context.Background()

	constraintID, err := db.Write(ctx, types.TagConstraint, types.Constraint{
		Statement: "must validate input", Status: types.ConstraintActive, Severity: types.SeverityMust, Timestamp: time.Unix(0, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("Write constraint: %v", err)
	}
	bindingID, err := db.Write(ctx, types.TagCodeBinding, types.CodeBinding{
		Path: "src/auth/mod.rs", BindingType: types.BindingFunction, Resolution: types.ResolutionResolved, BoundObject: constraintID,
	})
	if err != nil {
		t.Fatalf("Write binding: %v", err)
	}
	if err := idx.UpdateForObject(bindingID, types.TagCodeBinding, types.CodeBinding{
		Path: "src/auth/mod.rs", BindingType: types.BindingFunction, Resolution: types.ResolutionResolved, BoundObject: constraintID,
	}); err != nil {
		t.Fatalf("UpdateForObject: %v", err)
	}

	results, err := QueryConstraintsByFile(ctx, db, idx, "src/auth/mod.rs")
	if err != nil {
		t.Fatalf("QueryConstraintsByFile: %v", err)
	}
	if len(results) != 1 || results[0].ID.String() != constraintID.String() {
		t.Fatalf("QueryConstraintsByFile = %+v, want [%s]", results, constraintID)
	}
}

func TestQueryConstraintsByFileIgnoresNonConstraintBindings(t *testing.T) {
	db, idx := newFixture(t)
	ctx := context.Background()

	intentID, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "root", Timestamp: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("Write intent: %v", err)
	}
	bindingID, err := db.Write(ctx, types.TagCodeBinding, types.CodeBinding{
		Path: "src/main.rs", BindingType: types.BindingFile, Resolution: types.ResolutionResolved, BoundObject: intentID,
	})
	if err != nil {
		t.Fatalf("Write binding: %v", err)
	}
	if err := idx.UpdateForObject(bindingID, types.TagCodeBinding, types.CodeBinding{
		Path: "src/main.rs", BindingType: types.BindingFile, Resolution: types.ResolutionResolved, BoundObject: intentID,
	}); err != nil {
		t.Fatalf("UpdateForObject: %v", err)
	}

	results, err := QueryConstraintsByFile(ctx, db, idx, "src/main.rs")
	if err != nil {
		t.Fatalf("QueryConstraintsByFile: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("QueryConstraintsByFile on an intent-bound binding = %+v, want empty", results)
	}
}
