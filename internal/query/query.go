// Package query implements the filtered-scan and index-accelerated query
// layer over the object database: intents, decisions, constraints, and
// agent operations, plus the location-to-constraint bridge through
// code bindings.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/telos-vcs/telos/internal/index"
	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/odb"
	"github.com/telos-vcs/telos/internal/types"
)

// IntentResult pairs a content id with its decoded intent.
type IntentResult struct {
	ID     objectid.ID
	Intent types.Intent
}

// QueryIntents filter-scans the object database for intents, optionally
// requiring an exact impact tag match and/or a case-insensitive substring
// match against the intent's free-text constraints. Results are sorted by
// timestamp descending (stable).
func QueryIntents(ctx context.Context, db *odb.ObjectDatabase, impact, constraintContains *string) ([]IntentResult, error) {
	entries, err := db.IterAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []IntentResult
	for _, e := range entries {
		if e.Tag != types.TagIntent {
			continue
		}
		v := e.Value.(types.Intent)
		if impact != nil && !containsString(v.Impacts, *impact) {
			continue
		}
		if constraintContains != nil && !anyContainsFold(v.Constraints, *constraintContains) {
			continue
		}
		out = append(out, IntentResult{ID: e.ID, Intent: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Intent.Timestamp.After(out[j].Intent.Timestamp) })
	return out, nil
}

// DecisionResult pairs a content id with its decoded decision record.
type DecisionResult struct {
	ID       objectid.ID
	Decision types.DecisionRecord
}

// QueryDecisions filter-scans for decision records, optionally by exact
// intent id and/or exact tag membership.
func QueryDecisions(ctx context.Context, db *odb.ObjectDatabase, intentID *objectid.ID, tag *string) ([]DecisionResult, error) {
	entries, err := db.IterAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []DecisionResult
	for _, e := range entries {
		if e.Tag != types.TagDecisionRecord {
			continue
		}
		v := e.Value.(types.DecisionRecord)
		if intentID != nil && v.IntentID.String() != intentID.String() {
			continue
		}
		if tag != nil && !containsString(v.Tags, *tag) {
			continue
		}
		out = append(out, DecisionResult{ID: e.ID, Decision: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Decision.Timestamp.After(out[j].Decision.Timestamp) })
	return out, nil
}

// ConstraintResult pairs a content id with its decoded constraint.
type ConstraintResult struct {
	ID         objectid.ID
	Constraint types.Constraint
}

// QueryConstraints filter-scans for constraints by optional impact tag and
// status, defaulting status to "active" (unrecognized values also fall back
// to "active").
func QueryConstraints(ctx context.Context, db *odb.ObjectDatabase, impact *string, status string) ([]ConstraintResult, error) {
	st := normalizeConstraintStatus(status)
	entries, err := db.IterAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []ConstraintResult
	for _, e := range entries {
		if e.Tag != types.TagConstraint {
			continue
		}
		v := e.Value.(types.Constraint)
		if v.Status != st {
			continue
		}
		if impact != nil && !containsString(v.Impacts, *impact) {
			continue
		}
		out = append(out, ConstraintResult{ID: e.ID, Constraint: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Constraint.Timestamp.After(out[j].Constraint.Timestamp) })
	return out, nil
}

func normalizeConstraintStatus(status string) types.ConstraintStatus {
	switch types.ConstraintStatus(status) {
	case types.ConstraintActive, types.ConstraintSuperseded, types.ConstraintDeprecated:
		return types.ConstraintStatus(status)
	default:
		return types.ConstraintActive
	}
}

// QueryConstraintsByFile uses the codepath index to find code bindings at
// path, follows each to its bound object, and yields only those that are
// constraints.
func QueryConstraintsByFile(ctx context.Context, db *odb.ObjectDatabase, idx *index.IndexStore, path string) ([]ConstraintResult, error) {
	return resolveBoundConstraints(ctx, db, idx.ByPath(path))
}

// QueryConstraintsBySymbol uses the symbols index to find code bindings
// naming symbol, follows each to its bound object, and yields only those
// that are constraints.
func QueryConstraintsBySymbol(ctx context.Context, db *odb.ObjectDatabase, idx *index.IndexStore, symbol string) ([]ConstraintResult, error) {
	return resolveBoundConstraints(ctx, db, idx.BySymbol(symbol))
}

func resolveBoundConstraints(ctx context.Context, db *odb.ObjectDatabase, entries []index.Entry) ([]ConstraintResult, error) {
	var out []ConstraintResult
	for _, e := range entries {
		tag, value, err := db.Read(ctx, e.ID)
		if err != nil {
			continue
		}
		if tag != types.TagCodeBinding {
			continue
		}
		binding := value.(types.CodeBinding)
		boundTag, boundValue, err := db.Read(ctx, binding.BoundObject)
		if err != nil {
			continue
		}
		if boundTag != types.TagConstraint {
			continue
		}
		out = append(out, ConstraintResult{ID: binding.BoundObject, Constraint: boundValue.(types.Constraint)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Constraint.Timestamp.After(out[j].Constraint.Timestamp) })
	return out, nil
}

// AgentOperationResult pairs a content id with its decoded agent operation.
type AgentOperationResult struct {
	ID        objectid.ID
	Operation types.AgentOperation
}

// QueryAgentOperations filter-scans for agent operations by optional
// exact agent id and/or session id.
func QueryAgentOperations(ctx context.Context, db *odb.ObjectDatabase, agent, session *string) ([]AgentOperationResult, error) {
	entries, err := db.IterAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []AgentOperationResult
	for _, e := range entries {
		if e.Tag != types.TagAgentOperation {
			continue
		}
		v := e.Value.(types.AgentOperation)
		if agent != nil && v.AgentID != *agent {
			continue
		}
		if session != nil && v.SessionID != *session {
			continue
		}
		out = append(out, AgentOperationResult{ID: e.ID, Operation: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Operation.Timestamp.After(out[j].Operation.Timestamp) })
	return out, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func anyContainsFold(haystack []string, needle string) bool {
	lowered := strings.ToLower(needle)
	for _, s := range haystack {
		if strings.Contains(strings.ToLower(s), lowered) {
			return true
		}
	}
	return false
}
